package seeders

import (
	"fmt"
	"strings"
	"time"

	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/config"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultPassword is set on every seeded account
const DefaultPassword = "password123"

// SeedAll seeds a demo batch with staff, students and calendar entries. It is a
// no-op when users already exist.
func SeedAll(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logrus.Info("Users already seeded, skipping")
		return nil
	}

	logrus.Info("Starting database seeding")
	return db.Transaction(func(tx *gorm.DB) error {
		users, err := seedUsers(tx)
		if err != nil {
			return err
		}
		batch, err := seedBatch(tx, users["tutor_meena"].ID)
		if err != nil {
			return err
		}
		if err := seedStudents(tx, batch, users); err != nil {
			return err
		}
		if err := seedCalendar(tx, batch); err != nil {
			return err
		}
		logrus.Info("Database seeding completed")
		return nil
	})
}

func seedUsers(tx *gorm.DB) (map[string]*models.User, error) {
	hashed, err := utils.HashPassword(DefaultPassword)
	if err != nil {
		return nil, err
	}

	users := []*models.User{
		{Username: "admin", Name: "Portal Admin", Email: "admin@college.edu", Role: models.RoleAdmin},
		{Username: "tutor_meena", Name: "Meena R", Email: "meena@college.edu", Role: models.RoleTutor},
		{Username: "faculty_ravi", Name: "Ravi K", Email: "ravi@college.edu", Role: models.RoleFaculty},
		{Username: "24cs001", Name: "Asha S", Email: "24cs001@college.edu", Role: models.RoleStudent},
		{Username: "24cs002", Name: "Bala M", Email: "24cs002@college.edu", Role: models.RoleStudent},
	}

	out := make(map[string]*models.User, len(users))
	for _, u := range users {
		u.Password = hashed
		u.Status = "active"
		if err := tx.Create(u).Error; err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		out[u.Username] = u
	}
	return out, nil
}

// seedBatch creates the 2024-2028 batch with the current semester window and one section.
func seedBatch(tx *gorm.DB, tutorID uint) (*models.Batch, error) {
	semStart, semEnd := currentSemester(seedNow())
	batch := &models.Batch{
		Name:              "2024-2028",
		StartYear:         2024,
		EndYear:           2028,
		CurrentSemester:   1,
		SemesterStartDate: &semStart,
		SemesterEndDate:   &semEnd,
		Active:            true,
	}
	if err := tx.Create(batch).Error; err != nil {
		return nil, fmt.Errorf("seed batch: %w", err)
	}

	section := &models.Section{BatchID: batch.ID, Name: "A", TutorID: &tutorID}
	if err := tx.Create(section).Error; err != nil {
		return nil, fmt.Errorf("seed section: %w", err)
	}
	batch.Sections = []models.Section{*section}
	return batch, nil
}

func seedStudents(tx *gorm.DB, batch *models.Batch, users map[string]*models.User) error {
	section := batch.Sections[0]
	for _, username := range []string{"24cs001", "24cs002"} {
		profile := models.StudentProfile{
			UserID:     users[username].ID,
			BatchID:    batch.ID,
			SectionID:  section.ID,
			RollNumber: strings.ToUpper(username),
		}
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("seed student %s: %w", username, err)
		}
	}
	return nil
}

// seedCalendar adds one holiday and one internal exam inside the semester window.
func seedCalendar(tx *gorm.DB, batch *models.Batch) error {
	start := *batch.SemesterStartDate
	holiday := start.AddDate(0, 0, 30)
	exam := start.AddDate(0, 0, 45)

	rows := []models.Schedule{
		{Title: "Founders Day", Category: models.CategoryHoliday, StartDate: holiday, EndDate: holiday},
		{Title: "Internal Assessment 1", Category: "CIA1", StartDate: exam, EndDate: exam.AddDate(0, 0, 2), BatchID: &batch.ID},
	}
	for _, r := range rows {
		if err := tx.Create(&r).Error; err != nil {
			return fmt.Errorf("seed schedule %s: %w", r.Title, err)
		}
	}
	return nil
}

func seedNow() time.Time {
	if config.AppConfig != nil && config.AppConfig.Location != nil {
		return time.Now().In(config.AppConfig.Location)
	}
	return time.Now()
}

// currentSemester returns the odd (June-November) or even (December-May) semester
// window containing now, as midnights in now's location.
func currentSemester(now time.Time) (time.Time, time.Time) {
	y, loc := now.Year(), now.Location()
	switch {
	case now.Month() >= time.June && now.Month() <= time.November:
		return time.Date(y, time.June, 15, 0, 0, 0, 0, loc), time.Date(y, time.November, 30, 0, 0, 0, 0, loc)
	case now.Month() == time.December:
		return time.Date(y, time.December, 15, 0, 0, 0, 0, loc), time.Date(y+1, time.May, 15, 0, 0, 0, 0, loc)
	default:
		return time.Date(y-1, time.December, 15, 0, 0, 0, 0, loc), time.Date(y, time.May, 15, 0, 0, 0, 0, loc)
	}
}
