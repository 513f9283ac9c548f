package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Request statuses shared by leave and OD requests
const (
	StatusPending      = "pending"
	StatusPendingAdmin = "pending_admin"
	StatusApproved     = "approved"
	StatusForwarded    = "forwarded"
	StatusRejected     = "rejected"
	StatusCancelled    = "cancelled"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTutor   = "tutor"
	RoleFaculty = "faculty"
	RoleStudent = "student"
)

// Schedule categories
const (
	CategoryHoliday = "Holiday"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// User model
type User struct {
	BaseModel
	Username string `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password string `json:"-" gorm:"size:255;not null"`
	Email    string `json:"email" gorm:"size:255;uniqueIndex"`
	Name     string `json:"name" gorm:"size:200"`
	Phone    string `json:"phone" gorm:"size:20"`
	Role     string `json:"role" gorm:"size:50;not null;default:'student';type:enum('admin','tutor','faculty','student')"` // admin, tutor, faculty, student
	Status   string `json:"status" gorm:"size:50;not null;default:'active';type:enum('active','inactive','suspended')"`    // active, inactive, suspended
	Avatar   string `json:"avatar" gorm:"size:500"`

	// Relationships
	StudentProfile *StudentProfile `json:"student_profile,omitempty" gorm:"foreignKey:UserID"`
}

// Batch is an admission cohort labelled "<startYear>-<endYear>".
// The current semester window is maintained by the admin at the start of each term.
type Batch struct {
	BaseModel
	Name              string     `json:"name" gorm:"size:20;not null;uniqueIndex"` // e.g. 2024-2028
	StartYear         int        `json:"start_year" gorm:"not null"`
	EndYear           int        `json:"end_year" gorm:"not null"`
	CurrentSemester   int        `json:"current_semester" gorm:"default:1"`
	SemesterStartDate *time.Time `json:"semester_start_date" gorm:"type:date"`
	SemesterEndDate   *time.Time `json:"semester_end_date" gorm:"type:date"`
	Active            bool       `json:"active" gorm:"default:true"`

	// Relationships
	Sections []Section `json:"sections,omitempty" gorm:"foreignKey:BatchID"`
}

func (Batch) TableName() string { return "batches" }

// Section of a batch, owned by one tutor
type Section struct {
	BaseModel
	BatchID uint   `json:"batch_id" gorm:"not null;index"`
	Name    string `json:"name" gorm:"size:20;not null"`
	TutorID *uint  `json:"tutor_id"`

	// Relationships
	Batch Batch `json:"batch,omitempty" gorm:"foreignKey:BatchID"`
	Tutor *User `json:"tutor,omitempty" gorm:"foreignKey:TutorID"`
}

func (Section) TableName() string { return "sections" }

// StudentProfile links a student user to their batch and section
type StudentProfile struct {
	BaseModel
	UserID     uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	BatchID    uint   `json:"batch_id" gorm:"not null;index"`
	SectionID  uint   `json:"section_id" gorm:"not null;index"`
	RollNumber string `json:"roll_number" gorm:"size:50"`

	// Relationships
	Batch   Batch   `json:"batch,omitempty" gorm:"foreignKey:BatchID"`
	Section Section `json:"section,omitempty" gorm:"foreignKey:SectionID"`
}

func (StudentProfile) TableName() string { return "student_profiles" }

// LeaveRequest model
type LeaveRequest struct {
	BaseModel
	UserID         uint       `json:"user_id" gorm:"not null;index"`
	LeaveType      string     `json:"leave_type" gorm:"size:50;not null;default:'casual'"` // casual, medical, emergency, ...
	StartDate      time.Time  `json:"start_date" gorm:"type:date;not null;index"`
	EndDate        time.Time  `json:"end_date" gorm:"type:date;not null;index"`
	IsHalfDay      bool       `json:"is_half_day" gorm:"default:false"`
	HalfDaySession string     `json:"half_day_session" gorm:"size:20"` // forenoon, afternoon
	WorkingDays    float64    `json:"working_days" gorm:"type:decimal(5,1);not null;default:0"`
	Reason         string     `json:"reason" gorm:"type:text"`
	Status         string     `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','pending_admin','approved','forwarded','rejected','cancelled')"`
	ApprovedBy     *uint      `json:"approved_by"`
	ApprovedAt     *time.Time `json:"approved_at"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (LeaveRequest) TableName() string { return "leave_requests" }

// ODRequest is an on-duty request; it marks the student present and never reduces attendance
type ODRequest struct {
	BaseModel
	UserID         uint       `json:"user_id" gorm:"not null;index"`
	Purpose        string     `json:"purpose" gorm:"size:255;not null"`
	Place          string     `json:"place" gorm:"size:255"`
	StartDate      time.Time  `json:"start_date" gorm:"type:date;not null;index"`
	EndDate        time.Time  `json:"end_date" gorm:"type:date;not null;index"`
	IsHalfDay      bool       `json:"is_half_day" gorm:"default:false"`
	HalfDaySession string     `json:"half_day_session" gorm:"size:20"`
	WorkingDays    float64    `json:"working_days" gorm:"type:decimal(5,1);not null;default:0"`
	Status         string     `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','pending_admin','approved','forwarded','rejected','cancelled')"`
	ApprovedBy     *uint      `json:"approved_by"`
	ApprovedAt     *time.Time `json:"approved_at"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (ODRequest) TableName() string { return "od_requests" }

// Schedule is a holiday or exam window; rows are discriminated by Category
type Schedule struct {
	BaseModel
	Title     string    `json:"title" gorm:"size:255;not null"`
	Category  string    `json:"category" gorm:"size:50;not null;index"` // Holiday, CIA1, CIA2, CIA3, Model, Semester
	StartDate time.Time `json:"start_date" gorm:"type:date;not null"`
	EndDate   time.Time `json:"end_date" gorm:"type:date;not null"`
	BatchID   *uint     `json:"batch_id" gorm:"index"` // nil applies to every batch

	// Relationships
	Batch *Batch `json:"batch,omitempty" gorm:"foreignKey:BatchID"`
}

func (Schedule) TableName() string { return "schedules" }

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`
	RequestID  string `json:"request_id" gorm:"size:64"`
}

// Notification model
type Notification struct {
	BaseModel
	UserID  uint       `json:"user_id" gorm:"not null;index"`
	Title   string     `json:"title" gorm:"size:255;not null"`
	Message string     `json:"message" gorm:"type:text;not null"`
	Type    string     `json:"type" gorm:"size:50;not null;type:enum('info','warning','error','success')"` // info, warning, error, success
	Data    JSON       `json:"data" gorm:"type:json"`
	Read    bool       `json:"read" gorm:"default:false"`
	ReadAt  *time.Time `json:"read_at"`
}

// ReportArchive tracks attendance workbooks uploaded to S3
type ReportArchive struct {
	BaseModel
	BatchID     uint      `json:"batch_id" gorm:"not null;index"`
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	GeneratedOn time.Time `json:"generated_on" gorm:"type:date;not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','completed','failed')"` // pending, completed, failed
	Error       string    `json:"error" gorm:"type:text"`
}
