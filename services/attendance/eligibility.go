package attendance

import (
	"context"
	"fmt"
)

// LeaveEligibility is the casual-leave decision. A refusal is a normal outcome, not an error.
type LeaveEligibility struct {
	Allowed              bool           `json:"allowed"`
	AttendancePercentage float64        `json:"attendance_percentage"`
	MinimumPercentage    float64        `json:"minimum_percentage"`
	Message              string         `json:"message"`
	Status               SnapshotStatus `json:"status"`
}

// CanApplyCasualLeave allows casual leave when the user's attendance is at least the
// configured minimum.
func (s *Service) CanApplyCasualLeave(ctx context.Context, userID uint) LeaveEligibility {
	report := s.StudentAttendance(ctx, userID)
	return s.eligibilityFor(report)
}

func (s *Service) eligibilityFor(report AttendanceReport) LeaveEligibility {
	pct := report.AttendancePercentage
	result := LeaveEligibility{
		Allowed:              pct >= s.minAttendance,
		AttendancePercentage: pct,
		MinimumPercentage:    s.minAttendance,
		Status:               report.Status,
	}
	if result.Allowed {
		result.Message = fmt.Sprintf("Your attendance is %.2f%%. You can apply for casual leave.", pct)
	} else {
		result.Message = fmt.Sprintf("Your attendance is %.2f%%, below the required %.0f%%. Casual leave cannot be applied.", pct, s.minAttendance)
	}
	return result
}
