package attendance

import (
	"context"
	"fmt"
	"time"
)

// blockingStatuses are the request states that reserve their dates.
var blockingStatuses = []string{"pending", "pending_admin", "approved"}

// CheckOverlappingRequests reports whether [start, end] intersects any pending or
// approved leave or OD request of the user, ignoring exclude. Lookup errors are
// returned so the caller can reject the submission.
func (s *Service) CheckOverlappingRequests(ctx context.Context, userID uint, start, end time.Time, exclude *RequestRef) (bool, error) {
	for _, kind := range []RequestKind{KindLeave, KindOD} {
		rows, err := s.store.ListRequests(ctx, kind, userID, blockingStatuses)
		if err != nil {
			return false, fmt.Errorf("check overlapping %s requests: %w", kind, err)
		}
		for _, row := range rows {
			if exclude != nil && exclude.Kind == kind && exclude.ID == row.ID {
				continue
			}
			if RangesOverlap(start, end, row.StartDate, row.EndDate) {
				return true, nil
			}
		}
	}
	return false, nil
}
