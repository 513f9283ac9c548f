package attendance

import (
	"strconv"
	"strings"
	"time"
)

// AcademicState is the study year (1..4) and semester (1..8) of a batch.
type AcademicState struct {
	Year     int `json:"year"`
	Semester int `json:"semester"`
}

var defaultAcademicState = AcademicState{Year: 1, Semester: 1}

// CurrentAcademicState derives the year and semester of the batch labelled
// "<startYear>-<endYear>" at now. June through December is an odd semester,
// January through May an even one. Labels that cannot be parsed yield {1, 1}.
func CurrentAcademicState(batchLabel string, now time.Time) AcademicState {
	startPart, _, ok := strings.Cut(strings.TrimSpace(batchLabel), "-")
	if !ok {
		return defaultAcademicState
	}
	startYear, err := strconv.Atoi(strings.TrimSpace(startPart))
	if err != nil {
		return defaultAcademicState
	}

	yearDiff := now.Year() - startYear
	var state AcademicState
	if now.Month() >= time.June {
		state = AcademicState{Year: yearDiff + 1, Semester: yearDiff*2 + 1}
	} else {
		// A freshman batch before June lands on semester 0 / year 0 and is
		// clamped up to 1 below.
		state = AcademicState{Year: yearDiff, Semester: yearDiff * 2}
	}
	state.Semester = clamp(state.Semester, 1, 8)
	state.Year = clamp(state.Year, 1, 4)
	return state
}

// CalculateCurrentAcademicState is CurrentAcademicState at the service clock.
func (s *Service) CalculateCurrentAcademicState(batchLabel string) AcademicState {
	return CurrentAcademicState(batchLabel, s.now())
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
