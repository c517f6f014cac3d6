package domain

import (
	"sort"
	"time"
)

// AllTeamsKey is the pseudo team under which a person's union of team
// periods is stored.
const AllTeamsKey = "all"

// Period is a half-open interval [Start, End): Start is included, End is
// excluded. A zero Start marks a period whose beginning is unknown.
type Period struct {
	Start time.Time `json:"isoStartDate"`
	End   time.Time `json:"isoEndDate"`
}

// Contains reports whether date falls inside the period.
func (p Period) Contains(date time.Time) bool {
	if date.Before(p.Start) {
		return false
	}
	return date.Before(p.End)
}

// Overlaps reports whether the two half-open periods intersect.
func (p Period) Overlaps(other Period) bool {
	return p.Start.Before(other.End) && other.Start.Before(p.End)
}

// PeriodSet maps a team identifier to the periods during which a person was
// assigned to that team. The AllTeamsKey entry holds the merged union.
type PeriodSet map[string][]Period

// StartOfDay truncates a time to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Tomorrow returns the start of the day after t, used as the open end of a
// period still running now.
func Tomorrow(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// MergePeriods returns the union of the given periods as a minimal sorted
// list of disjoint periods.
func MergePeriods(periods []Period) []Period {
	if len(periods) == 0 {
		return nil
	}
	sorted := make([]Period, len(periods))
	copy(sorted, periods)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})
	merged := []Period{sorted[0]}
	for _, period := range sorted[1:] {
		last := &merged[len(merged)-1]
		if period.Start.After(last.End) {
			merged = append(merged, period)
			continue
		}
		if period.End.After(last.End) {
			last.End = period.End
		}
	}
	return merged
}
