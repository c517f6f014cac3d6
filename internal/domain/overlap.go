package domain

import "time"

// IsInPeriod reports whether any of the periods contains the date. An
// empty list never contains anything.
func IsInPeriod(date time.Time, periods []Period) bool {
	for _, period := range periods {
		if period.Contains(date) {
			return true
		}
	}
	return false
}

// AssignedDuringQuery decides from the raw assignment change log whether
// the person belonged to the given team at some point during the query
// period. The scan keeps a flag recording that the person was assigned at
// or before the query start: an unassignment at or after the start while
// the flag is set means the assignment straddled the boundary.
//
// A person with no change log at all is never excluded by team filters.
func AssignedDuringQuery(changes []TeamChange, team string, query Period) bool {
	if len(changes) == 0 {
		return true
	}
	mightBeIncluded := false
	for _, change := range changes {
		assigned := containsString(change.AssignedTeams, team)
		if !assigned {
			if !change.Date.Before(query.Start) && mightBeIncluded {
				return true
			}
			mightBeIncluded = false
			continue
		}
		if !change.Date.After(query.Start) {
			mightBeIncluded = true
			continue
		}
		if change.Date.Before(query.End) {
			return true
		}
	}
	return mightBeIncluded
}

// ContainsDate reports whether the given team had the person assigned on
// the given date.
func (s PeriodSet) ContainsDate(team string, date time.Time) bool {
	for _, period := range s[team] {
		if period.Contains(date) {
			return true
		}
	}
	return false
}

// OverlapsPeriod reports whether the given team's assignment periods
// intersect target.
func (s PeriodSet) OverlapsPeriod(team string, target Period) bool {
	for _, period := range s[team] {
		if period.Overlaps(target) {
			return true
		}
	}
	return false
}

// AnyTeamOverlap reports whether any of the selected teams had the person
// assigned at some point during target.
func AnyTeamOverlap(s PeriodSet, teams []string, target Period) bool {
	for _, team := range teams {
		if s.OverlapsPeriod(team, target) {
			return true
		}
	}
	return false
}

// AnyTeamContainsDate reports whether any of the selected teams had the
// person assigned on the given date.
func AnyTeamContainsDate(s PeriodSet, teams []string, date time.Time) bool {
	for _, team := range teams {
		if s.ContainsDate(team, date) {
			return true
		}
	}
	return false
}
