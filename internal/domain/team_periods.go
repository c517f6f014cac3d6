package domain

import (
	"sort"
	"time"
)

// ExtractTeamPeriods builds, from the assignment change log, the periods
// during which the person belonged to each team. A team still assigned now
// yields an open period ending tomorrow. The AllTeamsKey entry holds the
// merged union across teams.
//
// When a person has no change log at all, the current assignments are
// assumed to have held since the follow-up started.
func ExtractTeamPeriods(p Person, now time.Time) PeriodSet {
	set := PeriodSet{}

	if len(p.TeamChanges) == 0 {
		if len(p.AssignedTeams) == 0 {
			return set
		}
		period := Period{Start: StartOfDay(p.FollowedSince), End: Tomorrow(now)}
		for _, team := range p.AssignedTeams {
			set[team] = []Period{period}
		}
		set[AllTeamsKey] = []Period{period}
		return set
	}

	changes := make([]TeamChange, len(p.TeamChanges))
	copy(changes, p.TeamChanges)
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Date.Before(changes[j].Date)
	})

	open := map[string]time.Time{}
	for _, change := range changes {
		day := StartOfDay(change.Date)
		current := map[string]struct{}{}
		for _, team := range change.AssignedTeams {
			current[team] = struct{}{}
			if _, ok := open[team]; !ok {
				open[team] = day
			}
		}
		for team, start := range open {
			if _, still := current[team]; still {
				continue
			}
			set[team] = append(set[team], Period{Start: start, End: day})
			delete(open, team)
		}
	}
	for team, start := range open {
		set[team] = append(set[team], Period{Start: start, End: Tomorrow(now)})
	}

	var all []Period
	for team, periods := range set {
		sort.Slice(periods, func(i, j int) bool {
			return periods[i].Start.Before(periods[j].Start)
		})
		set[team] = periods
		all = append(all, periods...)
	}
	if merged := MergePeriods(all); len(merged) > 0 {
		set[AllTeamsKey] = merged
	}
	return set
}
