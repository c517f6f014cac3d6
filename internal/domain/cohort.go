package domain

import (
	"sort"
	"time"
)

// CohortMode selects which cohort list the caller wants back. Counts for
// all four modes are computed regardless, so switching modes does not
// require recomputation.
type CohortMode string

const (
	CohortModeAll      CohortMode = "all"
	CohortModeModified CohortMode = "modified"
	CohortModeFollowed CohortMode = "followed"
	CohortModeCreated  CohortMode = "created"
)

// QueryPeriod is the raw caller-selected date range, before consolidation
// to day boundaries.
type QueryPeriod struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// Consolidate maps the raw range to a half-open period on UTC day
// boundaries. The end day itself is included, so the period ends at the
// start of the following day.
func (q QueryPeriod) Consolidate() Period {
	return Period{Start: StartOfDay(q.StartDate), End: StartOfDay(q.EndDate).AddDate(0, 0, 1)}
}

// CohortQuery describes one classification request. A nil Period means no
// restriction: everyone matching the team filter is included in every
// mode. TeamPeriods carries, per selected team, the period the caller
// wants that team judged against; teams listed with a zero period fall
// back to the consolidated query period.
type CohortQuery struct {
	Period                  *QueryPeriod      `json:"period"`
	Mode                    CohortMode        `json:"mode"`
	TeamPeriods             map[string]Period `json:"teamPeriods"`
	ViewAllOrganisationData bool              `json:"viewAllOrganisationData"`
}

// SelectedTeams returns the team filter in deterministic order.
func (q CohortQuery) SelectedTeams() []string {
	teams := make([]string, 0, len(q.TeamPeriods))
	for team := range q.TeamPeriods {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	return teams
}

// CohortCounts holds the per-mode totals.
type CohortCounts struct {
	All      int `json:"all"`
	Modified int `json:"modified"`
	Followed int `json:"followed"`
	Created  int `json:"created"`
}

// CohortResult is the classifier output: the cohort list for the requested
// mode plus the counts for every mode.
type CohortResult struct {
	PersonsForStats          []Person     `json:"personsForStats"`
	PersonTypeCounts         CohortCounts `json:"personTypeCounts"`
	CountFollowedWithActions int          `json:"countFollowedWithActions"`
}

// Classify runs the four cohort tests over every person in one pass.
// Inactive and team membership periods are derived per person from the
// change logs; anomalies found along the way go to the reporter and never
// affect the counts.
func Classify(query CohortQuery, persons []Person, now time.Time, reporter Reporter) CohortResult {
	result := CohortResult{PersonsForStats: []Person{}}
	teams := query.SelectedTeams()

	var defaultPeriod Period
	if query.Period != nil {
		defaultPeriod = query.Period.Consolidate()
	}

	for _, person := range persons {
		teamPeriods := person.TeamPeriods
		if teamPeriods == nil {
			teamPeriods = ExtractTeamPeriods(person, now)
		}
		if !matchesTeamFilter(query, person, teamPeriods, teams) {
			continue
		}

		var membership cohortMembership
		if query.Period == nil {
			membership = cohortMembership{all: true, modified: true, followed: true, created: true}
			membership.followedWithActions = !person.OutOfActiveList && hasActionForTeams(person, query, teams, nil)
		} else {
			membership = classifyPerson(query, person, teamPeriods, teams, defaultPeriod, reporter, now)
		}

		if membership.all {
			result.PersonTypeCounts.All++
		}
		if membership.modified {
			result.PersonTypeCounts.Modified++
		}
		if membership.followed {
			result.PersonTypeCounts.Followed++
		}
		if membership.created {
			result.PersonTypeCounts.Created++
		}
		if membership.followedWithActions {
			result.CountFollowedWithActions++
		}
		if membership.forMode(query.Mode) {
			result.PersonsForStats = append(result.PersonsForStats, person)
		}
	}
	return result
}

type cohortMembership struct {
	all                 bool
	modified            bool
	followed            bool
	created             bool
	followedWithActions bool
}

func (m cohortMembership) forMode(mode CohortMode) bool {
	switch mode {
	case CohortModeModified:
		return m.modified
	case CohortModeFollowed:
		return m.followed
	case CohortModeCreated:
		return m.created
	default:
		return m.all
	}
}

func classifyPerson(query CohortQuery, person Person, teamPeriods PeriodSet, teams []string, defaultPeriod Period, reporter Reporter, now time.Time) cohortMembership {
	var membership cohortMembership

	// Assignment to a selected team during the period gates every mode:
	// a person whose membership ended before the window contributes to
	// none of the counts, whatever their interactions say.
	membership.all = assignedDuringAny(query, person, teamPeriods, teams, defaultPeriod)
	if !membership.all {
		return membership
	}

	inactive := ExtractInactivePeriods(person, now, reporter)

	for _, interaction := range person.Interactions {
		if defaultPeriod.Contains(interaction) {
			membership.modified = true
		}
		if membership.followed {
			continue
		}
		if IsInPeriod(interaction, inactive) {
			continue
		}
		if interactionCountsAsFollowed(query, teamPeriods, teams, defaultPeriod, interaction) {
			membership.followed = true
		}
	}

	membership.created = wasCreatedDuring(query, person, teamPeriods, teams, defaultPeriod)

	if membership.followed && !person.OutOfActiveList {
		membership.followedWithActions = hasActionForTeams(person, query, teams, &defaultPeriod)
	}
	return membership
}

func matchesTeamFilter(query CohortQuery, person Person, teamPeriods PeriodSet, teams []string) bool {
	if query.ViewAllOrganisationData {
		return true
	}
	if len(person.AssignedTeams) == 0 && len(person.TeamChanges) == 0 {
		return true
	}
	for _, team := range teams {
		if len(teamPeriods[team]) > 0 {
			return true
		}
		if containsString(person.AssignedTeams, team) {
			return true
		}
	}
	return false
}

func assignedDuringAny(query CohortQuery, person Person, teamPeriods PeriodSet, teams []string, defaultPeriod Period) bool {
	if query.ViewAllOrganisationData {
		if len(teamPeriods[AllTeamsKey]) == 0 {
			return true
		}
		return teamPeriods.OverlapsPeriod(AllTeamsKey, defaultPeriod)
	}
	for _, team := range teams {
		period := teamQueryPeriod(query, team, defaultPeriod)
		if len(person.TeamChanges) > 0 {
			if AssignedDuringQuery(person.TeamChanges, team, period) {
				return true
			}
			continue
		}
		if len(teamPeriods[team]) == 0 && len(person.AssignedTeams) == 0 {
			return true
		}
		if teamPeriods.OverlapsPeriod(team, period) {
			return true
		}
	}
	return false
}

func interactionCountsAsFollowed(query CohortQuery, teamPeriods PeriodSet, teams []string, defaultPeriod Period, interaction time.Time) bool {
	if query.ViewAllOrganisationData {
		if !defaultPeriod.Contains(interaction) {
			return false
		}
		if len(teamPeriods[AllTeamsKey]) == 0 {
			return true
		}
		return teamPeriods.ContainsDate(AllTeamsKey, interaction)
	}
	for _, team := range teams {
		if !teamQueryPeriod(query, team, defaultPeriod).Contains(interaction) {
			continue
		}
		if teamPeriods.ContainsDate(team, interaction) {
			return true
		}
	}
	return false
}

func wasCreatedDuring(query CohortQuery, person Person, teamPeriods PeriodSet, teams []string, defaultPeriod Period) bool {
	if query.ViewAllOrganisationData {
		if defaultPeriod.Contains(StartOfDay(person.FollowedSince)) {
			return true
		}
		if periods := teamPeriods[AllTeamsKey]; len(periods) > 0 {
			return defaultPeriod.Contains(periods[0].Start)
		}
		return false
	}
	for _, team := range teams {
		period := teamQueryPeriod(query, team, defaultPeriod)
		if period.Contains(StartOfDay(person.FollowedSince)) {
			return true
		}
		if periods := teamPeriods[team]; len(periods) > 0 {
			if period.Contains(periods[0].Start) {
				return true
			}
		}
	}
	return false
}

func hasActionForTeams(person Person, query CohortQuery, teams []string, period *Period) bool {
	for _, action := range person.Actions {
		if period != nil && !period.Contains(action.ReferenceDate()) {
			continue
		}
		if query.ViewAllOrganisationData {
			return true
		}
		for _, team := range teams {
			if containsString(action.Teams, team) {
				return true
			}
		}
	}
	return false
}

func teamQueryPeriod(query CohortQuery, team string, defaultPeriod Period) Period {
	period := query.TeamPeriods[team]
	if period.Start.IsZero() && period.End.IsZero() {
		return defaultPeriod
	}
	return period
}
