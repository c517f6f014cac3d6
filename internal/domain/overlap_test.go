package domain

import "testing"

func TestAssignedDuringQueryStraddlesStartBoundary(t *testing.T) {
	changes := []TeamChange{
		{Date: date(2023, 1, 1), AssignedTeams: []string{"street"}},
		{Date: date(2023, 5, 1), AssignedTeams: []string{}},
	}
	query := Period{Start: date(2023, 3, 1), End: date(2023, 4, 1)}

	if !AssignedDuringQuery(changes, "street", query) {
		t.Errorf("assignment held across the query start should be included")
	}
}

func TestAssignedDuringQueryEndedBeforeQuery(t *testing.T) {
	changes := []TeamChange{
		{Date: date(2022, 1, 1), AssignedTeams: []string{"street"}},
		{Date: date(2022, 6, 1), AssignedTeams: []string{}},
	}
	query := Period{Start: date(2023, 3, 1), End: date(2023, 4, 1)}

	if AssignedDuringQuery(changes, "street", query) {
		t.Errorf("assignment ended before the query should be excluded")
	}
}

func TestAssignedDuringQueryAssignmentInsidePeriod(t *testing.T) {
	changes := []TeamChange{
		{Date: date(2023, 3, 15), AssignedTeams: []string{"street"}},
	}
	query := Period{Start: date(2023, 3, 1), End: date(2023, 4, 1)}

	if !AssignedDuringQuery(changes, "street", query) {
		t.Errorf("assignment inside the query period should be included")
	}
}

func TestAssignedDuringQueryStillAssignedAtEnd(t *testing.T) {
	changes := []TeamChange{
		{Date: date(2022, 1, 1), AssignedTeams: []string{"street"}},
	}
	query := Period{Start: date(2023, 3, 1), End: date(2023, 4, 1)}

	if !AssignedDuringQuery(changes, "street", query) {
		t.Errorf("assignment running through the query end should be included")
	}
}

func TestAssignedDuringQueryDefaultsToIncludeWithoutChangeLog(t *testing.T) {
	query := Period{Start: date(2023, 3, 1), End: date(2023, 4, 1)}

	if !AssignedDuringQuery(nil, "street", query) {
		t.Errorf("a person without any change log is never excluded by team filters")
	}
}

func TestPeriodSetContainsDate(t *testing.T) {
	set := PeriodSet{
		"street": {{Start: date(2023, 1, 1), End: date(2023, 6, 1)}},
	}

	if !set.ContainsDate("street", date(2023, 1, 1)) {
		t.Errorf("start boundary should be inside")
	}
	if set.ContainsDate("street", date(2023, 6, 1)) {
		t.Errorf("end boundary should be outside")
	}
	if set.ContainsDate("shelter", date(2023, 3, 1)) {
		t.Errorf("unknown team should contain nothing")
	}
}
