package domain

import (
	"testing"
	"time"
)

func TestExtractTeamPeriodsFromChangeLog(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	person := Person{
		TeamChanges: []TeamChange{
			{Date: date(2023, 1, 1), AssignedTeams: []string{"street"}},
			{Date: date(2023, 4, 1), AssignedTeams: []string{"street", "shelter"}},
			{Date: date(2023, 8, 1), AssignedTeams: []string{"shelter"}},
		},
	}

	set := ExtractTeamPeriods(person, now)

	street := set["street"]
	if len(street) != 1 {
		t.Fatalf("expected one street period, got %d: %v", len(street), street)
	}
	if !street[0].Start.Equal(date(2023, 1, 1)) || !street[0].End.Equal(date(2023, 8, 1)) {
		t.Errorf("street period mismatch: %v", street[0])
	}

	shelter := set["shelter"]
	if len(shelter) != 1 {
		t.Fatalf("expected one shelter period, got %d: %v", len(shelter), shelter)
	}
	if !shelter[0].Start.Equal(date(2023, 4, 1)) {
		t.Errorf("shelter start mismatch: %v", shelter[0])
	}
	if !shelter[0].End.Equal(Tomorrow(now)) {
		t.Errorf("open shelter period should end tomorrow, got %s", shelter[0].End)
	}

	all := set[AllTeamsKey]
	if len(all) != 1 {
		t.Fatalf("expected the union to be one continuous period, got %v", all)
	}
	if !all[0].Start.Equal(date(2023, 1, 1)) || !all[0].End.Equal(Tomorrow(now)) {
		t.Errorf("union period mismatch: %v", all[0])
	}
}

func TestExtractTeamPeriodsFallsBackToCurrentAssignments(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	person := Person{
		FollowedSince: date(2023, 6, 15),
		AssignedTeams: []string{"street"},
	}

	set := ExtractTeamPeriods(person, now)

	street := set["street"]
	if len(street) != 1 {
		t.Fatalf("expected one street period, got %v", street)
	}
	if !street[0].Start.Equal(date(2023, 6, 15)) || !street[0].End.Equal(Tomorrow(now)) {
		t.Errorf("fallback period mismatch: %v", street[0])
	}
}

func TestExtractTeamPeriodsReassignmentCreatesTwoSpans(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	person := Person{
		TeamChanges: []TeamChange{
			{Date: date(2023, 1, 1), AssignedTeams: []string{"street"}},
			{Date: date(2023, 3, 1), AssignedTeams: []string{}},
			{Date: date(2023, 9, 1), AssignedTeams: []string{"street"}},
		},
	}

	set := ExtractTeamPeriods(person, now)

	street := set["street"]
	if len(street) != 2 {
		t.Fatalf("expected two street periods, got %v", street)
	}
	if !street[0].End.Equal(date(2023, 3, 1)) {
		t.Errorf("first span should close at unassignment, got %v", street[0])
	}
	if !street[1].Start.Equal(date(2023, 9, 1)) || !street[1].End.Equal(Tomorrow(now)) {
		t.Errorf("second span mismatch: %v", street[1])
	}
}
