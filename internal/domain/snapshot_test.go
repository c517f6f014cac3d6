package domain

import (
	"testing"
	"time"
)

func fieldEntry(day time.Time, field string, old, new any) HistoryEntry {
	return HistoryEntry{
		Date: day,
		Data: map[string]FieldChange{field: {Old: old, New: new}},
	}
}

var testFieldTypes = map[string]FieldType{
	"gender":    FieldTypeEnum,
	"housing":   FieldTypeEnum,
	"resources": FieldTypeMultiChoice,
}

func TestReconstructIsIdentityWithoutLaterEntries(t *testing.T) {
	person := Person{
		Fields:  map[string]any{"housing": "Rue"},
		History: []HistoryEntry{fieldEntry(date(2023, 2, 1), "housing", "Squat", "Rue")},
	}

	snapshot := ReconstructAtDate(person, date(2023, 6, 1), testFieldTypes, SnapshotOptions{}, nil)

	if snapshot.Fields["housing"] != "Rue" {
		t.Errorf("expected current value to survive, got %v", snapshot.Fields["housing"])
	}
}

func TestReconstructUndoesLaterChanges(t *testing.T) {
	person := Person{
		Fields: map[string]any{"housing": "Logement"},
		History: []HistoryEntry{
			fieldEntry(date(2023, 2, 1), "housing", "Squat", "Rue"),
			fieldEntry(date(2023, 8, 1), "housing", "Rue", "Logement"),
		},
	}

	snapshot := ReconstructAtDate(person, date(2023, 5, 1), testFieldTypes, SnapshotOptions{}, nil)

	if snapshot.Fields["housing"] != "Rue" {
		t.Errorf("expected value as of May, got %v", snapshot.Fields["housing"])
	}
	if person.Fields["housing"] != "Logement" {
		t.Errorf("input person must not be mutated, got %v", person.Fields["housing"])
	}
}

func TestReconstructKeepsChangesMadeOnSnapshotDay(t *testing.T) {
	person := Person{
		Fields: map[string]any{"housing": "Logement"},
		History: []HistoryEntry{
			fieldEntry(date(2023, 5, 1), "housing", "Rue", "Logement"),
		},
	}

	snapshot := ReconstructAtDate(person, date(2023, 5, 1), testFieldTypes, SnapshotOptions{}, nil)

	if snapshot.Fields["housing"] != "Logement" {
		t.Errorf("changes on the snapshot day itself must be kept, got %v", snapshot.Fields["housing"])
	}
}

func TestReconstructReportsIncoherentHistory(t *testing.T) {
	person := Person{
		Fields: map[string]any{"housing": "Squat"},
		History: []HistoryEntry{
			fieldEntry(date(2023, 8, 1), "housing", "Rue", "Logement"),
		},
	}

	reporter := &recordingReporter{}
	snapshot := ReconstructAtDate(person, date(2023, 5, 1), testFieldTypes, SnapshotOptions{}, reporter)

	if len(reporter.messages) != 1 {
		t.Fatalf("expected one anomaly report, got %d", len(reporter.messages))
	}
	if got := reporter.contexts[0]; got["recordedNew"] != "Logement" || got["reconstructed"] != "Squat" {
		t.Errorf("mismatch report must carry both values, got %v", got)
	}
	if snapshot.Fields["housing"] != "Rue" {
		t.Errorf("replay must still apply the recorded old value, got %v", snapshot.Fields["housing"])
	}
}

func TestReconstructSkipsFixedInTimeFields(t *testing.T) {
	person := Person{
		Fields: map[string]any{"gender": "Femme"},
		History: []HistoryEntry{
			fieldEntry(date(2023, 8, 1), "gender", "Homme", "Femme"),
		},
	}

	snapshot := ReconstructAtDate(person, date(2023, 5, 1), testFieldTypes, SnapshotOptions{}, nil)
	if snapshot.Fields["gender"] != "Femme" {
		t.Errorf("corrections to fixed fields must not be replayed, got %v", snapshot.Fields["gender"])
	}

	snapshot = ReconstructAtDate(person, date(2023, 5, 1), testFieldTypes, SnapshotOptions{OnlyField: "gender"}, nil)
	if snapshot.Fields["gender"] != "Homme" {
		t.Errorf("the analyzed field must be replayed even when fixed, got %v", snapshot.Fields["gender"])
	}
}

func TestReconstructSkipsEmptyOldValues(t *testing.T) {
	person := Person{
		Fields: map[string]any{"housing": "Rue"},
		History: []HistoryEntry{
			fieldEntry(date(2023, 8, 1), "housing", "", "Rue"),
		},
	}

	snapshot := ReconstructAtDate(person, date(2023, 5, 1), testFieldTypes, SnapshotOptions{}, nil)

	if snapshot.Fields["housing"] != "Rue" {
		t.Errorf("empty old values must not overwrite the snapshot, got %v", snapshot.Fields["housing"])
	}
}

func TestReconstructIgnoresDeletedFields(t *testing.T) {
	person := Person{
		Fields: map[string]any{"legacy": "new"},
		History: []HistoryEntry{
			fieldEntry(date(2023, 8, 1), "legacy", "old", "new"),
		},
	}

	snapshot := ReconstructAtDate(person, date(2023, 5, 1), testFieldTypes, SnapshotOptions{}, nil)

	if snapshot.Fields["legacy"] != "new" {
		t.Errorf("fields removed from the catalog must not be replayed, got %v", snapshot.Fields["legacy"])
	}
}
