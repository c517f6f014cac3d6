package domain

import (
	"errors"
	"testing"
)

func TestComputeTransitionConsistentHistory(t *testing.T) {
	person := Person{
		Fields: map[string]any{"gender": "Femme"},
		History: []HistoryEntry{
			fieldEntry(date(2024, 1, 1), "gender", "Homme", "Femme"),
		},
	}
	req := TransitionRequest{
		StartDate: date(2024, 1, 1),
		EndDate:   date(2024, 4, 1),
		Field:     "gender",
		FromValue: "Homme",
		ToValue:   "Femme",
	}

	reporter := &recordingReporter{}
	result, err := ComputeTransition(req, []Person{person}, testFieldTypes, reporter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CountStart != 0 {
		t.Errorf("the change on the start day is already applied, expected countStart=0, got %d", result.CountStart)
	}
	if result.CountEnd != 1 {
		t.Errorf("expected countEnd=1, got %d", result.CountEnd)
	}
	if result.ValueStart != "Homme" || result.ValueEnd != "Femme" {
		t.Errorf("requested values must be echoed back, got %+v", result)
	}
	if !result.StartDateConsolidated.Equal(date(2024, 1, 1)) || !result.EndDateConsolidated.Equal(date(2024, 4, 1)) {
		t.Errorf("dates must be consolidated to day boundaries, got %+v", result)
	}
	if len(reporter.messages) != 0 {
		t.Errorf("consistent history must not report anomalies, got %v", reporter.messages)
	}
}

func TestComputeTransitionInconsistentHistoryReportsTwice(t *testing.T) {
	person := Person{
		Fields: map[string]any{"gender": "Homme"},
		History: []HistoryEntry{
			fieldEntry(date(2024, 2, 1), "gender", "Homme", "Femme"),
		},
	}
	req := TransitionRequest{
		StartDate: date(2024, 1, 1),
		EndDate:   date(2024, 4, 1),
		Field:     "gender",
		FromValue: "Homme",
		ToValue:   "Femme",
	}

	reporter := &recordingReporter{}
	result, err := ComputeTransition(req, []Person{person}, testFieldTypes, reporter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reporter.messages) != 2 {
		t.Fatalf("expected exactly two anomaly reports, got %d: %v", len(reporter.messages), reporter.messages)
	}
	if got := reporter.contexts[0]; got["recordedNew"] != "Femme" || got["reconstructed"] != "Homme" {
		t.Errorf("mismatch report must carry both values, got %v", got)
	}
	if got := reporter.contexts[1]; got["replayed"] != "Femme" || got["snapshot"] != "Homme" {
		t.Errorf("end-of-replay report must carry both values, got %v", got)
	}
	if result.CountStart != 1 {
		t.Errorf("counts must still be produced, expected countStart=1, got %d", result.CountStart)
	}
	if result.CountEnd != 0 {
		t.Errorf("counts must still be produced, expected countEnd=0, got %d", result.CountEnd)
	}
}

func TestComputeTransitionIgnoresOtherFieldsHistory(t *testing.T) {
	person := Person{
		Fields: map[string]any{"gender": "Femme", "housing": "Squat"},
		History: []HistoryEntry{
			fieldEntry(date(2024, 1, 1), "gender", "Homme", "Femme"),
			// The recorded new value disagrees with the current one, but
			// housing is not the analyzed field.
			fieldEntry(date(2024, 2, 1), "housing", "Rue", "Logement"),
		},
	}
	req := TransitionRequest{
		StartDate: date(2024, 1, 1),
		EndDate:   date(2024, 4, 1),
		Field:     "gender",
		FromValue: "Homme",
		ToValue:   "Femme",
	}

	reporter := &recordingReporter{}
	result, err := ComputeTransition(req, []Person{person}, testFieldTypes, reporter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reporter.messages) != 0 {
		t.Errorf("history of unrelated fields must not produce anomalies, got %v", reporter.messages)
	}
	if result.CountEnd != 1 {
		t.Errorf("expected countEnd=1, got %d", result.CountEnd)
	}
}

func TestComputeTransitionRejectsMalformedRequests(t *testing.T) {
	_, err := ComputeTransition(TransitionRequest{
		StartDate: date(2024, 1, 1),
		EndDate:   date(2024, 4, 1),
	}, nil, testFieldTypes, nil)
	if !errors.Is(err, ErrMalformedQuery) {
		t.Errorf("missing field name should be rejected, got %v", err)
	}

	_, err = ComputeTransition(TransitionRequest{
		StartDate: date(2024, 4, 1),
		EndDate:   date(2024, 1, 1),
		Field:     "gender",
	}, nil, testFieldTypes, nil)
	if !errors.Is(err, ErrMalformedQuery) {
		t.Errorf("inverted date range should be rejected, got %v", err)
	}
}

func TestComputeTransitionCountsMultiChoiceMembership(t *testing.T) {
	person := Person{
		Fields: map[string]any{"resources": []string{"RSA", "AAH"}},
		History: []HistoryEntry{
			fieldEntry(date(2024, 2, 1), "resources", []string{"RSA"}, []string{"RSA", "AAH"}),
		},
	}
	req := TransitionRequest{
		StartDate: date(2024, 1, 1),
		EndDate:   date(2024, 4, 1),
		Field:     "resources",
		FromValue: "RSA",
		ToValue:   "AAH",
	}

	result, err := ComputeTransition(req, []Person{person}, testFieldTypes, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CountStart != 1 {
		t.Errorf("RSA was held at the start, got countStart=%d", result.CountStart)
	}
	if result.CountEnd != 1 {
		t.Errorf("AAH is held at the end, got countEnd=%d", result.CountEnd)
	}
}
