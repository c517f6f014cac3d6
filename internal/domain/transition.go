package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedQuery marks requests rejected at the boundary before any
// computation starts.
var ErrMalformedQuery = errors.New("malformed query")

// TransitionRequest asks how many persons held FromValue at StartDate and
// ToValue at EndDate for the named field.
type TransitionRequest struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Field     string    `json:"fieldName"`
	FromValue string    `json:"fromValue"`
	ToValue   string    `json:"toValue"`
}

// TransitionResult carries the before/after counts plus the day boundaries
// the raw request dates were consolidated to.
type TransitionResult struct {
	ValueStart            string    `json:"valueStart"`
	CountStart            int       `json:"countStart"`
	ValueEnd              string    `json:"valueEnd"`
	CountEnd              int       `json:"countEnd"`
	StartDateConsolidated time.Time `json:"startDateConsolidated"`
	EndDateConsolidated   time.Time `json:"endDateConsolidated"`
}

// ComputeTransition reconstructs every person at the two boundary dates and
// counts who held the requested values. History inconsistencies are
// reported and never abort the computation: counts are produced from the
// best-effort reconstructed values.
func ComputeTransition(req TransitionRequest, persons []Person, fieldTypes map[string]FieldType, reporter Reporter) (TransitionResult, error) {
	if req.Field == "" {
		return TransitionResult{}, fmt.Errorf("field name is required: %w", ErrMalformedQuery)
	}
	if req.StartDate.After(req.EndDate) {
		return TransitionResult{}, fmt.Errorf("start date %s is after end date %s: %w",
			req.StartDate.Format(time.DateOnly), req.EndDate.Format(time.DateOnly), ErrMalformedQuery)
	}

	startDay := StartOfDay(req.StartDate)
	endDay := StartOfDay(req.EndDate)
	fieldType := FieldTypeText
	if known, ok := fieldTypes[req.Field]; ok {
		fieldType = known
	}

	result := TransitionResult{
		ValueStart:            req.FromValue,
		ValueEnd:              req.ToValue,
		StartDateConsolidated: startDay,
		EndDateConsolidated:   endDay,
	}

	opts := SnapshotOptions{OnlyField: req.Field}
	for _, person := range persons {
		startSnapshot := ReconstructAtDate(person, startDay, fieldTypes, opts, reporter)
		endSnapshot := ReconstructAtDate(person, endDay, fieldTypes, opts, reporter)
		startValue := startSnapshot.Fields[req.Field]
		endValue := endSnapshot.Fields[req.Field]

		if NormalizedContains(fieldType, startValue, req.FromValue) {
			result.CountStart++
		}
		if NormalizedContains(fieldType, endValue, req.ToValue) {
			result.CountEnd++
		}

		checkFieldCoherence(person, req.Field, fieldType, startDay, endDay, startValue, endValue, reporter)
	}
	return result, nil
}

// checkFieldCoherence replays the field's recorded changes between the two
// boundary dates forward from the start snapshot and verifies that each
// recorded old value matches the running state, and that the final running
// state matches the end snapshot.
func checkFieldCoherence(person Person, field string, fieldType FieldType, startDay, endDay time.Time, startValue, endValue any, reporter Reporter) {
	running := startValue
	seen := false
	for _, entry := range person.History {
		day := StartOfDay(entry.Date)
		if !day.After(startDay) || day.After(endDay) {
			continue
		}
		change, ok := entry.Data[field]
		if !ok {
			continue
		}
		if !NormalizedEqual(fieldType, running, change.Old) {
			report(reporter, "recorded old value does not match replayed state", map[string]any{
				"person":      person.ID,
				"field":       field,
				"date":        entry.Date,
				"recordedOld": change.Old,
				"replayed":    running,
			})
		}
		running = change.New
		seen = true
	}
	if seen && !NormalizedEqual(fieldType, running, endValue) {
		report(reporter, "replayed value does not match end snapshot", map[string]any{
			"person":   person.ID,
			"field":    field,
			"replayed": running,
			"snapshot": endValue,
		})
	}
}
