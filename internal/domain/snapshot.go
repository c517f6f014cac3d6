package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// SnapshotOptions tunes historical reconstruction.
type SnapshotOptions struct {
	// OnlyField names a field whose changes must be replayed even when the
	// field is normally treated as fixed in time. Transition statistics on
	// gender or birth date need the raw change log, while cohort snapshots
	// treat late corrections as having always been true.
	OnlyField string
}

// ReconstructAtDate rebuilds the person's state as it was at the end of the
// given day, by undoing history entries newest first. Changes recorded on
// the snapshot day itself are kept.
//
// Each undone change is checked against the running state: a recorded new
// value that does not match what the state actually holds means the history
// is incoherent, which is reported but does not stop the replay.
func ReconstructAtDate(p Person, target time.Time, fieldTypes map[string]FieldType, opts SnapshotOptions, reporter Reporter) Person {
	snapshot := p.Clone()
	if len(p.History) == 0 || target.IsZero() {
		return snapshot
	}
	targetDay := StartOfDay(target)

	for i := len(p.History) - 1; i >= 0; i-- {
		entry := p.History[i]
		if !StartOfDay(entry.Date).After(targetDay) {
			break
		}
		undoEntry(&snapshot, entry, fieldTypes, opts, reporter)
	}
	return snapshot
}

func undoEntry(snapshot *Person, entry HistoryEntry, fieldTypes map[string]FieldType, opts SnapshotOptions, reporter Reporter) {
	fields := make([]string, 0, len(entry.Data))
	for field := range entry.Data {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if opts.OnlyField != "" && field != opts.OnlyField {
			continue
		}
		if _, forbidden := forbiddenHistoryFields[field]; forbidden {
			continue
		}
		if _, fixed := fixedInTimeFields[field]; fixed && field != opts.OnlyField {
			continue
		}
		if fieldTypes != nil {
			if _, known := fieldTypes[field]; !known {
				continue
			}
		}
		change := entry.Data[field]
		if !valuesMatch(fieldTypes, field, snapshot.Fields[field], change.New) {
			report(reporter, "recorded change does not match reconstructed state", map[string]any{
				"person":        snapshot.ID,
				"field":         field,
				"date":          entry.Date,
				"recordedNew":   change.New,
				"reconstructed": snapshot.Fields[field],
			})
		}
		if old, ok := change.Old.(string); ok && old == "" {
			continue
		}
		snapshot.Fields[field] = change.Old
	}
}

func valuesMatch(fieldTypes map[string]FieldType, field string, current, recorded any) bool {
	if fieldTypes != nil {
		if fieldType, ok := fieldTypes[field]; ok {
			return NormalizedEqual(fieldType, current, recorded)
		}
	}
	currentJSON, _ := json.Marshal(current)
	recordedJSON, _ := json.Marshal(recorded)
	return string(currentJSON) == string(recordedJSON)
}
