package domain

import (
	"sort"
	"time"
)

// ExtractInactivePeriods derives the half-open periods during which the
// person was out of the active list, from the outOfActiveList toggles in
// the history. The walk goes from the newest entry to the oldest so that an
// exit closes the start of the most recently seen period.
//
// A retroactive exit carries its indicated date in EffectiveDate and that
// date wins over the recording date. Re-entries always use the recording
// date. Inconsistent sequences are reported and repaired with degenerate
// periods so downstream classification keeps working.
func ExtractInactivePeriods(p Person, now time.Time, reporter Reporter) []Period {
	var periods []Period
	var pending *Period

	if p.OutOfActiveList {
		pending = &Period{End: Tomorrow(now)}
	}

	for i := len(p.History) - 1; i >= 0; i-- {
		entry := p.History[i]
		change, ok := entry.Data[FieldOutOfActiveList]
		if !ok {
			continue
		}
		if isExit(change.New) {
			reference := StartOfDay(entry.ReferenceDate())
			if pending == nil {
				report(reporter, "exit from active list without matching re-entry", map[string]any{
					"person": p.ID,
					"date":   entry.Date,
				})
				periods = append(periods, Period{Start: reference, End: reference})
				continue
			}
			pending.Start = reference
			periods = append(periods, *pending)
			pending = nil
			continue
		}
		reference := StartOfDay(entry.Date)
		if pending != nil {
			report(reporter, "re-entry to active list without matching exit", map[string]any{
				"person": p.ID,
				"date":   entry.Date,
			})
			pending.Start = reference
			periods = append(periods, *pending)
		}
		pending = &Period{End: reference}
	}

	if pending != nil {
		if !p.FollowedSince.IsZero() {
			pending.Start = StartOfDay(p.FollowedSince)
		}
		periods = append(periods, *pending)
	}

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Start.Before(periods[j].Start)
	})
	return periods
}

func isExit(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return typed == "true" || typed == "Oui"
	default:
		return false
	}
}
