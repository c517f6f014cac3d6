package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FieldType describes how a person field's raw values are interpreted when
// comparing historical and current states.
type FieldType string

const (
	FieldTypeText         FieldType = "text"
	FieldTypeTextarea     FieldType = "textarea"
	FieldTypeDate         FieldType = "date"
	FieldTypeDateWithTime FieldType = "date-with-time"
	FieldTypeDuration     FieldType = "duration"
	FieldTypeNumber       FieldType = "number"
	FieldTypeYesNo        FieldType = "yes-no"
	FieldTypeBoolean      FieldType = "boolean"
	FieldTypeEnum         FieldType = "enum"
	FieldTypeMultiChoice  FieldType = "multi-choice"
)

// NotProvided is the sentinel reported for nullish values once normalized.
const NotProvided = "Non renseigné"

// FieldOutOfActiveList is the status toggle whose history yields inactivity
// periods.
const FieldOutOfActiveList = "outOfActiveList"

// FieldOutOfActiveListDate carries the indicated effective date of a
// retroactive exit. It is consumed at the data-model boundary to populate
// HistoryEntry.EffectiveDate.
const FieldOutOfActiveListDate = "outOfActiveListDate"

// forbiddenHistoryFields are never replayed: they describe the record
// itself, not the person's state.
var forbiddenHistoryFields = map[string]struct{}{
	"history":   {},
	"documents": {},
	"createdAt": {},
	"updatedAt": {},
}

// fixedInTimeFields are treated as corrections rather than state
// transitions: a birth date filled in later was always true, so replaying
// the change would hide the person from historical stats.
var fixedInTimeFields = map[string]struct{}{
	"birthdate":     {},
	"gender":        {},
	"followedSince": {},
}

// NormalizeValue maps a raw field value to its normalized representation: a
// set of strings. Yes-no and boolean fields normalize to "Oui"/"Non",
// nullish values to the NotProvided sentinel, multi-choice values to their
// element set.
func NormalizeValue(fieldType FieldType, value any) []string {
	switch fieldType {
	case FieldTypeYesNo:
		if s, ok := value.(string); ok && s == "Oui" {
			return []string{"Oui"}
		}
		return []string{"Non"}
	case FieldTypeBoolean:
		if truthy(value) {
			return []string{"Oui"}
		}
		return []string{"Non"}
	case FieldTypeMultiChoice:
		return normalizeMulti(value)
	default:
		if isNullish(value) {
			return []string{NotProvided}
		}
		return []string{stringifyValue(value)}
	}
}

// NormalizedEqual compares two raw values under the same field type.
func NormalizedEqual(fieldType FieldType, a, b any) bool {
	return stringSlicesEqual(NormalizeValue(fieldType, a), NormalizeValue(fieldType, b))
}

// NormalizedContains reports whether the normalized representation of value
// includes target.
func NormalizedContains(fieldType FieldType, value any, target string) bool {
	for _, entry := range NormalizeValue(fieldType, value) {
		if entry == target {
			return true
		}
	}
	return false
}

func normalizeMulti(value any) []string {
	switch typed := value.(type) {
	case nil:
		return []string{NotProvided}
	case []string:
		if len(typed) == 0 {
			return []string{NotProvided}
		}
		out := make([]string, len(typed))
		copy(out, typed)
		return out
	case []any:
		if len(typed) == 0 {
			return []string{NotProvided}
		}
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, stringifyValue(item))
		}
		return out
	case string:
		if typed == "" {
			return []string{NotProvided}
		}
		return []string{typed}
	default:
		return []string{stringifyValue(typed)}
	}
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return typed == "Oui" || typed == "true"
	default:
		return false
	}
}

func isNullish(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	return false
}

func stringifyValue(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		if typed {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
