package domain

import (
	"time"

	"github.com/google/uuid"
)

// FieldChange records one field mutation inside a history entry.
type FieldChange struct {
	Old any `json:"oldValue"`
	New any `json:"newValue"`
}

// HistoryEntry is one recorded diff attached to a person. Entries are stored
// oldest to newest on Person.History.
type HistoryEntry struct {
	Date time.Time              `json:"date"`
	User uuid.UUID              `json:"user"`
	Data map[string]FieldChange `json:"data"`

	// EffectiveDate backdates the entry when the change was recorded after
	// the fact (a retroactive exit from the active list). It is resolved
	// once at the data-model boundary, never sniffed from sibling fields
	// inside the engine.
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
}

// ReferenceDate returns the date the entry takes effect: the backdated
// effective date when present, the recording date otherwise.
func (e HistoryEntry) ReferenceDate() time.Time {
	if e.EffectiveDate != nil {
		return *e.EffectiveDate
	}
	return e.Date
}

// TeamChange is one event of a person's chronologically ascending team
// membership log. AssignedTeams is the complete set of team IDs the person
// belongs to from this event onward.
type TeamChange struct {
	Date          time.Time `json:"date"`
	AssignedTeams []string  `json:"assignedTeams"`
}

// Action is a dated task attached to a person, tagged with the teams it
// belongs to.
type Action struct {
	ID          uuid.UUID  `json:"id"`
	Teams       []string   `json:"teams"`
	DueAt       time.Time  `json:"dueAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ReferenceDate returns the completion date when the action was completed,
// the due date otherwise.
func (a Action) ReferenceDate() time.Time {
	if a.CompletedAt != nil {
		return *a.CompletedAt
	}
	return a.DueAt
}

// Person is a tracked entity as handed over by the persistence layer. The
// engine treats it as an immutable snapshot for the duration of one
// computation and never mutates it.
type Person struct {
	ID              uuid.UUID      `json:"id"`
	OrganizationID  uuid.UUID      `json:"organizationId"`
	FollowedSince   time.Time      `json:"followedSince"`
	OutOfActiveList bool           `json:"outOfActiveList"`
	Fields          map[string]any `json:"fields"`

	// History is the append-only change log, oldest to newest.
	History []HistoryEntry `json:"history"`

	// Interactions is an unordered bag of timestamps at which something
	// about the person changed (comments, actions, consultations, ...),
	// not necessarily field mutations.
	Interactions []time.Time `json:"interactions"`

	AssignedTeams []string     `json:"assignedTeams"`
	TeamChanges   []TeamChange `json:"teamChanges"`

	// TeamPeriods caches the extracted membership periods when the
	// persistence layer already computed them. When nil the classifier
	// derives them from TeamChanges.
	TeamPeriods PeriodSet `json:"teamPeriods,omitempty"`

	Actions []Action `json:"actions"`
}

// Clone returns a copy of the person whose Fields map can be mutated without
// touching the original. History, interactions and team data are shared:
// they are never modified by the engine.
func (p Person) Clone() Person {
	clone := p
	clone.Fields = make(map[string]any, len(p.Fields))
	for key, value := range p.Fields {
		clone.Fields[key] = value
	}
	return clone
}
