package domain

import (
	"time"

	"github.com/google/uuid"
)

// Team is one reporting team inside an organization.
type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NightSession bool   `json:"nightSession"`
}

// CustomField is one organization-defined person field.
type CustomField struct {
	Name    string    `json:"name"`
	Label   string    `json:"label"`
	Type    FieldType `json:"type"`
	Options []string  `json:"options,omitempty"`
}

// Organization represents a tenant/organization in the system. It owns the
// teams and the person field catalog.
type Organization struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Teams        []Team        `json:"teams"`
	CustomFields []CustomField `json:"customFields"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewOrganization creates a new organization with immutable pattern
func NewOrganization(name string) Organization {
	now := time.Now()
	return Organization{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithTeams returns a new organization with the given teams
func (o Organization) WithTeams(teams []Team) Organization {
	updated := o
	updated.Teams = teams
	updated.UpdatedAt = time.Now()
	return updated
}

// WithCustomFields returns a new organization with the given field catalog
func (o Organization) WithCustomFields(fields []CustomField) Organization {
	updated := o
	updated.CustomFields = fields
	updated.UpdatedAt = time.Now()
	return updated
}

// builtinFieldTypes covers the person fields every organization has,
// independent of its custom field catalog.
var builtinFieldTypes = map[string]FieldType{
	"name":               FieldTypeText,
	"otherNames":         FieldTypeText,
	"gender":             FieldTypeEnum,
	"birthdate":          FieldTypeDate,
	"followedSince":      FieldTypeDate,
	"description":        FieldTypeTextarea,
	"alertness":          FieldTypeBoolean,
	"phone":              FieldTypeText,
	"email":              FieldTypeText,
	FieldOutOfActiveList: FieldTypeBoolean,
}

// FieldTypes returns the full field catalog: built-in person fields plus
// the organization's custom fields. Fields deleted from the catalog are
// absent from the map, which makes the reconstructor skip their history.
func (o Organization) FieldTypes() map[string]FieldType {
	types := make(map[string]FieldType, len(builtinFieldTypes)+len(o.CustomFields))
	for name, fieldType := range builtinFieldTypes {
		types[name] = fieldType
	}
	for _, field := range o.CustomFields {
		types[field.Name] = field.Type
	}
	return types
}

// TeamIDs returns the organization's team identifiers in declaration order.
func (o Organization) TeamIDs() []string {
	ids := make([]string, 0, len(o.Teams))
	for _, team := range o.Teams {
		ids = append(ids, team.ID)
	}
	return ids
}
