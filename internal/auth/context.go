package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type contextKey string

const (
	organizationIDKey contextKey = "organizationID"
	teamIDsKey        contextKey = "teamIDs"
)

// ContextWithOrganizationID returns a new context that carries the authenticated organization scope.
func ContextWithOrganizationID(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, organizationIDKey, id)
}

// OrganizationIDFromContext retrieves the authenticated organization scope from the context, if any.
func OrganizationIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	value := ctx.Value(organizationIDKey)
	if value == nil {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil, false
	}
	if id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// ContextWithTeamIDs returns a new context restricted to the given teams.
func ContextWithTeamIDs(ctx context.Context, teamIDs []string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(teamIDs) == 0 {
		return ctx
	}
	return context.WithValue(ctx, teamIDsKey, append([]string(nil), teamIDs...))
}

// TeamScopeFromContext retrieves the authenticated team restriction, if any.
func TeamScopeFromContext(ctx context.Context) ([]string, bool) {
	if ctx == nil {
		return nil, false
	}
	value := ctx.Value(teamIDsKey)
	if value == nil {
		return nil, false
	}
	teams, ok := value.([]string)
	if !ok || len(teams) == 0 {
		return nil, false
	}
	return teams, true
}

// EnforceOrganizationScope ensures the provided organization matches the authenticated scope when present.
func EnforceOrganizationScope(ctx context.Context, organizationID uuid.UUID) error {
	if organizationID == uuid.Nil {
		return fmt.Errorf("organizationId is required")
	}
	scopedID, ok := OrganizationIDFromContext(ctx)
	if !ok {
		return nil
	}
	if scopedID != organizationID {
		return fmt.Errorf("organizationId %s does not match authenticated scope", organizationID)
	}
	return nil
}
