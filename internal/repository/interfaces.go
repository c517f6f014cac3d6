package repository

import (
	"context"
	"time"

	"github.com/mano-sesan/mano-stats/internal/domain"

	"github.com/google/uuid"
)

// OrganizationRepository defines the interface for organization operations
type OrganizationRepository interface {
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error)
	GetByName(ctx context.Context, name string) (domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
	Update(ctx context.Context, org domain.Organization) (domain.Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PersonRepository defines the interface for person aggregate operations.
// Loaded persons carry their full history, team change log, interactions
// and actions so the stats engine never goes back to the database.
type PersonRepository interface {
	Create(ctx context.Context, person domain.Person) (domain.Person, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Person, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Person, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]domain.Person, error)
	Count(ctx context.Context, organizationID uuid.UUID) (int64, error)
	AddInteractions(ctx context.Context, personID uuid.UUID, dates []time.Time) error
	AddTeamChanges(ctx context.Context, personID uuid.UUID, changes []domain.TeamChange) error
	AddActions(ctx context.Context, personID uuid.UUID, actions []domain.Action) error
}

// IngestionLogRepository stores ingestion errors for observability.
type IngestionLogRepository interface {
	Record(ctx context.Context, entry domain.IngestionLogEntry) error
	List(ctx context.Context, organizationID uuid.UUID, fileName string, limit int, offset int) ([]domain.IngestionLogEntry, error)
}
