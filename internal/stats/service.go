package stats

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
	"github.com/jackc/pgx/v5"

	"github.com/mano-sesan/mano-stats/internal/domain"
	"github.com/mano-sesan/mano-stats/internal/middleware"
	"github.com/mano-sesan/mano-stats/internal/repository"
)

// Service runs cohort and transition statistics on top of the person
// repository. The engine itself is pure; the service owns loading the data,
// validating requests at the boundary and wiring the anomaly reporter.
type Service struct {
	organizations repository.OrganizationRepository
	persons       repository.PersonRepository

	reporter domain.Reporter
	now      func() time.Time
}

type Option func(*Service)

// WithReporter routes history anomalies to the given sink.
func WithReporter(reporter domain.Reporter) Option {
	return func(s *Service) {
		if reporter != nil {
			s.reporter = reporter
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(
	organizations repository.OrganizationRepository,
	persons repository.PersonRepository,
	opts ...Option,
) *Service {
	service := &Service{
		organizations: organizations,
		persons:       persons,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	if service.now == nil {
		service.now = time.Now
	}
	return service
}

// CohortStats classifies every person of the organization against the query.
func (s *Service) CohortStats(ctx context.Context, organizationID uuid.UUID, query domain.CohortQuery) (domain.CohortResult, error) {
	if err := validateCohortQuery(query); err != nil {
		return domain.CohortResult{}, err
	}
	org, err := s.organizations.GetByID(ctx, organizationID)
	if err != nil {
		return domain.CohortResult{}, fmt.Errorf("validate organization: %w", err)
	}
	for team := range query.TeamPeriods {
		if !knownTeam(org, team) {
			return domain.CohortResult{}, fmt.Errorf("unknown team %q: %w", team, domain.ErrMalformedQuery)
		}
	}
	persons, err := s.persons.ListByOrganization(ctx, organizationID)
	if err != nil {
		return domain.CohortResult{}, fmt.Errorf("load persons: %w", err)
	}

	result := domain.Classify(query, persons, s.now(), s.reporter)
	log.Printf("[stats] cohort computed for organization %s (persons=%d mode=%s)", organizationID, len(persons), query.Mode)
	return result, nil
}

// Person loads one person scoped to the organization. When the middleware
// installed a request-scoped batching loader, lookups go through it so
// concurrent single-person requests coalesce into one repository call.
func (s *Service) Person(ctx context.Context, organizationID, personID uuid.UUID) (domain.Person, error) {
	person, err := s.loadPerson(ctx, personID)
	if err != nil {
		return domain.Person{}, err
	}
	if person.OrganizationID != organizationID {
		return domain.Person{}, fmt.Errorf("person %s not in organization %s: %w", personID, organizationID, pgx.ErrNoRows)
	}
	return person, nil
}

func (s *Service) loadPerson(ctx context.Context, personID uuid.UUID) (domain.Person, error) {
	if loader := middleware.PersonLoaderFromContext(ctx); loader != nil {
		value, err := loader.Load(ctx, dataloader.StringKey(personID.String()))()
		if err != nil {
			return domain.Person{}, fmt.Errorf("load person %s: %w", personID, err)
		}
		person, ok := value.(domain.Person)
		if !ok {
			return domain.Person{}, fmt.Errorf("person %s not found: %w", personID, pgx.ErrNoRows)
		}
		return person, nil
	}
	return s.persons.GetByID(ctx, personID)
}

// TransitionStats computes before/after counts for one field transition.
func (s *Service) TransitionStats(ctx context.Context, organizationID uuid.UUID, req domain.TransitionRequest) (domain.TransitionResult, error) {
	if err := validateTransitionRequest(req); err != nil {
		return domain.TransitionResult{}, err
	}
	org, err := s.organizations.GetByID(ctx, organizationID)
	if err != nil {
		return domain.TransitionResult{}, fmt.Errorf("validate organization: %w", err)
	}
	persons, err := s.persons.ListByOrganization(ctx, organizationID)
	if err != nil {
		return domain.TransitionResult{}, fmt.Errorf("load persons: %w", err)
	}

	result, err := domain.ComputeTransition(req, persons, org.FieldTypes(), s.reporter)
	if err != nil {
		return domain.TransitionResult{}, err
	}
	log.Printf("[stats] transition computed for organization %s (field=%s persons=%d)", organizationID, req.Field, len(persons))
	return result, nil
}

func validateCohortQuery(query domain.CohortQuery) error {
	if query.Period == nil {
		return nil
	}
	if query.Period.StartDate.After(query.Period.EndDate) {
		return fmt.Errorf("period start %s is after end %s: %w",
			query.Period.StartDate.Format(time.DateOnly),
			query.Period.EndDate.Format(time.DateOnly),
			domain.ErrMalformedQuery)
	}
	for team, period := range query.TeamPeriods {
		if period.Start.IsZero() && period.End.IsZero() {
			continue
		}
		if !period.Start.Before(period.End) {
			return fmt.Errorf("period for team %q is empty: %w", team, domain.ErrMalformedQuery)
		}
	}
	return nil
}

func validateTransitionRequest(req domain.TransitionRequest) error {
	if req.Field == "" {
		return fmt.Errorf("field name is required: %w", domain.ErrMalformedQuery)
	}
	if req.StartDate.After(req.EndDate) {
		return fmt.Errorf("start date %s is after end date %s: %w",
			req.StartDate.Format(time.DateOnly),
			req.EndDate.Format(time.DateOnly),
			domain.ErrMalformedQuery)
	}
	return nil
}

func knownTeam(org domain.Organization, team string) bool {
	if team == domain.AllTeamsKey {
		return true
	}
	for _, known := range org.Teams {
		if known.ID == team {
			return true
		}
	}
	return false
}
