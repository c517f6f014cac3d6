package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mano-sesan/mano-stats/internal/domain"
	"github.com/mano-sesan/mano-stats/internal/middleware"
	"github.com/mano-sesan/mano-stats/internal/personloader"
	"github.com/mano-sesan/mano-stats/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func day(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func TestCohortStatsClassifiesPersons(t *testing.T) {
	orgID := uuid.New()
	orgRepo := &stubOrgRepo{org: domain.Organization{
		ID:    orgID,
		Name:  "Demo",
		Teams: []domain.Team{{ID: "street", Name: "Maraude"}},
	}}
	personRepo := &stubPersonRepo{persons: []domain.Person{
		{
			ID:            uuid.New(),
			FollowedSince: day(2023, 1, 1),
			Interactions:  []time.Time{day(2023, 3, 10)},
			TeamChanges: []domain.TeamChange{
				{Date: day(2023, 1, 1), AssignedTeams: []string{"street"}},
			},
		},
	}}

	service := NewService(orgRepo, personRepo, WithClock(func() time.Time {
		return day(2024, 1, 1)
	}))

	result, err := service.CohortStats(context.Background(), orgID, domain.CohortQuery{
		Period:      &domain.QueryPeriod{StartDate: day(2023, 3, 1), EndDate: day(2023, 3, 31)},
		Mode:        domain.CohortModeFollowed,
		TeamPeriods: map[string]domain.Period{"street": {}},
	})
	if err != nil {
		t.Fatalf("cohort stats returned error: %v", err)
	}

	if result.PersonTypeCounts.Followed != 1 {
		t.Errorf("expected one followed person, got %+v", result.PersonTypeCounts)
	}
	if len(result.PersonsForStats) != 1 {
		t.Errorf("expected one person in the cohort list, got %d", len(result.PersonsForStats))
	}
}

func TestCohortStatsRejectsInvertedPeriod(t *testing.T) {
	service := NewService(&stubOrgRepo{}, &stubPersonRepo{})

	_, err := service.CohortStats(context.Background(), uuid.New(), domain.CohortQuery{
		Period: &domain.QueryPeriod{StartDate: day(2023, 6, 1), EndDate: day(2023, 3, 1)},
	})
	if !errors.Is(err, domain.ErrMalformedQuery) {
		t.Errorf("expected malformed query error, got %v", err)
	}
}

func TestCohortStatsRejectsUnknownTeam(t *testing.T) {
	orgID := uuid.New()
	orgRepo := &stubOrgRepo{org: domain.Organization{ID: orgID, Teams: []domain.Team{{ID: "street"}}}}
	service := NewService(orgRepo, &stubPersonRepo{})

	_, err := service.CohortStats(context.Background(), orgID, domain.CohortQuery{
		TeamPeriods: map[string]domain.Period{"ghost": {}},
	})
	if !errors.Is(err, domain.ErrMalformedQuery) {
		t.Errorf("expected malformed query error, got %v", err)
	}
}

func TestTransitionStatsUsesOrganizationFieldCatalog(t *testing.T) {
	orgID := uuid.New()
	orgRepo := &stubOrgRepo{org: domain.Organization{
		ID: orgID,
		CustomFields: []domain.CustomField{
			{Name: "housing", Type: domain.FieldTypeEnum},
		},
	}}
	personRepo := &stubPersonRepo{persons: []domain.Person{
		{
			ID:     uuid.New(),
			Fields: map[string]any{"housing": "Logement"},
			History: []domain.HistoryEntry{
				{
					Date: day(2024, 2, 1),
					Data: map[string]domain.FieldChange{
						"housing": {Old: "Rue", New: "Logement"},
					},
				},
			},
		},
	}}

	reporter := &collectingReporter{}
	service := NewService(orgRepo, personRepo, WithReporter(reporter))

	result, err := service.TransitionStats(context.Background(), orgID, domain.TransitionRequest{
		StartDate: day(2024, 1, 1),
		EndDate:   day(2024, 4, 1),
		Field:     "housing",
		FromValue: "Rue",
		ToValue:   "Logement",
	})
	if err != nil {
		t.Fatalf("transition stats returned error: %v", err)
	}

	if result.CountStart != 1 || result.CountEnd != 1 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if len(reporter.messages) != 0 {
		t.Errorf("consistent history must not report anomalies, got %v", reporter.messages)
	}
}

func TestPersonUsesLoaderFromContext(t *testing.T) {
	orgID := uuid.New()
	personID := uuid.New()
	personRepo := &stubPersonRepo{persons: []domain.Person{
		{ID: personID, OrganizationID: orgID, FollowedSince: day(2023, 1, 1)},
	}}
	service := NewService(&stubOrgRepo{}, personRepo)

	loader := personloader.NewPersonLoader(personRepo)
	ctx := middleware.ContextWithPersonLoader(context.Background(), loader.Loader)

	person, err := service.Person(ctx, orgID, personID)
	if err != nil {
		t.Fatalf("person lookup returned error: %v", err)
	}
	if person.ID != personID {
		t.Errorf("expected person %s, got %s", personID, person.ID)
	}
	if personRepo.getByIDsCalls != 1 {
		t.Errorf("expected one batched fetch, got %d", personRepo.getByIDsCalls)
	}
	if personRepo.getByIDCalls != 0 {
		t.Errorf("loader path must not fetch persons one by one, got %d calls", personRepo.getByIDCalls)
	}
}

func TestPersonFallsBackToRepository(t *testing.T) {
	orgID := uuid.New()
	personID := uuid.New()
	personRepo := &stubPersonRepo{persons: []domain.Person{
		{ID: personID, OrganizationID: orgID},
	}}
	service := NewService(&stubOrgRepo{}, personRepo)

	person, err := service.Person(context.Background(), orgID, personID)
	if err != nil {
		t.Fatalf("person lookup returned error: %v", err)
	}
	if person.ID != personID {
		t.Errorf("expected person %s, got %s", personID, person.ID)
	}
	if personRepo.getByIDCalls != 1 {
		t.Errorf("expected one direct fetch, got %d", personRepo.getByIDCalls)
	}
}

func TestPersonRejectsWrongOrganization(t *testing.T) {
	personID := uuid.New()
	personRepo := &stubPersonRepo{persons: []domain.Person{
		{ID: personID, OrganizationID: uuid.New()},
	}}
	service := NewService(&stubOrgRepo{}, personRepo)

	_, err := service.Person(context.Background(), uuid.New(), personID)
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected not-found error for foreign organization, got %v", err)
	}
}

type collectingReporter struct {
	messages []string
}

func (r *collectingReporter) Report(message string, context map[string]any) {
	r.messages = append(r.messages, message)
}

type stubOrgRepo struct {
	org domain.Organization
}

func (s *stubOrgRepo) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	return org, nil
}

func (s *stubOrgRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	return s.org, nil
}

func (s *stubOrgRepo) GetByName(ctx context.Context, name string) (domain.Organization, error) {
	return s.org, nil
}

func (s *stubOrgRepo) List(ctx context.Context) ([]domain.Organization, error) {
	return []domain.Organization{s.org}, nil
}

func (s *stubOrgRepo) Update(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	return org, nil
}

func (s *stubOrgRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubPersonRepo struct {
	persons       []domain.Person
	getByIDCalls  int
	getByIDsCalls int
}

func (s *stubPersonRepo) Create(ctx context.Context, person domain.Person) (domain.Person, error) {
	s.persons = append(s.persons, person)
	return person, nil
}

func (s *stubPersonRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Person, error) {
	s.getByIDCalls++
	for _, person := range s.persons {
		if person.ID == id {
			return person, nil
		}
	}
	return domain.Person{}, errors.New("not found")
}

func (s *stubPersonRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Person, error) {
	s.getByIDsCalls++
	persons := []domain.Person{}
	for _, id := range ids {
		for _, person := range s.persons {
			if person.ID == id {
				persons = append(persons, person)
				break
			}
		}
	}
	return persons, nil
}

func (s *stubPersonRepo) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]domain.Person, error) {
	return s.persons, nil
}

func (s *stubPersonRepo) Count(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	return int64(len(s.persons)), nil
}

func (s *stubPersonRepo) AddInteractions(ctx context.Context, personID uuid.UUID, dates []time.Time) error {
	return nil
}

func (s *stubPersonRepo) AddTeamChanges(ctx context.Context, personID uuid.UUID, changes []domain.TeamChange) error {
	return nil
}

func (s *stubPersonRepo) AddActions(ctx context.Context, personID uuid.UUID, actions []domain.Action) error {
	return nil
}

var _ repository.OrganizationRepository = (*stubOrgRepo)(nil)
var _ repository.PersonRepository = (*stubPersonRepo)(nil)
