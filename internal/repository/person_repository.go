package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mano-sesan/mano-stats/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type personRepository struct {
	pool *pgxpool.Pool
}

// NewPersonRepository wires a repository backed by pgxpool.
func NewPersonRepository(pool *pgxpool.Pool) PersonRepository {
	return &personRepository{pool: pool}
}

func (r *personRepository) Create(ctx context.Context, person domain.Person) (domain.Person, error) {
	fieldsJSON, err := json.Marshal(person.Fields)
	if err != nil {
		return domain.Person{}, fmt.Errorf("failed to encode person fields: %w", err)
	}
	teamsJSON, err := json.Marshal(person.AssignedTeams)
	if err != nil {
		return domain.Person{}, fmt.Errorf("failed to encode assigned teams: %w", err)
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO persons (organization_id, followed_since, out_of_active_list, fields, assigned_teams)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		person.OrganizationID,
		person.FollowedSince,
		person.OutOfActiveList,
		fieldsJSON,
		teamsJSON,
	)
	if err := row.Scan(&person.ID); err != nil {
		return domain.Person{}, fmt.Errorf("failed to create person: %w", err)
	}
	return person, nil
}

func (r *personRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Person, error) {
	persons, err := r.GetByIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return domain.Person{}, err
	}
	if len(persons) == 0 {
		return domain.Person{}, fmt.Errorf("person %s not found: %w", id, pgx.ErrNoRows)
	}
	return persons[0], nil
}

func (r *personRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Person, error) {
	if len(ids) == 0 {
		return []domain.Person{}, nil
	}
	return r.load(ctx, `WHERE p.id = ANY($1)`, ids)
}

func (r *personRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]domain.Person, error) {
	return r.load(ctx, `WHERE p.organization_id = $1`, organizationID)
}

func (r *personRepository) Count(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM persons WHERE organization_id = $1`, organizationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count persons: %w", err)
	}
	return count, nil
}

func (r *personRepository) load(ctx context.Context, where string, arg any) ([]domain.Person, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT p.id, p.organization_id, p.followed_since, p.out_of_active_list, p.fields, p.assigned_teams
		 FROM persons p `+where+` ORDER BY p.followed_since`,
		arg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}
	defer rows.Close()

	persons := []domain.Person{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			person    domain.Person
			fieldsRaw []byte
			teamsRaw  []byte
		)
		if scanErr := rows.Scan(
			&person.ID,
			&person.OrganizationID,
			&person.FollowedSince,
			&person.OutOfActiveList,
			&fieldsRaw,
			&teamsRaw,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan person: %w", scanErr)
		}
		if len(fieldsRaw) > 0 {
			if err := json.Unmarshal(fieldsRaw, &person.Fields); err != nil {
				return nil, fmt.Errorf("failed to decode fields for person %s: %w", person.ID, err)
			}
		}
		if person.Fields == nil {
			person.Fields = map[string]any{}
		}
		if len(teamsRaw) > 0 {
			if err := json.Unmarshal(teamsRaw, &person.AssignedTeams); err != nil {
				return nil, fmt.Errorf("failed to decode assigned teams for person %s: %w", person.ID, err)
			}
		}
		index[person.ID] = len(persons)
		persons = append(persons, person)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate persons: %w", rowsErr)
	}
	if len(persons) == 0 {
		return persons, nil
	}

	personIDs := make([]uuid.UUID, 0, len(persons))
	for _, person := range persons {
		personIDs = append(personIDs, person.ID)
	}
	if err := r.loadHistory(ctx, personIDs, persons, index); err != nil {
		return nil, err
	}
	if err := r.loadTeamChanges(ctx, personIDs, persons, index); err != nil {
		return nil, err
	}
	if err := r.loadInteractions(ctx, personIDs, persons, index); err != nil {
		return nil, err
	}
	if err := r.loadActions(ctx, personIDs, persons, index); err != nil {
		return nil, err
	}
	return persons, nil
}

func (r *personRepository) loadHistory(ctx context.Context, ids []uuid.UUID, persons []domain.Person, index map[uuid.UUID]int) error {
	rows, err := r.pool.Query(
		ctx,
		`SELECT person_id, date, user_id, data, effective_date
		 FROM person_history
		 WHERE person_id = ANY($1)
		 ORDER BY date`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("failed to query person history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			personID  uuid.UUID
			entry     domain.HistoryEntry
			dataRaw   []byte
			effective pgtype.Timestamptz
		)
		if scanErr := rows.Scan(&personID, &entry.Date, &entry.User, &dataRaw, &effective); scanErr != nil {
			return fmt.Errorf("failed to scan history entry: %w", scanErr)
		}
		if err := json.Unmarshal(dataRaw, &entry.Data); err != nil {
			return fmt.Errorf("failed to decode history data for person %s: %w", personID, err)
		}
		if effective.Valid {
			date := effective.Time
			entry.EffectiveDate = &date
		}
		resolveEffectiveDate(&entry)
		if at, ok := index[personID]; ok {
			persons[at].History = append(persons[at].History, entry)
		}
	}
	return rows.Err()
}

// resolveEffectiveDate lifts the companion backdating field out of the diff
// payload into the typed override. Legacy rows carry the indicated exit
// date inside data rather than in the effective_date column.
func resolveEffectiveDate(entry *domain.HistoryEntry) {
	if entry.EffectiveDate != nil {
		return
	}
	change, ok := entry.Data[domain.FieldOutOfActiveListDate]
	if !ok {
		return
	}
	raw, ok := change.New.(string)
	if !ok || raw == "" {
		return
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if date, err := time.Parse(layout, raw); err == nil {
			entry.EffectiveDate = &date
			return
		}
	}
}

func (r *personRepository) loadTeamChanges(ctx context.Context, ids []uuid.UUID, persons []domain.Person, index map[uuid.UUID]int) error {
	rows, err := r.pool.Query(
		ctx,
		`SELECT person_id, date, assigned_teams
		 FROM person_team_changes
		 WHERE person_id = ANY($1)
		 ORDER BY date`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("failed to query team changes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			personID uuid.UUID
			change   domain.TeamChange
			teamsRaw []byte
		)
		if scanErr := rows.Scan(&personID, &change.Date, &teamsRaw); scanErr != nil {
			return fmt.Errorf("failed to scan team change: %w", scanErr)
		}
		if err := json.Unmarshal(teamsRaw, &change.AssignedTeams); err != nil {
			return fmt.Errorf("failed to decode team change for person %s: %w", personID, err)
		}
		if at, ok := index[personID]; ok {
			persons[at].TeamChanges = append(persons[at].TeamChanges, change)
		}
	}
	return rows.Err()
}

func (r *personRepository) loadInteractions(ctx context.Context, ids []uuid.UUID, persons []domain.Person, index map[uuid.UUID]int) error {
	rows, err := r.pool.Query(
		ctx,
		`SELECT person_id, date FROM person_interactions WHERE person_id = ANY($1) ORDER BY date`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			personID uuid.UUID
			date     time.Time
		)
		if scanErr := rows.Scan(&personID, &date); scanErr != nil {
			return fmt.Errorf("failed to scan interaction: %w", scanErr)
		}
		if at, ok := index[personID]; ok {
			persons[at].Interactions = append(persons[at].Interactions, date)
		}
	}
	return rows.Err()
}

func (r *personRepository) loadActions(ctx context.Context, ids []uuid.UUID, persons []domain.Person, index map[uuid.UUID]int) error {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, person_id, teams, due_at, completed_at
		 FROM actions
		 WHERE person_id = ANY($1)
		 ORDER BY due_at`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			personID  uuid.UUID
			action    domain.Action
			teamsRaw  []byte
			completed pgtype.Timestamptz
		)
		if scanErr := rows.Scan(&action.ID, &personID, &teamsRaw, &action.DueAt, &completed); scanErr != nil {
			return fmt.Errorf("failed to scan action: %w", scanErr)
		}
		if len(teamsRaw) > 0 {
			if err := json.Unmarshal(teamsRaw, &action.Teams); err != nil {
				return fmt.Errorf("failed to decode action teams for person %s: %w", personID, err)
			}
		}
		if completed.Valid {
			date := completed.Time
			action.CompletedAt = &date
		}
		if at, ok := index[personID]; ok {
			persons[at].Actions = append(persons[at].Actions, action)
		}
	}
	return rows.Err()
}

func (r *personRepository) AddInteractions(ctx context.Context, personID uuid.UUID, dates []time.Time) error {
	for _, date := range dates {
		if _, err := r.pool.Exec(
			ctx,
			`INSERT INTO person_interactions (person_id, date) VALUES ($1, $2)`,
			personID, date,
		); err != nil {
			return fmt.Errorf("failed to record interaction: %w", err)
		}
	}
	return nil
}

func (r *personRepository) AddTeamChanges(ctx context.Context, personID uuid.UUID, changes []domain.TeamChange) error {
	for _, change := range changes {
		teamsJSON, err := json.Marshal(change.AssignedTeams)
		if err != nil {
			return fmt.Errorf("failed to encode team change: %w", err)
		}
		if _, err := r.pool.Exec(
			ctx,
			`INSERT INTO person_team_changes (person_id, date, assigned_teams) VALUES ($1, $2, $3)`,
			personID, change.Date, teamsJSON,
		); err != nil {
			return fmt.Errorf("failed to record team change: %w", err)
		}
	}
	return nil
}

func (r *personRepository) AddActions(ctx context.Context, personID uuid.UUID, actions []domain.Action) error {
	for _, action := range actions {
		teamsJSON, err := json.Marshal(action.Teams)
		if err != nil {
			return fmt.Errorf("failed to encode action teams: %w", err)
		}
		if _, err := r.pool.Exec(
			ctx,
			`INSERT INTO actions (person_id, teams, due_at, completed_at) VALUES ($1, $2, $3, $4)`,
			personID, teamsJSON, action.DueAt, action.CompletedAt,
		); err != nil {
			return fmt.Errorf("failed to record action: %w", err)
		}
	}
	return nil
}
