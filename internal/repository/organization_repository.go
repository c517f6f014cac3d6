package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mano-sesan/mano-stats/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// organizationRepository implements OrganizationRepository interface
type organizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepository{pool: pool}
}

// Create creates a new organization
func (r *organizationRepository) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	teamsJSON, fieldsJSON, err := encodeOrgPayload(org)
	if err != nil {
		return domain.Organization{}, err
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO organizations (name, teams, custom_fields)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		org.Name, teamsJSON, fieldsJSON,
	)
	if err := row.Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return domain.Organization{}, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

// GetByID retrieves an organization by ID
func (r *organizationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, name, teams, custom_fields, created_at, updated_at
		 FROM organizations WHERE id = $1`,
		id,
	)
	org, err := scanOrganization(row)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetByName retrieves an organization by name
func (r *organizationRepository) GetByName(ctx context.Context, name string) (domain.Organization, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, name, teams, custom_fields, created_at, updated_at
		 FROM organizations WHERE name = $1`,
		name,
	)
	org, err := scanOrganization(row)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("failed to get organization by name: %w", err)
	}
	return org, nil
}

// List retrieves all organizations
func (r *organizationRepository) List(ctx context.Context) ([]domain.Organization, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, name, teams, custom_fields, created_at, updated_at
		 FROM organizations ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	organizations := []domain.Organization{}
	for rows.Next() {
		org, scanErr := scanOrganization(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", scanErr)
		}
		organizations = append(organizations, org)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate organizations: %w", rowsErr)
	}
	return organizations, nil
}

// Update updates an organization
func (r *organizationRepository) Update(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	teamsJSON, fieldsJSON, err := encodeOrgPayload(org)
	if err != nil {
		return domain.Organization{}, err
	}

	row := r.pool.QueryRow(
		ctx,
		`UPDATE organizations
		 SET name = $2, teams = $3, custom_fields = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		org.ID, org.Name, teamsJSON, fieldsJSON,
	)
	if err := row.Scan(&org.CreatedAt, &org.UpdatedAt); err != nil {
		return domain.Organization{}, fmt.Errorf("failed to update organization: %w", err)
	}
	return org, nil
}

// Delete deletes an organization
func (r *organizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (domain.Organization, error) {
	var (
		org       domain.Organization
		teamsRaw  []byte
		fieldsRaw []byte
	)
	if err := row.Scan(&org.ID, &org.Name, &teamsRaw, &fieldsRaw, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return domain.Organization{}, err
	}
	if len(teamsRaw) > 0 {
		if err := json.Unmarshal(teamsRaw, &org.Teams); err != nil {
			return domain.Organization{}, fmt.Errorf("failed to decode teams: %w", err)
		}
	}
	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &org.CustomFields); err != nil {
			return domain.Organization{}, fmt.Errorf("failed to decode custom fields: %w", err)
		}
	}
	return org, nil
}

func encodeOrgPayload(org domain.Organization) ([]byte, []byte, error) {
	teamsJSON, err := json.Marshal(org.Teams)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode teams: %w", err)
	}
	fieldsJSON, err := json.Marshal(org.CustomFields)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode custom fields: %w", err)
	}
	return teamsJSON, fieldsJSON, nil
}
