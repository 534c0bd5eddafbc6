package store

import (
	"context"

	"github.com/google/uuid"
)

func (q *Queries) GetOrganizationByID(ctx context.Context, id uuid.UUID) (Organization, error) {
	var o Organization
	err := q.db.QueryRow(ctx, `
		SELECT id, slug, name, is_active, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, id).Scan(&o.ID, &o.Slug, &o.Name, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

type UpsertOrganizationParams struct {
	Slug string
	Name string
}

func (q *Queries) UpsertOrganization(ctx context.Context, arg UpsertOrganizationParams) (Organization, error) {
	var o Organization
	err := q.db.QueryRow(ctx, `
		INSERT INTO organizations (slug, name)
		VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
		RETURNING id, slug, name, is_active, created_at, updated_at
	`, arg.Slug, arg.Name).Scan(&o.ID, &o.Slug, &o.Name, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}
