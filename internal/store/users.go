package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, organization_id, document_id, full_name, email, password_hash, role, points, is_active, first_access, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.OrganizationID,
		&u.DocumentID,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Points,
		&u.IsActive,
		&u.FirstAccess,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (q *Queries) GetUserByDocumentID(ctx context.Context, documentID string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE document_id = $1`, documentID))
}

func (q *Queries) ListUsersByEmail(ctx context.Context, email string) ([]User, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
		ORDER BY created_at
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type CreateUserParams struct {
	OrganizationID *uuid.UUID
	DocumentID     *string
	FullName       string
	Email          *string
	PasswordHash   string
	Role           string
	Points         int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, `
		INSERT INTO users (organization_id, document_id, full_name, email, password_hash, role, points, is_active, first_access)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, TRUE)
		RETURNING `+userColumns,
		arg.OrganizationID,
		arg.DocumentID,
		arg.FullName,
		arg.Email,
		arg.PasswordHash,
		arg.Role,
		arg.Points,
	))
}

type CreditUserPointsParams struct {
	ID       uuid.UUID
	Points   int64
	FullName *string
	Email    *string
}

// CreditUserPoints increments the balance; nil FullName or Email keep the
// stored values.
func (q *Queries) CreditUserPoints(ctx context.Context, arg CreditUserPointsParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, `
		UPDATE users
		SET points = points + $2,
			full_name = COALESCE($3, full_name),
			email = COALESCE($4, email),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		arg.ID,
		arg.Points,
		arg.FullName,
		arg.Email,
	))
}

type UpsertAdminParams struct {
	OrganizationID uuid.UUID
	Email          string
	FullName       string
	PasswordHash   string
}

func (q *Queries) UpsertAdmin(ctx context.Context, arg UpsertAdminParams) (User, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `
		SELECT id FROM users WHERE organization_id = $1 AND LOWER(email) = LOWER($2) AND role = 'ADMIN'
	`, arg.OrganizationID, arg.Email).Scan(&id)
	switch {
	case err == nil:
		return scanUser(q.db.QueryRow(ctx, `
			UPDATE users SET full_name = $2, password_hash = $3, is_active = TRUE, updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns, id, arg.FullName, arg.PasswordHash))
	case errors.Is(err, pgx.ErrNoRows):
		orgID := arg.OrganizationID
		email := arg.Email
		return q.CreateUser(ctx, CreateUserParams{
			OrganizationID: &orgID,
			FullName:       arg.FullName,
			Email:          &email,
			PasswordHash:   arg.PasswordHash,
			Role:           "ADMIN",
		})
	default:
		return User{}, err
	}
}

func (q *Queries) UpdateUserPasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	return err
}
