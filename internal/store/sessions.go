package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CreateSessionParams struct {
	UserID    uuid.UUID
	TokenHash string
	CsrfToken string
	ExpiresAt time.Time
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `
		INSERT INTO sessions (user_id, token_hash, csrf_token, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, arg.UserID, arg.TokenHash, arg.CsrfToken, arg.ExpiresAt).Scan(&id)
	return id, err
}

// GetSessionPrincipalByTokenHash only returns sessions that are neither
// revoked nor expired and whose user is active.
func (q *Queries) GetSessionPrincipalByTokenHash(ctx context.Context, tokenHash string) (SessionPrincipal, error) {
	var p SessionPrincipal
	err := q.db.QueryRow(ctx, `
		SELECT s.id, u.id, s.csrf_token, s.expires_at, u.email, u.full_name, u.role,
			o.id, o.slug, o.name
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		LEFT JOIN organizations o ON o.id = u.organization_id
		WHERE s.token_hash = $1
			AND s.revoked_at IS NULL
			AND s.expires_at > NOW()
			AND u.is_active
	`, tokenHash).Scan(
		&p.SessionID,
		&p.UserID,
		&p.CsrfToken,
		&p.ExpiresAt,
		&p.Email,
		&p.FullName,
		&p.Role,
		&p.OrganizationID,
		&p.OrganizationSlug,
		&p.OrganizationName,
	)
	return p, err
}

func (q *Queries) TouchSession(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE sessions SET last_seen_at = NOW() WHERE id = $1`, id)
	return err
}

func (q *Queries) RevokeSessionByID(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) RevokeSessionByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	tag, err := q.db.Exec(ctx, `UPDATE sessions SET revoked_at = NOW() WHERE token_hash = $1 AND revoked_at IS NULL`, tokenHash)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
