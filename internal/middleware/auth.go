package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/auth"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/httpx"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/store"
)

type SessionStore interface {
	GetSessionPrincipalByTokenHash(ctx context.Context, tokenHash string) (store.SessionPrincipal, error)
	TouchSession(ctx context.Context, id uuid.UUID) error
}

type AuthMiddleware struct {
	Sessions   SessionStore
	CookieName string
}

func (m AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.CookieName)
		if err != nil || cookie.Value == "" {
			httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
			return
		}

		principal, err := m.Sessions.GetSessionPrincipalByTokenHash(r.Context(), auth.HashToken(cookie.Value))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Session is invalid", nil)
				return
			}
			httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load session", nil)
			return
		}

		_ = m.Sessions.TouchSession(r.Context(), principal.SessionID)

		actor := Actor{
			SessionID: principal.SessionID.String(),
			UserID:    principal.UserID.String(),
			Role:      principal.Role,
			FullName:  principal.FullName,
			CSRFToken: principal.CsrfToken,
			ExpiresAt: principal.ExpiresAt,
		}
		if principal.Email != nil {
			actor.Email = *principal.Email
		}
		if principal.OrganizationID != nil {
			actor.OrganizationID = principal.OrganizationID.String()
		}
		if principal.OrganizationSlug != nil {
			actor.OrganizationSlug = *principal.OrganizationSlug
		}
		if principal.OrganizationName != nil {
			actor.OrganizationName = *principal.OrganizationName
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}
