package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/audit"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/auth"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/config"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/httpx"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/middleware"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/points"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/store"
)

type PointsImporter interface {
	Import(ctx context.Context, up points.Upload) (points.Outcome, error)
}

type OrganizationStore interface {
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (store.Organization, error)
}

type Server struct {
	Config   config.Config
	Q        *store.Queries
	Audit    *audit.Logger
	Logger   *slog.Logger
	Importer PointsImporter
	Jobs     points.Ledger
	Orgs     OrganizationStore
}

func NewServer(cfg config.Config, q *store.Queries, auditLogger *audit.Logger, importer PointsImporter, jobs points.Ledger, logger *slog.Logger) *Server {
	return &Server{
		Config:   cfg,
		Q:        q,
		Audit:    auditLogger,
		Logger:   logger,
		Importer: importer,
		Jobs:     jobs,
		Orgs:     q,
	}
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) PostAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_body", "Malformed JSON body", nil)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", "email and password are required", nil)
		return
	}

	users, err := s.Q.ListUsersByEmail(r.Context(), req.Email)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load user", nil)
		return
	}

	var matched *store.User
	for i := range users {
		user := users[i]
		if !user.IsActive {
			continue
		}
		ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
		if err != nil {
			s.Logger.Warn("password verification failed", "user_id", user.ID, "error", err)
			continue
		}
		if ok {
			matched = &user
			break
		}
	}

	if matched == nil {
		httpx.WriteError(w, r, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
		return
	}

	if auth.NeedsRehash(matched.PasswordHash) {
		if hash, err := auth.HashPassword(req.Password); err == nil {
			if err := s.Q.UpdateUserPasswordHash(r.Context(), matched.ID, hash); err != nil {
				s.Logger.Warn("rehash password", "user_id", matched.ID, "error", err)
			}
		}
	}

	if old, err := r.Cookie(s.Config.SessionCookieName); err == nil && old.Value != "" {
		_, _ = s.Q.RevokeSessionByTokenHash(r.Context(), auth.HashToken(old.Value))
	}

	sessionToken, err := auth.GenerateToken()
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to create session", nil)
		return
	}
	csrfToken, err := auth.GenerateToken()
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to create CSRF token", nil)
		return
	}

	expiresAt := time.Now().Add(s.Config.SessionTTL)
	if _, err := s.Q.CreateSession(r.Context(), store.CreateSessionParams{
		UserID:    matched.ID,
		TokenHash: auth.HashToken(sessionToken),
		CsrfToken: csrfToken,
		ExpiresAt: expiresAt,
	}); err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to save session", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.Config.SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Config.SecureCookies,
		Expires:  expiresAt,
	})

	userID := matched.ID
	_ = s.Audit.Log(r.Context(), audit.Entry{
		OrganizationID: matched.OrganizationID,
		UserID:         &userID,
		Action:         audit.ActionLogin,
		EntityType:     "session",
		RequestID:      httpx.RequestIDFromContext(r.Context()),
	})

	resp := authSessionResponse{User: mapUser(*matched), FirstAccess: matched.FirstAccess}
	if matched.OrganizationID != nil {
		if org, err := s.Q.GetOrganizationByID(r.Context(), *matched.OrganizationID); err == nil {
			resp.Organization = &organizationResponse{ID: org.ID, Slug: org.Slug, Name: org.Name}
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) PostAuthLogout(w http.ResponseWriter, r *http.Request) {
	actor, userID, ok := requireActor(w, r)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(actor.SessionID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Invalid session", nil)
		return
	}

	if _, err := s.Q.RevokeSessionByID(r.Context(), sessionID); err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to revoke session", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.Config.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Config.SecureCookies,
		MaxAge:   -1,
	})

	_ = s.Audit.Log(r.Context(), audit.Entry{
		OrganizationID: actorOrganizationID(actor),
		UserID:         &userID,
		Action:         audit.ActionLogout,
		EntityType:     "session",
		RequestID:      httpx.RequestIDFromContext(r.Context()),
	})

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetAuthMe(w http.ResponseWriter, r *http.Request) {
	actor, userID, ok := requireActor(w, r)
	if !ok {
		return
	}

	resp := authSessionResponse{
		User: userResponse{ID: userID, Email: actor.Email, FullName: actor.FullName, Role: actor.Role},
	}
	if orgID := actorOrganizationID(actor); orgID != nil {
		resp.Organization = &organizationResponse{ID: *orgID, Slug: actor.OrganizationSlug, Name: actor.OrganizationName}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) GetAuthCsrf(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"csrfToken": actor.CSRFToken})
}

func requireActor(w http.ResponseWriter, r *http.Request) (middleware.Actor, uuid.UUID, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return middleware.Actor{}, uuid.Nil, false
	}
	userID, err := uuid.Parse(actor.UserID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Invalid user", nil)
		return middleware.Actor{}, uuid.Nil, false
	}
	return actor, userID, true
}

func actorOrganizationID(actor middleware.Actor) *uuid.UUID {
	id, err := uuid.Parse(actor.OrganizationID)
	if err != nil {
		return nil
	}
	return &id
}
