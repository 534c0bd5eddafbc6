package store

import (
	"time"

	"github.com/google/uuid"
)

type Organization struct {
	ID        uuid.UUID
	Slug      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID             uuid.UUID
	OrganizationID *uuid.UUID
	DocumentID     *string
	FullName       string
	Email          *string
	PasswordHash   string
	Role           string
	Points         int64
	IsActive       bool
	FirstAccess    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ImportJob struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	FileName       string
	FileSha256     string
	TotalRecords   int32
	SuccessRecords int32
	ErrorRecords   int32
	Status         string
	ErrorDetails   []byte
	ImportedBy     *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

type PointsHistory struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	PointsAdded int64
	Description string
	ImportJobID *uuid.UUID
	CreatedAt   time.Time
}

// SessionPrincipal is a live session joined with its user and organization.
type SessionPrincipal struct {
	SessionID        uuid.UUID
	UserID           uuid.UUID
	CsrfToken        string
	ExpiresAt        time.Time
	Email            *string
	FullName         string
	Role             string
	OrganizationID   *uuid.UUID
	OrganizationSlug *string
	OrganizationName *string
}
