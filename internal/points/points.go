// Package points imports points balances from spreadsheets: rows are
// validated, credited to accounts in small transactional batches and tracked
// by an import job ledger.
package points

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one accepted spreadsheet row. Row is the 1-based row number in
// the file, counting the header as row 1.
type Record struct {
	Row        int
	DocumentID string
	Points     int64
	FullName   string
	Email      string
}

// SkippedRow is a data row the validator dropped.
type SkippedRow struct {
	Row        int
	DocumentID string
	Reason     string
}

type RowError struct {
	Row        int    `json:"row"`
	DocumentID string `json:"cpf"`
	Error      string `json:"error"`
}

type Result struct {
	Success        bool       `json:"success"`
	TotalRecords   int        `json:"totalRecords"`
	SuccessRecords int        `json:"successRecords"`
	ErrorRecords   int        `json:"errorRecords"`
	Errors         []RowError `json:"errors"`
}

type JobStatus string

const (
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobPartial    JobStatus = "PARTIAL"
	JobError      JobStatus = "ERROR"
)

const (
	RoleAdmin  = "ADMIN"
	RoleClient = "CLIENT"
)

type Job struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	FileName       string
	FileSHA256     string
	TotalRecords   int
	SuccessRecords int
	ErrorRecords   int
	Status         JobStatus
	ErrorDetails   []RowError
	ImportedBy     uuid.UUID
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

type NewJob struct {
	OrganizationID uuid.UUID
	FileName       string
	FileSHA256     string
	TotalRecords   int
	ImportedBy     uuid.UUID
}

type JobFinal struct {
	Status         JobStatus
	SuccessRecords int
	ErrorRecords   int
	ErrorDetails   []RowError
}

// Ledger persists one row per import attempt. FinalizeJob may be called
// once per job; later calls return ErrJobAlreadyClosed.
type Ledger interface {
	CreateJob(ctx context.Context, job NewJob) (uuid.UUID, error)
	FinalizeJob(ctx context.Context, id uuid.UUID, final JobFinal) error
	GetJob(ctx context.Context, organizationID, id uuid.UUID) (Job, error)
	ListJobs(ctx context.Context, organizationID uuid.UUID, limit int) ([]Job, error)
	FindCompletedByChecksum(ctx context.Context, organizationID uuid.UUID, sha256 string) (Job, error)
}

type Account struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	DocumentID     string
	FullName       string
	Email          string
	Points         int64
}

type NewAccount struct {
	OrganizationID uuid.UUID
	DocumentID     string
	FullName       string
	Email          string
	PasswordHash   string
	Role           string
	Points         int64
}

// Credit adds Points to an account. Empty FullName or Email leave the stored
// values untouched.
type Credit struct {
	AccountID uuid.UUID
	Points    int64
	FullName  string
	Email     string
}

type HistoryEntry struct {
	AccountID   uuid.UUID
	PointsAdded int64
	Description string
	ImportJobID uuid.UUID
}

// Tx is the write surface available while a batch transaction is open.
type Tx interface {
	// Savepoint runs fn in a nested transaction. When fn fails its writes are
	// rolled back and fn's error is returned as is; failures of the savepoint
	// itself are returned as other errors.
	Savepoint(ctx context.Context, fn func(Tx) error) error
	FindAccountByDocument(ctx context.Context, documentID string) (Account, error)
	CreateAccount(ctx context.Context, account NewAccount) (Account, error)
	CreditAccount(ctx context.Context, credit Credit) (Account, error)
	AppendHistory(ctx context.Context, entry HistoryEntry) error
}

// AccountStore opens batch transactions. InTx commits when fn returns nil and
// rolls back otherwise.
type AccountStore interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}
