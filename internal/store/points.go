package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/points"
)

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PointsStore backs the points importer: it is both its AccountStore and its
// Ledger.
type PointsStore struct {
	db TxBeginner
	q  *Queries
}

var (
	_ points.AccountStore = (*PointsStore)(nil)
	_ points.Ledger       = (*PointsStore)(nil)
)

func NewPointsStore(db TxBeginner) *PointsStore {
	return &PointsStore{db: db, q: New(db)}
}

func (s *PointsStore) InTx(ctx context.Context, fn func(points.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pointsTx{tx: tx, q: s.q.WithTx(tx)}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

type pointsTx struct {
	tx pgx.Tx
	q  *Queries
}

// Savepoint relies on pgx issuing SAVEPOINT for Begin on an open transaction.
func (t *pointsTx) Savepoint(ctx context.Context, fn func(points.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}
	if err := fn(&pointsTx{tx: sp, q: t.q.WithTx(sp)}); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback savepoint: %w", rbErr))
		}
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (t *pointsTx) FindAccountByDocument(ctx context.Context, documentID string) (points.Account, error) {
	u, err := t.q.GetUserByDocumentID(ctx, documentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return points.Account{}, points.ErrAccountNotFound
		}
		return points.Account{}, err
	}
	return mapAccount(u), nil
}

func (t *pointsTx) CreateAccount(ctx context.Context, a points.NewAccount) (points.Account, error) {
	orgID := a.OrganizationID
	documentID := a.DocumentID
	u, err := t.q.CreateUser(ctx, CreateUserParams{
		OrganizationID: &orgID,
		DocumentID:     &documentID,
		FullName:       a.FullName,
		Email:          nonEmptyPtr(a.Email),
		PasswordHash:   a.PasswordHash,
		Role:           a.Role,
		Points:         a.Points,
	})
	if err != nil {
		return points.Account{}, err
	}
	return mapAccount(u), nil
}

func (t *pointsTx) CreditAccount(ctx context.Context, c points.Credit) (points.Account, error) {
	u, err := t.q.CreditUserPoints(ctx, CreditUserPointsParams{
		ID:       c.AccountID,
		Points:   c.Points,
		FullName: nonEmptyPtr(c.FullName),
		Email:    nonEmptyPtr(c.Email),
	})
	if err != nil {
		return points.Account{}, err
	}
	return mapAccount(u), nil
}

func (t *pointsTx) AppendHistory(ctx context.Context, e points.HistoryEntry) error {
	jobID := e.ImportJobID
	return t.q.InsertPointsHistory(ctx, InsertPointsHistoryParams{
		UserID:      e.AccountID,
		PointsAdded: e.PointsAdded,
		Description: e.Description,
		ImportJobID: &jobID,
	})
}

func (s *PointsStore) CreateJob(ctx context.Context, job points.NewJob) (uuid.UUID, error) {
	var importedBy *uuid.UUID
	if job.ImportedBy != uuid.Nil {
		id := job.ImportedBy
		importedBy = &id
	}
	created, err := s.q.CreateImportJob(ctx, CreateImportJobParams{
		OrganizationID: job.OrganizationID,
		FileName:       job.FileName,
		FileSha256:     job.FileSHA256,
		TotalRecords:   int32(job.TotalRecords),
		ImportedBy:     importedBy,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}

func (s *PointsStore) FinalizeJob(ctx context.Context, id uuid.UUID, final points.JobFinal) error {
	details := final.ErrorDetails
	if details == nil {
		details = []points.RowError{}
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal error details: %w", err)
	}

	affected, err := s.q.CompleteImportJob(ctx, CompleteImportJobParams{
		ID:             id,
		Status:         string(final.Status),
		SuccessRecords: int32(final.SuccessRecords),
		ErrorRecords:   int32(final.ErrorRecords),
		ErrorDetails:   encoded,
	})
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	exists, err := s.q.ImportJobExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return points.ErrJobNotFound
	}
	return points.ErrJobAlreadyClosed
}

func (s *PointsStore) GetJob(ctx context.Context, organizationID, id uuid.UUID) (points.Job, error) {
	j, err := s.q.GetImportJobByID(ctx, GetImportJobByIDParams{ID: id, OrganizationID: organizationID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return points.Job{}, points.ErrJobNotFound
		}
		return points.Job{}, err
	}
	return mapJob(j), nil
}

func (s *PointsStore) ListJobs(ctx context.Context, organizationID uuid.UUID, limit int) ([]points.Job, error) {
	rows, err := s.q.ListImportJobsByOrganization(ctx, ListImportJobsByOrganizationParams{
		OrganizationID: organizationID,
		LimitRows:      int32(limit),
	})
	if err != nil {
		return nil, err
	}
	jobs := make([]points.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, mapJob(row))
	}
	return jobs, nil
}

func (s *PointsStore) FindCompletedByChecksum(ctx context.Context, organizationID uuid.UUID, sha256 string) (points.Job, error) {
	j, err := s.q.FindFinishedImportJobByChecksum(ctx, FindFinishedImportJobByChecksumParams{
		OrganizationID: organizationID,
		FileSha256:     sha256,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return points.Job{}, points.ErrJobNotFound
		}
		return points.Job{}, err
	}
	return mapJob(j), nil
}

func mapAccount(u User) points.Account {
	acc := points.Account{
		ID:       u.ID,
		FullName: u.FullName,
		Points:   u.Points,
	}
	if u.OrganizationID != nil {
		acc.OrganizationID = *u.OrganizationID
	}
	if u.DocumentID != nil {
		acc.DocumentID = *u.DocumentID
	}
	if u.Email != nil {
		acc.Email = *u.Email
	}
	return acc
}

func mapJob(j ImportJob) points.Job {
	job := points.Job{
		ID:             j.ID,
		OrganizationID: j.OrganizationID,
		FileName:       j.FileName,
		FileSHA256:     j.FileSha256,
		TotalRecords:   int(j.TotalRecords),
		SuccessRecords: int(j.SuccessRecords),
		ErrorRecords:   int(j.ErrorRecords),
		Status:         points.JobStatus(j.Status),
		CreatedAt:      j.CreatedAt,
		CompletedAt:    j.CompletedAt,
		ErrorDetails:   []points.RowError{},
	}
	if j.ImportedBy != nil {
		job.ImportedBy = *j.ImportedBy
	}
	if len(j.ErrorDetails) > 0 {
		_ = json.Unmarshal(j.ErrorDetails, &job.ErrorDetails)
	}
	return job
}

func nonEmptyPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
