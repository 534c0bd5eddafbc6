package points

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/auth"
)

const DefaultBatchSize = 10

// PasswordHasher derives the stored credential for a new account.
type PasswordHasher func(password string) (string, error)

type ProcessorConfig struct {
	BatchSize         int
	VerifyCheckDigits bool
	HashPassword      PasswordHasher
}

// Processor credits records in sequential batches. Each batch is one
// transaction and each record runs in its own savepoint, so a failing record
// only loses its own writes.
type Processor struct {
	accounts AccountStore
	trail    *Trail
	cfg      ProcessorConfig
	logger   *slog.Logger
}

func NewProcessor(accounts AccountStore, cfg ProcessorConfig, logger *slog.Logger) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.HashPassword == nil {
		cfg.HashPassword = auth.HashPassword
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{accounts: accounts, trail: NewTrail(), cfg: cfg, logger: logger}
}

// Process returns the accumulated result. A non-nil error means processing
// stopped early; the result then covers the batches committed so far.
func (p *Processor) Process(ctx context.Context, records []Record, organizationID, jobID uuid.UUID) (Result, error) {
	result := Result{TotalRecords: len(records), Errors: []RowError{}}

	for start := 0; start < len(records); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(records))
		batch := records[start:end]

		var (
			credited  int
			rowErrors []RowError
		)
		err := p.accounts.InTx(ctx, func(tx Tx) error {
			credited, rowErrors = 0, nil
			for _, rec := range batch {
				if err := ctx.Err(); err != nil {
					return err
				}

				var recErr error
				err := tx.Savepoint(ctx, func(sp Tx) error {
					recErr = p.apply(ctx, sp, rec, organizationID, jobID)
					return recErr
				})
				if recErr != nil {
					rowErrors = append(rowErrors, RowError{Row: rec.Row, DocumentID: rec.DocumentID, Error: recErr.Error()})
					if err != recErr {
						return err
					}
					continue
				}
				if err != nil {
					return err
				}
				credited++
			}
			return nil
		})
		if err != nil {
			p.logger.Error("points batch aborted",
				"import_job_id", jobID,
				"batch_start_row", batch[0].Row,
				"error", err,
			)
			result.Success = false
			return result, fmt.Errorf("process batch starting at row %d: %w", batch[0].Row, err)
		}

		result.SuccessRecords += credited
		result.ErrorRecords += len(rowErrors)
		result.Errors = append(result.Errors, rowErrors...)
	}

	result.Success = true
	return result, nil
}

func (p *Processor) apply(ctx context.Context, tx Tx, rec Record, organizationID, jobID uuid.UUID) error {
	if !ValidDocument(rec.DocumentID, p.cfg.VerifyCheckDigits) {
		return ErrInvalidDocument
	}
	documentID := FormatDocument(rec.DocumentID)

	account, err := tx.FindAccountByDocument(ctx, documentID)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		hash, err := p.cfg.HashPassword(TemporaryPassword(rec.DocumentID))
		if err != nil {
			return fmt.Errorf("hash temporary password: %w", err)
		}
		account, err = tx.CreateAccount(ctx, NewAccount{
			OrganizationID: organizationID,
			DocumentID:     documentID,
			FullName:       rec.FullName,
			Email:          rec.Email,
			PasswordHash:   hash,
			Role:           RoleClient,
			Points:         rec.Points,
		})
		if err != nil {
			return fmt.Errorf("create account: %w", err)
		}
	case err != nil:
		return fmt.Errorf("find account: %w", err)
	default:
		account, err = tx.CreditAccount(ctx, Credit{
			AccountID: account.ID,
			Points:    rec.Points,
			FullName:  rec.FullName,
			Email:     rec.Email,
		})
		if err != nil {
			return fmt.Errorf("credit account: %w", err)
		}
	}

	return p.trail.Record(ctx, tx, account.ID, rec.Points, jobID)
}
