package points

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/spreadsheet"
)

const DefaultMaxRecords = 1000

type ImporterConfig struct {
	MaxFileBytes         int64
	MaxRecords           int
	Synonyms             Synonyms
	ReportSkippedRows    bool
	RejectDuplicateFiles bool
	Processor            ProcessorConfig
}

type Upload struct {
	FileName       string
	ContentType    string
	Data           []byte
	OrganizationID uuid.UUID
	ActorID        uuid.UUID
}

type Outcome struct {
	JobID  uuid.UUID
	Status JobStatus
	Result Result
}

// Importer runs a whole upload: parse, validate, open a ledger entry, credit
// the records and close the ledger entry.
type Importer struct {
	ledger    Ledger
	processor *Processor
	cfg       ImporterConfig
	logger    *slog.Logger
}

func NewImporter(ledger Ledger, accounts AccountStore, cfg ImporterConfig, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = spreadsheet.DefaultMaxBytes
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = DefaultMaxRecords
	}
	cfg.Synonyms = cfg.Synonyms.WithDefaults()
	return &Importer{
		ledger:    ledger,
		processor: NewProcessor(accounts, cfg.Processor, logger),
		cfg:       cfg,
		logger:    logger,
	}
}

// Import returns the job outcome. Errors returned before a job exists leave
// Outcome.JobID empty; once a job is created it is always finalized, and a
// processing failure is returned together with the partial outcome.
func (im *Importer) Import(ctx context.Context, up Upload) (outcome Outcome, err error) {
	grid, err := spreadsheet.Parse(up.Data, spreadsheet.Options{
		FileName:    up.FileName,
		ContentType: up.ContentType,
		MaxBytes:    im.cfg.MaxFileBytes,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("parse spreadsheet: %w", err)
	}

	validation, err := Validate(grid, im.cfg.Synonyms)
	if err == nil && len(validation.Records) > im.cfg.MaxRecords {
		err = fmt.Errorf("%w: %d records, at most %d allowed", ErrTooManyRecords, len(validation.Records), im.cfg.MaxRecords)
	}
	if err != nil {
		if IsInputError(err) {
			im.logger.Info("points import rejected", "organization_id", up.OrganizationID, "file_name", up.FileName, "reason", err)
		}
		return Outcome{}, err
	}

	sum := sha256.Sum256(up.Data)
	checksum := hex.EncodeToString(sum[:])
	if im.cfg.RejectDuplicateFiles {
		previous, err := im.ledger.FindCompletedByChecksum(ctx, up.OrganizationID, checksum)
		switch {
		case err == nil:
			return Outcome{}, fmt.Errorf("%w: job %s", ErrDuplicateImport, previous.ID)
		case !errors.Is(err, ErrJobNotFound):
			return Outcome{}, fmt.Errorf("check duplicate import: %w", err)
		}
	}

	var skipped []RowError
	if im.cfg.ReportSkippedRows {
		for _, s := range validation.Skipped {
			skipped = append(skipped, RowError{Row: s.Row, DocumentID: s.DocumentID, Error: s.Reason})
		}
	}

	jobID, err := im.ledger.CreateJob(ctx, NewJob{
		OrganizationID: up.OrganizationID,
		FileName:       up.FileName,
		FileSHA256:     checksum,
		TotalRecords:   len(validation.Records) + len(skipped),
		ImportedBy:     up.ActorID,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("create import job: %w", err)
	}
	outcome.JobID = jobID
	im.logger.Info("points import started",
		"import_job_id", jobID,
		"organization_id", up.OrganizationID,
		"file_name", up.FileName,
		"records", len(validation.Records),
		"skipped", len(validation.Skipped),
	)

	finalized := false
	defer func() {
		if finalized {
			return
		}
		final := JobFinal{
			Status:         JobError,
			SuccessRecords: outcome.Result.SuccessRecords,
			ErrorRecords:   outcome.Result.ErrorRecords,
			ErrorDetails:   append(outcome.Result.Errors, RowError{Error: "import interrupted"}),
		}
		if ferr := im.ledger.FinalizeJob(context.WithoutCancel(ctx), jobID, final); ferr != nil {
			im.logger.Error("finalize interrupted import job", "import_job_id", jobID, "error", ferr)
		}
	}()

	result, procErr := im.processor.Process(ctx, validation.Records, up.OrganizationID, jobID)
	if len(skipped) > 0 {
		result.TotalRecords += len(skipped)
		result.ErrorRecords += len(skipped)
		result.Errors = append(result.Errors, skipped...)
		sort.SliceStable(result.Errors, func(i, j int) bool { return result.Errors[i].Row < result.Errors[j].Row })
	}
	outcome.Result = result

	final := JobFinal{
		Status:         finalStatus(result, procErr),
		SuccessRecords: result.SuccessRecords,
		ErrorRecords:   result.ErrorRecords,
		ErrorDetails:   result.Errors,
	}
	if procErr != nil {
		final.ErrorDetails = append(append([]RowError{}, result.Errors...), RowError{Error: procErr.Error()})
	}
	outcome.Status = final.Status

	finalized = true
	if ferr := im.ledger.FinalizeJob(context.WithoutCancel(ctx), jobID, final); ferr != nil {
		return outcome, errors.Join(procErr, fmt.Errorf("finalize import job: %w", ferr))
	}

	im.logger.Info("points import finished",
		"import_job_id", jobID,
		"status", final.Status,
		"success_records", result.SuccessRecords,
		"error_records", result.ErrorRecords,
	)
	if procErr != nil {
		return outcome, procErr
	}
	return outcome, nil
}

// finalStatus maps a processing run to the ledger status. ERROR is reserved
// for runs that stopped early; row failures alone make a job PARTIAL.
func finalStatus(result Result, procErr error) JobStatus {
	switch {
	case procErr != nil:
		return JobError
	case result.ErrorRecords == 0:
		return JobCompleted
	default:
		return JobPartial
	}
}
