package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/app"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/config"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/db"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/points"
)

type importOptions struct {
	organizationID uuid.UUID
	actorID        uuid.UUID
	file           string
	contentType    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newImportCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	var opts importOptions
	var org, actor string

	cmd := &cobra.Command{
		Use:          "importpoints",
		Short:        "Credit points from a CSV or Excel spreadsheet",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(strings.TrimSpace(org))
			if err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}
			opts.organizationID = id

			id, err = uuid.Parse(strings.TrimSpace(actor))
			if err != nil {
				return fmt.Errorf("invalid --actor: %w", err)
			}
			opts.actorID = id
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization UUID (required)")
	cmd.Flags().StringVar(&actor, "actor", "", "UUID of the user recorded as importer (required)")
	cmd.Flags().StringVar(&opts.file, "file", "", "Spreadsheet to import (required)")
	cmd.Flags().StringVar(&opts.contentType, "content-type", "", "Media type when the file extension is not meaningful")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(ctx context.Context, opts importOptions) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.file, err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	importer, _ := app.NewImporter(cfg.Import, pool, logger)
	outcome, err := importer.Import(ctx, points.Upload{
		FileName:       filepath.Base(opts.file),
		ContentType:    opts.contentType,
		Data:           data,
		OrganizationID: opts.organizationID,
		ActorID:        opts.actorID,
	})
	if outcome.JobID != uuid.Nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{
			"importJobId": outcome.JobID,
			"status":      outcome.Status,
			"result":      outcome.Result,
		})
	}
	return err
}
