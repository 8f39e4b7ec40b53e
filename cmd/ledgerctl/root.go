package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Harshitk-cp/epistemic/internal/app"
	"github.com/Harshitk-cp/epistemic/internal/config"
	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/service"
	"github.com/Harshitk-cp/epistemic/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// backend is what the read/repair commands need from a wired ledger.
type backend interface {
	RecomputeForFact(ctx context.Context, factID uuid.UUID) ([]uuid.UUID, error)
	NeighborsOfArgument(ctx context.Context, id uuid.UUID, opts service.SimilarityOptions) ([]domain.SimilarityMatch, error)
	Effectiveness(ctx context.Context, noteID uuid.UUID) (float64, error)
	Close()
}

type deps struct {
	open    func(ctx context.Context, logger *zap.Logger) (backend, error)
	migrate func(ctx context.Context, dir string, logger *zap.Logger) (int, error)
}

var rootFlags struct {
	jsonOut bool
	verbose bool
}

func newRootCmd(d deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the epistemic ledger",
		Long: `ledgerctl runs maintenance against the ledger database: schema
migrations, dependency recomputes and read-only inspection of similarity
neighbours and community note effectiveness.

Connection settings come from the same .env file the server reads.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&rootFlags.jsonOut, "json", false, "print results as JSON")
	pf.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newMigrateCmd(d),
		newRecomputeCmd(d),
		newSimilarCmd(d),
		newEffectivenessCmd(d),
		newVersionCmd(),
	)
	return root
}

func newLogger() *zap.Logger {
	if !rootFlags.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type ledgerBackend struct {
	ledger *app.Ledger
	close  func()
}

func (b *ledgerBackend) RecomputeForFact(ctx context.Context, factID uuid.UUID) ([]uuid.UUID, error) {
	return b.ledger.Engine.RecomputeForFact(ctx, factID)
}

func (b *ledgerBackend) NeighborsOfArgument(ctx context.Context, id uuid.UUID, opts service.SimilarityOptions) ([]domain.SimilarityMatch, error) {
	return b.ledger.Ledger.NeighborsOfArgument(ctx, id, opts)
}

func (b *ledgerBackend) Effectiveness(ctx context.Context, noteID uuid.UUID) (float64, error) {
	return b.ledger.Notes.Effectiveness(ctx, noteID)
}

func (b *ledgerBackend) Close() { b.close() }

func defaultDeps() deps {
	return deps{
		open: func(ctx context.Context, logger *zap.Logger) (backend, error) {
			if err := config.Load(); err != nil {
				return nil, err
			}
			pool, err := store.NewPool(ctx, config.DatabaseURL())
			if err != nil {
				return nil, err
			}
			ledger, err := app.Build(ctx, pool, app.SettingsFromConfig(), logger)
			if err != nil {
				pool.Close()
				return nil, err
			}
			return &ledgerBackend{ledger: ledger, close: pool.Close}, nil
		},
		migrate: func(ctx context.Context, dir string, logger *zap.Logger) (int, error) {
			if err := config.Load(); err != nil {
				return 0, err
			}
			pool, err := store.NewPool(ctx, config.DatabaseURL())
			if err != nil {
				return 0, err
			}
			defer pool.Close()
			if dir == "" {
				dir = config.MigrationsPath()
			}
			return store.Migrate(ctx, pool, dir, logger)
		},
	}
}
