package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/johnwards/seeder/internal/config"
	"github.com/johnwards/seeder/internal/database"
	"github.com/johnwards/seeder/internal/model"
	"github.com/johnwards/seeder/internal/seed"
	"github.com/johnwards/seeder/internal/store"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "seeder",
		Short:         "Seed relational tables from declarative sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.File, "config", cfg.File, "Seed declaration file (.toml, .yaml)")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite path or postgres:// DSN")
	flags.StringVar(&cfg.CSVDir, "csv-dir", cfg.CSVDir, "Directory holding CSV sources (default: csv_dir from the seed file)")
	flags.BoolVar(&cfg.Silent, "silent", cfg.Silent, "Suppress log output")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	cmd.AddCommand(newRunCmd(cfg), newListCmd(cfg))
	return cmd
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	var transaction bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured seeders in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeeds(cmd.Context(), cfg, transaction)
		},
	}
	cmd.Flags().StringSliceVar(&cfg.Only, "only", cfg.Only, "Run only these seeders (overrides SEEDS)")
	cmd.Flags().StringVar(&cfg.Migrations, "migrations", cfg.Migrations, "Apply *.sql migrations from this directory first")
	cmd.Flags().BoolVar(&transaction, "transaction", false, "Wrap the whole run in one transaction")
	return cmd
}

func newListCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Validate and list the configured seeders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSeeds(cmd.OutOrStdout(), cfg)
		},
	}
}

type project struct {
	models  *model.Registry
	seeders []seed.Seeder
	csvDir  string
}

func loadProject(cfg *config.Config) (*project, error) {
	f, err := config.LoadFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("load seed file: %w", err)
	}
	reg, seeders, err := f.Build()
	if err != nil {
		return nil, fmt.Errorf("build seed file: %w", err)
	}
	return &project{models: reg, seeders: seeders, csvDir: f.ResolveCSVDir(cfg.CSVDir)}, nil
}

func runSeeds(ctx context.Context, cfg *config.Config, transaction bool) error {
	logger, err := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.Silent)
	if err != nil {
		return err
	}

	p, err := loadProject(cfg)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	dialect := database.DialectFor(cfg.DBPath)
	if cfg.Migrations != "" {
		if err := database.Migrate(ctx, db, dialect, os.DirFS(cfg.Migrations)); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	var (
		conn store.DBTX = db
		tx   *sql.Tx
	)
	if transaction {
		tx, err = db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		conn = tx
	}

	engine := seed.NewEngine(store.New(conn, dialect), p.models,
		seed.WithCSVDir(p.csvDir),
		seed.WithLogger(logger),
	)
	suite := &seed.Suite{Engine: engine, Seeders: p.seeders}

	results, err := suite.Run(ctx, cfg.Only)
	if err != nil {
		return err
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
	}

	var created, updated int
	for _, r := range results {
		created += r.Created
		updated += r.Updated
	}
	logger.Info("seeding complete",
		slog.Int("seeders", len(results)),
		slog.Int("created", created),
		slog.Int("updated", updated),
	)
	return nil
}

// listSeeds resolves every seeder without touching a database.
func listSeeds(w io.Writer, cfg *config.Config) error {
	p, err := loadProject(cfg)
	if err != nil {
		return err
	}

	engine := seed.NewEngine(nil, p.models,
		seed.WithCSVDir(p.csvDir),
		seed.WithLogger(slog.New(slog.DiscardHandler)),
	)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTRATEGY\tMODEL\tPARENT\tSOURCE")
	for _, s := range p.seeders {
		spec, err := engine.Resolve(s)
		if err != nil {
			_ = tw.Flush()
			return err
		}
		parent, source := "-", "code"
		if spec.Parent != nil {
			parent = spec.Parent.Name + "." + spec.Association.Name
		}
		if spec.CSVPath != "" {
			source = spec.CSVPath
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", spec.Name, spec.Strategy, spec.Model.Name, parent, source)
	}
	return tw.Flush()
}
