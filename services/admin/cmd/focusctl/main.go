package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"focusd/pkg/db"
	"focusd/services/admin"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "focusctl",
		Short:         "Utility for operating the focusd session backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSweepCommand())
	cmd.AddCommand(newActiveCommand())
	return cmd
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		return nil, errors.New("database DSN required (--db-dsn or DB_DSN)")
	}
	return db.Open(ctx, dsn)
}

func newMigrateCommand() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			pool, err := openPool(ctx, dsn)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "db-dsn", "", "Postgres connection string (falls back to DB_DSN)")
	return cmd
}

func newSweepCommand() *cobra.Command {
	var (
		dsn       string
		olderThan time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete paused sessions nobody resumed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			pool, err := openPool(ctx, dsn)
			if err != nil {
				return err
			}
			defer pool.Close()

			swept, err := admin.SweepStalePaused(ctx, pool, olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "swept %d stale paused sessions\n", swept)
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "db-dsn", "", "Postgres connection string (falls back to DB_DSN)")
	cmd.Flags().DurationVar(&olderThan, "older-than", admin.DefaultStaleness, "Staleness threshold for paused sessions")
	return cmd
}

func newActiveCommand() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "active",
		Short: "List running and paused sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			pool, err := openPool(ctx, dsn)
			if err != nil {
				return err
			}
			defer pool.Close()

			rows, err := admin.ListActive(ctx, pool)
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, admin.RenderActive(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "db-dsn", "", "Postgres connection string (falls back to DB_DSN)")
	return cmd
}
