package main

import (
	"fmt"
	"log/slog"
	"os"

	"callnotes/internal/config"
	"callnotes/internal/db"
	"callnotes/pkg/logger"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the callnotes database schema",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logger.New(os.Getenv("APP_ENV")))
		},
	}
	root.AddCommand(upCmd(), downCmd(), statusCmd())
	return root
}

func open(cmd *cobra.Command) (*sqlx.DB, error) {
	cfg, err := config.LoadDB()
	if err != nil {
		return nil, err
	}
	return db.Open(cmd.Context(), cfg)
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB, err := open(cmd)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			n, err := db.Migrate(cmd.Context(), sqlDB)
			if err != nil {
				return err
			}
			slog.Info("migrations applied", "count", n)
			return nil
		},
	}
}

func downCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB, err := open(cmd)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			rolled, err := db.Rollback(cmd.Context(), sqlDB)
			if err != nil {
				return err
			}
			if !rolled {
				slog.Info("nothing to roll back")
				return nil
			}
			slog.Info("rolled back one migration")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB, err := open(cmd)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			p, err := db.NewMigrator(sqlDB)
			if err != nil {
				return err
			}
			statuses, err := p.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range statuses {
				applied := "-"
				if !s.AppliedAt.IsZero() {
					applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(out, "%-8s %-20s %s\n", s.State, applied, s.Source.Path)
			}
			return nil
		},
	}
}
