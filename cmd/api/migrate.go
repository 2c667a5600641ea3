package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/encounter-api/internal/config"
	"github.com/jwalitptl/encounter-api/internal/repository/postgres"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closeDB, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			n, err := migrator.Up(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closeDB, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			statuses, err := migrator.Status(context.Background())
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%03d  %-30s  %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}

	cmd.AddCommand(upCmd, statusCmd)
	return cmd
}

func openMigrator(cmd *cobra.Command) (*postgres.Migrator, func(), error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(file)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.Driver != config.StorePostgres {
		return nil, nil, fmt.Errorf("migrations need the postgres store, got %q", cfg.Store.Driver)
	}
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewMigrator(db), func() { db.Close() }, nil
}
