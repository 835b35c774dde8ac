package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/migrations"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the booking database schema",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", runtime.Getenv("DATABASE_URL", ""), "postgres connection string")

	withMigrator := func(fn func(*db.Migrator) error) error {
		if databaseURL == "" {
			return errors.New("DATABASE_URL or --database-url is required")
		}
		mg, err := db.NewMigrator(databaseURL, migrations.FS)
		if err != nil {
			return err
		}
		defer mg.Close()
		return fn(mg)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(mg *db.Migrator) error {
				if err := mg.Up(); err != nil {
					return err
				}
				return printVersion(cmd, mg)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down [n]",
		Short: "Roll back n migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v <= 0 {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				n = v
			}
			return withMigrator(func(mg *db.Migrator) error {
				if err := mg.Down(n); err != nil {
					return err
				}
				return printVersion(cmd, mg)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations (clears the dirty flag)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return withMigrator(func(mg *db.Migrator) error {
				if err := mg.Force(v); err != nil {
					return err
				}
				return printVersion(cmd, mg)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(mg *db.Migrator) error {
				return printVersion(cmd, mg)
			})
		},
	})
	return cmd
}

func printVersion(cmd *cobra.Command, mg *db.Migrator) error {
	v, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
	return nil
}
