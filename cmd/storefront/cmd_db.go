package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/database/seeders"
	"github.com/shashiranjanraj/storefront/internal/server"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/migration"
)

// bootLedger loads config and opens the SQL ledger.
func bootLedger() (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	return database.ConnectLedger()
}

// storefront migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending ledger migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bootLedger()
		if err != nil {
			return err
		}
		defer database.CloseLedger(db) //nolint:errcheck

		fmt.Fprintln(cmd.OutOrStdout(), "Running migrations…")
		ran, err := migration.New(db).Run()
		for _, name := range ran {
			fmt.Fprintf(cmd.OutOrStdout(), "  ✔ %s\n", name)
		}
		if err == nil && len(ran) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to migrate.")
		}
		return err
	},
}

// storefront migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bootLedger()
		if err != nil {
			return err
		}
		defer database.CloseLedger(db) //nolint:errcheck

		fmt.Fprintln(cmd.OutOrStdout(), "Rolling back last batch…")
		reverted, err := migration.New(db).Rollback()
		for _, name := range reverted {
			fmt.Fprintf(cmd.OutOrStdout(), "  ↺ %s\n", name)
		}
		return err
	},
}

// storefront migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bootLedger()
		if err != nil {
			return err
		}
		defer database.CloseLedger(db) //nolint:errcheck

		rows, err := migration.New(db).Status()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tRAN\tBATCH")
		for _, s := range rows {
			batch := "-"
			if s.Ran {
				batch = fmt.Sprint(s.Batch)
			}
			fmt.Fprintf(w, "%s\t%v\t%s\n", s.Name, s.Ran, batch)
		}
		return w.Flush()
	},
}

// storefront seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all document store seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		stores, mongo, err := server.OpenStores(cmd.Context())
		if err != nil {
			return err
		}
		defer mongo.Close() //nolint:errcheck

		fmt.Fprintln(cmd.OutOrStdout(), "Running seeders…")
		return seeders.RunAll(cmd.Context(), stores, cmd.OutOrStdout())
	},
}
