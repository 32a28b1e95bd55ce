package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/internal/server"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/money"
)

// ─── Users ────────────────────────────────────────────────────────────────────

var userPromoteCmd = &cobra.Command{
	Use:   "user:promote <email>",
	Short: "Grant the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRole(cmd, args[0], models.RoleAdmin)
	},
}

var userDemoteCmd = &cobra.Command{
	Use:   "user:demote <email>",
	Short: "Revoke the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRole(cmd, args[0], models.RoleStandard)
	},
}

func setRole(cmd *cobra.Command, email string, role models.Role) error {
	if err := config.Load(); err != nil {
		return err
	}
	stores, mongo, err := server.OpenStores(cmd.Context())
	if err != nil {
		return err
	}
	defer mongo.Close() //nolint:errcheck

	u, err := services.NewUserService(stores.Users).SetRole(cmd.Context(), email, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
	return nil
}

// ─── Reconciliation ledger ────────────────────────────────────────────────────

var (
	reconStatusFlag  string
	reconPageFlag    int
	reconPerPageFlag int
	reconNoteFlag    string
)

func init() {
	reconcileListCmd.Flags().StringVar(&reconStatusFlag, "status", "", "filter: pending, reversed or resolved")
	reconcileListCmd.Flags().IntVar(&reconPageFlag, "page", 1, "page number")
	reconcileListCmd.Flags().IntVar(&reconPerPageFlag, "per-page", 20, "records per page")
	reconcileResolveCmd.Flags().StringVar(&reconNoteFlag, "note", "", "what was done about it")
}

func ledgerService() (*services.ReconciliationService, func(), error) {
	db, err := bootLedger()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = database.CloseLedger(db) }
	return services.NewReconciliationService(repositories.NewReconciliationRepository(db)), closeFn, nil
}

var reconcileListCmd = &cobra.Command{
	Use:   "reconcile:list",
	Short: "List charges that need operator attention",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, done, err := ledgerService()
		if err != nil {
			return err
		}
		defer done()

		recs, page, err := svc.List(cmd.Context(), reconStatusFlag, reconPageFlag, reconPerPageFlag)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tTRANSACTION\tBUYER\tAMOUNT\tCREATED\tREASON")
		for _, r := range recs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s %s\t%s\t%s\n",
				r.ID, r.Status, r.TransactionID, r.BuyerID, money.Amount(r.Amount), r.Currency,
				r.CreatedAt.Format("2006-01-02 15:04"), r.Reason)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d total)\n", page.Page, page.LastPage, page.Total)
		return nil
	},
}

var reconcileResolveCmd = &cobra.Command{
	Use:   "reconcile:resolve <id>",
	Short: "Mark a ledger record as resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}

		svc, done, err := ledgerService()
		if err != nil {
			return err
		}
		defer done()

		rec, err := svc.Resolve(cmd.Context(), uint(id), reconNoteFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reconciliation %d resolved at %s\n", rec.ID, rec.ResolvedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}
