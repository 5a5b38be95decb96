package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"campuscoin/internal/store"
)

var ErrUnbalanced = errors.New("stored balances disagree with the ledger")

type Reconciler interface {
	Reconcile(ctx context.Context) ([]store.ReconcileRow, error)
}

func newReconcileCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Compare stored wallet balances with ledger sums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			return runReconcile(cmd, backend.App.Ledger)
		},
	}
}

func runReconcile(cmd *cobra.Command, reconciler Reconciler) error {
	rows, err := reconciler.Reconcile(cmd.Context())
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tSTORED COINS\tLEDGER COINS\tSTORED MESS\tLEDGER MESS")
	mismatched := 0
	for _, row := range rows {
		if row.Balanced() {
			continue
		}
		mismatched++
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", row.Username, row.StoredCoins, row.LedgerCoins,
			row.StoredMess.StringFixed(2), row.LedgerMess.StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d accounts checked, %d mismatched\n", len(rows), mismatched)
	if mismatched > 0 {
		return ErrUnbalanced
	}
	return nil
}
