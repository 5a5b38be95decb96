package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"campuscoin/internal/db"
	"campuscoin/internal/models"
	"campuscoin/internal/store"
)

type RoleSetter interface {
	SetRole(ctx context.Context, tx store.Execer, username, role string) error
}

type AuditLogger interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func newSetRoleCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role USERNAME ROLE",
		Short: "Grant or revoke admin rights",
		Long:  `Set a user's role to admin or student. Useful for recovering admin access.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			a := backend.App
			return runSetRole(cmd, a.TxRunner, a.Admin, a.Audit, args[0], args[1])
		},
	}
}

func runSetRole(cmd *cobra.Command, txRunner db.TxRunner, roles RoleSetter, audit AuditLogger, username, role string) error {
	if role != models.RoleAdmin && role != models.RoleStudent {
		return fmt.Errorf("role must be %q or %q", models.RoleAdmin, models.RoleStudent)
	}
	ctx := cmd.Context()
	err := txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := roles.SetRole(ctx, tx, username, role); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"role": role, "source": "coinctl"})
		return audit.Log(ctx, tx, "", "set_role", "user", username, string(data))
	})
	if err != nil {
		if errors.Is(err, store.ErrNoRowsAffected) {
			return fmt.Errorf("user %q not found", username)
		}
		return fmt.Errorf("set role: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", username, role)
	return nil
}
