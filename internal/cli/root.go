// Package cli implements coinctl, the operator command line for campuscoin.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"campuscoin/internal/app"
	"campuscoin/internal/config"
	"campuscoin/internal/logging"
)

// Backend is what the commands need from a wired application.
type Backend struct {
	App    *app.App
	Logger *zap.Logger
}

// Opener builds a Backend. Tests replace it.
type Opener func(ctx context.Context) (*Backend, func(), error)

func openApp(ctx context.Context) (*Backend, func(), error) {
	cfg := config.Load()
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return &Backend{App: a, Logger: logger}, func() {
		a.Close()
		_ = logger.Sync()
	}, nil
}

// NewRootCommand assembles coinctl around open.
func NewRootCommand(open Opener, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "coinctl",
		Short:         "Operate the campuscoin ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newWeeklyCreditCommand(open))
	root.AddCommand(newReconcileCommand(open))
	root.AddCommand(newSetRoleCommand(open))
	root.AddCommand(newMigrateCommand())
	return root
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand(openApp, os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "coinctl:", err)
		os.Exit(1)
	}
}
