package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"campuscoin/internal/services"
	"campuscoin/internal/weeks"
)

// WeekProcessor runs one weekly credit pass.
type WeekProcessor interface {
	ProcessWeek(ctx context.Context, weekStart, weekEnd, actorID string) (services.WeekSummary, error)
}

func newWeeklyCreditCommand(open Opener) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "weekly-credit",
		Short: "Credit coins for a week of attendance",
		Long: `Credit every student for the present days recorded in the given week.
Without --start and --end the previous Monday to Sunday week is used.
Rerunning a week skips students that were already credited.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			return runWeeklyCredit(cmd, backend.App.WeeklyCredits, start, end)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day of the week (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day of the week (YYYY-MM-DD)")
	cmd.MarkFlagsRequiredTogether("start", "end")
	return cmd
}

func runWeeklyCredit(cmd *cobra.Command, processor WeekProcessor, start, end string) error {
	if start == "" && end == "" {
		previous := weeks.Previous(time.Now().UTC())
		start, end = previous.Start, previous.End
	}
	summary, err := processor.ProcessWeek(cmd.Context(), start, end, "")
	if err != nil {
		return fmt.Errorf("weekly credit %s..%s: %w", start, end, err)
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d accounts failed", summary.Failed)
	}
	return nil
}
