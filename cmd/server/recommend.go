package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/user-admin-api/internal/service"
)

var errNoUsers = errors.New("no users to reason about, enable SEED_ENABLED")

func newRecommendCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Request one security recommendation for the seeded users and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, services, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer services.Recommendation.Close()
			return runRecommend(cmd.Context(), cmd.OutOrStdout(), services.Recommendation, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "How long to wait for the recommendation")
	return cmd
}

func runRecommend(ctx context.Context, out io.Writer, panel service.RecommendationService, timeout time.Duration) error {
	started, err := panel.Start(ctx)
	if err != nil {
		return err
	}
	if !started {
		return withCode(exitInvalid, errNoUsers)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := panel.Wait(waitCtx); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(panel.State())
}
