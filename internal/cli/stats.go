package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rusenback/erpmon/internal/docker"
)

func (a *app) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <container>",
		Short: "Print one normalized stats sample as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.StatsTimeout)
			defer cancel()

			s, err := client.GetContainerStats(ctx, args[0])
			if errors.Is(err, docker.ErrNoStats) {
				return fmt.Errorf("container %s: %w", args[0], docker.ErrContainerNotRunning)
			}
			if err != nil {
				return fmt.Errorf("failed to get stats for %s: %w", args[0], err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}
}
