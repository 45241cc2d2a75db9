package cmd

import (
	"context"
	"errors"
	"fmt"

	"tgrelay/pkg/backend"

	"github.com/spf13/cobra"
)

var errBackendUnhealthy = errors.New("bot service is not healthy")

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the bot service once",
	Long:  "Calls the bot service health endpoint once and exits non-zero if it is not healthy.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadRuntime("cmd.health")
		if err != nil {
			return err
		}

		return checkBackend(cmd.Context(), cfg.Backend.URL, backend.New(cfg.Backend, log))
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

type prober interface {
	Probe(ctx context.Context) bool
}

func checkBackend(ctx context.Context, url string, p prober) error {
	if !p.Probe(ctx) {
		return fmt.Errorf("%w at %s", errBackendUnhealthy, url)
	}
	return nil
}
