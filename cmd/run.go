package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tgrelay/pkg/backend"
	"tgrelay/pkg/channel/telegram"
	"tgrelay/pkg/config"
	"tgrelay/pkg/logger"
	"tgrelay/pkg/relay"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Telegram relay",
	Long:  "Checks the bot service, then relays Telegram messages to it until interrupted.",
	RunE:  runRelay,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRelay(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadRuntime("cmd.run")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, log)
}

// loadRuntime loads configuration and installs the configured logger as the slog default.
func loadRuntime(component string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	slog.SetDefault(appLogger)

	return cfg, appLogger.With("component", component), nil
}

// serve runs the relay until ctx is done or the channel fails. A done ctx is a
// clean shutdown and returns nil.
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger, botOpts ...telego.BotOption) error {
	log.Info("Starting Telegram relay", "bot_service_url", cfg.Backend.URL)

	client := backend.New(cfg.Backend, log)

	adapter, err := telegram.NewAdapter(cfg.Telegram, log, botOpts...)
	if err != nil {
		return fmt.Errorf("configure telegram channel: %w", err)
	}

	svc, err := relay.NewService(cfg, client, client, adapter, adapter, log)
	if err != nil {
		return fmt.Errorf("initialize relay: %w", err)
	}

	if err := svc.Start(ctx); err != nil {
		svc.Stop()
		return fmt.Errorf("start relay: %w", err)
	}
	log.Info("Relay is running, press Ctrl+C to stop")

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully")
		svc.Stop()
		return nil
	case err := <-svc.Errors():
		log.Error("Relay channel failed", "error", err)
		svc.Stop()
		return err
	}
}
