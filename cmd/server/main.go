package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diewo77/go-facturas/internal/config"
	"github.com/diewo77/go-facturas/internal/logging"
)

// runtime is what every command needs once the environment is loaded.
type runtime struct {
	cfg   *config.Config
	flush func()
}

func newRootCmd() *cobra.Command {
	rt := &runtime{flush: func() {}}
	cmd := &cobra.Command{
		Use:           "facturas",
		Short:         "Invoicing for Honduran businesses",
		Long:          "facturas serves the invoicing app and runs its maintenance tasks: SQL migrations, seeding and the CAI expiry check.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// a missing .env is normal in production
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			flush, err := logging.Setup(cfg.Log, cfg.App.Dev)
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}
			rt.cfg, rt.flush = cfg, flush
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.flush()
		},
	}
	cmd.AddCommand(newServeCmd(rt))
	cmd.AddCommand(newMigrateCmd(rt))
	cmd.AddCommand(newSeedCmd(rt))
	cmd.AddCommand(newCAICheckCmd(rt))
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
