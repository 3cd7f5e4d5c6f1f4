package commands

import (
	"context"
	"log/slog"

	"github.com/fjod/cart-api/internal/config"
	"github.com/fjod/cart-api/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	log *slog.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:           "cart-api",
		Short:         "Shopping cart backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			log = logger.New(logger.Options{
				Service: "cart-api",
				Env:     cfg.Env,
				Level:   cfg.LogLevel,
			})
			return nil
		},
	}

	root.AddCommand(serveCmd(), migrateCmd())

	err := root.ExecuteContext(context.Background())
	if err != nil {
		if log == nil {
			log = slog.Default()
		}
		log.Error("command failed", "error", err)
	}
	return err
}
