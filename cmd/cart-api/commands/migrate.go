package commands

import (
	"fmt"

	"github.com/fjod/cart-api/internal/config"
	"github.com/fjod/cart-api/internal/repository"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed data, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := cfg.Credentials()
			repo, err := repository.NewRepository(creds)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer repo.Close()

			if err := repo.RunMigrations(creds); err != nil {
				return err
			}
			log.Info("database migrations completed", "path", creds.MigrationsDirPath)

			if cfg.CatalogDriver != config.CatalogSQLite {
				return nil
			}
			catalog, err := repository.NewSQLiteCatalog(cfg.CatalogDBPath)
			if err != nil {
				return fmt.Errorf("open sqlite catalog: %w", err)
			}
			defer catalog.Close()

			if err := catalog.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
				return err
			}
			log.Info("catalog migrations completed", "path", cfg.CatalogMigrationsPath)
			return nil
		},
	}
}
