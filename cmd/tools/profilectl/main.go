// Command profilectl manages the profile tables that feed the site and the
// chat agent.
//
// Usage:
//
//	profilectl migrate
//	profilectl seed --file configs/profile.example.yaml [--replace]
//	profilectl prompt
//	profilectl contacts [--limit 20]
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cvdeck/cv-deck/backend/internal/config"
	"github.com/cvdeck/cv-deck/backend/internal/logging"
	"github.com/cvdeck/cv-deck/backend/internal/repository"
)

// app holds what every subcommand needs once the root command has run.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "profilectl",
		Short:         "Manage the CV deck profile database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := logging.New(cfg.Log.Level, "console")
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
	}

	root.AddCommand(newMigrateCmd(a))
	root.AddCommand(newSeedCmd(a))
	root.AddCommand(newPromptCmd(a))
	root.AddCommand(newContactsCmd(a))
	return root
}

// openDB opens and migrates the configured database.
func (a *app) openDB() (*gorm.DB, error) {
	db, err := repository.Open(a.cfg.Database, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repository.Migrate(db); err != nil {
		_ = repository.Close(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}
