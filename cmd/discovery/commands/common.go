package commands

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/scopeworks/discovery/config"
	"github.com/scopeworks/discovery/db"
	"github.com/scopeworks/discovery/errors"
	"github.com/scopeworks/discovery/logger"
)

// loadConfig reads configuration honoring the root --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	return config.Load(configPath)
}

// openDatabase opens the configured database and applies pending migrations.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	database, err := db.Open(cfg.Database.Path, logger.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "migrate database")
	}
	return database, nil
}
