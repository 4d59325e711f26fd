package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scopeworks/discovery/errors"
	"github.com/scopeworks/discovery/store"
)

// DbCmd groups database maintenance operations.
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the discovery database",
	Long: `db — Manage discovery database operations

Examples:
  discovery db migrate                 # Apply pending schema migrations
  discovery db stats                   # Show row counts per table
  discovery db recount <project-id>    # Repair a project's drifted counters`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long:  "Display row counts for projects and every child table, plus the database path",
	RunE:  runDbStats,
}

var dbRecountCmd = &cobra.Command{
	Use:   "recount <project-id>",
	Short: "Recompute a project's denormalized counters from live rows",
	Args:  cobra.ExactArgs(1),
	RunE:  runDbRecount,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
	DbCmd.AddCommand(dbRecountCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	// openDatabase migrates as a side effect
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	fmt.Println("Migrations applied")
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	tables := []string{
		"projects", "gaps", "conflicts", "ambiguities", "questions",
		"documents", "context_events", "deliverables", "auth_keys",
	}

	fmt.Println("Database Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Database Path: %s\n\n", cfg.Database.Path)

	for _, table := range tables {
		var count int
		err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to count %s: %w", table, err)
		}
		fmt.Printf("%-16s %d\n", table, count)
	}
	return nil
}

func runDbRecount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	projects := store.NewProjectStore(database)
	project, err := projects.RecountChildren(context.Background(), args[0])
	if err != nil {
		return errors.Wrap(err, "recount project children")
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(project)
}
