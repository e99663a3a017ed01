package cmd

import (
	"github.com/spf13/cobra"
)

// migrateSQLCmd applies the snapshot table migrations to PostgreSQL
var migrateSQLCmd = &cobra.Command{
	Use:   "sql [database-url]",
	Short: "Create or upgrade the snapshot tables in PostgreSQL",
	Long: `Create or upgrade the messages, topics, scheduled_messages and snapshots
tables. The database URL defaults to DATABASE_URL if no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	Run:  cmdHandler.Migration.MigrateSQL,
}

func init() {
	migrateCmd.AddCommand(migrateSQLCmd)
}
