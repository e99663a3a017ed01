package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// migrateCmd groups the schema commands of the storage backends
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Prepare the storage backends of the message broker",
	Long: `Prepare the storage backends of the message broker.

The file and memory stores need no preparation, only the PostgreSQL store
keeps a schema that has to be migrated before "serve broker" can use it.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.UsageString())
		os.Exit(2)
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
