package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// serveCmd groups the long running processes of msgbroker
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the message broker processes",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.UsageString())
		os.Exit(2)
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
