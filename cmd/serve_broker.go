package cmd

import (
	"github.com/nsyszr/msgbroker/pkg/cmd/server"
	"github.com/spf13/cobra"
)

// serveBrokerCmd represents the serve broker command
var serveBrokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Serve the message broker",
	Run:   server.RunServeBroker(c),
}

func init() {
	serveCmd.AddCommand(serveBrokerCmd)
}
