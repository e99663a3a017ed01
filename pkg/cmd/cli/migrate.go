package cli

import (
	"fmt"
	"os"

	colorable "github.com/mattn/go-colorable"
	"github.com/nsyszr/msgbroker/config"
	"github.com/nsyszr/msgbroker/pkg/storage/postgres"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type MigrateHandler struct {
	c *config.Config
}

func newMigrateHandler(c *config.Config) *MigrateHandler {
	return &MigrateHandler{c: c}
}

// getDatabaseURL returns the url argument at position, or the configured
// DATABASE_URL if the argument is missing.
func getDatabaseURL(cmd *cobra.Command, args []string, position int, fallback string) (url string) {
	if len(args) > position {
		url = args[position]
	}
	if url == "" {
		url = fallback
	}
	if url == "" {
		fmt.Println(cmd.UsageString())
	}
	return
}

func (h *MigrateHandler) MigrateSQL(cmd *cobra.Command, args []string) {
	url := getDatabaseURL(cmd, args, 0, h.c.DatabaseURL)
	if url == "" {
		os.Exit(2) // Return missing keyword or command
	}

	log.SetLevel(log.DebugLevel)
	log.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})
	log.SetOutput(colorable.NewColorableStdout())

	log.Info("Applying SQL migration...")

	db, err := postgres.Open(url)
	if err != nil {
		log.Errorf("An error occurred while connecting to SQL: %s", err)
		os.Exit(1)
	}
	defer db.Close()

	n, err := postgres.Migrate(db)
	if err != nil {
		log.Errorf("An error occurred while running the migrations: %s", err)
		os.Exit(1)
	}
	log.Infof("Migration successful! Applied a total of %d migrations.", n)
}
