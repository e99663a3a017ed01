package server

import (
	"strings"

	"github.com/nsyszr/msgbroker/config"
	"github.com/nsyszr/msgbroker/pkg/storage"
	"github.com/nsyszr/msgbroker/pkg/storage/file"
	"github.com/nsyszr/msgbroker/pkg/storage/memory"
	"github.com/nsyszr/msgbroker/pkg/storage/postgres"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	storageDriverFile     = "file"
	storageDriverPostgres = "postgres"
	storageDriverMemory   = "memory"
)

// openStore returns nil without error if storage is disabled.
func openStore(c *config.Config) (storage.Interface, error) {
	if !c.StorageEnabled {
		log.Warn("Storage is disabled, state is lost on restart")
		return nil, nil
	}

	driver := strings.ToLower(c.StorageDriver)
	if driver == "" {
		driver = storageDriverFile
	}

	log.WithField("driver", driver).Info("Opening storage")

	switch driver {
	case storageDriverFile:
		return file.NewStore(c.DataDir)
	case storageDriverPostgres:
		db, err := postgres.Open(c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		n, err := postgres.Migrate(db)
		if err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to migrate database")
		}
		log.WithField("migrations", n).Info("Database schema is up to date")
		return postgres.NewStore(db), nil
	case storageDriverMemory:
		return memory.NewStore(), nil
	}

	return nil, errors.Errorf("unknown storage driver '%s'", c.StorageDriver)
}
