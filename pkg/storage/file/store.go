package file

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/nsyszr/msgbroker/pkg/storage"
	"github.com/pkg/errors"
)

const (
	messagesFileName  = "messages.json"
	scheduledFileName = "scheduled-messages.json"
)

// store keeps each snapshot in its own JSON document inside dir:
//   - messages.json            (message log and topic directory)
//   - scheduled-messages.json  (pending scheduled messages)
type store struct {
	messages  *messageStore
	scheduled *scheduledStore
}

// NewStore creates a file based Storage interface rooted at dir. The
// directory is created if it does not exist.
func NewStore(dir string) (storage.Interface, error) {
	if dir == "" {
		return nil, errors.New("data directory is required for the file store")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}

	return &store{
		messages:  &messageStore{path: filepath.Join(dir, messagesFileName)},
		scheduled: &scheduledStore{path: filepath.Join(dir, scheduledFileName)},
	}, nil
}

// Messages returns a sub-store for the message log snapshot
func (s *store) Messages() storage.MessageStore {
	return s.messages
}

// Scheduled returns a sub-store for the scheduled messages snapshot
func (s *store) Scheduled() storage.ScheduledStore {
	return s.scheduled
}

func (s *store) Close() error {
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return storage.ErrNotFound
		}
		return errors.Wrapf(err, "failed to read %s", filepath.Base(path))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "failed to decode %s", filepath.Base(path))
	}
	return nil
}

// writeJSON replaces path atomically, a crash during the write leaves the
// previous snapshot in place.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", filepath.Base(path))
	}

	tmp, err := ioutil.TempFile(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary snapshot file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to write %s", filepath.Base(path))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to sync %s", filepath.Base(path))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to close %s", filepath.Base(path))
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to replace %s", filepath.Base(path))
	}
	return nil
}
