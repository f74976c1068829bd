package checkpoint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.crosspost/internal/model"
)

type fileStore struct {
	path string
}

func NewFileStore(path string) *fileStore {
	return &fileStore{path: path}
}

// Load reads the checkpoint. Besides {"id": ..., "error": ...} it accepts
// the legacy format, a bare id either as plain text or a JSON number/string.
func (s *fileStore) Load() (*model.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrorCheckpointMissing, s.path)
		}
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*model.Checkpoint, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", model.ErrorCheckpointMissing)
	}

	if data[0] == '{' {
		checkpoint := &model.Checkpoint{}
		if err := json.Unmarshal(data, checkpoint); err != nil {
			return nil, fmt.Errorf("unmarshalling checkpoint: %w", err)
		}
		if checkpoint.ID == "" {
			return nil, fmt.Errorf("checkpoint has no id")
		}
		return checkpoint, nil
	}

	var legacy json.RawMessage
	if err := json.Unmarshal(data, &legacy); err == nil {
		var id string
		if err := json.Unmarshal(legacy, &id); err == nil {
			return model.CleanCheckpoint(model.StatusID(id)), nil
		}
		var number json.Number
		if err := json.Unmarshal(legacy, &number); err == nil {
			return model.CleanCheckpoint(model.StatusID(number.String())), nil
		}
	}
	return model.CleanCheckpoint(model.StatusID(data)), nil
}

// Save replaces the checkpoint file. The new content is fsynced to a temp
// file in the same directory and renamed over the old one, so a crash
// leaves either the old or the new checkpoint.
func (s *fileStore) Save(checkpoint *model.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("marshalling checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing checkpoint: %w", err)
	}

	if err := syncDir(dir); err != nil {
		log.Warnf("checkpoint %s replaced but not yet durable: %v", s.path, err)
	}
	return nil
}

// syncDir flushes the rename of a file in dir to disk.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", dir, err)
	}
	return nil
}
