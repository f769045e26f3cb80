package scan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DirStore reads scan records from a directory holding one file per scan
type DirStore struct {
	dir    string
	logger Logger
}

// NewDirStore creates a store over dir, creating the directory if needed
func NewDirStore(dir string, logger Logger) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scans directory: %w", err)
	}
	return &DirStore{dir: dir, logger: logger}, nil
}

// Dir returns the scans directory
func (s *DirStore) Dir() string {
	return s.dir
}

// Records loads every record file in the directory, in file name order.
// Files that cannot be read or parsed are skipped with a warning.
func (s *DirStore) Records() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans directory: %w", err)
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !recognized(entry.Name()) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		rec, err := ReadRecordFile(path)
		if err != nil {
			s.logger.Warn("scan_load_failed", fmt.Sprintf("Failed to load scan result %s", path), map[string]interface{}{
				"file":  entry.Name(),
				"error": err.Error(),
			})
			continue
		}
		records = append(records, *rec)
	}

	s.logger.Debug("scans_loaded", fmt.Sprintf("Loaded %d scan results", len(records)), map[string]interface{}{
		"dir":   s.dir,
		"count": len(records),
	})
	return records, nil
}

// ReadRecordFile parses a single record file. JSON and YAML are supported.
func ReadRecordFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty file")
	}

	var rec Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
	}

	rec.File = filepath.Base(path)
	return &rec, nil
}

func recognized(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
