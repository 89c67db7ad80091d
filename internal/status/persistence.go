// Package status provides run statistics and their persistence.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusFileName is the name of the file holding the last run
	StatusFileName = "last-run.json"
)

// StatusPersistence defines the interface for run statistics persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus stores the statistics of the last run, replacing the previous ones
	SaveStatus(ctx context.Context, stats *RunStats) error

	// LoadStatus loads the statistics of the last run.
	// Returns nil without error if no run was recorded yet.
	LoadStatus(ctx context.Context) (*RunStats, error)
}

// fileStatusPersistence implements StatusPersistence using local filesystem
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a new file-based status persistence writing into basePath
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{
		basePath: basePath,
	}
}

// SaveStatus writes the statistics to a JSON file, atomically
func (f *fileStatusPersistence) SaveStatus(_ context.Context, stats *RunStats) error {
	if err := os.MkdirAll(f.basePath, 0750); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	filePath := filepath.Join(f.basePath, StatusFileName)

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run %s: %w", stats.RunID, err)
	}

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file: %w", err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file: %w", err)
	}

	return nil
}

// LoadStatus reads the statistics of the last run
func (f *fileStatusPersistence) LoadStatus(_ context.Context) (*RunStats, error) {
	filePath := filepath.Join(f.basePath, StatusFileName)

	// #nosec G304 -- filePath is built from the configured status directory
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var stats RunStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status file: %w", err)
	}

	return &stats, nil
}
