package backends

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/orglens/orgsync/audit"
)

// LocalStore persists records as one JSON file per record under a
// directory on the local filesystem
type LocalStore struct {
	config     *LocalConfig
	configured bool
}

// LocalConfig contains local filesystem store configuration
type LocalConfig struct {
	Dir         string `json:"dir"`
	Permissions int    `json:"permissions"`
}

// NewLocalStore creates a new local filesystem store
func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

// Configure sets up the local filesystem store
func (s *LocalStore) Configure(ctx context.Context, config map[string]interface{}) error {
	localConfig, err := parseLocalConfig(config)
	if err != nil {
		return fmt.Errorf("invalid local configuration: %w", err)
	}

	s.config = localConfig

	if err := os.MkdirAll(localConfig.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	s.configured = true
	return nil
}

// Put stores a record by id
func (s *LocalStore) Put(ctx context.Context, record *audit.Record) error {
	if !s.configured {
		return fmt.Errorf("store not configured")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	recordFile := s.recordPath(record.ID)

	// Write through a temporary file so a crash never leaves a
	// half-written record behind.
	tempFile := recordFile + ".tmp"
	if err := os.WriteFile(tempFile, data, fs.FileMode(s.config.Permissions)); err != nil {
		return fmt.Errorf("failed to write temporary record file: %w", err)
	}

	if err := os.Rename(tempFile, recordFile); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to replace record file: %w", err)
	}

	return nil
}

// Get retrieves a record by id
func (s *LocalStore) Get(ctx context.Context, id string) (*audit.Record, error) {
	if !s.configured {
		return nil, fmt.Errorf("store not configured")
	}

	recordFile := s.recordPath(id)

	data, err := os.ReadFile(recordFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("record '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	var record audit.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse record JSON: %w", err)
	}

	return &record, nil
}

// List lists all stored record ids in lexicographic order
func (s *LocalStore) List(ctx context.Context) ([]string, error) {
	if !s.configured {
		return nil, fmt.Errorf("store not configured")
	}

	entries, err := os.ReadDir(s.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list record directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a record by id
func (s *LocalStore) Delete(ctx context.Context, id string) error {
	if !s.configured {
		return fmt.Errorf("store not configured")
	}

	if err := os.Remove(s.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete record file: %w", err)
	}
	return nil
}

func (s *LocalStore) recordPath(id string) string {
	// Strip path separators so a hostile id cannot escape the directory
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\':
			return '_'
		}
		return r
	}, id)
	return filepath.Join(s.config.Dir, safe+".json")
}

func parseLocalConfig(config map[string]interface{}) (*LocalConfig, error) {
	cfg := &LocalConfig{
		Permissions: 0o644,
	}

	if dir, ok := config["dir"].(string); ok {
		cfg.Dir = dir
	}

	if perms, ok := config["permissions"].(float64); ok {
		cfg.Permissions = int(perms)
	} else if perms, ok := config["permissions"].(int); ok {
		cfg.Permissions = perms
	}

	if cfg.Dir == "" {
		return nil, fmt.Errorf("dir is required")
	}

	return cfg, nil
}
