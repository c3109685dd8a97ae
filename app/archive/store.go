package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store keeps raw harvested payloads on disk, one file per record, so
// imports can be replayed without refetching.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Put(name, content string) error {
	path := s.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create archive subdirectory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to archive %s: %w", name, err)
	}
	return nil
}

func (s *Store) Get(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", fmt.Errorf("failed to read archived %s: %w", name, err)
	}
	return string(data), nil
}

func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// path maps a record name to a file path. Names are OAI identifiers or
// object ids and may contain path-hostile characters.
func (s *Store) path(name string) string {
	safe := strings.NewReplacer("/", "_", ":", "_", "\\", "_", "..", "_").Replace(name)
	shard := "00"
	if len(safe) >= 2 {
		shard = safe[len(safe)-2:]
	}
	return filepath.Join(s.dir, shard, safe+".xml")
}
