package notes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// VaultStore keeps notes as markdown files under a root directory.
// Refs are slash-separated paths relative to the root.
type VaultStore struct {
	root string
}

func NewVaultStore(root string) *VaultStore {
	return &VaultStore{root: root}
}

func (s *VaultStore) ReadBody(ctx context.Context, ref Ref) (string, error) {
	data, err := os.ReadFile(s.filePath(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNoteNotFound, ref)
		}
		return "", fmt.Errorf("could not read note %s: %w", ref, err)
	}
	return string(data), nil
}

func (s *VaultStore) WriteBody(ctx context.Context, ref Ref, body string) error {
	path := s.filePath(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create note folder for %s: %w", ref, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("could not write note %s: %w", ref, err)
	}
	return nil
}

// ResolveOrCreate returns the ref for the note at path, creating an empty
// note (and its parent folders) when none exists yet.
func (s *VaultStore) ResolveOrCreate(ctx context.Context, path string) (Ref, error) {
	ref := Ref(strings.TrimPrefix(path, "/"))
	filePath := s.filePath(ref)
	if _, err := os.Stat(filePath); err == nil {
		return ref, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("could not stat note %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", fmt.Errorf("could not create note folder for %s: %w", path, err)
	}
	if err := os.WriteFile(filePath, nil, 0o644); err != nil {
		return "", fmt.Errorf("could not create note %s: %w", path, err)
	}
	log.Infof("created note %s", ref)
	return ref, nil
}

func (s *VaultStore) filePath(ref Ref) string {
	return filepath.Join(s.root, filepath.FromSlash(string(ref)))
}
