package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirPublisher keeps snapshots in a local directory.
type DirPublisher struct {
	root string
}

func NewDirPublisher(root string) *DirPublisher {
	return &DirPublisher{root: root}
}

func (d *DirPublisher) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("snapshot name %q escapes the publish directory", name)
	}
	return filepath.Join(d.root, clean), nil
}

// Fetch reads name from the directory.
func (d *DirPublisher) Fetch(_ context.Context, name string) ([]byte, error) {
	path, err := d.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Publish writes every file through a temp file and rename.
func (d *DirPublisher) Publish(_ context.Context, _ string, files []File) error {
	for _, f := range files {
		path, err := d.path(f.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
		tmpPath := path + ".tmp"
		if err := os.WriteFile(tmpPath, f.Content, 0o644); err != nil {
			return fmt.Errorf("write snapshot tmp: %w", err)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return fmt.Errorf("rename snapshot: %w", err)
		}
	}
	return nil
}
