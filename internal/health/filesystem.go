package health

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FilesystemChecker provides filesystem health checks.
type FilesystemChecker struct{}

// NewFilesystemChecker creates a new filesystem checker.
func NewFilesystemChecker() *FilesystemChecker {
	return &FilesystemChecker{}
}

// CheckFolderAccessible verifies that a path exists and is a directory.
func (c *FilesystemChecker) CheckFolderAccessible(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", path)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied: %s", path)
		}
		return fmt.Errorf("cannot access path: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	return nil
}

// CheckFolderWritable creates and removes a probe file in path.
func (c *FilesystemChecker) CheckFolderWritable(path string) error {
	probe := filepath.Join(path, ".serialgrab_probe_"+uuid.NewString()[:8])

	f, err := os.Create(probe)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("folder is read-only: %s", path)
		}
		return fmt.Errorf("cannot write to folder: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(probe)
		return fmt.Errorf("cannot close probe file: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("cannot remove probe file: %w", err)
	}
	return nil
}

// EnsureWritable creates path when missing and checks it can take files.
func (c *FilesystemChecker) EnsureWritable(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("cannot create folder: %w", err)
	}
	if err := c.CheckFolderAccessible(path); err != nil {
		return err
	}
	return c.CheckFolderWritable(path)
}
