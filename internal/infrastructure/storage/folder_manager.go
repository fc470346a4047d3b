package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/port"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// LocalFolderManager manages the per-requester folders of the document cache
type LocalFolderManager struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFolderManager creates a new LocalFolderManager
func NewLocalFolderManager(baseDir string, logger *zap.Logger) port.FolderManager {
	return &LocalFolderManager{
		baseDir: baseDir,
		logger:  logger,
	}
}

// List returns the folders directly under the base directory, oldest first.
// A missing base directory is an empty cache.
func (m *LocalFolderManager) List(ctx context.Context) ([]port.FolderInfo, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list cache folders: %w", err)
	}

	folders := make([]port.FolderInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		folders = append(folders, port.FolderInfo{Name: entry.Name(), ModTime: info.ModTime()})
	}

	sort.Slice(folders, func(i, j int) bool {
		return folders[i].ModTime.Before(folders[j].ModTime)
	})
	return folders, nil
}

// Delete removes a folder and all contents. Missing folders are not an error.
func (m *LocalFolderManager) Delete(ctx context.Context, name string) error {
	safeName := m.SanitizeName(name)
	if safeName != name {
		return fmt.Errorf("refusing to delete folder with unsafe name %q", name)
	}
	folderPath := filepath.Join(m.baseDir, safeName)

	if err := os.RemoveAll(folderPath); err != nil {
		m.logger.Error("Failed to delete folder",
			zap.String("folder_path", folderPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	m.logger.Debug("Deleted folder", zap.String("folder_path", folderPath))
	return nil
}

// SanitizeName keeps only letters, digits, hyphens and underscores.
// A name with nothing left becomes "_".
func (m *LocalFolderManager) SanitizeName(name string) string {
	name = unsafeNameChars.ReplaceAllString(name, "")
	if name == "" {
		return "_"
	}
	return name
}
