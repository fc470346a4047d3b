package port

import (
	"context"
	"time"
)

// FileStorage is the on-disk document cache. Paths are relative to its root.
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
	GetFullPath(relativePath string) string
}

// FolderInfo describes one requester's cache folder
type FolderInfo struct {
	Name    string
	ModTime time.Time
}

// FolderManager lists and removes per-requester cache folders
type FolderManager interface {
	List(ctx context.Context) ([]FolderInfo, error)
	Delete(ctx context.Context, name string) error
	SanitizeName(name string) string
}
