package lark

import (
	"context"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
)

// ResourceGetter downloads message attachments
type ResourceGetter interface {
	GetResource(ctx context.Context, messageID, fileKey string) ([]byte, error)
}

// Fetcher implements port.DocumentFetcher with an on-disk cache laid out as
// <requester>/<file_key>.pdf, so each upload is downloaded once.
type Fetcher struct {
	api     ResourceGetter
	storage port.FileStorage
	folders port.FolderManager
	logger  *zap.Logger
}

// NewFetcher creates a caching document fetcher
func NewFetcher(api ResourceGetter, storage port.FileStorage, folders port.FolderManager, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		api:     api,
		storage: storage,
		folders: folders,
		logger:  logger,
	}
}

// Fetch returns the document bytes, from the cache when present
func (f *Fetcher) Fetch(ctx context.Context, file entity.FileHandle) ([]byte, error) {
	if file.FileKey == "" {
		return nil, fmt.Errorf("document has no file key")
	}

	cachePath := f.CachePath(file)
	if f.storage.Exists(ctx, cachePath) {
		data, err := f.storage.Read(ctx, cachePath)
		if err == nil {
			return data, nil
		}
		f.logger.Warn("Cached document unreadable, downloading again",
			zap.String("path", cachePath),
			zap.Error(err))
	}

	data, err := f.api.GetResource(ctx, file.MessageID, file.FileKey)
	if err != nil {
		return nil, err
	}

	// A cache write failure only costs a second download
	if err := f.storage.Save(ctx, cachePath, data); err != nil {
		f.logger.Warn("Failed to cache document",
			zap.String("path", cachePath),
			zap.Error(err))
	}
	return data, nil
}

// CachePath is the cache location of a document, relative to the cache root
func (f *Fetcher) CachePath(file entity.FileHandle) string {
	return path.Join(f.folders.SanitizeName(file.OwnerID), f.folders.SanitizeName(file.FileKey)+".pdf")
}
