// Package pdf counts the pages of uploaded documents with MuPDF.
package pdf

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
)

// PageCounter implements port.PageCounter
type PageCounter struct {
	fetcher port.DocumentFetcher
	logger  *zap.Logger
}

// NewPageCounter creates a page counter reading documents through fetcher
func NewPageCounter(fetcher port.DocumentFetcher, logger *zap.Logger) *PageCounter {
	return &PageCounter{
		fetcher: fetcher,
		logger:  logger,
	}
}

// CountPages downloads the document and returns its page count
func (c *PageCounter) CountPages(ctx context.Context, file entity.FileHandle) (int, error) {
	data, err := c.fetcher.Fetch(ctx, file)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch document: %w", err)
	}

	pages, err := Count(data)
	if err != nil {
		c.logger.Error("Failed to count pages",
			zap.String("file_key", file.FileKey),
			zap.Int("size", len(data)),
			zap.Error(err))
		return 0, err
	}

	c.logger.Debug("Counted pages",
		zap.String("file_key", file.FileKey),
		zap.Int("pages", pages))
	return pages, nil
}

// Count returns the number of pages of an in-memory PDF. Data MuPDF cannot
// open yields an error wrapping entity.ErrNotPDF.
func Count(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("document is empty")
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", entity.ErrNotPDF, err)
	}
	defer doc.Close()

	// An empty document yields 0, which the order engine rejects as user input
	pages := doc.NumPage()
	if pages < 0 {
		pages = 0
	}
	return pages, nil
}
