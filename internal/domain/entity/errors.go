package entity

import "errors"

var (
	// ErrNotPDF is returned for an upload that is not a PDF document
	ErrNotPDF = errors.New("only PDF documents are accepted")

	// ErrZeroPages is returned when a document has no pages
	ErrZeroPages = errors.New("document has no pages")

	// ErrDocumentIndex is returned for a document index outside the session
	ErrDocumentIndex = errors.New("document index out of range")

	// ErrInvalidRating is returned for a star rating outside 1..5
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidProvider is returned when a provider profile fails validation
	ErrInvalidProvider = errors.New("invalid provider profile")
)
