package app

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnsupportedType  = errors.New("invalid file type")
	ErrInvalidFileName  = errors.New("invalid file name")
	ErrDocumentNotFound = errors.New("extracted content not found")
	ErrExtractionFailed = errors.New("failed to extract text from pdf")
)
