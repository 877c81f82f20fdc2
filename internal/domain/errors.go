package domain

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidConfig       = errors.New("invalid tracking configuration")
	ErrInvalidLimit        = errors.New("history limit must be zero or greater")
	ErrInvalidFieldName    = errors.New("invalid field name")
	ErrAlreadyRegistered   = errors.New("field already registered on document type")
	ErrReservedField       = errors.New("field is managed by the store")
	ErrUnknownDocumentType = errors.New("unknown document type")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrVersionConflict     = errors.New("document version changed concurrently")
	ErrCorruptHistory      = errors.New("stored history is unreadable")
	ErrUnknownOperation    = errors.New("unknown update operation")
	ErrEmptyUpdate         = errors.New("update payload is empty")
	ErrInvalidQuery        = errors.New("invalid query")
	ErrUnsupportedFormat   = errors.New("unsupported export format")
	ErrArchiveDisabled     = errors.New("history archive storage is not configured")
)
