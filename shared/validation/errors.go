package validation

import "errors"

// ErrPayloadTooLarge is returned when the request body exceeds size limits
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrFileTooLarge is returned when a file exceeds its context ceiling
var ErrFileTooLarge = errors.New("file too large")

// ErrUnsupportedType is returned when a file's MIME type is not allowed in its context
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrUnknownContext is returned for an intake context other than image, document or audio
var ErrUnknownContext = errors.New("unknown intake context")
