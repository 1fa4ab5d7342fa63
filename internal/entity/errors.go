package entity

import "errors"

// Domain errors
var (
	// Auth errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUserExists         = errors.New("an account with this email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("permission denied")

	// API key errors
	ErrAPIKeyNotFound = errors.New("api key not found")

	// Bot errors
	ErrBotNotFound   = errors.New("bot not found")
	ErrBotNotIndexed = errors.New("bot index not found, please upload a resume")

	// Document errors
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrExtractionFailed    = errors.New("failed to extract text from document")
	ErrEmptyDocument       = errors.New("document contains no text")
	ErrFileTooLarge        = errors.New("file too large")

	// Index errors
	ErrIndexLoad = errors.New("failed to load vector index")

	// Chat errors
	ErrEmptyMessage          = errors.New("message cannot be empty")
	ErrUnknownRole           = errors.New("unknown chat history role")
	ErrGenerationTimeout     = errors.New("generation timed out")
	ErrGenerationUnavailable = errors.New("generation service unavailable")
	ErrRateLimited           = errors.New("rate limit exceeded")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
)
