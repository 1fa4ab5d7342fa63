package validator

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/twinlyai/bot-backend/internal/config"
	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/rag/extractor"
)

// Validator validates request payloads before they reach the usecases
type Validator struct {
	cfg config.FileUploadConfig
}

func NewValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateUpload checks the extension and size of an uploaded resume
func (v *Validator) ValidateUpload(fh *multipart.FileHeader) error {
	if fh == nil {
		return fmt.Errorf("%w: file", entity.ErrMissingField)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !extractor.IsSupported(ext) {
		return &extractor.UnsupportedFileTypeError{Ext: ext}
	}

	if fh.Size == 0 {
		return fmt.Errorf("%w: file '%s' is empty", entity.ErrEmptyDocument, fh.Filename)
	}

	if fh.Size > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, fh.Filename, fh.Size, v.cfg.MaxFileSize)
	}

	return nil
}

// SanitizeFilename sanitizes a filename for logging and storage
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
	)
	return replacer.Replace(filename)
}
