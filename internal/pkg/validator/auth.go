package validator

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/twinlyai/bot-backend/internal/entity"
)

const (
	minPasswordLength = 8
	maxPasswordBytes  = 72
	maxBotNameLength  = 100
)

// ValidateSignup validates SignupRequest
func (v *Validator) ValidateSignup(req *entity.SignupRequest) error {
	if req.Email == "" {
		return fmt.Errorf("%w: email", entity.ErrMissingField)
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return fmt.Errorf("%w: email is not a valid address", entity.ErrInvalidParameter)
	}

	if req.Password == "" {
		return fmt.Errorf("%w: password", entity.ErrMissingField)
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", entity.ErrInvalidParameter, minPasswordLength)
	}
	if len(req.Password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", entity.ErrInvalidParameter, maxPasswordBytes)
	}

	return nil
}

// ValidateLogin validates LoginRequest
func (v *Validator) ValidateLogin(req *entity.LoginRequest) error {
	if req.Email == "" {
		return fmt.Errorf("%w: username", entity.ErrMissingField)
	}
	if req.Password == "" {
		return fmt.Errorf("%w: password", entity.ErrMissingField)
	}
	return nil
}

// ValidateBotName validates the display name used by create and rename
func (v *Validator) ValidateBotName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name", entity.ErrMissingField)
	}
	if utf8.RuneCountInString(name) > maxBotNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", entity.ErrInvalidParameter, maxBotNameLength)
	}
	return nil
}
