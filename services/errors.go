package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrForbidden         = errors.New("not allowed to access this resource")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadySubmitted  = errors.New("already submitted")
	ErrConflict          = errors.New("resource already exists")
	ErrBookingOverlap    = errors.New("tutor already has a booking in that time window")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidCredential = errors.New("invalid email or password")
)

// ProfanityError carries the words that caused a rejection.
type ProfanityError struct {
	Words []string
}

func (e *ProfanityError) Error() string {
	return fmt.Sprintf("content contains inappropriate language: %v", e.Words)
}

// ErrProfanity matches any *ProfanityError via errors.Is.
var ErrProfanity = errors.New("inappropriate language")

func (e *ProfanityError) Is(target error) bool { return target == ErrProfanity }

// InputError wraps ErrInvalidInput with a client-facing message.
func InputError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// notFound converts gorm's not-found into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
