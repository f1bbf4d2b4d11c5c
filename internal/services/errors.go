package services

import (
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/validation"
)

// Sentinel errors. Their text is the error code sent to clients.
var (
	ErrNotFound          = errors.New("not_found")
	ErrDuplicate         = errors.New("already_exists")
	ErrInUse             = errors.New("in_use")
	ErrCompanyRequired   = errors.New("company_required")
	ErrNotDraft          = errors.New("not_draft")
	ErrEmptyInvoice      = errors.New("invoice_empty")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNoActiveCAI       = errors.New("no_active_cai")
	ErrCAIExpired        = errors.New("cai_expired")
	ErrCAIExhausted      = errors.New("cai_exhausted")
)

// ValidationError carries per-field violation codes.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f, code := range e.Violations {
		fields = append(fields, f+"="+code)
	}
	sort.Strings(fields)
	return "validation_failed: " + strings.Join(fields, ", ")
}

func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

// notFound maps gorm's record-not-found to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// duplicate maps a unique-index violation to ErrDuplicate.
func duplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}
