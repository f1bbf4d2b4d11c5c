// Package validation holds the form-level checks shared by handlers and services.
// Each check records a violation code under the field name; codes are
// translated for display by the i18n package.
package validation

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has a violation.
func (v Violations) Add(field, code string) {
	if _, exists := v[field]; !exists {
		v[field] = code
	}
}

// Has reports whether field has a violation.
func (v Violations) Has(field string) bool {
	_, ok := v[field]
	return ok
}

// Violation codes.
const (
	CodeRequired     = "required"
	CodeInvalidEmail = "invalid_email"
	CodeInvalidRTN   = "invalid_rtn"
	CodePositive     = "must_be_positive"
	CodeNonNegative  = "must_not_be_negative"
	CodeOutOfRange   = "out_of_range"
	CodeTooLong      = "too_long"
	CodeTooShort     = "too_short"
	CodeInvalidCAI   = "invalid_cai"
	CodeInvalidDate  = "invalid_date"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	rtnDigits  = regexp.MustCompile(`^[0-9]{14}$`)
	caiPattern = regexp.MustCompile(`^[0-9A-F]{6}(-[0-9A-F]{6}){4}-[0-9A-F]{2}$`)
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("rtn", func(fl validator.FieldLevel) bool {
			return rtnDigits.MatchString(NormalizeRTN(fl.Field().String()))
		})
	})
	return validate
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, CodeRequired)
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v.Add(field, CodePositive)
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v.Add(field, CodeNonNegative)
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v.Add(field, CodeOutOfRange)
	}
}

func MaxLen(field, value string, max int, v Violations) {
	if len([]rune(value)) > max {
		v.Add(field, CodeTooLong)
	}
}

// MinLen flags non-empty values shorter than min runes.
func MinLen(field, value string, min int, v Violations) {
	if value != "" && len([]rune(value)) < min {
		v.Add(field, CodeTooShort)
	}
}

// RequiredDate flags the zero time.
func RequiredDate(field string, t time.Time, v Violations) {
	if t.IsZero() {
		v.Add(field, CodeRequired)
	}
}

// Email checks a single bare address (no display name). Empty values are
// left to Required.
func Email(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if !IsEmail(value) {
		v.Add(field, CodeInvalidEmail)
	}
}

// IsEmail reports whether s is a syntactically valid address with a dotted domain.
func IsEmail(s string) bool {
	if engine().Var(s, "email") != nil {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// RTN checks a Honduran tax id: 14 digits once dashes and spaces are removed.
// Empty values are left to Required.
func RTN(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if !IsRTN(value) {
		v.Add(field, CodeInvalidRTN)
	}
}

// IsRTN reports whether s is a valid RTN.
func IsRTN(s string) bool {
	return engine().Var(s, "rtn") == nil
}

// NormalizeRTN strips the separators users commonly type (0801-1990-123456).
func NormalizeRTN(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// CAICode checks the authorization code printed on every invoice,
// e.g. 35A7E1-7A2F0B-4D4DA0-63BE03-090994-9D.
func CAICode(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if !caiPattern.MatchString(strings.ToUpper(strings.TrimSpace(value))) {
		v.Add(field, CodeInvalidCAI)
	}
}
