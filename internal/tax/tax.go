// Package tax computes the ISV (impuesto sobre ventas) summary of an invoice.
//
// Lines are grouped into four buckets (exempt, exonerated, taxed at 15% and
// taxed at 18%). Every amount in the resulting Summary is truncated, never
// rounded, to two decimals.
package tax

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Category is the tax bucket a line belongs to.
type Category string

const (
	Exempt     Category = "exempt"
	Exonerated Category = "exonerated"
	Taxed15    Category = "taxed15"
	Taxed18    Category = "taxed18"
)

// Rates applied to the taxed buckets.
const (
	Rate15 = 0.15
	Rate18 = 0.18
)

var (
	ErrUnknownCategory = errors.New("tax: unknown category")
	ErrNegativeAmount  = errors.New("tax: negative amount")
	ErrDiscountTooHigh = errors.New("tax: discount exceeds line amount")
)

// Categories lists every known category in display order.
func Categories() []Category {
	return []Category{Exempt, Exonerated, Taxed15, Taxed18}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Exempt, Exonerated, Taxed15, Taxed18:
		return true
	}
	return false
}

// Rate returns the ISV rate applied to the category (0 for exempt/exonerated).
func (c Category) Rate() float64 {
	switch c {
	case Taxed15:
		return Rate15
	case Taxed18:
		return Rate18
	}
	return 0
}

// ParseCategory accepts the canonical names plus the "15"/"18" shorthands.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exempt", "exento":
		return Exempt, nil
	case "exonerated", "exonerado":
		return Exonerated, nil
	case "taxed15", "15", "isv15":
		return Taxed15, nil
	case "taxed18", "18", "isv18":
		return Taxed18, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Line is one invoice line as seen by the tax computation.
type Line struct {
	Quantity  float64
	UnitPrice float64
	Discount  float64
	Category  Category
}

// Gross is quantity times unit price.
func (l Line) Gross() float64 { return l.Quantity * l.UnitPrice }

// Net is the gross amount minus the line discount.
func (l Line) Net() float64 { return l.Gross() - l.Discount }

// Summary is the tax breakdown of an invoice.
type Summary struct {
	Subtotal   float64 `json:"subtotal"`
	Discount   float64 `json:"discount"`
	Exempt     float64 `json:"exempt"`
	Exonerated float64 `json:"exonerated"`
	Taxed15    float64 `json:"taxed15"`
	Taxed18    float64 `json:"taxed18"`
	ISV15      float64 `json:"isv15"`
	ISV18      float64 `json:"isv18"`
	Total      float64 `json:"total"`
}

// Taxable returns the sum of the four buckets.
func (s Summary) Taxable() float64 {
	return s.Exempt + s.Exonerated + s.Taxed15 + s.Taxed18
}

// Compute builds the Summary for the given lines.
//
// Buckets hold net amounts (gross minus discount). ISV is computed on the
// truncated bucket so the printed figures add up:
// total = exempt + exonerated + taxed15 + taxed18 + isv15 + isv18.
func Compute(lines []Line) (Summary, error) {
	var subtotal, discount float64
	buckets := make(map[Category]float64, 4)
	for i, l := range lines {
		if !l.Category.Valid() {
			return Summary{}, fmt.Errorf("line %d: %w: %q", i+1, ErrUnknownCategory, l.Category)
		}
		if l.Quantity < 0 || l.UnitPrice < 0 || l.Discount < 0 {
			return Summary{}, fmt.Errorf("line %d: %w", i+1, ErrNegativeAmount)
		}
		if l.Discount > l.Gross() {
			return Summary{}, fmt.Errorf("line %d: %w", i+1, ErrDiscountTooHigh)
		}
		subtotal += l.Gross()
		discount += l.Discount
		buckets[l.Category] += l.Net()
	}

	s := Summary{
		Subtotal:   Truncate2(subtotal),
		Discount:   Truncate2(discount),
		Exempt:     Truncate2(buckets[Exempt]),
		Exonerated: Truncate2(buckets[Exonerated]),
		Taxed15:    Truncate2(buckets[Taxed15]),
		Taxed18:    Truncate2(buckets[Taxed18]),
	}
	s.ISV15 = Truncate2(s.Taxed15 * Rate15)
	s.ISV18 = Truncate2(s.Taxed18 * Rate18)
	s.Total = Truncate2(s.Taxable() + s.ISV15 + s.ISV18)
	return s, nil
}

// Truncate2 drops everything past the second decimal.
// Values are first snapped to 1e-6 of a cent so binary noise such as
// 0.29*100 = 28.999999999999996 does not lose a cent.
func Truncate2(x float64) float64 {
	cents := math.Round(x*100*1e6) / 1e6
	return math.Trunc(cents) / 100
}
