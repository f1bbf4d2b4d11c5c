package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CAI is a tax-authority authorization: a block of invoice numbers that may be
// used until Deadline.
type CAI struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID    uint `gorm:"index;not null" json:"user_id"`
	CompanyID uint `gorm:"index;not null" json:"company_id"`

	Code string `gorm:"size:37;not null" json:"code"`
	// Prefix is the establishment-point-document type part, e.g. 000-001-01.
	Prefix        string    `gorm:"size:20;not null" json:"prefix"`
	RangeStart    int64     `gorm:"not null" json:"range_start"`
	RangeEnd      int64     `gorm:"not null" json:"range_end"`
	CurrentNumber int64     `gorm:"not null" json:"current_number"` // last number used
	Deadline      time.Time `gorm:"not null" json:"deadline"`
}

func (c *CAI) TableName() string { return "cais" }

// GetUserID implements the Ownable interface.
func (c *CAI) GetUserID() uint {
	return c.UserID
}

// Remaining returns how many numbers are left in the range.
func (c *CAI) Remaining() int64 {
	if c.CurrentNumber >= c.RangeEnd {
		return 0
	}
	return c.RangeEnd - c.CurrentNumber
}

// UsedRatio returns the used fraction of the range, in [0,1].
func (c *CAI) UsedRatio() float64 {
	size := c.RangeEnd - c.RangeStart + 1
	if size <= 0 {
		return 1
	}
	used := c.CurrentNumber - c.RangeStart + 1
	switch {
	case used <= 0:
		return 0
	case used >= size:
		return 1
	}
	return float64(used) / float64(size)
}

// IsExpired reports whether the deadline has passed at now. The deadline day
// itself is still valid.
func (c *CAI) IsExpired(now time.Time) bool {
	y, m, d := c.Deadline.Date()
	endOfDay := time.Date(y, m, d, 23, 59, 59, 0, c.Deadline.Location())
	return now.After(endOfDay)
}

// DaysLeft returns whole days from now until the deadline (negative once expired).
func (c *CAI) DaysLeft(now time.Time) int {
	return int(c.Deadline.Sub(now).Hours() / 24)
}

// FormatNumber renders an invoice number as prefix plus eight digits,
// e.g. 000-001-01-00000042.
func (c *CAI) FormatNumber(n int64) string {
	return fmt.Sprintf("%s-%08d", c.Prefix, n)
}
