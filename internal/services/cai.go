package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/validation"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

var prefixPattern = regexp.MustCompile(`^[0-9]{3}-[0-9]{3}-[0-9]{2}$`)

type CAIInput struct {
	Code       string `json:"code"`
	Prefix     string `json:"prefix"`
	RangeStart int64  `json:"range_start"`
	RangeEnd   int64  `json:"range_end"`
	Deadline   string `json:"deadline"` // YYYY-MM-DD
}

func (in *CAIInput) normalize() {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Prefix = strings.TrimSpace(in.Prefix)
	in.Deadline = strings.TrimSpace(in.Deadline)
}

func (in CAIInput) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("code", in.Code, v)
	validation.CAICode("code", in.Code, v)
	validation.Required("prefix", in.Prefix, v)
	if in.Prefix != "" && !prefixPattern.MatchString(in.Prefix) {
		v.Add("prefix", validation.CodeOutOfRange)
	}
	if in.RangeStart < 1 {
		v.Add("range_start", validation.CodePositive)
	}
	if in.RangeEnd < in.RangeStart {
		v.Add("range_end", validation.CodeOutOfRange)
	}
	validation.Required("deadline", in.Deadline, v)
	if in.Deadline != "" {
		if _, err := time.Parse(DateLayout, in.Deadline); err != nil {
			v.Add("deadline", validation.CodeInvalidDate)
		}
	}
	return v
}

// ExpiryOptions selects CAIs needing renewal: deadline within WithinDays, or
// at least Threshold of the range used.
type ExpiryOptions struct {
	WithinDays int
	Threshold  float64
}

// Expiry reasons.
const (
	ReasonExpired      = "expired"
	ReasonDeadlineSoon = "deadline_soon"
	ReasonExhausted    = "exhausted"
	ReasonRangeLow     = "range_low"
)

// CAIStatus is a CAI together with its renewal diagnostics.
type CAIStatus struct {
	CAI       models.CAI `json:"cai"`
	DaysLeft  int        `json:"days_left"`
	Remaining int64      `json:"remaining"`
	UsedRatio float64    `json:"used_ratio"`
	Expired   bool       `json:"expired"`
	Reasons   []string   `json:"reasons"`
}

// Evaluate builds the status of c at now. Reasons is empty when no renewal is needed.
func Evaluate(c models.CAI, now time.Time, opts ExpiryOptions) CAIStatus {
	st := CAIStatus{
		CAI:       c,
		DaysLeft:  c.DaysLeft(now),
		Remaining: c.Remaining(),
		UsedRatio: c.UsedRatio(),
		Expired:   c.IsExpired(now),
		Reasons:   []string{},
	}
	switch {
	case st.Expired:
		st.Reasons = append(st.Reasons, ReasonExpired)
	case st.DaysLeft <= opts.WithinDays:
		st.Reasons = append(st.Reasons, ReasonDeadlineSoon)
	}
	switch {
	case st.Remaining == 0:
		st.Reasons = append(st.Reasons, ReasonExhausted)
	case opts.Threshold > 0 && st.UsedRatio >= opts.Threshold:
		st.Reasons = append(st.Reasons, ReasonRangeLow)
	}
	return st
}

type CAIService struct {
	db  *gorm.DB
	Now func() time.Time
}

func NewCAIService(db *gorm.DB) *CAIService {
	return &CAIService{db: db, Now: time.Now}
}

// List returns the user's CAIs, latest deadline first.
func (s *CAIService) List(ctx context.Context, userID uint, q ListQuery) (Page[models.CAI], error) {
	tx := s.db.WithContext(ctx).Model(&models.CAI{}).Where("user_id = ?", userID)
	tx = search(tx, strings.TrimSpace(q.Search), "code", "prefix")
	return paginate[models.CAI](tx, q, "deadline DESC, id DESC")
}

func (s *CAIService) Get(ctx context.Context, userID, id uint) (*models.CAI, error) {
	var c models.CAI
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// Create registers a new authorization. Numbering starts at RangeStart.
func (s *CAIService) Create(ctx context.Context, userID uint, in CAIInput) (*models.CAI, error) {
	in.normalize()
	if err := invalid(in.Validate()); err != nil {
		return nil, err
	}
	company, err := requireCompany(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	deadline, _ := time.Parse(DateLayout, in.Deadline)
	c := &models.CAI{
		UserID:        userID,
		CompanyID:     company.ID,
		Code:          in.Code,
		Prefix:        in.Prefix,
		RangeStart:    in.RangeStart,
		RangeEnd:      in.RangeEnd,
		CurrentNumber: in.RangeStart - 1,
		Deadline:      deadline,
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, duplicate(err)
	}
	return c, nil
}

// Update corrects a CAI typed in wrong. Once a number has been used the
// authorization is fixed and ErrInUse is returned.
func (s *CAIService) Update(ctx context.Context, userID, id uint, in CAIInput) (*models.CAI, error) {
	in.normalize()
	if err := invalid(in.Validate()); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.CurrentNumber >= c.RangeStart {
		return nil, ErrInUse
	}
	c.Deadline, _ = time.Parse(DateLayout, in.Deadline)
	c.Code = in.Code
	c.Prefix = in.Prefix
	c.RangeStart = in.RangeStart
	c.RangeEnd = in.RangeEnd
	c.CurrentNumber = in.RangeStart - 1
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, duplicate(err)
	}
	return c, nil
}

// Delete removes a CAI from which no number has been used yet.
func (s *CAIService) Delete(ctx context.Context, userID, id uint) error {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if c.CurrentNumber >= c.RangeStart {
		return ErrInUse
	}
	return s.db.WithContext(ctx).Delete(c).Error
}

// Expiring returns the user's CAIs that need renewal.
func (s *CAIService) Expiring(ctx context.Context, userID uint, opts ExpiryOptions) ([]CAIStatus, error) {
	return s.expiring(s.db.WithContext(ctx).Where("user_id = ?", userID), opts)
}

// ExpiringAll returns every CAI that needs renewal, across users. Used by the
// scheduled watch.
func (s *CAIService) ExpiringAll(ctx context.Context, opts ExpiryOptions) ([]CAIStatus, error) {
	return s.expiring(s.db.WithContext(ctx), opts)
}

func (s *CAIService) expiring(tx *gorm.DB, opts ExpiryOptions) ([]CAIStatus, error) {
	var cais []models.CAI
	if err := tx.Order("deadline ASC, id ASC").Find(&cais).Error; err != nil {
		return nil, err
	}
	now := s.Now()
	out := []CAIStatus{}
	for _, c := range cais {
		if st := Evaluate(c, now, opts); len(st.Reasons) > 0 {
			out = append(out, st)
		}
	}
	return out, nil
}

// active returns the usable CAI with the earliest deadline. When none is
// usable the error tells why: ErrCAIExpired, ErrCAIExhausted or ErrNoActiveCAI.
func (s *CAIService) active(tx *gorm.DB, userID uint, now time.Time) (*models.CAI, error) {
	var cais []models.CAI
	if err := tx.Where("user_id = ?", userID).Order("deadline ASC, id ASC").Find(&cais).Error; err != nil {
		return nil, err
	}
	if len(cais) == 0 {
		return nil, ErrNoActiveCAI
	}
	var sawExhausted bool
	for i := range cais {
		c := &cais[i]
		if c.IsExpired(now) {
			continue
		}
		if c.Remaining() == 0 {
			sawExhausted = true
			continue
		}
		return c, nil
	}
	if sawExhausted {
		return nil, ErrCAIExhausted
	}
	return nil, ErrCAIExpired
}

// NextNumber reserves the next number of c inside tx and returns it formatted.
// The increment is a single conditional UPDATE so concurrent issuers never
// share a number.
func (s *CAIService) NextNumber(tx *gorm.DB, c *models.CAI, now time.Time) (string, error) {
	if c.IsExpired(now) {
		return "", ErrCAIExpired
	}
	res := tx.Model(&models.CAI{}).
		Where("id = ? AND current_number < range_end", c.ID).
		UpdateColumn("current_number", gorm.Expr("current_number + 1"))
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", ErrCAIExhausted
	}
	if err := tx.Model(&models.CAI{}).Select("current_number").Where("id = ?", c.ID).
		Scan(&c.CurrentNumber).Error; err != nil {
		return "", err
	}
	return c.FormatNumber(c.CurrentNumber), nil
}
