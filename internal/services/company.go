package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/validation"
)

// CompanyInput is the settings form of the issuing company.
type CompanyInput struct {
	Name    string `json:"name"`
	RTN     string `json:"rtn"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	LogoURL string `json:"logo_url"`
}

func (in *CompanyInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.RTN = validation.NormalizeRTN(in.RTN)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.LogoURL = strings.TrimSpace(in.LogoURL)
}

// Validate checks the form fields.
func (in CompanyInput) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.Required("rtn", in.RTN, v)
	validation.RTN("rtn", in.RTN, v)
	validation.Email("email", in.Email, v)
	validation.MaxLen("address", in.Address, 500, v)
	validation.MaxLen("logo_url", in.LogoURL, 500, v)
	return v
}

type CompanyService struct {
	db *gorm.DB
}

func NewCompanyService(db *gorm.DB) *CompanyService {
	return &CompanyService{db: db}
}

// Get returns the user's company, or nil when it has not been set up yet.
func (s *CompanyService) Get(ctx context.Context, userID uint) (*models.Company, error) {
	var c models.Company
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Exists reports whether the user has a company.
func (s *CompanyService) Exists(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Company{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

// Save creates the company on first call and updates it afterwards.
func (s *CompanyService) Save(ctx context.Context, userID uint, in CompanyInput) (*models.Company, error) {
	in.normalize()
	if err := invalid(in.Validate()); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	c := existing
	if c == nil {
		c = &models.Company{UserID: userID}
	}
	c.Name = in.Name
	c.RTN = in.RTN
	c.Email = in.Email
	c.Phone = in.Phone
	c.Address = in.Address
	c.City = in.City
	c.LogoURL = in.LogoURL
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, duplicate(err)
	}
	return c, nil
}

// requireCompany loads the user's company or fails with ErrCompanyRequired.
func requireCompany(tx *gorm.DB, userID uint) (*models.Company, error) {
	var c models.Company
	if err := tx.Where("user_id = ?", userID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyRequired
		}
		return nil, err
	}
	return &c, nil
}
