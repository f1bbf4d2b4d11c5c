package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/validation"
)

type CustomerInput struct {
	Name    string `json:"name"`
	RTN     string `json:"rtn"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
}

func (in *CustomerInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.RTN = validation.NormalizeRTN(in.RTN)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
}

// Validate checks the form fields. RTN and email are optional but must be
// well formed when present.
func (in CustomerInput) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.RTN("rtn", in.RTN, v)
	validation.Email("email", in.Email, v)
	validation.MaxLen("address", in.Address, 500, v)
	return v
}

func (in CustomerInput) apply(c *models.Customer) {
	c.Name = in.Name
	c.RTN = in.RTN
	c.Email = in.Email
	c.Phone = in.Phone
	c.Address = in.Address
	c.City = in.City
}

type CustomerService struct {
	db *gorm.DB
}

func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{db: db}
}

// List returns the user's customers matching q by name, RTN or email.
func (s *CustomerService) List(ctx context.Context, userID uint, q ListQuery) (Page[models.Customer], error) {
	tx := s.db.WithContext(ctx).Model(&models.Customer{}).Where("user_id = ?", userID)
	tx = search(tx, strings.TrimSpace(q.Search), "name", "rtn", "email")
	return paginate[models.Customer](tx, q, "name ASC, id ASC")
}

func (s *CustomerService) Get(ctx context.Context, userID, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *CustomerService) Create(ctx context.Context, userID uint, in CustomerInput) (*models.Customer, error) {
	in.normalize()
	if err := invalid(in.Validate()); err != nil {
		return nil, err
	}
	company, err := requireCompany(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	c := &models.Customer{UserID: userID, CompanyID: company.ID}
	in.apply(c)
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, duplicate(err)
	}
	return c, nil
}

func (s *CustomerService) Update(ctx context.Context, userID, id uint, in CustomerInput) (*models.Customer, error) {
	in.normalize()
	if err := invalid(in.Validate()); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	in.apply(c)
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, duplicate(err)
	}
	return c, nil
}

// Delete removes a customer that no issued or paid invoice refers to.
func (s *CustomerService) Delete(ctx context.Context, userID, id uint) error {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	var used int64
	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("customer_id = ? AND status IN ?", c.ID, []models.InvoiceStatus{models.InvoiceStatusIssued, models.InvoiceStatusPaid}).
		Count(&used).Error; err != nil {
		return err
	}
	if used > 0 {
		return ErrInUse
	}
	return s.db.WithContext(ctx).Delete(c).Error
}
