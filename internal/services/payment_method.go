package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/validation"
)

type PaymentMethodInput struct {
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

func (in PaymentMethodInput) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 100, v)
	return v
}

type PaymentMethodService struct {
	db *gorm.DB
}

func NewPaymentMethodService(db *gorm.DB) *PaymentMethodService {
	return &PaymentMethodService{db: db}
}

func (s *PaymentMethodService) List(ctx context.Context, userID uint, q ListQuery) (Page[models.PaymentMethod], error) {
	tx := s.db.WithContext(ctx).Model(&models.PaymentMethod{}).Where("user_id = ?", userID)
	tx = search(tx, strings.TrimSpace(q.Search), "name")
	return paginate[models.PaymentMethod](tx, q, "name ASC, id ASC")
}

func (s *PaymentMethodService) Get(ctx context.Context, userID, id uint) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&pm, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &pm, nil
}

func (s *PaymentMethodService) Create(ctx context.Context, userID uint, in PaymentMethodInput) (*models.PaymentMethod, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := invalid(in.Validate()); err != nil {
		return nil, err
	}
	company, err := requireCompany(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, company.ID, in.Name, 0); err != nil {
		return nil, err
	}
	pm := &models.PaymentMethod{UserID: userID, CompanyID: company.ID, Name: in.Name, IsActive: true}
	if in.IsActive != nil {
		pm.IsActive = *in.IsActive
	}
	if err := s.db.WithContext(ctx).Create(pm).Error; err != nil {
		return nil, duplicate(err)
	}
	return pm, nil
}

func (s *PaymentMethodService) Update(ctx context.Context, userID, id uint, in PaymentMethodInput) (*models.PaymentMethod, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := invalid(in.Validate()); err != nil {
		return nil, err
	}
	pm, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, pm.CompanyID, in.Name, pm.ID); err != nil {
		return nil, err
	}
	pm.Name = in.Name
	if in.IsActive != nil {
		pm.IsActive = *in.IsActive
	}
	if err := s.db.WithContext(ctx).Save(pm).Error; err != nil {
		return nil, duplicate(err)
	}
	return pm, nil
}

func (s *PaymentMethodService) Delete(ctx context.Context, userID, id uint) error {
	pm, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(pm).Error
}

func (s *PaymentMethodService) ensureUniqueName(ctx context.Context, companyID uint, name string, exceptID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Unscoped().Model(&models.PaymentMethod{}).
		Where("company_id = ? AND LOWER(name) = ? AND id <> ?", companyID, strings.ToLower(name), exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return &ValidationError{Violations: validation.Violations{"name": "already_exists"}}
	}
	return nil
}
