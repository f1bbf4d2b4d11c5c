package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/tax"
	"github.com/diewo77/go-facturas/validation"
)

type ProductInput struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	TaxCategory string  `json:"tax_category"`
	IsActive    *bool   `json:"is_active"`
}

func (in *ProductInput) normalize() {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.TaxCategory = strings.TrimSpace(in.TaxCategory)
}

// Validate checks the form fields. An empty category defaults to taxed15.
func (in ProductInput) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("code", in.Code, v)
	validation.MaxLen("code", in.Code, 50, v)
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.PositiveFloat("unit_price", in.UnitPrice, v)
	if in.TaxCategory != "" {
		if _, err := tax.ParseCategory(in.TaxCategory); err != nil {
			v.Add("tax_category", validation.CodeOutOfRange)
		}
	}
	return v
}

func (in ProductInput) category() tax.Category {
	if in.TaxCategory == "" {
		return tax.Taxed15
	}
	c, _ := tax.ParseCategory(in.TaxCategory)
	return c
}

func (in ProductInput) apply(p *models.Product) {
	p.Code = in.Code
	p.Name = in.Name
	p.Description = in.Description
	p.UnitPrice = in.UnitPrice
	p.TaxCategory = in.category()
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

// ProductQuery adds catalog filters to ListQuery.
type ProductQuery struct {
	ListQuery
	ActiveOnly bool
}

type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

func (s *ProductService) List(ctx context.Context, userID uint, q ProductQuery) (Page[models.Product], error) {
	tx := s.db.WithContext(ctx).Model(&models.Product{}).Where("user_id = ?", userID)
	if q.ActiveOnly {
		tx = tx.Where("is_active = ?", true)
	}
	tx = search(tx, strings.TrimSpace(q.Search), "code", "name")
	return paginate[models.Product](tx, q.ListQuery, "name ASC, id ASC")
}

func (s *ProductService) Get(ctx context.Context, userID, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *ProductService) Create(ctx context.Context, userID uint, in ProductInput) (*models.Product, error) {
	in.normalize()
	if err := invalid(in.Validate()); err != nil {
		return nil, err
	}
	company, err := requireCompany(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode(ctx, userID, in.Code, 0); err != nil {
		return nil, err
	}
	p := &models.Product{UserID: userID, CompanyID: company.ID, IsActive: true}
	in.apply(p)
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, duplicate(err)
	}
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, userID, id uint, in ProductInput) (*models.Product, error) {
	in.normalize()
	if err := invalid(in.Validate()); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode(ctx, userID, in.Code, p.ID); err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, duplicate(err)
	}
	return p, nil
}

// Delete soft-deletes the product. Invoice lines keep their copied values.
func (s *ProductService) Delete(ctx context.Context, userID, id uint) error {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(p).Error
}

func (s *ProductService) ensureUniqueCode(ctx context.Context, userID uint, code string, exceptID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Unscoped().Model(&models.Product{}).
		Where("user_id = ? AND code = ? AND id <> ?", userID, code, exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return &ValidationError{Violations: validation.Violations{"code": "already_exists"}}
	}
	return nil
}
