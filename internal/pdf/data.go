package pdf

import (
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/tax"
)

const dateLayout = "2006-01-02"

type CompanyData struct {
	Name    string `json:"name"`
	RTN     string `json:"rtn"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	LogoURL string `json:"logo_url,omitempty"`
}

type ClientData struct {
	Name    string `json:"name"`
	RTN     string `json:"rtn"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
}

type InvoiceItem struct {
	Description string       `json:"description"`
	Quantity    float64      `json:"quantity"`
	UnitPrice   float64      `json:"unit_price"`
	Discount    float64      `json:"discount"`
	TaxCategory tax.Category `json:"tax_category"`
	Total       float64      `json:"total"`
}

// InvoiceData is one invoice as printed. CAIRange and CAIDeadline are the
// legal legend of the authorization the number belongs to.
type InvoiceData struct {
	ID            uint          `json:"id"`
	Number        string        `json:"number"`
	Status        string        `json:"status"`
	CAI           string        `json:"cai,omitempty"`
	CAIRange      string        `json:"cai_range,omitempty"`
	CAIDeadline   string        `json:"cai_deadline,omitempty"`
	Date          string        `json:"date"`
	DueDate       string        `json:"due_date"`
	PaymentMethod string        `json:"payment_method,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	Client        ClientData    `json:"client"`
	Items         []InvoiceItem `json:"items"`
	Summary       tax.Summary   `json:"summary"`
}

// RenderRequest asks for one PDF per invoice.
type RenderRequest struct {
	Company  CompanyData   `json:"company"`
	Invoices []InvoiceData `json:"invoices"`
}

func NewCompanyData(c *models.Company) CompanyData {
	if c == nil {
		return CompanyData{}
	}
	return CompanyData{
		Name:    c.Name,
		RTN:     c.RTN,
		Address: c.Address,
		City:    c.City,
		Phone:   c.Phone,
		Email:   c.Email,
		LogoURL: c.LogoURL,
	}
}

// NewInvoiceData flattens inv for printing. cai may be nil for drafts.
func NewInvoiceData(inv *models.Invoice, cai *models.CAI) InvoiceData {
	d := InvoiceData{
		ID:      inv.ID,
		Number:  inv.Number,
		Status:  string(inv.Status),
		CAI:     inv.CAICode,
		Date:    inv.IssueDate.Format(dateLayout),
		DueDate: inv.DueDate.Format(dateLayout),
		Notes:   inv.Notes,
		Items:   make([]InvoiceItem, 0, len(inv.Items)),
		Summary: inv.Summary(),
	}
	if inv.Customer != nil {
		d.Client = ClientData{
			Name:    inv.Customer.Name,
			RTN:     inv.Customer.DisplayRTN(),
			Address: inv.Customer.FullAddress(),
			Email:   inv.Customer.Email,
		}
	}
	if inv.PaymentMethod != nil {
		d.PaymentMethod = inv.PaymentMethod.Name
	}
	if cai != nil {
		d.CAIRange = cai.FormatNumber(cai.RangeStart) + " al " + cai.FormatNumber(cai.RangeEnd)
		d.CAIDeadline = cai.Deadline.Format(dateLayout)
	}
	for i := range inv.Items {
		it := &inv.Items[i]
		d.Items = append(d.Items, InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			TaxCategory: it.TaxCategory,
			Total:       it.Amount(),
		})
	}
	return d
}
