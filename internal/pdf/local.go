package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/jung-kurt/gofpdf"

	"github.com/diewo77/go-facturas/internal/tax"
)

// Uploader is the part of s3manager.Uploader the local renderer needs.
type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// LocalRenderer draws invoices with gofpdf and uploads them to the bucket.
type LocalRenderer struct {
	uploader Uploader
	bucket   string
	now      func() time.Time
}

func NewLocalRenderer(uploader Uploader, bucket string) *LocalRenderer {
	return &LocalRenderer{uploader: uploader, bucket: bucket, now: time.Now}
}

// NewS3Uploader wraps s3manager for sess.
func NewS3Uploader(sess *session.Session) Uploader {
	return s3manager.NewUploader(sess)
}

func (r *LocalRenderer) Render(ctx context.Context, req RenderRequest) ([]Locator, error) {
	locs := make([]Locator, 0, len(req.Invoices))
	for _, inv := range req.Invoices {
		var buf bytes.Buffer
		if err := Draw(&buf, req.Company, inv); err != nil {
			return nil, err
		}
		key := r.objectKey(inv)
		_, err := r.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket:      aws.String(r.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: aws.String("application/pdf"),
		})
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", key, err)
		}
		locs = append(locs, Locator{Bucket: r.bucket, Key: key})
	}
	return locs, nil
}

func (r *LocalRenderer) objectKey(inv InvoiceData) string {
	name := inv.Number
	if name == "" {
		name = "borrador-" + strconv.FormatUint(uint64(inv.ID), 10)
	}
	return fmt.Sprintf("invoices/%s-%d.pdf", name, r.now().Unix())
}

var categoryLabels = map[tax.Category]string{
	tax.Exempt:     "Exento",
	tax.Exonerated: "Exonerado",
	tax.Taxed15:    "ISV 15%",
	tax.Taxed18:    "ISV 18%",
}

func money(v float64) string {
	return "L " + strconv.FormatFloat(v, 'f', 2, 64)
}

// Draw writes a one-invoice A4 PDF to w.
func Draw(w io.Writer, company CompanyData, inv InvoiceData) error {
	doc := gofpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle(tr("Factura "+inv.Number), false)
	doc.AddPage()

	doc.SetFont("Arial", "B", 16)
	doc.CellFormat(0, 8, tr(company.Name), "", 1, "L", false, 0, "")
	doc.SetFont("Arial", "", 9)
	doc.CellFormat(0, 5, tr("RTN: "+company.RTN), "", 1, "L", false, 0, "")
	if company.Address != "" || company.City != "" {
		doc.CellFormat(0, 5, tr(company.Address+" "+company.City), "", 1, "L", false, 0, "")
	}
	if company.Phone != "" || company.Email != "" {
		doc.CellFormat(0, 5, tr(company.Phone+"  "+company.Email), "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	doc.SetFont("Arial", "B", 13)
	title := "FACTURA"
	if inv.Number == "" {
		title = "BORRADOR"
	}
	doc.CellFormat(0, 7, tr(title+" "+inv.Number), "", 1, "R", false, 0, "")
	doc.SetFont("Arial", "", 9)
	if inv.CAI != "" {
		doc.CellFormat(0, 5, "CAI: "+inv.CAI, "", 1, "R", false, 0, "")
	}
	doc.CellFormat(0, 5, tr("Fecha: "+inv.Date+"   Vence: "+inv.DueDate), "", 1, "R", false, 0, "")
	doc.Ln(3)

	doc.SetFont("Arial", "B", 10)
	doc.CellFormat(0, 6, tr("Cliente: "+inv.Client.Name), "", 1, "L", false, 0, "")
	doc.SetFont("Arial", "", 9)
	doc.CellFormat(0, 5, tr("RTN: "+inv.Client.RTN), "", 1, "L", false, 0, "")
	if inv.Client.Address != "" {
		doc.CellFormat(0, 5, tr(inv.Client.Address), "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	widths := []float64{78, 18, 26, 22, 20, 26}
	headers := []string{"Descripción", "Cant.", "Precio", "Desc.", "Impuesto", "Total"}
	doc.SetFont("Arial", "B", 9)
	doc.SetFillColor(230, 230, 230)
	for i, h := range headers {
		doc.CellFormat(widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)
	doc.SetFont("Arial", "", 9)
	for _, it := range inv.Items {
		doc.CellFormat(widths[0], 6, tr(it.Description), "1", 0, "L", false, 0, "")
		doc.CellFormat(widths[1], 6, strconv.FormatFloat(it.Quantity, 'f', -1, 64), "1", 0, "R", false, 0, "")
		doc.CellFormat(widths[2], 6, money(it.UnitPrice), "1", 0, "R", false, 0, "")
		doc.CellFormat(widths[3], 6, money(it.Discount), "1", 0, "R", false, 0, "")
		doc.CellFormat(widths[4], 6, categoryLabels[it.TaxCategory], "1", 0, "C", false, 0, "")
		doc.CellFormat(widths[5], 6, money(it.Total), "1", 0, "R", false, 0, "")
		doc.Ln(-1)
	}
	doc.Ln(3)

	s := inv.Summary
	rows := []struct {
		label string
		value float64
	}{
		{"Subtotal", s.Subtotal},
		{"Descuento", s.Discount},
		{"Importe exento", s.Exempt},
		{"Importe exonerado", s.Exonerated},
		{"Importe gravado 15%", s.Taxed15},
		{"Importe gravado 18%", s.Taxed18},
		{"ISV 15%", s.ISV15},
		{"ISV 18%", s.ISV18},
	}
	for _, row := range rows {
		doc.CellFormat(150, 5, tr(row.label), "", 0, "R", false, 0, "")
		doc.CellFormat(40, 5, money(row.value), "", 1, "R", false, 0, "")
	}
	doc.SetFont("Arial", "B", 11)
	doc.CellFormat(150, 7, "Total", "", 0, "R", false, 0, "")
	doc.CellFormat(40, 7, money(s.Total), "", 1, "R", false, 0, "")

	if inv.CAIRange != "" {
		doc.Ln(6)
		doc.SetFont("Arial", "", 8)
		doc.CellFormat(0, 4, tr("Rango autorizado: "+inv.CAIRange), "", 1, "L", false, 0, "")
		doc.CellFormat(0, 4, tr("Fecha límite de emisión: "+inv.CAIDeadline), "", 1, "L", false, 0, "")
	}
	if inv.Notes != "" {
		doc.Ln(3)
		doc.SetFont("Arial", "I", 8)
		doc.MultiCell(0, 4, tr(inv.Notes), "", "L", false)
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
