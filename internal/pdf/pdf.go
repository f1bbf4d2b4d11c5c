// Package pdf turns invoices into PDF files stored in an S3-compatible bucket
// and hands out time-limited download links.
//
// Rendering happens either in a remote function (RemoteRenderer) or in
// process with gofpdf (LocalRenderer). Both return storage locators; the
// Service then presigns the first one.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoRenderedInvoices is returned when the renderer reports success but
// produced no file.
var ErrNoRenderedInvoices = errors.New("pdf: no invoices rendered")

// Locator identifies a stored PDF.
type Locator struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type Renderer interface {
	Render(ctx context.Context, req RenderRequest) ([]Locator, error)
}

type Presigner interface {
	Presign(ctx context.Context, loc Locator, ttl time.Duration) (string, error)
}

// Result is a download link for a rendered invoice.
type Result struct {
	URL       string    `json:"url"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	renderer  Renderer
	presigner Presigner
	ttl       time.Duration
	now       func() time.Time
}

func NewService(renderer Renderer, presigner Presigner, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{renderer: renderer, presigner: presigner, ttl: ttl, now: time.Now}
}

// Generate renders req and returns a presigned link to the first file.
// It makes a single attempt; failures are returned as is.
func (s *Service) Generate(ctx context.Context, req RenderRequest) (*Result, error) {
	locs, err := s.renderer.Render(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if len(locs) == 0 {
		return nil, ErrNoRenderedInvoices
	}
	loc := locs[0]
	url, err := s.presigner.Presign(ctx, loc, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("presign %s/%s: %w", loc.Bucket, loc.Key, err)
	}
	return &Result{
		URL:       url,
		Bucket:    loc.Bucket,
		Key:       loc.Key,
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}
