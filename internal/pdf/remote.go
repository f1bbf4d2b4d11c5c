package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/diewo77/go-facturas/internal/config"
)

// StatusError is a non-2xx answer from the render function.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("render function returned %d: %s", e.Status, e.Body)
}

type storageParams struct {
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
}

type remoteRequest struct {
	Invoices []InvoiceData `json:"invoices"`
	Company  CompanyData   `json:"company"`
	Storage  storageParams `json:"storage"`
}

// RemoteRenderer posts invoices to a serverless function that writes the
// PDFs to the bucket itself and answers {"invoices":[{"bucket","key"}]}.
type RemoteRenderer struct {
	url     string
	key     string
	storage storageParams
	client  *http.Client
}

func NewRemoteRenderer(pdfCfg config.PDFConfig, storage config.StorageConfig) *RemoteRenderer {
	timeout := time.Duration(pdfCfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteRenderer{
		url: pdfCfg.FunctionURL,
		key: pdfCfg.FunctionKey,
		storage: storageParams{
			Bucket:          storage.Bucket,
			Region:          storage.Region,
			AccessKeyID:     storage.AccessKeyID,
			SecretAccessKey: storage.SecretAccessKey,
			Endpoint:        storage.Endpoint,
		},
		client: &http.Client{Timeout: timeout},
	}
}

func (r *RemoteRenderer) Render(ctx context.Context, req RenderRequest) ([]Locator, error) {
	body, err := json.Marshal(remoteRequest{Invoices: req.Invoices, Company: req.Company, Storage: r.storage})
	if err != nil {
		return nil, fmt.Errorf("encode render request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.key)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call render function: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read render response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("render function returned invalid JSON")
	}

	var locs []Locator
	for _, item := range gjson.GetBytes(raw, "invoices").Array() {
		key := item.Get("key").String()
		if key == "" {
			continue
		}
		bucket := item.Get("bucket").String()
		if bucket == "" {
			bucket = r.storage.Bucket
		}
		locs = append(locs, Locator{Bucket: bucket, Key: key})
	}
	return locs, nil
}
