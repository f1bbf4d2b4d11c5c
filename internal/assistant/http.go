package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// APIError is a non-2xx answer from a vendor API.
type APIError struct {
	Service string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Message)
}

// postJSON sends body and returns the raw response of a 2xx answer.
func postJSON(ctx context.Context, client *http.Client, service, url string, headers map[string]string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", service, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", service, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Service: service, Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%s returned invalid JSON", service)
	}
	return raw, nil
}

// maxErrorRunes bounds a raw vendor body quoted in an error.
const maxErrorRunes = 200

// errorMessage digs the human message out of the usual vendor error shapes.
func errorMessage(raw []byte) string {
	for _, path := range []string{"error.message", "message", "error"} {
		if r := gjson.GetBytes(raw, path); r.Exists() && r.Type == gjson.String {
			return r.String()
		}
	}
	msg := []rune(strings.TrimSpace(string(raw)))
	if len(msg) > maxErrorRunes {
		msg = msg[:maxErrorRunes]
	}
	return string(msg)
}
