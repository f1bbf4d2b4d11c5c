package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/diewo77/go-facturas/i18n"
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Error writes code together with its translation for the request language.
func Error(w http.ResponseWriter, r *http.Request, status int, code string) {
	lang := i18n.LangFromContext(r.Context())
	JSON(w, status, ErrorResponse{Error: code, Message: i18n.T(lang, code)})
}

// ValidationError writes a 422 with translated field messages.
func ValidationError(w http.ResponseWriter, r *http.Request, violations map[string]string) {
	lang := i18n.LangFromContext(r.Context())
	JSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation_failed",
		Message: i18n.T(lang, "validation_failed"),
		Details: map[string]any{
			"codes":    violations,
			"messages": i18n.TranslateAll(lang, violations),
		},
	})
}

// WantsJSON reports whether the client prefers a JSON response over HTML.
func WantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// IsJSONBody reports whether the request carries a JSON payload.
func IsJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

var ErrEmptyBody = errors.New("empty request body")

// Decode reads a single JSON document from the request body into dst.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	return nil
}
