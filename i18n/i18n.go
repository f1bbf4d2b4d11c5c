// Package i18n holds the message catalog (Spanish default, English) used to
// render violation codes and flash messages.
package i18n

import (
	"context"
	"strings"
)

const DefaultLang = "es"

type ctxKey struct{}

var catalog = map[string]map[string]string{
	"es": {
		"required":              "Requerido",
		"invalid_email":         "Correo electrónico inválido",
		"invalid_rtn":           "El RTN debe tener 14 dígitos",
		"invalid_cai":           "Código CAI inválido",
		"invalid_date":          "Fecha inválida",
		"must_be_positive":      "Debe ser mayor que cero",
		"must_not_be_negative":  "No puede ser negativo",
		"out_of_range":          "Fuera de rango",
		"too_long":              "Demasiado largo",
		"too_short":             "Demasiado corto",
		"already_exists":        "Ya existe",
		"not_found":             "No encontrado",
		"in_use":                "Está en uso y no se puede eliminar",
		"unauthorized":          "No autorizado",
		"forbidden":             "Prohibido",
		"invalid_credentials":   "Correo o contraseña incorrectos",
		"not_draft":             "La factura ya fue emitida",
		"invoice_empty":         "La factura no tiene líneas",
		"cai_expired":           "El CAI está vencido",
		"cai_exhausted":         "El rango autorizado del CAI se agotó",
		"no_active_cai":         "No hay un CAI vigente",
		"company_required":      "Configure primero los datos de la empresa",
		"discount_too_high":     "El descuento supera el valor de la línea",
		"invalid_transition":    "Cambio de estado no permitido",
		"rate_limited":          "Demasiadas solicitudes, intente más tarde",
		"pdf_render_failed":     "No se pudo generar el PDF",
		"assistant_unavailable": "El asistente no está disponible",
		"saved":                 "Guardado",
		"validation_failed":     "Revise los campos marcados",
		"invalid_request":       "Solicitud inválida",
		"internal_error":        "Error interno",
		"no_profile":            "Su usuario no tiene un perfil asignado",
		"empty_query":           "Escriba una pregunta",
		"query_too_long":        "La pregunta es demasiado larga",
	},
	"en": {
		"required":              "Required",
		"invalid_email":         "Invalid email address",
		"invalid_rtn":           "RTN must have 14 digits",
		"invalid_cai":           "Invalid CAI code",
		"invalid_date":          "Invalid date",
		"must_be_positive":      "Must be greater than zero",
		"must_not_be_negative":  "Cannot be negative",
		"out_of_range":          "Out of range",
		"too_long":              "Too long",
		"too_short":             "Too short",
		"already_exists":        "Already exists",
		"not_found":             "Not found",
		"in_use":                "In use, cannot be deleted",
		"unauthorized":          "Unauthorized",
		"forbidden":             "Forbidden",
		"invalid_credentials":   "Invalid email or password",
		"not_draft":             "Invoice has already been issued",
		"invoice_empty":         "Invoice has no lines",
		"cai_expired":           "CAI has expired",
		"cai_exhausted":         "CAI authorized range is exhausted",
		"no_active_cai":         "No active CAI",
		"company_required":      "Set up your company first",
		"discount_too_high":     "Discount exceeds the line amount",
		"invalid_transition":    "Status change not allowed",
		"rate_limited":          "Too many requests, try again later",
		"pdf_render_failed":     "Could not generate the PDF",
		"assistant_unavailable": "Assistant is unavailable",
		"saved":                 "Saved",
		"validation_failed":     "Please correct the highlighted fields",
		"invalid_request":       "Invalid request",
		"internal_error":        "Internal error",
		"no_profile":            "Your user has no profile assigned",
		"empty_query":           "Type a question",
		"query_too_long":        "The question is too long",
	},
}

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := catalog[lang]
	return ok
}

// T translates code into lang, falling back to the default language and
// finally to the code itself.
func T(lang, code string) string {
	if m, ok := catalog[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := catalog[DefaultLang][code]; ok {
		return s
	}
	return code
}

// TranslateAll maps every value of codes through T.
func TranslateAll(lang string, codes map[string]string) map[string]string {
	out := make(map[string]string, len(codes))
	for field, code := range codes {
		out[field] = T(lang, code)
	}
	return out
}

// DetectLanguage picks the first supported primary tag of an Accept-Language header.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		primary := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if Supported(primary) {
			return primary
		}
	}
	return DefaultLang
}

func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, lang)
}

// LangFromContext returns the request language or DefaultLang.
func LangFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultLang
}
