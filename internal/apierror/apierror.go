// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Reason codes shared by middleware and handlers.
const (
	CodeValidacion    = "validacion"
	CodeJSONInvalido  = "jsonInvalido"
	CodeNoAutenticado = "noAutenticado"
	CodeSinPermisos   = "sinPermisos"
	CodeDemasiadas    = "demasiadasSolicitudes"
	CodeErrorInterno  = "errorInterno"
	CodeIDInvalido    = "idInvalido"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Success bool   `json:"success"`
	Code    string `json:"error"`
	Detail  string `json:"detail"`
}

func New(code, detail string) *APIError {
	return &APIError{Code: code, Detail: detail}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	APIError
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{
		APIError: APIError{Code: CodeValidacion, Detail: "Error de validacion"},
		Fields:   fields,
	}
}

// StockError carries the lines a checkout could not reserve. Faltantes is
// left as interface{} so this package stays free of DTO imports.
type StockError struct {
	APIError
	Faltantes interface{} `json:"faltantes"`
}

func NewStock(detail string, faltantes interface{}) *StockError {
	return &StockError{
		APIError:  APIError{Code: "stockInsuficiente", Detail: detail},
		Faltantes: faltantes,
	}
}
