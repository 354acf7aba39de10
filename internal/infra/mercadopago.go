package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	// ErrProveedorNoDisponible wraps transport errors, 5xx/408/429 answers
	// and an open circuit breaker. Only these count against the breaker.
	ErrProveedorNoDisponible = errors.New("proveedor de pagos no disponible")
	// ErrProveedorRechazo is a 4xx answer: the provider is up but refused
	// this request (unknown payment id, bad payload). Retrying does not help.
	ErrProveedorRechazo = errors.New("proveedor de pagos rechazó la solicitud")
)

// PreferenciaItem is one line of a checkout preference.
type PreferenciaItem struct {
	Titulo         string
	Cantidad       int
	PrecioUnitario decimal.Decimal
}

// PreferenciaRequest describes a checkout preference to create.
type PreferenciaRequest struct {
	ReferenciaExterna string
	Titulo            string
	Total             decimal.Decimal
	Items             []PreferenciaItem
	ExpiraEn          time.Time
}

// Preferencia is the provider's answer: its id plus the URLs the QR points to.
type Preferencia struct {
	ID               string
	InitPoint        string
	SandboxInitPoint string
}

// PagoInfo is the normalized view of a payment, whichever decoder produced it.
type PagoInfo struct {
	ID                string
	Estado            model.EstadoPago
	StatusProveedor   string
	ReferenciaExterna string
	Monto             decimal.Decimal
}

// MercadoPagoConfig holds the client's endpoints and credentials.
type MercadoPagoConfig struct {
	BaseURL         string
	AccessToken     string
	NotificationURL string
	BackURL         string
	Timeout         time.Duration
}

// MercadoPagoClient talks to the Mercado Pago REST API. Every call goes
// through the circuit breaker.
type MercadoPagoClient struct {
	cfg        MercadoPagoConfig
	httpClient *http.Client
	cb         *CircuitBreaker
}

func NewMercadoPagoClient(cfg MercadoPagoConfig, cb *CircuitBreaker) *MercadoPagoClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &MercadoPagoClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cb:         cb,
	}
}

// Breaker exposes the circuit breaker for /health and the reconciliation cron.
func (c *MercadoPagoClient) Breaker() *CircuitBreaker { return c.cb }

// ── wire types ───────────────────────────────────────────────────────────────

type mpItem struct {
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id"`
}

type mpBackURLs struct {
	Success string `json:"success,omitempty"`
	Pending string `json:"pending,omitempty"`
	Failure string `json:"failure,omitempty"`
}

type mpPreferenceRequest struct {
	Items             []mpItem    `json:"items"`
	ExternalReference string      `json:"external_reference"`
	NotificationURL   string      `json:"notification_url,omitempty"`
	BackURLs          *mpBackURLs `json:"back_urls,omitempty"`
	Expires           bool        `json:"expires"`
	ExpirationDateTo  string      `json:"expiration_date_to,omitempty"`
}

type mpPreferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type mpPayment struct {
	ID                int64           `json:"id"`
	Status            string          `json:"status"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
}

type mpSearchResponse struct {
	Results []mpPayment `json:"results"`
}

// ── operations ───────────────────────────────────────────────────────────────

// CrearPreferencia registers a checkout preference for the given order.
func (c *MercadoPagoClient) CrearPreferencia(ctx context.Context, req PreferenciaRequest) (*Preferencia, error) {
	body := mpPreferenceRequest{
		ExternalReference: req.ReferenciaExterna,
		NotificationURL:   c.cfg.NotificationURL,
	}
	for _, it := range req.Items {
		body.Items = append(body.Items, mpItem{
			Title:      it.Titulo,
			Quantity:   it.Cantidad,
			UnitPrice:  json.Number(it.PrecioUnitario.StringFixed(2)),
			CurrencyID: "ARS",
		})
	}
	if len(body.Items) == 0 {
		body.Items = []mpItem{{
			Title:      req.Titulo,
			Quantity:   1,
			UnitPrice:  json.Number(req.Total.StringFixed(2)),
			CurrencyID: "ARS",
		}}
	}
	if c.cfg.BackURL != "" {
		body.BackURLs = &mpBackURLs{Success: c.cfg.BackURL, Pending: c.cfg.BackURL, Failure: c.cfg.BackURL}
	}
	if !req.ExpiraEn.IsZero() {
		body.Expires = true
		body.ExpirationDateTo = req.ExpiraEn.Format("2006-01-02T15:04:05.000-07:00")
	}

	var out mpPreferenceResponse
	if err := c.call(ctx, http.MethodPost, "/checkout/preferences", body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: preferencia sin id", ErrProveedorNoDisponible)
	}
	return &Preferencia{ID: out.ID, InitPoint: out.InitPoint, SandboxInitPoint: out.SandboxInitPoint}, nil
}

// ConsultarEstado asks the provider for the payments of a checkout attempt.
// It never fails: any provider problem is reported as unknown.
func (c *MercadoPagoClient) ConsultarEstado(ctx context.Context, referencia string) model.EstadoPago {
	var out mpSearchResponse
	path := "/v1/payments/search?" + url.Values{
		"external_reference": {referencia},
		"sort":               {"date_created"},
		"criteria":           {"desc"},
	}.Encode()
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		log.Warn().Err(err).Str("referencia", referencia).Msg("mercadopago: consulta de estado fallida")
		return model.PagoDesconocido
	}
	if len(out.Results) == 0 {
		return model.PagoPendiente
	}
	for _, p := range out.Results {
		if model.ParseEstadoPago(p.Status) == model.PagoAprobado {
			return model.PagoAprobado
		}
	}
	return model.ParseEstadoPago(out.Results[0].Status)
}

// ResolverPago fetches one payment by id. The body is decoded into the typed
// payment shape first; when the provider sends something that shape cannot
// hold it is decoded loosely and normalized.
func (c *MercadoPagoClient) ResolverPago(ctx context.Context, pagoID string) (*PagoInfo, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(pagoID), nil, &raw); err != nil {
		return nil, err
	}

	var typed mpPayment
	if err := json.Unmarshal(raw, &typed); err == nil && typed.Status != "" {
		return &PagoInfo{
			ID:                strconv.FormatInt(typed.ID, 10),
			Estado:            model.ParseEstadoPago(typed.Status),
			StatusProveedor:   typed.Status,
			ReferenciaExterna: typed.ExternalReference,
			Monto:             typed.TransactionAmount,
		}, nil
	}
	return decodePagoGenerico(raw)
}

func decodePagoGenerico(raw []byte) (*PagoInfo, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("mercadopago: pago ilegible: %w", err)
	}
	info := &PagoInfo{
		ID:                stringify(m["id"]),
		StatusProveedor:   stringify(m["status"]),
		ReferenciaExterna: stringify(m["external_reference"]),
	}
	info.Estado = model.ParseEstadoPago(info.StatusProveedor)
	if s := stringify(m["transaction_amount"]); s != "" {
		if d, err := decimal.NewFromString(s); err == nil {
			info.Monto = d
		}
	}
	if info.ReferenciaExterna == "" {
		return nil, fmt.Errorf("mercadopago: pago %s sin external_reference", info.ID)
	}
	return info, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// call performs one authenticated request through the circuit breaker and
// decodes a 2xx JSON body into out. A 4xx answer reaches the breaker as a
// success and comes back as ErrProveedorRechazo.
func (c *MercadoPagoClient) call(ctx context.Context, method, path string, in, out interface{}) error {
	var rechazo error
	err := c.cb.Execute(func() error {
		var body io.Reader
		if in != nil {
			data, err := json.Marshal(in)
			if err != nil {
				return fmt.Errorf("mercadopago: marshal: %w", err)
			}
			body = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
		if err != nil {
			return fmt.Errorf("mercadopago: create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.cfg.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("mercadopago: %s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("mercadopago: %s %s returned %d: %s", method, path, resp.StatusCode, snippet)
			if esRechazo(resp.StatusCode) {
				rechazo = err
				return nil
			}
			return err
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("mercadopago: decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProveedorNoDisponible, err)
	}
	if rechazo != nil {
		return fmt.Errorf("%w: %v", ErrProveedorRechazo, rechazo)
	}
	return nil
}

func esRechazo(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusRequestTimeout && status != http.StatusTooManyRequests
}
