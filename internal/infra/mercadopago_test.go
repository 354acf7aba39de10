package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nuevoClienteMP(t *testing.T, h http.HandlerFunc) *MercadoPagoClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewMercadoPagoClient(MercadoPagoConfig{
		BaseURL:         srv.URL,
		AccessToken:     "TEST-token",
		NotificationURL: "https://almacen.test/pagos/webhook",
		BackURL:         "https://almacen.test/checkout",
		Timeout:         2 * time.Second,
	}, nil)
}

func TestMercadoPago_CrearPreferencia(t *testing.T) {
	var recibido map[string]interface{}
	c := nuevoClienteMP(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer TEST-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&recibido))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp/init","sandbox_init_point":"https://mp/sandbox"}`))
	})

	pref, err := c.CrearPreferencia(context.Background(), PreferenciaRequest{
		ReferenciaExterna: "ref-1",
		Titulo:            "Pedido",
		Total:             decimal.RequireFromString("250"),
		Items: []PreferenciaItem{
			{Titulo: "A", Cantidad: 2, PrecioUnitario: decimal.RequireFromString("100")},
			{Titulo: "B", Cantidad: 1, PrecioUnitario: decimal.RequireFromString("50")},
		},
		ExpiraEn: time.Date(2026, 3, 10, 12, 5, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, "https://mp/init", pref.InitPoint)
	assert.Equal(t, "https://mp/sandbox", pref.SandboxInitPoint)

	assert.Equal(t, "ref-1", recibido["external_reference"])
	assert.Equal(t, "https://almacen.test/pagos/webhook", recibido["notification_url"])
	assert.Equal(t, true, recibido["expires"])
	items := recibido["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, float64(100), items[0].(map[string]interface{})["unit_price"])
	assert.Equal(t, "ARS", items[0].(map[string]interface{})["currency_id"])
}

func TestMercadoPago_CrearPreferenciaProveedorCaido(t *testing.T) {
	c := nuevoClienteMP(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.CrearPreferencia(context.Background(), PreferenciaRequest{ReferenciaExterna: "r", Total: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrProveedorNoDisponible)
}

func TestMercadoPago_ConsultarEstado(t *testing.T) {
	respuestas := map[string]string{
		"ref-aprobado":  `{"results":[{"id":1,"status":"rejected"},{"id":2,"status":"approved"}]}`,
		"ref-pendiente": `{"results":[{"id":3,"status":"in_process"}]}`,
		"ref-vacio":     `{"results":[]}`,
	}
	c := nuevoClienteMP(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/search", r.URL.Path)
		body, ok := respuestas[r.URL.Query().Get("external_reference")]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	ctx := context.Background()

	assert.Equal(t, model.PagoAprobado, c.ConsultarEstado(ctx, "ref-aprobado"))
	assert.Equal(t, model.PagoPendiente, c.ConsultarEstado(ctx, "ref-pendiente"))
	assert.Equal(t, model.PagoPendiente, c.ConsultarEstado(ctx, "ref-vacio"))
	assert.Equal(t, model.PagoDesconocido, c.ConsultarEstado(ctx, "ref-error"))
}

func TestMercadoPago_ResolverPago(t *testing.T) {
	c := nuevoClienteMP(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/payments/100":
			_, _ = w.Write([]byte(`{"id":100,"status":"approved","external_reference":"ref-100","transaction_amount":250.5}`))
		case "/v1/payments/200":
			// id as string does not fit the typed shape
			_, _ = w.Write([]byte(`{"id":"200","status":"refunded","external_reference":"ref-200","transaction_amount":"10"}`))
		case "/v1/payments/300":
			_, _ = w.Write([]byte(`{"id":"300","status":"approved"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	info, err := c.ResolverPago(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "100", info.ID)
	assert.Equal(t, model.PagoAprobado, info.Estado)
	assert.Equal(t, "ref-100", info.ReferenciaExterna)
	assert.True(t, info.Monto.Equal(decimal.RequireFromString("250.5")))

	info, err = c.ResolverPago(ctx, "200")
	require.NoError(t, err)
	assert.Equal(t, "200", info.ID)
	assert.Equal(t, model.PagoRechazado, info.Estado)
	assert.Equal(t, "refunded", info.StatusProveedor)

	_, err = c.ResolverPago(ctx, "300")
	assert.Error(t, err, "sin external_reference no se puede correlacionar")

	_, err = c.ResolverPago(ctx, "404")
	assert.ErrorIs(t, err, ErrProveedorRechazo)
	assert.NotErrorIs(t, err, ErrProveedorNoDisponible)
}

func TestMercadoPago_RechazosNoAbrenElCircuito(t *testing.T) {
	preferencias := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/checkout/preferences" {
			preferencias++
			_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp/init"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	c := NewMercadoPagoClient(MercadoPagoConfig{BaseURL: srv.URL}, cb)

	for i := 0; i < 5; i++ {
		_, err := c.ResolverPago(context.Background(), "inventado")
		assert.ErrorIs(t, err, ErrProveedorRechazo)
	}
	assert.Equal(t, CBClosed, cb.State())

	pref, err := c.CrearPreferencia(context.Background(), PreferenciaRequest{ReferenciaExterna: "r", Total: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, 1, preferencias)
}

func TestMercadoPago_DemasiadasSolicitudesCuentaComoFalla(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	c := NewMercadoPagoClient(MercadoPagoConfig{BaseURL: srv.URL}, cb)

	for i := 0; i < 2; i++ {
		_, err := c.ResolverPago(context.Background(), "1")
		assert.ErrorIs(t, err, ErrProveedorNoDisponible)
	}
	assert.Equal(t, CBOpen, cb.State())
}

func TestMercadoPago_CircuitoAbiertoFallaRapido(t *testing.T) {
	llamadas := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		llamadas++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	c := NewMercadoPagoClient(MercadoPagoConfig{BaseURL: srv.URL}, cb)

	for i := 0; i < 4; i++ {
		_, err := c.CrearPreferencia(context.Background(), PreferenciaRequest{ReferenciaExterna: "r", Total: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, ErrProveedorNoDisponible)
	}
	assert.Equal(t, 2, llamadas)
	assert.Equal(t, CBOpen, c.Breaker().State())
}
