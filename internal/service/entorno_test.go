package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/clock"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// entorno wires every service over the in-memory stubs.
type entorno struct {
	clock       *clock.MockClock
	productos   *stubProductoRepo
	movimientos *stubMovimientoStockRepo
	promociones *stubPromocionRepo
	carritoRepo *stubCarritoRepo
	pedidoRepo  *stubPedidoRepo
	saldoRepo   *stubSaldoRepo
	sesiones    *stubSesionRepo
	cache       *stubPrecioCache
	gateway     *stubGateway
	eventos     *capturePublisher

	stock    service.StockService
	precios  service.PrecioService
	carritos service.CarritoService
	saldo    service.SaldoService
	pedidos  service.PedidoService
	repetir  service.RepetirService
	pagos    service.PagoService
}

func nuevoEntorno(t *testing.T) *entorno {
	t.Helper()
	e := &entorno{
		clock:       clock.NewMockClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)),
		productos:   newStubProductoRepo(),
		movimientos: &stubMovimientoStockRepo{},
		promociones: newStubPromocionRepo(),
		carritoRepo: newStubCarritoRepo(),
		pedidoRepo:  newStubPedidoRepo(),
		saldoRepo:   newStubSaldoRepo(),
		cache:       &stubPrecioCache{},
		gateway:     newStubGateway(),
		eventos:     &capturePublisher{},
	}
	e.sesiones = newStubSesionRepo(e.clock.Now)

	e.stock = service.NewStockService(e.productos, e.movimientos)
	e.precios = service.NewPrecioService(e.promociones, e.productos, e.cache, e.clock)
	e.carritos = service.NewCarritoService(e.carritoRepo, e.productos, e.precios, e.clock)
	e.saldo = service.NewSaldoService(e.saldoRepo)
	e.pedidos = service.NewPedidoService(e.pedidoRepo, e.carritoRepo, e.productos, e.stock, e.precios, e.saldo, e.eventos, e.clock)
	e.repetir = service.NewRepetirService(e.pedidoRepo, e.productos, e.carritos, e.stock, e.precios, e.clock)
	e.pagos = service.NewPagoService(e.pedidos, e.pedidoRepo, e.sesiones, e.gateway, service.PagoServiceConfig{
		SesionTTL: 300 * time.Second,
		QR:        func(string) (string, error) { return "iVBORw0KGgo=", nil },
		Clock:     e.clock,
	})
	return e
}

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// agregar puts cantidad units of a catalog product into the cart of dni.
func (e *entorno) agregar(t *testing.T, dni string, productoID string, cantidad int) *dto.CarritoResponse {
	t.Helper()
	c, err := e.carritos.AgregarItem(context.Background(), dni, dto.AgregarItemRequest{
		ProductID: strPtr(productoID),
		Cantidad:  cantidad,
	})
	require.NoError(t, err)
	return c
}

// checkout creates an order for dni with the given payment method.
func (e *entorno) checkout(t *testing.T, dni string, metodo string) *dto.PedidoResponse {
	t.Helper()
	p, err := e.pedidos.Crear(context.Background(), dni, dto.CrearPedidoRequest{
		MetodoPago:       metodo,
		DireccionEntrega: "Av. Siempreviva 742",
	})
	require.NoError(t, err)
	return p
}

// assertTotales checks that every subtotal is price × quantity and the cart
// total is their sum.
func assertTotales(t *testing.T, c *dto.CarritoResponse) {
	t.Helper()
	suma := decimal.Zero
	for _, it := range c.Items {
		require.True(t, it.Subtotal.Equal(it.PrecioUnitario.Mul(decimal.NewFromInt(int64(it.Cantidad)))),
			"subtotal de %s", it.Nombre)
		suma = suma.Add(it.Subtotal)
	}
	require.True(t, c.Total.Equal(suma), "total %s != suma %s", c.Total, suma)
}
