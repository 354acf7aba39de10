package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promo(productoID uuid.UUID, tipo, valor, desde, hasta string) dto.CrearPromocionRequest {
	return dto.CrearPromocionRequest{
		ProductoID:  productoID.String(),
		Tipo:        tipo,
		Valor:       dec(valor),
		FechaInicio: desde,
		FechaFin:    hasta,
	}
}

func TestPrecio_SinPromocionDevuelvePrecioBase(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.productos.add("Manteca", "1800", 3)

	resp, err := e.precios.ConsultarPrecio(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, resp.PrecioEfectivo.Equal(dec("1800")))
	assert.Nil(t, resp.Promocion)
	assert.Equal(t, 3, resp.StockDisponible)
}

func TestPrecio_Porcentaje(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.productos.add("Dulce de leche", "100", 3)
	_, err := e.precios.CrearPromocion(context.Background(), promo(p.ID, "porcentaje", "20", "2026-03-01", "2026-03-15"))
	require.NoError(t, err)

	resp, err := e.precios.ConsultarPrecio(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, resp.PrecioEfectivo.Equal(dec("80")))
	require.NotNil(t, resp.Promocion)
	assert.Equal(t, "2026-03-15", resp.Promocion.FechaFin)
}

func TestPrecio_MontoFijoNuncaNegativo(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.productos.add("Chicle", "50", 3)
	_, err := e.precios.CrearPromocion(context.Background(), promo(p.ID, "monto_fijo", "80", "2026-03-01", "2026-03-15"))
	require.NoError(t, err)

	precio, aplicada, err := e.precios.PrecioEfectivo(context.Background(), p, e.clock.Now())
	require.NoError(t, err)
	assert.True(t, precio.IsZero())
	assert.NotNil(t, aplicada)
}

func TestPrecio_FechaFinInclusiva(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.productos.add("Harina", "600", 3)
	_, err := e.precios.CrearPromocion(context.Background(), promo(p.ID, "monto_fijo", "100", "2026-03-01", "2026-03-10"))
	require.NoError(t, err)

	ultimoMinuto := time.Date(2026, 3, 10, 23, 59, 0, 0, time.Local)
	precio, _, err := e.precios.PrecioEfectivo(context.Background(), p, ultimoMinuto)
	require.NoError(t, err)
	assert.True(t, precio.Equal(dec("500")))

	diaSiguiente := time.Date(2026, 3, 11, 0, 0, 0, 0, time.Local)
	precio, aplicada, err := e.precios.PrecioEfectivo(context.Background(), p, diaSiguiente)
	require.NoError(t, err)
	assert.True(t, precio.Equal(dec("600")))
	assert.Nil(t, aplicada)
}

func TestPrecio_PromocionesSuperpuestasSeRechazan(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.productos.add("Tomate", "400", 3)
	ctx := context.Background()

	_, err := e.precios.CrearPromocion(ctx, promo(p.ID, "porcentaje", "10", "2026-03-01", "2026-03-10"))
	require.NoError(t, err)

	_, err = e.precios.CrearPromocion(ctx, promo(p.ID, "porcentaje", "5", "2026-03-10", "2026-03-20"))
	assert.ErrorIs(t, err, service.ErrPromocionSuperpuesta, "un día en común alcanza")

	_, err = e.precios.CrearPromocion(ctx, promo(p.ID, "porcentaje", "5", "2026-03-11", "2026-03-20"))
	assert.NoError(t, err)

	otro := e.productos.add("Cebolla", "300", 3)
	_, err = e.precios.CrearPromocion(ctx, promo(otro.ID, "porcentaje", "5", "2026-03-01", "2026-03-20"))
	assert.NoError(t, err, "otro producto no compite")
}

func TestPrecio_PromocionInactivaNoCuenta(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.productos.add("Lentejas", "1100", 3)
	ctx := context.Background()

	inactiva := promo(p.ID, "porcentaje", "50", "2026-03-01", "2026-03-31")
	off := false
	inactiva.Activa = &off
	_, err := e.precios.CrearPromocion(ctx, inactiva)
	require.NoError(t, err)

	_, err = e.precios.CrearPromocion(ctx, promo(p.ID, "porcentaje", "10", "2026-03-05", "2026-03-25"))
	require.NoError(t, err)

	resp, err := e.precios.ConsultarPrecio(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, resp.PrecioEfectivo.Equal(dec("990")))
}

func TestPrecio_ActualizarRevalidaSuperposicion(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.productos.add("Jabón", "700", 3)
	ctx := context.Background()

	a, err := e.precios.CrearPromocion(ctx, promo(p.ID, "porcentaje", "10", "2026-03-01", "2026-03-05"))
	require.NoError(t, err)
	_, err = e.precios.CrearPromocion(ctx, promo(p.ID, "porcentaje", "10", "2026-03-10", "2026-03-15"))
	require.NoError(t, err)

	id := uuid.MustParse(a.ID)
	_, err = e.precios.ActualizarPromocion(ctx, id, dto.ActualizarPromocionRequest{
		Tipo: "porcentaje", Valor: dec("10"), FechaInicio: "2026-03-01", FechaFin: "2026-03-12", Activa: true,
	})
	assert.ErrorIs(t, err, service.ErrPromocionSuperpuesta)

	upd, err := e.precios.ActualizarPromocion(ctx, id, dto.ActualizarPromocionRequest{
		Tipo: "monto_fijo", Valor: dec("50"), FechaInicio: "2026-03-01", FechaFin: "2026-03-09", Activa: true,
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.PromocionMontoFijo), upd.Tipo)

	_, err = e.precios.ActualizarPromocion(ctx, uuid.New(), dto.ActualizarPromocionRequest{
		Tipo: "porcentaje", Valor: dec("1"), FechaInicio: "2026-03-01", FechaFin: "2026-03-02",
	})
	assert.ErrorIs(t, err, service.ErrPromocionNoEncontrada)
}

func TestPrecio_ValidacionesDePromocion(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.productos.add("Sal", "300", 3)
	ctx := context.Background()

	cases := []struct {
		name string
		req  dto.CrearPromocionRequest
		want error
	}{
		{"porcentaje mayor a 100", promo(p.ID, "porcentaje", "101", "2026-03-01", "2026-03-02"), service.ErrPromocionInvalida},
		{"valor cero", promo(p.ID, "monto_fijo", "0", "2026-03-01", "2026-03-02"), service.ErrPromocionInvalida},
		{"fin antes de inicio", promo(p.ID, "porcentaje", "5", "2026-03-05", "2026-03-01"), service.ErrPromocionInvalida},
		{"tipo desconocido", promo(p.ID, "2x1", "5", "2026-03-01", "2026-03-02"), service.ErrPromocionInvalida},
		{"producto inexistente", promo(uuid.New(), "porcentaje", "5", "2026-03-01", "2026-03-02"), service.ErrProductoNoEncontrado},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.precios.CrearPromocion(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPrecio_CrearInvalidaCache(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.productos.add("Vinagre", "650", 3)

	_, err := e.precios.CrearPromocion(context.Background(), promo(p.ID, "porcentaje", "5", "2026-03-01", "2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p.ID}, e.cache.invalidados)
}

func TestPrecio_ListarPromocionesFiltraPorProducto(t *testing.T) {
	e := nuevoEntorno(t)
	a := e.productos.add("Mayonesa", "900", 3)
	b := e.productos.add("Mostaza", "850", 3)
	ctx := context.Background()

	_, err := e.precios.CrearPromocion(ctx, promo(a.ID, "porcentaje", "5", "2026-03-01", "2026-03-02"))
	require.NoError(t, err)
	_, err = e.precios.CrearPromocion(ctx, promo(b.ID, "porcentaje", "5", "2026-03-01", "2026-03-02"))
	require.NoError(t, err)

	todas, err := e.precios.ListarPromociones(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, todas, 2)

	soloA, err := e.precios.ListarPromociones(ctx, &a.ID)
	require.NoError(t, err)
	require.Len(t, soloA, 1)
	assert.Equal(t, a.ID.String(), soloA[0].ProductoID)
}

func TestPrecio_ConsultarProductoInactivo(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.productos.add("Soda", "400", 3)
	e.productos.desactivar(p.ID)

	_, err := e.precios.ConsultarPrecio(context.Background(), p.ID)
	assert.ErrorIs(t, err, service.ErrProductoNoEncontrado)
}
