package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCarrito_ObtenerSinCarritoDevuelveVacio(t *testing.T) {
	e := nuevoEntorno(t)

	c, err := e.carritos.Obtener(context.Background(), "30111222")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total.IsZero())
}

func TestCarrito_AgregarProductoUsaPrecioDelCatalogo(t *testing.T) {
	e := nuevoEntorno(t)
	leche := e.productos.add("Leche entera", "1250.50", 10)

	c, err := e.carritos.AgregarItem(context.Background(), "30111222", dto.AgregarItemRequest{
		ProductID:      strPtr(leche.ID.String()),
		Nombre:         "cualquier cosa",
		PrecioUnitario: dec("1"),
		Cantidad:       2,
	})
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "Leche entera", c.Items[0].Nombre)
	assert.True(t, c.Items[0].PrecioUnitario.Equal(dec("1250.50")))
	assert.True(t, c.Total.Equal(dec("2501")))
	assertTotales(t, c)
}

func TestCarrito_AgregarMismoProductoSumaCantidad(t *testing.T) {
	e := nuevoEntorno(t)
	yerba := e.productos.add("Yerba 1kg", "3000", 10)

	e.agregar(t, "30111222", yerba.ID.String(), 1)
	c := e.agregar(t, "30111222", yerba.ID.String(), 3)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 4, c.Items[0].Cantidad)
	assertTotales(t, c)
}

func TestCarrito_AgregarPorNombreResuelveProducto(t *testing.T) {
	e := nuevoEntorno(t)
	pan := e.productos.add("Pan lactal", "900", 5)

	c, err := e.carritos.AgregarItem(context.Background(), "30111222", dto.AgregarItemRequest{
		Nombre:   "  pan LACTAL ",
		Cantidad: 1,
	})
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	require.NotNil(t, c.Items[0].ProductID)
	assert.Equal(t, pan.ID.String(), *c.Items[0].ProductID)
	assert.True(t, c.Items[0].PrecioUnitario.Equal(dec("900")))
}

func TestCarrito_LineaSinProductoExigePrecio(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()

	_, err := e.carritos.AgregarItem(ctx, "30111222", dto.AgregarItemRequest{Nombre: "Huevos de campo", Cantidad: 1})
	assert.ErrorIs(t, err, service.ErrPrecioInvalido)

	c, err := e.carritos.AgregarItem(ctx, "30111222", dto.AgregarItemRequest{
		Nombre:         "Huevos de campo",
		PrecioUnitario: dec("150.25"),
		Cantidad:       12,
	})
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Nil(t, c.Items[0].ProductID)
	assert.True(t, c.Total.Equal(dec("1803")))
	assertTotales(t, c)
}

func TestCarrito_CantidadInvalida(t *testing.T) {
	e := nuevoEntorno(t)
	arroz := e.productos.add("Arroz", "700", 10)
	ctx := context.Background()

	_, err := e.carritos.AgregarItem(ctx, "30111222", dto.AgregarItemRequest{ProductID: strPtr(arroz.ID.String()), Cantidad: 0})
	assert.ErrorIs(t, err, service.ErrCantidadInvalida)

	e.agregar(t, "30111222", arroz.ID.String(), 1)
	_, err = e.carritos.ActualizarCantidad(ctx, "30111222", dto.ActualizarCantidadRequest{ProductID: strPtr(arroz.ID.String()), Cantidad: -1})
	assert.ErrorIs(t, err, service.ErrCantidadInvalida)
}

func TestCarrito_ProductoInexistenteOInactivo(t *testing.T) {
	e := nuevoEntorno(t)
	fideos := e.productos.add("Fideos", "800", 10)
	e.productos.desactivar(fideos.ID)

	_, err := e.carritos.AgregarItem(context.Background(), "30111222", dto.AgregarItemRequest{
		ProductID: strPtr(fideos.ID.String()),
		Cantidad:  1,
	})
	assert.ErrorIs(t, err, service.ErrProductoNoEncontrado)
}

func TestCarrito_ActualizarCantidad(t *testing.T) {
	e := nuevoEntorno(t)
	cafe := e.productos.add("Café", "5000", 10)
	ctx := context.Background()

	_, err := e.carritos.ActualizarCantidad(ctx, "30111222", dto.ActualizarCantidadRequest{ProductID: strPtr(cafe.ID.String()), Cantidad: 2})
	assert.ErrorIs(t, err, service.ErrItemNoEncontrado, "sin carrito")

	e.agregar(t, "30111222", cafe.ID.String(), 1)
	c, err := e.carritos.ActualizarCantidad(ctx, "30111222", dto.ActualizarCantidadRequest{ProductID: strPtr(cafe.ID.String()), Cantidad: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, c.Items[0].Cantidad)
	assert.True(t, c.Total.Equal(dec("25000")))

	_, err = e.carritos.ActualizarCantidad(ctx, "30111222", dto.ActualizarCantidadRequest{Nombre: "Té", Cantidad: 1})
	assert.ErrorIs(t, err, service.ErrItemNoEncontrado)
}

func TestCarrito_EliminarYVaciarSonIdempotentes(t *testing.T) {
	e := nuevoEntorno(t)
	a := e.productos.add("Aceite", "2100", 10)
	b := e.productos.add("Azúcar", "950", 10)
	ctx := context.Background()

	c, err := e.carritos.EliminarItem(ctx, "30111222", dto.EliminarItemRequest{ProductID: strPtr(a.ID.String())})
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	e.agregar(t, "30111222", a.ID.String(), 1)
	e.agregar(t, "30111222", b.ID.String(), 2)

	c, err = e.carritos.EliminarItem(ctx, "30111222", dto.EliminarItemRequest{ProductID: strPtr(a.ID.String())})
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.True(t, c.Total.Equal(dec("1900")))

	c, err = e.carritos.EliminarItem(ctx, "30111222", dto.EliminarItemRequest{ProductID: strPtr(a.ID.String())})
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)

	c, err = e.carritos.Vaciar(ctx, "30111222")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total.IsZero())

	c, err = e.carritos.Vaciar(ctx, "40999888")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestCarrito_AplicaPromocionVigente(t *testing.T) {
	e := nuevoEntorno(t)
	queso := e.productos.add("Queso cremoso", "1000", 10)
	_, err := e.precios.CrearPromocion(context.Background(), dto.CrearPromocionRequest{
		ProductoID:  queso.ID.String(),
		Tipo:        "porcentaje",
		Valor:       dec("15"),
		FechaInicio: "2026-03-01",
		FechaFin:    "2026-03-31",
	})
	require.NoError(t, err)

	c := e.agregar(t, "30111222", queso.ID.String(), 2)
	assert.True(t, c.Items[0].PrecioUnitario.Equal(dec("850")))
	assert.True(t, c.Total.Equal(dec("1700")))
}

func TestCarrito_MutacionesConcurrentesNoPierdenActualizaciones(t *testing.T) {
	e := nuevoEntorno(t)
	galletitas := e.productos.add("Galletitas", "500", 100)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.carritos.AgregarItem(context.Background(), "30111222", dto.AgregarItemRequest{
				ProductID: strPtr(galletitas.ID.String()),
				Cantidad:  1,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := e.carritos.Obtener(context.Background(), "30111222")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 25, c.Items[0].Cantidad)
	assertTotales(t, c)
}
