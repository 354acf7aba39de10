package handler

import (
	"errors"
	"net/http"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/apierror"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/infra"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters only for errors that wrap one another.
var errorMappings = []errorMapping{
	{service.ErrCarritoVacio, http.StatusBadRequest, "carritoVacio"},
	{service.ErrCantidadInvalida, http.StatusBadRequest, "cantidadInvalida"},
	{service.ErrPrecioInvalido, http.StatusBadRequest, "precioInvalido"},
	{service.ErrPromocionInvalida, http.StatusBadRequest, "promocionInvalida"},
	{service.ErrMetodoPagoInvalido, http.StatusBadRequest, "metodoPagoInvalido"},
	{service.ErrItemNoEncontrado, http.StatusNotFound, "itemNoEncontrado"},
	{service.ErrProductoNoEncontrado, http.StatusNotFound, "productoNoEncontrado"},
	{service.ErrPedidoNoEncontrado, http.StatusNotFound, "pedidoNoEncontrado"},
	{service.ErrPromocionNoEncontrada, http.StatusNotFound, "promocionNoEncontrada"},
	{service.ErrSesionPagoNoEncontrada, http.StatusNotFound, "sesionPagoNoEncontrada"},
	{service.ErrPromocionSuperpuesta, http.StatusConflict, "promocionSuperpuesta"},
	{service.ErrPedidoNoPendiente, http.StatusConflict, "pedidoNoPendiente"},
	{service.ErrPedidoEntregado, http.StatusConflict, "pedidoEntregado"},
	{service.ErrPedidoYaCancelado, http.StatusConflict, "pedidoYaCancelado"},
	{service.ErrPagoYaAprobado, http.StatusConflict, "pagoYaAprobado"},
}

// respondError maps a service error onto the HTTP envelope. Anything not
// recognised is a 500 and is logged by middleware.ErrorHandler.
func respondError(c *gin.Context, err error) {
	var stockErr *service.StockInsuficienteError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusBadRequest, apierror.NewStock(stockErr.Error(), stockErr.Faltantes))
		return
	}
	if errors.Is(err, service.ErrStockInsuficiente) {
		c.JSON(http.StatusBadRequest, apierror.NewStock(err.Error(), []struct{}{}))
		return
	}

	var provErr *service.ProveedorPagoError
	if errors.As(err, &provErr) {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{
			"success":  false,
			"error":    "proveedorPagoNoDisponible",
			"detail":   "El proveedor de pagos no está disponible. El pedido se conserva, reintente más tarde.",
			"pedidoId": provErr.PedidoID.String(),
		})
		return
	}
	if errors.Is(err, infra.ErrProveedorNoDisponible) || errors.Is(err, infra.ErrCircuitOpen) ||
		errors.Is(err, infra.ErrProveedorRechazo) {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, apierror.New("proveedorPagoNoDisponible", "El proveedor de pagos no está disponible"))
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, apierror.New(m.code, err.Error()))
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, apierror.New(apierror.CodeErrorInterno, "Error interno del servidor"))
}
