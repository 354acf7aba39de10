package handler

import (
	"net/http"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/middleware"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type PedidosHandler struct {
	svc     service.PedidoService
	repetir service.RepetirService
}

func NewPedidosHandler(svc service.PedidoService, repetir service.RepetirService) *PedidosHandler {
	return &PedidosHandler{svc: svc, repetir: repetir}
}

// Crear godoc
// @Summary      Confirmar el carrito como pedido
// @Description  Reserva stock de todas las líneas o de ninguna. Con mercadopago_qr el pedido queda pendiente de pago.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Param        dni  path string                 true "DNI del cliente"
// @Param        body body dto.CrearPedidoRequest true "Pago y entrega"
// @Success      201 {object} dto.PedidoResponse
// @Failure      400 {object} apierror.StockError
// @Router       /customers/{dni}/orders [post]
func (h *PedidosHandler) Crear(c *gin.Context) {
	dni, ok := dniParam(c)
	if !ok {
		return
	}
	var req dto.CrearPedidoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), dni, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "pedido": resp})
}

// ListarCliente godoc
// @Summary      Pedidos del cliente
// @Tags         pedidos
// @Produce      json
// @Param        dni path string true "DNI del cliente"
// @Success      200 {array} dto.PedidoResponse
// @Router       /customers/{dni}/orders [get]
func (h *PedidosHandler) ListarCliente(c *gin.Context) {
	dni, ok := dniParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListarPorCliente(c.Request.Context(), dni)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "pedidos": resp})
}

// ObtenerCliente godoc
// @Summary      Detalle de un pedido del cliente
// @Tags         pedidos
// @Produce      json
// @Param        dni path string true "DNI del cliente"
// @Param        id  path string true "UUID del pedido"
// @Success      200 {object} dto.PedidoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /customers/{dni}/orders/{id} [get]
func (h *PedidosHandler) ObtenerCliente(c *gin.Context) {
	dni, ok := dniParam(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerDeCliente(c.Request.Context(), dni, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "pedido": resp})
}

// CancelarCliente godoc
// @Summary      Cancelar un pedido propio
// @Description  Libera el stock reservado y, si el pedido estaba pagado, acredita el total como saldo a favor.
// @Tags         pedidos
// @Produce      json
// @Param        dni path string true "DNI del cliente"
// @Param        id  path string true "UUID del pedido"
// @Success      200 {object} dto.CancelacionResponse
// @Failure      409 {object} apierror.APIError
// @Router       /customers/{dni}/orders/{id}/cancel [put]
func (h *PedidosHandler) CancelarCliente(c *gin.Context) {
	dni, ok := dniParam(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Cancelar(c.Request.Context(), id, &dni)
	if err != nil {
		respondError(c, err)
		return
	}
	cancelacionOK(c, resp)
}

// Repetir godoc
// @Summary      Repetir un pedido anterior
// @Description  Agrega al carrito lo que el stock actual permite, a precio actual. No reserva stock.
// @Tags         pedidos
// @Produce      json
// @Param        dni path string true "DNI del cliente"
// @Param        id  path string true "UUID del pedido"
// @Success      200 {object} dto.RepetirResponse
// @Failure      404 {object} apierror.APIError
// @Router       /customers/{dni}/orders/{id}/repeat [post]
func (h *PedidosHandler) Repetir(c *gin.Context) {
	dni, ok := dniParam(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.repetir.Repetir(c.Request.Context(), dni, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"agregados":     resp.Agregados,
		"omitidos":      resp.Omitidos,
		"totalAgregado": resp.TotalAgregado,
		"sinCambios":    resp.SinCambios,
		"carrito":       resp.Carrito,
	})
}

// ── Admin ─────────────────────────────────────────────────────────────────────

// Listar godoc
// @Summary      Listar pedidos (admin)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        estado query string false "pendiente | entregado | cancelado"
// @Param        page   query int    false "Página"
// @Param        limit  query int    false "Tamaño de página"
// @Success      200 {object} dto.PedidoListResponse
// @Router       /orders [get]
func (h *PedidosHandler) Listar(c *gin.Context) {
	var filter dto.PedidoFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Despachar godoc
// @Summary      Marcar pedido como entregado (admin)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID del pedido"
// @Success      200 {object} dto.PedidoResponse
// @Failure      409 {object} apierror.APIError
// @Router       /orders/{id}/dispatch [put]
func (h *PedidosHandler) Despachar(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Despachar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if claims := middleware.GetClaims(c); claims != nil {
		log.Info().Str("pedido_id", id.String()).Str("operador", claims.Username).Msg("pedido despachado")
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "pedido": resp})
}

// CancelarAdmin godoc
// @Summary      Cancelar pedido (admin)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID del pedido"
// @Success      200 {object} dto.CancelacionResponse
// @Failure      409 {object} apierror.APIError
// @Router       /orders/{id}/cancel [put]
func (h *PedidosHandler) CancelarAdmin(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Cancelar(c.Request.Context(), id, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	if claims := middleware.GetClaims(c); claims != nil {
		log.Info().Str("pedido_id", id.String()).Str("operador", claims.Username).Msg("pedido cancelado por administración")
	}
	cancelacionOK(c, resp)
}

func cancelacionOK(c *gin.Context, resp *dto.CancelacionResponse) {
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"pedido":          resp.Pedido,
		"saldoAcreditado": resp.SaldoAcreditado,
		"saldoAFavor":     resp.SaldoAFavor,
	})
}
