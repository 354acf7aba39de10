package handler

import (
	"net/http"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// PreciosHandler serves the public price check endpoint.
// No authentication required and no side effects; results are cached in Redis
// by the pricing service.
type PreciosHandler struct{ svc service.PrecioService }

func NewPreciosHandler(svc service.PrecioService) *PreciosHandler {
	return &PreciosHandler{svc: svc}
}

// Consultar godoc
// @Summary Precio efectivo de un producto (sin autenticacion)
// @Tags precio
// @Produce json
// @Param id path string true "UUID del producto"
// @Success 200 {object} dto.PrecioResponse
// @Failure 404 {object} apierror.APIError
// @Router /productos/{id}/precio [get]
func (h *PreciosHandler) Consultar(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ConsultarPrecio(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
