package handler

import (
	"net/http"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type CarritoHandler struct{ svc service.CarritoService }

func NewCarritoHandler(svc service.CarritoService) *CarritoHandler {
	return &CarritoHandler{svc: svc}
}

func carritoOK(c *gin.Context, resp *dto.CarritoResponse) {
	c.JSON(http.StatusOK, gin.H{"success": true, "carrito": resp})
}

// Obtener godoc
// @Summary      Ver carrito
// @Tags         carrito
// @Produce      json
// @Param        dni path string true "DNI del cliente"
// @Success      200 {object} dto.CarritoResponse
// @Router       /customers/{dni}/cart [get]
func (h *CarritoHandler) Obtener(c *gin.Context) {
	dni, ok := dniParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), dni)
	if err != nil {
		respondError(c, err)
		return
	}
	carritoOK(c, resp)
}

// Agregar godoc
// @Summary      Agregar producto al carrito
// @Description  Si la línea ya existe se suma la cantidad. Los productos del catálogo se cotizan en el servidor.
// @Tags         carrito
// @Accept       json
// @Produce      json
// @Param        dni  path string                 true "DNI del cliente"
// @Param        body body dto.AgregarItemRequest true "Ítem"
// @Success      200 {object} dto.CarritoResponse
// @Failure      400 {object} apierror.APIError
// @Failure      404 {object} apierror.APIError
// @Router       /customers/{dni}/cart/add [post]
func (h *CarritoHandler) Agregar(c *gin.Context) {
	dni, ok := dniParam(c)
	if !ok {
		return
	}
	var req dto.AgregarItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarItem(c.Request.Context(), dni, req)
	if err != nil {
		respondError(c, err)
		return
	}
	carritoOK(c, resp)
}

// Actualizar godoc
// @Summary      Cambiar la cantidad de una línea
// @Tags         carrito
// @Accept       json
// @Produce      json
// @Param        dni  path string                        true "DNI del cliente"
// @Param        body body dto.ActualizarCantidadRequest true "Línea y cantidad"
// @Success      200 {object} dto.CarritoResponse
// @Failure      400 {object} apierror.APIError
// @Failure      404 {object} apierror.APIError
// @Router       /customers/{dni}/cart/update [put]
func (h *CarritoHandler) Actualizar(c *gin.Context) {
	dni, ok := dniParam(c)
	if !ok {
		return
	}
	var req dto.ActualizarCantidadRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ActualizarCantidad(c.Request.Context(), dni, req)
	if err != nil {
		respondError(c, err)
		return
	}
	carritoOK(c, resp)
}

// Eliminar godoc
// @Summary      Quitar una línea del carrito
// @Tags         carrito
// @Accept       json
// @Produce      json
// @Param        dni  path string                  true "DNI del cliente"
// @Param        body body dto.EliminarItemRequest true "Línea"
// @Success      200 {object} dto.CarritoResponse
// @Router       /customers/{dni}/cart/remove [delete]
func (h *CarritoHandler) Eliminar(c *gin.Context) {
	dni, ok := dniParam(c)
	if !ok {
		return
	}
	var req dto.EliminarItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EliminarItem(c.Request.Context(), dni, req)
	if err != nil {
		respondError(c, err)
		return
	}
	carritoOK(c, resp)
}

// Vaciar godoc
// @Summary      Vaciar carrito
// @Tags         carrito
// @Produce      json
// @Param        dni path string true "DNI del cliente"
// @Success      200 {object} dto.CarritoResponse
// @Router       /customers/{dni}/cart [delete]
func (h *CarritoHandler) Vaciar(c *gin.Context) {
	dni, ok := dniParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.Vaciar(c.Request.Context(), dni)
	if err != nil {
		respondError(c, err)
		return
	}
	carritoOK(c, resp)
}
