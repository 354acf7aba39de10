package handler

import (
	"net/http"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PromocionesHandler struct{ svc service.PrecioService }

func NewPromocionesHandler(svc service.PrecioService) *PromocionesHandler {
	return &PromocionesHandler{svc: svc}
}

// Listar godoc
// @Summary      Listar promociones
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        productoId query string false "Filtrar por producto"
// @Success      200 {array} dto.PromocionResponse
// @Router       /promociones [get]
func (h *PromocionesHandler) Listar(c *gin.Context) {
	var filter dto.PromocionFilter
	if !bindQuery(c, &filter) {
		return
	}
	var productoID *uuid.UUID
	if filter.ProductoID != "" {
		id := uuid.MustParse(filter.ProductoID)
		productoID = &id
	}
	resp, err := h.svc.ListarPromociones(c.Request.Context(), productoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Crear godoc
// @Summary      Crear promoción
// @Description  Rechaza promociones activas que compartan al menos un día con otra del mismo producto.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearPromocionRequest true "Promoción"
// @Success      201 {object} dto.PromocionResponse
// @Failure      409 {object} apierror.APIError
// @Router       /promociones [post]
func (h *PromocionesHandler) Crear(c *gin.Context) {
	var req dto.CrearPromocionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearPromocion(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Actualizar godoc
// @Summary      Actualizar promoción
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                         true "UUID de la promoción"
// @Param        body body dto.ActualizarPromocionRequest true "Promoción"
// @Success      200 {object} dto.PromocionResponse
// @Failure      404 {object} apierror.APIError
// @Failure      409 {object} apierror.APIError
// @Router       /promociones/{id} [put]
func (h *PromocionesHandler) Actualizar(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarPromocionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ActualizarPromocion(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
