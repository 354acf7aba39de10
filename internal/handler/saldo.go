package handler

import (
	"net/http"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type SaldoHandler struct{ svc service.SaldoService }

func NewSaldoHandler(svc service.SaldoService) *SaldoHandler { return &SaldoHandler{svc: svc} }

// Obtener godoc
// @Summary      Saldo a favor del cliente
// @Tags         saldo
// @Produce      json
// @Param        dni path string true "DNI del cliente"
// @Success      200 {object} dto.SaldoResponse
// @Router       /customers/{dni}/saldo [get]
func (h *SaldoHandler) Obtener(c *gin.Context) {
	dni, ok := dniParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), dni)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "dni": resp.DNI, "saldo": resp.Saldo, "movimientos": resp.Movimientos})
}
