package handler

import (
	"net/http"
	"strings"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/middleware"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type PagosHandler struct{ svc service.PagoService }

func NewPagosHandler(svc service.PagoService) *PagosHandler { return &PagosHandler{svc: svc} }

// GenerarQR godoc
// @Summary      Generar QR de MercadoPago
// @Description  Crea (o reutiliza) el pedido pendiente y una preferencia de pago. Si el QR no puede dibujarse, qrCode es null y checkoutUrl sigue siendo válido.
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Param        body body dto.GenerarQRRequest true "Cliente y pedido"
// @Success      200 {object} dto.GenerarQRResponse
// @Failure      400 {object} apierror.APIError
// @Failure      502 {object} apierror.APIError
// @Router       /pagos/generar-qr [post]
func (h *PagosHandler) GenerarQR(c *gin.Context) {
	var req dto.GenerarQRRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.GenerarQR(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Estado godoc
// @Summary      Consultar estado de un pago
// @Description  Pensado para polling desde el storefront. Una sesión vencida responde expirada=true sin error.
// @Tags         pagos
// @Produce      json
// @Param        preferenceId path string true "ID de la preferencia"
// @Success      200 {object} dto.EstadoPagoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /pagos/{preferenceId}/estado [get]
func (h *PagosHandler) Estado(c *gin.Context) {
	prefID := strings.TrimSpace(c.Param("preferenceId"))
	if prefID == "" {
		respondError(c, service.ErrSesionPagoNoEncontrada)
		return
	}
	resp, err := h.svc.ConsultarEstado(c.Request.Context(), prefID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Webhook godoc
// @Summary      Notificación del proveedor de pagos
// @Description  Acepta {type, data:{id}} o ?topic=payment&id=. Responde 200 apenas la notificación queda registrada.
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Success      200
// @Router       /pagos/webhook [post]
func (h *PagosHandler) Webhook(c *gin.Context) {
	tipo, pagoID := notificacionDesdeRequest(c)
	logger := log.With().
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("tipo", tipo).
		Str("pago_id", pagoID).
		Logger()

	if tipo != "payment" || pagoID == "" {
		logger.Debug().Msg("webhook: notificación ignorada")
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	if err := h.svc.RegistrarNotificacion(c.Request.Context(), pagoID); err != nil {
		// The reconciliation cron picks the order up later; answering non-2xx
		// would only make the provider retry the same id.
		logger.Warn().Err(err).Msg("webhook: notificación no procesada")
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// notificacionDesdeRequest accepts the JSON body form first and falls back
// to the legacy query-string form.
func notificacionDesdeRequest(c *gin.Context) (tipo, id string) {
	var body dto.NotificacionPagoRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err == nil {
			tipo, id = body.Type, body.Data.ID
		}
	}
	if tipo == "" {
		tipo = c.Query("type")
	}
	if tipo == "" {
		tipo = c.Query("topic")
	}
	if id == "" {
		id = c.Query("data.id")
	}
	if id == "" {
		id = c.Query("id")
	}
	return strings.TrimSpace(tipo), strings.TrimSpace(id)
}
