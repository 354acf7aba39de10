package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SesionPago is the ephemeral state of a QR checkout. It lives in Redis only
// and disappears once its TTL elapses.
type SesionPago struct {
	PreferenceID      string          `json:"preferenceId"`
	ReferenciaExterna string          `json:"referenciaExterna"`
	PedidoID          uuid.UUID       `json:"pedidoId"`
	CodigoQR          *string         `json:"qrCode"`
	CheckoutURL       string          `json:"checkoutUrl"`
	SandboxURL        string          `json:"sandboxUrl"`
	Total             decimal.Decimal `json:"totalAmount"`
	CreadaEn          time.Time       `json:"creadaEn"`
	ExpiraEn          time.Time       `json:"expiraEn"`
}

func (s *SesionPago) ExpiradaEn(t time.Time) bool {
	return !t.Before(s.ExpiraEn)
}
