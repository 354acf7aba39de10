package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// PedidoFilter is bound from the query string of GET /orders.
type PedidoFilter struct {
	Estado string `form:"estado"           validate:"omitempty,oneof=pendiente entregado cancelado"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type PedidoListResponse struct {
	Data  []PedidoResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearPedidoRequest struct {
	MetodoPago       string `json:"metodoPago"       validate:"required,oneof=efectivo tarjeta mercadopago_qr"`
	DireccionEntrega string `json:"direccionEntrega" validate:"required,max=300"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PedidoItemResponse struct {
	ProductID      *string         `json:"productId"`
	Nombre         string          `json:"nombre"`
	PrecioUnitario decimal.Decimal `json:"precioUnitario"`
	Cantidad       int             `json:"cantidad"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type PedidoResponse struct {
	ID                string               `json:"id"`
	ClienteDNI        string               `json:"clienteDni"`
	Items             []PedidoItemResponse `json:"items"`
	Total             decimal.Decimal      `json:"total"`
	DireccionEntrega  string               `json:"direccionEntrega"`
	MetodoPago        string               `json:"metodoPago"`
	Estado            string               `json:"estado"`
	PaymentStatus     *string              `json:"paymentStatus"`
	ReferenciaExterna string               `json:"referenciaExterna"`
	PreferenceID      *string              `json:"preferenceId,omitempty"`
	FechaEntrega      *string              `json:"fechaEntrega"`
	CreatedAt         string               `json:"createdAt"`
	UpdatedAt         string               `json:"updatedAt"`
}

// CancelacionResponse is returned by both cancel endpoints.
type CancelacionResponse struct {
	Pedido          PedidoResponse  `json:"pedido"`
	SaldoAcreditado decimal.Decimal `json:"saldoAcreditado"`
	SaldoAFavor     decimal.Decimal `json:"saldoAFavor"`
}

// Faltante names one product the checkout could not reserve.
type Faltante struct {
	ProductID  *string `json:"productId"`
	Nombre     string  `json:"nombre"`
	Solicitado int     `json:"solicitado"`
	Disponible int     `json:"disponible"`
}
