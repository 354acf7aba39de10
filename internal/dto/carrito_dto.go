package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// AgregarItemRequest is bound from POST /customers/{dni}/cart/add.
// PrecioUnitario is only honoured for name-only lines; catalog products are
// always priced server-side.
type AgregarItemRequest struct {
	ProductID      *string         `json:"productId"      validate:"omitempty,uuid"`
	Nombre         string          `json:"nombre"         validate:"required_without=ProductID,max=200"`
	PrecioUnitario decimal.Decimal `json:"precioUnitario"`
	Cantidad       int             `json:"cantidad"`
}

type ActualizarCantidadRequest struct {
	ProductID *string `json:"productId" validate:"omitempty,uuid"`
	Nombre    string  `json:"nombre"    validate:"required_without=ProductID,max=200"`
	Cantidad  int     `json:"cantidad"`
}

type EliminarItemRequest struct {
	ProductID *string `json:"productId" validate:"omitempty,uuid"`
	Nombre    string  `json:"nombre"    validate:"required_without=ProductID,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CarritoItemResponse struct {
	ProductID      *string         `json:"productId"`
	Nombre         string          `json:"nombre"`
	PrecioUnitario decimal.Decimal `json:"precioUnitario"`
	Cantidad       int             `json:"cantidad"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type CarritoResponse struct {
	Items []CarritoItemResponse `json:"items"`
	Total decimal.Decimal       `json:"total"`
}
