package dto

import "github.com/shopspring/decimal"

// CrearPromocionRequest: fechas en formato YYYY-MM-DD, ambas inclusive.
type CrearPromocionRequest struct {
	ProductoID  string          `json:"productoId"  validate:"required,uuid"`
	Tipo        string          `json:"tipo"        validate:"required,oneof=porcentaje monto_fijo"`
	Valor       decimal.Decimal `json:"valor"`
	FechaInicio string          `json:"fechaInicio" validate:"required,datetime=2006-01-02"`
	FechaFin    string          `json:"fechaFin"    validate:"required,datetime=2006-01-02"`
	Activa      *bool           `json:"activa"`
}

// ActualizarPromocionRequest replaces every editable field of a promotion.
type ActualizarPromocionRequest struct {
	Tipo        string          `json:"tipo"        validate:"required,oneof=porcentaje monto_fijo"`
	Valor       decimal.Decimal `json:"valor"`
	FechaInicio string          `json:"fechaInicio" validate:"required,datetime=2006-01-02"`
	FechaFin    string          `json:"fechaFin"    validate:"required,datetime=2006-01-02"`
	Activa      bool            `json:"activa"`
}

type PromocionFilter struct {
	ProductoID string `form:"productoId" validate:"omitempty,uuid"`
}

type PromocionResponse struct {
	ID          string          `json:"id"`
	ProductoID  string          `json:"productoId"`
	Tipo        string          `json:"tipo"`
	Valor       decimal.Decimal `json:"valor"`
	FechaInicio string          `json:"fechaInicio"`
	FechaFin    string          `json:"fechaFin"`
	Activa      bool            `json:"activa"`
	CreatedAt   string          `json:"createdAt"`
}

// PrecioResponse is the public price lookup, cached in Redis.
type PrecioResponse struct {
	ProductoID      string             `json:"productoId"`
	Nombre          string             `json:"nombre"`
	PrecioVenta     decimal.Decimal    `json:"precioVenta"`
	PrecioEfectivo  decimal.Decimal    `json:"precioEfectivo"`
	StockDisponible int                `json:"stockDisponible"`
	Promocion       *PromocionResponse `json:"promocion"`
}
