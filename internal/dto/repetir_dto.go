package dto

import "github.com/shopspring/decimal"

// Reason codes for items the reconciler could not add.
const (
	OmitidoProductoInexistente         = "productoInexistente"
	OmitidoSinStock                    = "sinStock"
	OmitidoCarritoSinCapacidadPorStock = "carritoSinCapacidadPorStock"
	OmitidoSinCantidadAgregada         = "sinCantidadAgregada"
)

type RepetirAgregado struct {
	ProductID          string          `json:"productId"`
	Nombre             string          `json:"nombre"`
	CantidadAgregada   int             `json:"cantidadAgregada"`
	CantidadSolicitada int             `json:"cantidadSolicitada"`
	StockDisponible    int             `json:"stockDisponible"`
	Completo           bool            `json:"completo"`
	PrecioUnitario     decimal.Decimal `json:"precioUnitario"`
}

type RepetirOmitido struct {
	ProductID          *string `json:"productId"`
	Nombre             string  `json:"nombre"`
	CantidadSolicitada int     `json:"cantidadSolicitada"`
	Motivo             string  `json:"motivo"`
}

type RepetirResponse struct {
	Agregados     []RepetirAgregado `json:"agregados"`
	Omitidos      []RepetirOmitido  `json:"omitidos"`
	TotalAgregado decimal.Decimal   `json:"totalAgregado"`
	SinCambios    bool              `json:"sinCambios"`
	Carrito       CarritoResponse   `json:"carrito"`
}
