package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CarritoItem is one cart line. ProductoID is nil for lines whose product no
// longer exists (or never had one); those lines are matched by name.
type CarritoItem struct {
	ProductoID     *uuid.UUID      `json:"productId"`
	Nombre         string          `json:"nombre"`
	PrecioUnitario decimal.Decimal `json:"precioUnitario"`
	Cantidad       int             `json:"cantidad"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// Carrito is stored as a single row per customer; items live in one JSONB
// document so every mutation is a read-modify-write of that row.
type Carrito struct {
	DNI       string          `gorm:"primaryKey;type:varchar(20)"`
	Items     []CarritoItem   `gorm:"serializer:json;type:jsonb;not null"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Carrito) TableName() string { return "carritos" }

// ItemKey identifies a cart line by product id, or by name when absent.
type ItemKey struct {
	ProductoID *uuid.UUID
	Nombre     string
}

func normalizarNombre(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Coincide matches by product id; if either side has no product id it falls
// back to a case-insensitive name comparison.
func (it *CarritoItem) Coincide(k ItemKey) bool {
	if k.ProductoID != nil && it.ProductoID != nil {
		return *k.ProductoID == *it.ProductoID
	}
	return normalizarNombre(it.Nombre) == normalizarNombre(k.Nombre)
}

// Buscar returns the index of the line matching k, or -1.
func (c *Carrito) Buscar(k ItemKey) int {
	for i := range c.Items {
		if c.Items[i].Coincide(k) {
			return i
		}
	}
	return -1
}

// CantidadDe returns how many units of productoID are already in the cart.
func (c *Carrito) CantidadDe(productoID uuid.UUID) int {
	n := 0
	for _, it := range c.Items {
		if it.ProductoID != nil && *it.ProductoID == productoID {
			n += it.Cantidad
		}
	}
	return n
}

// Recalcular refreshes every line subtotal and the cart total.
func (c *Carrito) Recalcular() {
	total := decimal.Zero
	for i := range c.Items {
		it := &c.Items[i]
		it.Subtotal = it.PrecioUnitario.Mul(decimal.NewFromInt(int64(it.Cantidad)))
		total = total.Add(it.Subtotal)
	}
	c.Total = total
}
