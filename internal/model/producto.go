package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is the catalog row as seen by the checkout core.
// The catalog service owns every column except StockActual, which only the
// stock ledger mutates.
type Producto struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre      string          `gorm:"index;not null"`
	PrecioVenta decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	StockActual int             `gorm:"not null;default:0"`
	Activo      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
