package model

import (
	"time"

	"github.com/google/uuid"
)

// Tipos de MovimientoStock.
const (
	MovimientoReservaPedido         = "reserva_pedido"
	MovimientoLiberacionCancelacion = "liberacion_cancelacion"
)

// MovimientoStock registra cada cambio de stock hecho por el ledger.
// Los registros son inmutables: una cancelación crea una entrada inversa.
type MovimientoStock struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Tipo          string    `gorm:"type:varchar(30);not null"`
	Cantidad      int       `gorm:"not null"` // positive = entrada, negative = salida
	StockAnterior int       `gorm:"not null"`
	StockNuevo    int       `gorm:"not null"`
	Motivo        string
	ReferenciaID  *uuid.UUID `gorm:"type:uuid;index"` // pedido_id
	CreatedAt     time.Time
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }
