package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaldoFavor is the current store-credit balance of a customer.
type SaldoFavor struct {
	DNI       string          `gorm:"primaryKey;type:varchar(20)"`
	Saldo     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	UpdatedAt time.Time
}

func (SaldoFavor) TableName() string { return "saldos_favor" }

// MovimientoSaldo is an append-only credit entry. PedidoID is unique, so an
// order can credit the balance at most once.
type MovimientoSaldo struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DNI       string          `gorm:"type:varchar(20);not null;index"`
	PedidoID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Monto     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Motivo    string          `gorm:"not null"`
	CreatedAt time.Time
}

func (MovimientoSaldo) TableName() string { return "movimientos_saldo" }
