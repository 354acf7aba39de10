package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstadoPedido: pendiente → entregado | cancelado. Terminal states have no exits.
type EstadoPedido string

const (
	PedidoPendiente EstadoPedido = "pendiente"
	PedidoEntregado EstadoPedido = "entregado"
	PedidoCancelado EstadoPedido = "cancelado"
)

var transicionesPedido = map[EstadoPedido]map[EstadoPedido]bool{
	PedidoPendiente: {PedidoEntregado: true, PedidoCancelado: true},
	PedidoEntregado: {},
	PedidoCancelado: {},
}

func (e EstadoPedido) PuedeTransicionar(a EstadoPedido) bool {
	return transicionesPedido[e][a]
}

func ParseEstadoPedido(s string) (EstadoPedido, error) {
	if _, ok := transicionesPedido[EstadoPedido(s)]; ok {
		return EstadoPedido(s), nil
	}
	return "", fmt.Errorf("estado de pedido desconocido: %q", s)
}

// MetodoPago selects between immediate checkout and the asynchronous QR flow.
type MetodoPago string

const (
	MetodoEfectivo      MetodoPago = "efectivo"
	MetodoTarjeta       MetodoPago = "tarjeta"
	MetodoMercadoPagoQR MetodoPago = "mercadopago_qr"
)

func ParseMetodoPago(s string) (MetodoPago, error) {
	switch MetodoPago(s) {
	case MetodoEfectivo, MetodoTarjeta, MetodoMercadoPagoQR:
		return MetodoPago(s), nil
	}
	return "", fmt.Errorf("método de pago desconocido: %q", s)
}

// EsAsincronico is true for methods confirmed later by the payment provider.
func (m MetodoPago) EsAsincronico() bool { return m == MetodoMercadoPagoQR }

// EstadoPago is the provider-reported payment status.
type EstadoPago string

const (
	PagoAprobado    EstadoPago = "approved"
	PagoPendiente   EstadoPago = "pending"
	PagoRechazado   EstadoPago = "rejected"
	PagoDesconocido EstadoPago = "unknown"
)

// ParseEstadoPago maps provider strings onto the closed set. Anything the
// provider may add later degrades to unknown.
func ParseEstadoPago(s string) EstadoPago {
	switch s {
	case "approved", "authorized":
		return PagoAprobado
	case "pending", "in_process", "in_mediation":
		return PagoPendiente
	case "rejected", "cancelled", "refunded", "charged_back":
		return PagoRechazado
	}
	return PagoDesconocido
}

// PedidoItem is an immutable snapshot of a cart line taken at checkout.
type PedidoItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PedidoID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     *uuid.UUID      `gorm:"type:uuid"`
	Nombre         string          `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Cantidad       int             `gorm:"not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

type Pedido struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClienteDNI       string          `gorm:"type:varchar(20);not null;index"`
	Total            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DireccionEntrega string          `gorm:"not null"`
	MetodoPago       MetodoPago      `gorm:"type:varchar(20);not null"`
	Estado           EstadoPedido    `gorm:"type:varchar(20);not null;default:'pendiente';index"`
	PaymentStatus    *EstadoPago     `gorm:"type:varchar(20)"`
	// ReferenciaExterna correlates provider callbacks with this checkout attempt.
	ReferenciaExterna string  `gorm:"type:varchar(64);uniqueIndex;not null"`
	PreferenceID      *string `gorm:"type:varchar(128);index"`
	FechaEntrega      *time.Time
	// ConciliadoEn is the last time the reconciler asked the provider about
	// this order. Nil sorts first.
	ConciliadoEn *time.Time `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Items []PedidoItem `gorm:"foreignKey:PedidoID"`
}

func (Pedido) TableName() string { return "pedidos" }

// Pagado reports whether the provider approved the payment.
func (p *Pedido) Pagado() bool {
	return p.PaymentStatus != nil && *p.PaymentStatus == PagoAprobado
}
