// Package events publishes order lifecycle events for downstream consumers
// (stock dashboards, notifications, analytics). Publishing is best-effort:
// a failed publish is logged and never rolls back the order.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PedidoCreado     = "pedido.creado"
	PedidoPagado     = "pedido.pagado"
	PedidoDespachado = "pedido.despachado"
	PedidoCancelado  = "pedido.cancelado"
)

// Envelope is the message value written to the topic.
type Envelope struct {
	EventID      string          `json:"eventId"`
	EventType    string          `json:"eventType"`
	EventVersion int             `json:"eventVersion"`
	OccurredAt   time.Time       `json:"occurredAt"`
	Producer     string          `json:"producer"`
	PedidoID     string          `json:"pedidoId"`
	Payload      json.RawMessage `json:"payload"`
}

// PedidoPayload is shared by every pedido.* event.
type PedidoPayload struct {
	PedidoID        string           `json:"pedidoId"`
	ClienteDNI      string           `json:"clienteDni"`
	Estado          string           `json:"estado"`
	PaymentStatus   *string          `json:"paymentStatus,omitempty"`
	MetodoPago      string           `json:"metodoPago"`
	Total           decimal.Decimal  `json:"total"`
	SaldoAcreditado *decimal.Decimal `json:"saldoAcreditado,omitempty"`
}

// Publisher is implemented by KafkaPublisher and Noop.
type Publisher interface {
	Publicar(ctx context.Context, tipo string, pedidoID uuid.UUID, payload interface{})
}

// NewEnvelope builds the envelope for one event.
func NewEnvelope(tipo string, pedidoID uuid.UUID, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    tipo,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "almacen-pedidos",
		PedidoID:     pedidoID.String(),
		Payload:      data,
	}, nil
}

// Noop discards every event. Used when no brokers are configured and in tests.
type Noop struct{}

func (Noop) Publicar(context.Context, string, uuid.UUID, interface{}) {}
