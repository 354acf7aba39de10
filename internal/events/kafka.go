package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes envelopes to a single topic, keyed by pedido id so
// that every event of one order lands on the same partition in order.
// Messages go through a buffered inbox drained by one goroutine; a full
// inbox drops the event instead of blocking the request.
type KafkaPublisher struct {
	w     *kafka.Writer
	inbox chan kafka.Message
	done  chan struct{}

	// mu guards closing and the close of inbox against concurrent sends.
	mu      sync.RWMutex
	closing bool
}

func NewKafkaPublisher(brokers []string, topic string, buf int) *KafkaPublisher {
	if buf <= 0 {
		buf = 256
	}
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
}

// Start launches the drain loop. On ctx cancellation the remaining messages
// are flushed and the writer closed.
func (p *KafkaPublisher) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		for {
			select {
			case <-ctx.Done():
				p.cerrarInbox()
				for m := range p.inbox {
					p.write(m)
				}
				if err := p.w.Close(); err != nil {
					log.Warn().Err(err).Msg("events: error closing kafka writer")
				}
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

// cerrarInbox stops accepting events. Safe to call more than once.
func (p *KafkaPublisher) cerrarInbox() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closing {
		p.closing = true
		close(p.inbox)
	}
}

// Wait blocks until the drain loop has flushed and exited.
func (p *KafkaPublisher) Wait() { <-p.done }

func (p *KafkaPublisher) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		log.Error().Err(err).Str("key", string(m.Key)).Msg("events: kafka write failed")
	}
}

func (p *KafkaPublisher) Publicar(_ context.Context, tipo string, pedidoID uuid.UUID, payload interface{}) {
	env, err := NewEnvelope(tipo, pedidoID, payload)
	if err != nil {
		log.Error().Err(err).Str("tipo", tipo).Msg("events: marshal payload")
		return
	}
	value, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("tipo", tipo).Msg("events: marshal envelope")
		return
	}
	msg := kafka.Message{
		Key:     []byte(pedidoID.String()),
		Value:   value,
		Time:    env.OccurredAt,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(tipo)}},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closing {
		log.Warn().Str("tipo", tipo).Msg("events: publisher closed, event dropped")
		return
	}
	select {
	case p.inbox <- msg:
	default:
		log.Warn().Str("tipo", tipo).Str("pedido_id", pedidoID.String()).Msg("events: inbox full, event dropped")
	}
}
