package worker

// dlq.go
// Payment notifications that still fail after every retry are parked in
// dlq:jobs:pagos, newest first, so an operator can look them up by payment
// id or order reference and replay them through the webhook.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const dlqPagos = "dlq:" + QueuePagos

// EtapaPago is the step of Process that gave up.
type EtapaPago string

const (
	EtapaResolver EtapaPago = "resolver" // provider lookup of the payment id
	EtapaAplicar  EtapaPago = "aplicar"  // status applied to the order
)

// PagoFallido is one parked notification.
type PagoFallido struct {
	PagoID     string    `json:"pago_id"`
	Referencia string    `json:"referencia,omitempty"` // known once the payment resolved
	Estado     string    `json:"estado,omitempty"`
	Etapa      EtapaPago `json:"etapa"`
	Motivo     string    `json:"motivo"`
	Intentos   int       `json:"intentos"`
	FallidoEn  time.Time `json:"fallido_en"`
}

// dlqPagosRedis returns the sink PagoWorker uses by default.
func dlqPagosRedis(rdb *redis.Client) func(context.Context, PagoFallido) {
	return func(ctx context.Context, f PagoFallido) {
		logger := log.Warn().
			Str("pago_id", f.PagoID).
			Str("etapa", string(f.Etapa)).
			Str("motivo", f.Motivo).
			Int("intentos", f.Intentos)
		if rdb == nil {
			logger.Msg("dlq: no redis client, failed notification dropped")
			return
		}
		data, err := json.Marshal(f)
		if err != nil {
			log.Error().Err(err).Str("pago_id", f.PagoID).Msg("dlq: failed to marshal entry")
			return
		}
		if err := rdb.LPush(context.WithoutCancel(ctx), dlqPagos, data).Err(); err != nil {
			log.Error().Err(err).Str("pago_id", f.PagoID).Msg("dlq: failed to push entry")
			return
		}
		logger.Msg("dlq: payment notification parked")
	}
}

// DLQPagosLength returns how many notifications are parked, for /health.
func DLQPagosLength(ctx context.Context, rdb *redis.Client) (int64, error) {
	return rdb.LLen(ctx, dlqPagos).Result()
}
