package worker

// pago_worker.go
// Processes provider payment notifications from QueuePagos.
// The provider delivers at least once and may reorder; a Redis dedup key per
// (payment, status) drops exact repeats, and the order service itself
// ignores anything that would move an approved order backwards.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	maxIntentosPago = 3
	dedupPagoTTL    = 48 * time.Hour
)

// PagoJobPayload is the job envelope sent to QueuePagos.
type PagoJobPayload struct {
	PagoID string `json:"pago_id"`
}

// ProcesadorPagos is the slice of the payment service the worker needs.
type ProcesadorPagos interface {
	ResolverNotificacion(ctx context.Context, pagoID string) (*infra.PagoInfo, error)
	AplicarNotificacion(ctx context.Context, info *infra.PagoInfo) error
}

type PagoWorker struct {
	proc    ProcesadorPagos
	rdb     *redis.Client
	backoff time.Duration
	aDLQ    func(context.Context, PagoFallido)
}

// NewPagoWorker: rdb may be nil, which disables dedup and the DLQ.
func NewPagoWorker(proc ProcesadorPagos, rdb *redis.Client) *PagoWorker {
	return &PagoWorker{proc: proc, rdb: rdb, backoff: time.Second, aDLQ: dlqPagosRedis(rdb)}
}

func dedupPagoKey(info *infra.PagoInfo) string {
	return fmt.Sprintf("dedup:pago:%s:%s", info.ID, info.Estado)
}

// Process handles one notification:
//  1. Resolve the payment id against the provider (with backoff)
//  2. Claim the dedup key for (payment, status); a repeat stops here
//  3. Apply the status to the order (with backoff)
//  4. On final failure release the claim and park the job in the DLQ
func (w *PagoWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload PagoJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.PagoID == "" {
		log.Error().Err(err).Msg("pago_worker: invalid payload")
		return
	}

	var info *infra.PagoInfo
	err := withRetry(ctx, maxIntentosPago, w.backoff, func(attempt int) error {
		resolved, err := w.proc.ResolverNotificacion(ctx, payload.PagoID)
		if errors.Is(err, infra.ErrProveedorRechazo) {
			return fmt.Errorf("%w: %w", errSinReintento, err)
		}
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Str("pago_id", payload.PagoID).
				Msg("pago_worker: provider lookup failed, retrying")
			return err
		}
		info = resolved
		return nil
	})
	if errors.Is(err, infra.ErrProveedorRechazo) {
		log.Warn().Err(err).Str("pago_id", payload.PagoID).Msg("pago_worker: payment unknown to provider, discarded")
		return
	}
	if err != nil {
		w.aDLQ(ctx, PagoFallido{
			PagoID:    payload.PagoID,
			Etapa:     EtapaResolver,
			Motivo:    err.Error(),
			Intentos:  maxIntentosPago,
			FallidoEn: time.Now().UTC(),
		})
		return
	}

	key := dedupPagoKey(info)
	if w.rdb != nil {
		claimed, err := w.rdb.SetNX(ctx, key, "1", dedupPagoTTL).Result()
		if err != nil {
			log.Warn().Err(err).Str("pago_id", info.ID).Msg("pago_worker: dedup unavailable, applying anyway")
		} else if !claimed {
			log.Debug().Str("pago_id", info.ID).Str("estado", string(info.Estado)).Msg("pago_worker: duplicate notification skipped")
			return
		}
	}

	err = withRetry(ctx, maxIntentosPago, w.backoff, func(attempt int) error {
		if err := w.proc.AplicarNotificacion(ctx, info); err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Str("pago_id", info.ID).
				Msg("pago_worker: apply failed, retrying")
			return err
		}
		return nil
	})
	if err != nil {
		if w.rdb != nil {
			_ = w.rdb.Del(ctx, key).Err()
		}
		w.aDLQ(ctx, PagoFallido{
			PagoID:     info.ID,
			Referencia: info.ReferenciaExterna,
			Estado:     string(info.Estado),
			Etapa:      EtapaAplicar,
			Motivo:     err.Error(),
			Intentos:   maxIntentosPago,
			FallidoEn:  time.Now().UTC(),
		})
		return
	}
	log.Info().Str("pago_id", info.ID).Str("estado", string(info.Estado)).Msg("pago_worker: notification applied")
}

// errSinReintento marks an error that withRetry returns at once.
var errSinReintento = errors.New("sin reintento")

// withRetry calls fn up to maxAttempts times with exponential backoff.
// With base=1s: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * base
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			if errors.Is(err, errSinReintento) {
				return err
			}
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
