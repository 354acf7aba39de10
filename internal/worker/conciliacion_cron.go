package worker

// conciliacion_cron.go
// Background loop that asks the provider about QR orders still waiting for
// payment, for the case where the webhook never arrived. It pauses while the
// circuit breaker is open so a downed provider is not hammered.

import (
	"context"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/infra"

	"github.com/rs/zerolog/log"
)

const conciliacionBatchSize = 20

type Conciliador interface {
	ConciliarPendientes(ctx context.Context, limite int) (int, error)
}

type ConciliacionCronConfig struct {
	Conciliador Conciliador
	CB          *infra.CircuitBreaker
	Intervalo   time.Duration
}

// StartConciliacionCron ticks every cfg.Intervalo until ctx is cancelled.
func StartConciliacionCron(ctx context.Context, cfg ConciliacionCronConfig) *Tarea {
	if cfg.Intervalo <= 0 {
		cfg.Intervalo = 30 * time.Second
	}
	log.Info().Dur("intervalo", cfg.Intervalo).Msg("conciliacion_cron: started")
	return Programar(ctx, cfg.Intervalo, 0, func(ctx context.Context) (bool, error) {
		conciliar(ctx, cfg)
		return false, nil
	})
}

func conciliar(ctx context.Context, cfg ConciliacionCronConfig) {
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("conciliacion_cron: circuit breaker is open, skipping tick")
		return
	}
	n, err := cfg.Conciliador.ConciliarPendientes(ctx, conciliacionBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("conciliacion_cron: failed to reconcile pending payments")
		return
	}
	if n > 0 {
		log.Info().Int("actualizados", n).Msg("conciliacion_cron: payment statuses updated")
	}
}
