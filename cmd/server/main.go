package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/config"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/events"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/infra"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/router"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger. dev: pretty, prod: JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Every provider call shares one breaker so /health, the webhook worker
	// and the reconciliation cron agree on its state.
	pagosCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	mp := infra.NewMercadoPagoClient(infra.MercadoPagoConfig{
		BaseURL:         cfg.MercadoPagoBaseURL,
		AccessToken:     cfg.MercadoPagoAccessToken,
		NotificationURL: cfg.MercadoPagoNotificationURL,
		BackURL:         cfg.CheckoutBackURL,
	}, pagosCB)

	var publisher events.Publisher = events.Noop{}
	var kafkaPub *events.KafkaPublisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kafkaPub = events.NewKafkaPublisher(brokers, cfg.KafkaTopicPedidos, 0)
		kafkaPub.Start(ctx)
		publisher = kafkaPub
		log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopicPedidos).Msg("publishing order events to kafka")
	}

	dispatcher := worker.NewDispatcher(rdb)
	svcs := router.NewServices(cfg, router.Infra{
		DB:      db,
		Redis:   rdb,
		Gateway: mp,
		Cola:    dispatcher,
		Eventos: publisher,
	})

	// Worker handlers are wired here (composition root) so that the pool
	// has access to the payment service without an import cycle.
	pagoWorker := worker.NewPagoWorker(svcs.Pagos, rdb)
	workers := worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, map[string]worker.Handler{
		worker.JobNotificacionPago: pagoWorker.Process,
	})
	conciliacion := worker.StartConciliacionCron(ctx, worker.ConciliacionCronConfig{
		Conciliador: svcs.Pagos,
		CB:          pagosCB,
		Intervalo:   cfg.ConciliacionIntervalo(),
	})

	r := router.New(ctx, cfg, db, rdb, pagosCB, svcs)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("almacen backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	conciliacion.Detener()
	workers.Wait()
	if kafkaPub != nil {
		kafkaPub.Wait()
	}
	_ = rdb.Close()
	log.Info().Msg("server exited")
}
