// cmd/esperarpago/main.go: Espera a que un pago QR se acredite, consultando
// el backend como lo haría el storefront.
// Uso: go run ./cmd/esperarpago -pref <preferenceId> [-api http://localhost:8000]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	api := flag.String("api", "http://localhost:8000", "URL base del backend")
	pref := flag.String("pref", "", "preferenceId devuelto por /pagos/generar-qr")
	intervalo := flag.Duration("intervalo", 2*time.Second, "frecuencia de consulta")
	limite := flag.Duration("limite", 300*time.Second, "tiempo máximo de espera")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if *pref == "" {
		log.Fatal().Msg("falta -pref")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := &http.Client{Timeout: 5 * time.Second}
	endpoint := fmt.Sprintf("%s/pagos/%s/estado", *api, url.PathEscape(*pref))

	tarea := worker.Programar(ctx, *intervalo, *limite, func(ctx context.Context) (bool, error) {
		estado, err := consultar(ctx, client, endpoint)
		if err != nil {
			// A failed poll is retried on the next tick.
			log.Warn().Err(err).Msg("consulta fallida")
			return false, nil
		}
		log.Info().
			Str("pedido_id", estado.PedidoID).
			Str("payment_status", estado.PaymentStatus).
			Str("estado", estado.EstadoPedido).
			Msg("estado del pago")
		switch {
		case estado.Pagado:
			log.Info().Msg("pago acreditado")
			return true, nil
		case estado.Expirada:
			return false, worker.ErrTareaExpirada
		}
		return false, nil
	})
	<-tarea.Hecho()

	switch err := tarea.Err(); {
	case err == nil:
	case errors.Is(err, worker.ErrTareaExpirada):
		log.Error().Msg("la sesión de pago expiró sin acreditarse")
		os.Exit(2)
	default:
		log.Error().Err(err).Msg("espera interrumpida")
		os.Exit(1)
	}
}

func consultar(ctx context.Context, client *http.Client, endpoint string) (*dto.EstadoPagoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	var estado dto.EstadoPagoResponse
	if err := json.NewDecoder(resp.Body).Decode(&estado); err != nil {
		return nil, err
	}
	return &estado, nil
}
