package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/clock"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PrecioService resolves effective prices and administers promotions.
type PrecioService interface {
	// PrecioEfectivo returns the price of p at asOf and the promotion applied,
	// if any.
	PrecioEfectivo(ctx context.Context, p *model.Producto, asOf time.Time) (decimal.Decimal, *model.Promocion, error)
	ConsultarPrecio(ctx context.Context, productoID uuid.UUID) (*dto.PrecioResponse, error)
	CrearPromocion(ctx context.Context, req dto.CrearPromocionRequest) (*dto.PromocionResponse, error)
	ActualizarPromocion(ctx context.Context, id uuid.UUID, req dto.ActualizarPromocionRequest) (*dto.PromocionResponse, error)
	ListarPromociones(ctx context.Context, productoID *uuid.UUID) ([]dto.PromocionResponse, error)
}

type precioService struct {
	promociones repository.PromocionRepository
	productos   repository.ProductoRepository
	cache       repository.PrecioCache
	clock       clock.Clock
	locks       *keyedMutex
}

// NewPrecioService: cache may be nil.
func NewPrecioService(
	promociones repository.PromocionRepository,
	productos repository.ProductoRepository,
	cache repository.PrecioCache,
	clk clock.Clock,
) PrecioService {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &precioService{
		promociones: promociones,
		productos:   productos,
		cache:       cache,
		clock:       clk,
		locks:       newKeyedMutex(),
	}
}

func (s *precioService) PrecioEfectivo(ctx context.Context, p *model.Producto, asOf time.Time) (decimal.Decimal, *model.Promocion, error) {
	candidatas, err := s.promociones.VigentesEn(ctx, p.ID, asOf)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("promociones vigentes: %w", err)
	}
	vigentes := candidatas[:0:0]
	for i := range candidatas {
		if candidatas[i].VigenteEn(asOf) {
			vigentes = append(vigentes, candidatas[i])
		}
	}
	switch len(vigentes) {
	case 0:
		return p.PrecioVenta, nil, nil
	case 1:
		return vigentes[0].Aplicar(p.PrecioVenta), &vigentes[0], nil
	}

	sort.SliceStable(vigentes, func(i, j int) bool {
		return vigentes[i].CreatedAt.After(vigentes[j].CreatedAt)
	})
	elegida := &vigentes[0]
	log.Warn().
		Str("producto_id", p.ID.String()).
		Int("promociones_vigentes", len(vigentes)).
		Str("promocion_elegida", elegida.ID.String()).
		Msg("integridad: promociones superpuestas, se aplica la más reciente")
	return elegida.Aplicar(p.PrecioVenta), elegida, nil
}

// precioCacheTTL bounds how long a promotion boundary can be served stale.
const precioCacheTTL = 60 * time.Second

func (s *precioService) ConsultarPrecio(ctx context.Context, productoID uuid.UUID) (*dto.PrecioResponse, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, productoID); err == nil {
			return cached, nil
		}
	}

	p, err := s.productos.FindByID(ctx, productoID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !p.Activo) {
		return nil, ErrProductoNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	precio, promo, err := s.PrecioEfectivo(ctx, p, s.clock.Now())
	if err != nil {
		return nil, err
	}
	resp := &dto.PrecioResponse{
		ProductoID:      p.ID.String(),
		Nombre:          p.Nombre,
		PrecioVenta:     p.PrecioVenta,
		PrecioEfectivo:  precio,
		StockDisponible: p.StockActual,
	}
	if promo != nil {
		resp.Promocion = promocionToResponse(promo)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, productoID, resp, precioCacheTTL); err != nil {
			log.Warn().Err(err).Str("producto_id", productoID.String()).Msg("no se pudo cachear el precio")
		}
	}
	return resp, nil
}

// parseRango turns two YYYY-MM-DD dates into [inicio 00:00, fin 23:59:59.999999].
func parseRango(inicio, fin string) (time.Time, time.Time, error) {
	desde, err := time.ParseInLocation(time.DateOnly, inicio, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: fechaInicio", ErrPromocionInvalida)
	}
	hasta, err := time.ParseInLocation(time.DateOnly, fin, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: fechaFin", ErrPromocionInvalida)
	}
	if hasta.Before(desde) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: fechaFin anterior a fechaInicio", ErrPromocionInvalida)
	}
	return desde, hasta.AddDate(0, 0, 1).Add(-time.Microsecond), nil
}

func validarValor(tipo model.TipoPromocion, valor decimal.Decimal) error {
	if !valor.IsPositive() {
		return fmt.Errorf("%w: valor debe ser positivo", ErrPromocionInvalida)
	}
	if tipo == model.PromocionPorcentaje && valor.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: porcentaje mayor a 100", ErrPromocionInvalida)
	}
	return nil
}

func (s *precioService) CrearPromocion(ctx context.Context, req dto.CrearPromocionRequest) (*dto.PromocionResponse, error) {
	productoID, err := uuid.Parse(req.ProductoID)
	if err != nil {
		return nil, fmt.Errorf("%w: productoId", ErrPromocionInvalida)
	}
	tipo, err := model.ParseTipoPromocion(req.Tipo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPromocionInvalida, err)
	}
	if err := validarValor(tipo, req.Valor); err != nil {
		return nil, err
	}
	desde, hasta, err := parseRango(req.FechaInicio, req.FechaFin)
	if err != nil {
		return nil, err
	}
	activa := true
	if req.Activa != nil {
		activa = *req.Activa
	}

	promo := &model.Promocion{
		ID:          uuid.New(),
		ProductoID:  productoID,
		Tipo:        tipo,
		Valor:       req.Valor,
		FechaInicio: desde,
		FechaFin:    hasta,
		Activa:      activa,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.guardar(ctx, promo, true); err != nil {
		return nil, err
	}
	log.Info().
		Str("promocion_id", promo.ID.String()).
		Str("producto_id", productoID.String()).
		Str("tipo", string(tipo)).
		Msg("promoción creada")
	return promocionToResponse(promo), nil
}

func (s *precioService) ActualizarPromocion(ctx context.Context, id uuid.UUID, req dto.ActualizarPromocionRequest) (*dto.PromocionResponse, error) {
	promo, err := s.promociones.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPromocionNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	tipo, err := model.ParseTipoPromocion(req.Tipo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPromocionInvalida, err)
	}
	if err := validarValor(tipo, req.Valor); err != nil {
		return nil, err
	}
	desde, hasta, err := parseRango(req.FechaInicio, req.FechaFin)
	if err != nil {
		return nil, err
	}

	promo.Tipo = tipo
	promo.Valor = req.Valor
	promo.FechaInicio = desde
	promo.FechaFin = hasta
	promo.Activa = req.Activa
	if err := s.guardar(ctx, promo, false); err != nil {
		return nil, err
	}
	return promocionToResponse(promo), nil
}

// guardar checks the overlap rule and persists promo. The product row lock
// serializes concurrent writers across replicas; the keyed mutex does the
// same inside this process.
func (s *precioService) guardar(ctx context.Context, promo *model.Promocion, nueva bool) error {
	unlock := s.locks.Lock(promo.ProductoID.String())
	defer unlock()

	err := runTx(ctx, s.promociones.DB(), func(tx *gorm.DB) error {
		if _, err := s.productos.LockTx(tx, promo.ProductoID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrProductoNoEncontrado
			}
			return err
		}
		if promo.Activa {
			activas, err := s.promociones.ListActivasByProductoTx(tx, promo.ProductoID)
			if err != nil {
				return err
			}
			for i := range activas {
				otra := &activas[i]
				if otra.ID == promo.ID {
					continue
				}
				if promo.SeSuperponeCon(otra) {
					return fmt.Errorf("%w (promoción %s)", ErrPromocionSuperpuesta, otra.ID)
				}
			}
		}
		if nueva {
			return s.promociones.CreateTx(tx, promo)
		}
		return s.promociones.UpdateTx(tx, promo)
	})
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidar(ctx, promo.ProductoID); err != nil {
			log.Warn().Err(err).Str("producto_id", promo.ProductoID.String()).Msg("no se pudo invalidar el precio cacheado")
		}
	}
	return nil
}

func (s *precioService) ListarPromociones(ctx context.Context, productoID *uuid.UUID) ([]dto.PromocionResponse, error) {
	promos, err := s.promociones.List(ctx, productoID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PromocionResponse, 0, len(promos))
	for i := range promos {
		out = append(out, *promocionToResponse(&promos[i]))
	}
	return out, nil
}
