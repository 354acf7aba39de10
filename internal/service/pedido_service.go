package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/clock"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/events"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PedidoService owns the order state machine:
//
//	pendiente → entregado
//	pendiente → cancelado
//
// Every transition is a check-then-set under a per-order mutex and a row lock.
type PedidoService interface {
	Crear(ctx context.Context, dni string, req dto.CrearPedidoRequest) (*dto.PedidoResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.PedidoResponse, error)
	ObtenerDeCliente(ctx context.Context, dni string, id uuid.UUID) (*dto.PedidoResponse, error)
	ListarPorCliente(ctx context.Context, dni string) ([]dto.PedidoResponse, error)
	Listar(ctx context.Context, filter dto.PedidoFilter) (*dto.PedidoListResponse, error)
	ConfirmarPago(ctx context.Context, referencia string, estado model.EstadoPago) (*dto.PedidoResponse, error)
	AsignarPreferencia(ctx context.Context, id uuid.UUID, preferenceID string) error
	Despachar(ctx context.Context, id uuid.UUID) (*dto.PedidoResponse, error)
	// Cancelar with a nil dni is the admin variant; otherwise the order must
	// belong to that customer.
	Cancelar(ctx context.Context, id uuid.UUID, dni *string) (*dto.CancelacionResponse, error)
}

type pedidoService struct {
	repo      repository.PedidoRepository
	carritos  repository.CarritoRepository
	productos repository.ProductoRepository
	stock     StockService
	precios   PrecioService
	saldo     SaldoService
	eventos   events.Publisher
	clock     clock.Clock
	clientes  *keyedMutex
	pedidos   *keyedMutex
}

func NewPedidoService(
	repo repository.PedidoRepository,
	carritos repository.CarritoRepository,
	productos repository.ProductoRepository,
	stock StockService,
	precios PrecioService,
	saldo SaldoService,
	eventos events.Publisher,
	clk clock.Clock,
) PedidoService {
	if eventos == nil {
		eventos = events.Noop{}
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &pedidoService{
		repo:      repo,
		carritos:  carritos,
		productos: productos,
		stock:     stock,
		precios:   precios,
		saldo:     saldo,
		eventos:   eventos,
		clock:     clk,
		clientes:  newKeyedMutex(),
		pedidos:   newKeyedMutex(),
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// One transaction:
//   1. Lock the cart row
//   2. Resolve every line's product
//   3. Reserve stock in product id order
//   4. Any shortfall: release this attempt's reservations, report every faltante
//   5. Reprice at now, snapshot lines into a pendiente Pedido, delete the cart

type reserva struct {
	productoID uuid.UUID
	cantidad   int
}

type lineaResuelta struct {
	item     model.CarritoItem
	producto *model.Producto
}

// ordenarPorProducto returns a copy of lineas sorted by product id.
func ordenarPorProducto(lineas []lineaResuelta) []lineaResuelta {
	out := make([]lineaResuelta, len(lineas))
	copy(out, lineas)
	sort.SliceStable(out, func(i, j int) bool {
		return bytes.Compare(out[i].producto.ID[:], out[j].producto.ID[:]) < 0
	})
	return out
}

// itemsPorProducto returns the order lines that reference a product, sorted
// by product id.
func itemsPorProducto(items []model.PedidoItem) []model.PedidoItem {
	out := make([]model.PedidoItem, 0, len(items))
	for _, it := range items {
		if it.ProductoID != nil {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return bytes.Compare((*out[i].ProductoID)[:], (*out[j].ProductoID)[:]) < 0
	})
	return out
}

func (s *pedidoService) resolverProducto(ctx context.Context, tx *gorm.DB, it model.CarritoItem) (*model.Producto, error) {
	var (
		p   *model.Producto
		err error
	)
	if it.ProductoID != nil {
		p, err = s.productos.FindByIDTx(tx, *it.ProductoID)
	} else {
		p, err = s.productos.FindByNombre(ctx, it.Nombre)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !p.Activo {
		return nil, nil
	}
	return p, nil
}

func (s *pedidoService) Crear(ctx context.Context, dni string, req dto.CrearPedidoRequest) (*dto.PedidoResponse, error) {
	metodo, err := model.ParseMetodoPago(req.MetodoPago)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetodoPagoInvalido, err)
	}

	unlock := s.clientes.Lock(dni)
	defer unlock()

	ahora := s.clock.Now()
	pedido := &model.Pedido{
		ID:                uuid.New(),
		ClienteDNI:        dni,
		DireccionEntrega:  req.DireccionEntrega,
		MetodoPago:        metodo,
		Estado:            model.PedidoPendiente,
		ReferenciaExterna: uuid.NewString(),
		CreatedAt:         ahora,
		UpdatedAt:         ahora,
	}
	if metodo.EsAsincronico() {
		pendiente := model.PagoPendiente
		pedido.PaymentStatus = &pendiente
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		carrito, err := s.carritos.FindForUpdateTx(tx, dni)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCarritoVacio
		}
		if err != nil {
			return err
		}
		if len(carrito.Items) == 0 {
			return ErrCarritoVacio
		}

		var (
			lineas    []lineaResuelta
			reservas  []reserva
			faltantes []dto.Faltante
			total     = decimal.Zero
		)
		for _, it := range carrito.Items {
			prod, err := s.resolverProducto(ctx, tx, it)
			if err != nil {
				return err
			}
			if prod == nil {
				faltantes = append(faltantes, dto.Faltante{
					ProductID:  uuidPtrString(it.ProductoID),
					Nombre:     it.Nombre,
					Solicitado: it.Cantidad,
					Disponible: 0,
				})
				continue
			}
			lineas = append(lineas, lineaResuelta{item: it, producto: prod})
		}

		// Stock rows are locked in product id order so concurrent checkouts
		// and cancellations never wait on each other in a cycle.
		for _, l := range ordenarPorProducto(lineas) {
			err := s.stock.ReservarTx(ctx, tx, l.producto.ID, l.item.Cantidad, pedido.ID)
			if errors.Is(err, ErrStockInsuficiente) {
				disponible := 0
				if actual, ferr := s.productos.FindByIDTx(tx, l.producto.ID); ferr == nil {
					disponible = actual.StockActual
				}
				id := l.producto.ID.String()
				faltantes = append(faltantes, dto.Faltante{
					ProductID:  &id,
					Nombre:     l.producto.Nombre,
					Solicitado: l.item.Cantidad,
					Disponible: disponible,
				})
				continue
			}
			if err != nil {
				return err
			}
			reservas = append(reservas, reserva{productoID: l.producto.ID, cantidad: l.item.Cantidad})
		}

		if len(faltantes) == 0 {
			for _, l := range lineas {
				prod := l.producto
				precio, _, err := s.precios.PrecioEfectivo(ctx, prod, ahora)
				if err != nil {
					return err
				}
				subtotal := precio.Mul(decimal.NewFromInt(int64(l.item.Cantidad)))
				productoID := prod.ID
				pedido.Items = append(pedido.Items, model.PedidoItem{
					ID:             uuid.New(),
					PedidoID:       pedido.ID,
					ProductoID:     &productoID,
					Nombre:         prod.Nombre,
					PrecioUnitario: precio,
					Cantidad:       l.item.Cantidad,
					Subtotal:       subtotal,
				})
				total = total.Add(subtotal)
			}
		}

		if len(faltantes) > 0 {
			for _, r := range reservas {
				if err := s.stock.LiberarTx(ctx, tx, r.productoID, r.cantidad, pedido.ID); err != nil {
					return err
				}
			}
			return &StockInsuficienteError{Faltantes: faltantes}
		}

		pedido.Total = total
		if err := s.repo.CreateTx(tx, pedido); err != nil {
			return err
		}
		return s.carritos.DeleteTx(tx, dni)
	})
	if txErr != nil {
		var stockErr *StockInsuficienteError
		if errors.As(txErr, &stockErr) {
			log.Info().Str("dni", dni).Int("faltantes", len(stockErr.Faltantes)).Msg("pedido rechazado por stock insuficiente")
		}
		return nil, txErr
	}

	log.Info().
		Str("pedido_id", pedido.ID.String()).
		Str("dni", dni).
		Str("metodo_pago", string(metodo)).
		Str("total", pedido.Total.StringFixed(2)).
		Msg("pedido creado")
	s.publicar(ctx, events.PedidoCreado, pedido, nil)
	return pedidoToResponse(pedido), nil
}

// ── Lecturas ──────────────────────────────────────────────────────────────────

func (s *pedidoService) buscar(ctx context.Context, id uuid.UUID) (*model.Pedido, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPedidoNoEncontrado
	}
	return p, err
}

func (s *pedidoService) Obtener(ctx context.Context, id uuid.UUID) (*dto.PedidoResponse, error) {
	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	return pedidoToResponse(p), nil
}

// ObtenerDeCliente hides other customers' orders behind ErrPedidoNoEncontrado.
func (s *pedidoService) ObtenerDeCliente(ctx context.Context, dni string, id uuid.UUID) (*dto.PedidoResponse, error) {
	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ClienteDNI != dni {
		return nil, ErrPedidoNoEncontrado
	}
	return pedidoToResponse(p), nil
}

func (s *pedidoService) ListarPorCliente(ctx context.Context, dni string) ([]dto.PedidoResponse, error) {
	pedidos, err := s.repo.ListByCliente(ctx, dni)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PedidoResponse, 0, len(pedidos))
	for i := range pedidos {
		out = append(out, *pedidoToResponse(&pedidos[i]))
	}
	return out, nil
}

func (s *pedidoService) Listar(ctx context.Context, filter dto.PedidoFilter) (*dto.PedidoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	pedidos, total, err := s.repo.List(ctx, repository.PedidoFilter{
		Estado: filter.Estado,
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	data := make([]dto.PedidoResponse, 0, len(pedidos))
	for i := range pedidos {
		data = append(data, *pedidoToResponse(&pedidos[i]))
	}
	return &dto.PedidoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Transiciones ──────────────────────────────────────────────────────────────

// transicionar locks the order, lets fn mutate it and persists the result.
// fn returning errSinCambios skips the write.
func (s *pedidoService) transicionar(ctx context.Context, id uuid.UUID, fn func(tx *gorm.DB, p *model.Pedido) error) (*model.Pedido, error) {
	unlock := s.pedidos.Lock(id.String())
	defer unlock()

	var out *model.Pedido
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.FindForUpdateTx(tx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPedidoNoEncontrado
		}
		if err != nil {
			return err
		}
		out = p
		if err := fn(tx, p); err != nil {
			return err
		}
		p.UpdatedAt = s.clock.Now()
		return s.repo.UpdateTx(tx, p)
	})
	if errors.Is(err, errSinCambios) {
		return out, nil
	}
	return out, err
}

var errSinCambios = errors.New("sin cambios")

// ConfirmarPago records a provider status on the order correlated by
// referencia. approved is sticky; repeated or downgrading statuses are no-ops
// and estado is never touched.
func (s *pedidoService) ConfirmarPago(ctx context.Context, referencia string, estado model.EstadoPago) (*dto.PedidoResponse, error) {
	ref, err := s.repo.FindByReferencia(ctx, referencia)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPedidoNoEncontrado
	}
	if err != nil {
		return nil, err
	}

	primeraAprobacion := false
	p, err := s.transicionar(ctx, ref.ID, func(_ *gorm.DB, p *model.Pedido) error {
		if p.Pagado() || estado == model.PagoDesconocido {
			return errSinCambios
		}
		if p.PaymentStatus != nil && *p.PaymentStatus == estado {
			return errSinCambios
		}
		e := estado
		p.PaymentStatus = &e
		primeraAprobacion = estado == model.PagoAprobado
		return nil
	})
	if err != nil {
		return nil, err
	}

	if primeraAprobacion {
		ev := log.Info()
		if p.Estado == model.PedidoCancelado {
			ev = log.Warn()
		}
		ev.Str("pedido_id", p.ID.String()).Str("estado", string(p.Estado)).Msg("pago aprobado")
		s.publicar(ctx, events.PedidoPagado, p, nil)
	}
	return pedidoToResponse(p), nil
}

func (s *pedidoService) AsignarPreferencia(ctx context.Context, id uuid.UUID, preferenceID string) error {
	_, err := s.transicionar(ctx, id, func(_ *gorm.DB, p *model.Pedido) error {
		if p.PreferenceID != nil && *p.PreferenceID == preferenceID {
			return errSinCambios
		}
		p.PreferenceID = &preferenceID
		return nil
	})
	return err
}

func (s *pedidoService) Despachar(ctx context.Context, id uuid.UUID) (*dto.PedidoResponse, error) {
	p, err := s.transicionar(ctx, id, func(_ *gorm.DB, p *model.Pedido) error {
		if !p.Estado.PuedeTransicionar(model.PedidoEntregado) {
			return ErrPedidoNoPendiente
		}
		ahora := s.clock.Now()
		p.Estado = model.PedidoEntregado
		p.FechaEntrega = &ahora
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("pedido_id", id.String()).Msg("pedido despachado")
	s.publicar(ctx, events.PedidoDespachado, p, nil)
	return pedidoToResponse(p), nil
}

func (s *pedidoService) Cancelar(ctx context.Context, id uuid.UUID, dni *string) (*dto.CancelacionResponse, error) {
	acreditado := decimal.Zero
	p, err := s.transicionar(ctx, id, func(tx *gorm.DB, p *model.Pedido) error {
		if dni != nil && p.ClienteDNI != *dni {
			return ErrPedidoNoEncontrado
		}
		switch p.Estado {
		case model.PedidoEntregado:
			return ErrPedidoEntregado
		case model.PedidoCancelado:
			return ErrPedidoYaCancelado
		}
		if !p.Estado.PuedeTransicionar(model.PedidoCancelado) {
			return ErrPedidoNoPendiente
		}
		p.Estado = model.PedidoCancelado

		for _, it := range itemsPorProducto(p.Items) {
			err := s.stock.LiberarTx(ctx, tx, *it.ProductoID, it.Cantidad, p.ID)
			if errors.Is(err, repository.ErrNotFound) {
				log.Warn().Str("pedido_id", p.ID.String()).Str("producto_id", it.ProductoID.String()).
					Msg("cancelación: producto inexistente, stock no restituido")
				continue
			}
			if err != nil {
				return fmt.Errorf("liberar stock de %s: %w", it.Nombre, err)
			}
		}

		ok, err := s.saldo.AcreditarTx(ctx, tx, p.ClienteDNI, p.ID, p.Total, "Cancelación pedido "+p.ID.String())
		if err != nil {
			return fmt.Errorf("acreditar saldo: %w", err)
		}
		if ok {
			acreditado = p.Total
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	saldo, err := s.saldo.Saldo(ctx, p.ClienteDNI)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("pedido_id", id.String()).
		Str("dni", p.ClienteDNI).
		Str("acreditado", acreditado.StringFixed(2)).
		Msg("pedido cancelado")
	s.publicar(ctx, events.PedidoCancelado, p, &acreditado)
	return &dto.CancelacionResponse{
		Pedido:          *pedidoToResponse(p),
		SaldoAcreditado: acreditado,
		SaldoAFavor:     saldo,
	}, nil
}

func (s *pedidoService) publicar(ctx context.Context, tipo string, p *model.Pedido, acreditado *decimal.Decimal) {
	payload := events.PedidoPayload{
		PedidoID:        p.ID.String(),
		ClienteDNI:      p.ClienteDNI,
		Estado:          string(p.Estado),
		MetodoPago:      string(p.MetodoPago),
		Total:           p.Total,
		SaldoAcreditado: acreditado,
	}
	if p.PaymentStatus != nil {
		ps := string(*p.PaymentStatus)
		payload.PaymentStatus = &ps
	}
	s.eventos.Publicar(ctx, tipo, p.ID, payload)
}
