package service

import (
	"context"
	"errors"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/clock"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RepetirService rebuilds cart lines from a past order against the current
// catalog and stock. It never reserves stock and never fails because of a
// single item; those are reported as omitidos.
type RepetirService interface {
	Repetir(ctx context.Context, dni string, pedidoID uuid.UUID) (*dto.RepetirResponse, error)
}

type repetirService struct {
	pedidos   repository.PedidoRepository
	productos repository.ProductoRepository
	carritos  CarritoService
	stock     StockService
	precios   PrecioService
	clock     clock.Clock
}

func NewRepetirService(
	pedidos repository.PedidoRepository,
	productos repository.ProductoRepository,
	carritos CarritoService,
	stock StockService,
	precios PrecioService,
	clk clock.Clock,
) RepetirService {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &repetirService{
		pedidos:   pedidos,
		productos: productos,
		carritos:  carritos,
		stock:     stock,
		precios:   precios,
		clock:     clk,
	}
}

func (s *repetirService) Repetir(ctx context.Context, dni string, pedidoID uuid.UUID) (*dto.RepetirResponse, error) {
	pedido, err := s.pedidos.FindByID(ctx, pedidoID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPedidoNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	if pedido.ClienteDNI != dni {
		return nil, ErrPedidoNoEncontrado
	}

	var resp *dto.RepetirResponse
	carrito, err := s.carritos.Modificar(ctx, dni, func(c *model.Carrito) error {
		// rebuilt on every attempt so a retried transaction starts clean
		resp = &dto.RepetirResponse{
			Agregados:     []dto.RepetirAgregado{},
			Omitidos:      []dto.RepetirOmitido{},
			TotalAgregado: decimal.Zero,
		}
		ahora := s.clock.Now()
		for _, it := range pedido.Items {
			if err := s.reponer(ctx, c, it, ahora, resp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp.SinCambios = len(resp.Agregados) == 0
	resp.Carrito = *carrito
	log.Info().
		Str("dni", dni).
		Str("pedido_id", pedidoID.String()).
		Int("agregados", len(resp.Agregados)).
		Int("omitidos", len(resp.Omitidos)).
		Msg("pedido repetido")
	return resp, nil
}

// reponer adds one historical line to c, or records why it could not.
func (s *repetirService) reponer(ctx context.Context, c *model.Carrito, it model.PedidoItem, ahora time.Time, resp *dto.RepetirResponse) error {
	omitir := func(productID *string, motivo string) {
		resp.Omitidos = append(resp.Omitidos, dto.RepetirOmitido{
			ProductID:          productID,
			Nombre:             it.Nombre,
			CantidadSolicitada: it.Cantidad,
			Motivo:             motivo,
		})
	}

	if it.ProductoID == nil {
		omitir(nil, dto.OmitidoProductoInexistente)
		return nil
	}
	prod, err := s.productos.FindByID(ctx, *it.ProductoID)
	if errors.Is(err, repository.ErrNotFound) {
		omitir(nil, dto.OmitidoProductoInexistente)
		return nil
	}
	if err != nil {
		return err
	}
	id := prod.ID.String()
	if !prod.Activo {
		omitir(&id, dto.OmitidoProductoInexistente)
		return nil
	}

	disponible, _, err := s.stock.Verificar(ctx, prod.ID, it.Cantidad)
	if errors.Is(err, ErrProductoNoEncontrado) {
		omitir(&id, dto.OmitidoProductoInexistente)
		return nil
	}
	if err != nil {
		return err
	}
	if disponible <= 0 {
		omitir(&id, dto.OmitidoSinStock)
		return nil
	}
	capacidad := disponible - c.CantidadDe(prod.ID)
	if capacidad <= 0 {
		omitir(&id, dto.OmitidoCarritoSinCapacidadPorStock)
		return nil
	}
	agregar := min(it.Cantidad, capacidad)
	if agregar <= 0 {
		omitir(&id, dto.OmitidoSinCantidadAgregada)
		return nil
	}

	precio, _, err := s.precios.PrecioEfectivo(ctx, prod, ahora)
	if err != nil {
		return err
	}
	productoID := prod.ID
	if idx := c.Buscar(model.ItemKey{ProductoID: &productoID, Nombre: prod.Nombre}); idx >= 0 {
		linea := &c.Items[idx]
		linea.Cantidad += agregar
		linea.PrecioUnitario = precio
		linea.ProductoID = &productoID
	} else {
		c.Items = append(c.Items, model.CarritoItem{
			ProductoID:     &productoID,
			Nombre:         prod.Nombre,
			PrecioUnitario: precio,
			Cantidad:       agregar,
		})
	}

	resp.Agregados = append(resp.Agregados, dto.RepetirAgregado{
		ProductID:          id,
		Nombre:             prod.Nombre,
		CantidadAgregada:   agregar,
		CantidadSolicitada: it.Cantidad,
		StockDisponible:    disponible,
		Completo:           agregar == it.Cantidad,
		PrecioUnitario:     precio,
	})
	resp.TotalAgregado = resp.TotalAgregado.Add(precio.Mul(decimal.NewFromInt(int64(agregar))))
	return nil
}
