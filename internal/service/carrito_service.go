package service

import (
	"context"
	"errors"
	"strings"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/clock"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CarritoService manages the per-customer cart. Every mutation is a locked
// read-modify-write of the single cart row.
type CarritoService interface {
	Obtener(ctx context.Context, dni string) (*dto.CarritoResponse, error)
	AgregarItem(ctx context.Context, dni string, req dto.AgregarItemRequest) (*dto.CarritoResponse, error)
	ActualizarCantidad(ctx context.Context, dni string, req dto.ActualizarCantidadRequest) (*dto.CarritoResponse, error)
	EliminarItem(ctx context.Context, dni string, req dto.EliminarItemRequest) (*dto.CarritoResponse, error)
	Vaciar(ctx context.Context, dni string) (*dto.CarritoResponse, error)
	// Modificar runs fn on the locked cart, creating it when missing, then
	// recomputes totals and saves it.
	Modificar(ctx context.Context, dni string, fn func(c *model.Carrito) error) (*dto.CarritoResponse, error)
}

type carritoService struct {
	repo      repository.CarritoRepository
	productos repository.ProductoRepository
	precios   PrecioService
	clock     clock.Clock
	locks     *keyedMutex
}

func NewCarritoService(
	repo repository.CarritoRepository,
	productos repository.ProductoRepository,
	precios PrecioService,
	clk clock.Clock,
) CarritoService {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &carritoService{
		repo:      repo,
		productos: productos,
		precios:   precios,
		clock:     clk,
		locks:     newKeyedMutex(),
	}
}

var errSinCarrito = errors.New("sin carrito")

func vacio(dni string) *model.Carrito {
	return &model.Carrito{DNI: dni, Items: []model.CarritoItem{}}
}

func (s *carritoService) Obtener(ctx context.Context, dni string) (*dto.CarritoResponse, error) {
	c, err := s.repo.Find(ctx, dni)
	if errors.Is(err, repository.ErrNotFound) {
		return carritoToResponse(vacio(dni)), nil
	}
	if err != nil {
		return nil, err
	}
	return carritoToResponse(c), nil
}

// mutar is the single write path. With crear=false a missing cart makes it
// return errSinCarrito without touching storage.
func (s *carritoService) mutar(ctx context.Context, dni string, crear bool, fn func(c *model.Carrito) error) (*model.Carrito, error) {
	unlock := s.locks.Lock(dni)
	defer unlock()

	var out *model.Carrito
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if crear {
			if err := s.repo.EnsureTx(tx, dni); err != nil {
				return err
			}
		}
		c, err := s.repo.FindForUpdateTx(tx, dni)
		if errors.Is(err, repository.ErrNotFound) {
			if !crear {
				return errSinCarrito
			}
			c = vacio(dni)
		} else if err != nil {
			return err
		}
		if c.Items == nil {
			c.Items = []model.CarritoItem{}
		}

		if err := fn(c); err != nil {
			return err
		}
		c.Recalcular()
		if err := s.repo.SaveTx(tx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (s *carritoService) Modificar(ctx context.Context, dni string, fn func(c *model.Carrito) error) (*dto.CarritoResponse, error) {
	c, err := s.mutar(ctx, dni, true, fn)
	if err != nil {
		return nil, err
	}
	return carritoToResponse(c), nil
}

func parseKey(productID *string, nombre string) (model.ItemKey, error) {
	k := model.ItemKey{Nombre: strings.TrimSpace(nombre)}
	if productID != nil && *productID != "" {
		id, err := uuid.Parse(*productID)
		if err != nil {
			return k, ErrProductoNoEncontrado
		}
		k.ProductoID = &id
	}
	return k, nil
}

// precioActual resolves the catalog product and its effective price now.
func (s *carritoService) precioActual(ctx context.Context, p *model.Producto) (decimal.Decimal, error) {
	precio, _, err := s.precios.PrecioEfectivo(ctx, p, s.clock.Now())
	return precio, err
}

func (s *carritoService) AgregarItem(ctx context.Context, dni string, req dto.AgregarItemRequest) (*dto.CarritoResponse, error) {
	if req.Cantidad < 1 {
		return nil, ErrCantidadInvalida
	}
	key, err := parseKey(req.ProductID, req.Nombre)
	if err != nil {
		return nil, err
	}

	var prod *model.Producto
	if key.ProductoID != nil {
		prod, err = s.productos.FindByID(ctx, *key.ProductoID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !prod.Activo) {
			return nil, ErrProductoNoEncontrado
		}
		if err != nil {
			return nil, err
		}
	} else if key.Nombre != "" {
		prod, err = s.productos.FindByNombre(ctx, key.Nombre)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	linea := model.CarritoItem{Nombre: key.Nombre, Cantidad: req.Cantidad}
	if prod != nil {
		precio, err := s.precioActual(ctx, prod)
		if err != nil {
			return nil, err
		}
		id := prod.ID
		linea.ProductoID = &id
		linea.Nombre = prod.Nombre
		linea.PrecioUnitario = precio
	} else {
		if !req.PrecioUnitario.IsPositive() {
			return nil, ErrPrecioInvalido
		}
		linea.PrecioUnitario = req.PrecioUnitario
	}
	if linea.Nombre == "" {
		return nil, ErrItemNoEncontrado
	}

	c, err := s.mutar(ctx, dni, true, func(c *model.Carrito) error {
		idx := c.Buscar(model.ItemKey{ProductoID: linea.ProductoID, Nombre: linea.Nombre})
		if idx < 0 {
			c.Items = append(c.Items, linea)
			return nil
		}
		it := &c.Items[idx]
		it.Cantidad += linea.Cantidad
		it.PrecioUnitario = linea.PrecioUnitario
		if it.ProductoID == nil {
			it.ProductoID = linea.ProductoID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("dni", dni).Str("nombre", linea.Nombre).Int("cantidad", linea.Cantidad).Msg("carrito: ítem agregado")
	return carritoToResponse(c), nil
}

func (s *carritoService) ActualizarCantidad(ctx context.Context, dni string, req dto.ActualizarCantidadRequest) (*dto.CarritoResponse, error) {
	if req.Cantidad < 1 {
		return nil, ErrCantidadInvalida
	}
	key, err := parseKey(req.ProductID, req.Nombre)
	if err != nil {
		return nil, err
	}

	c, err := s.mutar(ctx, dni, false, func(c *model.Carrito) error {
		idx := c.Buscar(key)
		if idx < 0 {
			return ErrItemNoEncontrado
		}
		it := &c.Items[idx]
		it.Cantidad = req.Cantidad
		if it.ProductoID != nil {
			if p, err := s.productos.FindByID(ctx, *it.ProductoID); err == nil && p.Activo {
				if precio, err := s.precioActual(ctx, p); err == nil {
					it.PrecioUnitario = precio
				}
			}
		}
		return nil
	})
	if errors.Is(err, errSinCarrito) {
		return nil, ErrItemNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	return carritoToResponse(c), nil
}

func (s *carritoService) EliminarItem(ctx context.Context, dni string, req dto.EliminarItemRequest) (*dto.CarritoResponse, error) {
	key, err := parseKey(req.ProductID, req.Nombre)
	if err != nil {
		return nil, err
	}
	c, err := s.mutar(ctx, dni, false, func(c *model.Carrito) error {
		if idx := c.Buscar(key); idx >= 0 {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		}
		return nil
	})
	if errors.Is(err, errSinCarrito) {
		return carritoToResponse(vacio(dni)), nil
	}
	if err != nil {
		return nil, err
	}
	return carritoToResponse(c), nil
}

func (s *carritoService) Vaciar(ctx context.Context, dni string) (*dto.CarritoResponse, error) {
	c, err := s.mutar(ctx, dni, false, func(c *model.Carrito) error {
		c.Items = []model.CarritoItem{}
		return nil
	})
	if errors.Is(err, errSinCarrito) {
		return carritoToResponse(vacio(dni)), nil
	}
	if err != nil {
		return nil, err
	}
	return carritoToResponse(c), nil
}
