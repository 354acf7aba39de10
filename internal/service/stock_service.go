package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockService is the only writer of productos.stock_actual. Every change
// leaves a MovimientoStock referencing the order that caused it.
type StockService interface {
	// ReservarTx decrements stock or fails with ErrStockInsuficiente.
	ReservarTx(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, cantidad int, pedidoID uuid.UUID) error
	LiberarTx(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, cantidad int, pedidoID uuid.UUID) error
	// Verificar reports current stock and whether it covers cantidad. It
	// never mutates anything.
	Verificar(ctx context.Context, productoID uuid.UUID, cantidad int) (int, bool, error)
}

type stockService struct {
	productos   repository.ProductoRepository
	movimientos repository.MovimientoStockRepository
}

func NewStockService(productos repository.ProductoRepository, movimientos repository.MovimientoStockRepository) StockService {
	return &stockService{productos: productos, movimientos: movimientos}
}

func (s *stockService) ReservarTx(_ context.Context, tx *gorm.DB, productoID uuid.UUID, cantidad int, pedidoID uuid.UUID) error {
	if cantidad < 1 {
		return ErrCantidadInvalida
	}
	nuevo, ok, err := s.productos.DescontarStockTx(tx, productoID, cantidad)
	if err != nil {
		return fmt.Errorf("descontar stock: %w", err)
	}
	if !ok {
		return ErrStockInsuficiente
	}
	return s.movimientos.CreateTx(tx, &model.MovimientoStock{
		ProductoID:    productoID,
		Tipo:          model.MovimientoReservaPedido,
		Cantidad:      -cantidad,
		StockAnterior: nuevo + cantidad,
		StockNuevo:    nuevo,
		Motivo:        "Reserva pedido " + pedidoID.String(),
		ReferenciaID:  &pedidoID,
	})
}

func (s *stockService) LiberarTx(_ context.Context, tx *gorm.DB, productoID uuid.UUID, cantidad int, pedidoID uuid.UUID) error {
	if cantidad < 1 {
		return nil
	}
	nuevo, err := s.productos.IncrementarStockTx(tx, productoID, cantidad)
	if err != nil {
		return err
	}
	return s.movimientos.CreateTx(tx, &model.MovimientoStock{
		ProductoID:    productoID,
		Tipo:          model.MovimientoLiberacionCancelacion,
		Cantidad:      cantidad,
		StockAnterior: nuevo - cantidad,
		StockNuevo:    nuevo,
		Motivo:        "Cancelación pedido " + pedidoID.String(),
		ReferenciaID:  &pedidoID,
	})
}

func (s *stockService) Verificar(ctx context.Context, productoID uuid.UUID, cantidad int) (int, bool, error) {
	p, err := s.productos.FindByID(ctx, productoID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, false, ErrProductoNoEncontrado
	}
	if err != nil {
		return 0, false, err
	}
	if !p.Activo {
		return 0, false, ErrProductoNoEncontrado
	}
	return p.StockActual, p.StockActual >= cantidad, nil
}
