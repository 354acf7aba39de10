package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"

	"github.com/google/uuid"
)

// Business-rule failures. Handlers map each one to a status and reason code.
var (
	ErrCarritoVacio           = errors.New("el carrito está vacío")
	ErrCantidadInvalida       = errors.New("la cantidad debe ser al menos 1")
	ErrPrecioInvalido         = errors.New("el precio unitario debe ser mayor a cero")
	ErrItemNoEncontrado       = errors.New("el ítem no está en el carrito")
	ErrProductoNoEncontrado   = errors.New("producto no encontrado")
	ErrStockInsuficiente      = errors.New("stock insuficiente")
	ErrPedidoNoEncontrado     = errors.New("pedido no encontrado")
	ErrPedidoNoPendiente      = errors.New("el pedido no está pendiente")
	ErrPedidoEntregado        = errors.New("el pedido ya fue entregado")
	ErrPedidoYaCancelado      = errors.New("el pedido ya fue cancelado")
	ErrPagoYaAprobado         = errors.New("el pago del pedido ya fue aprobado")
	ErrSesionPagoNoEncontrada = errors.New("sesión de pago no encontrada")
	ErrPromocionNoEncontrada  = errors.New("promoción no encontrada")
	ErrPromocionSuperpuesta   = errors.New("la promoción se superpone con otra activa del mismo producto")
	ErrPromocionInvalida      = errors.New("promoción inválida")
	ErrMetodoPagoInvalido     = errors.New("método de pago inválido")
)

// StockInsuficienteError lists every line a checkout could not reserve.
type StockInsuficienteError struct {
	Faltantes []dto.Faltante
}

func (e *StockInsuficienteError) Error() string {
	nombres := make([]string, 0, len(e.Faltantes))
	for _, f := range e.Faltantes {
		nombres = append(nombres, f.Nombre)
	}
	return fmt.Sprintf("stock insuficiente para: %s", strings.Join(nombres, ", "))
}

func (e *StockInsuficienteError) Unwrap() error { return ErrStockInsuficiente }

// ProveedorPagoError reports that the payment provider could not be reached
// while handling PedidoID. The order and its reservations are left intact.
type ProveedorPagoError struct {
	PedidoID uuid.UUID
	Err      error
}

func (e *ProveedorPagoError) Error() string {
	return fmt.Sprintf("pedido %s: %v", e.PedidoID, e.Err)
}

func (e *ProveedorPagoError) Unwrap() error { return e.Err }
