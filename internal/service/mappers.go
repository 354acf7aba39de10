package service

import (
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"

	"github.com/google/uuid"
)

const fechaHoraISO = "2006-01-02T15:04:05Z07:00"

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func carritoToResponse(c *model.Carrito) *dto.CarritoResponse {
	items := make([]dto.CarritoItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, dto.CarritoItemResponse{
			ProductID:      uuidPtrString(it.ProductoID),
			Nombre:         it.Nombre,
			PrecioUnitario: it.PrecioUnitario,
			Cantidad:       it.Cantidad,
			Subtotal:       it.Subtotal,
		})
	}
	return &dto.CarritoResponse{Items: items, Total: c.Total}
}

func pedidoToResponse(p *model.Pedido) *dto.PedidoResponse {
	items := make([]dto.PedidoItemResponse, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, dto.PedidoItemResponse{
			ProductID:      uuidPtrString(it.ProductoID),
			Nombre:         it.Nombre,
			PrecioUnitario: it.PrecioUnitario,
			Cantidad:       it.Cantidad,
			Subtotal:       it.Subtotal,
		})
	}
	resp := &dto.PedidoResponse{
		ID:                p.ID.String(),
		ClienteDNI:        p.ClienteDNI,
		Items:             items,
		Total:             p.Total,
		DireccionEntrega:  p.DireccionEntrega,
		MetodoPago:        string(p.MetodoPago),
		Estado:            string(p.Estado),
		ReferenciaExterna: p.ReferenciaExterna,
		PreferenceID:      p.PreferenceID,
		CreatedAt:         p.CreatedAt.Format(fechaHoraISO),
		UpdatedAt:         p.UpdatedAt.Format(fechaHoraISO),
	}
	if p.PaymentStatus != nil {
		s := string(*p.PaymentStatus)
		resp.PaymentStatus = &s
	}
	if p.FechaEntrega != nil {
		s := p.FechaEntrega.Format(fechaHoraISO)
		resp.FechaEntrega = &s
	}
	return resp
}

func promocionToResponse(p *model.Promocion) *dto.PromocionResponse {
	return &dto.PromocionResponse{
		ID:          p.ID.String(),
		ProductoID:  p.ProductoID.String(),
		Tipo:        string(p.Tipo),
		Valor:       p.Valor,
		FechaInicio: p.FechaInicio.Local().Format(time.DateOnly),
		FechaFin:    p.FechaFin.Local().Format(time.DateOnly),
		Activa:      p.Activa,
		CreatedAt:   p.CreatedAt.Format(fechaHoraISO),
	}
}
