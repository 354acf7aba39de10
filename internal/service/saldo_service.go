package service

import (
	"context"
	"errors"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaldoService is the store-credit ledger.
type SaldoService interface {
	// AcreditarTx credits monto once per pedidoID and reports whether this
	// call applied the credit.
	AcreditarTx(ctx context.Context, tx *gorm.DB, dni string, pedidoID uuid.UUID, monto decimal.Decimal, motivo string) (bool, error)
	Saldo(ctx context.Context, dni string) (decimal.Decimal, error)
	Obtener(ctx context.Context, dni string) (*dto.SaldoResponse, error)
}

type saldoService struct {
	repo repository.SaldoRepository
}

func NewSaldoService(repo repository.SaldoRepository) SaldoService {
	return &saldoService{repo: repo}
}

func (s *saldoService) AcreditarTx(_ context.Context, tx *gorm.DB, dni string, pedidoID uuid.UUID, monto decimal.Decimal, motivo string) (bool, error) {
	if !monto.IsPositive() {
		return false, nil
	}
	return s.repo.AcreditarTx(tx, &model.MovimientoSaldo{
		ID:       uuid.New(),
		DNI:      dni,
		PedidoID: pedidoID,
		Monto:    monto,
		Motivo:   motivo,
	})
}

func (s *saldoService) Saldo(ctx context.Context, dni string) (decimal.Decimal, error) {
	saldo, err := s.repo.FindByDNI(ctx, dni)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return saldo.Saldo, nil
}

func (s *saldoService) Obtener(ctx context.Context, dni string) (*dto.SaldoResponse, error) {
	saldo, err := s.Saldo(ctx, dni)
	if err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimientos(ctx, dni)
	if err != nil {
		return nil, err
	}
	resp := &dto.SaldoResponse{DNI: dni, Saldo: saldo, Movimientos: make([]dto.MovimientoSaldoResponse, 0, len(movs))}
	for _, m := range movs {
		resp.Movimientos = append(resp.Movimientos, dto.MovimientoSaldoResponse{
			PedidoID:  m.PedidoID.String(),
			Monto:     m.Monto,
			Motivo:    m.Motivo,
			CreatedAt: m.CreatedAt.Format(fechaHoraISO),
		})
	}
	return resp, nil
}
