package dto

import "github.com/shopspring/decimal"

type MovimientoSaldoResponse struct {
	PedidoID  string          `json:"pedidoId"`
	Monto     decimal.Decimal `json:"monto"`
	Motivo    string          `json:"motivo"`
	CreatedAt string          `json:"createdAt"`
}

type SaldoResponse struct {
	DNI         string                    `json:"dni"`
	Saldo       decimal.Decimal           `json:"saldo"`
	Movimientos []MovimientoSaldoResponse `json:"movimientos"`
}
