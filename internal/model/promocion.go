package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TipoPromocion is the closed set of discount kinds.
type TipoPromocion string

const (
	PromocionPorcentaje TipoPromocion = "porcentaje"
	PromocionMontoFijo  TipoPromocion = "monto_fijo"
)

func ParseTipoPromocion(s string) (TipoPromocion, error) {
	switch TipoPromocion(s) {
	case PromocionPorcentaje, PromocionMontoFijo:
		return TipoPromocion(s), nil
	}
	return "", fmt.Errorf("tipo de promoción desconocido: %q", s)
}

// Promocion is a time-bounded price override for one product.
// FechaInicio and FechaFin are both inclusive.
type Promocion struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Tipo        TipoPromocion   `gorm:"type:varchar(20);not null"`
	Valor       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	FechaInicio time.Time       `gorm:"not null"`
	FechaFin    time.Time       `gorm:"not null"`
	Activa      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Promocion) TableName() string { return "promociones" }

// VigenteEn reports whether the promotion applies at t.
func (p *Promocion) VigenteEn(t time.Time) bool {
	return p.Activa && !t.Before(p.FechaInicio) && !t.After(p.FechaFin)
}

// SeSuperponeCon uses inclusive bounds: a promotion starting exactly when
// another ends overlaps it.
func (p *Promocion) SeSuperponeCon(o *Promocion) bool {
	return !p.FechaInicio.After(o.FechaFin) && !o.FechaInicio.After(p.FechaFin)
}

// Aplicar returns precio minus the discount, never below zero.
func (p *Promocion) Aplicar(precio decimal.Decimal) decimal.Decimal {
	var descuento decimal.Decimal
	switch p.Tipo {
	case PromocionPorcentaje:
		descuento = precio.Mul(p.Valor).Div(decimal.NewFromInt(100))
	case PromocionMontoFijo:
		descuento = p.Valor
	}
	final := precio.Sub(descuento)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final.Round(2)
}
