package repository

import (
	"context"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaldoRepository interface {
	FindByDNI(ctx context.Context, dni string) (*model.SaldoFavor, error)
	// AcreditarTx appends m to the ledger and adds m.Monto to the balance.
	// It returns false without touching the balance when the order was
	// already credited.
	AcreditarTx(tx *gorm.DB, m *model.MovimientoSaldo) (bool, error)
	ListMovimientos(ctx context.Context, dni string) ([]model.MovimientoSaldo, error)
}

type saldoRepo struct{ db *gorm.DB }

func NewSaldoRepository(db *gorm.DB) SaldoRepository { return &saldoRepo{db: db} }

func (r *saldoRepo) FindByDNI(ctx context.Context, dni string) (*model.SaldoFavor, error) {
	var s model.SaldoFavor
	if err := r.db.WithContext(ctx).First(&s, "dni = ?", dni).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *saldoRepo) AcreditarTx(tx *gorm.DB, m *model.MovimientoSaldo) (bool, error) {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pedido_id"}},
		DoNothing: true,
	}).Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	saldo := model.SaldoFavor{DNI: m.DNI, Saldo: m.Monto}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "dni"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"saldo":      gorm.Expr("saldos_favor.saldo + ?", m.Monto),
			"updated_at": gorm.Expr("NOW()"),
		}),
	}).Create(&saldo).Error
	return err == nil, err
}

func (r *saldoRepo) ListMovimientos(ctx context.Context, dni string) ([]model.MovimientoSaldo, error) {
	var movs []model.MovimientoSaldo
	err := r.db.WithContext(ctx).Where("dni = ?", dni).Order("created_at DESC").Find(&movs).Error
	return movs, err
}
