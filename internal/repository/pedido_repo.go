package repository

import (
	"context"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PedidoFilter drives the admin listing.
type PedidoFilter struct {
	Estado string
	Page   int
	Limit  int
}

type PedidoRepository interface {
	CreateTx(tx *gorm.DB, p *model.Pedido) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error)
	// FindForUpdateTx loads the order with its items and locks the order row.
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Pedido, error)
	FindByReferencia(ctx context.Context, referencia string) (*model.Pedido, error)
	FindByPreferenceID(ctx context.Context, preferenceID string) (*model.Pedido, error)
	ListByCliente(ctx context.Context, dni string) ([]model.Pedido, error)
	List(ctx context.Context, filter PedidoFilter) ([]model.Pedido, int64, error)
	// ListPagosPendientes returns open QR orders still waiting for the provider,
	// least recently reconciled first.
	ListPagosPendientes(ctx context.Context, limit int) ([]model.Pedido, error)
	MarcarConciliados(ctx context.Context, ids []uuid.UUID, at time.Time) error
	UpdateTx(tx *gorm.DB, p *model.Pedido) error
	DB() *gorm.DB
}

type pedidoRepo struct{ db *gorm.DB }

func NewPedidoRepository(db *gorm.DB) PedidoRepository { return &pedidoRepo{db: db} }

func (r *pedidoRepo) DB() *gorm.DB { return r.db }

func (r *pedidoRepo) CreateTx(tx *gorm.DB, p *model.Pedido) error {
	return tx.Create(p).Error
}

func (r *pedidoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error) {
	var p model.Pedido
	if err := r.db.WithContext(ctx).Preload("Items").First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *pedidoRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Pedido, error) {
	var p model.Pedido
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	if err := tx.Where("pedido_id = ?", id).Find(&p.Items).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pedidoRepo) FindByReferencia(ctx context.Context, referencia string) (*model.Pedido, error) {
	var p model.Pedido
	err := r.db.WithContext(ctx).Preload("Items").
		Where("referencia_externa = ?", referencia).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *pedidoRepo) FindByPreferenceID(ctx context.Context, preferenceID string) (*model.Pedido, error) {
	var p model.Pedido
	err := r.db.WithContext(ctx).Preload("Items").
		Where("preference_id = ?", preferenceID).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *pedidoRepo) ListByCliente(ctx context.Context, dni string) ([]model.Pedido, error) {
	var pedidos []model.Pedido
	err := r.db.WithContext(ctx).Preload("Items").
		Where("cliente_dni = ?", dni).
		Order("created_at DESC").
		Find(&pedidos).Error
	return pedidos, err
}

func (r *pedidoRepo) List(ctx context.Context, filter PedidoFilter) ([]model.Pedido, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Pedido{})
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	var pedidos []model.Pedido
	err := q.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&pedidos).Error
	return pedidos, total, err
}

func (r *pedidoRepo) ListPagosPendientes(ctx context.Context, limit int) ([]model.Pedido, error) {
	var pedidos []model.Pedido
	err := r.db.WithContext(ctx).
		Where("metodo_pago = ? AND estado = ? AND payment_status IS DISTINCT FROM ? AND preference_id IS NOT NULL",
			model.MetodoMercadoPagoQR, model.PedidoPendiente, model.PagoAprobado).
		Order("conciliado_en ASC NULLS FIRST").
		Order("created_at ASC").
		Limit(limit).
		Find(&pedidos).Error
	return pedidos, err
}

// MarcarConciliados stamps conciliado_en without touching updated_at.
func (r *pedidoRepo) MarcarConciliados(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Pedido{}).
		Where("id IN ?", ids).
		UpdateColumn("conciliado_en", at).Error
}

func (r *pedidoRepo) UpdateTx(tx *gorm.DB, p *model.Pedido) error {
	return tx.Model(p).
		Select("estado", "payment_status", "preference_id", "fecha_entrega", "updated_at").
		Updates(p).Error
}
