package repository

import (
	"context"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PromocionRepository interface {
	CreateTx(tx *gorm.DB, p *model.Promocion) error
	UpdateTx(tx *gorm.DB, p *model.Promocion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Promocion, error)
	// ListActivasByProductoTx returns every active promotion of the product,
	// regardless of its date window.
	ListActivasByProductoTx(tx *gorm.DB, productoID uuid.UUID) ([]model.Promocion, error)
	// VigentesEn returns active promotions whose window contains t.
	VigentesEn(ctx context.Context, productoID uuid.UUID, t time.Time) ([]model.Promocion, error)
	List(ctx context.Context, productoID *uuid.UUID) ([]model.Promocion, error)
	DB() *gorm.DB
}

type promocionRepo struct{ db *gorm.DB }

func NewPromocionRepository(db *gorm.DB) PromocionRepository { return &promocionRepo{db: db} }

func (r *promocionRepo) DB() *gorm.DB { return r.db }

func (r *promocionRepo) CreateTx(tx *gorm.DB, p *model.Promocion) error {
	return tx.Create(p).Error
}

func (r *promocionRepo) UpdateTx(tx *gorm.DB, p *model.Promocion) error {
	return tx.Save(p).Error
}

func (r *promocionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Promocion, error) {
	var p model.Promocion
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *promocionRepo) ListActivasByProductoTx(tx *gorm.DB, productoID uuid.UUID) ([]model.Promocion, error) {
	var promos []model.Promocion
	err := tx.Where("producto_id = ? AND activa = true", productoID).Find(&promos).Error
	return promos, err
}

func (r *promocionRepo) VigentesEn(ctx context.Context, productoID uuid.UUID, t time.Time) ([]model.Promocion, error) {
	var promos []model.Promocion
	err := r.db.WithContext(ctx).
		Where("producto_id = ? AND activa = true AND fecha_inicio <= ? AND fecha_fin >= ?", productoID, t, t).
		Order("created_at DESC").
		Find(&promos).Error
	return promos, err
}

func (r *promocionRepo) List(ctx context.Context, productoID *uuid.UUID) ([]model.Promocion, error) {
	q := r.db.WithContext(ctx).Model(&model.Promocion{})
	if productoID != nil {
		q = q.Where("producto_id = ?", *productoID)
	}
	var promos []model.Promocion
	err := q.Order("fecha_inicio DESC").Find(&promos).Error
	return promos, err
}
