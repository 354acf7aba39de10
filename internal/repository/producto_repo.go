package repository

import (
	"context"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductoRepository is the read side of the external catalog plus the only
// two writes this service performs on it: stock decrement and increment.
type ProductoRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	// FindByNombre matches case-insensitively among active products.
	FindByNombre(ctx context.Context, nombre string) (*model.Producto, error)

	// Used inside transactions; callers must pass the tx instance
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error)
	LockTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error)
	// DescontarStockTx decrements only when enough stock remains and the
	// product is active. It returns the new stock and false when nothing
	// was updated.
	DescontarStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) (int, bool, error)
	IncrementarStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) (int, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) DB() *gorm.DB { return r.db }

func (r *productoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productoRepo) FindByNombre(ctx context.Context, nombre string) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).
		Where("LOWER(nombre) = LOWER(?) AND activo = true", nombre).
		Order("created_at ASC").
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productoRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	if err := tx.First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productoRepo) LockTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productoRepo) DescontarStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) (int, bool, error) {
	var p model.Producto
	res := tx.Model(&p).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "stock_actual"}}}).
		Where("id = ? AND activo = true AND stock_actual >= ?", id, cantidad).
		Update("stock_actual", gorm.Expr("stock_actual - ?", cantidad))
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return p.StockActual, true, nil
}

func (r *productoRepo) IncrementarStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) (int, error) {
	var p model.Producto
	res := tx.Model(&p).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "stock_actual"}}}).
		Where("id = ?", id).
		Update("stock_actual", gorm.Expr("stock_actual + ?", cantidad))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return p.StockActual, nil
}
