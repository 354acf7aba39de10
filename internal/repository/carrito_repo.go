package repository

import (
	"context"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CarritoRepository interface {
	Find(ctx context.Context, dni string) (*model.Carrito, error)
	// EnsureTx creates an empty cart for dni unless one already exists.
	EnsureTx(tx *gorm.DB, dni string) error
	// FindForUpdateTx locks the customer's cart row until tx ends.
	FindForUpdateTx(tx *gorm.DB, dni string) (*model.Carrito, error)
	SaveTx(tx *gorm.DB, c *model.Carrito) error
	DeleteTx(tx *gorm.DB, dni string) error
	DB() *gorm.DB
}

type carritoRepo struct{ db *gorm.DB }

func NewCarritoRepository(db *gorm.DB) CarritoRepository { return &carritoRepo{db: db} }

func (r *carritoRepo) DB() *gorm.DB { return r.db }

func (r *carritoRepo) Find(ctx context.Context, dni string) (*model.Carrito, error) {
	var c model.Carrito
	if err := r.db.WithContext(ctx).First(&c, "dni = ?", dni).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *carritoRepo) EnsureTx(tx *gorm.DB, dni string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dni"}},
		DoNothing: true,
	}).Create(&model.Carrito{DNI: dni, Items: []model.CarritoItem{}}).Error
}

func (r *carritoRepo) FindForUpdateTx(tx *gorm.DB, dni string) (*model.Carrito, error) {
	var c model.Carrito
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "dni = ?", dni).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *carritoRepo) SaveTx(tx *gorm.DB, c *model.Carrito) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dni"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "total", "updated_at"}),
	}).Create(c).Error
}

func (r *carritoRepo) DeleteTx(tx *gorm.DB, dni string) error {
	return tx.Where("dni = ?", dni).Delete(&model.Carrito{}).Error
}
