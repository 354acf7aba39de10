package infra

import (
	"fmt"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and brings the
// schema up to date.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates every table owned by this service and then
// applies the constraints GORM tags cannot express. Also used by integration
// tests against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Producto{},
		&model.MovimientoStock{},
		&model.Promocion{},
		&model.Carrito{},
		&model.Pedido{},
		&model.PedidoItem{},
		&model.SaldoFavor{},
		&model.MovimientoSaldo{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// handle on its own. Each one is guarded so re-running on an already-patched DB
// is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"productos stock no negativo", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_productos_stock_no_negativo') THEN
    ALTER TABLE productos ADD CONSTRAINT chk_productos_stock_no_negativo CHECK (stock_actual >= 0);
  END IF;
END $$`},
		{"saldos_favor no negativo", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_saldos_favor_no_negativo') THEN
    ALTER TABLE saldos_favor ADD CONSTRAINT chk_saldos_favor_no_negativo CHECK (saldo >= 0);
  END IF;
END $$`},
		{"pedido_items cantidad positiva", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_pedido_items_cantidad') THEN
    ALTER TABLE pedido_items ADD CONSTRAINT chk_pedido_items_cantidad CHECK (cantidad >= 1);
  END IF;
END $$`},
		{"promociones valor no negativo", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_promociones_rango') THEN
    ALTER TABLE promociones ADD CONSTRAINT chk_promociones_rango
      CHECK (valor >= 0 AND fecha_fin >= fecha_inicio);
  END IF;
END $$`},
		// partial index for the payment reconciliation cron query
		{"idx_pedidos_pagos_pendientes", `
CREATE INDEX IF NOT EXISTS idx_pedidos_pagos_pendientes
    ON pedidos (created_at)
    WHERE metodo_pago = 'mercadopago_qr' AND estado = 'pendiente' AND preference_id IS NOT NULL`},
		{"idx_promociones_vigentes", `
CREATE INDEX IF NOT EXISTS idx_promociones_vigentes
    ON promociones (producto_id, fecha_inicio, fecha_fin)
    WHERE activa`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
