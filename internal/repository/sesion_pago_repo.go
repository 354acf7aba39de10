package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"

	"github.com/redis/go-redis/v9"
)

const sesionPagoKeyPrefix = "pago:sesion:"

// SesionPagoRepository keeps QR payment sessions in Redis. Redis expiry is
// the session's lifetime; a missing key means the session is gone.
type SesionPagoRepository interface {
	Save(ctx context.Context, s *model.SesionPago, ttl time.Duration) error
	FindByPreferenceID(ctx context.Context, preferenceID string) (*model.SesionPago, error)
}

type sesionPagoRepo struct{ rdb *redis.Client }

func NewSesionPagoRepository(rdb *redis.Client) SesionPagoRepository {
	return &sesionPagoRepo{rdb: rdb}
}

func (r *sesionPagoRepo) Save(ctx context.Context, s *model.SesionPago, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("serializar sesión de pago: %w", err)
	}
	return r.rdb.Set(ctx, sesionPagoKeyPrefix+s.PreferenceID, data, ttl).Err()
}

func (r *sesionPagoRepo) FindByPreferenceID(ctx context.Context, preferenceID string) (*model.SesionPago, error) {
	data, err := r.rdb.Get(ctx, sesionPagoKeyPrefix+preferenceID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s model.SesionPago
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("sesión de pago corrupta: %w", err)
	}
	return &s, nil
}
