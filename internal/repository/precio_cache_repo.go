package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const precioCacheKeyPrefix = "precio:"

// PrecioCache stores public price lookups. Misses are reported as ErrNotFound.
type PrecioCache interface {
	Get(ctx context.Context, productoID uuid.UUID) (*dto.PrecioResponse, error)
	Set(ctx context.Context, productoID uuid.UUID, p *dto.PrecioResponse, ttl time.Duration) error
	Invalidar(ctx context.Context, productoID uuid.UUID) error
}

type precioCache struct{ rdb *redis.Client }

func NewPrecioCache(rdb *redis.Client) PrecioCache { return &precioCache{rdb: rdb} }

func (c *precioCache) Get(ctx context.Context, productoID uuid.UUID) (*dto.PrecioResponse, error) {
	data, err := c.rdb.Get(ctx, precioCacheKeyPrefix+productoID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p dto.PrecioResponse
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *precioCache) Set(ctx context.Context, productoID uuid.UUID, p *dto.PrecioResponse, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, precioCacheKeyPrefix+productoID.String(), data, ttl).Err()
}

func (c *precioCache) Invalidar(ctx context.Context, productoID uuid.UUID) error {
	return c.rdb.Del(ctx, precioCacheKeyPrefix+productoID.String()).Err()
}
