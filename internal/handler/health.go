package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/infra"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports the payment provider circuit;
// never exposes credentials or internals. An open circuit degrades the
// report but does not fail it: orders can still be placed with cash or card.
func Health(db *gorm.DB, rdb *redis.Client, pagosCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var dlq int64
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else if n, err := worker.DLQPagosLength(ctx, rdb); err == nil {
			dlq = n
		}

		pagos := "closed"
		if pagosCB != nil {
			pagos = pagosCB.State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":          status == http.StatusOK,
			"db":          dbStatus,
			"redis":       redisStatus,
			"mercadopago": pagos,
			"dlq_pagos":   dlq,
		})
	}
}
