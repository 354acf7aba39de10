package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// visitante holds the token bucket of one client IP.
type visitante struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	every      rate.Limit
	burst      int
	visitantes map[string]*visitante
	mu         sync.Mutex
}

// RateLimiter returns a per-IP token bucket allowing limit requests per
// window, with bursts up to limit. Each call owns its own table. The purge
// goroutine stops when ctx is done.
func RateLimiter(ctx context.Context, limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 1
	}
	rl := &rateLimiter{
		every:      rate.Every(window / time.Duration(limit)),
		burst:      limit,
		visitantes: make(map[string]*visitante),
	}
	go rl.purge(ctx, purgeInterval, visitanteTTL)
	return rl.handle
}

func (rl *rateLimiter) visitante(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitantes[ip]
	if !ok {
		v = &visitante{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.visitantes[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (rl *rateLimiter) handle(c *gin.Context) {
	now := time.Now()
	limiter := rl.visitante(c.ClientIP(), now)

	r := limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); !r.OK() || delay > 0 {
		r.CancelAt(now)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(apierror.CodeDemasiadas, "Demasiadas solicitudes. Intente nuevamente en un momento."))
		return
	}
	c.Next()
}

const (
	purgeInterval = time.Minute
	visitanteTTL  = 10 * time.Minute
)

func (rl *rateLimiter) purge(ctx context.Context, every, ttl time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if purged, remaining := rl.purgeAntes(now.Add(-ttl)); purged > 0 {
				log.Debug().
					Int("entries_purged", purged).
					Int("entries_remaining", remaining).
					Msg("rate limiter purged")
			}
		}
	}
}

// purgeAntes drops visitors not seen since limite.
func (rl *rateLimiter) purgeAntes(limite time.Time) (purged, remaining int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitantes {
		if v.lastSeen.Before(limite) {
			delete(rl.visitantes, ip)
			purged++
		}
	}
	return purged, len(rl.visitantes)
}
