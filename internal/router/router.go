package router

import (
	"context"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/clock"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/config"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/events"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/handler"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/infra"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/middleware"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/repository"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services is the service layer shared by the HTTP router and the workers.
type Services struct {
	Precios  service.PrecioService
	Carritos service.CarritoService
	Saldo    service.SaldoService
	Stock    service.StockService
	Pedidos  service.PedidoService
	Repetir  service.RepetirService
	Pagos    service.PagoService
}

// Infra groups the outbound dependencies the services are built on.
type Infra struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Gateway service.PagoGateway
	Cola    service.ColaNotificaciones
	Eventos events.Publisher
	Clock   clock.Clock
}

// NewServices wires repositories into services.
// Dependency graph: Service ← Repository ← DB/Redis
func NewServices(cfg *config.Config, in Infra) *Services {
	// ── Repositories ─────────────────────────────────────────────────────────
	productoRepo := repository.NewProductoRepository(in.DB)
	movimientoStockRepo := repository.NewMovimientoStockRepository(in.DB)
	promocionRepo := repository.NewPromocionRepository(in.DB)
	carritoRepo := repository.NewCarritoRepository(in.DB)
	pedidoRepo := repository.NewPedidoRepository(in.DB)
	saldoRepo := repository.NewSaldoRepository(in.DB)
	sesionRepo := repository.NewSesionPagoRepository(in.Redis)
	precioCache := repository.NewPrecioCache(in.Redis)

	// ── Services ─────────────────────────────────────────────────────────────
	s := &Services{}
	s.Precios = service.NewPrecioService(promocionRepo, productoRepo, precioCache, in.Clock)
	s.Carritos = service.NewCarritoService(carritoRepo, productoRepo, s.Precios, in.Clock)
	s.Saldo = service.NewSaldoService(saldoRepo)
	s.Stock = service.NewStockService(productoRepo, movimientoStockRepo)
	s.Pedidos = service.NewPedidoService(pedidoRepo, carritoRepo, productoRepo, s.Stock, s.Precios, s.Saldo, in.Eventos, in.Clock)
	s.Repetir = service.NewRepetirService(pedidoRepo, productoRepo, s.Carritos, s.Stock, s.Precios, in.Clock)
	s.Pagos = service.NewPagoService(s.Pedidos, pedidoRepo, sesionRepo, in.Gateway, service.PagoServiceConfig{
		SesionTTL: cfg.PagoSesionTTL(),
		QR:        infra.QRPNG,
		Cola:      in.Cola,
		Clock:     in.Clock,
	})
	return s
}

// New returns a configured Gin engine. Background goroutines owned by the
// middleware stop when ctx is done.
// Dependency graph: Handler ← Service
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, pagosCB *infra.CircuitBreaker, svc *Services) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())

	// ── Handlers ─────────────────────────────────────────────────────────────
	carritoH := handler.NewCarritoHandler(svc.Carritos)
	pedidosH := handler.NewPedidosHandler(svc.Pedidos, svc.Repetir)
	pagosH := handler.NewPagosHandler(svc.Pagos)
	promocionesH := handler.NewPromocionesHandler(svc.Precios)
	preciosH := handler.NewPreciosHandler(svc.Precios)
	saldoH := handler.NewSaldoHandler(svc.Saldo)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb, pagosCB))

	// Storefront and payment routes keep separate per-IP budgets so provider
	// callbacks never compete with customer traffic.
	tienda := middleware.RateLimiter(ctx, cfg.RateLimitPorMinuto, time.Minute)
	r.GET("/productos/:id/precio", tienda, preciosH.Consultar)

	customers := r.Group("/customers/:dni", tienda)
	{
		customers.GET("/cart", carritoH.Obtener)
		customers.DELETE("/cart", carritoH.Vaciar)
		customers.POST("/cart/add", carritoH.Agregar)
		customers.PUT("/cart/update", carritoH.Actualizar)
		customers.DELETE("/cart/remove", carritoH.Eliminar)

		customers.POST("/orders", pedidosH.Crear)
		customers.GET("/orders", pedidosH.ListarCliente)
		customers.GET("/orders/:id", pedidosH.ObtenerCliente)
		customers.PUT("/orders/:id/cancel", pedidosH.CancelarCliente)
		customers.POST("/orders/:id/repeat", pedidosH.Repetir)

		customers.GET("/saldo", saldoH.Obtener)
	}

	pagos := r.Group("/pagos", middleware.RateLimiter(ctx, cfg.RateLimitPagosPorMinuto, time.Minute))
	{
		pagos.POST("/generar-qr", pagosH.GenerarQR)
		pagos.GET("/:preferenceId/estado", pagosH.Estado)
		pagos.POST("/webhook", pagosH.Webhook)
	}

	// Back office: administrador only
	admin := r.Group("", middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole(middleware.RolAdministrador))
	{
		admin.GET("/orders", pedidosH.Listar)
		admin.PUT("/orders/:id/dispatch", pedidosH.Despachar)
		admin.PUT("/orders/:id/cancel", pedidosH.CancelarAdmin)

		admin.GET("/promociones", promocionesH.Listar)
		admin.POST("/promociones", promocionesH.Crear)
		admin.PUT("/promociones/:id", promocionesH.Actualizar)
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
