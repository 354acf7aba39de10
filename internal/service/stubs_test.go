package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/infra"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/repository"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────
// Every stub returns copies so callers cannot mutate stored state behind the
// service's back. DB() returns nil, which makes runTx call fn(nil).

type stubProductoRepo struct {
	mu        sync.Mutex
	productos map[uuid.UUID]*model.Producto
}

func newStubProductoRepo() *stubProductoRepo {
	return &stubProductoRepo{productos: make(map[uuid.UUID]*model.Producto)}
}

func (r *stubProductoRepo) add(nombre string, precio string, stock int) *model.Producto {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &model.Producto{
		ID:          uuid.New(),
		Nombre:      nombre,
		PrecioVenta: decimal.RequireFromString(precio),
		StockActual: stock,
		Activo:      true,
	}
	r.productos[p.ID] = p
	cp := *p
	return &cp
}

func (r *stubProductoRepo) stock(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.productos[id].StockActual
}

func (r *stubProductoRepo) setStock(id uuid.UUID, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.productos[id].StockActual = n
}

func (r *stubProductoRepo) desactivar(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.productos[id].Activo = false
}

func (r *stubProductoRepo) eliminar(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.productos, id)
}

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	return r.FindByIDTx(nil, id)
}

func (r *stubProductoRepo) FindByNombre(_ context.Context, nombre string) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.productos {
		if p.Activo && strings.EqualFold(p.Nombre, strings.TrimSpace(nombre)) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubProductoRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductoRepo) LockTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	return r.FindByIDTx(tx, id)
}

func (r *stubProductoRepo) DescontarStockTx(_ *gorm.DB, id uuid.UUID, cantidad int) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok || !p.Activo || p.StockActual < cantidad {
		return 0, false, nil
	}
	p.StockActual -= cantidad
	return p.StockActual, true, nil
}

func (r *stubProductoRepo) IncrementarStockTx(_ *gorm.DB, id uuid.UUID, cantidad int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	p.StockActual += cantidad
	return p.StockActual, nil
}

func (r *stubProductoRepo) DB() *gorm.DB { return nil }

var _ repository.ProductoRepository = (*stubProductoRepo)(nil)

type stubMovimientoStockRepo struct {
	mu          sync.Mutex
	movimientos []model.MovimientoStock
}

func (r *stubMovimientoStockRepo) CreateTx(_ *gorm.DB, m *model.MovimientoStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubMovimientoStockRepo) ListByReferencia(_ context.Context, pedidoID uuid.UUID) ([]model.MovimientoStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoStock
	for _, m := range r.movimientos {
		if m.ReferenciaID != nil && *m.ReferenciaID == pedidoID {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ repository.MovimientoStockRepository = (*stubMovimientoStockRepo)(nil)

type stubPromocionRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]model.Promocion
}

func newStubPromocionRepo() *stubPromocionRepo {
	return &stubPromocionRepo{items: make(map[uuid.UUID]model.Promocion)}
}

func (r *stubPromocionRepo) CreateTx(_ *gorm.DB, p *model.Promocion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = *p
	return nil
}

func (r *stubPromocionRepo) UpdateTx(_ *gorm.DB, p *model.Promocion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = *p
	return nil
}

func (r *stubPromocionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Promocion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *stubPromocionRepo) filtrar(fn func(p model.Promocion) bool) []model.Promocion {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Promocion{}
	for _, p := range r.items {
		if fn(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *stubPromocionRepo) ListActivasByProductoTx(_ *gorm.DB, productoID uuid.UUID) ([]model.Promocion, error) {
	return r.filtrar(func(p model.Promocion) bool { return p.ProductoID == productoID && p.Activa }), nil
}

func (r *stubPromocionRepo) VigentesEn(_ context.Context, productoID uuid.UUID, t time.Time) ([]model.Promocion, error) {
	return r.filtrar(func(p model.Promocion) bool { return p.ProductoID == productoID && p.VigenteEn(t) }), nil
}

func (r *stubPromocionRepo) List(_ context.Context, productoID *uuid.UUID) ([]model.Promocion, error) {
	return r.filtrar(func(p model.Promocion) bool { return productoID == nil || p.ProductoID == *productoID }), nil
}

func (r *stubPromocionRepo) DB() *gorm.DB { return nil }

var _ repository.PromocionRepository = (*stubPromocionRepo)(nil)

type stubCarritoRepo struct {
	mu       sync.Mutex
	carritos map[string]*model.Carrito
}

func newStubCarritoRepo() *stubCarritoRepo {
	return &stubCarritoRepo{carritos: make(map[string]*model.Carrito)}
}

func copiarCarrito(c *model.Carrito) *model.Carrito {
	cp := *c
	cp.Items = append([]model.CarritoItem{}, c.Items...)
	return &cp
}

func (r *stubCarritoRepo) Find(_ context.Context, dni string) (*model.Carrito, error) {
	return r.FindForUpdateTx(nil, dni)
}

func (r *stubCarritoRepo) EnsureTx(_ *gorm.DB, dni string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.carritos[dni]; !ok {
		r.carritos[dni] = &model.Carrito{DNI: dni, Items: []model.CarritoItem{}}
	}
	return nil
}

func (r *stubCarritoRepo) FindForUpdateTx(_ *gorm.DB, dni string) (*model.Carrito, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carritos[dni]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copiarCarrito(c), nil
}

func (r *stubCarritoRepo) SaveTx(_ *gorm.DB, c *model.Carrito) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carritos[c.DNI] = copiarCarrito(c)
	return nil
}

func (r *stubCarritoRepo) DeleteTx(_ *gorm.DB, dni string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carritos, dni)
	return nil
}

func (r *stubCarritoRepo) DB() *gorm.DB { return nil }

var _ repository.CarritoRepository = (*stubCarritoRepo)(nil)

type stubPedidoRepo struct {
	mu      sync.Mutex
	pedidos map[uuid.UUID]*model.Pedido
}

func newStubPedidoRepo() *stubPedidoRepo {
	return &stubPedidoRepo{pedidos: make(map[uuid.UUID]*model.Pedido)}
}

func copiarPedido(p *model.Pedido) *model.Pedido {
	cp := *p
	cp.Items = append([]model.PedidoItem{}, p.Items...)
	if p.PaymentStatus != nil {
		ps := *p.PaymentStatus
		cp.PaymentStatus = &ps
	}
	if p.PreferenceID != nil {
		pref := *p.PreferenceID
		cp.PreferenceID = &pref
	}
	return &cp
}

func (r *stubPedidoRepo) CreateTx(_ *gorm.DB, p *model.Pedido) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pedidos[p.ID] = copiarPedido(p)
	return nil
}

func (r *stubPedidoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Pedido, error) {
	return r.FindForUpdateTx(nil, id)
}

func (r *stubPedidoRepo) FindForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Pedido, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pedidos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copiarPedido(p), nil
}

func (r *stubPedidoRepo) buscar(fn func(p *model.Pedido) bool) (*model.Pedido, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pedidos {
		if fn(p) {
			return copiarPedido(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubPedidoRepo) FindByReferencia(_ context.Context, referencia string) (*model.Pedido, error) {
	return r.buscar(func(p *model.Pedido) bool { return p.ReferenciaExterna == referencia })
}

func (r *stubPedidoRepo) FindByPreferenceID(_ context.Context, preferenceID string) (*model.Pedido, error) {
	return r.buscar(func(p *model.Pedido) bool { return p.PreferenceID != nil && *p.PreferenceID == preferenceID })
}

func (r *stubPedidoRepo) listar(fn func(p *model.Pedido) bool) []model.Pedido {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Pedido{}
	for _, p := range r.pedidos {
		if fn(p) {
			out = append(out, *copiarPedido(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *stubPedidoRepo) ListByCliente(_ context.Context, dni string) ([]model.Pedido, error) {
	return r.listar(func(p *model.Pedido) bool { return p.ClienteDNI == dni }), nil
}

func (r *stubPedidoRepo) List(_ context.Context, f repository.PedidoFilter) ([]model.Pedido, int64, error) {
	todos := r.listar(func(p *model.Pedido) bool { return f.Estado == "" || string(p.Estado) == f.Estado })
	desde := (f.Page - 1) * f.Limit
	if desde > len(todos) {
		desde = len(todos)
	}
	hasta := min(desde+f.Limit, len(todos))
	return todos[desde:hasta], int64(len(todos)), nil
}

func (r *stubPedidoRepo) ListPagosPendientes(_ context.Context, limit int) ([]model.Pedido, error) {
	out := r.listar(func(p *model.Pedido) bool {
		return p.MetodoPago == model.MetodoMercadoPagoQR &&
			p.Estado == model.PedidoPendiente &&
			!p.Pagado() &&
			p.PreferenceID != nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ConciliadoEn, out[j].ConciliadoEn
		switch {
		case a == nil && b == nil:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case a == nil || b == nil:
			return a == nil
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubPedidoRepo) MarcarConciliados(_ context.Context, ids []uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if p, ok := r.pedidos[id]; ok {
			marca := at
			p.ConciliadoEn = &marca
		}
	}
	return nil
}

func (r *stubPedidoRepo) UpdateTx(_ *gorm.DB, p *model.Pedido) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pedidos[p.ID]; !ok {
		return repository.ErrNotFound
	}
	r.pedidos[p.ID] = copiarPedido(p)
	return nil
}

func (r *stubPedidoRepo) DB() *gorm.DB { return nil }

func (r *stubPedidoRepo) get(id uuid.UUID) *model.Pedido {
	p, _ := r.FindByID(context.Background(), id)
	return p
}

var _ repository.PedidoRepository = (*stubPedidoRepo)(nil)

type stubSaldoRepo struct {
	mu          sync.Mutex
	saldos      map[string]decimal.Decimal
	movimientos []model.MovimientoSaldo
}

func newStubSaldoRepo() *stubSaldoRepo {
	return &stubSaldoRepo{saldos: make(map[string]decimal.Decimal)}
}

func (r *stubSaldoRepo) FindByDNI(_ context.Context, dni string) (*model.SaldoFavor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.saldos[dni]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.SaldoFavor{DNI: dni, Saldo: s}, nil
}

func (r *stubSaldoRepo) AcreditarTx(_ *gorm.DB, m *model.MovimientoSaldo) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, prev := range r.movimientos {
		if prev.PedidoID == m.PedidoID {
			return false, nil
		}
	}
	r.movimientos = append(r.movimientos, *m)
	r.saldos[m.DNI] = r.saldos[m.DNI].Add(m.Monto)
	return true, nil
}

func (r *stubSaldoRepo) ListMovimientos(_ context.Context, dni string) ([]model.MovimientoSaldo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.MovimientoSaldo{}
	for _, m := range r.movimientos {
		if m.DNI == dni {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ repository.SaldoRepository = (*stubSaldoRepo)(nil)

// stubSesionRepo honours the TTL against the test clock, like Redis would.
type stubSesionRepo struct {
	mu       sync.Mutex
	sesiones map[string]model.SesionPago
	now      func() time.Time
}

func newStubSesionRepo(now func() time.Time) *stubSesionRepo {
	return &stubSesionRepo{sesiones: make(map[string]model.SesionPago), now: now}
}

func (r *stubSesionRepo) Save(_ context.Context, s *model.SesionPago, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sesiones[s.PreferenceID] = *s
	return nil
}

func (r *stubSesionRepo) FindByPreferenceID(_ context.Context, preferenceID string) (*model.SesionPago, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[preferenceID]
	if !ok || !r.now().Before(s.ExpiraEn) {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

var _ repository.SesionPagoRepository = (*stubSesionRepo)(nil)

type stubPrecioCache struct {
	mu          sync.Mutex
	invalidados []uuid.UUID
}

func (c *stubPrecioCache) Get(_ context.Context, _ uuid.UUID) (*dto.PrecioResponse, error) {
	return nil, repository.ErrNotFound
}

func (c *stubPrecioCache) Set(_ context.Context, _ uuid.UUID, _ *dto.PrecioResponse, _ time.Duration) error {
	return nil
}

func (c *stubPrecioCache) Invalidar(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidados = append(c.invalidados, id)
	return nil
}

var _ repository.PrecioCache = (*stubPrecioCache)(nil)

// stubGateway simulates the payment provider. estados is keyed by
// external reference; missing references report pending.
type stubGateway struct {
	mu           sync.Mutex
	falla        error
	preferencias []infra.PreferenciaRequest
	estados      map[string]model.EstadoPago
	pagos        map[string]*infra.PagoInfo
	consultas    int
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		estados: make(map[string]model.EstadoPago),
		pagos:   make(map[string]*infra.PagoInfo),
	}
}

func (g *stubGateway) CrearPreferencia(_ context.Context, req infra.PreferenciaRequest) (*infra.Preferencia, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.falla != nil {
		return nil, g.falla
	}
	g.preferencias = append(g.preferencias, req)
	id := "pref-" + req.ReferenciaExterna
	return &infra.Preferencia{
		ID:               id,
		InitPoint:        "https://mp.test/checkout?pref=" + id,
		SandboxInitPoint: "https://sandbox.mp.test/checkout?pref=" + id,
	}, nil
}

func (g *stubGateway) ConsultarEstado(_ context.Context, referencia string) model.EstadoPago {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consultas++
	if e, ok := g.estados[referencia]; ok {
		return e
	}
	return model.PagoPendiente
}

func (g *stubGateway) ResolverPago(_ context.Context, pagoID string) (*infra.PagoInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	info, ok := g.pagos[pagoID]
	if !ok {
		return nil, errors.New("pago inexistente")
	}
	cp := *info
	return &cp, nil
}

func (g *stubGateway) setEstado(referencia string, e model.EstadoPago) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.estados[referencia] = e
}

func (g *stubGateway) totalConsultas() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.consultas
}

var _ service.PagoGateway = (*stubGateway)(nil)

// capturePublisher records published event types.
type capturePublisher struct {
	mu    sync.Mutex
	tipos []string
}

func (p *capturePublisher) Publicar(_ context.Context, tipo string, _ uuid.UUID, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tipos = append(p.tipos, tipo)
}

func (p *capturePublisher) publicados() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.tipos...)
}
