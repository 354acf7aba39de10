package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/clock"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/dto"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/infra"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/model"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PagoGateway is the payment provider as seen by the checkout flow.
// infra.MercadoPagoClient implements it.
type PagoGateway interface {
	CrearPreferencia(ctx context.Context, req infra.PreferenciaRequest) (*infra.Preferencia, error)
	// ConsultarEstado never fails; provider problems come back as unknown.
	ConsultarEstado(ctx context.Context, referencia string) model.EstadoPago
	ResolverPago(ctx context.Context, pagoID string) (*infra.PagoInfo, error)
}

// ColaNotificaciones defers provider notifications to the worker pool.
type ColaNotificaciones interface {
	EncolarNotificacionPago(ctx context.Context, pagoID string) error
}

// QRRenderer turns a checkout URL into a base64 PNG.
type QRRenderer func(contenido string) (string, error)

type PagoService interface {
	GenerarQR(ctx context.Context, req dto.GenerarQRRequest) (*dto.GenerarQRResponse, error)
	ConsultarEstado(ctx context.Context, preferenceID string) (*dto.EstadoPagoResponse, error)
	RegistrarNotificacion(ctx context.Context, pagoID string) error
	ProcesarNotificacion(ctx context.Context, pagoID string) error
	ResolverNotificacion(ctx context.Context, pagoID string) (*infra.PagoInfo, error)
	AplicarNotificacion(ctx context.Context, info *infra.PagoInfo) error
	// ConciliarPendientes polls the provider for open QR orders the webhook
	// never confirmed. Returns how many orders changed status.
	ConciliarPendientes(ctx context.Context, limite int) (int, error)
}

type PagoServiceConfig struct {
	SesionTTL time.Duration
	QR        QRRenderer
	Cola      ColaNotificaciones
	Clock     clock.Clock
}

type pagoService struct {
	pedidos   PedidoService
	repo      repository.PedidoRepository
	sesiones  repository.SesionPagoRepository
	gateway   PagoGateway
	qr        QRRenderer
	cola      ColaNotificaciones
	clock     clock.Clock
	sesionTTL time.Duration
}

func NewPagoService(
	pedidos PedidoService,
	repo repository.PedidoRepository,
	sesiones repository.SesionPagoRepository,
	gateway PagoGateway,
	cfg PagoServiceConfig,
) PagoService {
	if cfg.SesionTTL <= 0 {
		cfg.SesionTTL = 300 * time.Second
	}
	if cfg.QR == nil {
		cfg.QR = infra.QRPNG
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewRealClock()
	}
	return &pagoService{
		pedidos:   pedidos,
		repo:      repo,
		sesiones:  sesiones,
		gateway:   gateway,
		qr:        cfg.QR,
		cola:      cfg.Cola,
		clock:     cfg.Clock,
		sesionTTL: cfg.SesionTTL,
	}
}

// ── GenerarQR ─────────────────────────────────────────────────────────────────
//   1. Reuse the given pendiente QR order, or check out the cart into a new one
//   2. Create the provider preference (amount = order total)
//   3. Render the QR image (optional)
//   4. Store the session in Redis with TTL, record preferenceId on the order

func (s *pagoService) pedidoParaQR(ctx context.Context, req dto.GenerarQRRequest) (*model.Pedido, error) {
	if req.PedidoID != nil && *req.PedidoID != "" {
		id, err := uuid.Parse(*req.PedidoID)
		if err != nil {
			return nil, ErrPedidoNoEncontrado
		}
		p, err := s.repo.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPedidoNoEncontrado
		}
		if err != nil {
			return nil, err
		}
		if p.ClienteDNI != req.ClienteDNI {
			return nil, ErrPedidoNoEncontrado
		}
		if p.Pagado() {
			return nil, ErrPagoYaAprobado
		}
		if p.Estado != model.PedidoPendiente || p.MetodoPago != model.MetodoMercadoPagoQR {
			return nil, ErrPedidoNoPendiente
		}
		return p, nil
	}

	creado, err := s.pedidos.Crear(ctx, req.ClienteDNI, dto.CrearPedidoRequest{
		MetodoPago:       string(model.MetodoMercadoPagoQR),
		DireccionEntrega: req.DireccionEntrega,
	})
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, uuid.MustParse(creado.ID))
	if err != nil {
		return nil, fmt.Errorf("releer pedido creado: %w", err)
	}
	return p, nil
}

func (s *pagoService) GenerarQR(ctx context.Context, req dto.GenerarQRRequest) (*dto.GenerarQRResponse, error) {
	pedido, err := s.pedidoParaQR(ctx, req)
	if err != nil {
		return nil, err
	}
	if !req.Cantidad.IsZero() && !req.Cantidad.Equal(pedido.Total) {
		log.Warn().
			Str("pedido_id", pedido.ID.String()).
			Str("cantidad_cliente", req.Cantidad.StringFixed(2)).
			Str("total_pedido", pedido.Total.StringFixed(2)).
			Msg("generar-qr: el monto enviado no coincide con el total del pedido, se usa el total")
	}

	ahora := s.clock.Now()
	expira := ahora.Add(s.sesionTTL)
	titulo := req.Descripcion
	if titulo == "" {
		titulo = "Pedido " + pedido.ID.String()
	}
	items := make([]infra.PreferenciaItem, 0, len(pedido.Items))
	for _, it := range pedido.Items {
		items = append(items, infra.PreferenciaItem{
			Titulo:         it.Nombre,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
		})
	}

	pref, err := s.gateway.CrearPreferencia(ctx, infra.PreferenciaRequest{
		ReferenciaExterna: pedido.ReferenciaExterna,
		Titulo:            titulo,
		Total:             pedido.Total,
		Items:             items,
		ExpiraEn:          expira,
	})
	if err != nil {
		log.Error().Err(err).Str("pedido_id", pedido.ID.String()).Msg("generar-qr: proveedor de pagos no disponible")
		return nil, &ProveedorPagoError{PedidoID: pedido.ID, Err: err}
	}

	var codigo *string
	if png, qrErr := s.qr(pref.InitPoint); qrErr != nil {
		log.Warn().Err(qrErr).Str("preference_id", pref.ID).Msg("generar-qr: no se pudo renderizar el QR, se devuelve solo el link")
	} else {
		codigo = &png
	}

	sesion := &model.SesionPago{
		PreferenceID:      pref.ID,
		ReferenciaExterna: pedido.ReferenciaExterna,
		PedidoID:          pedido.ID,
		CodigoQR:          codigo,
		CheckoutURL:       pref.InitPoint,
		SandboxURL:        pref.SandboxInitPoint,
		Total:             pedido.Total,
		CreadaEn:          ahora,
		ExpiraEn:          expira,
	}
	if err := s.sesiones.Save(ctx, sesion, s.sesionTTL); err != nil {
		return nil, fmt.Errorf("guardar sesión de pago: %w", err)
	}
	if err := s.pedidos.AsignarPreferencia(ctx, pedido.ID, pref.ID); err != nil {
		return nil, fmt.Errorf("asignar preferencia: %w", err)
	}

	log.Info().
		Str("pedido_id", pedido.ID.String()).
		Str("preference_id", pref.ID).
		Bool("qr", codigo != nil).
		Msg("sesión de pago QR creada")
	return &dto.GenerarQRResponse{
		PreferenceID: pref.ID,
		QRCode:       codigo,
		CheckoutURL:  pref.InitPoint,
		SandboxURL:   pref.SandboxInitPoint,
		TotalAmount:  pedido.Total,
		PedidoID:     pedido.ID.String(),
		ExpiraEn:     expira.Format(fechaHoraISO),
	}, nil
}

// ── Polling ───────────────────────────────────────────────────────────────────

func (s *pagoService) ConsultarEstado(ctx context.Context, preferenceID string) (*dto.EstadoPagoResponse, error) {
	sesion, err := s.sesiones.FindByPreferenceID(ctx, preferenceID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	var pedido *model.Pedido
	if sesion != nil {
		pedido, err = s.repo.FindByID(ctx, sesion.PedidoID)
	} else {
		pedido, err = s.repo.FindByPreferenceID(ctx, preferenceID)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSesionPagoNoEncontrada
	}
	if err != nil {
		return nil, err
	}

	resp := &dto.EstadoPagoResponse{
		PreferenceID:  preferenceID,
		PedidoID:      pedido.ID.String(),
		PaymentStatus: string(model.PagoPendiente),
		EstadoPedido:  string(pedido.Estado),
	}
	if pedido.PaymentStatus != nil {
		resp.PaymentStatus = string(*pedido.PaymentStatus)
	}
	if pedido.Pagado() {
		resp.Pagado = true
		return resp, nil
	}
	if sesion == nil || sesion.ExpiradaEn(s.clock.Now()) {
		resp.Expirada = true
		return resp, nil
	}
	if pedido.Estado != model.PedidoPendiente {
		return resp, nil
	}

	estado := s.gateway.ConsultarEstado(ctx, pedido.ReferenciaExterna)
	if estado == model.PagoDesconocido {
		resp.PaymentStatus = string(estado)
		return resp, nil
	}
	actualizado, err := s.pedidos.ConfirmarPago(ctx, pedido.ReferenciaExterna, estado)
	if err != nil {
		return nil, err
	}
	if actualizado.PaymentStatus != nil {
		resp.PaymentStatus = *actualizado.PaymentStatus
	}
	resp.Pagado = resp.PaymentStatus == string(model.PagoAprobado)
	resp.EstadoPedido = actualizado.Estado
	return resp, nil
}

// ── Notificaciones ────────────────────────────────────────────────────────────

func (s *pagoService) RegistrarNotificacion(ctx context.Context, pagoID string) error {
	if s.cola != nil {
		err := s.cola.EncolarNotificacionPago(ctx, pagoID)
		if err == nil {
			return nil
		}
		log.Warn().Err(err).Str("pago_id", pagoID).Msg("webhook: no se pudo encolar, se procesa en línea")
	}
	return s.ProcesarNotificacion(ctx, pagoID)
}

func (s *pagoService) ProcesarNotificacion(ctx context.Context, pagoID string) error {
	info, err := s.ResolverNotificacion(ctx, pagoID)
	if err != nil {
		return err
	}
	return s.AplicarNotificacion(ctx, info)
}

func (s *pagoService) ResolverNotificacion(ctx context.Context, pagoID string) (*infra.PagoInfo, error) {
	info, err := s.gateway.ResolverPago(ctx, pagoID)
	if err != nil {
		return nil, fmt.Errorf("resolver pago %s: %w", pagoID, err)
	}
	return info, nil
}

// AplicarNotificacion feeds a resolved payment into the order. Notifications
// are accepted even after the polling session expired.
func (s *pagoService) AplicarNotificacion(ctx context.Context, info *infra.PagoInfo) error {
	_, err := s.pedidos.ConfirmarPago(ctx, info.ReferenciaExterna, info.Estado)
	if errors.Is(err, ErrPedidoNoEncontrado) {
		log.Warn().
			Str("pago_id", info.ID).
			Str("referencia", info.ReferenciaExterna).
			Msg("notificación de pago sin pedido asociado, se descarta")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().
		Str("pago_id", info.ID).
		Str("referencia", info.ReferenciaExterna).
		Str("estado", string(info.Estado)).
		Msg("notificación de pago aplicada")
	return nil
}

// ConciliarPendientes polls the provider for the least recently reconciled
// pending QR orders and stamps every order it asked about, so a backlog of
// abandoned sessions rotates instead of starving newer orders.
func (s *pagoService) ConciliarPendientes(ctx context.Context, limite int) (int, error) {
	pendientes, err := s.repo.ListPagosPendientes(ctx, limite)
	if err != nil {
		return 0, err
	}
	consultados := make([]uuid.UUID, 0, len(pendientes))
	defer func() {
		if err := s.repo.MarcarConciliados(context.WithoutCancel(ctx), consultados, s.clock.Now()); err != nil {
			log.Warn().Err(err).Int("pedidos", len(consultados)).Msg("conciliación: no se pudo registrar la consulta")
		}
	}()

	cambios := 0
	for _, p := range pendientes {
		if ctx.Err() != nil {
			return cambios, ctx.Err()
		}
		estado := s.gateway.ConsultarEstado(ctx, p.ReferenciaExterna)
		consultados = append(consultados, p.ID)
		if estado == model.PagoDesconocido || (p.PaymentStatus != nil && *p.PaymentStatus == estado) {
			continue
		}
		if _, err := s.pedidos.ConfirmarPago(ctx, p.ReferenciaExterna, estado); err != nil {
			log.Warn().Err(err).Str("pedido_id", p.ID.String()).Msg("conciliación: no se pudo confirmar el pago")
			continue
		}
		cambios++
	}
	return cambios, nil
}
