package dto

import "github.com/shopspring/decimal"

// GenerarQRItem mirrors a cart line as sent by the storefront. The server
// prices the order itself; these are only used for logging mismatches.
type GenerarQRItem struct {
	Nombre         string          `json:"nombre"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precioUnitario"`
}

// GenerarQRRequest is bound from POST /pagos/generar-qr.
type GenerarQRRequest struct {
	Cantidad         decimal.Decimal `json:"cantidad"`
	Descripcion      string          `json:"descripcion"      validate:"max=200"`
	Items            []GenerarQRItem `json:"items"`
	ClienteDNI       string          `json:"clienteDni"       validate:"required,max=20"`
	DireccionEntrega string          `json:"direccionEntrega" validate:"required_without=PedidoID,max=300"`
	PedidoID         *string         `json:"pedidoId"         validate:"omitempty,uuid"`
}

type GenerarQRResponse struct {
	PreferenceID string          `json:"preferenceId"`
	QRCode       *string         `json:"qrCode"`
	CheckoutURL  string          `json:"checkoutUrl"`
	SandboxURL   string          `json:"sandboxUrl"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	PedidoID     string          `json:"pedidoId"`
	ExpiraEn     string          `json:"expiraEn"`
}

// EstadoPagoResponse answers a poll of GET /pagos/{preferenceId}/estado.
type EstadoPagoResponse struct {
	PreferenceID  string `json:"preferenceId"`
	PedidoID      string `json:"pedidoId"`
	PaymentStatus string `json:"paymentStatus"`
	Pagado        bool   `json:"pagado"`
	Expirada      bool   `json:"expirada"`
	EstadoPedido  string `json:"estadoPedido"`
}

// NotificacionPagoRequest covers both notification shapes the provider sends:
// the webhook body {type, data:{id}} and the legacy query-string form
// ?topic=payment&id=123.
type NotificacionPagoRequest struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}
