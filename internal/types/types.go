package types

import "time"

type Event struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Ts      time.Time      `json:"timestamp"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Item is one line of an order under conference. Quantities may be null
// in the backend payload.
type Item struct {
	ProductCode int64    `json:"codProd"`
	Description string   `json:"descricao"`
	Unit        string   `json:"unidade"`
	ExpectedQty *float64 `json:"qtdEsperada,omitempty"`
	CheckedQty  *float64 `json:"qtdConferida,omitempty"`
	OriginalQty *float64 `json:"qtdOriginal,omitempty"`
	CurrentQty  *float64 `json:"qtdAtual,omitempty"`
}

type Order struct {
	OrderID       int64   `json:"nunota"`
	InvoiceNo     *int64  `json:"numNota,omitempty"`
	Status        string  `json:"statusConferencia"`
	PartnerName   *string `json:"nomeParc,omitempty"`
	VendorName    *string `json:"nomeVendedor,omitempty"`
	CheckerName   *string `json:"nomeConferente,omitempty"`
	CheckerAvatar *string `json:"avatarUrlConferente,omitempty"`
	Items         []Item  `json:"itens"`
}

// Vendor returns the vendor name or "" when the backend sent null.
func (o Order) Vendor() string {
	if o.VendorName == nil {
		return ""
	}
	return *o.VendorName
}

// AlertRequest is a queued voice alert for one order.
type AlertRequest struct {
	OrderID     int64  `json:"order_id"`
	AssetRef    string `json:"asset_ref"`
	DisplayName string `json:"display_name"`
}

// Snapshot is the operator-facing view of the alert session.
type Snapshot struct {
	InstanceID string        `json:"instance_id"`
	Queued     []int64       `json:"queued"`
	Played     []int64       `json:"played"`
	Pending    []int64       `json:"pending"`
	Playing    *AlertRequest `json:"playing,omitempty"`
	Locked     bool          `json:"locked"`
}
