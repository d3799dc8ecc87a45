package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidRequest = errors.New("invalid request")

// MaxLineQuantity caps the units of one product in a single order.
const MaxLineQuantity = 10000

// Request is a buyer's submission. It is never persisted as-is.
type Request struct {
	BuyerName     string
	BuyerPhone    string
	City          string
	Address       string
	PaymentMethod PaymentMethod
	Items         []RequestLine
}

type RequestLine struct {
	ProductID string
	Quantity  int
}

// Validate checks shape only; it never touches the catalog.
func (r Request) Validate() error {
	required := []struct{ name, value string }{
		{"buyer_name", r.BuyerName},
		{"buyer_phone", r.BuyerPhone},
		{"city", r.City},
		{"address", r.Address},
		{"payment_method", string(r.PaymentMethod)},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: missing %s", ErrInvalidRequest, f.name)
		}
	}
	if !r.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment_method %q", ErrInvalidRequest, r.PaymentMethod)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: items must not be empty", ErrInvalidRequest)
	}
	merged := make(map[string]int, len(r.Items))
	for i, it := range r.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return fmt.Errorf("%w: items[%d] missing product_id", ErrInvalidRequest, i)
		}
		if it.Quantity < 1 || it.Quantity > MaxLineQuantity {
			return fmt.Errorf("%w: items[%d] quantity must be between 1 and %d", ErrInvalidRequest, i, MaxLineQuantity)
		}
		// Repeated ids are merged before pricing, so the sum is what gets stored.
		merged[it.ProductID] += it.Quantity
		if merged[it.ProductID] > MaxLineQuantity {
			return fmt.Errorf("%w: product %s quantity exceeds %d", ErrInvalidRequest, it.ProductID, MaxLineQuantity)
		}
	}
	return nil
}

// LineItem snapshots the unit price at order time.
type LineItem struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	ProductID  string          `json:"product_id"`
	SupplierID string          `json:"supplier_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price_usd"`
	Status     Status          `json:"status"`
}

type Order struct {
	ID            string          `json:"order_id"`
	Number        int64           `json:"order_number"`
	BuyerName     string          `json:"buyer_name"`
	BuyerPhone    string          `json:"buyer_phone"`
	City          string          `json:"city"`
	Address       string          `json:"address"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Currency      string          `json:"currency"`
	Subtotal      decimal.Decimal `json:"subtotal_usd"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee_usd"`
	Total         decimal.Decimal `json:"total_usd"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []LineItem      `json:"items"`
}
