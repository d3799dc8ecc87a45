package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/zimmart/storefront-go/internal/order"
)

const (
	orderPlacedEventName    = "OrderPlaced"
	orderPlacedEventVersion = 1
	orderPlacedSchema       = "storefront/order-placed/v1"
	ordersPartitionKey      = "orders"
)

type OrderPlacedLine struct {
	ProductID    string `json:"productId"`
	SupplierID   string `json:"supplierId"`
	Quantity     int    `json:"quantity"`
	UnitPriceUSD string `json:"unitPriceUsd"`
}

type OrderPlacedPayload struct {
	OrderID       string            `json:"orderId"`
	OrderNumber   int64             `json:"orderNumber"`
	City          string            `json:"city"`
	PaymentMethod string            `json:"paymentMethod"`
	Currency      string            `json:"currency"`
	SubtotalUSD   string            `json:"subtotalUsd"`
	DeliveryFee   string            `json:"deliveryFeeUsd"`
	TotalUSD      string            `json:"totalUsd"`
	Lines         []OrderPlacedLine `json:"lines"`
	CreatedAt     time.Time         `json:"createdAt"`
}

type OrderPlacedEnvelope = EventEnvelope[OrderPlacedPayload]

// NewOrderPlacedEnvelope builds the event for a committed order. Order
// numbers are globally increasing, so they double as the sequence.
func NewOrderPlacedEnvelope(o *order.Order, correlationID string, now time.Time) OrderPlacedEnvelope {
	seq := o.Number
	payload := OrderPlacedPayload{
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		City:          o.City,
		PaymentMethod: string(o.PaymentMethod),
		Currency:      o.Currency,
		SubtotalUSD:   o.Subtotal.StringFixed(2),
		DeliveryFee:   o.DeliveryFee.StringFixed(2),
		TotalUSD:      o.Total.StringFixed(2),
		Lines:         make([]OrderPlacedLine, 0, len(o.Items)),
		CreatedAt:     o.CreatedAt,
	}
	for _, it := range o.Items {
		payload.Lines = append(payload.Lines, OrderPlacedLine{
			ProductID:    it.ProductID,
			SupplierID:   it.SupplierID,
			Quantity:     it.Quantity,
			UnitPriceUSD: it.UnitPrice.StringFixed(2),
		})
	}

	return OrderPlacedEnvelope{
		EventName:     orderPlacedEventName,
		EventVersion:  orderPlacedEventVersion,
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		Producer:      serviceName,
		PartitionKey:  ordersPartitionKey,
		Sequence:      &seq,
		OccurredAt:    now.UTC(),
		Schema:        orderPlacedSchema,
		Payload:       payload,
	}
}
