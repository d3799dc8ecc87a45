package http

import (
	"encoding/json"
	"time"

	"github.com/zimmart/storefront-go/internal/order"
)

type submitOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type submitOrderRequest struct {
	BuyerName     string            `json:"buyer_name"`
	BuyerPhone    string            `json:"buyer_phone"`
	City          string            `json:"city"`
	Address       string            `json:"address"`
	PaymentMethod string            `json:"payment_method"`
	Items         []submitOrderItem `json:"items"`
}

func (r submitOrderRequest) toDomain() order.Request {
	req := order.Request{
		BuyerName:     r.BuyerName,
		BuyerPhone:    r.BuyerPhone,
		City:          r.City,
		Address:       r.Address,
		PaymentMethod: order.PaymentMethod(r.PaymentMethod),
		Items:         make([]order.RequestLine, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		req.Items = append(req.Items, order.RequestLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return req
}

// Money is rendered as a JSON number with exactly two decimals.
type submitOrderResponse struct {
	OrderID       string      `json:"order_id"`
	OrderNumber   int64       `json:"order_number"`
	TotalUSD      json.Number `json:"total_usd"`
	PaymentMethod string      `json:"payment_method"`
	Status        string      `json:"status"`
}

func newSubmitOrderResponse(o *order.Order) submitOrderResponse {
	return submitOrderResponse{
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		TotalUSD:      json.Number(o.Total.StringFixed(2)),
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
	}
}

type orderItemView struct {
	ProductID    string      `json:"product_id"`
	SupplierID   string      `json:"supplier_id"`
	Quantity     int         `json:"quantity"`
	UnitPriceUSD json.Number `json:"unit_price_usd"`
	Status       string      `json:"status"`
}

type orderView struct {
	OrderID        string          `json:"order_id"`
	OrderNumber    int64           `json:"order_number"`
	BuyerName      string          `json:"buyer_name"`
	City           string          `json:"city"`
	Address        string          `json:"address"`
	PaymentMethod  string          `json:"payment_method"`
	Currency       string          `json:"currency"`
	SubtotalUSD    json.Number     `json:"subtotal_usd"`
	DeliveryFeeUSD json.Number     `json:"delivery_fee_usd"`
	TotalUSD       json.Number     `json:"total_usd"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	Items          []orderItemView `json:"items"`
}

func newOrderView(o *order.Order) orderView {
	v := orderView{
		OrderID:        o.ID,
		OrderNumber:    o.Number,
		BuyerName:      o.BuyerName,
		City:           o.City,
		Address:        o.Address,
		PaymentMethod:  string(o.PaymentMethod),
		Currency:       o.Currency,
		SubtotalUSD:    json.Number(o.Subtotal.StringFixed(2)),
		DeliveryFeeUSD: json.Number(o.DeliveryFee.StringFixed(2)),
		TotalUSD:       json.Number(o.Total.StringFixed(2)),
		Status:         string(o.Status),
		CreatedAt:      o.CreatedAt,
		Items:          make([]orderItemView, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, orderItemView{
			ProductID:    it.ProductID,
			SupplierID:   it.SupplierID,
			Quantity:     it.Quantity,
			UnitPriceUSD: json.Number(it.UnitPrice.StringFixed(2)),
			Status:       string(it.Status),
		})
	}
	return v
}
