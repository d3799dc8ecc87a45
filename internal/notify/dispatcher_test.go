package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zimmart/storefront-go/internal/order"
)

type sent struct {
	to, message string
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sent
	failTo map[string]error
}

func (f *fakeSender) Send(ctx context.Context, to, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{to: to, message: message})
	return f.failTo[to]
}

func (f *fakeSender) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.to)
	}
	sort.Strings(out)
	return out
}

func placedOrder(buyerPhone string) *order.Order {
	return &order.Order{
		ID:            "order-1",
		Number:        1042,
		BuyerName:     "Tariro",
		BuyerPhone:    buyerPhone,
		PaymentMethod: order.PaymentEcoCash,
		Currency:      "USD",
		Total:         decimal.RequireFromString("18"),
	}
}

func TestBuyerMessage(t *testing.T) {
	msg := BuyerMessage("Zim Mart", placedOrder("0772123456"))
	assert.Equal(t, "Zim Mart: Order 1042\nName: Tariro\nTotal: $18.00 USD\nPayment: EcoCash\nWe will contact you to confirm.", msg)
}

func TestOperatorMessage(t *testing.T) {
	assert.Equal(t, "New order 1042 - $18.00 USD", OperatorMessage(placedOrder("0772123456")))
}

func TestOrderPlaced_BothDestinations(t *testing.T) {
	s := &fakeSender{}
	d := NewDispatcher(s, "Zim Mart", "263771000000", zap.NewNop())

	d.OrderPlaced(context.Background(), placedOrder("0772123456"))

	assert.Equal(t, []string{"263771000000", "263772123456"}, s.recipients())
}

func TestOrderPlaced_BuyerPhoneUnrepresentable(t *testing.T) {
	s := &fakeSender{}
	d := NewDispatcher(s, "Zim Mart", "263771000000", zap.NewNop())

	d.OrderPlaced(context.Background(), placedOrder("123"))

	assert.Equal(t, []string{"263771000000"}, s.recipients())
}

func TestOrderPlaced_NoOperatorConfigured(t *testing.T) {
	s := &fakeSender{}
	d := NewDispatcher(s, "Zim Mart", "", zap.NewNop())

	d.OrderPlaced(context.Background(), placedOrder("0772123456"))

	assert.Equal(t, []string{"263772123456"}, s.recipients())
}

func TestOrderPlaced_FailureIsIsolatedPerDestination(t *testing.T) {
	s := &fakeSender{failTo: map[string]error{"263772123456": errors.New("provider 500")}}
	d := NewDispatcher(s, "Zim Mart", "263771000000", zap.NewNop())

	o := placedOrder("0772123456")
	before := *o

	require.NotPanics(t, func() { d.OrderPlaced(context.Background(), o) })

	assert.Equal(t, []string{"263771000000", "263772123456"}, s.recipients())
	assert.Equal(t, before, *o, "dispatch must not touch the order")
}

func TestOrderPlaced_NotConfiguredTransport(t *testing.T) {
	d := NewDispatcher(NewWhatsAppClient("http://127.0.0.1:1", "", "", nil), "Zim Mart", "263771000000", zap.NewNop())

	require.NotPanics(t, func() {
		d.OrderPlaced(context.Background(), placedOrder("0772123456"))
	})
}
