// Package notify tells the buyer and the shop operator about new orders.
// Delivery is attempted once per destination and never fails the order.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zimmart/storefront-go/internal/order"
	"github.com/zimmart/storefront-go/internal/phone"
)

type Sender interface {
	Send(ctx context.Context, to, message string) error
}

type Dispatcher struct {
	sender     Sender
	storeName  string
	operatorTo string
	logger     *zap.Logger
}

// NewDispatcher returns a dispatcher. An empty operatorTo disables the
// operator message.
func NewDispatcher(sender Sender, storeName, operatorTo string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, storeName: storeName, operatorTo: operatorTo, logger: logger}
}

// OrderPlaced sends the buyer and operator messages concurrently and waits
// for both attempts. Errors are logged, never returned.
func (d *Dispatcher) OrderPlaced(ctx context.Context, o *order.Order) {
	var g errgroup.Group

	if to, ok := phone.Normalize(o.BuyerPhone); ok {
		g.Go(func() error {
			d.attempt(ctx, "buyer", to, BuyerMessage(d.storeName, o), o.Number)
			return nil
		})
	} else {
		d.logger.Warn("buyer notification skipped: phone has no canonical form",
			zap.Int64("order_number", o.Number))
	}

	if d.operatorTo != "" {
		g.Go(func() error {
			d.attempt(ctx, "operator", d.operatorTo, OperatorMessage(o), o.Number)
			return nil
		})
	}

	_ = g.Wait()
}

func (d *Dispatcher) attempt(ctx context.Context, kind, to, message string, number int64) {
	if err := d.sender.Send(ctx, to, message); err != nil {
		d.logger.Warn("order notification failed",
			zap.String("destination", kind),
			zap.Int64("order_number", number),
			zap.Error(err))
		return
	}
	d.logger.Info("order notification sent",
		zap.String("destination", kind),
		zap.Int64("order_number", number))
}

func BuyerMessage(storeName string, o *order.Order) string {
	return fmt.Sprintf("%s: Order %d\nName: %s\nTotal: $%s %s\nPayment: %s\nWe will contact you to confirm.",
		storeName, o.Number, o.BuyerName, o.Total.StringFixed(2), currencyOf(o), o.PaymentMethod)
}

func OperatorMessage(o *order.Order) string {
	return fmt.Sprintf("New order %d - $%s %s", o.Number, o.Total.StringFixed(2), currencyOf(o))
}

func currencyOf(o *order.Order) string {
	if o.Currency == "" {
		return "USD"
	}
	return o.Currency
}
