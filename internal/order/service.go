package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zimmart/storefront-go/internal/catalog"
	"github.com/zimmart/storefront-go/internal/pricing"
)

// Resolver loads authoritative prices. Implementations must read straight
// from the catalog store.
type Resolver interface {
	Resolve(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

// Notifier is told about every committed order. It must not return errors
// to the pipeline; failures are its own to log.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order)
}

type Service struct {
	resolver    Resolver
	repo        Repository
	notifiers   []Notifier
	deliveryFee decimal.Decimal
	currency    string
	logger      *zap.Logger
	now         func() time.Time

	inflight sync.WaitGroup
}

func NewService(resolver Resolver, repo Repository, deliveryFee decimal.Decimal, currency string, logger *zap.Logger, notifiers ...Notifier) *Service {
	return &Service{
		resolver:    resolver,
		repo:        repo,
		notifiers:   notifiers,
		deliveryFee: deliveryFee,
		currency:    currency,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates, prices and persists the order, then hands it to the
// notifiers in the background. Errors wrap ErrInvalidRequest,
// catalog.ErrNotFound, or come from the store.
func (s *Service) Submit(ctx context.Context, req Request) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, pricing.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	lines = pricing.Merge(lines)

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.resolver.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}

	quote, err := pricing.Price(lines, products, s.deliveryFee)
	if err != nil {
		return nil, fmt.Errorf("price order: %w", err)
	}

	o := &Order{
		BuyerName:     req.BuyerName,
		BuyerPhone:    req.BuyerPhone,
		City:          req.City,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		Currency:      s.currency,
		Subtotal:      quote.Subtotal,
		DeliveryFee:   quote.DeliveryFee,
		Total:         quote.Total,
		Status:        StatusCreated,
		CreatedAt:     s.now(),
		Items:         make([]LineItem, 0, len(quote.Lines)),
	}
	for _, pl := range quote.Lines {
		o.Items = append(o.Items, LineItem{
			ProductID:  pl.Product.ID,
			SupplierID: pl.Product.SupplierID,
			Quantity:   pl.Quantity,
			UnitPrice:  pl.UnitPrice,
			Status:     StatusCreated,
		})
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.Int64("order_number", o.Number),
		zap.String("total_usd", o.Total.StringFixed(2)),
		zap.Int("lines", len(o.Items)))

	s.notify(ctx, o)
	return o, nil
}

// Wait blocks until background notifications started by Submit have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) notify(ctx context.Context, o *Order) {
	detached := context.WithoutCancel(ctx)
	for _, n := range s.notifiers {
		s.inflight.Add(1)
		go func(n Notifier) {
			defer s.inflight.Done()
			defer func() {
				if rec := recover(); rec != nil {
					s.logger.Error("notifier panicked",
						zap.Int64("order_number", o.Number),
						zap.Any("panic", rec))
				}
			}()
			n.OrderPlaced(detached, o)
		}(n)
	}
}
