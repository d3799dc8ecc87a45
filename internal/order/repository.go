package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

// Create writes the header and every line item in one transaction. The order
// number comes from the identity column; o.Number is only set once the
// transaction has committed.
func (r *repo) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var number int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (id, buyer_name, buyer_phone, city, address, payment_method, currency,
                     subtotal_usd, delivery_fee_usd, total_usd, status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
         RETURNING order_number`,
		o.ID, o.BuyerName, o.BuyerPhone, o.City, o.Address, string(o.PaymentMethod), o.Currency,
		o.Subtotal, o.DeliveryFee, o.Total, string(o.Status), o.CreatedAt,
	).Scan(&number)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderID = o.ID
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, supplier_id, quantity, unit_price_usd, status)
             VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, o.ID, it.ProductID, it.SupplierID, it.Quantity, it.UnitPrice, string(it.Status),
		)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	o.Number = number
	return nil
}

func (r *repo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx,
		`SELECT id, order_number, buyer_name, buyer_phone, city, address, payment_method, currency,
                subtotal_usd, delivery_fee_usd, total_usd, status, created_at
         FROM orders WHERE id = $1`,
		orderID,
	).Scan(&o.ID, &o.Number, &o.BuyerName, &o.BuyerPhone, &o.City, &o.Address, &o.PaymentMethod, &o.Currency,
		&o.Subtotal, &o.DeliveryFee, &o.Total, &o.Status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, supplier_id, quantity, unit_price_usd, status
         FROM order_items WHERE order_id = $1 ORDER BY product_id`,
		o.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it := LineItem{OrderID: o.ID}
		if err := rows.Scan(&it.ID, &it.ProductID, &it.SupplierID, &it.Quantity, &it.UnitPrice, &it.Status); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return &o, nil
}
