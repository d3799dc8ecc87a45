package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("referenced item(s) not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	pool DBPool
}

func NewRepository(pool DBPool) *Repository {
	return &Repository{pool: pool}
}

// Resolve loads the current price and owning supplier for every id in one
// read. Inactive products are treated as missing. If any id cannot be
// resolved the error wraps ErrNotFound and no partial result is returned.
func (r *Repository) Resolve(ctx context.Context, ids []string) (map[string]Product, error) {
	distinct := dedupe(ids)
	if len(distinct) == 0 {
		return map[string]Product{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, price_usd::text, supplier_id::text
		FROM products
		WHERE id = ANY($1) AND active
	`, distinct)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	found := make(map[string]Product, len(distinct))
	for rows.Next() {
		var (
			p     Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &p.SupplierID); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse price for %s: %w", p.ID, err)
		}
		found[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if len(found) != len(distinct) {
		var missing []string
		for _, id := range distinct {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(missing, ", "))
	}

	return found, nil
}

// UpsertSupplier creates the supplier or refreshes it by name, returning its id.
func (r *Repository) UpsertSupplier(ctx context.Context, s Supplier) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO suppliers (id, name, city, kyc_status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name)
		DO UPDATE SET city = EXCLUDED.city, kyc_status = EXCLUDED.kyc_status
		RETURNING id::text
	`, uuid.NewString(), s.Name, s.City, string(s.KYCStatus)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert supplier: %w", err)
	}
	return id, nil
}

// UpsertListing creates the product or updates it in place by slug.
func (r *Repository) UpsertListing(ctx context.Context, l Listing) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, supplier_id, name, slug, description, price_usd, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (slug)
		DO UPDATE SET
			supplier_id = EXCLUDED.supplier_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price_usd = EXCLUDED.price_usd,
			stock = EXCLUDED.stock,
			active = EXCLUDED.active
	`, uuid.NewString(), l.SupplierID, l.Name, l.Slug, l.Description, l.Price, l.Stock, l.Active)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", l.Slug, err)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
