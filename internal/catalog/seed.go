package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const demoProductCount = 20

// DemoSupplier is the approved importer that owns every demo listing.
var DemoSupplier = Supplier{Name: "Demo Importer Bulawayo", City: "Bulawayo", KYCStatus: KYCApproved}

// DemoListings builds the demo catalog for supplierID.
func DemoListings(supplierID string) []Listing {
	out := make([]Listing, 0, demoProductCount)
	for i := 1; i <= demoProductCount; i++ {
		out = append(out, Listing{
			SupplierID:  supplierID,
			Name:        fmt.Sprintf("Demo Product %d", i),
			Slug:        fmt.Sprintf("demo-product-%d", i),
			Description: "Affordable quality import.",
			Price:       decimal.NewFromInt(int64(5 + (i%10)*3)),
			Stock:       20 + (i%5)*5,
			Active:      true,
		})
	}
	return out
}

// Seed upserts the demo supplier and its listings and returns how many
// listings were written.
func (r *Repository) Seed(ctx context.Context) (int, error) {
	supplierID, err := r.UpsertSupplier(ctx, DemoSupplier)
	if err != nil {
		return 0, err
	}
	listings := DemoListings(supplierID)
	for _, l := range listings {
		if err := r.UpsertListing(ctx, l); err != nil {
			return 0, err
		}
	}
	return len(listings), nil
}
