package catalog

import "github.com/shopspring/decimal"

// Product is a read-only snapshot of a catalog entry taken at resolution time.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"priceUsd"`
	SupplierID string          `json:"supplierId"`
}

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

type Supplier struct {
	Name      string
	City      string
	KYCStatus KYCStatus
}

// Listing is the write model used when seeding or editing the catalog.
type Listing struct {
	SupplierID  string
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Active      bool
}
