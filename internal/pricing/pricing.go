// Package pricing computes order totals from authoritative catalog prices
// using exact decimal arithmetic.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/zimmart/storefront-go/internal/catalog"
)

// Line is a requested product and quantity.
type Line struct {
	ProductID string
	Quantity  int
}

type PricedLine struct {
	Product   catalog.Product
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type Quote struct {
	Lines       []PricedLine
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Merge collapses repeated product ids into one line by summing quantities.
// The first occurrence of each id decides its position.
func Merge(lines []Line) []Line {
	index := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// Price prices each line at its resolved unit price. Unit prices are
// captured at two decimals, so sums stay exact and total always equals
// subtotal plus fee.
func Price(lines []Line, products map[string]catalog.Product, deliveryFee decimal.Decimal) (Quote, error) {
	q := Quote{
		Lines:       make([]PricedLine, 0, len(lines)),
		Subtotal:    decimal.Zero,
		DeliveryFee: deliveryFee.Round(2),
	}

	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return Quote{}, fmt.Errorf("no resolved product for %s", l.ProductID)
		}
		unit := p.Price.Round(2)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(l.Quantity)))
		q.Lines = append(q.Lines, PricedLine{
			Product:   p,
			Quantity:  l.Quantity,
			UnitPrice: unit,
			LineTotal: lineTotal,
		})
		q.Subtotal = q.Subtotal.Add(lineTotal)
	}

	q.Total = q.Subtotal.Add(q.DeliveryFee)
	return q, nil
}
