// Package testutil provides a test product type, a brute-force reference
// model of the warehouse and a harness that runs byte-driven operation
// streams against both.
package testutil

import (
	"fmt"
	"time"

	"github.com/calvinalkan/warehouse/pkg/warehouse"
)

// Goods is a minimal [warehouse.Product] stored by value.
type Goods struct {
	Ident int64              `json:"id"`
	Label string             `json:"name"`
	Qty   uint64             `json:"amount"`
	Cat   warehouse.Category `json:"category"`
	Stamp time.Time          `json:"created_at"`
}

// ID implements [warehouse.Product].
func (g Goods) ID() int64 { return g.Ident }

// Name implements [warehouse.Product].
func (g Goods) Name() string { return g.Label }

// Amount implements [warehouse.Product].
func (g Goods) Amount() uint64 { return g.Qty }

// Category implements [warehouse.Product].
func (g Goods) Category() warehouse.Category { return g.Cat }

// CreatedAt implements [warehouse.Product].
func (g Goods) CreatedAt() time.Time { return g.Stamp }

func (g Goods) String() string {
	return fmt.Sprintf("#%d %s x%d (%s)", g.Ident, g.Label, g.Qty, g.Cat)
}

// BaseDay is the reference calendar day for generated expiry dates.
var BaseDay = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

// NewGoods returns normal goods with the given id and name.
func NewGoods(id int64, name string) Goods {
	return Goods{Ident: id, Label: name, Qty: 1, Cat: warehouse.Normal(), Stamp: BaseDay}
}

// FragileGoods returns fragile goods expiring days after BaseDay.
func FragileGoods(id int64, name string, days, maxRow int) Goods {
	g := NewGoods(id, name)
	g.Cat = warehouse.Fragile(BaseDay.AddDate(0, 0, days), maxRow)

	return g
}

// OversizedGoods returns goods occupying zones extra zones.
func OversizedGoods(id int64, name string, zones int) Goods {
	g := NewGoods(id, name)
	g.Cat = warehouse.Oversized(zones)

	return g
}
