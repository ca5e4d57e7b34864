// Package inventory defines the goods the warehouse CLI stores.
package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calvinalkan/warehouse/pkg/warehouse"
)

// ErrInvalidItem is returned by [Item.Validate].
var ErrInvalidItem = errors.New("inventory: invalid item")

// Item is a stock-keeping unit. It implements [warehouse.Product].
type Item struct {
	Ident    int64              `json:"id"`
	Label    string             `json:"name"`
	Quantity uint64             `json:"amount"`
	Quality  warehouse.Category `json:"category"`
	Created  time.Time          `json:"created_at"`
}

var _ warehouse.Product = (*Item)(nil)

// ID implements [warehouse.Product].
func (i *Item) ID() int64 { return i.Ident }

// Name implements [warehouse.Product].
func (i *Item) Name() string { return i.Label }

// Amount implements [warehouse.Product].
func (i *Item) Amount() uint64 { return i.Quantity }

// Category implements [warehouse.Product].
func (i *Item) Category() warehouse.Category { return i.Quality }

// CreatedAt implements [warehouse.Product].
func (i *Item) CreatedAt() time.Time { return i.Created }

// Validate checks the fields a user can get wrong.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.Label) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}

	switch i.Quality.Kind {
	case warehouse.KindFragile:
		if i.Quality.MaxRow < 0 {
			return fmt.Errorf("%w: max row must not be negative", ErrInvalidItem)
		}
	case warehouse.KindOversized:
		if i.Quality.ZoneCount < 0 {
			return fmt.Errorf("%w: zone count must not be negative", ErrInvalidItem)
		}
	}

	return nil
}

// String renders the item as a multi-line detail block.
func (i *Item) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Product ID %d:\n", i.Ident)
	fmt.Fprintf(&b, "\tName: %s\n", i.Label)
	fmt.Fprintf(&b, "\tAmount: %d\n", i.Quantity)
	fmt.Fprintf(&b, "\tQuality: %s\n", i.Quality)
	fmt.Fprintf(&b, "\tEntered the warehouse at: %s", i.Created.Format(time.RFC3339))

	return b.String()
}
