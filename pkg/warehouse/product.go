package warehouse

import (
	"encoding/json"
	"fmt"
	"time"
)

// Product is the capability the store requires of stored goods.
//
// Products are totally ordered by identifier (see [CompareProducts]) and
// printable. Implementations must be JSON (un)marshalable to be part of a
// [Snapshot].
type Product interface {
	ID() int64
	Name() string
	Amount() uint64
	Category() Category
	CreatedAt() time.Time
	fmt.Stringer
}

// CompareProducts orders products by identifier.
func CompareProducts[P Product](a, b P) int {
	switch {
	case a.ID() < b.ID():
		return -1
	case a.ID() > b.ID():
		return 1
	default:
		return 0
	}
}

// Kind is the placement class of a product.
type Kind uint8

// Placement classes.
const (
	// KindNormal products have no placement constraint.
	KindNormal Kind = iota
	// KindFragile products must sit at or below [Category.MaxRow] and are
	// indexed by expiry date.
	KindFragile
	// KindOversized products occupy [Category.ZoneCount] extra zones after
	// their own on the same shelf.
	KindOversized
)

func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindFragile:
		return "fragile"
	case KindOversized:
		return "oversized"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses "normal", "fragile" or "oversized".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "normal":
		return KindNormal, nil
	case "fragile":
		return KindFragile, nil
	case "oversized":
		return KindOversized, nil
	default:
		return 0, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, s)
	}
}

// Category is a closed variant: normal, fragile or oversized.
//
// Only the fields of the active kind are meaningful. Use [Normal],
// [Fragile] and [Oversized] to construct values.
type Category struct {
	Kind Kind

	// ExpiryDate is the calendar day (UTC) a fragile product expires.
	ExpiryDate time.Time
	// MaxRow is the highest row a fragile product may occupy.
	MaxRow int

	// ZoneCount is the number of extra zones an oversized product occupies.
	ZoneCount int
}

// Normal returns the unconstrained category.
func Normal() Category {
	return Category{Kind: KindNormal}
}

// Fragile returns a fragile category. The expiry is truncated to its UTC
// calendar day.
func Fragile(expiry time.Time, maxRow int) Category {
	return Category{Kind: KindFragile, ExpiryDate: Day(expiry), MaxRow: maxRow}
}

// Oversized returns an oversized category spanning zones+1 zones.
func Oversized(zones int) Category {
	return Category{Kind: KindOversized, ZoneCount: zones}
}

// IsFragile reports whether c is fragile.
func (c Category) IsFragile() bool { return c.Kind == KindFragile }

// IsOversized reports whether c is oversized.
func (c Category) IsOversized() bool { return c.Kind == KindOversized }

// extraZones returns the number of continuation slots the category needs.
func (c Category) extraZones() int {
	if c.Kind == KindOversized {
		return c.ZoneCount
	}

	return 0
}

// rowLimit returns the highest allowed row and whether there is one.
func (c Category) rowLimit() (int, bool) {
	if c.Kind == KindFragile {
		return c.MaxRow, true
	}

	return 0, false
}

func (c Category) String() string {
	switch c.Kind {
	case KindFragile:
		return fmt.Sprintf("Fragile - Expires %s, cannot be located above row %d", c.ExpiryDate.Format(time.DateOnly), c.MaxRow)
	case KindOversized:
		return fmt.Sprintf("Oversized - Occupies %d zones", c.ZoneCount)
	default:
		return "Normal"
	}
}

type categoryJSON struct {
	Kind       string `json:"kind"`
	ExpiryDate string `json:"expiry_date,omitempty"`
	MaxRow     *int   `json:"max_row,omitempty"`
	ZoneCount  *int   `json:"zone_count,omitempty"`
}

// MarshalJSON encodes the active variant only.
func (c Category) MarshalJSON() ([]byte, error) {
	raw := categoryJSON{Kind: c.Kind.String()}

	switch c.Kind {
	case KindFragile:
		raw.ExpiryDate = c.ExpiryDate.Format(time.DateOnly)
		raw.MaxRow = &c.MaxRow
	case KindOversized:
		raw.ZoneCount = &c.ZoneCount
	}

	return json.Marshal(raw)
}

// UnmarshalJSON decodes a category written by [Category.MarshalJSON].
func (c *Category) UnmarshalJSON(data []byte) error {
	var raw categoryJSON

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	kind, err := ParseKind(raw.Kind)
	if err != nil {
		return err
	}

	switch kind {
	case KindFragile:
		if raw.MaxRow == nil {
			return fmt.Errorf("%w: fragile category without max_row", ErrInvalidInput)
		}

		expiry, parseErr := ParseDay(raw.ExpiryDate)
		if parseErr != nil {
			return parseErr
		}

		*c = Fragile(expiry, *raw.MaxRow)
	case KindOversized:
		if raw.ZoneCount == nil {
			return fmt.Errorf("%w: oversized category without zone_count", ErrInvalidInput)
		}

		*c = Oversized(*raw.ZoneCount)
	default:
		*c = Normal()
	}

	return nil
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD calendar day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q (want YYYY-MM-DD)", ErrInvalidInput, s)
	}

	return t, nil
}

func dayKey(t time.Time) string {
	return Day(t).Format(time.DateOnly)
}
