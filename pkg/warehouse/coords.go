package warehouse

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Coords addresses one zone: (row, shelf, zone), each in [0, max_idx).
//
// Coordinates are totally ordered with the zone varying fastest:
// (r,s,z) < (r,s,z+1) < (r,s+1,0) < (r+1,0,0).
type Coords struct {
	Row   int
	Shelf int
	Zone  int
}

// At is shorthand for Coords{row, shelf, zone}.
func At(row, shelf, zone int) Coords {
	return Coords{Row: row, Shelf: shelf, Zone: zone}
}

// Compare returns -1, 0 or +1 depending on whether a sorts before, equal to,
// or after b.
func Compare(a, b Coords) int {
	switch {
	case a.Row != b.Row:
		return cmpInt(a.Row, b.Row)
	case a.Shelf != b.Shelf:
		return cmpInt(a.Shelf, b.Shelf)
	default:
		return cmpInt(a.Zone, b.Zone)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Valid reports whether c lies inside a warehouse of the given size.
func (c Coords) Valid(maxIdx int) bool {
	return c.Row >= 0 && c.Row < maxIdx &&
		c.Shelf >= 0 && c.Shelf < maxIdx &&
		c.Zone >= 0 && c.Zone < maxIdx
}

// Next returns the successor of c, or false at the last coordinate.
func (c Coords) Next(maxIdx int) (Coords, bool) {
	switch {
	case c.Zone != maxIdx-1:
		return At(c.Row, c.Shelf, c.Zone+1), true
	case c.Shelf != maxIdx-1:
		return At(c.Row, c.Shelf+1, 0), true
	case c.Row != maxIdx-1:
		return At(c.Row+1, 0, 0), true
	default:
		return Coords{}, false
	}
}

// Prev returns the predecessor of c, or false at the origin.
func (c Coords) Prev(maxIdx int) (Coords, bool) {
	switch {
	case c.Zone != 0:
		return At(c.Row, c.Shelf, c.Zone-1), true
	case c.Shelf != 0:
		return At(c.Row, c.Shelf-1, maxIdx-1), true
	case c.Row != 0:
		return At(c.Row-1, maxIdx-1, maxIdx-1), true
	default:
		return Coords{}, false
	}
}

// Index linearizes c. Index preserves the coordinate order.
func (c Coords) Index(maxIdx int) int {
	return (c.Row*maxIdx+c.Shelf)*maxIdx + c.Zone
}

// CoordsAt is the inverse of [Coords.Index].
func CoordsAt(idx, maxIdx int) Coords {
	zone := idx % maxIdx
	idx /= maxIdx

	return At(idx/maxIdx, idx%maxIdx, zone)
}

// Last returns the last coordinate of a warehouse of the given size.
func Last(maxIdx int) Coords {
	return At(maxIdx-1, maxIdx-1, maxIdx-1)
}

func (c Coords) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.Row, c.Shelf, c.Zone)
}

// ParseCoords parses "row shelf zone": exactly three non-negative integers
// separated by whitespace.
func ParseCoords(s string) (Coords, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Coords{}, fmt.Errorf("%w: want \"row shelf zone\", got %q", ErrInvalidCoords, s)
	}

	var parts [3]int

	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return Coords{}, fmt.Errorf("%w: %q is not a non-negative integer", ErrInvalidCoords, field)
		}

		parts[i] = n
	}

	return At(parts[0], parts[1], parts[2]), nil
}

// MarshalJSON encodes c as [row, shelf, zone].
func (c Coords) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{c.Row, c.Shelf, c.Zone})
}

// UnmarshalJSON decodes [row, shelf, zone].
func (c *Coords) UnmarshalJSON(data []byte) error {
	var parts []int

	err := json.Unmarshal(data, &parts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCoords, err)
	}

	if len(parts) != 3 {
		return fmt.Errorf("%w: want 3 components, got %d", ErrInvalidCoords, len(parts))
	}

	*c = At(parts[0], parts[1], parts[2])

	return nil
}
