package warehouse

import (
	"encoding/json"
	"fmt"
)

// SlotState tags a [Slot].
type SlotState uint8

// Slot states.
const (
	// SlotFree holds nothing.
	SlotFree SlotState = iota
	// SlotOccupied holds a product.
	SlotOccupied
	// SlotContinuation is reserved by an oversized product stored in an
	// earlier zone of the same shelf.
	SlotContinuation
)

func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotOccupied:
		return "occupied"
	case SlotContinuation:
		return "continuation"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Slot is the entry stored at one coordinate. Product is set only when
// State is [SlotOccupied].
type Slot[P Product] struct {
	State   SlotState
	Product P
}

// IsFree reports whether the slot holds nothing.
func (s Slot[P]) IsFree() bool {
	return s.State == SlotFree
}

type slotJSON[P Product] struct {
	State   string `json:"state"`
	Product *P     `json:"product,omitempty"`
}

// MarshalJSON encodes the slot as {"state": ..., "product": ...}.
func (s Slot[P]) MarshalJSON() ([]byte, error) {
	raw := slotJSON[P]{State: s.State.String()}
	if s.State == SlotOccupied {
		raw.Product = &s.Product
	}

	return json.Marshal(raw)
}

// UnmarshalJSON decodes a slot written by [Slot.MarshalJSON].
func (s *Slot[P]) UnmarshalJSON(data []byte) error {
	var raw slotJSON[P]

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	switch raw.State {
	case "free":
		*s = Slot[P]{State: SlotFree}
	case "continuation":
		*s = Slot[P]{State: SlotContinuation}
	case "occupied":
		if raw.Product == nil {
			return fmt.Errorf("%w: occupied slot without product", ErrCorrupt)
		}

		*s = Slot[P]{State: SlotOccupied, Product: *raw.Product}
	default:
		return fmt.Errorf("%w: unknown slot state %q", ErrCorrupt, raw.State)
	}

	return nil
}
