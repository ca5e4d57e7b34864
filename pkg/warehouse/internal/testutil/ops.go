package testutil

import (
	"fmt"

	"github.com/calvinalkan/warehouse/pkg/warehouse"
)

// Op is one step of a generated operation stream.
type Op interface {
	fmt.Stringer
	isOp()
}

// OpAdd adds Goods with the harness policy.
type OpAdd struct {
	Goods Goods
}

// OpRemove removes whatever is stored at At.
type OpRemove struct {
	At warehouse.Coords
}

// OpRoundTrip encodes the store to JSON and replaces it with the decoded
// copy. Policy state is kept.
type OpRoundTrip struct{}

func (OpAdd) isOp()       {}
func (OpRemove) isOp()    {}
func (OpRoundTrip) isOp() {}

func (o OpAdd) String() string { return "add " + o.Goods.String() }

func (o OpRemove) String() string { return "remove " + o.At.String() }

func (OpRoundTrip) String() string { return "round-trip" }

var names = []string{"bolts", "nuts", "milk", "eggs", "crate"}

// OpGenerator derives operations from a byte stream.
type OpGenerator struct {
	stream *ByteStream
	maxIdx int
	nextID int64
}

// NewOpGenerator returns a generator for a warehouse of size maxIdx.
func NewOpGenerator(data []byte, maxIdx int) *OpGenerator {
	return &OpGenerator{stream: NewByteStream(data), maxIdx: maxIdx, nextID: 1}
}

// HasMore reports whether the stream still has input.
func (g *OpGenerator) HasMore() bool {
	return g.stream.HasMore()
}

// Next returns the next operation. occupied lists the stored products so
// removals mostly hit something.
func (g *OpGenerator) Next(occupied []warehouse.Coords) Op {
	s := g.stream

	switch choice := s.NextIntn(16); {
	case choice < 9:
		return OpAdd{Goods: g.goods()}
	case choice < 14 && len(occupied) > 0:
		return OpRemove{At: occupied[s.NextIntn(256)%len(occupied)]}
	case choice < 15:
		// Any coordinate, including invalid ones and continuations.
		return OpRemove{At: warehouse.At(s.NextIntn(g.maxIdx+1), s.NextIntn(g.maxIdx), s.NextIntn(g.maxIdx))}
	default:
		return OpRoundTrip{}
	}
}

func (g *OpGenerator) goods() Goods {
	s := g.stream
	name := names[s.NextIntn(len(names))]

	// Reuse identifiers now and then to exercise duplicate ids.
	id := g.nextID
	if s.NextIntn(8) == 0 && id > 1 {
		id = int64(s.NextIntn(int(min(id-1, 255)))) + 1
	} else {
		g.nextID++
	}

	switch s.NextIntn(4) {
	case 0:
		return FragileGoods(id, name, s.NextIntn(10), s.NextIntn(g.maxIdx))
	case 1:
		return OversizedGoods(id, name, s.NextIntn(g.maxIdx+1))
	default:
		item := NewGoods(id, name)
		item.Qty = uint64(s.NextUint16())

		return item
	}
}
