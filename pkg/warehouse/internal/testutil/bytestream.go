package testutil

// ByteStream reads bytes sequentially from a byte slice.
//
// Fuzz tests use it to derive operations from the fuzz input. Once the
// stream is exhausted every read returns zero, so the same input always
// produces the same operations.
type ByteStream struct {
	bytes []byte
	pos   int
}

// NewByteStream creates a stream over b.
func NewByteStream(b []byte) *ByteStream {
	return &ByteStream{bytes: b}
}

// HasMore reports whether unread bytes remain.
func (s *ByteStream) HasMore() bool {
	return s.pos < len(s.bytes)
}

// NextByte returns the next byte, or 0 if exhausted.
func (s *ByteStream) NextByte() byte {
	if s.pos >= len(s.bytes) {
		return 0
	}

	v := s.bytes[s.pos]
	s.pos++

	return v
}

// NextIntn returns a value in [0, n). n must be positive and at most 256.
func (s *ByteStream) NextIntn(n int) int {
	return int(s.NextByte()) % n
}

// NextUint16 reads 2 bytes as a little-endian uint16.
func (s *ByteStream) NextUint16() uint16 {
	return uint16(s.NextByte()) | uint16(s.NextByte())<<8
}
