package rite

import (
	"encoding/binary"
	"math"
)

// ---------------------------------------------------------------------------
// Primitive Field Decoders: fixed-width big-endian scalars
// ---------------------------------------------------------------------------

// All multi-byte fields in a RITE container are big-endian. Callers must
// have bounds-checked buf already; the cursor in cursor.go does this.

// ReadUint16 reads a big-endian uint16.
func ReadUint16(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf)
}

// ReadUint32 reads a big-endian uint32.
func ReadUint32(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}

// ReadUint64 reads a big-endian uint64.
func ReadUint64(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}

// ReadFloat64 reads a big-endian IEEE 754 double.
func ReadFloat64(buf []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(buf))
}
