package rite

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Irep: one decoded bytecode record
// ---------------------------------------------------------------------------

// CatchHandlerSize is the wire width of one catch-handler table entry.
// The loader skips the table without decoding individual entries; the
// execution engine interprets them.
const CatchHandlerSize = 13

// Irep is one unit of compiled bytecode plus its metadata, constant
// pool, symbol region, and child records. A load produces a tree of
// Ireps owned by the caller. Ireps are created once during the load and
// never mutated afterward.
//
// ISeq, Catch, and Syms are views into the input blob, not copies; the
// blob must outlive the tree.
type Irep struct {
	NLocals uint16 // local variable count
	NRegs   uint16 // register count

	ISeq  []byte // instruction bytes
	Catch []byte // raw catch-handler table (CatchHandlerSize per entry)

	Pool []PoolValue

	// Syms spans the record's symbol table region. The loader retains
	// only the span; the execution engine resolves individual names.
	Syms []byte

	// Children holds child records in input order. The execution
	// engine indexes into this positionally.
	Children []*Irep
}

// ChildCount returns the number of child records.
func (ir *Irep) ChildCount() int {
	return len(ir.Children)
}

// CatchCount returns the number of catch-handler table entries.
func (ir *Irep) CatchCount() int {
	return len(ir.Catch) / CatchHandlerSize
}

// Flatten returns this record and all descendants, pre-order.
func (ir *Irep) Flatten() []*Irep {
	out := []*Irep{ir}
	for _, child := range ir.Children {
		out = append(out, child.Flatten()...)
	}
	return out
}

// ---------------------------------------------------------------------------
// PoolValue: one typed constant pool entry
// ---------------------------------------------------------------------------

// PoolType is the wire discriminant of a constant pool entry. The set
// is closed: any other tag byte fails the load with ErrMalformedConstant.
type PoolType uint8

const (
	PoolTypeStr   PoolType = 0 // string, copied out of the blob
	PoolTypeInt32 PoolType = 1 // 32-bit signed integer
	PoolTypeSStr  PoolType = 2 // string, retained as a view into the blob
	PoolTypeInt64 PoolType = 3 // 64-bit signed integer
	PoolTypeFloat PoolType = 5 // IEEE 754 double
)

// PoolValue is a decoded constant. The payload field in use depends on
// Type; the accessors below return the zero value for a mismatched type.
type PoolValue struct {
	Type PoolType

	str string  // PoolTypeStr
	buf []byte  // PoolTypeSStr view into the blob
	i   int64   // PoolTypeInt32, PoolTypeInt64
	f   float64 // PoolTypeFloat
}

// Text returns the string payload for string-typed entries.
func (v PoolValue) Text() string {
	switch v.Type {
	case PoolTypeStr:
		return v.str
	case PoolTypeSStr:
		return string(v.buf)
	}
	return ""
}

// Int returns the integer payload for integer-typed entries.
func (v PoolValue) Int() int64 {
	return v.i
}

// Float returns the float payload for float-typed entries.
func (v PoolValue) Float() float64 {
	return v.f
}

// String renders the value for listings and error messages.
func (v PoolValue) String() string {
	switch v.Type {
	case PoolTypeStr, PoolTypeSStr:
		return strconv.Quote(v.Text())
	case PoolTypeInt32, PoolTypeInt64:
		return strconv.FormatInt(v.i, 10)
	case PoolTypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}
	return fmt.Sprintf("pool<%d>", uint8(v.Type))
}
