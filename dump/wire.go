package dump

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/riteload/rite"
)

// CBOR encoding uses canonical mode for deterministic output: the same
// tree always marshals to the same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dump: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Record is the interchange projection of a decoded irep. Unlike
// rite.Irep it owns all of its byte fields, so it stays valid after the
// original container buffer is gone.
type Record struct {
	NLocals  uint16     `cbor:"nlocals"`
	NRegs    uint16     `cbor:"nregs"`
	ISeq     []byte     `cbor:"iseq,omitempty"`
	Catch    []byte     `cbor:"catch,omitempty"`
	Pool     []Constant `cbor:"pool,omitempty"`
	Syms     []byte     `cbor:"syms,omitempty"`
	Children []*Record  `cbor:"reps,omitempty"`
}

// Constant is the interchange form of one pool entry.
type Constant struct {
	Type  uint8   `cbor:"type"`
	Text  string  `cbor:"text,omitempty"`
	Int   int64   `cbor:"int,omitempty"`
	Float float64 `cbor:"float,omitempty"`
}

// FromIrep copies a decoded tree into its interchange projection.
func FromIrep(ir *rite.Irep) *Record {
	r := &Record{
		NLocals: ir.NLocals,
		NRegs:   ir.NRegs,
		ISeq:    append([]byte(nil), ir.ISeq...),
		Catch:   append([]byte(nil), ir.Catch...),
		Syms:    append([]byte(nil), ir.Syms...),
	}
	for _, v := range ir.Pool {
		c := Constant{Type: uint8(v.Type)}
		switch v.Type {
		case rite.PoolTypeStr, rite.PoolTypeSStr:
			c.Text = v.Text()
		case rite.PoolTypeInt32, rite.PoolTypeInt64:
			c.Int = v.Int()
		case rite.PoolTypeFloat:
			c.Float = v.Float()
		}
		r.Pool = append(r.Pool, c)
	}
	for _, child := range ir.Children {
		r.Children = append(r.Children, FromIrep(child))
	}
	return r
}

// MarshalTree serializes a decoded tree to canonical CBOR.
func MarshalTree(ir *rite.Irep) ([]byte, error) {
	return cborEncMode.Marshal(FromIrep(ir))
}

// UnmarshalTree deserializes a Record tree from CBOR bytes.
func UnmarshalTree(data []byte) (*Record, error) {
	var r Record
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("dump: unmarshal tree: %w", err)
	}
	return &r, nil
}
