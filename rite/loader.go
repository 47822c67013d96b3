// Package rite loads RITE bytecode containers into an in-memory tree of
// Irep records for a bytecode execution engine to run.
//
// The container is untrusted input: every length and count field is
// checked against the actual buffer before it is used, nesting depth is
// bounded, and an optional allocation budget models the fixed memory
// pool of an embedded target. A load either returns a fully decoded,
// internally consistent tree or a single discriminated error; there is
// no partial result.
package rite

import (
	"fmt"
	"os"
)

// ---------------------------------------------------------------------------
// Container framing constants
// ---------------------------------------------------------------------------

const (
	headerSize = 20

	// Fixed header tags. The minor version at bytes [6,8) and the
	// declared total size at [8,12) are recorded but not matched.
	headerMagic      = "RITE02"
	headerOriginator = "MATZ"
	headerOrigVer    = "0000"

	sectionIrep = "IREP"
	sectionLvar = "LVAR"
	sectionEnd  = "END\x00"

	irepRevision = "0300"

	// A record can declare no less than this many bytes: u32 record
	// size, five u16 counts, u16 pool count, u16 symbol count.
	minRecordSize = 18
)

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

type loader struct {
	cur cursor
	cfg Config

	// Bytes of decoder-owned allocations so far, charged against
	// cfg.MaxAlloc when that is nonzero.
	allocated int
}

// Load decodes a RITE container with the default configuration. The
// returned tree holds views into blob; blob must outlive it and must
// not be mutated.
func Load(blob []byte) (*Irep, error) {
	return LoadWithConfig(blob, DefaultConfig())
}

// LoadWithConfig decodes a RITE container under the given configuration.
func LoadWithConfig(blob []byte, cfg Config) (*Irep, error) {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	ld := &loader{cur: cursor{data: blob}, cfg: cfg}
	root, err := ld.load()
	if err != nil {
		if cfg.Reporter != nil {
			cfg.Reporter(ld.cur.off, err)
		}
		return nil, err
	}
	return root, nil
}

// LoadFile reads path and decodes it with the default configuration.
// The returned buffer backs the tree's instruction and symbol views and
// must be kept reachable for the tree's lifetime.
func LoadFile(path string) (*Irep, []byte, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	root, err := Load(blob)
	if err != nil {
		return nil, nil, err
	}
	return root, blob, nil
}

// load drives the whole decode: header, then section dispatch until the
// end marker.
func (ld *loader) load() (*Irep, error) {
	if err := ld.loadHeader(); err != nil {
		return nil, err
	}

	var root *Irep
	for {
		tag, err := ld.cur.view(4)
		if err != nil {
			return nil, err
		}
		switch string(tag) {
		case sectionIrep:
			root, err = ld.loadIrepSection()
			if err != nil {
				return nil, err
			}
		case sectionLvar:
			if err := ld.skipSection(); err != nil {
				return nil, err
			}
		case sectionEnd:
			if root == nil {
				return nil, fmt.Errorf("%w: container has no IREP section", ErrMalformedSection)
			}
			return root, nil
		default:
			// The reference loader spins forever on an unknown tag.
			return nil, fmt.Errorf("%w: %q at offset %d", ErrUnknownSection, tag, ld.cur.off)
		}
	}
}

// loadHeader validates the fixed 20-byte container header.
//
//	"RITE"    identifier
//	"02"      major version
//	"00"      minor version (not matched)
//	00000000  total size
//	"MATZ"    originator
//	"0000"    originator version
func (ld *loader) loadHeader() error {
	h, err := ld.cur.bytes(headerSize)
	if err != nil {
		return fmt.Errorf("%w: input shorter than %d-byte header", ErrMalformedHeader, headerSize)
	}
	if string(h[0:6]) != headerMagic {
		return fmt.Errorf("%w: magic %q, want %q", ErrMalformedHeader, h[0:6], headerMagic)
	}
	if string(h[12:16]) != headerOriginator {
		return fmt.Errorf("%w: originator %q, want %q", ErrMalformedHeader, h[12:16], headerOriginator)
	}
	if string(h[16:20]) != headerOrigVer {
		return fmt.Errorf("%w: originator version %q, want %q", ErrMalformedHeader, h[16:20], headerOrigVer)
	}

	// The declared total size is not used to frame the sections, but a
	// size larger than the input guarantees a truncated container.
	if size := int(ReadUint32(h[8:12])); size > len(ld.cur.data) {
		return fmt.Errorf("%w: header declares %d bytes, input has %d",
			ErrTruncated, size, len(ld.cur.data))
	}
	return nil
}

// loadIrepSection decodes the code-tree section:
//
//	"IREP"    section identifier
//	00000000  section size (includes the identifier)
//	"0300"    format revision
//	...       record tree
//
// The next section starts at sectionStart + declared size regardless of
// how many bytes the record tree actually consumed; the declared size
// is the authoritative resynchronization point.
func (ld *loader) loadIrepSection() (*Irep, error) {
	start := ld.cur.off
	if err := ld.cur.skip(4); err != nil {
		return nil, err
	}
	size, err := ld.cur.u32()
	if err != nil {
		return nil, err
	}
	rev, err := ld.cur.bytes(4)
	if err != nil {
		return nil, err
	}
	if string(rev) != irepRevision {
		return nil, fmt.Errorf("%w: %q, want %q", ErrUnsupportedRevision, rev, irepRevision)
	}

	root, err := ld.loadRecord(0)
	if err != nil {
		return nil, err
	}

	next := start + int(size)
	if next < ld.cur.off {
		return nil, fmt.Errorf("%w: IREP section size %d shorter than decoded content",
			ErrMalformedSection, size)
	}
	if err := ld.cur.seek(next); err != nil {
		return nil, err
	}
	return root, nil
}

// skipSection advances past a section by its self-declared size without
// interpreting the contents. Used for LVAR, whose local-variable-name
// data is not part of the execution engine contract.
func (ld *loader) skipSection() error {
	start := ld.cur.off
	pre, err := ld.cur.view(8)
	if err != nil {
		return err
	}
	size := int(ReadUint32(pre[4:8]))
	if size < 8 {
		return fmt.Errorf("%w: %q section declares size %d", ErrMalformedSection, pre[0:4], size)
	}
	return ld.cur.seek(start + size)
}

// reserve charges n bytes against the allocation budget.
func (ld *loader) reserve(n int) error {
	if ld.cfg.MaxAlloc <= 0 {
		return nil
	}
	ld.allocated += n
	if ld.allocated > ld.cfg.MaxAlloc {
		return fmt.Errorf("%w: %d bytes requested, budget %d",
			ErrOutOfMemory, ld.allocated, ld.cfg.MaxAlloc)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Record decoding
// ---------------------------------------------------------------------------

// irepPointerSize approximates the per-child bookkeeping cost charged
// against the allocation budget, matching the child-pointer array the
// reference loader allocates.
const irepPointerSize = 8

// loadRecord decodes one record and, recursively, its children:
//
//	00000000  record size (framing only, not used to bound the decode)
//	0000      n of local variables
//	0000      n of registers
//	0000      n of child ireps
//	0000      n of catch handlers
//	0000      n of instruction bytes
//	...       instruction bytes, then catch-handler table
//	0000      n of pool entries, then entries
//	0000      n of symbols, then length-prefixed symbol names
//	...       child records, in order
//
// Children are decoded depth-first: each child consumes its entire
// subtree before its next sibling begins.
func (ld *loader) loadRecord(depth int) (*Irep, error) {
	if depth >= ld.cfg.MaxDepth {
		return nil, fmt.Errorf("%w: depth %d", ErrTooDeep, depth)
	}
	if err := ld.cur.skip(4); err != nil { // self-declared record size
		return nil, err
	}

	counts, err := ld.cur.bytes(10)
	if err != nil {
		return nil, err
	}
	ir := &Irep{
		NLocals: ReadUint16(counts[0:2]),
		NRegs:   ReadUint16(counts[2:4]),
	}
	rlen := int(ReadUint16(counts[4:6]))
	clen := int(ReadUint16(counts[6:8]))
	ilen := int(ReadUint16(counts[8:10]))

	if rlen > 0 {
		// Even an empty child record occupies minRecordSize bytes, so
		// a child count the remaining input cannot possibly hold is
		// rejected before the child slice is allocated.
		if ld.cur.remaining() < rlen*minRecordSize {
			return nil, fmt.Errorf("%w: %d child records declared with %d bytes remaining",
				ErrTruncated, rlen, ld.cur.remaining())
		}
		if err := ld.reserve(rlen * irepPointerSize); err != nil {
			return nil, err
		}
		ir.Children = make([]*Irep, rlen)
	}

	if ir.ISeq, err = ld.cur.bytes(ilen); err != nil {
		return nil, err
	}
	if ir.Catch, err = ld.cur.bytes(clen * CatchHandlerSize); err != nil {
		return nil, err
	}

	if ir.Pool, err = ld.loadPool(); err != nil {
		return nil, err
	}
	if ir.Syms, err = ld.skipSyms(); err != nil {
		return nil, err
	}

	for i := range ir.Children {
		child, err := ld.loadRecord(depth + 1)
		if err != nil {
			return nil, err
		}
		ir.Children[i] = child
	}
	return ir, nil
}

// skipSyms walks the symbol table region and returns its span. Only the
// boundaries are retained; names are resolved later by the execution
// engine.
func (ld *loader) skipSyms() ([]byte, error) {
	start := ld.cur.off
	n, err := ld.cur.u16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(n); i++ {
		l, err := ld.cur.u16()
		if err != nil {
			return nil, err
		}
		if err := ld.cur.skip(int(l) + 1); err != nil { // name + NUL
			return nil, err
		}
	}
	return ld.cur.data[start:ld.cur.off], nil
}
