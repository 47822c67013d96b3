package rite

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// ---------------------------------------------------------------------------
// Test Helpers: building RITE containers
// ---------------------------------------------------------------------------

// mrbBuilder constructs test containers. The loader is not an encoder,
// so tests assemble the wire format by hand.
type mrbBuilder struct {
	buf bytes.Buffer
}

func newMrbBuilder() *mrbBuilder {
	return &mrbBuilder{}
}

func (b *mrbBuilder) u8(v byte) {
	b.buf.WriteByte(v)
}

// u16 writes a big-endian uint16.
func (b *mrbBuilder) u16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
}

// u32 writes a big-endian uint32.
func (b *mrbBuilder) u32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.buf.Write(tmp[:])
}

func (b *mrbBuilder) raw(data []byte) {
	b.buf.Write(data)
}

func (b *mrbBuilder) str(s string) {
	b.buf.WriteString(s)
}

// header writes the standard 20-byte container header. The declared
// total size is left zero; the loader only rejects sizes larger than
// the input.
func (b *mrbBuilder) header() {
	b.str("RITE0200")
	b.u32(0) // total size
	b.str("MATZ")
	b.str("0000")
}

// irepSection wraps body in an IREP section with a correct declared size.
func (b *mrbBuilder) irepSection(body []byte) {
	b.str("IREP")
	b.u32(uint32(12 + len(body))) // tag + size + revision + body
	b.str("0300")
	b.raw(body)
}

func (b *mrbBuilder) end() {
	b.str("END\x00")
}

func (b *mrbBuilder) bytes() []byte {
	return b.buf.Bytes()
}

// leafRecord returns a minimal record with no children, pool entries,
// instructions, or symbols.
func leafRecord(nlocals, nregs uint16) []byte {
	b := newMrbBuilder()
	b.u32(0) // record size (framing only)
	b.u16(nlocals)
	b.u16(nregs)
	b.u16(0) // rlen
	b.u16(0) // clen
	b.u16(0) // ilen
	b.u16(0) // plen
	b.u16(0) // slen
	return b.bytes()
}

// minimalContainer is the smallest well-formed container: one leaf
// record and the end marker.
func minimalContainer() []byte {
	b := newMrbBuilder()
	b.header()
	b.irepSection(leafRecord(1, 2))
	b.end()
	return b.bytes()
}

// ---------------------------------------------------------------------------
// Header Tests
// ---------------------------------------------------------------------------

func TestLoadMinimalContainer(t *testing.T) {
	root, err := Load(minimalContainer())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if root.NLocals != 1 {
		t.Errorf("NLocals = %d, want 1", root.NLocals)
	}
	if root.NRegs != 2 {
		t.Errorf("NRegs = %d, want 2", root.NRegs)
	}
	if root.ChildCount() != 0 {
		t.Errorf("ChildCount = %d, want 0", root.ChildCount())
	}
	if len(root.Pool) != 0 {
		t.Errorf("Pool length = %d, want 0", len(root.Pool))
	}
	if len(root.ISeq) != 0 {
		t.Errorf("ISeq length = %d, want 0", len(root.ISeq))
	}
	// The symbol region always spans at least its own count field.
	if len(root.Syms) != 2 {
		t.Errorf("Syms length = %d, want 2", len(root.Syms))
	}
}

func TestLoadBadMagic(t *testing.T) {
	blob := minimalContainer()
	copy(blob, "RITE99")

	_, err := Load(blob)
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("err = %v, want ErrMalformedHeader", err)
	}
}

func TestLoadBadOriginator(t *testing.T) {
	blob := minimalContainer()
	copy(blob[12:], "ZTAM")

	_, err := Load(blob)
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("err = %v, want ErrMalformedHeader", err)
	}
}

func TestLoadBadOriginatorVersion(t *testing.T) {
	blob := minimalContainer()
	copy(blob[16:], "9999")

	_, err := Load(blob)
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("err = %v, want ErrMalformedHeader", err)
	}
}

func TestLoadShortHeader(t *testing.T) {
	_, err := Load([]byte("RITE02"))
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("err = %v, want ErrMalformedHeader", err)
	}
}

func TestLoadDeclaredSizeBeyondInput(t *testing.T) {
	blob := minimalContainer()
	binary.BigEndian.PutUint32(blob[8:12], uint32(len(blob)+1))

	_, err := Load(blob)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

// ---------------------------------------------------------------------------
// Section Dispatch Tests
// ---------------------------------------------------------------------------

func TestLoadUnsupportedRevision(t *testing.T) {
	b := newMrbBuilder()
	b.header()
	b.str("IREP")
	b.u32(12)
	b.str("0200") // old revision
	b.end()

	_, err := Load(b.bytes())
	if !errors.Is(err, ErrUnsupportedRevision) {
		t.Fatalf("err = %v, want ErrUnsupportedRevision", err)
	}
}

func TestLoadUnknownSection(t *testing.T) {
	b := newMrbBuilder()
	b.header()
	b.str("XXXX")
	b.u32(8)
	b.end()

	_, err := Load(b.bytes())
	if !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("err = %v, want ErrUnknownSection", err)
	}
}

func TestLoadMissingIrepSection(t *testing.T) {
	b := newMrbBuilder()
	b.header()
	b.end()

	_, err := Load(b.bytes())
	if !errors.Is(err, ErrMalformedSection) {
		t.Fatalf("err = %v, want ErrMalformedSection", err)
	}
}

func TestLoadLvarSectionSkipped(t *testing.T) {
	b := newMrbBuilder()
	b.header()
	b.irepSection(leafRecord(1, 2))
	b.str("LVAR")
	b.u32(16) // tag + size + 8 bytes of payload
	b.raw([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0xDE, 0xAD, 0xBE, 0xEF})
	b.end()

	root, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if root.NLocals != 1 {
		t.Errorf("NLocals = %d, want 1", root.NLocals)
	}
}

func TestLoadSectionResync(t *testing.T) {
	// Declared IREP size is authoritative: trailing bytes inside the
	// section that the record tree did not consume are skipped.
	record := leafRecord(1, 2)
	padding := []byte{0xAA, 0xBB, 0xCC, 0xDD}

	b := newMrbBuilder()
	b.header()
	b.str("IREP")
	b.u32(uint32(12 + len(record) + len(padding)))
	b.str("0300")
	b.raw(record)
	b.raw(padding)
	b.end()

	root, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if root.NRegs != 2 {
		t.Errorf("NRegs = %d, want 2", root.NRegs)
	}
}

func TestLoadSectionSizeUnderruns(t *testing.T) {
	record := leafRecord(1, 2)

	b := newMrbBuilder()
	b.header()
	b.str("IREP")
	b.u32(12) // declared size excludes the record that follows
	b.str("0300")
	b.raw(record)
	b.end()

	_, err := Load(b.bytes())
	if !errors.Is(err, ErrMalformedSection) {
		t.Fatalf("err = %v, want ErrMalformedSection", err)
	}
}

// ---------------------------------------------------------------------------
// Record Tree Tests
// ---------------------------------------------------------------------------

func TestLoadChildOrder(t *testing.T) {
	b := newMrbBuilder()
	b.u32(0)
	b.u16(0)  // nlocals
	b.u16(4)  // nregs
	b.u16(2)  // rlen
	b.u16(0)  // clen
	b.u16(0)  // ilen
	b.u16(0)  // plen
	b.u16(0)  // slen
	b.raw(leafRecord(10, 1))
	b.raw(leafRecord(20, 1))

	c := newMrbBuilder()
	c.header()
	c.irepSection(b.bytes())
	c.end()

	root, err := Load(c.bytes())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if root.ChildCount() != 2 {
		t.Fatalf("ChildCount = %d, want 2", root.ChildCount())
	}
	if root.Children[0].NLocals != 10 {
		t.Errorf("Children[0].NLocals = %d, want 10", root.Children[0].NLocals)
	}
	if root.Children[1].NLocals != 20 {
		t.Errorf("Children[1].NLocals = %d, want 20", root.Children[1].NLocals)
	}
}

// nestedRecord builds a chain of records, each with a single child,
// depth levels deep.
func nestedRecord(depth int) []byte {
	if depth <= 1 {
		return leafRecord(uint16(depth), 1)
	}
	b := newMrbBuilder()
	b.u32(0)
	b.u16(uint16(depth))
	b.u16(1)
	b.u16(1) // one child
	b.u16(0)
	b.u16(0)
	b.u16(0)
	b.u16(0)
	b.raw(nestedRecord(depth - 1))
	return b.bytes()
}

func TestLoadNestedTree(t *testing.T) {
	b := newMrbBuilder()
	b.header()
	b.irepSection(nestedRecord(3))
	b.end()

	root, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	flat := root.Flatten()
	if len(flat) != 3 {
		t.Fatalf("Flatten length = %d, want 3", len(flat))
	}
	for i, want := range []uint16{3, 2, 1} {
		if flat[i].NLocals != want {
			t.Errorf("flat[%d].NLocals = %d, want %d", i, flat[i].NLocals, want)
		}
	}
}

func TestLoadTooDeep(t *testing.T) {
	b := newMrbBuilder()
	b.header()
	b.irepSection(nestedRecord(6))
	b.end()

	cfg := DefaultConfig()
	cfg.MaxDepth = 4

	_, err := LoadWithConfig(b.bytes(), cfg)
	if !errors.Is(err, ErrTooDeep) {
		t.Fatalf("err = %v, want ErrTooDeep", err)
	}
}

func TestLoadChildCountExceedsInput(t *testing.T) {
	b := newMrbBuilder()
	b.u32(0)
	b.u16(0)
	b.u16(1)
	b.u16(60000) // declared children that cannot fit
	b.u16(0)
	b.u16(0)
	b.u16(0)
	b.u16(0)

	c := newMrbBuilder()
	c.header()
	c.irepSection(b.bytes())
	c.end()

	_, err := Load(c.bytes())
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestLoadInstructionAndCatchSpans(t *testing.T) {
	iseq := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	catch := bytes.Repeat([]byte{0xEE}, CatchHandlerSize)

	b := newMrbBuilder()
	b.u32(0)
	b.u16(0)
	b.u16(3)
	b.u16(0)
	b.u16(1) // clen
	b.u16(uint16(len(iseq)))
	b.raw(iseq)
	b.raw(catch)
	b.u16(0) // plen
	b.u16(0) // slen

	c := newMrbBuilder()
	c.header()
	c.irepSection(b.bytes())
	c.end()

	root, err := Load(c.bytes())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !bytes.Equal(root.ISeq, iseq) {
		t.Errorf("ISeq = %x, want %x", root.ISeq, iseq)
	}
	if root.CatchCount() != 1 {
		t.Errorf("CatchCount = %d, want 1", root.CatchCount())
	}
	if !bytes.Equal(root.Catch, catch) {
		t.Errorf("Catch = %x, want %x", root.Catch, catch)
	}
}

func TestLoadSymbolRegionSpan(t *testing.T) {
	b := newMrbBuilder()
	b.u32(0)
	b.u16(0)
	b.u16(1)
	b.u16(0)
	b.u16(0)
	b.u16(0)
	b.u16(0) // plen
	b.u16(2) // slen: two symbols
	b.u16(3)
	b.str("abc")
	b.u8(0)
	b.u16(4)
	b.str("puts")
	b.u8(0)

	c := newMrbBuilder()
	c.header()
	c.irepSection(b.bytes())
	c.end()

	root, err := Load(c.bytes())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// count + (len + name + NUL) per symbol
	want := 2 + (2 + 3 + 1) + (2 + 4 + 1)
	if len(root.Syms) != want {
		t.Errorf("Syms length = %d, want %d", len(root.Syms), want)
	}
	if !bytes.Contains(root.Syms, []byte("puts")) {
		t.Errorf("Syms %x does not contain symbol name", root.Syms)
	}
}

// ---------------------------------------------------------------------------
// Load Properties
// ---------------------------------------------------------------------------

func TestLoadIdempotent(t *testing.T) {
	blob := poolContainer()

	first, err := Load(blob)
	if err != nil {
		t.Fatalf("first Load failed: %v", err)
	}
	second, err := Load(blob)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two loads of the same buffer are not deep-equal")
	}
}

func TestLoadTruncatedPrefixes(t *testing.T) {
	blob := poolContainer()
	for n := 0; n < len(blob); n++ {
		if _, err := Load(blob[:n]); err == nil {
			t.Errorf("Load succeeded on %d-byte prefix of %d-byte container", n, len(blob))
		}
	}
}

func TestLoadReporter(t *testing.T) {
	calls := 0
	cfg := DefaultConfig()
	cfg.Reporter = func(offset int, err error) {
		calls++
		if err == nil {
			t.Error("reporter invoked with nil error")
		}
	}

	if _, err := LoadWithConfig([]byte("garbage"), cfg); err == nil {
		t.Fatal("expected error for garbage input")
	}
	if calls != 1 {
		t.Errorf("reporter calls = %d, want 1", calls)
	}

	if _, err := LoadWithConfig(minimalContainer(), cfg); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("reporter calls after successful load = %d, want 1", calls)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mrb")
	if err := os.WriteFile(path, minimalContainer(), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	root, blob, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if root == nil || len(blob) == 0 {
		t.Fatal("LoadFile returned empty result")
	}

	if _, _, err := LoadFile(filepath.Join(t.TempDir(), "missing.mrb")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
