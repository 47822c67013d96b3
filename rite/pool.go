package rite

import "fmt"

// ---------------------------------------------------------------------------
// Constant Pool decoding
// ---------------------------------------------------------------------------

// poolValueSize approximates the in-memory cost of one decoded pool
// entry charged against the allocation budget.
const poolValueSize = 48

// Smallest possible pool entry on the wire: a tag byte plus an empty
// length-prefixed string and its terminator.
const minPoolEntrySize = 4

// loadPool decodes one record's constant pool: a u16 entry count, then
// per entry a one-byte type tag and the tag's payload.
func (ld *loader) loadPool() ([]PoolValue, error) {
	plen, err := ld.cur.u16()
	if err != nil {
		return nil, err
	}
	if plen == 0 {
		return nil, nil
	}
	if ld.cur.remaining() < int(plen)*minPoolEntrySize {
		return nil, fmt.Errorf("%w: %d pool entries declared with %d bytes remaining",
			ErrTruncated, plen, ld.cur.remaining())
	}
	if err := ld.reserve(int(plen) * poolValueSize); err != nil {
		return nil, err
	}

	pool := make([]PoolValue, plen)
	for i := range pool {
		tagOff := ld.cur.off
		tag, err := ld.cur.u8()
		if err != nil {
			return nil, err
		}
		v, err := ld.loadPoolValue(PoolType(tag))
		if err != nil {
			return nil, fmt.Errorf("pool entry %d at offset %d: %w", i, tagOff, err)
		}
		pool[i] = v
	}
	return pool, nil
}

// loadPoolValue decodes the payload for one pool entry. The cursor is
// advanced by exactly the bytes the entry's encoding declares, even on
// the paths that then fail because the target cannot represent the
// value.
func (ld *loader) loadPoolValue(tag PoolType) (PoolValue, error) {
	switch tag {
	case PoolTypeStr, PoolTypeSStr:
		if !ld.cfg.Text {
			// Without text support the tag is outside the target's
			// constant set, same as an unknown tag.
			return PoolValue{}, fmt.Errorf("%w: string tag %d with text constants disabled",
				ErrMalformedConstant, tag)
		}
		l, err := ld.cur.u16()
		if err != nil {
			return PoolValue{}, err
		}
		data, err := ld.cur.bytes(int(l))
		if err != nil {
			return PoolValue{}, err
		}
		if err := ld.cur.skip(1); err != nil { // NUL terminator
			return PoolValue{}, err
		}
		if tag == PoolTypeSStr {
			// Static string: a view into the blob, no copy.
			return PoolValue{Type: PoolTypeSStr, buf: data}, nil
		}
		if err := ld.reserve(len(data)); err != nil {
			return PoolValue{}, err
		}
		return PoolValue{Type: PoolTypeStr, str: string(data)}, nil

	case PoolTypeInt32:
		v, err := ld.cur.u32()
		if err != nil {
			return PoolValue{}, err
		}
		return PoolValue{Type: PoolTypeInt32, i: int64(int32(v))}, nil

	case PoolTypeInt64:
		hi, err := ld.cur.u32()
		if err != nil {
			return PoolValue{}, err
		}
		lo, err := ld.cur.u32()
		if err != nil {
			return PoolValue{}, err
		}
		if !ld.cfg.Int64 {
			return PoolValue{}, ErrInt64Unsupported
		}
		return PoolValue{Type: PoolTypeInt64, i: int64(uint64(hi)<<32 | uint64(lo))}, nil

	case PoolTypeFloat:
		b, err := ld.cur.bytes(8)
		if err != nil {
			return PoolValue{}, err
		}
		if !ld.cfg.Float {
			return PoolValue{}, fmt.Errorf("%w: float tag with float constants disabled",
				ErrMalformedConstant)
		}
		return PoolValue{Type: PoolTypeFloat, f: ReadFloat64(b)}, nil
	}

	return PoolValue{}, fmt.Errorf("%w: unknown pool type tag 0x%02X", ErrMalformedConstant, uint8(tag))
}
