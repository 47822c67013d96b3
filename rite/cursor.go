package rite

import "fmt"

// ---------------------------------------------------------------------------
// Byte Cursor: bounds-checked read position over the container blob
// ---------------------------------------------------------------------------

// cursor is a read-only view over the input blob plus the current offset.
// Every read is checked against the blob length first; the reference
// loader trusts its length fields, this one fails with ErrTruncated
// instead of reading out of bounds. Reads return views into the blob,
// never copies.
type cursor struct {
	data []byte
	off  int
}

// remaining returns the number of unread bytes.
func (c *cursor) remaining() int {
	return len(c.data) - c.off
}

// need fails with ErrTruncated if fewer than n bytes remain.
func (c *cursor) need(n int) error {
	if n < 0 || c.remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrTruncated, n, c.off, c.remaining())
	}
	return nil
}

// view returns the next n bytes without consuming them.
func (c *cursor) view(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	return c.data[c.off : c.off+n], nil
}

// bytes consumes and returns the next n bytes as a view into the blob.
func (c *cursor) bytes(n int) ([]byte, error) {
	b, err := c.view(n)
	if err != nil {
		return nil, err
	}
	c.off += n
	return b, nil
}

// skip advances past n bytes without interpreting them.
func (c *cursor) skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.off += n
	return nil
}

// seek moves the cursor to an absolute offset. Used for section
// resynchronization, where the next read position comes from a
// section's self-declared size rather than from consumed content.
func (c *cursor) seek(off int) error {
	if off < 0 || off > len(c.data) {
		return fmt.Errorf("%w: seek to offset %d in %d-byte input",
			ErrTruncated, off, len(c.data))
	}
	c.off = off
	return nil
}

// u8 consumes one byte.
func (c *cursor) u8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.data[c.off]
	c.off++
	return v, nil
}

// u16 consumes a big-endian uint16.
func (c *cursor) u16() (uint16, error) {
	b, err := c.bytes(2)
	if err != nil {
		return 0, err
	}
	return ReadUint16(b), nil
}

// u32 consumes a big-endian uint32.
func (c *cursor) u32() (uint32, error) {
	b, err := c.bytes(4)
	if err != nil {
		return 0, err
	}
	return ReadUint32(b), nil
}
