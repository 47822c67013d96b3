package rite

import "errors"

// ---------------------------------------------------------------------------
// Decode Error Types
// ---------------------------------------------------------------------------

// Every load failure is one of these sentinels, usually wrapped with
// positional context. Match with errors.Is. A failed load never returns
// a partial tree.
var (
	ErrMalformedHeader     = errors.New("malformed RITE header")
	ErrUnsupportedRevision = errors.New("unsupported IREP format revision")
	ErrUnknownSection      = errors.New("unknown section tag")
	ErrMalformedSection    = errors.New("malformed section framing")
	ErrMalformedConstant   = errors.New("malformed pool constant")
	ErrOutOfMemory         = errors.New("allocation budget exceeded")
	ErrTruncated           = errors.New("unexpected end of bytecode")
	ErrTooDeep             = errors.New("irep nesting too deep")
	ErrInt64Unsupported    = errors.New("int64 pool constant not supported by target")
)
