package rite

// ---------------------------------------------------------------------------
// Decode Configuration
// ---------------------------------------------------------------------------

// DefaultMaxDepth bounds irep nesting. Child counts come straight from
// the input, so recursion depth is attacker-controlled without a limit.
const DefaultMaxDepth = 64

// Reporter receives a best-effort notification when a load fails. The
// offset is the cursor position at the point of failure. Reporting is
// observability only: the loader returns the same error whether or not
// a Reporter is installed.
type Reporter func(offset int, err error)

// Config controls a single load. The Text/Float/Int64 switches mirror
// the build-time capabilities of the embedded target the bytecode is
// destined for: a pool constant the target cannot represent fails the
// load instead of being silently degraded.
type Config struct {
	// Text enables string pool constants. When false, string and
	// static-string tags are outside the target's constant set and
	// fail with ErrMalformedConstant.
	Text bool

	// Float enables float pool constants, with the same policy.
	Float bool

	// Int64 enables 64-bit integer pool constants. When false the
	// decoder still consumes the entry's bytes, then fails with
	// ErrInt64Unsupported.
	Int64 bool

	// MaxDepth bounds irep nesting. Zero means DefaultMaxDepth.
	MaxDepth int

	// MaxAlloc caps the total bytes the decoder allocates for child
	// slices, pool slices, and owned strings. Zero means unlimited.
	// On a constrained target this plays the role of the fixed
	// allocation pool; exceeding it fails with ErrOutOfMemory.
	MaxAlloc int

	// Reporter, if set, is invoked once when a load fails.
	Reporter Reporter
}

// DefaultConfig returns the permissive configuration: all constant
// types enabled, default depth bound, no allocation budget.
func DefaultConfig() Config {
	return Config{
		Text:     true,
		Float:    true,
		Int64:    true,
		MaxDepth: DefaultMaxDepth,
	}
}
