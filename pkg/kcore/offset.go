package kcore

// Offset is the unsigned 64-bit position of a record within a
// partition's log, per spec.md §3/§4.1. Go's native uint64 is native on
// every platform this module targets, so there is no big-integer
// fallback carrier — see DESIGN.md Open Question (iv).
type Offset = uint64

// PackOffset encodes n as an 8-byte big-endian unsigned integer. The
// sentinel value -1 is admitted (packed as all-ones, i.e. 2^64-1) since
// the wire protocol uses it to mean "none"; any other negative value,
// or a value that does not fit in 64 bits, is MismatchArgument.
func PackOffset(n int64) ([8]byte, error) {
	var out [8]byte
	if n < -1 {
		return out, wrapErr(ErrMismatchArgument,
			"offset must be -1 or non-negative", nil)
	}
	u := uint64(n) // n == -1 wraps to 2^64-1, which is exactly the wire sentinel
	putUint64(out[:], u)
	return out, nil
}

// PackUint64 encodes n as an 8-byte big-endian unsigned integer.
func PackUint64(n uint64) [8]byte {
	var out [8]byte
	putUint64(out[:], n)
	return out
}

// UnpackOffset decodes exactly 8 octets into an unsigned 64-bit integer.
// Any input whose length is not exactly 8 is MismatchArgument.
func UnpackOffset(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, wrapErr(ErrMismatchArgument,
			"offset must be exactly 8 octets", nil)
	}
	var u uint64
	for _, c := range b {
		u = u<<8 | uint64(c)
	}
	return u, nil
}

// SumOffset performs 64-bit modular addition of a and b, matching
// two's-complement wraparound semantics (spec.md §8 scenario 2:
// SumOffset(2, -5) == -3).
func SumOffset(a, b int64) int64 {
	return int64(uint64(a) + uint64(b))
}

func putUint64(b []byte, v uint64) {
	_ = b[7]
	b[0] = byte(v >> 56)
	b[1] = byte(v >> 48)
	b[2] = byte(v >> 40)
	b[3] = byte(v >> 32)
	b[4] = byte(v >> 24)
	b[5] = byte(v >> 16)
	b[6] = byte(v >> 8)
	b[7] = byte(v)
}
