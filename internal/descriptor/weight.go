package descriptor

import "github.com/btcsuite/btcd/wire"

// Pushes of the largest signatures including their length prefix.
const (
	sigPush        = 1 + 73
	schnorrSigPush = 1 + 65
)

// scriptSigWeight is the weight of a scriptSig of n bytes, length prefix
// included.
func scriptSigWeight(n int) int {
	return 4 * (wire.VarIntSerializeSize(uint64(n)) + n)
}

// witnessWeight is the weight of a witness of items elements whose
// length-prefixed sizes add up to size.
func witnessWeight(items, size int) int {
	return wire.VarIntSerializeSize(uint64(items)) + size
}

// pushLen is the size of the minimal push of n bytes.
func pushLen(n int) int {
	switch {
	case n < 76:
		return 1 + n
	case n <= 0xff:
		return 2 + n
	case n <= 0xffff:
		return 3 + n
	default:
		return 5 + n
	}
}
