package descriptor

import (
	"strings"

	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

const (
	inputCharset = "0123456789()[],'/*abcdefgh@:$%{}" +
		"IJKLMNOPQRSTUVWXYZ&+-.;<=>?!^_|~" +
		"ijklmnopqrstuvwxyzABCDEFGH`#\"\\ "
	checksumCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	checksumLen     = 8
)

var generator = [5]uint64{0xf5dee51989, 0xa9fdca3312, 0x1bab10e32d, 0x3706b1677a, 0x644d626ffd}

func polymod(c uint64, v int) uint64 {
	top := c >> 35
	c = (c&0x7ffffffff)<<5 ^ uint64(v)
	for i, g := range generator {
		if (top>>i)&1 == 1 {
			c ^= g
		}
	}
	return c
}

// Checksum computes the eight character checksum of a descriptor without
// its "#" suffix.
func Checksum(desc string) (string, error) {
	c := uint64(1)
	var cls, clsCount int
	for i, r := range desc {
		pos := strings.IndexRune(inputCharset, r)
		if pos < 0 {
			return "", model.Errorf(model.ErrInvalidEncoding, "descriptor checksum", "descriptor", "invalid character %q at %d", r, i)
		}
		c = polymod(c, pos&31)
		cls = cls*3 + pos>>5
		clsCount++
		if clsCount == 3 {
			c = polymod(c, cls)
			cls, clsCount = 0, 0
		}
	}
	if clsCount > 0 {
		c = polymod(c, cls)
	}
	for range checksumLen {
		c = polymod(c, 0)
	}
	c ^= 1

	var b strings.Builder
	for i := range checksumLen {
		b.WriteByte(checksumCharset[(c>>(5*(7-i)))&31])
	}
	return b.String(), nil
}

// AddChecksum appends "#checksum" to desc.
func AddChecksum(desc string) (string, error) {
	sum, err := Checksum(desc)
	if err != nil {
		return "", err
	}
	return desc + "#" + sum, nil
}

// splitChecksum separates and verifies an optional checksum suffix.
func splitChecksum(s string) (string, error) {
	desc, sum, ok := strings.Cut(s, "#")
	if !ok {
		return s, nil
	}
	if len(sum) != checksumLen {
		return "", model.Errorf(model.ErrInvalidEncoding, "parse descriptor", "checksum", "checksum must have %d characters", checksumLen)
	}
	want, err := Checksum(desc)
	if err != nil {
		return "", err
	}
	if sum != want {
		return "", model.Errorf(model.ErrInvalidEncoding, "parse descriptor", "checksum", "checksum %s does not match %s", sum, want)
	}
	return desc, nil
}
