package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// DerivationPath is a sequence of BIP32 child indexes. Indexes at or above
// hdkeychain.HardenedKeyStart are hardened.
type DerivationPath []uint32

// ParseDerivationPath accepts absolute ("m/84'/0'/0'") and relative
// ("0/1") paths. Hardened steps are marked with ' or h.
func ParseDerivationPath(s string) (DerivationPath, error) {
	const op = "parse derivation path"
	s = strings.TrimSpace(s)
	if s == "" || s == "m" {
		return DerivationPath{}, nil
	}
	elems := strings.Split(s, "/")
	if strings.TrimSpace(elems[0]) == "m" {
		elems = elems[1:]
	}

	path := make(DerivationPath, 0, len(elems))
	for i, elem := range elems {
		elem = strings.TrimSpace(elem)
		var hardened bool
		if strings.HasSuffix(elem, "'") || strings.HasSuffix(elem, "h") || strings.HasSuffix(elem, "H") {
			hardened = true
			elem = elem[:len(elem)-1]
		}
		v, err := strconv.ParseUint(elem, 10, 32)
		if err != nil || v >= hdkeychain.HardenedKeyStart {
			return nil, model.Errorf(model.ErrInvalidDerivation, op, fmt.Sprintf("segment %d", i), "invalid index %q", elems[i])
		}
		idx := uint32(v)
		if hardened {
			idx += hdkeychain.HardenedKeyStart
		}
		path = append(path, idx)
	}
	return path, nil
}

// String prints the path with an m/ prefix and ' for hardened steps.
func (p DerivationPath) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range p {
		b.WriteString("/")
		b.WriteString(formatIndex(idx))
	}
	return b.String()
}

// Child returns a new path extended by idx.
func (p DerivationPath) Child(idx uint32) DerivationPath {
	out := make(DerivationPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, idx)
}

func formatIndex(idx uint32) string {
	if idx >= hdkeychain.HardenedKeyStart {
		return strconv.FormatUint(uint64(idx-hdkeychain.HardenedKeyStart), 10) + "'"
	}
	return strconv.FormatUint(uint64(idx), 10)
}
