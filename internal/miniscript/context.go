// Package miniscript compiles spending policies into miniscript, decodes
// miniscript from scripts, lifts scripts back to semantic policies and
// builds satisfactions.
package miniscript

import (
	"fmt"
	"strings"
)

// Context is the script context a miniscript is evaluated in.
type Context uint8

const (
	SegwitV0 Context = iota
	P2SH
)

const (
	maxOpsPerScript    = 201
	maxStandardWitness = 100
	maxPubKeysPerMulti = 20
)

func (c Context) String() string {
	switch c {
	case SegwitV0:
		return "segwitv0"
	case P2SH:
		return "p2sh"
	default:
		return fmt.Sprintf("Context(%d)", uint8(c))
	}
}

// ParseContext accepts the names produced by String.
func ParseContext(s string) (Context, error) {
	switch strings.ToLower(s) {
	case "segwitv0", "wsh", "segwit":
		return SegwitV0, nil
	case "p2sh", "sh", "legacy":
		return P2SH, nil
	default:
		return 0, fmt.Errorf("unknown script context %q", s)
	}
}

// MaxScriptSize is the largest script the context can spend.
func (c Context) MaxScriptSize() int {
	if c == P2SH {
		return 520
	}
	return 3600
}

func (c Context) validKey(key []byte) bool {
	switch len(key) {
	case 33:
		return key[0] == 0x02 || key[0] == 0x03
	case 65:
		return c == P2SH && key[0] == 0x04
	default:
		return false
	}
}
