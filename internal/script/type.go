// Package script classifies output scripts and builds the standard templates.
package script

import "fmt"

// Type is the closed set of script classifications.
type Type uint8

const (
	NonStandard Type = iota
	P2PK
	P2PKH
	P2SH
	P2WPKH
	P2WSH
	P2TR
	MultiSig
	OpReturn
	WitnessUnknown
	Miniscript
)

var typeNames = [...]string{
	NonStandard:    "nonstandard",
	P2PK:           "p2pk",
	P2PKH:          "p2pkh",
	P2SH:           "p2sh",
	P2WPKH:         "p2wpkh",
	P2WSH:          "p2wsh",
	P2TR:           "p2tr",
	MultiSig:       "multisig",
	OpReturn:       "opreturn",
	WitnessUnknown: "witness_unknown",
	Miniscript:     "miniscript",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// MarshalText encodes the type by name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts the names produced by String.
func (t *Type) UnmarshalText(b []byte) error {
	for i, name := range typeNames {
		if name == string(b) {
			*t = Type(i)
			return nil
		}
	}
	return fmt.Errorf("unknown script type %q", b)
}

// IsWitness reports whether spending the type uses the witness.
func (t Type) IsWitness() bool {
	switch t {
	case P2WPKH, P2WSH, P2TR, WitnessUnknown:
		return true
	default:
		return false
	}
}
