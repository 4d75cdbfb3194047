package script

import (
	"bytes"
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/goodnatureofminers/btctoolkit/internal/miniscript"
)

// BareContext is the miniscript context of a script used directly as an
// output. Such outputs are spent through the scriptSig, like P2SH.
const BareContext = miniscript.P2SH

// Script is an immutable script together with its classification. The
// template details are decoded once by New.
type Script struct {
	raw       []byte
	typ       Type
	payload   []byte
	threshold int
	keys      [][]byte
	version   int
}

// New classifies b. The bytes are copied.
func New(b []byte) Script {
	s := Script{raw: append([]byte{}, b...), version: -1}
	s.classify()
	return s
}

// Classify returns the type of b. It never fails.
func Classify(b []byte) Type {
	return New(b).typ
}

// classify matches the standard templates through txscript and falls back
// to witness programs of unknown versions, data carriers beyond the relay
// limit and miniscript.
func (s *Script) classify() {
	b := s.raw
	switch txscript.GetScriptClass(b) {
	case txscript.PubKeyHashTy:
		s.typ, s.payload = P2PKH, b[3:23]
		return
	case txscript.ScriptHashTy:
		s.typ, s.payload = P2SH, b[2:22]
		return
	case txscript.WitnessV0PubKeyHashTy:
		s.typ, s.payload, s.version = P2WPKH, b[2:], 0
		return
	case txscript.WitnessV0ScriptHashTy:
		s.typ, s.payload, s.version = P2WSH, b[2:], 0
		return
	case txscript.WitnessV1TaprootTy:
		s.typ, s.payload, s.version = P2TR, b[2:], 1
		return
	case txscript.PubKeyTy:
		s.typ, s.payload = P2PK, b[1:len(b)-1]
		return
	case txscript.NullDataTy:
		s.typ = OpReturn
		return
	}

	switch {
	case isWitnessProgram(b) && b[0] != txscript.OP_0:
		s.typ, s.payload, s.version = WitnessUnknown, b[2:], int(b[0]-txscript.OP_1+1)
	case len(b) > 0 && b[0] == txscript.OP_RETURN && txscript.IsPushOnlyScript(b[1:]):
		s.typ = OpReturn
	default:
		// txscript also reports OP_0 thresholds and malformed keys as
		// multisig; those are left to the stricter parser.
		if m, keys, ok := parseMultisig(b); ok {
			s.typ, s.threshold, s.keys = MultiSig, m, keys
			return
		}
		if _, err := miniscript.Decode(b, BareContext); err == nil {
			s.typ = Miniscript
			return
		}
		s.typ = NonStandard
	}
}

func isWitnessProgram(b []byte) bool {
	if len(b) < 4 || len(b) > 42 {
		return false
	}
	if b[0] != txscript.OP_0 && (b[0] < txscript.OP_1 || b[0] > txscript.OP_16) {
		return false
	}
	return int(b[1])+2 == len(b)
}

func isPubKey(b []byte) bool {
	switch len(b) {
	case 33:
		return b[0] == 0x02 || b[0] == 0x03
	case 65:
		return b[0] == 0x04
	default:
		return false
	}
}

func smallInt(op byte) (int, bool) {
	if op >= txscript.OP_1 && op <= txscript.OP_16 {
		return int(op-txscript.OP_1) + 1, true
	}
	return 0, false
}

// parseMultisig matches OP_m <key>... OP_n OP_CHECKMULTISIG with 1 <= m <= n <= 16.
func parseMultisig(b []byte) (int, [][]byte, bool) {
	if len(b) < 3 || b[len(b)-1] != txscript.OP_CHECKMULTISIG {
		return 0, nil, false
	}
	m, ok := smallInt(b[0])
	if !ok {
		return 0, nil, false
	}
	n, ok := smallInt(b[len(b)-2])
	if !ok || m > n {
		return 0, nil, false
	}
	var keys [][]byte
	tok := txscript.MakeScriptTokenizer(0, b[1:len(b)-2])
	for tok.Next() {
		if !isPubKey(tok.Data()) || tok.Opcode() != byte(len(tok.Data())) {
			return 0, nil, false
		}
		keys = append(keys, append([]byte{}, tok.Data()...))
	}
	if tok.Err() != nil || len(keys) != n {
		return 0, nil, false
	}
	return m, keys, true
}

// Bytes returns a copy of the script.
func (s Script) Bytes() []byte {
	return append([]byte{}, s.raw...)
}

// Len is the script length in bytes.
func (s Script) Len() int {
	return len(s.raw)
}

func (s Script) Type() Type {
	return s.typ
}

// Equal reports whether both scripts hold the same bytes.
func (s Script) Equal(o Script) bool {
	return bytes.Equal(s.raw, o.raw)
}

// Payload returns the committed data of a template: the key of p2pk, the
// hash of p2pkh and p2sh, or the witness program. It is nil for other types.
func (s Script) Payload() []byte {
	if s.payload == nil {
		return nil
	}
	return append([]byte{}, s.payload...)
}

// Multisig returns the threshold and keys of a bare multisig script.
func (s Script) Multisig() (int, [][]byte, bool) {
	if s.typ != MultiSig {
		return 0, nil, false
	}
	keys := make([][]byte, len(s.keys))
	for i, k := range s.keys {
		keys[i] = append([]byte{}, k...)
	}
	return s.threshold, keys, true
}

// WitnessProgram returns the witness version and program of a segwit output.
func (s Script) WitnessProgram() (int, []byte, bool) {
	if s.version < 0 {
		return 0, nil, false
	}
	return s.version, s.Payload(), true
}

// Asm returns the disassembly. Undecodable trailing bytes are rendered as
// "[error]".
func (s Script) Asm() string {
	asm, _ := txscript.DisasmString(s.raw)
	return asm
}

// Hash160 is the p2sh commitment to the script.
func (s Script) Hash160() []byte {
	return btcutil.Hash160(s.raw)
}

// WitnessHash is the p2wsh commitment to the script.
func (s Script) WitnessHash() []byte {
	h := sha256.Sum256(s.raw)
	return h[:]
}
