package psbt

import (
	"bytes"
	"fmt"
	"slices"

	btcpsbt "github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

const mergeOp = "merge psbt"

// Merge combines two packets over the same unsigned transaction. Records
// present in only one packet are kept, identical records are deduplicated
// and records with the same key but different values are a FieldConflict.
// The result is canonical, so Merge(a, b) and Merge(b, a) serialize to the
// same bytes.
func Merge(a, b *Packet) (*Packet, error) {
	ta, err := txBytes(a.UnsignedTx)
	if err != nil {
		return nil, err
	}
	tb, err := txBytes(b.UnsignedTx)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(ta, tb) {
		return nil, model.Errorf(model.ErrTransactionMismatch, mergeOp, "unsigned_tx",
			"%s != %s", a.UnsignedTx.TxHash(), b.UnsignedTx.TxHash())
	}

	out, err := clone(a)
	if err != nil {
		return nil, err
	}
	other, err := clone(b)
	if err != nil {
		return nil, err
	}

	if out.Unknowns, err = mergeUnknowns("global", out.Unknowns, other.Unknowns); err != nil {
		return nil, err
	}
	for i := range out.Inputs {
		if err := mergeInput(fmt.Sprintf("input %d", i), &out.Inputs[i], &other.Inputs[i]); err != nil {
			return nil, err
		}
	}
	for i := range out.Outputs {
		if err := mergeOutput(fmt.Sprintf("output %d", i), &out.Outputs[i], &other.Outputs[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MergeAll folds Merge over ps.
func MergeAll(ps ...*Packet) (*Packet, error) {
	if len(ps) == 0 {
		return nil, model.Errorf(model.ErrInvalidEncoding, mergeOp, "packets", "nothing to merge")
	}
	acc, err := Merge(ps[0], ps[0])
	if err != nil {
		return nil, err
	}
	for _, p := range ps[1:] {
		if acc, err = Merge(acc, p); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func txBytes(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, mergeOp, "unsigned_tx", err)
	}
	return buf.Bytes(), nil
}

func conflict(scope, field string) error {
	return model.Errorf(model.ErrFieldConflict, mergeOp, field, "%s has two different values", scope)
}

func mergeBytes(scope, field string, a, b []byte) ([]byte, error) {
	switch {
	case a == nil:
		return b, nil
	case b == nil || bytes.Equal(a, b):
		return a, nil
	default:
		return nil, conflict(scope, field)
	}
}

// mergeKeyed unions two record lists by key and sorts the result.
func mergeKeyed[T any](scope, field string, a, b []*T, key func(*T) []byte, equal func(x, y *T) bool) ([]*T, error) {
	out := slices.Clone(a)
next:
	for _, y := range b {
		for _, x := range out {
			if !bytes.Equal(key(x), key(y)) {
				continue
			}
			if !equal(x, y) {
				return nil, conflict(scope, fmt.Sprintf("%s %x", field, key(y)))
			}
			continue next
		}
		out = append(out, y)
	}
	slices.SortFunc(out, func(x, y *T) int { return bytes.Compare(key(x), key(y)) })
	return out, nil
}

func mergeUnknowns(scope string, a, b []*btcpsbt.Unknown) ([]*btcpsbt.Unknown, error) {
	return mergeKeyed(scope, "unknown", a, b,
		func(u *btcpsbt.Unknown) []byte { return u.Key },
		func(x, y *btcpsbt.Unknown) bool { return bytes.Equal(x.Value, y.Value) })
}

func bip32Key(d *btcpsbt.Bip32Derivation) []byte { return d.PubKey }

func bip32Equal(x, y *btcpsbt.Bip32Derivation) bool {
	return x.MasterKeyFingerprint == y.MasterKeyFingerprint && slices.Equal(x.Bip32Path, y.Bip32Path)
}

func tapBip32Key(d *btcpsbt.TaprootBip32Derivation) []byte { return d.XOnlyPubKey }

func tapBip32Equal(x, y *btcpsbt.TaprootBip32Derivation) bool {
	return x.MasterKeyFingerprint == y.MasterKeyFingerprint &&
		slices.Equal(x.Bip32Path, y.Bip32Path) &&
		slices.EqualFunc(x.LeafHashes, y.LeafHashes, bytes.Equal)
}

func mergeInput(scope string, a, b *btcpsbt.PInput) error {
	var err error

	switch {
	case a.NonWitnessUtxo == nil:
		a.NonWitnessUtxo = b.NonWitnessUtxo
	case b.NonWitnessUtxo != nil:
		ta, errA := txBytes(a.NonWitnessUtxo)
		tb, errB := txBytes(b.NonWitnessUtxo)
		if errA != nil || errB != nil || !bytes.Equal(ta, tb) {
			return conflict(scope, "non_witness_utxo")
		}
	}
	switch {
	case a.WitnessUtxo == nil:
		a.WitnessUtxo = b.WitnessUtxo
	case b.WitnessUtxo != nil:
		if a.WitnessUtxo.Value != b.WitnessUtxo.Value || !bytes.Equal(a.WitnessUtxo.PkScript, b.WitnessUtxo.PkScript) {
			return conflict(scope, "witness_utxo")
		}
	}
	switch {
	case a.SighashType == 0:
		a.SighashType = b.SighashType
	case b.SighashType != 0 && a.SighashType != b.SighashType:
		return conflict(scope, "sighash_type")
	}

	if a.PartialSigs, err = mergeKeyed(scope, "partial_sig", a.PartialSigs, b.PartialSigs,
		func(s *btcpsbt.PartialSig) []byte { return s.PubKey },
		func(x, y *btcpsbt.PartialSig) bool { return bytes.Equal(x.Signature, y.Signature) }); err != nil {
		return err
	}
	if a.RedeemScript, err = mergeBytes(scope, "redeem_script", a.RedeemScript, b.RedeemScript); err != nil {
		return err
	}
	if a.WitnessScript, err = mergeBytes(scope, "witness_script", a.WitnessScript, b.WitnessScript); err != nil {
		return err
	}
	if a.Bip32Derivation, err = mergeKeyed(scope, "bip32_derivation", a.Bip32Derivation, b.Bip32Derivation, bip32Key, bip32Equal); err != nil {
		return err
	}
	if a.FinalScriptSig, err = mergeBytes(scope, "final_scriptsig", a.FinalScriptSig, b.FinalScriptSig); err != nil {
		return err
	}
	if a.FinalScriptWitness, err = mergeBytes(scope, "final_scriptwitness", a.FinalScriptWitness, b.FinalScriptWitness); err != nil {
		return err
	}
	if a.TaprootKeySpendSig, err = mergeBytes(scope, "taproot_key_sig", a.TaprootKeySpendSig, b.TaprootKeySpendSig); err != nil {
		return err
	}
	if a.TaprootScriptSpendSig, err = mergeKeyed(scope, "taproot_script_sig", a.TaprootScriptSpendSig, b.TaprootScriptSpendSig,
		func(s *btcpsbt.TaprootScriptSpendSig) []byte {
			return append(bytes.Clone(s.XOnlyPubKey), s.LeafHash...)
		},
		func(x, y *btcpsbt.TaprootScriptSpendSig) bool {
			return bytes.Equal(x.Signature, y.Signature) && x.SigHash == y.SigHash
		}); err != nil {
		return err
	}
	if a.TaprootLeafScript, err = mergeKeyed(scope, "taproot_leaf_script", a.TaprootLeafScript, b.TaprootLeafScript,
		func(l *btcpsbt.TaprootTapLeafScript) []byte { return l.ControlBlock },
		func(x, y *btcpsbt.TaprootTapLeafScript) bool {
			return bytes.Equal(x.Script, y.Script) && x.LeafVersion == y.LeafVersion
		}); err != nil {
		return err
	}
	if a.TaprootBip32Derivation, err = mergeKeyed(scope, "taproot_bip32_derivation", a.TaprootBip32Derivation, b.TaprootBip32Derivation, tapBip32Key, tapBip32Equal); err != nil {
		return err
	}
	if a.TaprootInternalKey, err = mergeBytes(scope, "taproot_internal_key", a.TaprootInternalKey, b.TaprootInternalKey); err != nil {
		return err
	}
	if a.TaprootMerkleRoot, err = mergeBytes(scope, "taproot_merkle_root", a.TaprootMerkleRoot, b.TaprootMerkleRoot); err != nil {
		return err
	}
	a.Unknowns, err = mergeUnknowns(scope, a.Unknowns, b.Unknowns)
	return err
}

func mergeOutput(scope string, a, b *btcpsbt.POutput) error {
	var err error
	if a.RedeemScript, err = mergeBytes(scope, "redeem_script", a.RedeemScript, b.RedeemScript); err != nil {
		return err
	}
	if a.WitnessScript, err = mergeBytes(scope, "witness_script", a.WitnessScript, b.WitnessScript); err != nil {
		return err
	}
	if a.Bip32Derivation, err = mergeKeyed(scope, "bip32_derivation", a.Bip32Derivation, b.Bip32Derivation, bip32Key, bip32Equal); err != nil {
		return err
	}
	if a.TaprootInternalKey, err = mergeBytes(scope, "taproot_internal_key", a.TaprootInternalKey, b.TaprootInternalKey); err != nil {
		return err
	}
	if a.TaprootTapTree, err = mergeBytes(scope, "taproot_tap_tree", a.TaprootTapTree, b.TaprootTapTree); err != nil {
		return err
	}
	if a.TaprootBip32Derivation, err = mergeKeyed(scope, "taproot_bip32_derivation", a.TaprootBip32Derivation, b.TaprootBip32Derivation, tapBip32Key, tapBip32Equal); err != nil {
		return err
	}
	a.Unknowns, err = mergeUnknowns(scope, a.Unknowns, b.Unknowns)
	return err
}
