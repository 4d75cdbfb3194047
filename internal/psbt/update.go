package psbt

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	btcpsbt "github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/btctoolkit/internal/codec"
	"github.com/goodnatureofminers/btctoolkit/internal/keys"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

// HashType selects the BIP174 preimage record.
type HashType byte

const (
	Ripemd160 HashType = 0x0a
	Sha256    HashType = 0x0b
	Hash160   HashType = 0x0c
	Hash256   HashType = 0x0d
)

// ParseHashType maps the miniscript fragment names to record types.
func ParseHashType(s string) (HashType, bool) {
	switch s {
	case "ripemd160":
		return Ripemd160, true
	case "sha256":
		return Sha256, true
	case "hash160":
		return Hash160, true
	case "hash256":
		return Hash256, true
	default:
		return 0, false
	}
}

// Hash applies the hash function of the record type.
func (h HashType) Hash(preimage []byte) []byte {
	switch h {
	case Ripemd160:
		r := ripemd160.New()
		r.Write(preimage)
		return r.Sum(nil)
	case Sha256:
		s := sha256.Sum256(preimage)
		return s[:]
	case Hash160:
		return btcutil.Hash160(preimage)
	default:
		return chainhash.DoubleHashB(preimage)
	}
}

func isPreimageKey(key []byte) bool {
	return len(key) > 0 && key[0] >= byte(Ripemd160) && key[0] <= byte(Hash256)
}

// update runs fn on a copy of p with an updater bound to it.
func update(op string, p *Packet, i int, fn func(u *btcpsbt.Updater) error) (*Packet, error) {
	if err := checkInput(op, p, i); err != nil {
		return nil, err
	}
	out, err := clone(p)
	if err != nil {
		return nil, err
	}
	u, err := btcpsbt.NewUpdater(out)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, op, "packet", err)
	}
	if err := fn(u); err != nil {
		if errors.Is(err, btcpsbt.ErrDuplicateKey) {
			return nil, model.NewError(model.ErrFieldConflict, op, fmt.Sprintf("input %d", i), err)
		}
		var e *model.Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, model.NewError(model.ErrInvalidEncoding, op, fmt.Sprintf("input %d", i), err)
	}
	return out, nil
}

// AddWitnessUtxo records the output spent by input i.
func AddWitnessUtxo(p *Packet, i int, utxo codec.Output) (*Packet, error) {
	return update("add witness utxo", p, i, func(u *btcpsbt.Updater) error {
		return u.AddInWitnessUtxo(wire.NewTxOut(utxo.Value, utxo.PkScript), i)
	})
}

// AddNonWitnessUtxo records the full transaction whose output input i
// spends. Its txid must match the outpoint.
func AddNonWitnessUtxo(p *Packet, i int, prev codec.Transaction) (*Packet, error) {
	const op = "add non-witness utxo"
	return update(op, p, i, func(u *btcpsbt.Updater) error {
		prevOut := u.Upsbt.UnsignedTx.TxIn[i].PreviousOutPoint
		if txid := prev.TxID(); txid != prevOut.Hash {
			return model.Errorf(model.ErrInvalidEncoding, op, "non_witness_utxo", "txid %s does not match outpoint %s", txid, prevOut)
		}
		if int(prevOut.Index) >= len(prev.Outputs) {
			return model.Errorf(model.ErrInvalidEncoding, op, "non_witness_utxo", "transaction has no output %d", prevOut.Index)
		}
		return u.AddInNonWitnessUtxo(prev.MsgTx(), i)
	})
}

// AddRedeemScript attaches the p2sh redeem script of input i.
func AddRedeemScript(p *Packet, i int, redeemScript []byte) (*Packet, error) {
	return update("add redeem script", p, i, func(u *btcpsbt.Updater) error {
		return u.AddInRedeemScript(redeemScript, i)
	})
}

// AddWitnessScript attaches the p2wsh witness script of input i. A witness
// utxo is derived from the non-witness utxo when missing.
func AddWitnessScript(p *Packet, i int, witnessScript []byte) (*Packet, error) {
	const op = "add witness script"
	return update(op, p, i, func(u *btcpsbt.Updater) error {
		in := &u.Upsbt.Inputs[i]
		if in.WitnessUtxo == nil {
			utxo, err := spentOutput(u.Upsbt, i)
			if err != nil {
				return err
			}
			in.WitnessUtxo = utxo
		}
		return u.AddInWitnessScript(witnessScript, i)
	})
}

// AddSighashType sets the sighash type requested for input i.
func AddSighashType(p *Packet, i int, sighash txscript.SigHashType) (*Packet, error) {
	return update("add sighash type", p, i, func(u *btcpsbt.Updater) error {
		return u.AddInSighashType(sighash, i)
	})
}

// AddPartialSig adds a signature for pubKey. The signature is stored as
// given; it is not verified.
func AddPartialSig(p *Packet, i int, pubKey, sig []byte) (*Packet, error) {
	const op = "add partial signature"
	return update(op, p, i, func(u *btcpsbt.Updater) error {
		if _, err := btcec.ParsePubKey(pubKey); err != nil {
			return model.NewError(model.ErrInvalidEncoding, op, "public key", err)
		}
		if len(sig) == 0 {
			return model.Errorf(model.ErrInvalidEncoding, op, "signature", "empty signature")
		}
		in := &u.Upsbt.Inputs[i]
		for _, ps := range in.PartialSigs {
			if !bytes.Equal(ps.PubKey, pubKey) {
				continue
			}
			if bytes.Equal(ps.Signature, sig) {
				return nil
			}
			return model.Errorf(model.ErrFieldConflict, op, "partial_sig", "different signature for key %x", pubKey)
		}
		in.PartialSigs = append(in.PartialSigs, &btcpsbt.PartialSig{
			PubKey:    bytes.Clone(pubKey),
			Signature: bytes.Clone(sig),
		})
		return nil
	})
}

// AddBip32Derivation records the key origin of pubKey.
func AddBip32Derivation(p *Packet, i int, pubKey []byte, fingerprint [4]byte, path keys.DerivationPath) (*Packet, error) {
	return update("add bip32 derivation", p, i, func(u *btcpsbt.Updater) error {
		return u.AddInBip32Derivation(binary.LittleEndian.Uint32(fingerprint[:]), path, pubKey, i)
	})
}

// AddPreimage stores the preimage of a hash lock under its record type.
func AddPreimage(p *Packet, i int, typ HashType, preimage []byte) (*Packet, error) {
	const op = "add preimage"
	if typ < Ripemd160 || typ > Hash256 {
		return nil, model.Errorf(model.ErrInvalidEncoding, op, "type", "unknown preimage type 0x%02x", byte(typ))
	}
	return update(op, p, i, func(u *btcpsbt.Updater) error {
		key := append([]byte{byte(typ)}, typ.Hash(preimage)...)
		in := &u.Upsbt.Inputs[i]
		for _, kv := range in.Unknowns {
			if bytes.Equal(kv.Key, key) {
				return nil
			}
		}
		in.Unknowns = append(in.Unknowns, &btcpsbt.Unknown{Key: key, Value: bytes.Clone(preimage)})
		return nil
	})
}

// spentOutput returns the output spent by input i from either utxo record.
func spentOutput(p *Packet, i int) (*wire.TxOut, error) {
	in := &p.Inputs[i]
	if in.WitnessUtxo != nil {
		return in.WitnessUtxo, nil
	}
	if in.NonWitnessUtxo != nil {
		idx := p.UnsignedTx.TxIn[i].PreviousOutPoint.Index
		if int(idx) < len(in.NonWitnessUtxo.TxOut) {
			return in.NonWitnessUtxo.TxOut[idx], nil
		}
	}
	return nil, model.Errorf(model.ErrInsufficientData, "spent output", "utxo", "input %d has no utxo record", i)
}
