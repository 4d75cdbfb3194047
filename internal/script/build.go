package script

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

func checkLen(op, field string, b []byte, want ...int) error {
	for _, n := range want {
		if len(b) == n {
			return nil
		}
	}
	return model.Errorf(model.ErrInvalidEncoding, op, field, "unexpected length %d", len(b))
}

// PayToPubKey builds <pubkey> OP_CHECKSIG.
func PayToPubKey(pub []byte) ([]byte, error) {
	if !isPubKey(pub) {
		return nil, model.Errorf(model.ErrInvalidEncoding, "pay to pubkey", "public key", "unexpected length %d", len(pub))
	}
	return txscript.NewScriptBuilder().AddData(pub).AddOp(txscript.OP_CHECKSIG).Script()
}

// PayToPubKeyHash builds the p2pkh template for a 20-byte key hash.
func PayToPubKeyHash(hash []byte) ([]byte, error) {
	if err := checkLen("pay to pubkey hash", "hash", hash, 20); err != nil {
		return nil, err
	}
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(hash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

// PayToScriptHash builds the p2sh template for a 20-byte script hash.
func PayToScriptHash(hash []byte) ([]byte, error) {
	if err := checkLen("pay to script hash", "hash", hash, 20); err != nil {
		return nil, err
	}
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_HASH160).
		AddData(hash).
		AddOp(txscript.OP_EQUAL).
		Script()
}

// PayToWitnessPubKeyHash builds OP_0 <20-byte hash>.
func PayToWitnessPubKeyHash(hash []byte) ([]byte, error) {
	if err := checkLen("pay to witness pubkey hash", "hash", hash, 20); err != nil {
		return nil, err
	}
	return PayToWitness(0, hash)
}

// PayToWitnessScriptHash builds OP_0 <32-byte hash>.
func PayToWitnessScriptHash(hash []byte) ([]byte, error) {
	if err := checkLen("pay to witness script hash", "hash", hash, 32); err != nil {
		return nil, err
	}
	return PayToWitness(0, hash)
}

// PayToTaproot builds OP_1 <32-byte output key>.
func PayToTaproot(outputKey []byte) ([]byte, error) {
	if err := checkLen("pay to taproot", "output key", outputKey, 32); err != nil {
		return nil, err
	}
	return PayToWitness(1, outputKey)
}

// PayToWitness builds a witness program output of any version.
func PayToWitness(version int, program []byte) ([]byte, error) {
	if version < 0 || version > 16 {
		return nil, model.Errorf(model.ErrInvalidEncoding, "pay to witness", "version", "version %d out of range", version)
	}
	if len(program) < 2 || len(program) > 40 {
		return nil, model.Errorf(model.ErrInvalidEncoding, "pay to witness", "program", "unexpected length %d", len(program))
	}
	op := byte(txscript.OP_0)
	if version > 0 {
		op = byte(txscript.OP_1 + version - 1)
	}
	return txscript.NewScriptBuilder().AddOp(op).AddData(program).Script()
}

// MultiSigScript builds a bare k-of-n CHECKMULTISIG script.
func MultiSigScript(k int, keys [][]byte) ([]byte, error) {
	if len(keys) == 0 || len(keys) > 16 || k < 1 || k > len(keys) {
		return nil, model.Errorf(model.ErrInvalidEncoding, "multisig", "threshold", "invalid %d-of-%d", k, len(keys))
	}
	b := txscript.NewScriptBuilder().AddInt64(int64(k))
	for i, key := range keys {
		if !isPubKey(key) {
			return nil, model.Errorf(model.ErrInvalidEncoding, "multisig", fmt.Sprintf("key %d", i), "unexpected length %d", len(key))
		}
		b.AddData(key)
	}
	return b.AddInt64(int64(len(keys))).AddOp(txscript.OP_CHECKMULTISIG).Script()
}

// NullData builds OP_RETURN <data>.
func NullData(data []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN).AddData(data).Script()
}
