package psbt

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/goodnatureofminers/btctoolkit/internal/codec"
	"github.com/goodnatureofminers/btctoolkit/internal/keys"
	"github.com/goodnatureofminers/btctoolkit/internal/miniscript"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/script"
	"github.com/stretchr/testify/require"
)

var digest = chainhash.HashB([]byte("sighash"))

func testPriv(i byte) *btcec.PrivateKey {
	var secret [32]byte
	secret[31] = i
	priv, _ := btcec.PrivKeyFromBytes(secret[:])
	return priv
}

func testPub(i byte) []byte {
	return testPriv(i).PubKey().SerializeCompressed()
}

// testSig is a DER signature with SIGHASH_ALL appended.
func testSig(i byte) []byte {
	sig := ecdsa.Sign(testPriv(i), digest).Serialize()
	return append(sig, byte(txscript.SigHashAll))
}

// mustScript fails the test on a builder error.
func mustScript(t *testing.T) func([]byte, error) []byte {
	return func(b []byte, err error) []byte {
		t.Helper()
		require.NoError(t, err)
		return b
	}
}

func p2wpkh(t *testing.T, i byte) []byte {
	t.Helper()
	return mustScript(t)(script.PayToWitnessPubKeyHash(btcutil.Hash160(testPub(i))))
}

func unsignedTx(t *testing.T, prev chainhash.Hash) codec.Transaction {
	return codec.Transaction{
		Version: 2,
		Inputs: []codec.Input{{
			PreviousOutPoint: codec.OutPoint{Hash: prev, Index: 0},
			Sequence:         0xfffffffd,
		}},
		Outputs: []codec.Output{{Value: 9_000, PkScript: p2wpkh(t, 9)}},
	}
}

func newPacket(t *testing.T) *Packet {
	t.Helper()
	p, err := Create(unsignedTx(t, chainhash.Hash{1}))
	require.NoError(t, err)
	return p
}

func mustBytes(t *testing.T, p *Packet) []byte {
	t.Helper()
	b, err := Serialize(p)
	require.NoError(t, err)
	return b
}

// signedP2WPKH returns a packet spending a p2wpkh output of key 1 with its
// partial signature attached.
func signedP2WPKH(t *testing.T) *Packet {
	t.Helper()
	p, err := AddWitnessUtxo(newPacket(t), 0, codec.Output{Value: 10_000, PkScript: p2wpkh(t, 1)})
	require.NoError(t, err)
	p, err = AddPartialSig(p, 0, testPub(1), testSig(1))
	require.NoError(t, err)
	return p
}

func TestCreate_RoundTrip(t *testing.T) {
	p := newPacket(t)
	state, err := InputState(p, 0)
	require.NoError(t, err)
	require.Equal(t, Unsigned, state)

	s, err := Base64(p)
	require.NoError(t, err)
	parsed, err := ParseBase64(s)
	require.NoError(t, err)
	require.Equal(t, mustBytes(t, p), mustBytes(t, parsed))

	_, err = InputState(p, 1)
	require.ErrorIs(t, err, model.ErrInvalidEncoding)

	_, err = Parse([]byte("not a psbt"))
	require.ErrorIs(t, err, model.ErrInvalidEncoding)
}

func TestFinalize_P2WPKH(t *testing.T) {
	p := signedP2WPKH(t)
	before := mustBytes(t, p)

	state, err := InputState(p, 0)
	require.NoError(t, err)
	require.Equal(t, PartiallySigned, state)

	final, err := Finalize(p, 0)
	require.NoError(t, err)
	require.Equal(t, before, mustBytes(t, p), "argument must not change")

	in := final.Inputs[0]
	require.Nil(t, in.FinalScriptSig)
	witness, _, err := codec.DecodeWitness(in.FinalScriptWitness)
	require.NoError(t, err)
	require.Equal(t, [][]byte{testSig(1), testPub(1)}, witness)
	require.Empty(t, in.PartialSigs)
	require.NotNil(t, in.WitnessUtxo)

	again, err := Finalize(final, 0)
	require.NoError(t, err)
	require.Equal(t, mustBytes(t, final), mustBytes(t, again))

	tx, err := Extract(final)
	require.NoError(t, err)
	require.Equal(t, witness, tx.Inputs[0].Witness)
	require.Empty(t, tx.Inputs[0].SignatureScript)
}

func TestFinalize_Errors(t *testing.T) {
	t.Run("missing utxo", func(t *testing.T) {
		_, err := Finalize(newPacket(t), 0)
		require.ErrorIs(t, err, model.ErrInsufficientData)
	})
	t.Run("missing signature", func(t *testing.T) {
		p, err := AddWitnessUtxo(newPacket(t), 0, codec.Output{Value: 1, PkScript: p2wpkh(t, 1)})
		require.NoError(t, err)
		_, err = Finalize(p, 0)
		require.ErrorIs(t, err, model.ErrInsufficientData)
	})
	t.Run("unsupported output", func(t *testing.T) {
		nulldata := mustScript(t)(script.NullData([]byte("x")))
		p, err := AddWitnessUtxo(newPacket(t), 0, codec.Output{Value: 1, PkScript: nulldata})
		require.NoError(t, err)
		_, err = Finalize(p, 0)
		require.ErrorIs(t, err, model.ErrUnsupportedInputType)
	})
	t.Run("index out of range", func(t *testing.T) {
		_, err := Finalize(newPacket(t), 3)
		require.ErrorIs(t, err, model.ErrInvalidEncoding)
	})
}

func TestExtract_Incomplete(t *testing.T) {
	_, err := Extract(signedP2WPKH(t))
	require.ErrorIs(t, err, model.ErrIncompletePsbt)
}

func TestFinalize_P2SHMultisig(t *testing.T) {
	redeem := mustScript(t)(script.MultiSigScript(2, [][]byte{testPub(1), testPub(2), testPub(3)}))
	prev := codec.Transaction{
		Version: 1,
		Inputs:  []codec.Input{{PreviousOutPoint: codec.OutPoint{Index: 7}, Sequence: 0xffffffff}},
		Outputs: []codec.Output{{
			Value:    50_000,
			PkScript: mustScript(t)(script.PayToScriptHash(btcutil.Hash160(redeem))),
		}},
	}
	p, err := Create(unsignedTx(t, prev.TxID()))
	require.NoError(t, err)
	p, err = AddNonWitnessUtxo(p, 0, prev)
	require.NoError(t, err)
	p, err = AddRedeemScript(p, 0, redeem)
	require.NoError(t, err)
	p, err = AddPartialSig(p, 0, testPub(3), testSig(3))
	require.NoError(t, err)

	_, err = Finalize(p, 0)
	require.ErrorIs(t, err, model.ErrInsufficientData)

	p, err = AddPartialSig(p, 0, testPub(1), testSig(1))
	require.NoError(t, err)
	final, err := Finalize(p, 0)
	require.NoError(t, err)

	want, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(testSig(1)).
		AddData(testSig(3)).
		AddData(redeem).
		Script()
	require.NoError(t, err)
	require.Equal(t, want, final.Inputs[0].FinalScriptSig)
	require.Nil(t, final.Inputs[0].FinalScriptWitness)
	require.Nil(t, final.Inputs[0].RedeemScript)
	require.NotNil(t, final.Inputs[0].NonWitnessUtxo)
}

func TestFinalize_P2WSHMiniscriptPreimage(t *testing.T) {
	preimage := bytes.Repeat([]byte{0x42}, 32)
	hash := sha256.Sum256(preimage)
	node, err := miniscript.Parse("and_v(v:pk("+hex.EncodeToString(testPub(1))+"),sha256("+hex.EncodeToString(hash[:])+"))", miniscript.SegwitV0)
	require.NoError(t, err)
	ws, err := node.Script()
	require.NoError(t, err)

	p, err := AddWitnessUtxo(newPacket(t), 0, codec.Output{
		Value:    20_000,
		PkScript: mustScript(t)(script.PayToWitnessScriptHash(script.New(ws).WitnessHash())),
	})
	require.NoError(t, err)
	p, err = AddWitnessScript(p, 0, ws)
	require.NoError(t, err)
	p, err = AddPartialSig(p, 0, testPub(1), testSig(1))
	require.NoError(t, err)

	_, err = Finalize(p, 0)
	require.ErrorIs(t, err, model.ErrInsufficientData)

	p, err = AddPreimage(p, 0, Sha256, preimage)
	require.NoError(t, err)
	require.Len(t, p.Inputs[0].Unknowns, 1)

	final, err := Finalize(p, 0)
	require.NoError(t, err)
	witness, _, err := codec.DecodeWitness(final.Inputs[0].FinalScriptWitness)
	require.NoError(t, err)
	require.Equal(t, [][]byte{preimage, testSig(1), ws}, witness)
	require.Empty(t, final.Inputs[0].Unknowns)
	require.Nil(t, final.Inputs[0].WitnessScript)
}

func TestFinalize_TaprootKeyPath(t *testing.T) {
	priv := testPriv(4)
	outputKey := txscript.ComputeTaprootKeyNoScript(priv.PubKey())
	pkScript := mustScript(t)(script.PayToTaproot(schnorr.SerializePubKey(outputKey)))

	p, err := AddWitnessUtxo(newPacket(t), 0, codec.Output{Value: 30_000, PkScript: pkScript})
	require.NoError(t, err)
	sig, err := schnorr.Sign(priv, digest)
	require.NoError(t, err)
	p.Inputs[0].TaprootKeySpendSig = sig.Serialize()

	state, err := InputState(p, 0)
	require.NoError(t, err)
	require.Equal(t, PartiallySigned, state)

	final, err := Finalize(p, 0)
	require.NoError(t, err)
	witness, _, err := codec.DecodeWitness(final.Inputs[0].FinalScriptWitness)
	require.NoError(t, err)
	require.Equal(t, [][]byte{sig.Serialize()}, witness)
	require.Nil(t, final.Inputs[0].TaprootKeySpendSig)
}

func multisigP2WSH(t *testing.T) (*Packet, []byte) {
	t.Helper()
	ws := mustScript(t)(script.MultiSigScript(2, [][]byte{testPub(1), testPub(2)}))
	p, err := AddWitnessUtxo(newPacket(t), 0, codec.Output{
		Value:    40_000,
		PkScript: mustScript(t)(script.PayToWitnessScriptHash(script.New(ws).WitnessHash())),
	})
	require.NoError(t, err)
	p, err = AddWitnessScript(p, 0, ws)
	require.NoError(t, err)
	return p, ws
}

func TestMerge(t *testing.T) {
	base, ws := multisigP2WSH(t)
	a, err := AddPartialSig(base, 0, testPub(1), testSig(1))
	require.NoError(t, err)
	b, err := AddPartialSig(base, 0, testPub(2), testSig(2))
	require.NoError(t, err)

	ab, err := Merge(a, b)
	require.NoError(t, err)
	ba, err := Merge(b, a)
	require.NoError(t, err)
	require.Equal(t, mustBytes(t, ab), mustBytes(t, ba))
	require.Len(t, ab.Inputs[0].PartialSigs, 2)
	require.Len(t, a.Inputs[0].PartialSigs, 1)

	all, err := MergeAll(a, b, a)
	require.NoError(t, err)
	require.Equal(t, mustBytes(t, ab), mustBytes(t, all))

	final, err := Finalize(ab, 0)
	require.NoError(t, err)
	witness, _, err := codec.DecodeWitness(final.Inputs[0].FinalScriptWitness)
	require.NoError(t, err)
	require.Len(t, witness, 4)
	require.Empty(t, witness[0])
	require.Equal(t, ws, witness[3])
}

func TestMerge_Errors(t *testing.T) {
	t.Run("different transactions", func(t *testing.T) {
		other, err := Create(unsignedTx(t, chainhash.Hash{2}))
		require.NoError(t, err)
		_, err = Merge(newPacket(t), other)
		require.ErrorIs(t, err, model.ErrTransactionMismatch)
	})
	t.Run("conflicting utxo", func(t *testing.T) {
		a, err := AddWitnessUtxo(newPacket(t), 0, codec.Output{Value: 1, PkScript: p2wpkh(t, 1)})
		require.NoError(t, err)
		b, err := AddWitnessUtxo(newPacket(t), 0, codec.Output{Value: 2, PkScript: p2wpkh(t, 1)})
		require.NoError(t, err)
		_, err = Merge(a, b)
		require.ErrorIs(t, err, model.ErrFieldConflict)
	})
	t.Run("conflicting signature", func(t *testing.T) {
		base, _ := multisigP2WSH(t)
		a, err := AddPartialSig(base, 0, testPub(1), testSig(1))
		require.NoError(t, err)
		b, err := AddPartialSig(base, 0, testPub(1), testSig(2))
		require.NoError(t, err)
		_, err = Merge(a, b)
		require.ErrorIs(t, err, model.ErrFieldConflict)
	})
}

func TestUpdate_Errors(t *testing.T) {
	p := signedP2WPKH(t)
	_, err := AddPartialSig(p, 0, testPub(1), testSig(2))
	require.ErrorIs(t, err, model.ErrFieldConflict)

	_, err = AddPartialSig(p, 0, []byte{0x02, 0x01}, testSig(1))
	require.ErrorIs(t, err, model.ErrInvalidEncoding)

	_, err = AddNonWitnessUtxo(newPacket(t), 0, unsignedTx(t, chainhash.Hash{3}))
	require.ErrorIs(t, err, model.ErrInvalidEncoding)

	_, err = AddPreimage(newPacket(t), 0, HashType(0x01), []byte("x"))
	require.ErrorIs(t, err, model.ErrInvalidEncoding)
}

func TestInspect(t *testing.T) {
	p := signedP2WPKH(t)
	path, err := keys.ParseDerivationPath("m/84'/0'/0'/0/1")
	require.NoError(t, err)
	p, err = AddBip32Derivation(p, 0, testPub(1), [4]byte{0xd3, 0x4d, 0xb3, 0x3f}, path)
	require.NoError(t, err)

	info := Inspect(p, model.Mainnet)
	require.False(t, info.Complete)
	require.NotNil(t, info.Fee)
	require.Equal(t, int64(1_000), *info.Fee)
	require.Equal(t, "partially_signed", info.Inputs[0].State)
	require.Equal(t, "p2wpkh", info.Inputs[0].ScriptType)
	require.Equal(t, []string{hex.EncodeToString(testPub(1))}, info.Inputs[0].PartialSigs)
	require.Equal(t, []string{"[d34db33f/84'/0'/0'/0/1] " + hex.EncodeToString(testPub(1))}, info.Inputs[0].Derivations)
	require.Equal(t, "p2wpkh", info.Outputs[0].ScriptPubKey.Type)
	require.NotEmpty(t, info.Outputs[0].ScriptPubKey.Address)

	final, err := FinalizeAll(p)
	require.NoError(t, err)
	info = Inspect(final, model.Mainnet)
	require.True(t, info.Complete)
	require.Len(t, info.Inputs[0].FinalScriptWitness, 2)
	require.Empty(t, info.Inputs[0].Derivations)

	info = Inspect(newPacket(t), model.Mainnet)
	require.Nil(t, info.Fee)
	require.Equal(t, "unsigned", info.Inputs[0].State)
}
