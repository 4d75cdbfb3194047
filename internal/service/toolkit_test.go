package service

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/btctoolkit/internal/codec"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/script"
)

const genesisTxID = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"

func genesisRaw() []byte {
	return codec.EncodeTransaction(codec.FromMsgTx(chaincfg.MainNetParams.GenesisBlock.Transactions[0]))
}

func testPriv(i byte) *btcec.PrivateKey {
	var secret [32]byte
	secret[31] = i
	priv, _ := btcec.PrivKeyFromBytes(secret[:])
	return priv
}

func testPub(i byte) []byte {
	return testPriv(i).PubKey().SerializeCompressed()
}

func newToolkit(t *testing.T) (*Toolkit, *MockMetrics) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	metrics := NewMockMetrics(ctrl)
	s, err := NewToolkit(model.Mainnet, metrics, zap.NewNop())
	require.NoError(t, err)
	return s, metrics
}

func TestNewToolkit(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	_, err := NewToolkit(model.Mainnet, nil, zap.NewNop())
	require.Error(t, err)

	_, err = NewToolkit(model.Network("moonnet"), NewMockMetrics(ctrl), zap.NewNop())
	require.Error(t, err)

	s, err := NewToolkit(model.Testnet, NewMockMetrics(ctrl), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, model.Testnet, s.Network())
}

func TestDecodeTransaction(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s, metrics := newToolkit(t)
		metrics.EXPECT().Observe("decode transaction", nil, gomock.Any()).Times(1)

		info, err := s.DecodeTransaction(genesisRaw())
		require.NoError(t, err)
		require.Equal(t, genesisTxID, info.TxID)
	})

	t.Run("failure is observed", func(t *testing.T) {
		s, metrics := newToolkit(t)
		metrics.EXPECT().Observe("decode transaction", gomock.Not(nil), gomock.Any()).Times(1)

		_, err := s.DecodeTransaction([]byte{0x01})
		require.ErrorIs(t, err, model.ErrTruncatedInput)
	})

	t.Run("core shape", func(t *testing.T) {
		s, metrics := newToolkit(t)
		metrics.EXPECT().Observe("decode transaction core", nil, gomock.Any()).Times(1)

		res, err := s.DecodeTransactionCore(genesisRaw())
		require.NoError(t, err)
		require.Equal(t, genesisTxID, res.Txid)
		require.NotEmpty(t, res.Vin[0].Coinbase)
	})
}

func TestCreateTransaction(t *testing.T) {
	s, metrics := newToolkit(t)
	metrics.EXPECT().Observe("decode transaction", nil, gomock.Any()).Times(1)
	metrics.EXPECT().Observe("create transaction", nil, gomock.Any()).Times(1)

	info, err := s.DecodeTransaction(genesisRaw())
	require.NoError(t, err)
	raw, err := s.CreateTransaction(info)
	require.NoError(t, err)
	require.Equal(t, genesisRaw(), raw)
}

func TestDecodeTransactions(t *testing.T) {
	s, metrics := newToolkit(t)
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	batch := NewMockBatchMetrics(ctrl)

	raws := [][]byte{genesisRaw(), {0x00}, genesisRaw()}

	metrics.EXPECT().Observe("decode transaction", gomock.Any(), gomock.Any()).Times(len(raws))
	batch.EXPECT().ObserveItem(nil).Times(2)
	batch.EXPECT().ObserveItem(gomock.Not(nil)).Times(1)
	batch.EXPECT().ObserveBatch(gomock.Not(nil), len(raws), gomock.Any()).Times(1)

	res, err := s.DecodeTransactions(context.Background(), raws, 2, batch)
	require.NoError(t, err)
	require.Len(t, res, len(raws))
	require.NoError(t, res[0].Err)
	require.Equal(t, genesisTxID, res[0].Value.TxID)
	require.ErrorIs(t, res[1].Err, model.ErrTruncatedInput)
	require.NoError(t, res[2].Err)

	_, err = s.DecodeTransactions(context.Background(), raws, 2, nil)
	require.Error(t, err)
}

func TestDecodeTransactions_Canceled(t *testing.T) {
	s, metrics := newToolkit(t)
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	batch := NewMockBatchMetrics(ctrl)

	metrics.EXPECT().Observe("decode transaction", gomock.Any(), gomock.Any()).AnyTimes()
	batch.EXPECT().ObserveItem(gomock.Any()).AnyTimes()
	batch.EXPECT().ObserveBatch(context.Canceled, 1, gomock.Any()).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.DecodeTransactions(ctx, [][]byte{genesisRaw()}, 1, batch)
	require.ErrorIs(t, err, context.Canceled)
}

func TestScripts(t *testing.T) {
	s, metrics := newToolkit(t)
	metrics.EXPECT().Observe(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	wpkh, err := hex.DecodeString("0014751e76e8199196d454941c45d1b3a323f1433bd6")
	require.NoError(t, err)

	info, err := s.DecodeScript(wpkh)
	require.NoError(t, err)
	require.Equal(t, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", info.Address)

	addr, err := s.InspectAddress(" bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4 ")
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(wpkh), addr.ScriptPubKey.Hex)

	multi, err := script.MultiSigScript(1, [][]byte{testPub(1), testPub(2)})
	require.NoError(t, err)
	addrs, err := s.ScriptAddresses(multi, false, nil)
	require.NoError(t, err)
	require.NotEmpty(t, addrs.P2WSH)
	require.Empty(t, addrs.P2TR)
	addrs, err = s.ScriptAddresses(multi, true, nil)
	require.NoError(t, err)
	require.NotEmpty(t, addrs.P2TR)

	lifted, err := s.LiftScript(multi)
	require.NoError(t, err)
	require.Contains(t, lifted, "or(")

	_, err = s.LiftScript([]byte{txscript.OP_RETURN})
	require.ErrorIs(t, err, model.ErrNonMiniscriptScript)
}

func TestMiniscript(t *testing.T) {
	s, metrics := newToolkit(t)
	metrics.EXPECT().Observe(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	key := hex.EncodeToString(testPub(1))
	compiled, err := s.CompilePolicy("pk("+key+")", "")
	require.NoError(t, err)
	require.Equal(t, "segwitv0", compiled.Context)

	fromText, err := s.MiniscriptInfo(compiled.Miniscript, "wsh")
	require.NoError(t, err)
	fromScript, err := s.MiniscriptInfo(compiled.Hex, "wsh")
	require.NoError(t, err)
	require.Equal(t, fromText, fromScript)

	policy, err := s.PolicyInfo("pk(" + key + ")")
	require.NoError(t, err)
	require.Equal(t, 1, policy.Keys)

	_, err = s.CompilePolicy("pk("+key+")", "tapscript")
	require.ErrorIs(t, err, model.ErrInvalidEncoding)
}

func TestDescriptor(t *testing.T) {
	s, metrics := newToolkit(t)
	metrics.EXPECT().Observe("descriptor checksum", nil, gomock.Any()).Times(1)
	metrics.EXPECT().Observe("descriptor info", nil, gomock.Any()).Times(1)

	desc, err := s.DescriptorChecksum("wpkh(" + hex.EncodeToString(testPub(1)) + ")")
	require.NoError(t, err)
	info, err := s.Descriptor(desc)
	require.NoError(t, err)
	require.Equal(t, desc, info.Descriptor)
	require.Equal(t, "wpkh", info.Type)
}

func TestKeys(t *testing.T) {
	s, metrics := newToolkit(t)
	metrics.EXPECT().Observe(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	const one = "0000000000000000000000000000000000000000000000000000000000000001"
	info, err := s.KeyInfo(one)
	require.NoError(t, err)
	require.Equal(t, "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798", info.PublicKey)

	msg := chainhash.HashB([]byte("toolkit"))
	sig, err := s.SignECDSA(one, msg, false)
	require.NoError(t, err)
	der, err := hex.DecodeString(sig.DER)
	require.NoError(t, err)
	v, err := s.VerifyECDSA(testPub(1), msg, der, false)
	require.NoError(t, err)
	require.True(t, v.Valid)

	schnorrSig, err := s.SignSchnorr(one, msg, false)
	require.NoError(t, err)
	v, err = s.VerifySchnorr(testPub(1)[1:], msg, schnorrSig, false)
	require.NoError(t, err)
	require.True(t, v.Valid)

	neg, err := s.NegatePublicKey(testPub(1))
	require.NoError(t, err)
	sum, err := s.CombinePublicKeys([][]byte{testPub(1), testPub(2)})
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(testPub(3)), sum.PublicKey)
	_, err = s.CombinePublicKeys([][]byte{testPub(1), mustHex(t, neg.PublicKey)})
	require.ErrorIs(t, err, model.ErrInvalidEncoding)

	var tweak [32]byte
	tweak[31] = 2
	tweaked, err := s.TweakAddPublicKey(testPub(1), tweak[:])
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(testPub(3)), tweaked.PublicKey)
}

func TestMnemonicKeys(t *testing.T) {
	s, metrics := newToolkit(t)
	metrics.EXPECT().Observe(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	const words = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	info, err := s.MnemonicInfo(words, "TREZOR")
	require.NoError(t, err)
	require.Equal(t, "00000000000000000000000000000000", info.Entropy)

	master, err := s.MasterKey(words, "", "")
	require.NoError(t, err)
	derived, err := s.MasterKey(words, "", "m/84'/0'/0'/0/0")
	require.NoError(t, err)
	require.Equal(t, uint8(5), derived.Depth)

	fromXprv, err := s.ExtendedKeyInfo(master.Xpriv, "m/84'/0'/0'/0/0")
	require.NoError(t, err)
	require.Equal(t, derived.Xpub, fromXprv.Xpub)

	_, err = s.ExtendedKeyInfo(master.Xpub, "m/0'")
	require.ErrorIs(t, err, model.ErrInvalidDerivation)

	fresh, err := s.NewMnemonic(128, "")
	require.NoError(t, err)
	require.Len(t, fresh.Words, 12)

	_, err = s.MnemonicInfo("abandon abandon", "")
	require.ErrorIs(t, err, model.ErrInvalidMnemonic)
}

func TestPsbtFlow(t *testing.T) {
	s, metrics := newToolkit(t)
	metrics.EXPECT().Observe(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	spent, err := script.PayToWitnessPubKeyHash(btcutil.Hash160(testPub(1)))
	require.NoError(t, err)
	dest, err := script.PayToWitnessPubKeyHash(btcutil.Hash160(testPub(2)))
	require.NoError(t, err)
	unsigned := codec.Transaction{
		Version: 2,
		Inputs: []codec.Input{{
			PreviousOutPoint: codec.OutPoint{Hash: chainhash.Hash{7}, Index: 0},
			Sequence:         0xfffffffd,
		}},
		Outputs: []codec.Output{{Value: 9_000, PkScript: dest}},
	}

	packet, err := s.CreatePsbt(codec.EncodeTransaction(unsigned))
	require.NoError(t, err)

	_, err = s.ExtractPsbt(packet)
	require.ErrorIs(t, err, model.ErrIncompletePsbt)

	sig := append(ecdsa.Sign(testPriv(1), chainhash.HashB([]byte("sighash"))).Serialize(), byte(txscript.SigHashAll))
	withUtxo, err := s.UpdatePsbt(packet, 0, PsbtUpdate{
		WitnessUtxo: &codec.Output{Value: 10_000, PkScript: spent},
	})
	require.NoError(t, err)
	withSig, err := s.UpdatePsbt(packet, 0, PsbtUpdate{
		WitnessUtxo: &codec.Output{Value: 10_000, PkScript: spent},
		PartialSigs: []PartialSig{{PubKey: testPub(1), Signature: sig}},
	})
	require.NoError(t, err)

	merged, err := s.MergePsbts([]string{withUtxo, withSig})
	require.NoError(t, err)

	info, err := s.InspectPsbt(merged)
	require.NoError(t, err)
	require.False(t, info.Complete)
	require.NotNil(t, info.Fee)
	require.Equal(t, int64(1_000), *info.Fee)

	final, err := s.FinalizePsbt(merged)
	require.NoError(t, err)
	raw, err := s.ExtractPsbt(final)
	require.NoError(t, err)

	tx, err := codec.DecodeTransaction(raw)
	require.NoError(t, err)
	require.Equal(t, [][]byte{sig, testPub(1)}, tx.Inputs[0].Witness)

	_, err = s.UpdatePsbt(packet, 3, PsbtUpdate{RedeemScript: []byte{txscript.OP_TRUE}})
	require.ErrorIs(t, err, model.ErrInvalidEncoding)
}

func TestDecodeInvoice(t *testing.T) {
	s, metrics := newToolkit(t)
	metrics.EXPECT().Observe("decode invoice", gomock.Not(nil), gomock.Any()).Times(1)

	_, err := s.DecodeInvoice("lnbc1invalid")
	require.ErrorIs(t, err, model.ErrInvalidEncoding)
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}
