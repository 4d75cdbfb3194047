package codec

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func serialize(t *testing.T, msg *wire.MsgTx) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, msg.Serialize(&buf))
	return buf.Bytes()
}

func segwitMsgTx() *wire.MsgTx {
	msg := wire.NewMsgTx(2)
	prev := chainhash.DoubleHashH([]byte("prev"))
	in := wire.NewTxIn(wire.NewOutPoint(&prev, 1), nil, wire.TxWitness{
		bytes.Repeat([]byte{0x30}, 71),
		append([]byte{0x02}, bytes.Repeat([]byte{0x11}, 32)...),
	})
	in.Sequence = 0xfffffffd
	msg.AddTxIn(in)
	msg.AddTxOut(wire.NewTxOut(90_000, append([]byte{0x00, 0x14}, bytes.Repeat([]byte{0x22}, 20)...)))
	msg.AddTxOut(wire.NewTxOut(5_000, []byte{0x6a}))
	msg.LockTime = 800_000
	return msg
}

func TestDecodeTransaction_Genesis(t *testing.T) {
	genesis := chaincfg.MainNetParams.GenesisBlock.Transactions[0]
	raw := serialize(t, genesis)

	tx, err := DecodeTransaction(raw)
	require.NoError(t, err)

	require.Equal(t, int32(1), tx.Version)
	require.Len(t, tx.Inputs, 1)
	require.Len(t, tx.Outputs, 1)
	require.Equal(t, uint32(0xffffffff), tx.Inputs[0].PreviousOutPoint.Index)
	require.Equal(t, int64(5_000_000_000), tx.Outputs[0].Value)
	require.False(t, tx.HasWitness())
	require.Equal(t, genesis.TxHash(), tx.TxID())
	require.Equal(t, tx.TxID(), tx.WTxID())
	require.Equal(t, 204, tx.Size())
	require.Equal(t, 204, tx.StrippedSize())
	require.Equal(t, int64(816), tx.Weight())
	require.Equal(t, int64(204), tx.VSize())
	require.Equal(t, raw, EncodeTransaction(tx))
}

func TestDecodeTransaction_Segwit(t *testing.T) {
	msg := segwitMsgTx()
	raw := serialize(t, msg)

	tx, err := DecodeTransaction(raw)
	require.NoError(t, err)
	require.True(t, tx.HasWitness())
	require.Len(t, tx.Inputs[0].Witness, 2)
	require.Empty(t, tx.Inputs[0].SignatureScript)

	require.Equal(t, raw, EncodeTransaction(tx))
	var stripped bytes.Buffer
	require.NoError(t, msg.SerializeNoWitness(&stripped))
	require.Equal(t, stripped.Bytes(), EncodeTransactionNoWitness(tx))

	require.Equal(t, msg.TxHash(), tx.TxID())
	require.Equal(t, msg.WitnessHash(), tx.WTxID())
	require.Equal(t, int64(3*tx.StrippedSize()+tx.Size()), tx.Weight())
	require.Equal(t, (tx.Weight()+3)/4, tx.VSize())

	back := tx.MsgTx()
	require.Equal(t, raw, serialize(t, back))
	require.Equal(t, tx, FromMsgTx(back))
}

func TestDecodeTransaction_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "empty", raw: "", want: model.ErrTruncatedInput},
		{name: "version only", raw: "01000000", want: model.ErrTruncatedInput},
		{name: "short version", raw: "0100", want: model.ErrTruncatedInput},
		{
			name: "input count beyond data",
			raw:  "01000000" + "05" + "00",
			want: model.ErrTruncatedInput,
		},
		{
			name: "superfluous witness record",
			raw: "01000000" + "0001" + "01" + hex.EncodeToString(make([]byte, 36)) + "00" + "ffffffff" +
				"01" + "0000000000000000" + "00" + "00" + "00000000",
			want: model.ErrInvalidEncoding,
		},
		{
			name: "unknown flag",
			raw: "01000000" + "0002" + "01" + hex.EncodeToString(make([]byte, 36)) + "00" + "ffffffff" +
				"01" + "0000000000000000" + "00" + "00000000",
			want: model.ErrInvalidEncoding,
		},
		{
			name: "script length beyond data",
			raw:  "01000000" + "01" + hex.EncodeToString(make([]byte, 36)) + "fd0010" + "ffffffff",
			want: model.ErrTruncatedInput,
		},
		{
			name: "trailing bytes",
			raw:  "01000000" + "00" + "00" + "00000000" + "ff",
			want: model.ErrInvalidEncoding,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTransaction(mustHex(t, tt.raw))
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeTransaction() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeTransaction_ErrorOffset(t *testing.T) {
	_, err := DecodeTransaction(mustHex(t, "01000000"))
	var e *model.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, 4, e.Offset)
}

func TestDecodeTransactionPrefix(t *testing.T) {
	raw := serialize(t, segwitMsgTx())
	tx, n, err := DecodeTransactionPrefix(append(append([]byte{}, raw...), 0xde, 0xad))
	require.NoError(t, err)
	require.Equal(t, len(raw), n)
	require.Equal(t, raw, EncodeTransaction(tx))
}

func TestDecodeTransaction_NoInputsNoOutputs(t *testing.T) {
	raw := mustHex(t, "02000000"+"00"+"00"+"00000000")
	tx, err := DecodeTransaction(raw)
	require.NoError(t, err)
	require.Empty(t, tx.Inputs)
	require.Empty(t, tx.Outputs)
	require.Equal(t, raw, EncodeTransaction(tx))
}

func TestComponentCodecs(t *testing.T) {
	msg := segwitMsgTx()
	tx := FromMsgTx(msg)

	in, n, err := DecodeInput(EncodeInput(tx.Inputs[0]))
	require.NoError(t, err)
	require.Equal(t, 41, n)
	require.Equal(t, tx.Inputs[0].PreviousOutPoint, in.PreviousOutPoint)
	require.Equal(t, tx.Inputs[0].Sequence, in.Sequence)

	out, _, err := DecodeOutput(EncodeOutput(tx.Outputs[0]))
	require.NoError(t, err)
	require.Equal(t, tx.Outputs[0], out)

	w, _, err := DecodeWitness(EncodeWitness(tx.Inputs[0].Witness))
	require.NoError(t, err)
	require.Equal(t, tx.Inputs[0].Witness, w)

	op, n, err := DecodeOutPoint(EncodeOutPoint(tx.Inputs[0].PreviousOutPoint))
	require.NoError(t, err)
	require.Equal(t, 36, n)
	require.Equal(t, msg.TxIn[0].PreviousOutPoint.String(), op.String())
}

func TestVarInt(t *testing.T) {
	tests := []struct {
		name string
		v    uint64
		want string
	}{
		{name: "single byte", v: 0xfc, want: "fc"},
		{name: "uint16", v: 0xfd, want: "fdfd00"},
		{name: "uint32", v: 0x10000, want: "fe00000100"},
		{name: "uint64", v: 0x100000000, want: "ff0000000001000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hex.EncodeToString(EncodeVarInt(tt.v))
			if got != tt.want {
				t.Errorf("EncodeVarInt() = %v, want %v", got, tt.want)
			}
			v, n, err := DecodeVarInt(mustHex(t, tt.want))
			if err != nil || v != tt.v || n != len(tt.want)/2 {
				t.Errorf("DecodeVarInt() = %v, %v, %v", v, n, err)
			}
		})
	}

	_, _, err := DecodeVarInt(mustHex(t, "fd00"))
	require.ErrorIs(t, err, model.ErrTruncatedInput)
	_, _, err = DecodeVarInt(mustHex(t, "fd0100"))
	require.ErrorIs(t, err, model.ErrInvalidEncoding)
}

func TestClone(t *testing.T) {
	tx := FromMsgTx(segwitMsgTx())
	c := tx.Clone()
	c.Inputs[0].Witness[0][0] = 0xff
	c.Outputs[0].PkScript[0] = 0xff
	require.Equal(t, byte(0x30), tx.Inputs[0].Witness[0][0])
	require.Equal(t, byte(0x00), tx.Outputs[0].PkScript[0])
}

func genBytes(max int) *rapid.Generator[[]byte] {
	return rapid.SliceOfN(rapid.Byte(), 0, max)
}

func genTransaction() *rapid.Generator[Transaction] {
	return rapid.Custom(func(t *rapid.T) Transaction {
		tx := Transaction{
			Version:  rapid.Int32().Draw(t, "version"),
			LockTime: rapid.Uint32().Draw(t, "locktime"),
		}
		nIn := rapid.IntRange(1, 4).Draw(t, "inputs")
		for i := 0; i < nIn; i++ {
			var in Input
			copy(in.PreviousOutPoint.Hash[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "hash"))
			in.PreviousOutPoint.Index = rapid.Uint32().Draw(t, "index")
			in.SignatureScript = genBytes(80).Draw(t, "scriptSig")
			in.Sequence = rapid.Uint32().Draw(t, "sequence")
			if n := rapid.IntRange(0, 3).Draw(t, "witness items"); n > 0 {
				in.Witness = make([][]byte, n)
				for j := range in.Witness {
					in.Witness[j] = genBytes(80).Draw(t, "witness item")
				}
			}
			tx.Inputs = append(tx.Inputs, in)
		}
		nOut := rapid.IntRange(0, 4).Draw(t, "outputs")
		for i := 0; i < nOut; i++ {
			tx.Outputs = append(tx.Outputs, Output{
				Value:    rapid.Int64().Draw(t, "value"),
				PkScript: genBytes(60).Draw(t, "pkScript"),
			})
		}
		return tx
	})
}

func TestTransactionRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tx := genTransaction().Draw(t, "tx")
		raw := EncodeTransaction(tx)

		decoded, err := DecodeTransaction(raw)
		if err != nil {
			t.Fatalf("DecodeTransaction() error = %v", err)
		}
		if !bytes.Equal(raw, EncodeTransaction(decoded)) {
			t.Fatalf("re-encoding differs")
		}
		if decoded.TxID() != tx.TxID() || decoded.WTxID() != tx.WTxID() {
			t.Fatalf("ids differ after round trip")
		}
		if decoded.HasWitness() != tx.HasWitness() {
			t.Fatalf("HasWitness() = %v, want %v", decoded.HasWitness(), tx.HasWitness())
		}

		var msg wire.MsgTx
		if err := msg.Deserialize(bytes.NewReader(raw)); err != nil {
			t.Fatalf("wire Deserialize() error = %v", err)
		}
		if msg.TxHash() != decoded.TxID() {
			t.Fatalf("txid mismatch with wire")
		}
	})
}

func TestDecodeTransaction_NeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), 0, 200).Draw(t, "raw")
		tx, err := DecodeTransaction(raw)
		if err != nil {
			if !errors.Is(err, model.ErrTruncatedInput) && !errors.Is(err, model.ErrInvalidEncoding) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			return
		}
		if len(tx.Inputs) > 0 && !bytes.Equal(raw, EncodeTransaction(tx)) {
			t.Fatalf("accepted bytes do not re-encode identically")
		}
	})
}
