package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

const (
	genesisTxID = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
	pubKeyHex   = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
)

func txHex(t *testing.T, tx *wire.MsgTx) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	return hex.EncodeToString(buf.Bytes())
}

func genesisHex(t *testing.T) string {
	return txHex(t, chaincfg.MainNetParams.GenesisBlock.Transactions[0])
}

func unsignedHex(t *testing.T) string {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{1}, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(50_000, append([]byte{0x00, 0x14}, make([]byte, 20)...)))
	return txHex(t, tx)
}

func execute(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--log-format=none"}, args...)
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		stdin      string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "tx decode argument",
			args:       []string{"tx", "decode", genesisHex(t)},
			wantStdout: genesisTxID,
		},
		{
			name:       "tx decode stdin",
			stdin:      genesisHex(t) + "\n",
			args:       []string{"tx", "decode"},
			wantStdout: genesisTxID,
		},
		{
			name:       "tx decode core shape",
			args:       []string{"tx", "decode", "--core", genesisHex(t)},
			wantStdout: `"vout"`,
		},
		{
			name:       "batch reports item errors",
			stdin:      genesisHex(t) + "\n0100\n",
			args:       []string{"tx", "decode"},
			wantStdout: "truncated input",
		},
		{
			name:       "truncated transaction",
			args:       []string{"tx", "decode", "0100"},
			wantCode:   model.ExitCode(model.ErrTruncatedInput),
			wantStderr: "truncated input",
		},
		{
			name:       "bad hex",
			args:       []string{"tx", "decode", "zz"},
			wantCode:   model.ExitCode(model.ErrInvalidEncoding),
			wantStderr: "invalid encoding",
		},
		{
			name:       "no input",
			args:       []string{"tx", "decode"},
			wantCode:   1,
			wantStderr: errNoInput.Error(),
		},
		{
			name:     "unknown flag",
			args:     []string{"tx", "decode", "--nope"},
			wantCode: exitUsage,
		},
		{
			name:     "unknown network",
			args:     []string{"--network", "moon", "script", "decode", "51"},
			wantCode: 1,
		},
		{
			name:       "help",
			args:       []string{"--help"},
			wantStdout: "Usage",
		},
		{
			name:       "script decode",
			args:       []string{"script", "decode", "0014751e76e8199196d454941c45d1b3a323f1433bd6"},
			wantStdout: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		},
		{
			name:       "address on testnet",
			args:       []string{"-n", "testnet", "address", "inspect", "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"},
			wantStdout: "0014751e76e8199196d454941c45d1b3a323f1433bd6",
		},
		{
			name:       "miniscript alias",
			args:       []string{"ms", "compile", "pk(" + pubKeyHex + ")"},
			wantStdout: pubKeyHex + "ac",
		},
		{
			name:       "psbt create",
			args:       []string{"psbt", "create", unsignedHex(t)},
			wantStdout: "cHNidP8",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := execute(t, tt.stdin, tt.args...)
			require.Equal(t, tt.wantCode, code, "stderr: %s", stderr)
			if tt.wantStdout != "" {
				require.Contains(t, stdout, tt.wantStdout)
			}
			if tt.wantStderr != "" {
				require.Contains(t, stderr, tt.wantStderr)
			}
		})
	}
}

func TestRun_Stream(t *testing.T) {
	stdin := genesisHex(t) + "\nzz\n\n0100\n" + genesisHex(t) + "\n"
	code, stdout, stderr := execute(t, stdin, "tx", "decode", "--stream", "--batch-size", "2", "--rate", "100")
	require.Equal(t, 0, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], genesisTxID)
	require.Contains(t, lines[1], "invalid encoding")
	require.Contains(t, lines[2], "truncated input")
	require.Contains(t, lines[3], genesisTxID)

	code, _, _ = execute(t, "", "tx", "decode", "--stream", "--core")
	require.Equal(t, 1, code)
}

func TestRun_PsbtRoundTrip(t *testing.T) {
	code, packet, stderr := execute(t, "", "psbt", "create", unsignedHex(t))
	require.Equal(t, 0, code, stderr)

	code, updated, stderr := execute(t, packet, "psbt", "update",
		"--witness-utxo", "60000:0014751e76e8199196d454941c45d1b3a323f1433bd6",
		"--sighash", "ALL")
	require.Equal(t, 0, code, stderr)

	code, info, stderr := execute(t, updated, "psbt", "inspect")
	require.Equal(t, 0, code, stderr)
	require.Contains(t, info, `"value": 60000`)

	code, _, stderr = execute(t, strings.TrimSpace(packet)+"\n"+strings.TrimSpace(updated)+"\n", "psbt", "merge")
	require.Equal(t, 0, code, stderr)

	code, _, stderr = execute(t, updated, "psbt", "extract")
	require.Equal(t, model.ExitCode(model.ErrIncompletePsbt), code, stderr)
}

func TestParseSighash(t *testing.T) {
	tests := []struct {
		in      string
		want    txscript.SigHashType
		wantErr bool
	}{
		{in: "ALL", want: txscript.SigHashAll},
		{in: "none", want: txscript.SigHashNone},
		{in: "SINGLE|ANYONECANPAY", want: txscript.SigHashSingle | txscript.SigHashAnyOneCanPay},
		{in: "0x81", want: txscript.SigHashAll | txscript.SigHashAnyOneCanPay},
		{in: "3", want: txscript.SigHashSingle},
		{in: "SOME", wantErr: true},
		{in: "ALL|EVERYONE", wantErr: true},
		{in: "4294967296", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSighash(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseDerivation(t *testing.T) {
	d, err := parseDerivation(pubKeyHex + ":d34db33f/84'/0'/1")
	require.NoError(t, err)
	require.Equal(t, [4]byte{0xd3, 0x4d, 0xb3, 0x3f}, d.Fingerprint)
	require.Equal(t, []uint32{0x80000054, 0x80000000, 1}, []uint32(d.Path))

	d, err = parseDerivation(pubKeyHex + ":d34db33f")
	require.NoError(t, err)
	require.Empty(t, d.Path)

	_, err = parseDerivation(pubKeyHex + ":d34d/0")
	require.ErrorIs(t, err, model.ErrInvalidEncoding)

	_, err = parseDerivation(pubKeyHex)
	require.ErrorIs(t, err, model.ErrInvalidEncoding)
}
