package address

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/script"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestAddressToScript(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		network model.Network
		want    string
	}{
		{name: "p2pkh genesis", addr: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", network: model.Mainnet,
			want: "76a91462e907b15cbf27d5425399ebf6f0fb50ebb88f1888ac"},
		{name: "p2pkh", addr: "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", network: model.Mainnet,
			want: "76a91477bff20c60e522dfaa3350c39b030a5d004e839a88ac"},
		{name: "p2sh", addr: "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", network: model.Mainnet,
			want: "a914b472a266d0bd89c13706a4132ccfb16f7c3b9fcb87"},
		{name: "p2wpkh upper case", addr: "BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4", network: model.Mainnet,
			want: "0014751e76e8199196d454941c45d1b3a323f1433bd6"},
		{name: "p2wsh testnet", addr: "tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3q0sl5k7", network: model.Testnet,
			want: "00201863143c14c5166804bd19203356da136c985678cd4d27a1b8c6329604903262"},
		{name: "p2tr", addr: "bc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vqzk5jj0", network: model.Mainnet,
			want: "512079be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"},
		{name: "v1 40 bytes", addr: "bc1pw508d6qejxtdg4y5r3zarvary0c5xw7kw508d6qejxtdg4y5r3zarvary0c5xw7kt5nd6y", network: model.Mainnet,
			want: "5128751e76e8199196d454941c45d1b3a323f1433bd6751e76e8199196d454941c45d1b3a323f1433bd6"},
		{name: "v16", addr: "BC1SW50QGDZ25J", network: model.Mainnet, want: "6002751e"},
		{name: "v2", addr: "bc1zw508d6qejxtdg4y5r3zarvaryvaxxpcs", network: model.Mainnet,
			want: "5210751e76e8199196d454941c45d1b3a323"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddressToScript(tt.addr, tt.network)
			require.NoError(t, err)
			require.Equal(t, tt.want, hex.EncodeToString(got))
		})
	}
}

func TestAddressToScript_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		network model.Network
		field   string
	}{
		{name: "unknown hrp", addr: "tc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vq5zuyut", network: model.Mainnet},
		{name: "bech32 for v1", addr: "bc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vqh2y7hd", network: model.Mainnet, field: "checksum"},
		{name: "bech32 for v16", addr: "BC1S0XLXVLHEMJA6C4DQV22UAPCTQUPFHLXM9H8Z3K2E72Q4K9HCZ7VQ54WELL", network: model.Mainnet, field: "checksum"},
		{name: "bech32m for v0", addr: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kemeawh", network: model.Mainnet, field: "checksum"},
		{name: "invalid checksum character", addr: "bc1p38j9r5y49hruaue7wxjce0updqjuyyx0kh56v8s25huc6995vvpql3jow4", network: model.Mainnet},
		{name: "witness version 17", addr: "BC130XLXVLHEMJA6C4DQV22UAPCTQUPFHLXM9H8Z3K2E72Q4K9HCZ7VQ7ZWS8R", network: model.Mainnet, field: "witness version"},
		{name: "program too short", addr: "bc1pw5dgrnzv", network: model.Mainnet},
		{name: "v0 program length", addr: "BC1QR508D6QEJXTDG4Y5R3ZARVARYV98GJ9P", network: model.Mainnet, field: "witness program"},
		{name: "mixed case", addr: "tb1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vq47Zagq", network: model.Testnet},
		{name: "wrong network bech32", addr: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", network: model.Testnet, field: "network"},
		{name: "wrong network base58", addr: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", network: model.Regtest, field: "network"},
		{name: "bad base58 checksum", addr: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb", network: model.Mainnet, field: "checksum"},
		{name: "garbage", addr: "not an address", network: model.Mainnet},
		{name: "empty", addr: "", network: model.Mainnet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AddressToScript(tt.addr, tt.network)
			require.ErrorIs(t, err, model.ErrInvalidAddress)
			if tt.field != "" {
				var e *model.Error
				require.True(t, errors.As(err, &e))
				require.Equal(t, tt.field, e.Field)
			}
		})
	}
}

func TestScriptToAddress(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		network model.Network
		want    string
		wantErr error
	}{
		{name: "p2pkh", script: "76a91462e907b15cbf27d5425399ebf6f0fb50ebb88f1888ac", network: model.Mainnet,
			want: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{name: "p2wpkh", script: "0014751e76e8199196d454941c45d1b3a323f1433bd6", network: model.Mainnet,
			want: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"},
		{name: "p2wsh", script: "00201863143c14c5166804bd19203356da136c985678cd4d27a1b8c6329604903262", network: model.Testnet,
			want: "tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3q0sl5k7"},
		{name: "p2tr", script: "512079be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798", network: model.Mainnet,
			want: "bc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vqzk5jj0"},
		{name: "v16", script: "6002751e", network: model.Mainnet, want: "bc1sw50qgdz25j"},
		{name: "op_return", script: "6a0568656c6c6f", network: model.Mainnet, wantErr: model.ErrUnencodableScript},
		{name: "multisig", script: "51210279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f8179851ae",
			network: model.Mainnet, wantErr: model.ErrUnencodableScript},
		{name: "empty", script: "", network: model.Mainnet, wantErr: model.ErrUnencodableScript},
		{name: "unknown network", script: "0014751e76e8199196d454941c45d1b3a323f1433bd6", network: "liquid",
			wantErr: model.ErrUnencodableScript},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := hex.DecodeString(tt.script)
			require.NoError(t, err)
			got, err := ScriptToAddress(b, tt.network)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)

			back, err := AddressToScript(got, tt.network)
			require.NoError(t, err)
			require.Equal(t, b, back)
		})
	}
}

func TestFromPublicKey(t *testing.T) {
	g, err := hex.DecodeString("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	require.NoError(t, err)
	addrs, err := FromPublicKey(g, model.Mainnet)
	require.NoError(t, err)
	require.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", addrs.P2PKH)
	require.Equal(t, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", addrs.P2WPKH)

	nested, err := AddressToScript(addrs.P2SHWPKH, model.Mainnet)
	require.NoError(t, err)
	wpkh, err := script.PayToWitnessPubKeyHash(btcutil.Hash160(g))
	require.NoError(t, err)
	require.Equal(t, btcutil.Hash160(wpkh), script.New(nested).Payload())

	bip86, err := hex.DecodeString("02cc8a4bc64d897bddc5fbc2f670f7a8ba0b386779106cf1223c6fc5d7cd6fc115")
	require.NoError(t, err)
	addrs, err = FromPublicKey(bip86, model.Mainnet)
	require.NoError(t, err)
	require.Equal(t, "bc1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqkedrcr", addrs.P2TR)

	uncompressed := append([]byte{0x04}, make([]byte, 64)...)
	_, err = FromPublicKey(uncompressed, model.Mainnet)
	require.ErrorIs(t, err, model.ErrInvalidEncoding)
}

func TestFromScript(t *testing.T) {
	redeem, err := hex.DecodeString("51210279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f8179851ae")
	require.NoError(t, err)

	addrs, err := FromScript(redeem, model.Regtest, nil)
	require.NoError(t, err)
	require.Empty(t, addrs.P2TR)
	require.Equal(t, "bcrt1", addrs.P2WSH[:5])

	wsh, err := AddressToScript(addrs.P2WSH, model.Regtest)
	require.NoError(t, err)
	require.Equal(t, script.New(redeem).WitnessHash(), script.New(wsh).Payload())

	internal, err := btcec.ParsePubKey(mustHex(t, "0250929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"))
	require.NoError(t, err)
	addrs, err = FromScript(redeem, model.Regtest, internal)
	require.NoError(t, err)
	tr, err := AddressToScript(addrs.P2TR, model.Regtest)
	require.NoError(t, err)
	require.Equal(t, script.P2TR, script.Classify(tr))
}

func TestInspect(t *testing.T) {
	info, err := Inspect("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", "bitcoin")
	require.NoError(t, err)
	require.Equal(t, model.Mainnet, info.Network)
	require.Equal(t, "p2wpkh", info.Type)
	require.Equal(t, "751e76e8199196d454941c45d1b3a323f1433bd6", info.WitnessPubKeyHash)
	require.NotNil(t, info.WitnessProgramVersion)
	require.Equal(t, 0, *info.WitnessProgramVersion)
	require.Equal(t, "0 751e76e8199196d454941c45d1b3a323f1433bd6", info.ScriptPubKey.Asm)

	info, err = Inspect("3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", model.Mainnet)
	require.NoError(t, err)
	require.Equal(t, "p2sh", info.Type)
	require.Equal(t, "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb", info.ScriptHash)
	require.Nil(t, info.WitnessProgramVersion)

	info, err = Inspect("bc1zw508d6qejxtdg4y5r3zarvaryvaxxpcs", model.Mainnet)
	require.NoError(t, err)
	require.Equal(t, "unknown-witness-program-version", info.Type)
	require.Equal(t, 2, *info.WitnessProgramVersion)

	_, err = Inspect("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", model.Signet)
	require.ErrorIs(t, err, model.ErrInvalidAddress)
}
