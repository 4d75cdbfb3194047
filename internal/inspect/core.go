package inspect

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/btctoolkit/internal/codec"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/script"
)

// coreTypes maps script types to the names used by the reference node RPC.
var coreTypes = map[script.Type]string{
	script.NonStandard:    "nonstandard",
	script.P2PK:           "pubkey",
	script.P2PKH:          "pubkeyhash",
	script.P2SH:           "scripthash",
	script.P2WPKH:         "witness_v0_keyhash",
	script.P2WSH:          "witness_v0_scripthash",
	script.P2TR:           "witness_v1_taproot",
	script.MultiSig:       "multisig",
	script.OpReturn:       "nulldata",
	script.WitnessUnknown: "witness_unknown",
	script.Miniscript:     "nonstandard",
}

// CoreDecode renders tx the way decoderawtransaction does.
func CoreDecode(tx codec.Transaction, network model.Network) btcjson.TxRawDecodeResult {
	res := btcjson.TxRawDecodeResult{
		Txid:     tx.TxID().String(),
		Version:  tx.Version,
		Locktime: tx.LockTime,
		Vin:      make([]btcjson.Vin, 0, len(tx.Inputs)),
		Vout:     make([]btcjson.Vout, 0, len(tx.Outputs)),
	}
	coinbase := isCoinbase(tx)
	for _, in := range tx.Inputs {
		vin := btcjson.Vin{
			Sequence: in.Sequence,
			Witness:  hexStack(in.Witness),
		}
		if coinbase {
			vin.Coinbase = hex.EncodeToString(in.SignatureScript)
		} else {
			sig := UnlockingScript(in.SignatureScript)
			vin.Txid = in.PreviousOutPoint.Hash.String()
			vin.Vout = in.PreviousOutPoint.Index
			vin.ScriptSig = &btcjson.ScriptSig{Asm: sig.Asm, Hex: sig.Hex}
		}
		res.Vin = append(res.Vin, vin)
	}
	for i, out := range tx.Outputs {
		info := Script(out.PkScript, network)
		spk := btcjson.ScriptPubKeyResult{
			Asm:     info.Asm,
			Hex:     info.Hex,
			Type:    coreTypes[script.Classify(out.PkScript)],
			Address: info.Address,
		}
		res.Vout = append(res.Vout, btcjson.Vout{
			Value:        btcutil.Amount(out.Value).ToBTC(),
			N:            uint32(i),
			ScriptPubKey: spk,
		})
	}
	return res
}

func isCoinbase(tx codec.Transaction) bool {
	if len(tx.Inputs) != 1 {
		return false
	}
	prev := tx.Inputs[0].PreviousOutPoint
	return prev.Index == 0xffffffff && prev.Hash == chainhash.Hash{}
}
