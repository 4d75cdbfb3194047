package psbt

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	btcpsbt "github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/goodnatureofminers/btctoolkit/internal/codec"
	"github.com/goodnatureofminers/btctoolkit/internal/inspect"
	"github.com/goodnatureofminers/btctoolkit/internal/keys"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/script"
)

// Inspect summarizes p. The fee is reported only when the value of every
// spent output is known.
func Inspect(p *Packet, network model.Network) model.PsbtInfo {
	tx := p.UnsignedTx
	info := model.PsbtInfo{
		TxID:     tx.TxHash().String(),
		Inputs:   make([]model.PsbtInputInfo, 0, len(p.Inputs)),
		Outputs:  make([]model.PsbtOutputInfo, 0, len(p.Outputs)),
		Complete: len(p.Inputs) > 0,
	}

	var in, out int64
	known := true
	for i := range p.Inputs {
		ii := inspectInput(p, i)
		if ii.Value == nil {
			known = false
		} else {
			in += *ii.Value
		}
		if ii.State != Finalized.String() {
			info.Complete = false
		}
		info.Inputs = append(info.Inputs, ii)
	}
	for i := range p.Outputs {
		txOut := tx.TxOut[i]
		out += txOut.Value
		info.Outputs = append(info.Outputs, model.PsbtOutputInfo{
			Value:        txOut.Value,
			ScriptPubKey: inspect.Script(txOut.PkScript, network),
			Derivations:  derivations(p.Outputs[i].Bip32Derivation),
		})
	}
	if known && len(p.Inputs) > 0 {
		fee := in - out
		info.Fee = &fee
	}
	return info
}

func inspectInput(p *Packet, i int) model.PsbtInputInfo {
	in := &p.Inputs[i]
	ii := model.PsbtInputInfo{
		Prevout:        p.UnsignedTx.TxIn[i].PreviousOutPoint.String(),
		State:          inputState(in).String(),
		RedeemScript:   hexOrEmpty(in.RedeemScript),
		WitnessScript:  hexOrEmpty(in.WitnessScript),
		FinalScriptSig: hexOrEmpty(in.FinalScriptSig),
		Derivations:    derivations(in.Bip32Derivation),
	}
	if utxo, err := spentOutput(p, i); err == nil {
		value := utxo.Value
		ii.Value = &value
		ii.ScriptType = script.Classify(utxo.PkScript).String()
	}
	for _, sig := range in.PartialSigs {
		ii.PartialSigs = append(ii.PartialSigs, hex.EncodeToString(sig.PubKey))
	}
	if len(in.FinalScriptWitness) > 0 {
		if stack, _, err := codec.DecodeWitness(in.FinalScriptWitness); err == nil {
			for _, item := range stack {
				ii.FinalScriptWitness = append(ii.FinalScriptWitness, hex.EncodeToString(item))
			}
		}
	}
	return ii
}

// derivations renders key origins as "[fingerprint/path] pubkey".
func derivations(ds []*btcpsbt.Bip32Derivation) []string {
	if len(ds) == 0 {
		return nil
	}
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		var fp [4]byte
		binary.LittleEndian.PutUint32(fp[:], d.MasterKeyFingerprint)
		path := strings.TrimPrefix(keys.DerivationPath(d.Bip32Path).String(), "m")
		out = append(out, fmt.Sprintf("[%x%s] %x", fp, path, d.PubKey))
	}
	return out
}

func hexOrEmpty(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return hex.EncodeToString(b)
}
