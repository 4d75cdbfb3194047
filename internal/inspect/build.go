package inspect

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/btctoolkit/internal/address"
	"github.com/goodnatureofminers/btctoolkit/internal/codec"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// Build assembles a transaction from its info view. Derived fields (txid,
// sizes, asm, types) are ignored. An output script may be given either as
// hex or as an address on network; hex wins when both are set.
func Build(info model.TransactionInfo, network model.Network) (codec.Transaction, error) {
	const op = "build transaction"
	tx := codec.Transaction{
		Version:  info.Version,
		LockTime: info.LockTime,
		Inputs:   make([]codec.Input, 0, len(info.Inputs)),
		Outputs:  make([]codec.Output, 0, len(info.Outputs)),
	}
	for i, in := range info.Inputs {
		field := fmt.Sprintf("inputs[%d]", i)
		hash, err := chainhash.NewHashFromStr(in.TxID)
		if err != nil {
			return codec.Transaction{}, model.NewError(model.ErrInvalidEncoding, op, field+".txid", err)
		}
		scriptSig, err := hex.DecodeString(in.ScriptSig.Hex)
		if err != nil {
			return codec.Transaction{}, model.NewError(model.ErrInvalidEncoding, op, field+".script_sig", err)
		}
		witness := make([][]byte, 0, len(in.Witness))
		for j, item := range in.Witness {
			b, err := hex.DecodeString(item)
			if err != nil {
				return codec.Transaction{}, model.NewError(model.ErrInvalidEncoding, op, fmt.Sprintf("%s.witness[%d]", field, j), err)
			}
			witness = append(witness, b)
		}
		if len(witness) == 0 {
			witness = nil
		}
		tx.Inputs = append(tx.Inputs, codec.Input{
			PreviousOutPoint: codec.OutPoint{Hash: *hash, Index: in.Vout},
			SignatureScript:  scriptSig,
			Sequence:         in.Sequence,
			Witness:          witness,
		})
	}
	for i, out := range info.Outputs {
		field := fmt.Sprintf("outputs[%d]", i)
		if out.Value < 0 {
			return codec.Transaction{}, model.Errorf(model.ErrInvalidEncoding, op, field+".value", "negative value %d", out.Value)
		}
		pkScript, err := outputScript(out.ScriptPubKey, network)
		if err != nil {
			return codec.Transaction{}, fmt.Errorf("%s %s: %w", op, field, err)
		}
		tx.Outputs = append(tx.Outputs, codec.Output{Value: out.Value, PkScript: pkScript})
	}
	return tx, nil
}

func outputScript(s model.ScriptInfo, network model.Network) ([]byte, error) {
	if s.Hex == "" && s.Address != "" {
		return address.AddressToScript(s.Address, network)
	}
	b, err := hex.DecodeString(s.Hex)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, "decode script", "hex", err)
	}
	return b, nil
}
