package inspect

import (
	"encoding/hex"

	"github.com/goodnatureofminers/btctoolkit/internal/codec"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// Transaction builds the info view of tx, resolving output addresses on network.
func Transaction(tx codec.Transaction, network model.Network) model.TransactionInfo {
	info := model.TransactionInfo{
		TxID:             tx.TxID().String(),
		WTxID:            tx.WTxID().String(),
		Size:             tx.Size(),
		Weight:           tx.Weight(),
		VSize:            tx.VSize(),
		Version:          tx.Version,
		LockTime:         tx.LockTime,
		Inputs:           make([]model.InputInfo, 0, len(tx.Inputs)),
		Outputs:          make([]model.OutputInfo, 0, len(tx.Outputs)),
		TotalOutputValue: tx.TotalOutputValue(),
	}
	for _, in := range tx.Inputs {
		info.Inputs = append(info.Inputs, model.InputInfo{
			Prevout:   in.PreviousOutPoint.String(),
			TxID:      in.PreviousOutPoint.Hash.String(),
			Vout:      in.PreviousOutPoint.Index,
			ScriptSig: UnlockingScript(in.SignatureScript),
			Sequence:  in.Sequence,
			Witness:   hexStack(in.Witness),
		})
	}
	for _, out := range tx.Outputs {
		info.Outputs = append(info.Outputs, model.OutputInfo{
			Value:        out.Value,
			ScriptPubKey: Script(out.PkScript, network),
		})
	}
	return info
}

func hexStack(items [][]byte) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = hex.EncodeToString(item)
	}
	return out
}
