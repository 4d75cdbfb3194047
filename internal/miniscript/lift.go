package miniscript

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// Lift recovers the semantic policy of a script. Standard p2pk, p2pkh and
// bare multisig templates are recognized directly; anything else must
// decode as miniscript in either context.
func Lift(script []byte) (*SemanticPolicy, error) {
	switch txscript.GetScriptClass(script) {
	case txscript.PubKeyTy:
		data, err := txscript.PushedData(script)
		if err == nil && len(data) == 1 {
			return &SemanticPolicy{Kind: SemKey, Key: data[0]}, nil
		}
	case txscript.PubKeyHashTy:
		data, err := txscript.PushedData(script)
		if err == nil && len(data) == 1 {
			return &SemanticPolicy{Kind: SemKeyHash, Hash: data[0]}, nil
		}
	case txscript.MultiSigTy:
		_, k, err := txscript.CalcMultiSigStats(script)
		data, err2 := txscript.PushedData(script)
		if err == nil && err2 == nil {
			subs := make([]*SemanticPolicy, len(data))
			for i, key := range data {
				subs[i] = &SemanticPolicy{Kind: SemKey, Key: key}
			}
			return &SemanticPolicy{Kind: SemThresh, K: k, Subs: subs}, nil
		}
	}

	node, err := Decode(script, SegwitV0)
	if err != nil {
		if node, err = Decode(script, P2SH); err != nil {
			return nil, model.NewError(model.ErrNonMiniscriptScript, "lift script", "script", err)
		}
	}
	return node.Lift(), nil
}
