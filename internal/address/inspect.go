package address

import (
	"encoding/hex"

	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/script"
)

// Inspect decodes addr for network and reports its payload.
func Inspect(addr string, network model.Network) (model.AddressInfo, error) {
	params, err := Params(network)
	if err != nil {
		return model.AddressInfo{}, model.NewError(model.ErrInvalidAddress, "inspect address", "network", err)
	}
	pkScript, d, err := decode(addr, params)
	if err != nil {
		return model.AddressInfo{}, err
	}

	s := script.New(pkScript)
	info := model.AddressInfo{
		Network: networkOf(params),
		Type:    d.kind,
		ScriptPubKey: model.ScriptInfo{
			Hex: hex.EncodeToString(pkScript),
			Asm: s.Asm(),
		},
	}
	payload := hex.EncodeToString(d.payload)
	if d.isSegwit {
		version := d.version
		info.WitnessProgramVersion = &version
	}
	switch s.Type() {
	case script.P2PKH:
		info.PubKeyHash = payload
	case script.P2SH:
		info.ScriptHash = payload
	case script.P2WPKH:
		info.WitnessPubKeyHash = payload
	case script.P2WSH:
		info.WitnessScriptHash = payload
	case script.P2TR:
		info.TaprootOutputKey = payload
	default:
		info.Type = "unknown-witness-program-version"
		info.WitnessProgram = payload
	}
	return info, nil
}
