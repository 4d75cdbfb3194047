package service

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/txscript"
	"github.com/goodnatureofminers/btctoolkit/internal/codec"
	"github.com/goodnatureofminers/btctoolkit/internal/keys"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/psbt"
)

// PsbtUpdate lists the records to add to one input. Zero fields are skipped.
type PsbtUpdate struct {
	WitnessUtxo    *codec.Output
	NonWitnessUtxo []byte
	RedeemScript   []byte
	WitnessScript  []byte
	SighashType    *txscript.SigHashType
	PartialSigs    []PartialSig
	Derivations    []Derivation
	Preimages      []Preimage
}

type PartialSig struct {
	PubKey    []byte
	Signature []byte
}

type Derivation struct {
	PubKey      []byte
	Fingerprint [4]byte
	Path        keys.DerivationPath
}

type Preimage struct {
	Type     psbt.HashType
	Preimage []byte
}

// CreatePsbt wraps an unsigned transaction into a base64 packet.
func (s *Toolkit) CreatePsbt(rawTx []byte) (string, error) {
	return observe(s, "psbt create", func() (string, error) {
		tx, err := codec.DecodeTransaction(rawTx)
		if err != nil {
			return "", err
		}
		p, err := psbt.Create(tx)
		if err != nil {
			return "", err
		}
		return psbt.Base64(p)
	})
}

// UpdatePsbt adds the records of u to input i.
func (s *Toolkit) UpdatePsbt(packet string, i int, u PsbtUpdate) (string, error) {
	return observe(s, "psbt update", func() (string, error) {
		p, err := parsePsbt(packet)
		if err != nil {
			return "", err
		}
		if p, err = applyUpdate(p, i, u); err != nil {
			return "", err
		}
		return psbt.Base64(p)
	})
}

func applyUpdate(p *psbt.Packet, i int, u PsbtUpdate) (*psbt.Packet, error) {
	var err error
	if u.NonWitnessUtxo != nil {
		prev, err := codec.DecodeTransaction(u.NonWitnessUtxo)
		if err != nil {
			return nil, err
		}
		if p, err = psbt.AddNonWitnessUtxo(p, i, prev); err != nil {
			return nil, err
		}
	}
	if u.WitnessUtxo != nil {
		if p, err = psbt.AddWitnessUtxo(p, i, *u.WitnessUtxo); err != nil {
			return nil, err
		}
	}
	if u.RedeemScript != nil {
		if p, err = psbt.AddRedeemScript(p, i, u.RedeemScript); err != nil {
			return nil, err
		}
	}
	if u.WitnessScript != nil {
		if p, err = psbt.AddWitnessScript(p, i, u.WitnessScript); err != nil {
			return nil, err
		}
	}
	if u.SighashType != nil {
		if p, err = psbt.AddSighashType(p, i, *u.SighashType); err != nil {
			return nil, err
		}
	}
	for _, sig := range u.PartialSigs {
		if p, err = psbt.AddPartialSig(p, i, sig.PubKey, sig.Signature); err != nil {
			return nil, err
		}
	}
	for _, d := range u.Derivations {
		if p, err = psbt.AddBip32Derivation(p, i, d.PubKey, d.Fingerprint, d.Path); err != nil {
			return nil, err
		}
	}
	for _, pre := range u.Preimages {
		if p, err = psbt.AddPreimage(p, i, pre.Type, pre.Preimage); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// MergePsbts combines packets of the same unsigned transaction.
func (s *Toolkit) MergePsbts(packets []string) (string, error) {
	return observe(s, "psbt merge", func() (string, error) {
		ps := make([]*psbt.Packet, 0, len(packets))
		for _, packet := range packets {
			p, err := parsePsbt(packet)
			if err != nil {
				return "", err
			}
			ps = append(ps, p)
		}
		p, err := psbt.MergeAll(ps...)
		if err != nil {
			return "", err
		}
		return psbt.Base64(p)
	})
}

// FinalizePsbt finalizes every input.
func (s *Toolkit) FinalizePsbt(packet string) (string, error) {
	return observe(s, "psbt finalize", func() (string, error) {
		p, err := parsePsbt(packet)
		if err != nil {
			return "", err
		}
		if p, err = psbt.FinalizeAll(p); err != nil {
			return "", err
		}
		return psbt.Base64(p)
	})
}

// ExtractPsbt returns the network serialization of a finalized packet.
func (s *Toolkit) ExtractPsbt(packet string) ([]byte, error) {
	return observe(s, "psbt extract", func() ([]byte, error) {
		p, err := parsePsbt(packet)
		if err != nil {
			return nil, err
		}
		tx, err := psbt.Extract(p)
		if err != nil {
			return nil, err
		}
		return codec.EncodeTransaction(tx), nil
	})
}

// InspectPsbt summarizes a packet.
func (s *Toolkit) InspectPsbt(packet string) (model.PsbtInfo, error) {
	return observe(s, "psbt inspect", func() (model.PsbtInfo, error) {
		p, err := parsePsbt(packet)
		if err != nil {
			return model.PsbtInfo{}, err
		}
		return psbt.Inspect(p, s.network), nil
	})
}

// parsePsbt accepts the base64 or hex text form.
func parsePsbt(s string) (*psbt.Packet, error) {
	s = strings.TrimSpace(s)
	if raw, err := hex.DecodeString(s); err == nil {
		return psbt.Parse(raw)
	}
	return psbt.ParseBase64(s)
}
