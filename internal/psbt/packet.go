// Package psbt creates, updates, combines, finalizes and extracts BIP174
// partially signed transactions. Every operation returns a new packet and
// leaves its arguments untouched.
package psbt

import (
	"bytes"
	"fmt"

	btcpsbt "github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/goodnatureofminers/btctoolkit/internal/codec"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// Packet is the BIP174 packet representation of btcutil.
type Packet = btcpsbt.Packet

// State is the signing progress of a single input.
type State uint8

const (
	Unsigned State = iota
	PartiallySigned
	Finalized
)

func (s State) String() string {
	switch s {
	case PartiallySigned:
		return "partially_signed"
	case Finalized:
		return "finalized"
	default:
		return "unsigned"
	}
}

// Create wraps an unsigned transaction into an empty packet.
func Create(tx codec.Transaction) (*Packet, error) {
	p, err := btcpsbt.NewFromUnsignedTx(tx.MsgTx())
	if err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, "create psbt", "transaction", err)
	}
	return p, nil
}

// Parse decodes a binary packet.
func Parse(b []byte) (*Packet, error) {
	p, err := btcpsbt.NewFromRawBytes(bytes.NewReader(b), false)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, "parse psbt", "packet", err)
	}
	return p, nil
}

// ParseBase64 decodes the base64 text form.
func ParseBase64(s string) (*Packet, error) {
	p, err := btcpsbt.NewFromRawBytes(bytes.NewReader([]byte(s)), true)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, "parse psbt", "packet", err)
	}
	return p, nil
}

// Serialize encodes p in the binary form.
func Serialize(p *Packet) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Serialize(&buf); err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, "serialize psbt", "packet", err)
	}
	return buf.Bytes(), nil
}

// Base64 encodes p in the text form.
func Base64(p *Packet) (string, error) {
	s, err := p.B64Encode()
	if err != nil {
		return "", model.NewError(model.ErrInvalidEncoding, "serialize psbt", "packet", err)
	}
	return s, nil
}

// clone deep-copies p through its serialization.
func clone(p *Packet) (*Packet, error) {
	b, err := Serialize(p)
	if err != nil {
		return nil, err
	}
	out, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("clone psbt: %w", err)
	}
	return out, nil
}

func checkInput(op string, p *Packet, i int) error {
	if i < 0 || i >= len(p.Inputs) {
		return model.Errorf(model.ErrInvalidEncoding, op, "input", "index %d out of range [0, %d)", i, len(p.Inputs))
	}
	return nil
}

// InputState reports how far input i has progressed.
func InputState(p *Packet, i int) (State, error) {
	if err := checkInput("input state", p, i); err != nil {
		return Unsigned, err
	}
	return inputState(&p.Inputs[i]), nil
}

func inputState(in *btcpsbt.PInput) State {
	switch {
	case in.FinalScriptSig != nil || in.FinalScriptWitness != nil:
		return Finalized
	case len(in.PartialSigs) > 0 || len(in.TaprootKeySpendSig) > 0 || len(in.TaprootScriptSpendSig) > 0:
		return PartiallySigned
	default:
		return Unsigned
	}
}
