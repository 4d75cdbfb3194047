package psbt

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	btcpsbt "github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/goodnatureofminers/btctoolkit/internal/codec"
	"github.com/goodnatureofminers/btctoolkit/internal/miniscript"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/script"
)

const finalizeOp = "finalize psbt"

// Finalize builds the final scriptSig and witness of input i from the
// partial signatures, scripts and preimages recorded on it. Signatures are
// not verified. A finalized input keeps only its final fields, utxo records
// and unknown records; finalizing it again is a no-op.
func Finalize(p *Packet, i int) (*Packet, error) {
	if err := checkInput(finalizeOp, p, i); err != nil {
		return nil, err
	}
	out, err := clone(p)
	if err != nil {
		return nil, err
	}
	if err := finalizeInput(out, i); err != nil {
		return nil, err
	}
	return out, nil
}

// FinalizeAll finalizes every input and fails on the first one that cannot
// be completed.
func FinalizeAll(p *Packet) (*Packet, error) {
	out, err := clone(p)
	if err != nil {
		return nil, err
	}
	for i := range out.Inputs {
		if err := finalizeInput(out, i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Extract returns the network transaction of a fully finalized packet.
func Extract(p *Packet) (codec.Transaction, error) {
	for i := range p.Inputs {
		if inputState(&p.Inputs[i]) != Finalized {
			return codec.Transaction{}, model.Errorf(model.ErrIncompletePsbt, "extract psbt", fmt.Sprintf("input %d", i), "input is not finalized")
		}
	}
	tx, err := btcpsbt.Extract(p)
	if err != nil {
		return codec.Transaction{}, model.NewError(model.ErrIncompletePsbt, "extract psbt", "packet", err)
	}
	return codec.FromMsgTx(tx), nil
}

type finalizer struct {
	index  int
	in     *btcpsbt.PInput
	assets miniscript.Assets
}

func finalizeInput(p *Packet, i int) error {
	in := &p.Inputs[i]
	if inputState(in) == Finalized {
		return nil
	}
	utxo, err := spentOutput(p, i)
	if err != nil {
		return err
	}

	f := finalizer{index: i, in: in, assets: assetsFor(p, i)}
	sigScript, witness, err := f.spend(utxo.PkScript)
	if err != nil {
		return err
	}

	if len(sigScript) > 0 {
		in.FinalScriptSig = sigScript
	}
	if len(witness) > 0 {
		in.FinalScriptWitness = codec.EncodeWitness(witness)
		if in.WitnessUtxo == nil {
			in.WitnessUtxo = utxo
		}
	}
	if in.FinalScriptSig == nil && in.FinalScriptWitness == nil {
		in.FinalScriptSig = []byte{}
	}
	clearSigningData(in)
	return nil
}

func clearSigningData(in *btcpsbt.PInput) {
	in.PartialSigs = nil
	in.SighashType = 0
	in.RedeemScript = nil
	in.WitnessScript = nil
	in.Bip32Derivation = nil
	in.TaprootKeySpendSig = nil
	in.TaprootScriptSpendSig = nil
	in.TaprootLeafScript = nil
	in.TaprootBip32Derivation = nil
	in.TaprootInternalKey = nil
	in.TaprootMerkleRoot = nil
	var unknowns []*btcpsbt.Unknown
	for _, kv := range in.Unknowns {
		if !isPreimageKey(kv.Key) {
			unknowns = append(unknowns, kv)
		}
	}
	in.Unknowns = unknowns
}

func assetsFor(p *Packet, i int) miniscript.Assets {
	in := &p.Inputs[i]
	a := miniscript.Assets{
		Signatures: make(map[string][]byte, len(in.PartialSigs)),
		Preimages:  make(map[string][]byte),
		TxVersion:  p.UnsignedTx.Version,
		Sequence:   p.UnsignedTx.TxIn[i].Sequence,
		LockTime:   p.UnsignedTx.LockTime,
	}
	for _, ps := range in.PartialSigs {
		a.Signatures[hex.EncodeToString(ps.PubKey)] = ps.Signature
	}
	for _, kv := range in.Unknowns {
		if isPreimageKey(kv.Key) {
			a.Preimages[hex.EncodeToString(kv.Key[1:])] = kv.Value
		}
	}
	return a
}

func (f finalizer) insufficient(field, format string, args ...any) error {
	return model.Errorf(model.ErrInsufficientData, finalizeOp, fmt.Sprintf("input %d %s", f.index, field), format, args...)
}

func (f finalizer) unsupported(t script.Type) error {
	return model.Errorf(model.ErrUnsupportedInputType, finalizeOp, fmt.Sprintf("input %d", f.index), "cannot finalize a %s spend", t)
}

func (f finalizer) mismatch(field string) error {
	return model.Errorf(model.ErrInvalidEncoding, finalizeOp, fmt.Sprintf("input %d %s", f.index, field), "script does not match the committed hash")
}

// spend returns the final scriptSig and witness for pkScript.
func (f finalizer) spend(pkScript []byte) ([]byte, [][]byte, error) {
	s := script.New(pkScript)
	switch s.Type() {
	case script.P2PK, script.P2PKH, script.MultiSig, script.Miniscript:
		stack, err := f.satisfy(pkScript, script.BareContext)
		if err != nil {
			return nil, nil, err
		}
		sigScript, err := pushes(stack)
		return sigScript, nil, err

	case script.P2WPKH:
		witness, err := f.keyHashSpend(s.Payload())
		return nil, witness, err

	case script.P2WSH:
		witness, err := f.witnessScriptSpend(s.Payload())
		return nil, witness, err

	case script.P2SH:
		return f.scriptHashSpend(s.Payload())

	case script.P2TR:
		witness, err := f.taprootSpend()
		return nil, witness, err

	default:
		return nil, nil, f.unsupported(s.Type())
	}
}

func (f finalizer) scriptHashSpend(hash []byte) ([]byte, [][]byte, error) {
	redeem := f.in.RedeemScript
	if redeem == nil {
		return nil, nil, f.insufficient("redeem_script", "redeem script is missing")
	}
	if !bytes.Equal(btcutil.Hash160(redeem), hash) {
		return nil, nil, f.mismatch("redeem_script")
	}
	pushRedeem, err := pushes([][]byte{redeem})
	if err != nil {
		return nil, nil, err
	}

	r := script.New(redeem)
	switch r.Type() {
	case script.P2WPKH:
		witness, err := f.keyHashSpend(r.Payload())
		return pushRedeem, witness, err
	case script.P2WSH:
		witness, err := f.witnessScriptSpend(r.Payload())
		return pushRedeem, witness, err
	case script.P2SH, script.P2TR, script.WitnessUnknown, script.OpReturn:
		return nil, nil, f.unsupported(r.Type())
	}

	stack, err := f.satisfy(redeem, miniscript.P2SH)
	if err != nil {
		return nil, nil, err
	}
	sigScript, err := pushes(append(stack, redeem))
	return sigScript, nil, err
}

func (f finalizer) witnessScriptSpend(hash []byte) ([][]byte, error) {
	ws := f.in.WitnessScript
	if ws == nil {
		return nil, f.insufficient("witness_script", "witness script is missing")
	}
	if sum := sha256.Sum256(ws); !bytes.Equal(sum[:], hash) {
		return nil, f.mismatch("witness_script")
	}
	stack, err := f.satisfy(ws, miniscript.SegwitV0)
	if err != nil {
		return nil, err
	}
	return append(stack, ws), nil
}

// satisfy builds the stack satisfying sc, the spent script itself or a
// redeem or witness script.
func (f finalizer) satisfy(sc []byte, ctx miniscript.Context) ([][]byte, error) {
	s := script.New(sc)
	switch s.Type() {
	case script.P2PK:
		sig, ok := f.assets.Signatures[hex.EncodeToString(s.Payload())]
		if !ok {
			return nil, f.insufficient("partial_sig", "no signature for key %x", s.Payload())
		}
		return [][]byte{sig}, nil

	case script.P2PKH:
		return f.keyHashSpend(s.Payload())

	case script.MultiSig:
		k, keys, _ := s.Multisig()
		stack := [][]byte{{}}
		for _, key := range keys {
			if sig, ok := f.assets.Signatures[hex.EncodeToString(key)]; ok && len(stack) <= k {
				stack = append(stack, sig)
			}
		}
		if len(stack) <= k {
			return nil, f.insufficient("partial_sig", "have %d of %d signatures", len(stack)-1, k)
		}
		return stack, nil
	}

	node, err := miniscript.Decode(sc, ctx)
	if err != nil {
		return nil, f.unsupported(s.Type())
	}
	stack, err := miniscript.Satisfy(node, f.assets)
	if err != nil {
		return nil, model.NewError(model.ErrInsufficientData, finalizeOp, fmt.Sprintf("input %d", f.index), err)
	}
	return stack, nil
}

func (f finalizer) keyHashSpend(hash []byte) ([][]byte, error) {
	for _, ps := range f.in.PartialSigs {
		if bytes.Equal(btcutil.Hash160(ps.PubKey), hash) {
			return [][]byte{ps.Signature, ps.PubKey}, nil
		}
	}
	return nil, f.insufficient("partial_sig", "no signature for key hash %x", hash)
}

// taprootSpend prefers the key path and falls back to single key script
// leaves, choosing the one with the shortest control block.
func (f finalizer) taprootSpend() ([][]byte, error) {
	if len(f.in.TaprootKeySpendSig) > 0 {
		return [][]byte{f.in.TaprootKeySpendSig}, nil
	}

	var best [][]byte
	for _, leaf := range f.in.TaprootLeafScript {
		sc := leaf.Script
		if len(sc) != 34 || sc[0] != txscript.OP_DATA_32 || sc[33] != txscript.OP_CHECKSIG {
			continue
		}
		leafHash := txscript.NewTapLeaf(leaf.LeafVersion, sc).TapHash()
		for _, ss := range f.in.TaprootScriptSpendSig {
			if !bytes.Equal(ss.XOnlyPubKey, sc[1:33]) || !bytes.Equal(ss.LeafHash, leafHash[:]) {
				continue
			}
			sig := bytes.Clone(ss.Signature)
			if ss.SigHash != txscript.SigHashDefault {
				sig = append(sig, byte(ss.SigHash))
			}
			if best == nil || len(leaf.ControlBlock) < len(best[2]) {
				best = [][]byte{sig, sc, leaf.ControlBlock}
			}
		}
	}
	if best == nil {
		return nil, f.insufficient("taproot", "no key path signature and no signed single key leaf")
	}
	return best, nil
}

// pushes renders a stack as a push-only scriptSig.
func pushes(stack [][]byte) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	for _, e := range stack {
		b.AddData(e)
	}
	sc, err := b.Script()
	if err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, finalizeOp, "script_sig", err)
	}
	return sc, nil
}
