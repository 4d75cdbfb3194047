package main

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/txscript"

	"github.com/goodnatureofminers/btctoolkit/internal/address"
	"github.com/goodnatureofminers/btctoolkit/internal/codec"
	"github.com/goodnatureofminers/btctoolkit/internal/keys"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/psbt"
	"github.com/goodnatureofminers/btctoolkit/internal/service"
	"github.com/goodnatureofminers/btctoolkit/pkg/safe"
)

func registerPsbt(parent commandAdder, a *app) error {
	g, err := addGroup(parent, "psbt", "Create, update, combine and finalize PSBTs")
	if err != nil {
		return err
	}
	commands := []struct {
		name, short string
		data        interface{}
	}{
		{"create", "Wrap an unsigned transaction hex into a PSBT", &psbtCreateCommand{a: a}},
		{"update", "Add records to one input", &psbtUpdateCommand{a: a}},
		{"merge", "Combine PSBTs of the same transaction", &psbtMergeCommand{a: a}},
		{"finalize", "Finalize every input", &psbtCommand{a: a, op: psbtFinalize}},
		{"extract", "Print the network serialization of a finalized PSBT", &psbtCommand{a: a, op: psbtExtract}},
		{"inspect", "Summarize a PSBT", &psbtCommand{a: a, op: psbtInspect}},
	}
	for _, cmd := range commands {
		if _, err := g.AddCommand(cmd.name, cmd.short, "", cmd.data); err != nil {
			return err
		}
	}
	return nil
}

type psbtArgs struct {
	Psbt string `positional-arg-name:"psbt" description:"base64 or hex PSBT; read from stdin when omitted"`
}

type psbtCreateCommand struct {
	a    *app
	Args struct {
		Tx string `positional-arg-name:"tx" description:"unsigned transaction hex; read from stdin when omitted"`
	} `positional-args:"yes"`
}

func (c *psbtCreateCommand) Execute([]string) error {
	raw, err := c.a.hexInput(c.Args.Tx, "transaction")
	if err != nil {
		return err
	}
	p, err := c.a.toolkit.CreatePsbt(raw)
	if err != nil {
		return err
	}
	return c.a.printLine(p)
}

type psbtUpdateCommand struct {
	a              *app
	Input          int      `long:"input" short:"i" description:"input index" default:"0"`
	WitnessUtxo    string   `long:"witness-utxo" description:"spent output as <satoshis>:<script hex or address>"`
	NonWitnessUtxo string   `long:"non-witness-utxo" description:"hex of the transaction holding the spent output"`
	RedeemScript   string   `long:"redeem-script" description:"p2sh redeem script hex"`
	WitnessScript  string   `long:"witness-script" description:"p2wsh witness script hex"`
	Sighash        string   `long:"sighash" description:"sighash type: ALL, NONE, SINGLE, optionally |ANYONECANPAY, or a number"`
	PartialSigs    []string `long:"partial-sig" description:"<pubkey hex>:<signature hex>; repeatable"`
	Derivations    []string `long:"derivation" description:"<pubkey hex>:<fingerprint hex>/<path>; repeatable"`
	Preimages      []string `long:"preimage" description:"<sha256|hash256|ripemd160|hash160>:<preimage hex>; repeatable"`
	Args           psbtArgs `positional-args:"yes"`
}

func (c *psbtUpdateCommand) Execute([]string) error {
	packet, err := c.a.input(c.Args.Psbt)
	if err != nil {
		return err
	}
	u, err := c.update()
	if err != nil {
		return err
	}
	out, err := c.a.toolkit.UpdatePsbt(packet, c.Input, u)
	if err != nil {
		return err
	}
	return c.a.printLine(out)
}

func (c *psbtUpdateCommand) update() (service.PsbtUpdate, error) {
	var u service.PsbtUpdate
	var err error
	if c.WitnessUtxo != "" {
		out, err := parseOutput(c.WitnessUtxo, c.a.toolkit.Network())
		if err != nil {
			return u, err
		}
		u.WitnessUtxo = &out
	}
	if c.NonWitnessUtxo != "" {
		if u.NonWitnessUtxo, err = decodeHex(c.NonWitnessUtxo, "non-witness-utxo"); err != nil {
			return u, err
		}
	}
	if c.RedeemScript != "" {
		if u.RedeemScript, err = decodeHex(c.RedeemScript, "redeem-script"); err != nil {
			return u, err
		}
	}
	if c.WitnessScript != "" {
		if u.WitnessScript, err = decodeHex(c.WitnessScript, "witness-script"); err != nil {
			return u, err
		}
	}
	if c.Sighash != "" {
		sighash, err := parseSighash(c.Sighash)
		if err != nil {
			return u, err
		}
		u.SighashType = &sighash
	}
	for _, s := range c.PartialSigs {
		pub, sig, err := splitPair(s, "partial-sig")
		if err != nil {
			return u, err
		}
		ps := service.PartialSig{}
		if ps.PubKey, err = decodeHex(pub, "partial-sig pubkey"); err != nil {
			return u, err
		}
		if ps.Signature, err = decodeHex(sig, "partial-sig signature"); err != nil {
			return u, err
		}
		u.PartialSigs = append(u.PartialSigs, ps)
	}
	for _, s := range c.Derivations {
		d, err := parseDerivation(s)
		if err != nil {
			return u, err
		}
		u.Derivations = append(u.Derivations, d)
	}
	for _, s := range c.Preimages {
		name, value, err := splitPair(s, "preimage")
		if err != nil {
			return u, err
		}
		typ, ok := psbt.ParseHashType(name)
		if !ok {
			return u, model.Errorf(model.ErrInvalidEncoding, "parse flag", "preimage", "unknown hash %q", name)
		}
		pre := service.Preimage{Type: typ}
		if pre.Preimage, err = decodeHex(value, "preimage"); err != nil {
			return u, err
		}
		u.Preimages = append(u.Preimages, pre)
	}
	return u, nil
}

func splitPair(s, field string) (string, string, error) {
	left, right, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", model.Errorf(model.ErrInvalidEncoding, "parse flag", field, "expected two values separated by ':'")
	}
	return left, right, nil
}

func parseOutput(s string, network model.Network) (codec.Output, error) {
	amount, target, err := splitPair(s, "witness-utxo")
	if err != nil {
		return codec.Output{}, err
	}
	value, err := strconv.ParseInt(amount, 10, 64)
	if err != nil || value < 0 {
		return codec.Output{}, model.Errorf(model.ErrInvalidEncoding, "parse flag", "witness-utxo", "invalid amount %q", amount)
	}
	pkScript, hexErr := hex.DecodeString(target)
	if hexErr != nil {
		if pkScript, err = address.AddressToScript(target, network); err != nil {
			return codec.Output{}, err
		}
	}
	return codec.Output{Value: value, PkScript: pkScript}, nil
}

func parseSighash(s string) (txscript.SigHashType, error) {
	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		n, err := safe.Uint32(v)
		if err != nil {
			return 0, model.NewError(model.ErrInvalidEncoding, "parse flag", "sighash", err)
		}
		return txscript.SigHashType(n), nil
	}
	base, modifier, _ := strings.Cut(strings.ToUpper(s), "|")
	var t txscript.SigHashType
	switch base {
	case "ALL":
		t = txscript.SigHashAll
	case "NONE":
		t = txscript.SigHashNone
	case "SINGLE":
		t = txscript.SigHashSingle
	default:
		return 0, model.Errorf(model.ErrInvalidEncoding, "parse flag", "sighash", "unknown sighash %q", s)
	}
	switch modifier {
	case "":
	case "ANYONECANPAY":
		t |= txscript.SigHashAnyOneCanPay
	default:
		return 0, model.Errorf(model.ErrInvalidEncoding, "parse flag", "sighash", "unknown modifier %q", modifier)
	}
	return t, nil
}

func parseDerivation(s string) (service.Derivation, error) {
	pub, origin, err := splitPair(s, "derivation")
	if err != nil {
		return service.Derivation{}, err
	}
	d := service.Derivation{}
	if d.PubKey, err = decodeHex(pub, "derivation pubkey"); err != nil {
		return d, err
	}
	fp, path, _ := strings.Cut(origin, "/")
	fpBytes, err := decodeHex(fp, "derivation fingerprint")
	if err != nil {
		return d, err
	}
	if len(fpBytes) != len(d.Fingerprint) {
		return d, model.Errorf(model.ErrInvalidEncoding, "parse flag", "derivation", "fingerprint must be 4 bytes")
	}
	copy(d.Fingerprint[:], fpBytes)
	if d.Path, err = keys.ParseDerivationPath(strings.TrimSuffix("m/"+path, "/")); err != nil {
		return d, err
	}
	return d, nil
}

type psbtMergeCommand struct {
	a    *app
	Args struct {
		Psbts []string `positional-arg-name:"psbt" description:"base64 or hex PSBTs; read line by line from stdin when omitted"`
	} `positional-args:"yes"`
}

func (c *psbtMergeCommand) Execute([]string) error {
	packets, err := c.a.inputs(c.Args.Psbts)
	if err != nil {
		return err
	}
	out, err := c.a.toolkit.MergePsbts(packets)
	if err != nil {
		return err
	}
	return c.a.printLine(out)
}

type psbtOp uint8

const (
	psbtFinalize psbtOp = iota
	psbtExtract
	psbtInspect
)

type psbtCommand struct {
	a    *app
	op   psbtOp
	Args psbtArgs `positional-args:"yes"`
}

func (c *psbtCommand) Execute([]string) error {
	packet, err := c.a.input(c.Args.Psbt)
	if err != nil {
		return err
	}
	switch c.op {
	case psbtFinalize:
		out, err := c.a.toolkit.FinalizePsbt(packet)
		if err != nil {
			return err
		}
		return c.a.printLine(out)
	case psbtExtract:
		raw, err := c.a.toolkit.ExtractPsbt(packet)
		if err != nil {
			return err
		}
		return c.a.printLine(hex.EncodeToString(raw))
	default:
		info, err := c.a.toolkit.InspectPsbt(packet)
		if err != nil {
			return err
		}
		return c.a.printJSON(info)
	}
}
