// Package descriptor parses output script descriptors over hex, WIF and
// extended keys and derives their scripts, addresses and policies.
package descriptor

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/btctoolkit/internal/address"
	"github.com/goodnatureofminers/btctoolkit/internal/miniscript"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/script"
)

const parseOp = "parse descriptor"

// Kind is the shape of a descriptor.
type Kind uint8

const (
	Pk Kind = iota
	Pkh
	Wpkh
	ShWpkh
	Sh
	Wsh
	ShWsh
	Tr
	Addr
	Raw
)

var kindNames = [...]string{
	Pk:     "pk",
	Pkh:    "pkh",
	Wpkh:   "wpkh",
	ShWpkh: "sh(wpkh)",
	Sh:     "sh",
	Wsh:    "wsh",
	ShWsh:  "sh(wsh)",
	Tr:     "tr",
	Addr:   "addr",
	Raw:    "raw",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Descriptor is a parsed descriptor with its derived scripts.
type Descriptor struct {
	text          string
	kind          Kind
	keys          []Key
	node          *miniscript.Node
	policy        *miniscript.SemanticPolicy
	scriptPubKey  []byte
	redeemScript  []byte
	witnessScript []byte
	maxWeight     int
}

// Parse parses s, verifying its checksum when one is present. Keys given as
// WIF are checked against network.
func Parse(s string, network model.Network) (*Descriptor, error) {
	text, err := splitChecksum(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	e, err := miniscript.ParseExpr(text)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, parseOp, "descriptor", err)
	}
	p := parser{network: network}
	d, err := p.top(e)
	if err != nil {
		return nil, err
	}
	d.text = text
	d.keys = p.keys
	return d, nil
}

type parser struct {
	network model.Network
	keys    []Key
}

func (p *parser) args(e *miniscript.Expr, n int) error {
	if len(e.Args) != n {
		return model.Errorf(model.ErrInvalidEncoding, parseOp, e.Name, "expected %d arguments, got %d", n, len(e.Args))
	}
	return nil
}

func (p *parser) key(e *miniscript.Expr) (Key, error) {
	if !e.IsLeaf() {
		return Key{}, model.Errorf(model.ErrInvalidEncoding, parseOp, e.String(), "expected a key expression")
	}
	k, err := parseKey(e.Name, p.network)
	if err != nil {
		return Key{}, err
	}
	p.keys = append(p.keys, k)
	return k, nil
}

func (p *parser) top(e *miniscript.Expr) (*Descriptor, error) {
	switch e.Name {
	case "pk", "pkh", "wpkh":
		if err := p.args(e, 1); err != nil {
			return nil, err
		}
		return p.singleKey(e)

	case "sh":
		if err := p.args(e, 1); err != nil {
			return nil, err
		}
		return p.scriptHash(e.Args[0])

	case "wsh":
		if err := p.args(e, 1); err != nil {
			return nil, err
		}
		return p.witnessScriptHash(e.Args[0], Wsh)

	case "tr":
		return p.taproot(e)

	case "addr":
		if err := p.args(e, 1); err != nil {
			return nil, err
		}
		spk, err := address.AddressToScript(e.Args[0].Name, p.network)
		if err != nil {
			return nil, err
		}
		return opaque(Addr, spk), nil

	case "raw":
		if err := p.args(e, 1); err != nil {
			return nil, err
		}
		spk, err := hex.DecodeString(e.Args[0].Name)
		if err != nil {
			return nil, model.NewError(model.ErrInvalidEncoding, parseOp, "raw", err)
		}
		return opaque(Raw, spk), nil
	}
	return nil, model.Errorf(model.ErrInvalidEncoding, parseOp, e.Name, "unknown top level descriptor")
}

// opaque describes a script known only by its bytes.
func opaque(kind Kind, spk []byte) *Descriptor {
	d := &Descriptor{kind: kind, scriptPubKey: spk}
	if policy, err := miniscript.Lift(spk); err == nil {
		d.policy = policy
	}
	return d
}

func (p *parser) singleKey(e *miniscript.Expr) (*Descriptor, error) {
	k, err := p.key(e.Args[0])
	if err != nil {
		return nil, err
	}
	d := &Descriptor{policy: &miniscript.SemanticPolicy{Kind: miniscript.SemKey, Key: k.PubKey}}
	keyPush := 1 + len(k.PubKey)
	switch e.Name {
	case "pk":
		d.kind = Pk
		d.scriptPubKey, err = script.PayToPubKey(k.PubKey)
		d.maxWeight = scriptSigWeight(sigPush)
	case "pkh":
		d.kind = Pkh
		d.scriptPubKey, err = script.PayToPubKeyHash(btcutil.Hash160(k.PubKey))
		d.maxWeight = scriptSigWeight(sigPush + keyPush)
	default:
		if len(k.PubKey) != 33 {
			return nil, model.Errorf(model.ErrInvalidEncoding, parseOp, k.Expr, "wpkh requires a compressed key")
		}
		d.kind = Wpkh
		d.scriptPubKey, err = script.PayToWitnessPubKeyHash(btcutil.Hash160(k.PubKey))
		d.maxWeight = scriptSigWeight(0) + witnessWeight(2, sigPush+keyPush)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (p *parser) scriptHash(inner *miniscript.Expr) (*Descriptor, error) {
	var d *Descriptor
	var err error
	switch inner.Name {
	case "wpkh":
		if err := p.args(inner, 1); err != nil {
			return nil, err
		}
		if d, err = p.singleKey(inner); err != nil {
			return nil, err
		}
		d.kind = ShWpkh
		d.redeemScript = d.scriptPubKey
		d.maxWeight += scriptSigWeight(pushLen(len(d.redeemScript))) - scriptSigWeight(0)
	case "wsh":
		if err := p.args(inner, 1); err != nil {
			return nil, err
		}
		if d, err = p.witnessScriptHash(inner.Args[0], ShWsh); err != nil {
			return nil, err
		}
		d.redeemScript = d.scriptPubKey
		d.maxWeight += scriptSigWeight(pushLen(len(d.redeemScript))) - scriptSigWeight(0)
	default:
		node, ms, err := p.miniscript(inner, miniscript.P2SH)
		if err != nil {
			return nil, err
		}
		d = &Descriptor{kind: Sh, node: node, policy: node.Lift(), redeemScript: ms}
		if size, ok := miniscript.MaxSatisfactionWeight(node); ok {
			d.maxWeight = scriptSigWeight(size + pushLen(len(ms)))
		}
	}
	spk, err := script.PayToScriptHash(btcutil.Hash160(d.redeemScript))
	if err != nil {
		return nil, err
	}
	d.scriptPubKey = spk
	return d, nil
}

func (p *parser) witnessScriptHash(inner *miniscript.Expr, kind Kind) (*Descriptor, error) {
	node, ws, err := p.miniscript(inner, miniscript.SegwitV0)
	if err != nil {
		return nil, err
	}
	spk, err := script.PayToWitnessScriptHash(script.New(ws).WitnessHash())
	if err != nil {
		return nil, err
	}
	d := &Descriptor{
		kind:          kind,
		node:          node,
		policy:        node.Lift(),
		scriptPubKey:  spk,
		witnessScript: ws,
	}
	if a, err := miniscript.Analyze(node, miniscript.SegwitV0); err == nil {
		if size, ok := miniscript.MaxSatisfactionWeight(node); ok {
			scriptItem := wire.VarIntSerializeSize(uint64(len(ws))) + len(ws)
			d.maxWeight = scriptSigWeight(0) + witnessWeight(a.MaxSatisfactionElements+1, size+scriptItem)
		}
	}
	return d, nil
}

// miniscript parses a miniscript expression. sortedmulti is rewritten into
// multi over the sorted keys.
func (p *parser) miniscript(e *miniscript.Expr, ctx miniscript.Context) (*miniscript.Node, []byte, error) {
	sorted := e.Name == "sortedmulti"
	if sorted {
		multi, err := p.sortMulti(e)
		if err != nil {
			return nil, nil, err
		}
		e = multi
	}
	r := resolver{network: p.network}
	node, err := miniscript.FromExpr(e, ctx, r.resolve)
	if err != nil {
		return nil, nil, err
	}
	if !sorted {
		p.keys = append(p.keys, r.keys...)
	}
	ms, err := node.Script()
	if err != nil {
		return nil, nil, model.NewError(model.ErrPolicyNotCompilable, parseOp, e.String(), err)
	}
	return node, ms, nil
}

func (p *parser) sortMulti(e *miniscript.Expr) (*miniscript.Expr, error) {
	if len(e.Args) < 2 {
		return nil, model.Errorf(model.ErrInvalidEncoding, parseOp, e.Name, "sortedmulti needs a threshold and keys")
	}
	pubs := make([][]byte, 0, len(e.Args)-1)
	for _, a := range e.Args[1:] {
		if !a.IsLeaf() {
			return nil, model.Errorf(model.ErrInvalidEncoding, parseOp, a.String(), "expected a key expression")
		}
		k, err := parseKey(a.Name, p.network)
		if err != nil {
			return nil, err
		}
		p.keys = append(p.keys, k)
		pubs = append(pubs, k.PubKey)
	}
	sort.Slice(pubs, func(i, j int) bool { return bytes.Compare(pubs[i], pubs[j]) < 0 })

	out := &miniscript.Expr{Name: "multi", Args: []*miniscript.Expr{e.Args[0]}}
	for _, pub := range pubs {
		out.Args = append(out.Args, &miniscript.Expr{Name: hex.EncodeToString(pub)})
	}
	return out, nil
}

// taproot supports key path only descriptors.
func (p *parser) taproot(e *miniscript.Expr) (*Descriptor, error) {
	if len(e.Args) == 2 {
		return nil, model.Errorf(model.ErrInvalidEncoding, parseOp, "tr", "script trees are not supported")
	}
	if err := p.args(e, 1); err != nil {
		return nil, err
	}
	internal, err := p.internalKey(e.Args[0])
	if err != nil {
		return nil, err
	}
	outputKey := txscript.ComputeTaprootKeyNoScript(internal)
	spk, err := script.PayToTaproot(schnorr.SerializePubKey(outputKey))
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		kind:         Tr,
		policy:       &miniscript.SemanticPolicy{Kind: miniscript.SemKey, Key: schnorr.SerializePubKey(internal)},
		scriptPubKey: spk,
		maxWeight:    scriptSigWeight(0) + witnessWeight(1, schnorrSigPush),
	}, nil
}

func (p *parser) internalKey(e *miniscript.Expr) (*btcec.PublicKey, error) {
	if raw, err := hex.DecodeString(e.Name); err == nil && len(raw) == 32 && e.IsLeaf() {
		pub, err := schnorr.ParsePubKey(raw)
		if err != nil {
			return nil, model.NewError(model.ErrInvalidEncoding, parseOp, e.Name, err)
		}
		p.keys = append(p.keys, Key{Expr: e.Name, PubKey: raw})
		return pub, nil
	}
	k, err := p.key(e)
	if err != nil {
		return nil, err
	}
	pub, err := btcec.ParsePubKey(k.PubKey)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, parseOp, k.Expr, err)
	}
	return pub, nil
}

// Kind reports the descriptor shape.
func (d *Descriptor) Kind() Kind {
	return d.kind
}

// Keys lists the resolved keys in order of appearance.
func (d *Descriptor) Keys() []Key {
	return d.keys
}

func (d *Descriptor) ScriptPubKey() []byte {
	return bytes.Clone(d.scriptPubKey)
}

func (d *Descriptor) RedeemScript() []byte {
	return bytes.Clone(d.redeemScript)
}

func (d *Descriptor) WitnessScript() []byte {
	return bytes.Clone(d.witnessScript)
}

// Miniscript is the parsed miniscript of sh, wsh and sh(wsh) descriptors.
func (d *Descriptor) Miniscript() (*miniscript.Node, bool) {
	return d.node, d.node != nil
}

// Policy is the lifted spending policy, when one can be derived.
func (d *Descriptor) Policy() (*miniscript.SemanticPolicy, bool) {
	return d.policy, d.policy != nil
}

// MaxSatisfactionWeight is the weight of the largest scriptSig and witness
// spending the output. It is unknown for addr and raw descriptors.
func (d *Descriptor) MaxSatisfactionWeight() (int, bool) {
	return d.maxWeight, d.maxWeight > 0
}

// Address encodes the script pubkey on network.
func (d *Descriptor) Address(network model.Network) (string, error) {
	return address.ScriptToAddress(d.scriptPubKey, network)
}

// String returns the descriptor with its checksum.
func (d *Descriptor) String() string {
	s, err := AddChecksum(d.text)
	if err != nil {
		return d.text
	}
	return s
}

// Info parses desc and describes it.
func Info(desc string, network model.Network) (model.DescriptorInfo, error) {
	d, err := Parse(desc, network)
	if err != nil {
		return model.DescriptorInfo{}, err
	}
	sum, err := Checksum(d.text)
	if err != nil {
		return model.DescriptorInfo{}, err
	}
	info := model.DescriptorInfo{
		Descriptor:    d.text + "#" + sum,
		Checksum:      sum,
		Type:          d.kind.String(),
		ScriptPubKey:  hex.EncodeToString(d.scriptPubKey),
		RedeemScript:  hexOrEmpty(d.redeemScript),
		WitnessScript: hexOrEmpty(d.witnessScript),
	}
	if addr, err := d.Address(network); err == nil {
		info.Address = addr
	}
	if w, ok := d.MaxSatisfactionWeight(); ok {
		info.MaxSatisfactionWeight = w
	}
	if policy, ok := d.Policy(); ok {
		info.Policy = policy.String()
	}
	return info, nil
}

func hexOrEmpty(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return hex.EncodeToString(b)
}
