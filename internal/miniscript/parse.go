package miniscript

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// KeyResolver turns a key expression into serialized public key bytes.
type KeyResolver func(string) ([]byte, error)

// HexKey resolves hex encoded public keys.
func HexKey(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// Parse parses miniscript text with hex keys.
func Parse(s string, ctx Context) (*Node, error) {
	e, err := ParseExpr(s)
	if err != nil {
		return nil, model.NewError(model.ErrPolicyNotCompilable, "parse miniscript", "expression", err)
	}
	return FromExpr(e, ctx, HexKey)
}

// FromExpr builds a miniscript from a parsed expression, resolving keys
// through resolve. The result must be of type B.
func FromExpr(e *Expr, ctx Context, resolve KeyResolver) (*Node, error) {
	p := textParser{ctx: ctx, resolve: resolve}
	n, err := p.node(e)
	if err != nil {
		return nil, model.NewError(model.ErrPolicyNotCompilable, "parse miniscript", e.String(), err)
	}
	if !n.typ.is(TypeB) {
		return nil, model.Errorf(model.ErrPolicyNotCompilable, "parse miniscript", e.String(), "top level type %s is not B", n.typ)
	}
	script, err := n.Script()
	if err != nil {
		return nil, model.NewError(model.ErrPolicyNotCompilable, "parse miniscript", e.String(), err)
	}
	if len(script) > ctx.MaxScriptSize() {
		return nil, model.Errorf(model.ErrPolicyNotCompilable, "parse miniscript", e.String(),
			"script size %d exceeds %d", len(script), ctx.MaxScriptSize())
	}
	return n, nil
}

type textParser struct {
	ctx     Context
	resolve KeyResolver
}

func (p textParser) node(e *Expr) (*Node, error) {
	name := e.Name
	if i := strings.IndexByte(name, ':'); i >= 0 {
		inner, err := p.node(&Expr{Name: name[i+1:], Args: e.Args})
		if err != nil {
			return nil, err
		}
		for j := i - 1; j >= 0; j-- {
			if inner, err = p.wrapper(name[j], inner); err != nil {
				return nil, err
			}
		}
		return inner, nil
	}

	switch name {
	case "0", "1":
		if !e.IsLeaf() {
			return nil, fmt.Errorf("%s takes no arguments", name)
		}
		if name == "0" {
			return p.build(&Node{Fragment: FragFalse})
		}
		return p.build(&Node{Fragment: FragTrue})
	case "pk", "pkh", "pk_k", "pk_h":
		if len(e.Args) != 1 {
			return nil, fmt.Errorf("%s takes one key", name)
		}
		key, err := p.key(e.Args[0])
		if err != nil {
			return nil, err
		}
		k := &Node{Fragment: FragPkK, Key: key}
		if name == "pkh" || name == "pk_h" {
			k = &Node{Fragment: FragPkH, Key: key, KeyHash: btcutil.Hash160(key)}
		}
		n, err := p.build(k)
		if err != nil || name == "pk_k" || name == "pk_h" {
			return n, err
		}
		return p.build(&Node{Fragment: FragWrapC, Subs: []*Node{n}})
	case "older", "after":
		v, err := leafUint32(e)
		if err != nil {
			return nil, err
		}
		f := FragOlder
		if name == "after" {
			f = FragAfter
		}
		return p.build(&Node{Fragment: f, Value: v})
	case "sha256", "hash256", "ripemd160", "hash160":
		if len(e.Args) != 1 || !e.Args[0].IsLeaf() {
			return nil, fmt.Errorf("%s takes one hash", name)
		}
		h, err := hex.DecodeString(e.Args[0].Name)
		if err != nil {
			return nil, err
		}
		return p.build(&Node{Fragment: fragmentByName(name), Hash: h})
	case "multi":
		if len(e.Args) < 2 {
			return nil, fmt.Errorf("multi needs a threshold and keys")
		}
		k, err := strconv.Atoi(e.Args[0].Name)
		if err != nil {
			return nil, err
		}
		keys := make([][]byte, 0, len(e.Args)-1)
		for _, a := range e.Args[1:] {
			key, err := p.key(a)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
		return p.build(&Node{Fragment: FragMulti, K: k, Keys: keys})
	case "thresh":
		if len(e.Args) < 2 {
			return nil, fmt.Errorf("thresh needs a threshold and subexpressions")
		}
		k, err := strconv.Atoi(e.Args[0].Name)
		if err != nil {
			return nil, err
		}
		subs, err := p.subs(e.Args[1:])
		if err != nil {
			return nil, err
		}
		return p.build(&Node{Fragment: FragThresh, K: k, Subs: subs})
	case "and_n":
		subs, err := p.arity(e, 2)
		if err != nil {
			return nil, err
		}
		zero, _ := p.build(&Node{Fragment: FragFalse})
		return p.build(&Node{Fragment: FragAndOr, Subs: []*Node{subs[0], subs[1], zero}})
	case "andor":
		subs, err := p.arity(e, 3)
		if err != nil {
			return nil, err
		}
		return p.build(&Node{Fragment: FragAndOr, Subs: subs})
	case "and_v", "and_b", "or_b", "or_c", "or_d", "or_i":
		subs, err := p.arity(e, 2)
		if err != nil {
			return nil, err
		}
		return p.build(&Node{Fragment: fragmentByName(name), Subs: subs})
	}
	return nil, fmt.Errorf("unknown fragment %q", name)
}

func (p textParser) wrapper(c byte, inner *Node) (*Node, error) {
	switch c {
	case 't':
		one, _ := p.build(&Node{Fragment: FragTrue})
		return p.build(&Node{Fragment: FragAndV, Subs: []*Node{inner, one}})
	case 'l', 'u':
		zero, _ := p.build(&Node{Fragment: FragFalse})
		subs := []*Node{zero, inner}
		if c == 'u' {
			subs = []*Node{inner, zero}
		}
		return p.build(&Node{Fragment: FragOrI, Subs: subs})
	}
	for f, letter := range wrapperLetters {
		if letter == c {
			return p.build(&Node{Fragment: f, Subs: []*Node{inner}})
		}
	}
	return nil, fmt.Errorf("unknown wrapper %q", c)
}

func (p textParser) build(n *Node) (*Node, error) {
	node, ok := newNode(n)
	if !ok {
		return nil, fmt.Errorf("ill-typed %s", fragmentName(n.Fragment))
	}
	return node, nil
}

func (p textParser) key(e *Expr) ([]byte, error) {
	if !e.IsLeaf() {
		return nil, fmt.Errorf("invalid key expression %s", e)
	}
	key, err := p.resolve(e.Name)
	if err != nil {
		return nil, err
	}
	if !p.ctx.validKey(key) {
		return nil, fmt.Errorf("key %s is not valid in %s context", e.Name, p.ctx)
	}
	return key, nil
}

func (p textParser) subs(args []*Expr) ([]*Node, error) {
	subs := make([]*Node, 0, len(args))
	for _, a := range args {
		n, err := p.node(a)
		if err != nil {
			return nil, err
		}
		subs = append(subs, n)
	}
	return subs, nil
}

func (p textParser) arity(e *Expr, want int) ([]*Node, error) {
	if len(e.Args) != want {
		return nil, fmt.Errorf("%s takes %d arguments", e.Name, want)
	}
	return p.subs(e.Args)
}

func fragmentByName(name string) Fragment {
	for f, n := range fragmentNames {
		if n == name {
			return f
		}
	}
	return FragFalse
}

func leafUint32(e *Expr) (uint32, error) {
	if len(e.Args) != 1 || !e.Args[0].IsLeaf() {
		return 0, fmt.Errorf("%s takes one number", e.Name)
	}
	v, err := strconv.ParseUint(e.Args[0].Name, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
