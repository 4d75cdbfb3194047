package miniscript

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

type token struct {
	op   byte
	data []byte
}

// decoder parses a token stream backwards. Every method takes the exclusive
// end index of the expression it parses and returns the node together with
// the index of the expression's first token.
type decoder struct {
	ctx  Context
	toks []token
}

var errSyntax = errors.New("not a miniscript encoding")

// Decode parses a miniscript from its script encoding. The result is type
// checked and must be of type B.
func Decode(script []byte, ctx Context) (*Node, error) {
	fail := func(err error) error {
		return model.NewError(model.ErrNonMiniscriptScript, "decode miniscript", "script", err)
	}
	if len(script) == 0 {
		return nil, fail(errors.New("empty script"))
	}
	if len(script) > ctx.MaxScriptSize() {
		return nil, fail(fmt.Errorf("script size %d exceeds %d", len(script), ctx.MaxScriptSize()))
	}
	d := decoder{ctx: ctx}
	tok := txscript.MakeScriptTokenizer(0, script)
	for tok.Next() {
		t := token{op: tok.Opcode()}
		if data := tok.Data(); data != nil {
			t.data = append([]byte{}, data...)
		}
		d.toks = append(d.toks, t)
	}
	if err := tok.Err(); err != nil {
		return nil, fail(err)
	}

	node, start, err := d.seq(len(d.toks))
	if err != nil {
		return nil, fail(err)
	}
	if start != 0 {
		return nil, fail(fmt.Errorf("unexpected opcode at token %d", start-1))
	}
	if !node.typ.is(TypeB) {
		return nil, fail(fmt.Errorf("top level type %s is not B", node.typ))
	}
	return node, nil
}

func (d *decoder) build(n *Node) (*Node, error) {
	node, ok := newNode(n)
	if !ok {
		return nil, fmt.Errorf("ill-typed %s", fragmentName(n.Fragment))
	}
	return node, nil
}

func fragmentName(f Fragment) string {
	if name, ok := fragmentNames[f]; ok {
		return name
	}
	return string(wrapperLetters[f]) + ":"
}

func (d *decoder) opAt(i int) (byte, bool) {
	if i < 0 || i >= len(d.toks) {
		return 0, false
	}
	return d.toks[i].op, true
}

func (d *decoder) is(i int, op byte) bool {
	got, ok := d.opAt(i)
	return ok && got == op
}

func (d *decoder) boundary(i int) bool {
	switch d.toks[i].op {
	case txscript.OP_IF, txscript.OP_NOTIF, txscript.OP_ELSE, txscript.OP_TOALTSTACK, txscript.OP_SWAP:
		return true
	default:
		return false
	}
}

// seq parses a run of expressions joined by and_v.
func (d *decoder) seq(end int) (*Node, int, error) {
	node, start, err := d.expr(end)
	if err != nil {
		return nil, 0, err
	}
	for start > 0 && !d.boundary(start-1) {
		prev, s, err := d.expr(start)
		if err != nil {
			return nil, 0, err
		}
		if node, err = d.build(&Node{Fragment: FragAndV, Subs: []*Node{prev, node}}); err != nil {
			return nil, 0, err
		}
		start = s
	}
	return node, start, nil
}

func (d *decoder) expr(end int) (*Node, int, error) {
	if end <= 0 {
		return nil, 0, errSyntax
	}
	i := end - 1
	t := d.toks[i]
	switch {
	case t.op == txscript.OP_0:
		n, err := d.build(&Node{Fragment: FragFalse})
		return n, i, err
	case t.op == txscript.OP_1:
		n, err := d.build(&Node{Fragment: FragTrue})
		return n, i, err
	case t.data != nil && int(t.op) == len(t.data) && (len(t.data) == 33 || len(t.data) == 65):
		if !d.ctx.validKey(t.data) {
			return nil, 0, fmt.Errorf("invalid key for %s", d.ctx)
		}
		n, err := d.build(&Node{Fragment: FragPkK, Key: t.data})
		return n, i, err
	}

	switch t.op {
	case txscript.OP_EQUALVERIFY:
		if d.isPkH(i) {
			n, err := d.build(&Node{Fragment: FragPkH, KeyHash: d.toks[i-1].data})
			return n, i - 3, err
		}
		inner, start, err := d.equal(i)
		if err != nil {
			return nil, 0, err
		}
		return d.wrapped(FragWrapV, inner, start)
	case txscript.OP_EQUAL:
		return d.equal(i)
	case txscript.OP_CHECKSIG, txscript.OP_CHECKSIGVERIFY:
		x, start, err := d.expr(i)
		if err != nil {
			return nil, 0, err
		}
		c, start, err := d.wrapped(FragWrapC, x, start)
		if err != nil || t.op == txscript.OP_CHECKSIG {
			return c, start, err
		}
		return d.wrapped(FragWrapV, c, start)
	case txscript.OP_CHECKMULTISIG, txscript.OP_CHECKMULTISIGVERIFY:
		m, start, err := d.multi(i)
		if err != nil || t.op == txscript.OP_CHECKMULTISIG {
			return m, start, err
		}
		return d.wrapped(FragWrapV, m, start)
	case txscript.OP_CHECKSEQUENCEVERIFY, txscript.OP_CHECKLOCKTIMEVERIFY:
		v, err := d.number(i - 1)
		if err != nil {
			return nil, 0, err
		}
		if v < 1 || v >= 1<<31 {
			return nil, 0, fmt.Errorf("timelock %d out of range", v)
		}
		f := FragOlder
		if t.op == txscript.OP_CHECKLOCKTIMEVERIFY {
			f = FragAfter
		}
		n, err := d.build(&Node{Fragment: f, Value: uint32(v)})
		return n, i - 1, err
	case txscript.OP_VERIFY:
		x, start, err := d.expr(i)
		if err != nil {
			return nil, 0, err
		}
		return d.wrapped(FragWrapV, x, start)
	case txscript.OP_0NOTEQUAL:
		x, start, err := d.expr(i)
		if err != nil {
			return nil, 0, err
		}
		return d.wrapped(FragWrapN, x, start)
	case txscript.OP_BOOLAND, txscript.OP_BOOLOR:
		w, start, err := d.wexpr(i)
		if err != nil {
			return nil, 0, err
		}
		x, start, err := d.expr(start)
		if err != nil {
			return nil, 0, err
		}
		f := FragAndB
		if t.op == txscript.OP_BOOLOR {
			f = FragOrB
		}
		n, err := d.build(&Node{Fragment: f, Subs: []*Node{x, w}})
		return n, start, err
	case txscript.OP_ENDIF:
		return d.ifExpr(i)
	}
	return nil, 0, errSyntax
}

func (d *decoder) wrapped(f Fragment, sub *Node, start int) (*Node, int, error) {
	n, err := d.build(&Node{Fragment: f, Subs: []*Node{sub}})
	return n, start, err
}

// isPkH matches DUP HASH160 <20> EQUALVERIFY ending at i.
func (d *decoder) isPkH(i int) bool {
	return i >= 3 &&
		len(d.toks[i-1].data) == 20 && d.toks[i-1].op == txscript.OP_DATA_20 &&
		d.is(i-2, txscript.OP_HASH160) &&
		d.is(i-3, txscript.OP_DUP)
}

// equal parses a hash fragment or a thresh whose final EQUAL is at i.
func (d *decoder) equal(i int) (*Node, int, error) {
	if i >= 5 && len(d.toks[i-1].data) >= 20 {
		hashOp := d.toks[i-2].op
		for f, op := range hashOps {
			if op != hashOp || len(d.toks[i-1].data) != f.hashLen() {
				continue
			}
			size, err := d.number(i - 4)
			if err != nil || size != 32 || !d.is(i-3, txscript.OP_EQUALVERIFY) || !d.is(i-5, txscript.OP_SIZE) {
				return nil, 0, errSyntax
			}
			n, err := d.build(&Node{Fragment: f, Hash: d.toks[i-1].data})
			return n, i - 5, err
		}
		return nil, 0, errSyntax
	}

	k, err := d.number(i - 1)
	if err != nil {
		return nil, 0, err
	}
	pos := i - 1
	var rest []*Node
	for d.is(pos-1, txscript.OP_ADD) {
		w, start, err := d.wexpr(pos - 1)
		if err != nil {
			return nil, 0, err
		}
		rest = append([]*Node{w}, rest...)
		pos = start
	}
	if len(rest) == 0 {
		return nil, 0, errSyntax
	}
	first, start, err := d.expr(pos)
	if err != nil {
		return nil, 0, err
	}
	n, err := d.build(&Node{Fragment: FragThresh, K: int(k), Subs: append([]*Node{first}, rest...)})
	return n, start, err
}

// wexpr parses a W expression (a: or s: wrapped) ending before index end.
func (d *decoder) wexpr(end int) (*Node, int, error) {
	if d.is(end-1, txscript.OP_FROMALTSTACK) {
		x, start, err := d.seq(end - 1)
		if err != nil {
			return nil, 0, err
		}
		if !d.is(start-1, txscript.OP_TOALTSTACK) {
			return nil, 0, errSyntax
		}
		return d.wrapped(FragWrapA, x, start-1)
	}
	x, start, err := d.seq(end)
	if err != nil {
		return nil, 0, err
	}
	if !d.is(start-1, txscript.OP_SWAP) {
		return nil, 0, errSyntax
	}
	return d.wrapped(FragWrapS, x, start-1)
}

func (d *decoder) multi(i int) (*Node, int, error) {
	n, err := d.number(i - 1)
	if err != nil || n < 1 || n > maxPubKeysPerMulti {
		return nil, 0, errSyntax
	}
	first := i - 1 - int(n)
	if first < 1 {
		return nil, 0, errSyntax
	}
	keys := make([][]byte, 0, n)
	for j := first; j < i-1; j++ {
		t := d.toks[j]
		if t.data == nil || int(t.op) != len(t.data) || !d.ctx.validKey(t.data) {
			return nil, 0, errSyntax
		}
		keys = append(keys, t.data)
	}
	k, err := d.number(first - 1)
	if err != nil {
		return nil, 0, err
	}
	node, err := d.build(&Node{Fragment: FragMulti, K: int(k), Keys: keys})
	return node, first - 1, err
}

// ifExpr parses the constructs closed by the ENDIF at i.
func (d *decoder) ifExpr(i int) (*Node, int, error) {
	last, s, err := d.seq(i)
	if err != nil {
		return nil, 0, err
	}
	op, ok := d.opAt(s - 1)
	if !ok {
		return nil, 0, errSyntax
	}
	switch op {
	case txscript.OP_ELSE:
		first, s2, err := d.seq(s - 1)
		if err != nil {
			return nil, 0, err
		}
		switch op2, _ := d.opAt(s2 - 1); {
		case s2 > 0 && op2 == txscript.OP_IF:
			n, err := d.build(&Node{Fragment: FragOrI, Subs: []*Node{first, last}})
			return n, s2 - 1, err
		case s2 > 0 && op2 == txscript.OP_NOTIF:
			x, start, err := d.expr(s2 - 1)
			if err != nil {
				return nil, 0, err
			}
			n, err := d.build(&Node{Fragment: FragAndOr, Subs: []*Node{x, last, first}})
			return n, start, err
		}
		return nil, 0, errSyntax
	case txscript.OP_IF:
		switch {
		case d.is(s-2, txscript.OP_DUP):
			return d.wrapped(FragWrapD, last, s-2)
		case d.is(s-2, txscript.OP_0NOTEQUAL) && d.is(s-3, txscript.OP_SIZE):
			return d.wrapped(FragWrapJ, last, s-3)
		}
		return nil, 0, errSyntax
	case txscript.OP_NOTIF:
		f, end := FragOrC, s-1
		if d.is(s-2, txscript.OP_IFDUP) {
			f, end = FragOrD, s-2
		}
		x, start, err := d.expr(end)
		if err != nil {
			return nil, 0, err
		}
		n, err := d.build(&Node{Fragment: f, Subs: []*Node{x, last}})
		return n, start, err
	}
	return nil, 0, errSyntax
}

// number reads a minimally encoded script number at i.
func (d *decoder) number(i int) (int64, error) {
	if i < 0 || i >= len(d.toks) {
		return 0, errSyntax
	}
	t := d.toks[i]
	switch {
	case t.op == txscript.OP_0:
		return 0, nil
	case t.op >= txscript.OP_1 && t.op <= txscript.OP_16:
		return int64(t.op-txscript.OP_1) + 1, nil
	case t.data != nil && int(t.op) == len(t.data):
		n, err := txscript.MakeScriptNum(t.data, true, 5)
		if err != nil {
			return 0, err
		}
		if n <= 16 && n >= 0 {
			return 0, errors.New("non-minimal small integer push")
		}
		return int64(n), nil
	}
	return 0, errSyntax
}

// keyHash returns the HASH160 a key fragment commits to.
func (n *Node) keyHash() []byte {
	if n.KeyHash != nil {
		return n.KeyHash
	}
	return btcutil.Hash160(n.Key)
}
