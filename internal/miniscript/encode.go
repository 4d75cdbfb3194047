package miniscript

import (
	"github.com/btcsuite/btcd/txscript"
)

var hashOps = map[Fragment]byte{
	FragSha256:    txscript.OP_SHA256,
	FragHash256:   txscript.OP_HASH256,
	FragRipemd160: txscript.OP_RIPEMD160,
	FragHash160:   txscript.OP_HASH160,
}

// Script encodes the node.
func (n *Node) Script() ([]byte, error) {
	b := txscript.NewScriptBuilder()
	n.encode(b, false)
	return b.Script()
}

// encode writes n into b. With verify set, n is the child of a v: wrapper
// and its final opcode is emitted in the VERIFY form when one exists.
func (n *Node) encode(b *txscript.ScriptBuilder, verify bool) {
	switch n.Fragment {
	case FragFalse:
		b.AddOp(txscript.OP_0)
	case FragTrue:
		b.AddOp(txscript.OP_1)
	case FragPkK:
		b.AddData(n.Key)
	case FragPkH:
		b.AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160).AddData(n.KeyHash).AddOp(txscript.OP_EQUALVERIFY)
	case FragOlder:
		b.AddInt64(int64(n.Value)).AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	case FragAfter:
		b.AddInt64(int64(n.Value)).AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	case FragSha256, FragHash256, FragRipemd160, FragHash160:
		b.AddOp(txscript.OP_SIZE).AddInt64(32).AddOp(txscript.OP_EQUALVERIFY)
		b.AddOp(hashOps[n.Fragment]).AddData(n.Hash)
		addEqual(b, verify)
	case FragMulti:
		b.AddInt64(int64(n.K))
		for _, k := range n.Keys {
			b.AddData(k)
		}
		b.AddInt64(int64(len(n.Keys)))
		if verify {
			b.AddOp(txscript.OP_CHECKMULTISIGVERIFY)
		} else {
			b.AddOp(txscript.OP_CHECKMULTISIG)
		}
	case FragAndOr:
		n.Subs[0].encode(b, false)
		b.AddOp(txscript.OP_NOTIF)
		n.Subs[2].encode(b, false)
		b.AddOp(txscript.OP_ELSE)
		n.Subs[1].encode(b, false)
		b.AddOp(txscript.OP_ENDIF)
	case FragAndV:
		n.Subs[0].encode(b, false)
		n.Subs[1].encode(b, verify)
	case FragAndB:
		n.Subs[0].encode(b, false)
		n.Subs[1].encode(b, false)
		b.AddOp(txscript.OP_BOOLAND)
	case FragOrB:
		n.Subs[0].encode(b, false)
		n.Subs[1].encode(b, false)
		b.AddOp(txscript.OP_BOOLOR)
	case FragOrC:
		n.Subs[0].encode(b, false)
		b.AddOp(txscript.OP_NOTIF)
		n.Subs[1].encode(b, false)
		b.AddOp(txscript.OP_ENDIF)
	case FragOrD:
		n.Subs[0].encode(b, false)
		b.AddOp(txscript.OP_IFDUP).AddOp(txscript.OP_NOTIF)
		n.Subs[1].encode(b, false)
		b.AddOp(txscript.OP_ENDIF)
	case FragOrI:
		b.AddOp(txscript.OP_IF)
		n.Subs[0].encode(b, false)
		b.AddOp(txscript.OP_ELSE)
		n.Subs[1].encode(b, false)
		b.AddOp(txscript.OP_ENDIF)
	case FragThresh:
		for i, s := range n.Subs {
			s.encode(b, false)
			if i > 0 {
				b.AddOp(txscript.OP_ADD)
			}
		}
		b.AddInt64(int64(n.K))
		addEqual(b, verify)
	case FragWrapA:
		b.AddOp(txscript.OP_TOALTSTACK)
		n.Subs[0].encode(b, false)
		b.AddOp(txscript.OP_FROMALTSTACK)
	case FragWrapS:
		b.AddOp(txscript.OP_SWAP)
		n.Subs[0].encode(b, false)
	case FragWrapC:
		n.Subs[0].encode(b, false)
		if verify {
			b.AddOp(txscript.OP_CHECKSIGVERIFY)
		} else {
			b.AddOp(txscript.OP_CHECKSIG)
		}
	case FragWrapD:
		b.AddOp(txscript.OP_DUP).AddOp(txscript.OP_IF)
		n.Subs[0].encode(b, false)
		b.AddOp(txscript.OP_ENDIF)
	case FragWrapV:
		sub := n.Subs[0]
		sub.encode(b, sub.hasVerifyForm())
		if !sub.hasVerifyForm() {
			b.AddOp(txscript.OP_VERIFY)
		}
	case FragWrapJ:
		b.AddOp(txscript.OP_SIZE).AddOp(txscript.OP_0NOTEQUAL).AddOp(txscript.OP_IF)
		n.Subs[0].encode(b, false)
		b.AddOp(txscript.OP_ENDIF)
	case FragWrapN:
		n.Subs[0].encode(b, false)
		b.AddOp(txscript.OP_0NOTEQUAL)
	}
}

// hasVerifyForm reports whether n ends in an opcode with a VERIFY variant.
func (n *Node) hasVerifyForm() bool {
	switch n.Fragment {
	case FragWrapC, FragMulti, FragThresh, FragSha256, FragHash256, FragRipemd160, FragHash160:
		return true
	case FragAndV:
		return n.Subs[1].hasVerifyForm()
	default:
		return false
	}
}

func addEqual(b *txscript.ScriptBuilder, verify bool) {
	if verify {
		b.AddOp(txscript.OP_EQUALVERIFY)
	} else {
		b.AddOp(txscript.OP_EQUAL)
	}
}

// opCount is the number of non-push opcodes in script, counting the keys
// of every CHECKMULTISIG as the interpreter does.
func opCount(script []byte) int {
	count := 0
	lastNum := 0
	tok := txscript.MakeScriptTokenizer(0, script)
	for tok.Next() {
		op := tok.Opcode()
		if op > txscript.OP_16 {
			count++
		}
		if op == txscript.OP_CHECKMULTISIG || op == txscript.OP_CHECKMULTISIGVERIFY {
			count += lastNum
		}
		switch {
		case op >= txscript.OP_1 && op <= txscript.OP_16:
			lastNum = int(op-txscript.OP_1) + 1
		case tok.Data() != nil && len(tok.Data()) == 1:
			lastNum = int(tok.Data()[0])
		default:
			lastNum = 0
		}
	}
	return count
}
