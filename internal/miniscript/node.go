package miniscript

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
)

// Fragment identifies a miniscript fragment or wrapper.
type Fragment uint8

const (
	FragFalse Fragment = iota
	FragTrue
	FragPkK
	FragPkH
	FragOlder
	FragAfter
	FragSha256
	FragHash256
	FragRipemd160
	FragHash160
	FragAndOr
	FragAndV
	FragAndB
	FragOrB
	FragOrC
	FragOrD
	FragOrI
	FragThresh
	FragMulti
	FragWrapA
	FragWrapS
	FragWrapC
	FragWrapD
	FragWrapV
	FragWrapJ
	FragWrapN
)

var fragmentNames = map[Fragment]string{
	FragFalse:     "0",
	FragTrue:      "1",
	FragPkK:       "pk_k",
	FragPkH:       "pk_h",
	FragOlder:     "older",
	FragAfter:     "after",
	FragSha256:    "sha256",
	FragHash256:   "hash256",
	FragRipemd160: "ripemd160",
	FragHash160:   "hash160",
	FragAndOr:     "andor",
	FragAndV:      "and_v",
	FragAndB:      "and_b",
	FragOrB:       "or_b",
	FragOrC:       "or_c",
	FragOrD:       "or_d",
	FragOrI:       "or_i",
	FragThresh:    "thresh",
	FragMulti:     "multi",
}

var wrapperLetters = map[Fragment]byte{
	FragWrapA: 'a',
	FragWrapS: 's',
	FragWrapC: 'c',
	FragWrapD: 'd',
	FragWrapV: 'v',
	FragWrapJ: 'j',
	FragWrapN: 'n',
}

func (f Fragment) isWrapper() bool {
	_, ok := wrapperLetters[f]
	return ok
}

func (f Fragment) isHash() bool {
	switch f {
	case FragSha256, FragHash256, FragRipemd160, FragHash160:
		return true
	default:
		return false
	}
}

func (f Fragment) hashLen() int {
	if f == FragRipemd160 || f == FragHash160 {
		return 20
	}
	return 32
}

// Node is a miniscript expression. Nodes are built through the package
// constructors, which type check them; a Node is never mutated afterwards.
type Node struct {
	Fragment Fragment
	// Key is set for pk_k and, when known, for pk_h.
	Key []byte
	// KeyHash is the HASH160 committed to by pk_h.
	KeyHash []byte
	Keys    [][]byte
	K       int
	Value   uint32
	Hash    []byte
	Subs    []*Node

	typ Type
}

// Type returns the computed miniscript type.
func (n *Node) Type() Type {
	return n.typ
}

func newNode(n *Node) (*Node, bool) {
	t, ok := computeType(n)
	if !ok {
		return nil, false
	}
	n.typ = t
	return n, true
}

func mustNode(n *Node) *Node {
	node, ok := newNode(n)
	if !ok {
		return nil
	}
	return node
}

func pkK(key []byte) *Node {
	return mustNode(&Node{Fragment: FragPkK, Key: key})
}

func pkH(key []byte) *Node {
	return mustNode(&Node{Fragment: FragPkH, Key: key, KeyHash: btcutil.Hash160(key)})
}

func wrap(f Fragment, sub *Node) *Node {
	if sub == nil {
		return nil
	}
	return mustNode(&Node{Fragment: f, Subs: []*Node{sub}})
}

func combine(f Fragment, subs ...*Node) *Node {
	for _, s := range subs {
		if s == nil {
			return nil
		}
	}
	return mustNode(&Node{Fragment: f, Subs: subs})
}

// String renders the node in miniscript notation with pk and pkh aliases
// and merged wrapper prefixes.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	var prefix []byte
	cur := n
	for cur.Fragment.isWrapper() {
		if cur.Fragment == FragWrapC && len(cur.Subs) == 1 {
			sub := cur.Subs[0]
			if sub.Fragment == FragPkK || sub.Fragment == FragPkH {
				break
			}
		}
		prefix = append(prefix, wrapperLetters[cur.Fragment])
		cur = cur.Subs[0]
	}
	if len(prefix) > 0 {
		b.Write(prefix)
		b.WriteByte(':')
	}

	switch cur.Fragment {
	case FragWrapC:
		sub := cur.Subs[0]
		if sub.Fragment == FragPkK {
			b.WriteString("pk(")
		} else {
			b.WriteString("pkh(")
		}
		b.WriteString(sub.keyString())
		b.WriteByte(')')
	case FragFalse, FragTrue:
		b.WriteString(fragmentNames[cur.Fragment])
	case FragPkK, FragPkH:
		b.WriteString(fragmentNames[cur.Fragment])
		b.WriteByte('(')
		b.WriteString(cur.keyString())
		b.WriteByte(')')
	case FragOlder, FragAfter:
		b.WriteString(fragmentNames[cur.Fragment])
		b.WriteByte('(')
		b.WriteString(strconv.FormatUint(uint64(cur.Value), 10))
		b.WriteByte(')')
	case FragSha256, FragHash256, FragRipemd160, FragHash160:
		b.WriteString(fragmentNames[cur.Fragment])
		b.WriteByte('(')
		b.WriteString(hex.EncodeToString(cur.Hash))
		b.WriteByte(')')
	case FragMulti:
		b.WriteString("multi(")
		b.WriteString(strconv.Itoa(cur.K))
		for _, k := range cur.Keys {
			b.WriteByte(',')
			b.WriteString(hex.EncodeToString(k))
		}
		b.WriteByte(')')
	case FragThresh:
		b.WriteString("thresh(")
		b.WriteString(strconv.Itoa(cur.K))
		for _, s := range cur.Subs {
			b.WriteByte(',')
			s.write(b)
		}
		b.WriteByte(')')
	default:
		b.WriteString(fragmentNames[cur.Fragment])
		b.WriteByte('(')
		for i, s := range cur.Subs {
			if i > 0 {
				b.WriteByte(',')
			}
			s.write(b)
		}
		b.WriteByte(')')
	}
}

func (n *Node) keyString() string {
	if n.Key != nil {
		return hex.EncodeToString(n.Key)
	}
	return hex.EncodeToString(n.KeyHash)
}

// walk visits n and its descendants depth first.
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, s := range n.Subs {
		s.walk(fn)
	}
}
