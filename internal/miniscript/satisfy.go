package miniscript

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

type elemKind uint8

const (
	elemSig elemKind = iota
	elemPubKey
	elemPreimage
	elemOne
	elemEmpty
	elemZero32
)

// elem is one witness stack element. ref names the key or hash it is for
// and data holds the concrete bytes when known.
type elem struct {
	kind elemKind
	ref  []byte
	data []byte
}

func (e elem) placeholder() string {
	switch e.kind {
	case elemSig:
		return "<sig(" + hex.EncodeToString(e.ref) + ")>"
	case elemPubKey:
		return "<pubkey(" + hex.EncodeToString(e.ref) + ")>"
	case elemPreimage:
		return "<preimage(" + hex.EncodeToString(e.ref) + ")>"
	case elemOne:
		return "1"
	case elemEmpty:
		return "<empty>"
	default:
		return hex.EncodeToString(make([]byte, 32))
	}
}

func (e elem) bytes() []byte {
	switch e.kind {
	case elemOne:
		return []byte{0x01}
	case elemEmpty:
		return []byte{}
	case elemZero32:
		return make([]byte, 32)
	default:
		return e.data
	}
}

// stack is a witness in stack order: the last element is the top.
type stack struct {
	ok    bool
	elems []elem
	size  int
}

var impossible = stack{}

func single(e elem, size int) stack {
	return stack{ok: true, elems: []elem{e}, size: size}
}

func empty() stack {
	return stack{ok: true}
}

// then returns s below t, so t is consumed first.
func (s stack) then(t stack) stack {
	if !s.ok || !t.ok {
		return impossible
	}
	elems := make([]elem, 0, len(s.elems)+len(t.elems))
	elems = append(elems, s.elems...)
	elems = append(elems, t.elems...)
	return stack{ok: true, elems: elems, size: s.size + t.size}
}

func cheaper(a, b stack) stack {
	switch {
	case !a.ok:
		return b
	case !b.ok:
		return a
	case b.size < a.size:
		return b
	default:
		return a
	}
}

// satisfier supplies the witness elements a miniscript asks for.
type satisfier interface {
	sig(key []byte) (elem, int, bool)
	// pkh resolves the key of a pk_h to a signature and public key.
	pkh(n *Node) (sig stack, pub stack, ok bool)
	preimage(f Fragment, hash []byte) (elem, int, bool)
	older(n uint32) bool
	after(n uint32) bool
}

type pair struct {
	sat, dissat stack
}

func satisfy(n *Node, s satisfier) pair {
	sub := func(i int) pair { return satisfy(n.Subs[i], s) }
	emptyElem := single(elem{kind: elemEmpty}, emptySize)
	one := single(elem{kind: elemOne}, oneSize)

	switch n.Fragment {
	case FragFalse:
		return pair{impossible, empty()}
	case FragTrue:
		return pair{empty(), impossible}
	case FragPkK:
		res := pair{dissat: emptyElem}
		if e, size, ok := s.sig(n.Key); ok {
			res.sat = single(e, size)
		}
		return res
	case FragPkH:
		sig, pub, ok := s.pkh(n)
		if !ok {
			if n.Key == nil {
				return pair{impossible, impossible}
			}
			return pair{impossible, emptyElem.then(single(elem{kind: elemPubKey, ref: n.Key, data: n.Key}, pubKeySize))}
		}
		return pair{sat: sig.then(pub), dissat: emptyElem.then(pub)}
	case FragOlder:
		if s.older(n.Value) {
			return pair{empty(), impossible}
		}
		return pair{impossible, impossible}
	case FragAfter:
		if s.after(n.Value) {
			return pair{empty(), impossible}
		}
		return pair{impossible, impossible}
	case FragSha256, FragHash256, FragRipemd160, FragHash160:
		res := pair{dissat: single(elem{kind: elemZero32}, preimageSize)}
		if e, size, ok := s.preimage(n.Fragment, n.Hash); ok {
			res.sat = single(e, size)
		}
		return res
	case FragWrapA, FragWrapS, FragWrapC, FragWrapN:
		return sub(0)
	case FragWrapD:
		x := sub(0)
		return pair{x.sat.then(one), emptyElem}
	case FragWrapV:
		return pair{sub(0).sat, impossible}
	case FragWrapJ:
		return pair{sub(0).sat, emptyElem}
	case FragAndV:
		x, y := sub(0), sub(1)
		return pair{y.sat.then(x.sat), impossible}
	case FragAndB:
		x, y := sub(0), sub(1)
		return pair{y.sat.then(x.sat), y.dissat.then(x.dissat)}
	case FragOrB:
		x, z := sub(0), sub(1)
		return pair{
			sat:    cheaper(z.dissat.then(x.sat), z.sat.then(x.dissat)),
			dissat: z.dissat.then(x.dissat),
		}
	case FragOrD:
		x, z := sub(0), sub(1)
		return pair{cheaper(x.sat, z.sat.then(x.dissat)), z.dissat.then(x.dissat)}
	case FragOrC:
		x, z := sub(0), sub(1)
		return pair{cheaper(x.sat, z.sat.then(x.dissat)), impossible}
	case FragOrI:
		x, z := sub(0), sub(1)
		return pair{
			sat:    cheaper(x.sat.then(one), z.sat.then(emptyElem)),
			dissat: cheaper(x.dissat.then(one), z.dissat.then(emptyElem)),
		}
	case FragAndOr:
		x, y, z := sub(0), sub(1), sub(2)
		return pair{
			sat:    cheaper(y.sat.then(x.sat), z.sat.then(x.dissat)),
			dissat: z.dissat.then(x.dissat),
		}
	case FragThresh:
		return satisfyThresh(n, s)
	case FragMulti:
		return satisfyMulti(n, s)
	}
	return pair{impossible, impossible}
}

// satisfyThresh satisfies exactly K subexpressions, choosing those whose
// satisfaction costs least relative to their dissatisfaction.
func satisfyThresh(n *Node, s satisfier) pair {
	subs := make([]pair, len(n.Subs))
	for i := range n.Subs {
		subs[i] = satisfy(n.Subs[i], s)
	}
	dissat := empty()
	for i := len(subs) - 1; i >= 0; i-- {
		dissat = dissat.then(subs[i].dissat)
	}

	order := make([]int, 0, len(subs))
	for i, p := range subs {
		if p.sat.ok {
			order = append(order, i)
		}
	}
	delta := func(i int) int {
		if !subs[i].dissat.ok {
			return -1 << 30
		}
		return subs[i].sat.size - subs[i].dissat.size
	}
	sort.SliceStable(order, func(a, b int) bool { return delta(order[a]) < delta(order[b]) })
	if len(order) < n.K {
		return pair{impossible, dissat}
	}
	chosen := make(map[int]bool, n.K)
	for _, i := range order[:n.K] {
		chosen[i] = true
	}
	sat := empty()
	for i := len(subs) - 1; i >= 0; i-- {
		if chosen[i] {
			sat = sat.then(subs[i].sat)
		} else {
			sat = sat.then(subs[i].dissat)
		}
	}
	return pair{sat, dissat}
}

func satisfyMulti(n *Node, s satisfier) pair {
	dummy := single(elem{kind: elemEmpty}, emptySize)
	dissat := dummy
	for i := 0; i < n.K; i++ {
		dissat = dissat.then(single(elem{kind: elemEmpty}, emptySize))
	}
	sat := dummy
	count := 0
	for _, key := range n.Keys {
		if count == n.K {
			break
		}
		if e, size, ok := s.sig(key); ok {
			sat = sat.then(single(e, size))
			count++
		}
	}
	if count < n.K {
		return pair{impossible, dissat}
	}
	return pair{sat, dissat}
}

// templateSatisfier assumes every signature, preimage and timelock is
// available.
type templateSatisfier struct{}

func (templateSatisfier) sig(key []byte) (elem, int, bool) {
	return elem{kind: elemSig, ref: key}, sigSize, true
}

func (templateSatisfier) pkh(n *Node) (stack, stack, bool) {
	ref := n.Key
	if ref == nil {
		ref = n.KeyHash
	}
	return single(elem{kind: elemSig, ref: ref}, sigSize), single(elem{kind: elemPubKey, ref: ref}, pubKeySize), true
}

func (templateSatisfier) preimage(_ Fragment, hash []byte) (elem, int, bool) {
	return elem{kind: elemPreimage, ref: hash}, preimageSize, true
}

func (templateSatisfier) older(uint32) bool { return true }
func (templateSatisfier) after(uint32) bool { return true }

// Template returns the placeholders of the cheapest satisfaction of n
// assuming all data is available, in witness order.
func Template(n *Node) []string {
	p := satisfy(n, templateSatisfier{})
	if !p.sat.ok {
		return nil
	}
	out := make([]string, len(p.sat.elems))
	for i, e := range p.sat.elems {
		out[i] = e.placeholder()
	}
	return out
}

// Assets is the data available to satisfy a miniscript. Signatures are
// keyed by hex public key and preimages by hex hash. The transaction
// fields are those of the spending transaction and input.
type Assets struct {
	Signatures map[string][]byte
	Preimages  map[string][]byte
	TxVersion  int32
	Sequence   uint32
	LockTime   uint32
}

func (a Assets) sig(key []byte) (elem, int, bool) {
	sig, ok := a.Signatures[hex.EncodeToString(key)]
	if !ok {
		return elem{}, 0, false
	}
	return elem{kind: elemSig, ref: key, data: sig}, len(sig) + 1, true
}

func (a Assets) pkh(n *Node) (stack, stack, bool) {
	keys := make([]string, 0, len(a.Signatures))
	for k := range a.Signatures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key, err := hex.DecodeString(k)
		if err != nil || !bytes.Equal(btcutil.Hash160(key), n.keyHash()) {
			continue
		}
		sig := a.Signatures[k]
		return single(elem{kind: elemSig, ref: key, data: sig}, len(sig)+1),
			single(elem{kind: elemPubKey, ref: key, data: key}, len(key)+1), true
	}
	return impossible, impossible, false
}

func (a Assets) preimage(f Fragment, hash []byte) (elem, int, bool) {
	pre, ok := a.Preimages[hex.EncodeToString(hash)]
	if !ok || len(pre) != 32 || !bytes.Equal(hashPreimage(f, pre), hash) {
		return elem{}, 0, false
	}
	return elem{kind: elemPreimage, ref: hash, data: pre}, preimageSize, true
}

func hashPreimage(f Fragment, pre []byte) []byte {
	switch f {
	case FragSha256:
		h := sha256.Sum256(pre)
		return h[:]
	case FragHash256:
		return chainhash.DoubleHashB(pre)
	case FragRipemd160:
		h := ripemd160.New()
		h.Write(pre)
		return h.Sum(nil)
	default:
		return btcutil.Hash160(pre)
	}
}

const (
	sequenceDisableFlag = 1 << 31
	sequenceTypeFlag    = 1 << 22
	sequenceMask        = 0x0000ffff
	lockTimeThreshold   = 500000000
)

// older applies the BIP68 relative lock rules to the input sequence.
func (a Assets) older(n uint32) bool {
	if a.TxVersion < 2 || a.Sequence&sequenceDisableFlag != 0 {
		return false
	}
	if n&sequenceTypeFlag != a.Sequence&sequenceTypeFlag {
		return false
	}
	return n&sequenceMask <= a.Sequence&sequenceMask
}

// after applies the CHECKLOCKTIMEVERIFY rules to the transaction lock time.
func (a Assets) after(n uint32) bool {
	if a.Sequence == wire.MaxTxInSequenceNum {
		return false
	}
	if (n < lockTimeThreshold) != (a.LockTime < lockTimeThreshold) {
		return false
	}
	return n <= a.LockTime
}

// Satisfy builds the smallest witness stack satisfying n from assets.
func Satisfy(n *Node, assets Assets) ([][]byte, error) {
	p := satisfy(n, assets)
	if !p.sat.ok {
		return nil, model.NewError(model.ErrInsufficientData, "satisfy miniscript", n.String(),
			fmt.Errorf("available signatures, preimages or timelocks do not satisfy the script"))
	}
	out := make([][]byte, len(p.sat.elems))
	for i, e := range p.sat.elems {
		out[i] = e.bytes()
	}
	return out, nil
}
