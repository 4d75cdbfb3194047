package miniscript

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
)

// SemanticKind identifies a semantic policy node.
type SemanticKind uint8

const (
	SemUnsatisfiable SemanticKind = iota
	SemTrivial
	SemKey
	SemKeyHash
	SemAfter
	SemOlder
	SemSha256
	SemHash256
	SemRipemd160
	SemHash160
	SemThresh
)

// SemanticPolicy describes which conditions spend a script, without
// likelihoods or encoding choices.
type SemanticPolicy struct {
	Kind  SemanticKind
	Key   []byte
	Hash  []byte
	Value uint32
	K     int
	Subs  []*SemanticPolicy
}

func semanticHashKind(f Fragment) SemanticKind {
	switch f {
	case FragSha256:
		return SemSha256
	case FragHash256:
		return SemHash256
	case FragRipemd160:
		return SemRipemd160
	default:
		return SemHash160
	}
}

func (p *SemanticPolicy) String() string {
	switch p.Kind {
	case SemUnsatisfiable:
		return "UNSATISFIABLE"
	case SemTrivial:
		return "TRIVIAL"
	case SemKey:
		return "pk(" + hex.EncodeToString(p.Key) + ")"
	case SemKeyHash:
		return "pkh(" + hex.EncodeToString(p.Hash) + ")"
	case SemAfter:
		return "after(" + strconv.FormatUint(uint64(p.Value), 10) + ")"
	case SemOlder:
		return "older(" + strconv.FormatUint(uint64(p.Value), 10) + ")"
	case SemSha256:
		return "sha256(" + hex.EncodeToString(p.Hash) + ")"
	case SemHash256:
		return "hash256(" + hex.EncodeToString(p.Hash) + ")"
	case SemRipemd160:
		return "ripemd160(" + hex.EncodeToString(p.Hash) + ")"
	case SemHash160:
		return "hash160(" + hex.EncodeToString(p.Hash) + ")"
	}
	args := make([]string, len(p.Subs))
	for i, s := range p.Subs {
		args[i] = s.String()
	}
	switch {
	case p.K == len(p.Subs):
		return "and(" + strings.Join(args, ",") + ")"
	case p.K == 1:
		return "or(" + strings.Join(args, ",") + ")"
	default:
		return "thresh(" + strconv.Itoa(p.K) + "," + strings.Join(args, ",") + ")"
	}
}

// Normalized returns an equivalent policy with trivial branches removed,
// nested and/or flattened and subpolicies sorted.
func (p *SemanticPolicy) Normalized() *SemanticPolicy {
	if p.Kind != SemThresh {
		c := *p
		return &c
	}
	k := p.K
	var subs []*SemanticPolicy
	for _, s := range p.Subs {
		n := s.Normalized()
		switch n.Kind {
		case SemTrivial:
			k--
			continue
		case SemUnsatisfiable:
			continue
		}
		subs = append(subs, n)
	}
	switch {
	case k <= 0:
		return &SemanticPolicy{Kind: SemTrivial}
	case k > len(subs):
		return &SemanticPolicy{Kind: SemUnsatisfiable}
	case len(subs) == 1:
		return subs[0]
	}

	isAnd := k == len(subs)
	var flat []*SemanticPolicy
	for _, s := range subs {
		if s.Kind == SemThresh {
			if isAnd && s.K == len(s.Subs) {
				flat = append(flat, s.Subs...)
				continue
			}
			if k == 1 && s.K == 1 {
				flat = append(flat, s.Subs...)
				continue
			}
		}
		flat = append(flat, s)
	}
	if isAnd {
		k = len(flat)
	}
	sort.SliceStable(flat, func(i, j int) bool { return flat[i].String() < flat[j].String() })
	return &SemanticPolicy{Kind: SemThresh, K: k, Subs: flat}
}

// Equivalent reports whether both policies normalize to the same policy
// once keys are compared by their HASH160.
func (p *SemanticPolicy) Equivalent(o *SemanticPolicy) bool {
	return p.hashedKeys().Normalized().String() == o.hashedKeys().Normalized().String()
}

func (p *SemanticPolicy) hashedKeys() *SemanticPolicy {
	c := *p
	if c.Kind == SemKey {
		return &SemanticPolicy{Kind: SemKeyHash, Hash: btcutil.Hash160(p.Key)}
	}
	if len(p.Subs) > 0 {
		c.Subs = make([]*SemanticPolicy, len(p.Subs))
		for i, s := range p.Subs {
			c.Subs[i] = s.hashedKeys()
		}
	}
	return &c
}

// Lift returns the semantic policy of a miniscript.
func (n *Node) Lift() *SemanticPolicy {
	thresh := func(k int, subs ...*SemanticPolicy) *SemanticPolicy {
		return &SemanticPolicy{Kind: SemThresh, K: k, Subs: subs}
	}
	switch n.Fragment {
	case FragFalse:
		return &SemanticPolicy{Kind: SemUnsatisfiable}
	case FragTrue:
		return &SemanticPolicy{Kind: SemTrivial}
	case FragPkK:
		return &SemanticPolicy{Kind: SemKey, Key: n.Key}
	case FragPkH:
		if n.Key != nil {
			return &SemanticPolicy{Kind: SemKey, Key: n.Key}
		}
		return &SemanticPolicy{Kind: SemKeyHash, Hash: n.KeyHash}
	case FragOlder:
		return &SemanticPolicy{Kind: SemOlder, Value: n.Value}
	case FragAfter:
		return &SemanticPolicy{Kind: SemAfter, Value: n.Value}
	case FragSha256, FragHash256, FragRipemd160, FragHash160:
		return &SemanticPolicy{Kind: semanticHashKind(n.Fragment), Hash: n.Hash}
	case FragAndV, FragAndB:
		return thresh(2, n.Subs[0].Lift(), n.Subs[1].Lift())
	case FragOrB, FragOrC, FragOrD, FragOrI:
		return thresh(1, n.Subs[0].Lift(), n.Subs[1].Lift())
	case FragAndOr:
		return thresh(1, thresh(2, n.Subs[0].Lift(), n.Subs[1].Lift()), n.Subs[2].Lift())
	case FragThresh:
		subs := make([]*SemanticPolicy, len(n.Subs))
		for i, s := range n.Subs {
			subs[i] = s.Lift()
		}
		return thresh(n.K, subs...)
	case FragMulti:
		subs := make([]*SemanticPolicy, len(n.Keys))
		for i, k := range n.Keys {
			subs[i] = &SemanticPolicy{Kind: SemKey, Key: k}
		}
		return thresh(n.K, subs...)
	default:
		return n.Subs[0].Lift()
	}
}
