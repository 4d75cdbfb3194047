package miniscript

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// PolicyKind identifies a concrete policy operator.
type PolicyKind uint8

const (
	PolicyKey PolicyKind = iota
	PolicyAfter
	PolicyOlder
	PolicySha256
	PolicyHash256
	PolicyRipemd160
	PolicyHash160
	PolicyAnd
	PolicyOr
	PolicyThresh
)

var policyNames = map[PolicyKind]string{
	PolicyKey:       "pk",
	PolicyAfter:     "after",
	PolicyOlder:     "older",
	PolicySha256:    "sha256",
	PolicyHash256:   "hash256",
	PolicyRipemd160: "ripemd160",
	PolicyHash160:   "hash160",
	PolicyAnd:       "and",
	PolicyOr:        "or",
	PolicyThresh:    "thresh",
}

// Policy is a concrete spending policy. Or branches carry relative
// likelihoods in Weights.
type Policy struct {
	Kind    PolicyKind
	Key     []byte
	Value   uint32
	Hash    []byte
	K       int
	Subs    []*Policy
	Weights []int
}

// ParsePolicy parses the policy language:
// pk(K), after(n), older(n), sha256(H), hash256(H), ripemd160(H),
// hash160(H), and(A,B), or([p@]A,[q@]B) and thresh(k,A,...).
func ParsePolicy(s string) (*Policy, error) {
	e, err := ParseExpr(s)
	if err != nil {
		return nil, model.NewError(model.ErrPolicyNotCompilable, "parse policy", "expression", err)
	}
	p, err := policyFromExpr(e)
	if err != nil {
		return nil, model.NewError(model.ErrPolicyNotCompilable, "parse policy", e.String(), err)
	}
	return p, nil
}

func policyFromExpr(e *Expr) (*Policy, error) {
	switch e.Name {
	case "pk":
		if len(e.Args) != 1 || !e.Args[0].IsLeaf() {
			return nil, fmt.Errorf("pk takes one key")
		}
		key, err := hex.DecodeString(e.Args[0].Name)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", e.Args[0].Name, err)
		}
		if _, err := btcec.ParsePubKey(key); err != nil {
			return nil, fmt.Errorf("key %q: %w", e.Args[0].Name, err)
		}
		return &Policy{Kind: PolicyKey, Key: key}, nil
	case "after", "older":
		v, err := leafUint32(e)
		if err != nil {
			return nil, err
		}
		if v == 0 || v >= 1<<31 {
			return nil, fmt.Errorf("%s(%d): timelock out of range", e.Name, v)
		}
		kind := PolicyAfter
		if e.Name == "older" {
			kind = PolicyOlder
		}
		return &Policy{Kind: kind, Value: v}, nil
	case "sha256", "hash256", "ripemd160", "hash160":
		if len(e.Args) != 1 || !e.Args[0].IsLeaf() {
			return nil, fmt.Errorf("%s takes one hash", e.Name)
		}
		h, err := hex.DecodeString(e.Args[0].Name)
		if err != nil {
			return nil, err
		}
		kind := policyKindByName(e.Name)
		if len(h) != kind.fragment().hashLen() {
			return nil, fmt.Errorf("%s: hash must be %d bytes", e.Name, kind.fragment().hashLen())
		}
		return &Policy{Kind: kind, Hash: h}, nil
	case "and", "or":
		if len(e.Args) != 2 {
			return nil, fmt.Errorf("%s takes two arguments", e.Name)
		}
		p := &Policy{Kind: PolicyAnd}
		if e.Name == "or" {
			p.Kind = PolicyOr
		}
		for _, a := range e.Args {
			weight := 1
			if i := strings.IndexByte(a.Name, '@'); i >= 0 {
				if p.Kind != PolicyOr {
					return nil, fmt.Errorf("weights are only allowed in or")
				}
				w, err := strconv.Atoi(a.Name[:i])
				if err != nil || w <= 0 {
					return nil, fmt.Errorf("invalid weight %q", a.Name[:i])
				}
				weight = w
				a = &Expr{Name: a.Name[i+1:], Args: a.Args}
			}
			sub, err := policyFromExpr(a)
			if err != nil {
				return nil, err
			}
			p.Subs = append(p.Subs, sub)
			p.Weights = append(p.Weights, weight)
		}
		if p.Kind == PolicyAnd {
			p.Weights = nil
		}
		return p, nil
	case "thresh":
		if len(e.Args) < 2 {
			return nil, fmt.Errorf("thresh needs a threshold and subpolicies")
		}
		k, err := strconv.Atoi(e.Args[0].Name)
		if err != nil {
			return nil, fmt.Errorf("threshold: %w", err)
		}
		p := &Policy{Kind: PolicyThresh, K: k}
		for _, a := range e.Args[1:] {
			sub, err := policyFromExpr(a)
			if err != nil {
				return nil, err
			}
			p.Subs = append(p.Subs, sub)
		}
		if k < 1 || k > len(p.Subs) {
			return nil, fmt.Errorf("threshold %d outside 1..%d", k, len(p.Subs))
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown policy %q", e.Name)
}

func policyKindByName(name string) PolicyKind {
	for k, n := range policyNames {
		if n == name {
			return k
		}
	}
	return PolicyKey
}

func (k PolicyKind) fragment() Fragment {
	switch k {
	case PolicySha256:
		return FragSha256
	case PolicyHash256:
		return FragHash256
	case PolicyRipemd160:
		return FragRipemd160
	case PolicyHash160:
		return FragHash160
	case PolicyAfter:
		return FragAfter
	case PolicyOlder:
		return FragOlder
	default:
		return FragPkK
	}
}

func (p *Policy) String() string {
	switch p.Kind {
	case PolicyKey:
		return "pk(" + hex.EncodeToString(p.Key) + ")"
	case PolicyAfter, PolicyOlder:
		return policyNames[p.Kind] + "(" + strconv.FormatUint(uint64(p.Value), 10) + ")"
	case PolicySha256, PolicyHash256, PolicyRipemd160, PolicyHash160:
		return policyNames[p.Kind] + "(" + hex.EncodeToString(p.Hash) + ")"
	}
	args := make([]string, 0, len(p.Subs)+1)
	if p.Kind == PolicyThresh {
		args = append(args, strconv.Itoa(p.K))
	}
	for i, s := range p.Subs {
		if p.Kind == PolicyOr && p.Weights[i] != 1 {
			args = append(args, strconv.Itoa(p.Weights[i])+"@"+s.String())
			continue
		}
		args = append(args, s.String())
	}
	return policyNames[p.Kind] + "(" + strings.Join(args, ",") + ")"
}

// Keys returns every key the policy mentions, in order of appearance.
func (p *Policy) Keys() [][]byte {
	var keys [][]byte
	var visit func(*Policy)
	visit = func(q *Policy) {
		if q.Kind == PolicyKey {
			keys = append(keys, q.Key)
		}
		for _, s := range q.Subs {
			visit(s)
		}
	}
	visit(p)
	return keys
}

// Lift returns the semantic policy, dropping likelihoods.
func (p *Policy) Lift() *SemanticPolicy {
	switch p.Kind {
	case PolicyKey:
		return &SemanticPolicy{Kind: SemKey, Key: p.Key}
	case PolicyAfter:
		return &SemanticPolicy{Kind: SemAfter, Value: p.Value}
	case PolicyOlder:
		return &SemanticPolicy{Kind: SemOlder, Value: p.Value}
	case PolicySha256, PolicyHash256, PolicyRipemd160, PolicyHash160:
		return &SemanticPolicy{Kind: semanticHashKind(p.Kind.fragment()), Hash: p.Hash}
	}
	subs := make([]*SemanticPolicy, len(p.Subs))
	for i, s := range p.Subs {
		subs[i] = s.Lift()
	}
	k := p.K
	switch p.Kind {
	case PolicyAnd:
		k = len(subs)
	case PolicyOr:
		k = 1
	}
	return &SemanticPolicy{Kind: SemThresh, K: k, Subs: subs}
}
