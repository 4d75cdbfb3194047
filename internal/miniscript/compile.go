package miniscript

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// Witness element sizes used by the cost model, length prefix included.
const (
	sigSize      = 73
	pubKeySize   = 34
	preimageSize = 33
	oneSize      = 2
	emptySize    = 1
	costEpsilon  = 1e-9
)

var inf = math.Inf(1)

// Compilation is the result of compiling a policy.
type Compilation struct {
	Node     *Node
	Script   []byte
	Template []string
	// Cost is the script size plus the expected satisfaction size under
	// the policy's likelihoods.
	Cost float64
}

// candidate is one miniscript implementing a policy node, with its expected
// satisfaction and dissatisfaction witness sizes.
type candidate struct {
	node   *Node
	script []byte
	sat    float64
	dissat float64
}

func newCandidate(n *Node, sat, dissat float64) *candidate {
	if n == nil {
		return nil
	}
	script, err := n.Script()
	if err != nil {
		return nil
	}
	return &candidate{node: n, script: script, sat: sat, dissat: dissat}
}

func (c *candidate) satCost() float64 {
	return float64(len(c.script)) + c.sat
}

func (c *candidate) dissatCost() float64 {
	return float64(len(c.script)) + c.dissat
}

// less orders candidates by cost, then by script bytes.
func less(a, b *candidate, cost func(*candidate) float64) bool {
	ca, cb := cost(a), cost(b)
	if math.Abs(ca-cb) > costEpsilon {
		return ca < cb
	}
	return bytes.Compare(a.script, b.script) < 0
}

// Compile compiles p into the cheapest miniscript valid in ctx. Among
// candidates of equal cost the one with the lexicographically smallest
// script wins.
func Compile(p *Policy, ctx Context) (*Compilation, error) {
	const op = "compile policy"
	for _, key := range p.Keys() {
		if !ctx.validKey(key) {
			return nil, model.Errorf(model.ErrPolicyNotCompilable, op, "key", "key %x is not valid in %s context", key, ctx)
		}
	}
	cands, err := newCompiler().compile(p)
	if err != nil {
		return nil, model.NewError(model.ErrPolicyNotCompilable, op, p.String(), err)
	}

	var best *candidate
	var reason error = fmt.Errorf("no B type candidate")
	for _, c := range cands {
		if !c.node.typ.is(TypeB) {
			continue
		}
		if err := checkLimits(c.node, c.script, ctx); err != nil {
			reason = err
			continue
		}
		if best == nil || less(c, best, (*candidate).satCost) {
			best = c
		}
	}
	if best == nil {
		return nil, model.NewError(model.ErrPolicyNotCompilable, op, p.String(), reason)
	}
	return &Compilation{
		Node:     best.node,
		Script:   best.script,
		Template: Template(best.node),
		Cost:     best.satCost(),
	}, nil
}

func checkLimits(n *Node, script []byte, ctx Context) error {
	if len(script) > ctx.MaxScriptSize() {
		return fmt.Errorf("script size %d exceeds %d", len(script), ctx.MaxScriptSize())
	}
	if ops := opCount(script); ops > maxOpsPerScript {
		return fmt.Errorf("%d opcodes exceed %d", ops, maxOpsPerScript)
	}
	if m := maxSatisfaction(n); m.sat.ok && m.sat.elems > maxStandardWitness {
		return fmt.Errorf("%d witness elements exceed %d", m.sat.elems, maxStandardWitness)
	}
	return nil
}

// candidateSet keeps, per type signature, the cheapest candidate to satisfy
// and the cheapest to dissatisfy.
type candidateSet map[string][2]*candidate

func (s candidateSet) add(c *candidate) {
	if c == nil {
		return
	}
	sig := c.node.typ.String()
	cur := s[sig]
	if cur[0] == nil || less(c, cur[0], (*candidate).satCost) {
		cur[0] = c
	}
	if !math.IsInf(c.dissat, 1) && (cur[1] == nil || less(c, cur[1], (*candidate).dissatCost)) {
		cur[1] = c
	}
	s[sig] = cur
}

// list returns the distinct candidates in a deterministic order.
func (s candidateSet) list() []*candidate {
	sigs := make([]string, 0, len(s))
	for sig := range s {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)
	var out []*candidate
	for _, sig := range sigs {
		pair := s[sig]
		out = append(out, pair[0])
		if pair[1] != nil && pair[1] != pair[0] {
			out = append(out, pair[1])
		}
	}
	return out
}

// withWrappers adds the wrapped forms of every candidate: c: of K, v: of
// B, d: of zero-consuming V and finally a: and s: of every B.
func (s candidateSet) withWrappers() candidateSet {
	for _, c := range s.list() {
		if c.node.typ.is(TypeK) {
			s.add(newCandidate(wrap(FragWrapC, c.node), c.sat, c.dissat))
		}
	}
	for _, c := range s.list() {
		if c.node.typ.is(TypeB) {
			s.add(newCandidate(wrap(FragWrapV, c.node), c.sat, inf))
		}
	}
	for _, c := range s.list() {
		if t := c.node.typ; t.is(TypeV) && t.Z {
			s.add(newCandidate(wrap(FragWrapD, c.node), c.sat+oneSize, emptySize))
		}
	}
	for _, c := range s.list() {
		t := c.node.typ
		if !t.is(TypeB) {
			continue
		}
		s.add(newCandidate(wrap(FragWrapA, c.node), c.sat, c.dissat))
		if t.O {
			s.add(newCandidate(wrap(FragWrapS, c.node), c.sat, c.dissat))
		}
	}
	return s
}

func filter(cands []*candidate, ok func(Type) bool) []*candidate {
	var out []*candidate
	for _, c := range cands {
		if ok(c.node.typ) {
			out = append(out, c)
		}
	}
	return out
}

// compiler memoizes the candidates of every policy node so each node is
// compiled once however often its parents look at it.
type compiler struct {
	memo map[*Policy]compiled
}

type compiled struct {
	cands []*candidate
	err   error
}

func newCompiler() *compiler {
	return &compiler{memo: map[*Policy]compiled{}}
}

func (c *compiler) compile(p *Policy) ([]*candidate, error) {
	if r, ok := c.memo[p]; ok {
		return r.cands, r.err
	}
	cands, err := c.compileNode(p)
	c.memo[p] = compiled{cands: cands, err: err}
	return cands, err
}

func (c *compiler) compileNode(p *Policy) ([]*candidate, error) {
	s := candidateSet{}
	switch p.Kind {
	case PolicyKey:
		s.add(newCandidate(pkK(p.Key), sigSize, emptySize))
		s.add(newCandidate(pkH(p.Key), sigSize+pubKeySize, emptySize+pubKeySize))
	case PolicyAfter, PolicyOlder:
		s.add(newCandidate(mustNode(&Node{Fragment: p.Kind.fragment(), Value: p.Value}), 0, inf))
	case PolicySha256, PolicyHash256, PolicyRipemd160, PolicyHash160:
		s.add(newCandidate(mustNode(&Node{Fragment: p.Kind.fragment(), Hash: p.Hash}), preimageSize, preimageSize))
	case PolicyAnd:
		a, b, err := c.compileSubs(p.Subs[0], p.Subs[1])
		if err != nil {
			return nil, err
		}
		addAnd(s, a, b)
		addAnd(s, b, a)
	case PolicyOr:
		a, b, err := c.compileSubs(p.Subs[0], p.Subs[1])
		if err != nil {
			return nil, err
		}
		wa := float64(p.Weights[0]) / float64(p.Weights[0]+p.Weights[1])
		addOr(s, a, b, wa, 1-wa)
		addOr(s, b, a, 1-wa, wa)
	case PolicyThresh:
		if err := c.addThresh(s, p); err != nil {
			return nil, err
		}
	}
	out := s.withWrappers().list()
	if len(out) == 0 {
		return nil, fmt.Errorf("%s has no valid miniscript", p)
	}
	return out, nil
}

func (c *compiler) compileSubs(x, y *Policy) ([]*candidate, []*candidate, error) {
	a, err := c.compile(x)
	if err != nil {
		return nil, nil, err
	}
	b, err := c.compile(y)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func addAnd(s candidateSet, xs, ys []*candidate) {
	for _, x := range filter(xs, func(t Type) bool { return t.is(TypeV) }) {
		for _, y := range filter(ys, func(t Type) bool { return !t.is(TypeW) }) {
			s.add(newCandidate(combine(FragAndV, x.node, y.node), x.sat+y.sat, inf))
		}
	}
	for _, x := range filter(xs, func(t Type) bool { return t.is(TypeB) }) {
		for _, y := range filter(ys, func(t Type) bool { return t.is(TypeW) }) {
			s.add(newCandidate(combine(FragAndB, x.node, y.node), x.sat+y.sat, x.dissat+y.dissat))
		}
	}
}

// addOr adds the or combinators with x taken with probability wx.
func addOr(s candidateSet, xs, zs []*candidate, wx, wz float64) {
	bdu := func(t Type) bool { return t.is(TypeB) && t.D && t.U }
	for _, x := range filter(xs, func(t Type) bool { return t.is(TypeB) && t.D }) {
		for _, z := range filter(zs, func(t Type) bool { return t.is(TypeW) && t.D }) {
			sat := wx*(x.sat+z.dissat) + wz*(x.dissat+z.sat)
			s.add(newCandidate(combine(FragOrB, x.node, z.node), sat, x.dissat+z.dissat))
		}
	}
	for _, x := range filter(xs, bdu) {
		for _, z := range zs {
			sat := wx*x.sat + wz*(x.dissat+z.sat)
			switch {
			case z.node.typ.is(TypeB):
				s.add(newCandidate(combine(FragOrD, x.node, z.node), sat, x.dissat+z.dissat))
			case z.node.typ.is(TypeV):
				s.add(newCandidate(combine(FragOrC, x.node, z.node), sat, inf))
			}
		}
	}
	for _, x := range xs {
		for _, z := range zs {
			if x.node.typ.Basic != z.node.typ.Basic || x.node.typ.is(TypeW) {
				continue
			}
			sat := wx*(x.sat+oneSize) + wz*(z.sat+emptySize)
			dissat := math.Min(x.dissat+oneSize, z.dissat+emptySize)
			s.add(newCandidate(combine(FragOrI, x.node, z.node), sat, dissat))
		}
	}
}

func (c *compiler) addThresh(s candidateSet, p *Policy) error {
	n := len(p.Subs)
	if n == 2 && p.K == 2 {
		return c.addThreshAsAnd(s, p)
	}
	if n == 2 && p.K == 1 {
		a, b, err := c.compileSubs(p.Subs[0], p.Subs[1])
		if err != nil {
			return err
		}
		addOr(s, a, b, 0.5, 0.5)
		addOr(s, b, a, 0.5, 0.5)
	}

	pSat := float64(p.K) / float64(n)
	allKeys := n <= maxPubKeysPerMulti
	for _, sub := range p.Subs {
		if sub.Kind != PolicyKey {
			allKeys = false
		}
	}
	if allKeys {
		keys := make([][]byte, n)
		for i, sub := range p.Subs {
			keys[i] = sub.Key
		}
		s.add(newCandidate(mustNode(&Node{Fragment: FragMulti, K: p.K, Keys: keys}),
			emptySize+float64(p.K)*sigSize, emptySize+float64(p.K)*emptySize))
	}

	nodes := make([]*Node, n)
	var sat, dissat float64
	for i, sub := range p.Subs {
		cands, err := c.compile(sub)
		if err != nil {
			return err
		}
		want := TypeW
		if i == 0 {
			want = TypeB
		}
		var best *candidate
		cost := func(x *candidate) float64 {
			return float64(len(x.script)) + pSat*x.sat + (1-pSat)*x.dissat
		}
		for _, cand := range filter(cands, func(t Type) bool { return t.is(want) && t.D && t.U }) {
			if best == nil || less(cand, best, cost) {
				best = cand
			}
		}
		if best == nil {
			return nil
		}
		nodes[i] = best.node
		sat += pSat*best.sat + (1-pSat)*best.dissat
		dissat += best.dissat
	}
	s.add(newCandidate(mustNode(&Node{Fragment: FragThresh, K: p.K, Subs: nodes}), sat, dissat))
	return nil
}

func (c *compiler) addThreshAsAnd(s candidateSet, p *Policy) error {
	a, b, err := c.compileSubs(p.Subs[0], p.Subs[1])
	if err != nil {
		return err
	}
	addAnd(s, a, b)
	addAnd(s, b, a)
	return nil
}
