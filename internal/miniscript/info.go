package miniscript

import (
	"encoding/hex"
	"sort"

	"github.com/btcsuite/btcd/txscript"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// Contexts lists every context a policy is compiled for by PolicyInfo.
var Contexts = []Context{SegwitV0, P2SH}

// KeyCount is the number of key and key-hash leaves in p.
func (p *SemanticPolicy) KeyCount() int {
	switch p.Kind {
	case SemKey, SemKeyHash:
		return 1
	case SemThresh:
		n := 0
		for _, s := range p.Subs {
			n += s.KeyCount()
		}
		return n
	}
	return 0
}

// MinimumKeys is the fewest keys any satisfaction of p needs. It reports
// false when p cannot be satisfied.
func (p *SemanticPolicy) MinimumKeys() (int, bool) {
	switch p.Kind {
	case SemUnsatisfiable:
		return 0, false
	case SemKey, SemKeyHash:
		return 1, true
	case SemThresh:
		var mins []int
		for _, s := range p.Subs {
			if m, ok := s.MinimumKeys(); ok {
				mins = append(mins, m)
			}
		}
		if len(mins) < p.K {
			return 0, false
		}
		sort.Ints(mins)
		total := 0
		for _, m := range mins[:p.K] {
			total += m
		}
		return total, true
	}
	return 0, true
}

// Timelocks returns the distinct relative and absolute timelocks of p in
// ascending order.
func (p *SemanticPolicy) Timelocks() (relative, absolute []uint32) {
	rel := map[uint32]struct{}{}
	abs := map[uint32]struct{}{}
	var walk func(*SemanticPolicy)
	walk = func(s *SemanticPolicy) {
		switch s.Kind {
		case SemOlder:
			rel[s.Value] = struct{}{}
		case SemAfter:
			abs[s.Value] = struct{}{}
		case SemThresh:
			for _, c := range s.Subs {
				walk(c)
			}
		}
	}
	walk(p)
	return sortedSet(rel), sortedSet(abs)
}

func sortedSet(m map[uint32]struct{}) []uint32 {
	if len(m) == 0 {
		return nil
	}
	out := make([]uint32, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PolicyInfo parses a concrete policy and reports its semantics together
// with the miniscript it compiles to in each context that accepts it.
func PolicyInfo(s string) (model.PolicyInfo, error) {
	p, err := ParsePolicy(s)
	if err != nil {
		return model.PolicyInfo{}, err
	}
	sem := p.Lift()
	norm := sem.Normalized()
	info := model.PolicyInfo{
		Policy:     p.String(),
		Semantic:   sem.String(),
		Normalized: norm.String(),
		IsTrivial:  norm.Kind == SemTrivial,
		Keys:       sem.KeyCount(),
	}
	info.IsUnsatisfiable = norm.Kind == SemUnsatisfiable
	if m, ok := sem.MinimumKeys(); ok {
		info.MinimumKeys = m
	}
	info.RelativeTimelocks, info.AbsoluteTimelocks = sem.Timelocks()
	for _, ctx := range Contexts {
		c, err := Compile(p, ctx)
		if err != nil {
			continue
		}
		if info.Miniscript == nil {
			info.Miniscript = make(map[string]string, len(Contexts))
		}
		info.Miniscript[ctx.String()] = c.Node.String()
	}
	return info, nil
}

// CompileInfo compiles a policy for ctx.
func CompileInfo(s string, ctx Context) (model.CompileInfo, error) {
	p, err := ParsePolicy(s)
	if err != nil {
		return model.CompileInfo{}, err
	}
	c, err := Compile(p, ctx)
	if err != nil {
		return model.CompileInfo{}, err
	}
	asm, _ := txscript.DisasmString(c.Script)
	return model.CompileInfo{
		Miniscript:      c.Node.String(),
		Context:         ctx.String(),
		Hex:             hex.EncodeToString(c.Script),
		Asm:             asm,
		Cost:            c.Cost,
		WitnessTemplate: c.Template,
	}, nil
}

// Info describes a miniscript node in ctx.
func Info(n *Node, ctx Context) (model.MiniscriptInfo, error) {
	a, err := Analyze(n, ctx)
	if err != nil {
		return model.MiniscriptInfo{}, err
	}
	script, err := n.Script()
	if err != nil {
		return model.MiniscriptInfo{}, err
	}
	return model.MiniscriptInfo{
		Miniscript:                     n.String(),
		Context:                        ctx.String(),
		Script:                         hex.EncodeToString(script),
		ScriptSize:                     a.ScriptSize,
		MaxSatisfactionWitnessElements: a.MaxSatisfactionElements,
		MaxSatisfactionSize:            a.MaxSatisfactionSize,
		Policy:                         n.Lift().Normalized().String(),
		RequiresSig:                    a.RequiresSignature,
		WithinResourceLimits:           a.WithinLimits,
		HasMixedTimelocks:              a.TimelockMix,
		HasRepeatedKeys:                a.RepeatedKeys,
		WitnessTemplate:                Template(n),
	}, nil
}
