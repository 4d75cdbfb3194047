package miniscript

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
)

const maxSigSize = 74

type bound struct {
	ok    bool
	elems int
	size  int
}

func (b bound) plus(o bound) bound {
	if !b.ok || !o.ok {
		return bound{}
	}
	return bound{ok: true, elems: b.elems + o.elems, size: b.size + o.size}
}

func larger(a, b bound) bound {
	switch {
	case !a.ok:
		return b
	case !b.ok:
		return a
	}
	return bound{ok: true, elems: max(a.elems, b.elems), size: max(a.size, b.size)}
}

func elems(sizes ...int) bound {
	b := bound{ok: true, elems: len(sizes)}
	for _, s := range sizes {
		b.size += s
	}
	return b
}

type bounds struct {
	sat, dissat bound
}

// maxSatisfaction computes upper bounds on the witness of n.
func maxSatisfaction(n *Node) bounds {
	sub := func(i int) bounds { return maxSatisfaction(n.Subs[i]) }
	none := bound{}
	switch n.Fragment {
	case FragFalse:
		return bounds{none, elems()}
	case FragTrue:
		return bounds{elems(), none}
	case FragPkK:
		return bounds{elems(maxSigSize), elems(emptySize)}
	case FragPkH:
		return bounds{elems(maxSigSize, pubKeySize), elems(emptySize, pubKeySize)}
	case FragOlder, FragAfter:
		return bounds{elems(), none}
	case FragSha256, FragHash256, FragRipemd160, FragHash160:
		return bounds{elems(preimageSize), elems(preimageSize)}
	case FragWrapA, FragWrapS, FragWrapC, FragWrapN:
		return sub(0)
	case FragWrapD:
		return bounds{sub(0).sat.plus(elems(oneSize)), elems(emptySize)}
	case FragWrapV:
		return bounds{sub(0).sat, none}
	case FragWrapJ:
		return bounds{sub(0).sat, elems(emptySize)}
	case FragAndV:
		return bounds{sub(0).sat.plus(sub(1).sat), none}
	case FragAndB:
		x, y := sub(0), sub(1)
		return bounds{x.sat.plus(y.sat), x.dissat.plus(y.dissat)}
	case FragOrB:
		x, z := sub(0), sub(1)
		return bounds{larger(x.sat.plus(z.dissat), x.dissat.plus(z.sat)), x.dissat.plus(z.dissat)}
	case FragOrD:
		x, z := sub(0), sub(1)
		return bounds{larger(x.sat, x.dissat.plus(z.sat)), x.dissat.plus(z.dissat)}
	case FragOrC:
		x, z := sub(0), sub(1)
		return bounds{larger(x.sat, x.dissat.plus(z.sat)), none}
	case FragOrI:
		x, z := sub(0), sub(1)
		return bounds{
			larger(x.sat.plus(elems(oneSize)), z.sat.plus(elems(emptySize))),
			larger(x.dissat.plus(elems(oneSize)), z.dissat.plus(elems(emptySize))),
		}
	case FragAndOr:
		x, y, z := sub(0), sub(1), sub(2)
		return bounds{larger(x.sat.plus(y.sat), x.dissat.plus(z.sat)), x.dissat.plus(z.dissat)}
	case FragMulti:
		sat := elems(emptySize)
		dissat := elems(emptySize)
		for i := 0; i < n.K; i++ {
			sat = sat.plus(elems(maxSigSize))
			dissat = dissat.plus(elems(emptySize))
		}
		return bounds{sat, dissat}
	case FragThresh:
		subs := make([]bounds, len(n.Subs))
		dissat := elems()
		for i := range n.Subs {
			subs[i] = sub(i)
			dissat = dissat.plus(subs[i].dissat)
		}
		// Upper bound: every sub contributes its larger witness.
		sat := elems()
		for _, s := range subs {
			sat = sat.plus(larger(s.sat, s.dissat))
		}
		return bounds{sat, dissat}
	}
	return bounds{none, none}
}

// Analysis summarizes the resource usage and sanity of a miniscript.
type Analysis struct {
	ScriptSize              int
	OpCount                 int
	MaxSatisfactionElements int
	MaxSatisfactionSize     int
	RequiresSignature       bool
	TimelockMix             bool
	RepeatedKeys            bool
	WithinLimits            bool
	Sane                    bool
}

// Analyze reports resource usage of n in ctx.
func Analyze(n *Node, ctx Context) (Analysis, error) {
	script, err := n.Script()
	if err != nil {
		return Analysis{}, err
	}
	m := maxSatisfaction(n)
	a := Analysis{
		ScriptSize:              len(script),
		OpCount:                 opCount(script),
		MaxSatisfactionElements: m.sat.elems,
		MaxSatisfactionSize:     m.sat.size,
		RequiresSignature:       n.typ.S,
		TimelockMix:             hasTimelockMix(n),
		RepeatedKeys:            hasRepeatedKeys(n),
	}
	a.WithinLimits = checkLimits(n, script, ctx) == nil
	a.Sane = a.WithinLimits && a.RequiresSignature && !a.TimelockMix && !a.RepeatedKeys
	return a, nil
}

// MaxSatisfactionWeight is the largest witness a satisfaction of n can
// take, in weight units, excluding the script itself.
func MaxSatisfactionWeight(n *Node) (int, bool) {
	m := maxSatisfaction(n)
	if !m.sat.ok {
		return 0, false
	}
	return m.sat.size, true
}

func hasTimelockMix(n *Node) bool {
	var heightAfter, timeAfter, heightOlder, timeOlder bool
	n.walk(func(c *Node) {
		switch c.Fragment {
		case FragAfter:
			if c.Value < lockTimeThreshold {
				heightAfter = true
			} else {
				timeAfter = true
			}
		case FragOlder:
			if c.Value&sequenceTypeFlag == 0 {
				heightOlder = true
			} else {
				timeOlder = true
			}
		}
	})
	return (heightAfter && timeAfter) || (heightOlder && timeOlder)
}

func hasRepeatedKeys(n *Node) bool {
	seen := map[string]bool{}
	dup := false
	mark := func(hash []byte) {
		k := hex.EncodeToString(hash)
		if seen[k] {
			dup = true
		}
		seen[k] = true
	}
	n.walk(func(c *Node) {
		switch c.Fragment {
		case FragPkK, FragPkH:
			mark(c.keyHash())
		case FragMulti:
			for _, k := range c.Keys {
				mark(btcutil.Hash160(k))
			}
		}
	})
	return dup
}
