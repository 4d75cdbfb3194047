package miniscript

import "strings"

// Basic is the basic miniscript type.
type Basic uint8

const (
	TypeB Basic = iota + 1
	TypeV
	TypeK
	TypeW
)

// Type is a basic type plus the correctness properties the rules need.
type Type struct {
	Basic Basic
	// Z consumes exactly 0 stack elements.
	Z bool
	// O consumes exactly 1 stack element.
	O bool
	// N has a non-zero top stack element when satisfied.
	N bool
	// D can be dissatisfied without a signature.
	D bool
	// U leaves exactly 1 on the stack when satisfied.
	U bool
	// S requires a signature in every satisfaction.
	S bool
}

func (t Type) String() string {
	var b strings.Builder
	b.WriteByte("?BVKW"[t.Basic])
	for _, p := range []struct {
		on bool
		c  byte
	}{{t.Z, 'z'}, {t.O, 'o'}, {t.N, 'n'}, {t.D, 'd'}, {t.U, 'u'}, {t.S, 's'}} {
		if p.on {
			b.WriteByte(p.c)
		}
	}
	return b.String()
}

func (t Type) is(basic Basic) bool {
	return t.Basic == basic
}

// computeType applies the typing rules to n given its already typed
// children. It reports false when the combination is ill-typed.
func computeType(n *Node) (Type, bool) {
	sub := func(i int) Type { return n.Subs[i].typ }
	switch n.Fragment {
	case FragFalse:
		return Type{Basic: TypeB, Z: true, U: true, D: true, S: true}, true
	case FragTrue:
		return Type{Basic: TypeB, Z: true, U: true}, true
	case FragPkK:
		return Type{Basic: TypeK, O: true, N: true, D: true, U: true, S: true}, true
	case FragPkH:
		return Type{Basic: TypeK, N: true, D: true, U: true, S: true}, true
	case FragOlder, FragAfter:
		if n.Value == 0 || n.Value >= 1<<31 {
			return Type{}, false
		}
		return Type{Basic: TypeB, Z: true}, true
	case FragSha256, FragHash256, FragRipemd160, FragHash160:
		if len(n.Hash) != n.Fragment.hashLen() {
			return Type{}, false
		}
		return Type{Basic: TypeB, O: true, N: true, D: true, U: true}, true
	case FragMulti:
		if len(n.Keys) == 0 || len(n.Keys) > maxPubKeysPerMulti || n.K < 1 || n.K > len(n.Keys) {
			return Type{}, false
		}
		return Type{Basic: TypeB, N: true, D: true, U: true, S: true}, true
	case FragWrapA:
		x := sub(0)
		if !x.is(TypeB) {
			return Type{}, false
		}
		return Type{Basic: TypeW, D: x.D, U: x.U, S: x.S}, true
	case FragWrapS:
		x := sub(0)
		if !x.is(TypeB) || !x.O {
			return Type{}, false
		}
		return Type{Basic: TypeW, D: x.D, U: x.U, S: x.S}, true
	case FragWrapC:
		x := sub(0)
		if !x.is(TypeK) {
			return Type{}, false
		}
		return Type{Basic: TypeB, O: x.O, N: x.N, D: x.D, U: true, S: true}, true
	case FragWrapD:
		x := sub(0)
		if !x.is(TypeV) || !x.Z {
			return Type{}, false
		}
		return Type{Basic: TypeB, O: true, N: true, D: true, U: true, S: x.S}, true
	case FragWrapV:
		x := sub(0)
		if !x.is(TypeB) {
			return Type{}, false
		}
		return Type{Basic: TypeV, Z: x.Z, O: x.O, N: x.N, S: x.S}, true
	case FragWrapJ:
		x := sub(0)
		if !x.is(TypeB) || !x.N {
			return Type{}, false
		}
		return Type{Basic: TypeB, O: x.O, N: true, D: true, U: x.U, S: x.S}, true
	case FragWrapN:
		x := sub(0)
		if !x.is(TypeB) {
			return Type{}, false
		}
		return Type{Basic: TypeB, Z: x.Z, O: x.O, N: x.N, D: x.D, U: true, S: x.S}, true
	case FragAndV:
		x, y := sub(0), sub(1)
		if !x.is(TypeV) || y.is(TypeW) {
			return Type{}, false
		}
		return Type{
			Basic: y.Basic,
			Z:     x.Z && y.Z,
			O:     (x.Z && y.O) || (x.O && y.Z),
			N:     x.N || (x.Z && y.N),
			U:     y.U,
			S:     x.S || y.S,
		}, true
	case FragAndB:
		x, y := sub(0), sub(1)
		if !x.is(TypeB) || !y.is(TypeW) {
			return Type{}, false
		}
		return Type{
			Basic: TypeB,
			Z:     x.Z && y.Z,
			O:     (x.Z && y.O) || (x.O && y.Z),
			N:     x.N || (x.Z && y.N),
			D:     x.D && y.D,
			U:     true,
			S:     x.S || y.S,
		}, true
	case FragOrB:
		x, z := sub(0), sub(1)
		if !x.is(TypeB) || !x.D || !z.is(TypeW) || !z.D {
			return Type{}, false
		}
		return Type{
			Basic: TypeB,
			Z:     x.Z && z.Z,
			O:     (x.Z && z.O) || (x.O && z.Z),
			D:     true,
			U:     true,
			S:     x.S && z.S,
		}, true
	case FragOrC:
		x, z := sub(0), sub(1)
		if !x.is(TypeB) || !x.D || !x.U || !z.is(TypeV) {
			return Type{}, false
		}
		return Type{Basic: TypeV, Z: x.Z && z.Z, O: x.O && z.Z, S: x.S && z.S}, true
	case FragOrD:
		x, z := sub(0), sub(1)
		if !x.is(TypeB) || !x.D || !x.U || !z.is(TypeB) {
			return Type{}, false
		}
		return Type{Basic: TypeB, Z: x.Z && z.Z, O: x.O && z.Z, D: z.D, U: z.U, S: x.S && z.S}, true
	case FragOrI:
		x, z := sub(0), sub(1)
		if x.Basic != z.Basic || x.is(TypeW) {
			return Type{}, false
		}
		return Type{Basic: x.Basic, O: x.Z && z.Z, D: x.D || z.D, U: x.U && z.U, S: x.S && z.S}, true
	case FragAndOr:
		x, y, z := sub(0), sub(1), sub(2)
		if !x.is(TypeB) || !x.D || !x.U || y.Basic != z.Basic || y.is(TypeW) {
			return Type{}, false
		}
		return Type{
			Basic: y.Basic,
			Z:     x.Z && y.Z && z.Z,
			O:     (x.Z && y.O && z.O) || (x.O && y.Z && z.Z),
			D:     z.D,
			U:     y.U && z.U,
			S:     z.S && (x.S || y.S),
		}, true
	case FragThresh:
		if len(n.Subs) == 0 || n.K < 1 || n.K > len(n.Subs) {
			return Type{}, false
		}
		zeros, ones, sigs := 0, 0, 0
		for i, s := range n.Subs {
			want := TypeW
			if i == 0 {
				want = TypeB
			}
			if !s.typ.is(want) || !s.typ.D || !s.typ.U {
				return Type{}, false
			}
			switch {
			case s.typ.Z:
				zeros++
			case s.typ.O:
				ones++
			}
			if s.typ.S {
				sigs++
			}
		}
		all := len(n.Subs)
		return Type{
			Basic: TypeB,
			Z:     zeros == all,
			O:     zeros == all-1 && ones == 1,
			D:     true,
			U:     true,
			S:     sigs >= all-n.K+1,
		}, true
	default:
		return Type{}, false
	}
}
