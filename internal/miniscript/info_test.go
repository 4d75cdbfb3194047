package miniscript

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolicyInfo(t *testing.T) {
	a, b := hx(testKey(1)), hx(testKey(2))

	tests := []struct {
		name     string
		policy   string
		keys     int
		minKeys  int
		relative []uint32
		absolute []uint32
	}{
		{
			name:    "single key",
			policy:  "pk(" + a + ")",
			keys:    1,
			minKeys: 1,
		},
		{
			name:     "key or timelocked key",
			policy:   fmt.Sprintf("or(pk(%s),and(pk(%s),older(144)))", a, b),
			keys:     2,
			minKeys:  1,
			relative: []uint32{144},
		},
		{
			name:     "threshold with absolute timelock",
			policy:   fmt.Sprintf("thresh(2,pk(%s),pk(%s),after(100))", a, b),
			keys:     2,
			minKeys:  1,
			absolute: []uint32{100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := PolicyInfo(tt.policy)
			require.NoError(t, err)
			require.Equal(t, tt.keys, info.Keys)
			require.Equal(t, tt.minKeys, info.MinimumKeys)
			require.Equal(t, tt.relative, info.RelativeTimelocks)
			require.Equal(t, tt.absolute, info.AbsoluteTimelocks)
			require.False(t, info.IsTrivial)
			require.False(t, info.IsUnsatisfiable)
			require.Contains(t, info.Miniscript, "segwitv0")
			require.Contains(t, info.Miniscript, "p2sh")
		})
	}

	_, err := PolicyInfo("pk(")
	require.Error(t, err)
}

func TestSemanticMinimumKeys(t *testing.T) {
	unsat := &SemanticPolicy{Kind: SemUnsatisfiable}
	_, ok := unsat.MinimumKeys()
	require.False(t, ok)

	key := &SemanticPolicy{Kind: SemKey, Key: testKey(1)}
	p := &SemanticPolicy{Kind: SemThresh, K: 2, Subs: []*SemanticPolicy{key, unsat}}
	_, ok = p.MinimumKeys()
	require.False(t, ok)

	p = &SemanticPolicy{Kind: SemThresh, K: 1, Subs: []*SemanticPolicy{key, unsat}}
	m, ok := p.MinimumKeys()
	require.True(t, ok)
	require.Equal(t, 1, m)
}

func TestCompileInfo(t *testing.T) {
	a := hx(testKey(1))
	info, err := CompileInfo("pk("+a+")", SegwitV0)
	require.NoError(t, err)
	require.Equal(t, "pk("+a+")", info.Miniscript)
	require.Equal(t, "segwitv0", info.Context)
	require.Equal(t, "21"+a+"ac", info.Hex)
	require.Equal(t, a+" OP_CHECKSIG", info.Asm)
	require.Equal(t, []string{"<sig(" + a + ")>"}, info.WitnessTemplate)

	_, err = CompileInfo("thresh(3,pk("+a+"))", SegwitV0)
	require.Error(t, err)
}

func TestInfo(t *testing.T) {
	a, b := hx(testKey(1)), hx(testKey(2))
	n, err := Parse("and_v(v:pk("+a+"),or_d(pk("+b+"),older(10)))", SegwitV0)
	require.NoError(t, err)
	script, err := n.Script()
	require.NoError(t, err)

	info, err := Info(n, SegwitV0)
	require.NoError(t, err)
	require.Equal(t, n.String(), info.Miniscript)
	require.Equal(t, hx(script), info.Script)
	require.Equal(t, len(script), info.ScriptSize)
	require.Equal(t, 2, info.MaxSatisfactionWitnessElements)
	require.True(t, info.RequiresSig)
	require.True(t, info.WithinResourceLimits)
	require.NotEmpty(t, info.Policy)
	require.Equal(t, Template(n), info.WitnessTemplate)
}
