package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func calcOnce(t *testing.T, kind string, inputs map[string]cty.Value) map[string]cty.Value {
	t.Helper()
	n, err := Builtin().NewNode(kind, "n")
	require.NoError(t, err)
	require.True(t, n.Computable())
	out, err := n.Calc()(context.Background(), inputs, nil)
	require.NoError(t, err)
	return out.Outputs
}

func assertNum(t *testing.T, v cty.Value, want float64) {
	t.Helper()
	require.True(t, v.Type().Equals(cty.Number))
	f, _ := v.AsBigFloat().Float64()
	assert.Equal(t, want, f)
}

func TestBuiltinKinds(t *testing.T) {
	r := Builtin()
	assert.Equal(t, []string{"math", "note", "scale", "sum"}, r.Kinds())

	_, err := r.NewNode("nope", "n")
	assert.ErrorContains(t, err, "unknown node kind")
}

func TestMathNode(t *testing.T) {
	out := calcOnce(t, "math", map[string]cty.Value{
		"a": cty.NumberIntVal(2),
		"b": cty.NumberIntVal(3),
	})
	assertNum(t, out["c"], 5)
	assertNum(t, out["d"], -1)

	// Unset inputs count as zero.
	out = calcOnce(t, "math", map[string]cty.Value{"a": cty.NumberIntVal(7)})
	assertNum(t, out["c"], 7)
	assertNum(t, out["d"], 7)
}

func TestSumNode(t *testing.T) {
	t.Run("tuple of contributions", func(t *testing.T) {
		out := calcOnce(t, "sum", map[string]cty.Value{
			"values": cty.TupleVal([]cty.Value{
				cty.NumberIntVal(1),
				cty.NumberIntVal(2),
				cty.NumberIntVal(4),
			}),
		})
		assertNum(t, out["total"], 7)
	})

	t.Run("scalar value", func(t *testing.T) {
		out := calcOnce(t, "sum", map[string]cty.Value{"values": cty.NumberIntVal(9)})
		assertNum(t, out["total"], 9)
	})

	t.Run("unset value", func(t *testing.T) {
		out := calcOnce(t, "sum", map[string]cty.Value{"values": cty.NilVal})
		assertNum(t, out["total"], 0)
	})
}

func TestScaleNode(t *testing.T) {
	out := calcOnce(t, "scale", map[string]cty.Value{
		"value":  cty.NumberIntVal(6),
		"factor": cty.NumberIntVal(3),
	})
	assertNum(t, out["scaled"], 18)

	// Factor defaults to one.
	out = calcOnce(t, "scale", map[string]cty.Value{"value": cty.NumberIntVal(6)})
	assertNum(t, out["scaled"], 6)
}

func TestNoteNodeIsPassthrough(t *testing.T) {
	n, err := Builtin().NewNode("note", "memo")
	require.NoError(t, err)
	assert.False(t, n.Computable())
	_, ok := n.Input("text")
	assert.True(t, ok)
}

func TestRegisterReplaces(t *testing.T) {
	r := Builtin()
	r.Register("math", newNoteNode)
	n, err := r.NewNode("math", "n")
	require.NoError(t, err)
	assert.False(t, n.Computable())
}
