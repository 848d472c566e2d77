package registry

import (
	"context"
	"math/big"

	"github.com/specialistvlad/flowgridgo/internal/flow"
	"github.com/zclconf/go-cty/cty"
)

// registerBuiltins installs the node kinds every flowgridgo build ships
// with:
//
//	math  — inputs a, b; outputs c = a+b, d = a-b
//	sum   — multi input values; output total, the sum of all contributions
//	scale — inputs value, factor; output scaled = value*factor
//	note  — pass-through with a single text input; never calculated
func registerBuiltins(r *Registry) {
	r.Register("math", newMathNode)
	r.Register("sum", newSumNode)
	r.Register("scale", newScaleNode)
	r.Register("note", newNoteNode)
}

func newMathNode(name string) *flow.Node {
	n := flow.NewNode(name)
	n.AddInput("a")
	n.AddInput("b")
	n.AddOutput("c")
	n.AddOutput("d")
	n.SetCalc(func(ctx context.Context, inputs map[string]cty.Value, aux any) (*flow.CalcOutput, error) {
		a := numberOr(inputs["a"], 0)
		b := numberOr(inputs["b"], 0)
		return &flow.CalcOutput{Outputs: map[string]cty.Value{
			"c": cty.NumberVal(new(big.Float).Add(a, b)),
			"d": cty.NumberVal(new(big.Float).Sub(a, b)),
		}}, nil
	})
	return n
}

func newSumNode(name string) *flow.Node {
	n := flow.NewNode(name)
	n.AddMultiInput("values")
	n.AddOutput("total")
	n.SetCalc(func(ctx context.Context, inputs map[string]cty.Value, aux any) (*flow.CalcOutput, error) {
		total := new(big.Float)
		v := inputs["values"]
		if v != cty.NilVal && !v.IsNull() && v.Type().IsTupleType() {
			for it := v.ElementIterator(); it.Next(); {
				_, elem := it.Element()
				total.Add(total, numberOr(elem, 0))
			}
		} else {
			total = numberOr(v, 0)
		}
		return &flow.CalcOutput{Outputs: map[string]cty.Value{
			"total": cty.NumberVal(total),
		}}, nil
	})
	return n
}

func newScaleNode(name string) *flow.Node {
	n := flow.NewNode(name)
	n.AddInput("value")
	n.AddInput("factor")
	n.AddOutput("scaled")
	n.SetCalc(func(ctx context.Context, inputs map[string]cty.Value, aux any) (*flow.CalcOutput, error) {
		value := numberOr(inputs["value"], 0)
		factor := numberOr(inputs["factor"], 1)
		return &flow.CalcOutput{Outputs: map[string]cty.Value{
			"scaled": cty.NumberVal(new(big.Float).Mul(value, factor)),
		}}, nil
	})
	return n
}

func newNoteNode(name string) *flow.Node {
	n := flow.NewNode(name)
	n.AddInput("text")
	return n
}

// numberOr reads a numeric port value, substituting def for unset,
// null, or non-numeric values.
func numberOr(v cty.Value, def float64) *big.Float {
	if v == cty.NilVal || v.IsNull() || !v.Type().Equals(cty.Number) {
		return big.NewFloat(def)
	}
	return v.AsBigFloat()
}
