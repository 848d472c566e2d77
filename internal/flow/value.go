package flow

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// ValueToGo converts a port value to a plain Go value suitable for JSON
// encoding or logging. Unknown and null values convert to nil.
func ValueToGo(val cty.Value) (any, error) {
	if val == cty.NilVal || !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	if val.Type().IsPrimitiveType() {
		switch val.Type() {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", val.Type().FriendlyName())
		}
	}
	if val.Type().IsObjectType() || val.Type().IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			converted, err := ValueToGo(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = converted
		}
		return out, nil
	}
	if val.Type().IsTupleType() || val.Type().IsListType() || val.Type().IsSetType() {
		out := make([]any, 0)
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			converted, err := ValueToGo(v)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", val.Type().FriendlyName())
}

// ResultToGo converts a whole run result into nested Go maps, keyed by
// node id then "inputs"/"outputs" then port name.
func ResultToGo(r Result) (map[string]any, error) {
	out := make(map[string]any, len(r))
	for nodeID, nr := range r {
		inputs := make(map[string]any, len(nr.Inputs))
		for name, v := range nr.Inputs {
			converted, err := ValueToGo(v)
			if err != nil {
				return nil, fmt.Errorf("node %s input %s: %w", nodeID, name, err)
			}
			inputs[name] = converted
		}
		outputs := make(map[string]any, len(nr.Outputs))
		for name, v := range nr.Outputs {
			converted, err := ValueToGo(v)
			if err != nil {
				return nil, fmt.Errorf("node %s output %s: %w", nodeID, name, err)
			}
			outputs[name] = converted
		}
		out[nodeID] = map[string]any{"inputs": inputs, "outputs": outputs}
	}
	return out, nil
}
