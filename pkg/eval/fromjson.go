package eval

import "sort"

// FromJSON converts a value produced by decoding arbitrary JSON into
// interface{} (numbers as float64, objects as map[string]interface{})
// into the evaluator's Value variant. The decoded map does not keep
// the source's key order, so object keys are inserted in sorted order.
// Used by the CLI to turn --input flag values into bindable inputs.
func FromJSON(v interface{}) Value {
	switch vv := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(vv)
	case float64:
		return Number(vv)
	case string:
		return String(vv)
	case []interface{}:
		out := make([]Value, len(vv))
		for i, e := range vv {
			out[i] = FromJSON(e)
		}
		return Array(out)
	case map[string]interface{}:
		m := NewOrderedMap()
		for _, k := range sortedKeys(vv) {
			m.Set(k, FromJSON(vv[k]))
		}
		return Object(m)
	default:
		return Null()
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
