package interp

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// registerJSONPrimitives installs the JSON namespace object. Conversion
// runs between pseudo-objects and the host JSON library; cycles fail with
// a TypeError the way the language's stringify does.
func (i *Interpreter) registerJSONPrimitives() {
	j := NewObject(i.protos.Object)

	i.method(j, "stringify", "JSON.stringify", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		tree, err := jsonTree(argAt(args, 0), make(map[*Object]bool))
		if err != nil {
			return nil, err
		}
		if tree == omitted {
			return Undefined{}, nil
		}
		data, merr := json.Marshal(tree)
		if merr != nil {
			return nil, NewTypeError("value is not serializable: " + merr.Error())
		}
		return String(data), nil
	})

	i.method(j, "parse", "JSON.parse", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		var raw interface{}
		dec := json.NewDecoder(jsonReader(argString(args, 0)))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, NewSyntaxError("invalid JSON: " + err.Error())
		}
		return i.jsonValue(raw), nil
	})

	i.defineGlobal("JSON", j)
}

// omitted marks values stringify drops (undefined, functions).
var omitted = &struct{ name string }{"omitted"}

// jsonTree converts a pseudo-value to a plain Go tree for json.Marshal.
func jsonTree(v Value, seen map[*Object]bool) (interface{}, *UserError) {
	switch x := v.(type) {
	case Undefined:
		return omitted, nil
	case Null:
		return nil, nil
	case Boolean:
		return bool(x), nil
	case Number:
		f := float64(x)
		if x.IsNaN() || math.IsInf(f, 0) {
			return nil, nil // NaN and infinities stringify as null
		}
		return f, nil
	case String:
		return string(x), nil
	case *Object:
		if x.Class() == ClassFunction {
			return omitted, nil
		}
		if seen[x] {
			return nil, NewTypeError("converting circular structure to JSON")
		}
		seen[x] = true
		defer delete(seen, x)
		if x.Class() == ClassArray {
			n := x.ArrayLength()
			out := make([]interface{}, 0, n)
			for idx := int64(0); idx < n; idx++ {
				e, ok := x.Get(strconv.FormatInt(idx, 10))
				if !ok {
					out = append(out, nil)
					continue
				}
				sub, err := jsonTree(e, seen)
				if err != nil {
					return nil, err
				}
				if sub == omitted {
					sub = nil
				}
				out = append(out, sub)
			}
			return out, nil
		}
		out := orderedJSON{}
		for _, k := range x.EnumerableKeys() {
			e, _ := x.Get(k)
			sub, err := jsonTree(e, seen)
			if err != nil {
				return nil, err
			}
			if sub == omitted {
				continue
			}
			out = append(out, orderedJSONEntry{k, sub})
		}
		return out, nil
	default:
		return nil, nil
	}
}

// orderedJSON marshals an object in property insertion order.
type orderedJSONEntry struct {
	k string
	v interface{}
}

type orderedJSON []orderedJSONEntry

func (o orderedJSON) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for idx, e := range o {
		if idx > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(e.k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(e.v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	return append(buf, '}'), nil
}

// jsonValue converts decoded JSON into pseudo-values.
func (i *Interpreter) jsonValue(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return Null{}
	case bool:
		return Boolean(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Number(nan())
		}
		return Number(f)
	case float64:
		return Number(x)
	case string:
		return String(x)
	case []interface{}:
		arr := i.NewArray()
		for idx, e := range x {
			arr.Set(strconv.Itoa(idx), i.jsonValue(e))
		}
		return arr
	case map[string]interface{}:
		// json.Decoder loses key order for maps, so keys are installed in
		// sorted order; the document's own key order is not preserved.
		obj := NewObject(i.protos.Object)
		for _, k := range sortedKeys(x) {
			obj.Set(k, i.jsonValue(x[k]))
		}
		return obj
	default:
		return Undefined{}
	}
}

func jsonReader(s string) *strings.Reader {
	return strings.NewReader(s)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
