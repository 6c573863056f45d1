package interp

import (
	"math"
	"strconv"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/chazu/warren/ast"
)

// Class tags carried on every pseudo-object. Serialization and internal-slot
// handling dispatch on the tag, never on host prototype identity.
const (
	ClassObject     = "Object"
	ClassFunction   = "Function"
	ClassArray      = "Array"
	ClassDate       = "Date"
	ClassRegExp     = "RegExp"
	ClassError      = "Error"
	ClassArguments  = "Arguments"
	ClassWeakMap    = "WeakMap"
	ClassWeakSet    = "WeakSet"
	ClassThread     = "Thread"
	ClassBox        = "Box"
	ClassServer     = "Server"
	ClassConnection = "Connection"
)

// Property is one slot of a pseudo-object's property table.
type Property struct {
	Value        Value
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// Object is a pseudo-object on the interpreter's pseudo-heap. Its property
// table preserves insertion order; the prototype chain is acyclic; a
// non-extensible object accepts updates and deletions but not additions.
type Object struct {
	proto      *Object
	keys       []string
	props      map[string]*Property
	extensible bool
	class      string

	// data holds per-class internal slots: *FunctionData, *DateData,
	// *RegExpData, *ThreadRef, *WeakMapData, *WeakSetData, *SocketData.
	// It is never reachable from user code as a property.
	data interface{}
}

// FunctionData is the internal slot of a Function-class object: either a
// native-table entry (NativeID set) or a source-defined function (Node,
// Prog, Scope set).
type FunctionData struct {
	NativeID string
	Native   NativeFunc

	Params []string
	Body   *ast.BlockStatement
	Node   int // node ID of the defining Function node
	Prog   *ast.Program
	Scope  *Scope
}

// DateData is the internal slot of a Date-class object: milliseconds since
// the Unix epoch (possibly NaN for invalid dates).
type DateData struct {
	Ms float64
}

// Time returns the timestamp as a time.Time in UTC. Invalid dates return
// the zero time.
func (d *DateData) Time() time.Time {
	if math.IsNaN(d.Ms) {
		return time.Time{}
	}
	return time.UnixMilli(int64(d.Ms)).UTC()
}

// RegExpData is the internal slot of a RegExp-class object.
type RegExpData struct {
	Source string
	Flags  string
	Re     *regexp2.Regexp
}

// ThreadRef is the internal slot of a Thread-class object.
type ThreadRef struct {
	ID int64
}

// SocketData is the internal slot of Server- and Connection-class objects.
// The backing is host-owned and is never serialized; after a restore it is
// nil until the host reconnects it.
type SocketData struct {
	Backing interface{}
}

// NewObject creates an extensible, ordinary pseudo-object with the given
// prototype.
func NewObject(proto *Object) *Object {
	return &Object{
		proto:      proto,
		props:      make(map[string]*Property),
		extensible: true,
		class:      ClassObject,
	}
}

// NewTagged creates an extensible pseudo-object with the given prototype
// and class tag.
func NewTagged(proto *Object, class string) *Object {
	o := NewObject(proto)
	o.class = class
	return o
}

// Class returns the object's class tag.
func (o *Object) Class() string { return o.class }

// Data returns the object's internal-slot payload.
func (o *Object) Data() interface{} { return o.data }

// SetData replaces the object's internal-slot payload.
func (o *Object) SetData(d interface{}) { o.data = d }

// Proto returns the prototype link.
func (o *Object) Proto() *Object { return o.proto }

// SetProto replaces the prototype link. It rejects any assignment that
// would create a cycle.
func (o *Object) SetProto(p *Object) *UserError {
	for walk := p; walk != nil; walk = walk.proto {
		if walk == o {
			return NewTypeError("cyclic prototype chain")
		}
	}
	o.proto = p
	return nil
}

// Extensible reports whether new properties may be added.
func (o *Object) Extensible() bool { return o.extensible }

// PreventExtensions makes the object non-extensible.
func (o *Object) PreventExtensions() { o.extensible = false }

func (*Object) Typeof() string { return "object" }

func (*Object) IsPrimitive() bool { return false }

// TypeofValue returns "function" for callable objects, "object" otherwise.
// The typeof operator uses this rather than Typeof to distinguish the two.
func (o *Object) TypeofValue() string {
	if o.class == ClassFunction {
		return "function"
	}
	return "object"
}

// ---------------------------------------------------------------------------
// Property access
// ---------------------------------------------------------------------------

// GetOwn returns the own property slot for key, or nil.
func (o *Object) GetOwn(key string) *Property {
	return o.props[key]
}

// Get looks key up along the prototype chain. The boolean reports whether
// the property was found anywhere on the chain.
func (o *Object) Get(key string) (Value, bool) {
	for walk := o; walk != nil; walk = walk.proto {
		if p := walk.props[key]; p != nil {
			return p.Value, true
		}
	}
	return Undefined{}, false
}

// Set writes key on the object itself, creating the slot if allowed.
// Writes to a non-writable slot and additions to a non-extensible object
// fail with a TypeError.
func (o *Object) Set(key string, v Value) *UserError {
	if p := o.props[key]; p != nil {
		if !p.Writable {
			return NewTypeError("cannot assign to read-only property " + strconv.Quote(key))
		}
		p.Value = v
		o.arrayLengthFixup(key, v)
		return nil
	}
	// Inherited non-writable slots block the write as well.
	for walk := o.proto; walk != nil; walk = walk.proto {
		if p := walk.props[key]; p != nil {
			if !p.Writable {
				return NewTypeError("cannot assign to read-only property " + strconv.Quote(key))
			}
			break
		}
	}
	if !o.extensible {
		return NewTypeError("cannot add property " + strconv.Quote(key) + ", object is not extensible")
	}
	o.defineOwn(key, &Property{Value: v, Writable: true, Enumerable: true, Configurable: true})
	o.arrayLengthFixup(key, v)
	return nil
}

// DefineOwn installs a property slot with explicit attributes, bypassing
// writability checks but still honoring extensibility for new keys.
func (o *Object) DefineOwn(key string, p *Property) *UserError {
	if _, exists := o.props[key]; !exists && !o.extensible {
		return NewTypeError("cannot define property " + strconv.Quote(key) + ", object is not extensible")
	}
	o.defineOwn(key, p)
	return nil
}

func (o *Object) defineOwn(key string, p *Property) {
	if _, exists := o.props[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.props[key] = p
}

// Delete removes an own property. Deleting a non-configurable property
// fails; deleting a missing property succeeds.
func (o *Object) Delete(key string) (bool, *UserError) {
	p := o.props[key]
	if p == nil {
		return true, nil
	}
	if !p.Configurable {
		return false, nil
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true, nil
}

// OwnKeys returns the own property names in insertion order.
func (o *Object) OwnKeys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// EnumerableKeys returns the enumerable own property names in insertion
// order (the for-in order for one chain link).
func (o *Object) EnumerableKeys() []string {
	var out []string
	for _, k := range o.keys {
		if p := o.props[k]; p != nil && p.Enumerable {
			out = append(out, k)
		}
	}
	return out
}

// Has reports whether key is present on the object or its prototype chain.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// ---------------------------------------------------------------------------
// Array length invariant
// ---------------------------------------------------------------------------

// arrayIndex parses key as an array index (its canonical decimal string),
// returning -1 when key is not an index.
func arrayIndex(key string) int64 {
	if key == "" || (key[0] == '0' && len(key) > 1) {
		return -1
	}
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// arrayLengthFixup keeps an Array's length one greater than its largest
// present index, and truncates indexed properties on explicit length
// writes.
func (o *Object) arrayLengthFixup(key string, v Value) {
	if o.class != ClassArray {
		return
	}
	if key == "length" {
		n := ToNumber(v)
		want := int64(n)
		if float64(want) != float64(n) || want < 0 {
			return
		}
		// Truncation deletes trailing indexed properties.
		var keep []string
		for _, k := range o.keys {
			if idx := arrayIndex(k); idx >= want {
				delete(o.props, k)
				continue
			}
			keep = append(keep, k)
		}
		o.keys = keep
		return
	}
	idx := arrayIndex(key)
	if idx < 0 {
		return
	}
	lp := o.props["length"]
	if lp == nil {
		o.defineOwn("length", &Property{Value: Number(idx + 1), Writable: true})
		return
	}
	if cur := int64(ToNumber(lp.Value)); idx >= cur {
		lp.Value = Number(idx + 1)
	}
}

// ArrayLength returns the current length of an Array-class object.
func (o *Object) ArrayLength() int64 {
	if p := o.props["length"]; p != nil {
		return int64(ToNumber(p.Value))
	}
	return 0
}

// ---------------------------------------------------------------------------
// Primitive conversion
// ---------------------------------------------------------------------------

// defaultValue implements the class-tag-driven object-to-primitive
// conversion used by ToPrimitive.
func (o *Object) defaultValue(hint string) Value {
	switch o.class {
	case ClassDate:
		d, _ := o.data.(*DateData)
		if d == nil {
			return String("Invalid Date")
		}
		if hint == "number" {
			return Number(d.Ms)
		}
		if math.IsNaN(d.Ms) {
			return String("Invalid Date")
		}
		return String(d.Time().Format("Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"))
	case ClassArray:
		// Array.prototype.toString is join(",").
		n := o.ArrayLength()
		out := ""
		for i := int64(0); i < n; i++ {
			if i > 0 {
				out += ","
			}
			v, ok := o.Get(strconv.FormatInt(i, 10))
			if !ok {
				continue
			}
			switch v.(type) {
			case Undefined, Null:
			default:
				out += string(ToString(v))
			}
		}
		return String(out)
	case ClassFunction:
		fd, _ := o.data.(*FunctionData)
		if fd != nil && fd.NativeID != "" {
			return String("function " + fd.NativeID + "() { [native code] }")
		}
		return String("function () { ... }")
	case ClassRegExp:
		rd, _ := o.data.(*RegExpData)
		if rd != nil {
			return String("/" + rd.Source + "/" + rd.Flags)
		}
		return String("/(?:)/")
	case ClassError:
		name, _ := o.Get("name")
		msg, _ := o.Get("message")
		n, m := string(ToString(name)), string(ToString(msg))
		switch {
		case n == "":
			return String(m)
		case m == "":
			return String(n)
		default:
			return String(n + ": " + m)
		}
	default:
		if hint == "string" {
			return String("[object " + o.class + "]")
		}
		return String("[object " + o.class + "]")
	}
}

// FuncData returns the function internal slot, or nil for non-functions.
func (o *Object) FuncData() *FunctionData {
	fd, _ := o.data.(*FunctionData)
	return fd
}

// Callable reports whether the object can be invoked.
func (o *Object) Callable() bool {
	return o.class == ClassFunction && o.FuncData() != nil
}
