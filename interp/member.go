package interp

import (
	"strconv"
	"unicode/utf16"

	"github.com/chazu/warren/ast"
)

// getMember reads base[key] with the language's semantics: property lookup
// along the prototype chain for objects, length/index/prototype-method
// access for string primitives, prototype-method access for numbers and
// booleans, and a TypeError for null and undefined bases.
func getMember(i *Interpreter, base Value, key string) (Value, *UserError) {
	switch b := base.(type) {
	case Undefined:
		return nil, NewTypeError("cannot read property " + strconv.Quote(key) + " of undefined")
	case Null:
		return nil, NewTypeError("cannot read property " + strconv.Quote(key) + " of null")
	case *Object:
		v, _ := b.Get(key)
		return v, nil
	case String:
		units := utf16.Encode([]rune(string(b)))
		if key == "length" {
			return Number(len(units)), nil
		}
		if idx := arrayIndex(key); idx >= 0 {
			if idx < int64(len(units)) {
				return String(utf16.Decode(units[idx : idx+1])), nil
			}
			return Undefined{}, nil
		}
		if p := i.protos.String; p != nil {
			v, _ := p.Get(key)
			return v, nil
		}
		return Undefined{}, nil
	case Number:
		if p := i.protos.Number; p != nil {
			v, _ := p.Get(key)
			return v, nil
		}
		return Undefined{}, nil
	case Boolean:
		if p := i.protos.Boolean; p != nil {
			v, _ := p.Get(key)
			return v, nil
		}
		return Undefined{}, nil
	default:
		return Undefined{}, nil
	}
}

// setMember writes base[key]. Property writes on primitives fail the way
// strict mode fails them.
func setMember(i *Interpreter, base Value, key string, v Value) *UserError {
	switch b := base.(type) {
	case Undefined:
		return NewTypeError("cannot set property " + strconv.Quote(key) + " of undefined")
	case Null:
		return NewTypeError("cannot set property " + strconv.Quote(key) + " of null")
	case *Object:
		return b.Set(key, v)
	default:
		return NewTypeError("cannot set property " + strconv.Quote(key) + " on a primitive")
	}
}

// ---------------------------------------------------------------------------
// L-values
// ---------------------------------------------------------------------------

// lvalue encapsulates reading and writing assignment and update targets. An
// identifier target is ready immediately; a member target needs its base
// (and, when computed, its key) evaluated first. The owning state drives
// that evaluation by calling next until ready, routing delivered values
// through accept.
type lvalue struct {
	scope *Scope
	prog  *ast.Program
	expr  ast.Expression

	isMember bool
	name     string // identifier target

	base     Value
	key      string
	haveBase bool
	haveKey  bool
	ready    bool
}

// init classifies the target expression. Non-lvalue expressions fail with
// a ReferenceError at first use.
func (lv *lvalue) init(scope *Scope, prog *ast.Program, expr ast.Expression) {
	lv.scope = scope
	lv.prog = prog
	lv.expr = expr
	switch e := expr.(type) {
	case *ast.Identifier:
		lv.name = e.Name
		lv.ready = true
	case *ast.MemberExpression:
		lv.isMember = true
		if !e.Computed {
			lv.key = e.Property.(*ast.Identifier).Name
			lv.haveKey = true
		}
	}
}

// valid reports whether the target was an assignable expression.
func (lv *lvalue) valid() bool {
	return lv.ready || lv.isMember
}

// next returns the child state that evaluates the next missing piece of a
// member target. parent is the owning state; delivered values must be
// routed to accept.
func (lv *lvalue) next(parent state, scope *Scope) state {
	e := lv.expr.(*ast.MemberExpression)
	if !lv.haveBase {
		return newState(parent, scope, lv.prog, e.Object)
	}
	return newState(parent, scope, lv.prog, e.Property.(ast.Expression))
}

// accept consumes a value delivered while the lvalue is resolving. It
// reports whether the value belonged to the lvalue; once ready, delivered
// values are the owning state's own business.
func (lv *lvalue) accept(v Value) bool {
	if lv.ready {
		return false
	}
	if !lv.haveBase {
		lv.base = v
		lv.haveBase = true
		if lv.haveKey {
			lv.ready = true
		}
		return true
	}
	if !lv.haveKey {
		lv.key = string(ToString(v))
		lv.haveKey = true
		lv.ready = true
		return true
	}
	return false
}

// get reads the target. Only valid once ready.
func (lv *lvalue) get(i *Interpreter) (Value, *UserError) {
	if lv.isMember {
		return getMember(i, lv.base, lv.key)
	}
	return lv.scope.Get(lv.name)
}

// set writes the target. Only valid once ready.
func (lv *lvalue) set(i *Interpreter, v Value) *UserError {
	if lv.isMember {
		return setMember(i, lv.base, lv.key, v)
	}
	return lv.scope.Set(lv.name, v)
}
