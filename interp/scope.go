package interp

import (
	"github.com/chazu/warren/ast"
)

// Scope is one link of the lexical environment chain: an insertion-ordered
// name → value table with a parent pointer and a back-pointer to the owning
// interpreter. The outermost scope (parent == nil) is the global scope.
type Scope struct {
	names  []string
	vars   map[string]Value
	parent *Scope
	interp *Interpreter

	// this is the receiver bound when the scope was created for a call.
	// Scopes that don't rebind the receiver inherit it from the parent.
	this    Value
	hasThis bool
}

// NewScope creates a scope with the given parent.
func NewScope(parent *Scope, i *Interpreter) *Scope {
	return &Scope{
		vars:   make(map[string]Value),
		parent: parent,
		interp: i,
	}
}

// Declare creates a slot for name holding undefined. Redeclaration is a
// no-op that preserves the current value, which makes the hoisting pass
// idempotent.
func (s *Scope) Declare(name string) {
	if _, ok := s.vars[name]; ok {
		return
	}
	s.names = append(s.names, name)
	s.vars[name] = Undefined{}
}

// Get reads name, walking outward. Unresolved reads fail with a
// ReferenceError.
func (s *Scope) Get(name string) (Value, *UserError) {
	for walk := s; walk != nil; walk = walk.parent {
		if v, ok := walk.vars[name]; ok {
			return v, nil
		}
	}
	return nil, NewReferenceError(name + " is not defined")
}

// Resolvable reports whether name is declared anywhere on the chain.
func (s *Scope) Resolvable(name string) bool {
	for walk := s; walk != nil; walk = walk.parent {
		if _, ok := walk.vars[name]; ok {
			return true
		}
	}
	return false
}

// Set writes name in the nearest scope declaring it. Unresolved writes fail
// with a ReferenceError rather than creating a global.
func (s *Scope) Set(name string, v Value) *UserError {
	for walk := s; walk != nil; walk = walk.parent {
		if _, ok := walk.vars[name]; ok {
			walk.vars[name] = v
			return nil
		}
	}
	return NewReferenceError(name + " is not defined")
}

// SetLocal writes name in this scope only, declaring it if needed. Used
// for parameter binding and declarator initialization.
func (s *Scope) SetLocal(name string, v Value) {
	if _, ok := s.vars[name]; !ok {
		s.names = append(s.names, name)
	}
	s.vars[name] = v
}

// This returns the bound receiver, walking outward to the nearest scope
// that binds one. The global scope's receiver is undefined unless the
// interpreter installed a global object.
func (s *Scope) This() Value {
	for walk := s; walk != nil; walk = walk.parent {
		if walk.hasThis {
			return walk.this
		}
	}
	return Undefined{}
}

// BindThis sets the receiver for this scope.
func (s *Scope) BindThis(v Value) {
	s.this = v
	s.hasThis = true
}

// Names returns the declared names in insertion order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// ---------------------------------------------------------------------------
// Hoisting
// ---------------------------------------------------------------------------

// Populate declares every VariableDeclarator and FunctionDeclaration found
// in the statements under node, descending through blocks, conditionals,
// loops, try/catch/finally, switch and labels but not into nested function
// bodies. Function declarations are bound to their function objects right
// away; variable declarators get undefined. Initializers are never
// evaluated. The pass is idempotent.
func (s *Scope) Populate(node ast.Node, prog *ast.Program) {
	switch n := node.(type) {

	case *ast.VariableDeclarator:
		s.Declare(n.ID.Name)

	case *ast.FunctionDeclaration:
		s.Declare(n.ID.Name)
		fn := s.interp.newFunction(n.Params, n.Body, n.NodeID(), prog, s)
		s.vars[n.ID.Name] = fn

	case *ast.Program:
		for _, st := range n.Body {
			s.Populate(st, prog)
		}
	case *ast.BlockStatement:
		for _, st := range n.Body {
			s.Populate(st, prog)
		}
	case *ast.IfStatement:
		s.Populate(n.Consequent, prog)
		if n.Alternate != nil {
			s.Populate(n.Alternate, prog)
		}
	case *ast.LabeledStatement:
		s.Populate(n.Body, prog)
	case *ast.WhileStatement:
		s.Populate(n.Body, prog)
	case *ast.DoWhileStatement:
		s.Populate(n.Body, prog)
	case *ast.ForStatement:
		if n.Init != nil {
			s.Populate(n.Init, prog)
		}
		s.Populate(n.Body, prog)
	case *ast.ForInStatement:
		s.Populate(n.Left, prog)
		s.Populate(n.Body, prog)
	case *ast.SwitchStatement:
		for _, c := range n.Cases {
			s.Populate(c, prog)
		}
	case *ast.SwitchCase:
		for _, st := range n.Consequent {
			s.Populate(st, prog)
		}
	case *ast.TryStatement:
		s.Populate(n.Block, prog)
		if n.Handler != nil {
			s.Populate(n.Handler.Body, prog)
		}
		if n.Finalizer != nil {
			s.Populate(n.Finalizer, prog)
		}
	case *ast.VariableDeclaration:
		for _, d := range n.Declarations {
			s.Populate(d, prog)
		}

	default:
		// Expressions and leaf statements cannot contain hoistable
		// declarations.
	}
}
