package interp

import (
	"strconv"

	"github.com/chazu/warren/ast"
)

// ---------------------------------------------------------------------------
// Leaves
// ---------------------------------------------------------------------------

type stateIdentifier struct {
	stateCommon
	node *ast.Identifier
}

func (s *stateIdentifier) step(t *Thread) state {
	v, err := s.scope.Get(s.node.Name)
	if err != nil {
		t.throwUser(err)
		return s.parent
	}
	s.deliver(v)
	return s.parent
}

type stateLiteral struct {
	stateCommon
	node *ast.Literal
}

func (s *stateLiteral) step(t *Thread) state {
	if s.node.IsRegex {
		re, err := t.interp.NewRegExp(s.node.Pattern, s.node.Flags)
		if err != nil {
			t.throwUser(err)
			return s.parent
		}
		s.deliver(re)
		return s.parent
	}
	var v Value
	switch x := s.node.Value.(type) {
	case nil:
		v = Null{}
	case bool:
		v = Boolean(x)
	case float64:
		v = Number(x)
	case string:
		v = String(x)
	}
	s.deliver(v)
	return s.parent
}

type stateThis struct {
	stateCommon
	node *ast.ThisExpression
}

func (s *stateThis) step(t *Thread) state {
	s.deliver(s.scope.This())
	return s.parent
}

// ---------------------------------------------------------------------------
// Literals with sub-expressions
// ---------------------------------------------------------------------------

type stateObjectExpression struct {
	stateCommon
	node *ast.ObjectExpression
	obj  *Object
	n    int
}

func (s *stateObjectExpression) step(t *Thread) state {
	if s.obj == nil {
		s.obj = NewObject(t.interp.protos.Object)
	}
	if s.n < len(s.node.Properties) {
		return newState(s, s.scope, s.prog, s.node.Properties[s.n].Value)
	}
	s.deliver(s.obj)
	return s.parent
}

func (s *stateObjectExpression) acceptValue(v Value) {
	var key string
	switch k := s.node.Properties[s.n].Key.(type) {
	case *ast.Identifier:
		key = k.Name
	case *ast.Literal:
		key = propertyKeyOf(k)
	}
	s.obj.Set(key, v)
	s.n++
}

// propertyKeyOf converts a literal property key to its string form.
func propertyKeyOf(lit *ast.Literal) string {
	switch x := lit.Value.(type) {
	case string:
		return x
	case float64:
		return numberToString(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return "null"
	}
}

type stateArrayExpression struct {
	stateCommon
	node *ast.ArrayExpression
	obj  *Object
	n    int
}

func (s *stateArrayExpression) step(t *Thread) state {
	if s.obj == nil {
		s.obj = t.interp.NewArray()
	}
	for s.n < len(s.node.Elements) && s.node.Elements[s.n] == nil {
		// Elision: the slot stays absent but contributes to length.
		s.obj.Set("length", Number(s.n+1))
		s.n++
	}
	if s.n < len(s.node.Elements) {
		return newState(s, s.scope, s.prog, s.node.Elements[s.n])
	}
	s.deliver(s.obj)
	return s.parent
}

func (s *stateArrayExpression) acceptValue(v Value) {
	s.obj.Set(strconv.Itoa(s.n), v)
	s.n++
}

type stateFunctionExpression struct {
	stateCommon
	node *ast.FunctionExpression
}

func (s *stateFunctionExpression) step(t *Thread) state {
	defScope := s.scope
	if s.node.ID != nil {
		// A named function expression sees its own name in scope.
		defScope = NewScope(s.scope, t.interp)
	}
	fn := t.interp.newFunction(s.node.Params, s.node.Body, s.node.NodeID(), s.prog, defScope)
	if s.node.ID != nil {
		defScope.SetLocal(s.node.ID.Name, fn)
	}
	s.deliver(fn)
	return s.parent
}

// ---------------------------------------------------------------------------
// Member access
// ---------------------------------------------------------------------------

type stateMemberExpression struct {
	stateCommon
	node     *ast.MemberExpression
	base     Value
	haveBase bool
	key      string
	haveKey  bool
}

func (s *stateMemberExpression) step(t *Thread) state {
	if !s.haveBase {
		return newState(s, s.scope, s.prog, s.node.Object)
	}
	if !s.haveKey {
		if s.node.Computed {
			return newState(s, s.scope, s.prog, s.node.Property.(ast.Expression))
		}
		s.key = s.node.Property.(*ast.Identifier).Name
		s.haveKey = true
	}
	v, err := getMember(t.interp, s.base, s.key)
	if err != nil {
		t.throwUser(err)
		return s.parent
	}
	s.deliver(v)
	return s.parent
}

func (s *stateMemberExpression) acceptValue(v Value) {
	if !s.haveBase {
		s.base = v
		s.haveBase = true
		return
	}
	s.key = string(ToString(v))
	s.haveKey = true
}

// ---------------------------------------------------------------------------
// Calls and construction
// ---------------------------------------------------------------------------

// stateCall evaluates callee (tracking the receiver for method calls), then
// the arguments left to right, then invokes. Native functions complete
// within the invoking step; source functions run as a child state tree over
// a fresh function scope, with this state intercepting the return.
type stateCall struct {
	stateCommon
	node   ast.Node
	callee ast.Expression
	args   []ast.Expression
	isNew  bool

	base     Value // receiver for member callees
	haveBase bool
	key      string
	haveKey  bool
	fn       Value
	haveFn   bool

	argv   []Value
	argIdx int

	invoked    bool
	newObj     *Object
	result     Value
	haveResult bool
}

func (s *stateCall) wantsAbrupt(c *completion) bool {
	return c.kind == complReturn && s.invoked && !s.haveResult
}

func (s *stateCall) step(t *Thread) state {
	if t.pending != nil {
		c := t.pending
		t.pending = nil
		s.result = c.value
		s.haveResult = true
	}
	if s.invoked {
		return s.finish(t)
	}
	if !s.haveFn {
		if member, ok := s.callee.(*ast.MemberExpression); ok {
			if !s.haveBase {
				return newState(s, s.scope, s.prog, member.Object)
			}
			if !s.haveKey {
				if member.Computed {
					return newState(s, s.scope, s.prog, member.Property.(ast.Expression))
				}
				s.key = member.Property.(*ast.Identifier).Name
				s.haveKey = true
			}
			v, err := getMember(t.interp, s.base, s.key)
			if err != nil {
				t.throwUser(err)
				return s.parent
			}
			s.fn = v
			s.haveFn = true
		} else {
			return newState(s, s.scope, s.prog, s.callee)
		}
	}
	if s.argIdx < len(s.args) {
		child := newState(s, s.scope, s.prog, s.args[s.argIdx])
		s.argIdx++
		return child
	}
	return s.invoke(t)
}

func (s *stateCall) invoke(t *Thread) state {
	fnObj, ok := s.fn.(*Object)
	if !ok || !fnObj.Callable() {
		t.throwUser(NewTypeError(callErrorName(s) + " is not a function"))
		return s.parent
	}
	fd := fnObj.FuncData()

	var this Value = Undefined{}
	if s.isNew {
		proto := t.interp.protos.Object
		if pv, found := fnObj.Get("prototype"); found {
			if p, ok := pv.(*Object); ok {
				proto = p
			}
		}
		s.newObj = NewObject(proto)
		this = s.newObj
	} else if s.haveBase {
		this = s.base
	}

	s.invoked = true

	if fd.Native != nil {
		res, uerr := fd.Native(t.interp, t, this, s.argv)
		if uerr != nil {
			t.throwUser(uerr)
			return s.parent
		}
		if res == nil {
			res = Undefined{}
		}
		s.result = res
		s.haveResult = true
		return s.finish(t)
	}

	if s.callDepth() >= maxCallDepth {
		t.throwUser(NewRangeError("maximum call stack size exceeded"))
		return s.parent
	}

	fnScope := NewScope(fd.Scope, t.interp)
	fnScope.BindThis(this)
	for idx, p := range fd.Params {
		if idx < len(s.argv) {
			fnScope.SetLocal(p, s.argv[idx])
		} else {
			fnScope.SetLocal(p, Undefined{})
		}
	}
	fnScope.SetLocal("arguments", t.interp.newArguments(s.argv))
	fnScope.Populate(fd.Body, fd.Prog)
	return newState(s, fnScope, fd.Prog, fd.Body)
}

func (s *stateCall) finish(t *Thread) state {
	result := s.result
	if result == nil {
		result = Undefined{}
	}
	if s.isNew {
		if obj, ok := result.(*Object); !ok {
			result = s.newObj
		} else {
			result = obj
		}
	}
	if s.parent == nil {
		// Spawned thread root: the call result is the thread's value.
		t.value = result
	}
	s.deliver(result)
	return s.parent
}

// maxCallDepth bounds user recursion.
const maxCallDepth = 1000

// callDepth counts the invoked calls on the current state chain.
func (s *stateCall) callDepth() int {
	depth := 0
	for walk := state(s); walk != nil; walk = walk.parentState() {
		if c, ok := walk.(*stateCall); ok && c.invoked && !c.haveResult {
			depth++
		}
	}
	return depth
}

// callErrorName names the callee for not-a-function errors.
func callErrorName(s *stateCall) string {
	switch c := s.callee.(type) {
	case *ast.Identifier:
		return c.Name
	case *ast.MemberExpression:
		if s.haveKey {
			return s.key
		}
	}
	return "expression"
}

func (s *stateCall) acceptValue(v Value) {
	if !s.haveFn {
		if _, ok := s.callee.(*ast.MemberExpression); ok {
			if !s.haveBase {
				s.base = v
				s.haveBase = true
				return
			}
			s.key = string(ToString(v))
			s.haveKey = true
			return
		}
		s.fn = v
		s.haveFn = true
		return
	}
	s.argv = append(s.argv, v)
}

// ---------------------------------------------------------------------------
// Assignment and update
// ---------------------------------------------------------------------------

type stateAssignment struct {
	stateCommon
	node    *ast.AssignmentExpression
	lv      lvalue
	rhs     Value
	haveRhs bool
}

func (s *stateAssignment) step(t *Thread) state {
	if !s.lv.valid() {
		t.throwUser(NewReferenceError("invalid assignment target"))
		return s.parent
	}
	if !s.lv.ready {
		return s.lv.next(s, s.scope)
	}
	if !s.haveRhs {
		return newState(s, s.scope, s.prog, s.node.Right)
	}
	v := s.rhs
	if s.node.Operator != "=" {
		old, err := s.lv.get(t.interp)
		if err != nil {
			t.throwUser(err)
			return s.parent
		}
		v, err = binaryOp(t.interp, s.node.Operator[:len(s.node.Operator)-1], old, s.rhs)
		if err != nil {
			t.throwUser(err)
			return s.parent
		}
	}
	if err := s.lv.set(t.interp, v); err != nil {
		t.throwUser(err)
		return s.parent
	}
	s.deliver(v)
	return s.parent
}

func (s *stateAssignment) acceptValue(v Value) {
	if s.lv.accept(v) {
		return
	}
	s.rhs = v
	s.haveRhs = true
}

type stateUpdate struct {
	stateCommon
	node *ast.UpdateExpression
	lv   lvalue
}

func (s *stateUpdate) step(t *Thread) state {
	if !s.lv.valid() {
		t.throwUser(NewReferenceError("invalid update target"))
		return s.parent
	}
	if !s.lv.ready {
		return s.lv.next(s, s.scope)
	}
	oldV, err := s.lv.get(t.interp)
	if err != nil {
		t.throwUser(err)
		return s.parent
	}
	old := ToNumber(oldV)
	var updated Number
	if s.node.Operator == "++" {
		updated = old + 1
	} else {
		updated = old - 1
	}
	if err := s.lv.set(t.interp, updated); err != nil {
		t.throwUser(err)
		return s.parent
	}
	if s.node.Prefix {
		s.deliver(updated)
	} else {
		s.deliver(old)
	}
	return s.parent
}

func (s *stateUpdate) acceptValue(v Value) {
	s.lv.accept(v)
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

type stateBinary struct {
	stateCommon
	node        *ast.BinaryExpression
	left, right Value
	haveLeft    bool
	haveRight   bool
}

func (s *stateBinary) step(t *Thread) state {
	if !s.haveLeft {
		return newState(s, s.scope, s.prog, s.node.Left)
	}
	if !s.haveRight {
		return newState(s, s.scope, s.prog, s.node.Right)
	}
	v, err := binaryOp(t.interp, s.node.Operator, s.left, s.right)
	if err != nil {
		t.throwUser(err)
		return s.parent
	}
	s.deliver(v)
	return s.parent
}

func (s *stateBinary) acceptValue(v Value) {
	if !s.haveLeft {
		s.left = v
		s.haveLeft = true
		return
	}
	s.right = v
	s.haveRight = true
}

// stateLogical short-circuits: the right operand is evaluated only when
// the left doesn't decide the result.
type stateLogical struct {
	stateCommon
	node     *ast.LogicalExpression
	left     Value
	haveLeft bool
}

func (s *stateLogical) step(t *Thread) state {
	if !s.haveLeft {
		return newState(s, s.scope, s.prog, s.node.Left)
	}
	truthy := bool(ToBoolean(s.left))
	if (s.node.Operator == "&&" && !truthy) || (s.node.Operator == "||" && truthy) {
		s.deliver(s.left)
		return s.parent
	}
	// The right operand's value becomes ours; deliver straight up.
	return newState(s.parent, s.scope, s.prog, s.node.Right)
}

func (s *stateLogical) acceptValue(v Value) {
	s.left = v
	s.haveLeft = true
}

type stateUnary struct {
	stateCommon
	node *ast.UnaryExpression
	arg  Value
	have bool
}

func (s *stateUnary) step(t *Thread) state {
	switch s.node.Operator {
	case "typeof":
		// typeof of an unresolved identifier answers "undefined" rather
		// than throwing.
		if id, ok := s.node.Argument.(*ast.Identifier); ok && !s.have {
			if !s.scope.Resolvable(id.Name) {
				s.deliver(String("undefined"))
				return s.parent
			}
		}
		if !s.have {
			return newState(s, s.scope, s.prog, s.node.Argument)
		}
		s.deliver(typeofValue(s.arg))
		return s.parent

	case "delete":
		return s.stepDelete(t)
	}

	if !s.have {
		return newState(s, s.scope, s.prog, s.node.Argument)
	}
	v, err := unaryOp(s.node.Operator, s.arg)
	if err != nil {
		t.throwUser(err)
		return s.parent
	}
	s.deliver(v)
	return s.parent
}

// stepDelete handles the delete operator: member targets evaluate their
// base (delete on a computed member also needs the key, which rides in on
// the same child), everything else answers true without evaluation except
// resolvable identifiers, which answer false.
func (s *stateUnary) stepDelete(t *Thread) state {
	member, ok := s.node.Argument.(*ast.MemberExpression)
	if !ok {
		if id, isID := s.node.Argument.(*ast.Identifier); isID {
			s.deliver(Boolean(!s.scope.Resolvable(id.Name)))
			return s.parent
		}
		s.deliver(Boolean(true))
		return s.parent
	}
	// Member delete hands base and key resolution and the removal to a
	// stateMemberDelete child, then delivers its result here.
	if !s.have {
		child := &stateMemberDelete{stateCommon: stateCommon{parent: s, scope: s.scope, prog: s.prog}, node: member}
		return child
	}
	s.deliver(s.arg)
	return s.parent
}

func (s *stateUnary) acceptValue(v Value) {
	s.arg = v
	s.have = true
}

// stateMemberDelete resolves a member target and deletes the property,
// delivering the deletion result.
type stateMemberDelete struct {
	stateCommon
	node     *ast.MemberExpression
	base     Value
	haveBase bool
	key      string
	haveKey  bool
}

func (s *stateMemberDelete) step(t *Thread) state {
	if !s.haveBase {
		return newState(s, s.scope, s.prog, s.node.Object)
	}
	if !s.haveKey {
		if s.node.Computed {
			return newState(s, s.scope, s.prog, s.node.Property.(ast.Expression))
		}
		s.key = s.node.Property.(*ast.Identifier).Name
		s.haveKey = true
	}
	obj, ok := s.base.(*Object)
	if !ok {
		s.deliver(Boolean(true))
		return s.parent
	}
	okDel, err := obj.Delete(s.key)
	if err != nil {
		t.throwUser(err)
		return s.parent
	}
	s.deliver(Boolean(okDel))
	return s.parent
}

func (s *stateMemberDelete) acceptValue(v Value) {
	if !s.haveBase {
		s.base = v
		s.haveBase = true
		return
	}
	s.key = string(ToString(v))
	s.haveKey = true
}

// ---------------------------------------------------------------------------
// Conditional and sequence
// ---------------------------------------------------------------------------

type stateConditional struct {
	stateCommon
	node       *ast.ConditionalExpression
	result     bool
	haveResult bool
}

func (s *stateConditional) step(t *Thread) state {
	if !s.haveResult {
		return newState(s, s.scope, s.prog, s.node.Test)
	}
	if s.result {
		return newState(s.parent, s.scope, s.prog, s.node.Consequent)
	}
	return newState(s.parent, s.scope, s.prog, s.node.Alternate)
}

func (s *stateConditional) acceptValue(v Value) {
	s.result = bool(ToBoolean(v))
	s.haveResult = true
}

type stateSequence struct {
	stateCommon
	node *ast.SequenceExpression
	n    int
	last Value
}

func (s *stateSequence) step(t *Thread) state {
	if s.n < len(s.node.Expressions) {
		child := newState(s, s.scope, s.prog, s.node.Expressions[s.n])
		s.n++
		return child
	}
	s.deliver(s.last)
	return s.parent
}

func (s *stateSequence) acceptValue(v Value) {
	s.last = v
}
