package interp

import (
	"github.com/chazu/warren/ast"
)

// ---------------------------------------------------------------------------
// Blocks and simple statements
// ---------------------------------------------------------------------------

// stateBlock runs a statement list in order. It serves Program and
// BlockStatement nodes.
type stateBlock struct {
	stateCommon
	node ast.Node
	body []ast.Statement
	n    int
}

func (s *stateBlock) step(t *Thread) state {
	if s.n < len(s.body) {
		child := newState(s, s.scope, s.prog, s.body[s.n])
		s.n++
		return child
	}
	return s.parent
}

type stateEmpty struct {
	stateCommon
	node ast.Node
}

func (s *stateEmpty) step(t *Thread) state {
	return s.parent
}

// stateExpressionStatement evaluates its expression and records the result
// as the thread's completion value.
type stateExpressionStatement struct {
	stateCommon
	node  *ast.ExpressionStatement
	done  bool
	value Value
}

func (s *stateExpressionStatement) step(t *Thread) state {
	if !s.done {
		s.done = true
		return newState(s, s.scope, s.prog, s.node.Expression)
	}
	t.value = s.value
	return s.parent
}

func (s *stateExpressionStatement) acceptValue(v Value) {
	s.value = v
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// stateVariableDeclaration runs the declarators that carry initializers;
// the names themselves were hoisted before execution began.
type stateVariableDeclaration struct {
	stateCommon
	node *ast.VariableDeclaration
	n    int
}

func (s *stateVariableDeclaration) step(t *Thread) state {
	for s.n < len(s.node.Declarations) {
		d := s.node.Declarations[s.n]
		s.n++
		if d.Init != nil {
			return newState(s, s.scope, s.prog, d)
		}
	}
	return s.parent
}

type stateVariableDeclarator struct {
	stateCommon
	node  *ast.VariableDeclarator
	value Value
	have  bool
}

func (s *stateVariableDeclarator) step(t *Thread) state {
	if !s.have {
		return newState(s, s.scope, s.prog, s.node.Init)
	}
	if err := s.scope.Set(s.node.ID.Name, s.value); err != nil {
		t.throwUser(err)
	}
	return s.parent
}

func (s *stateVariableDeclarator) acceptValue(v Value) {
	s.value = v
	s.have = true
}

// ---------------------------------------------------------------------------
// Conditionals
// ---------------------------------------------------------------------------

type stateIf struct {
	stateCommon
	node       *ast.IfStatement
	result     bool
	haveResult bool
}

func (s *stateIf) step(t *Thread) state {
	if !s.haveResult {
		return newState(s, s.scope, s.prog, s.node.Test)
	}
	if s.result {
		return newState(s.parent, s.scope, s.prog, s.node.Consequent)
	}
	if s.node.Alternate != nil {
		return newState(s.parent, s.scope, s.prog, s.node.Alternate)
	}
	return s.parent
}

func (s *stateIf) acceptValue(v Value) {
	s.result = bool(ToBoolean(v))
	s.haveResult = true
}

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

// stateWhile runs while and do-while loops. A do-while enters the body
// once before the first test.
type stateWhile struct {
	stateCommon
	node    ast.Node
	test    ast.Expression
	body    ast.Statement
	doWhile bool
	label   string

	firstBody bool // do-while: body still owed before first test
	haveTest  bool
	testVal   bool
}

func (s *stateWhile) setLabel(label string) { s.label = label }

func (s *stateWhile) wantsAbrupt(c *completion) bool {
	return (c.kind == complBreak || c.kind == complContinue) &&
		(c.label == "" || c.label == s.label)
}

func (s *stateWhile) step(t *Thread) state {
	if t.pending != nil {
		c := t.pending
		t.pending = nil
		if c.kind == complBreak {
			return s.parent
		}
		// continue: fall through to the next test.
		s.haveTest = false
		s.firstBody = false
	}
	if s.firstBody {
		s.firstBody = false
		return newState(s, s.scope, s.prog, s.body)
	}
	if !s.haveTest {
		return newState(s, s.scope, s.prog, s.test)
	}
	s.haveTest = false
	if s.testVal {
		return newState(s, s.scope, s.prog, s.body)
	}
	return s.parent
}

func (s *stateWhile) acceptValue(v Value) {
	s.testVal = bool(ToBoolean(v))
	s.haveTest = true
}

// for-loop phases: each names the work the next step performs.
const (
	forPhaseInit = iota
	forPhaseTest
	forPhaseDecide
	forPhaseBody
	forPhaseUpdate
)

type stateFor struct {
	stateCommon
	node  *ast.ForStatement
	label string

	phase   int
	testVal bool
}

func (s *stateFor) setLabel(label string) { s.label = label }

func (s *stateFor) wantsAbrupt(c *completion) bool {
	return (c.kind == complBreak || c.kind == complContinue) &&
		(c.label == "" || c.label == s.label)
}

func (s *stateFor) step(t *Thread) state {
	if t.pending != nil {
		c := t.pending
		t.pending = nil
		if c.kind == complBreak {
			return s.parent
		}
		return s.afterBody()
	}
	switch s.phase {
	case forPhaseInit:
		s.phase = forPhaseTest
		if s.node.Init != nil {
			return newState(s, s.scope, s.prog, s.node.Init)
		}
		return s
	case forPhaseTest:
		s.phase = forPhaseDecide
		if s.node.Test != nil {
			return newState(s, s.scope, s.prog, s.node.Test)
		}
		s.testVal = true
		return s
	case forPhaseDecide:
		if !s.testVal {
			return s.parent
		}
		s.phase = forPhaseBody
		return newState(s, s.scope, s.prog, s.node.Body)
	case forPhaseBody:
		return s.afterBody()
	default: // forPhaseUpdate: update expression finished
		s.phase = forPhaseTest
		return s
	}
}

// afterBody runs the update clause (if any) and then the next test.
func (s *stateFor) afterBody() state {
	if s.node.Update != nil {
		s.phase = forPhaseUpdate
		return newState(s, s.scope, s.prog, s.node.Update)
	}
	s.phase = forPhaseTest
	return s
}

func (s *stateFor) acceptValue(v Value) {
	if s.phase == forPhaseDecide {
		s.testVal = bool(ToBoolean(v))
	}
	// Init and update values are discarded.
}

// stateForIn snapshots the enumerable key set once, then assigns and runs
// the body per key, skipping keys deleted mid-loop.
type stateForIn struct {
	stateCommon
	node  *ast.ForInStatement
	label string

	haveObj bool
	obj     *Object
	keys    []string
	idx     int

	lv       lvalue
	lvActive bool
	inBody   bool
}

func (s *stateForIn) setLabel(label string) { s.label = label }

func (s *stateForIn) wantsAbrupt(c *completion) bool {
	return (c.kind == complBreak || c.kind == complContinue) &&
		(c.label == "" || c.label == s.label)
}

func (s *stateForIn) step(t *Thread) state {
	if t.pending != nil {
		c := t.pending
		t.pending = nil
		if c.kind == complBreak {
			return s.parent
		}
		s.inBody = false
	}
	if !s.haveObj {
		return newState(s, s.scope, s.prog, s.node.Right)
	}
	if s.obj == nil {
		// Primitive or null right-hand side: nothing to enumerate.
		return s.parent
	}
	if s.inBody {
		// Body finished; advance to the next key.
		s.inBody = false
	}
	if s.idx >= len(s.keys) {
		return s.parent
	}
	key := s.keys[s.idx]
	if !s.obj.Has(key) {
		s.idx++
		return s
	}
	// Resolve the loop target, assign the key, then run the body.
	if !s.lvActive {
		s.initTarget()
	}
	if !s.lv.ready {
		return s.lv.next(s, s.scope)
	}
	if err := s.lv.set(t.interp, String(key)); err != nil {
		t.throwUser(err)
		return s.parent
	}
	s.idx++
	s.resetTarget()
	s.inBody = true
	return newState(s, s.scope, s.prog, s.node.Body)
}

// initTarget prepares the assignment target for the current iteration.
func (s *stateForIn) initTarget() {
	s.lvActive = true
	switch left := s.node.Left.(type) {
	case *ast.VariableDeclaration:
		s.lv = lvalue{}
		s.lv.init(s.scope, s.prog, left.Declarations[0].ID)
	case ast.Expression:
		s.lv = lvalue{}
		s.lv.init(s.scope, s.prog, left)
	}
}

// resetTarget clears lvalue progress so member targets re-evaluate next
// iteration.
func (s *stateForIn) resetTarget() {
	s.lvActive = false
	s.lv = lvalue{}
}

func (s *stateForIn) acceptValue(v Value) {
	if s.lvActive && s.lv.accept(v) {
		return
	}
	if !s.haveObj {
		s.haveObj = true
		if o, ok := v.(*Object); ok {
			s.obj = o
			s.keys = enumKeys(o)
		}
	}
}

// enumKeys collects the enumerable keys along the prototype chain in
// insertion order, first occurrence wins.
func enumKeys(o *Object) []string {
	var keys []string
	seen := make(map[string]bool)
	for walk := o; walk != nil; walk = walk.Proto() {
		for _, k := range walk.EnumerableKeys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// ---------------------------------------------------------------------------
// Jumps
// ---------------------------------------------------------------------------

type stateBreak struct {
	stateCommon
	node *ast.BreakStatement
}

func (s *stateBreak) step(t *Thread) state {
	label := ""
	if s.node.Label != nil {
		label = s.node.Label.Name
	}
	t.pending = &completion{kind: complBreak, label: label}
	return s.parent
}

type stateContinue struct {
	stateCommon
	node *ast.ContinueStatement
}

func (s *stateContinue) step(t *Thread) state {
	label := ""
	if s.node.Label != nil {
		label = s.node.Label.Name
	}
	t.pending = &completion{kind: complContinue, label: label}
	return s.parent
}

type stateReturn struct {
	stateCommon
	node  *ast.ReturnStatement
	value Value
	have  bool
}

func (s *stateReturn) step(t *Thread) state {
	if s.node.Argument != nil && !s.have {
		return newState(s, s.scope, s.prog, s.node.Argument)
	}
	v := s.value
	if v == nil {
		v = Undefined{}
	}
	t.pending = &completion{kind: complReturn, value: v}
	return s.parent
}

func (s *stateReturn) acceptValue(v Value) {
	s.value = v
	s.have = true
}

type stateThrow struct {
	stateCommon
	node *ast.ThrowStatement
	value Value
	have  bool
}

func (s *stateThrow) step(t *Thread) state {
	if !s.have {
		return newState(s, s.scope, s.prog, s.node.Argument)
	}
	t.pending = &completion{kind: complThrow, value: s.value}
	return s.parent
}

func (s *stateThrow) acceptValue(v Value) {
	s.value = v
	s.have = true
}

// ---------------------------------------------------------------------------
// Try / catch / finally
// ---------------------------------------------------------------------------

// try phases: which child ran last.
const (
	tryPhaseStart = iota
	tryPhaseBlock
	tryPhaseHandler
	tryPhaseFinalizer
)

type stateTry struct {
	stateCommon
	node  *ast.TryStatement
	phase int
	// saved holds the completion stashed while the finalizer runs; the
	// finalizer's own abrupt completion overrides it.
	saved *completion
}

func (s *stateTry) wantsAbrupt(c *completion) bool {
	// Once running, the try always takes control back: to dispatch the
	// handler, to run the finalizer, or to let the finalizer override.
	return s.phase != tryPhaseStart
}

func (s *stateTry) step(t *Thread) state {
	switch s.phase {
	case tryPhaseStart:
		s.phase = tryPhaseBlock
		return newState(s, s.scope, s.prog, s.node.Block)

	case tryPhaseBlock:
		if t.pending != nil && t.pending.kind == complThrow && s.node.Handler != nil {
			c := t.pending
			t.pending = nil
			catchScope := NewScope(s.scope, t.interp)
			catchScope.SetLocal(s.node.Handler.Param.Name, c.value)
			s.phase = tryPhaseHandler
			return newState(s, catchScope, s.prog, s.node.Handler.Body)
		}
		return s.enterFinalizer(t)

	case tryPhaseHandler:
		return s.enterFinalizer(t)

	default: // tryPhaseFinalizer
		if t.pending != nil {
			// The finalizer completed abruptly; it overrides.
			return s.parent
		}
		if s.saved != nil {
			t.pending = s.saved
			s.saved = nil
		}
		return s.parent
	}
}

// enterFinalizer stashes any pending completion and runs the finalizer, or
// finishes directly when there is none.
func (s *stateTry) enterFinalizer(t *Thread) state {
	if s.node.Finalizer == nil {
		return s.parent // any pending completion keeps propagating
	}
	s.saved = t.pending
	t.pending = nil
	s.phase = tryPhaseFinalizer
	return newState(s, s.scope, s.prog, s.node.Finalizer)
}

// ---------------------------------------------------------------------------
// Switch
// ---------------------------------------------------------------------------

// switch phases.
const (
	switchPhaseDisc = iota
	switchPhaseMatch
	switchPhaseRun
)

type stateSwitch struct {
	stateCommon
	node  *ast.SwitchStatement
	label string

	phase    int
	disc     Value
	caseIdx  int  // case whose test is being evaluated / executed
	stmtIdx  int  // statement within the executing case
	awaiting bool // a case-test child is outstanding
	testVal  Value
}

func (s *stateSwitch) setLabel(label string) { s.label = label }

func (s *stateSwitch) wantsAbrupt(c *completion) bool {
	return c.kind == complBreak && (c.label == "" || c.label == s.label)
}

func (s *stateSwitch) step(t *Thread) state {
	if t.pending != nil {
		t.pending = nil // break out of the switch
		return s.parent
	}
	switch s.phase {
	case switchPhaseDisc:
		s.phase = switchPhaseMatch
		return newState(s, s.scope, s.prog, s.node.Discriminant)

	case switchPhaseMatch:
		if s.awaiting {
			s.awaiting = false
			if StrictEquals(s.disc, s.testVal) {
				s.phase = switchPhaseRun
				s.stmtIdx = 0
				return s
			}
			s.caseIdx++
		}
		for s.caseIdx < len(s.node.Cases) {
			c := s.node.Cases[s.caseIdx]
			if c.Test == nil {
				s.caseIdx++
				continue
			}
			s.awaiting = true
			return newState(s, s.scope, s.prog, c.Test)
		}
		// No case matched; fall back to default, if present.
		for i, c := range s.node.Cases {
			if c.Test == nil {
				s.phase = switchPhaseRun
				s.caseIdx = i
				s.stmtIdx = 0
				return s
			}
		}
		return s.parent

	default: // switchPhaseRun: execute from the matched case onward
		for s.caseIdx < len(s.node.Cases) {
			c := s.node.Cases[s.caseIdx]
			if s.stmtIdx < len(c.Consequent) {
				child := newState(s, s.scope, s.prog, c.Consequent[s.stmtIdx])
				s.stmtIdx++
				return child
			}
			s.caseIdx++
			s.stmtIdx = 0
		}
		return s.parent
	}
}

func (s *stateSwitch) acceptValue(v Value) {
	if s.phase == switchPhaseMatch && s.awaiting {
		s.testVal = v
		return
	}
	s.disc = v
}

// ---------------------------------------------------------------------------
// Labels
// ---------------------------------------------------------------------------

type stateLabeled struct {
	stateCommon
	node    *ast.LabeledStatement
	started bool
}

func (s *stateLabeled) wantsAbrupt(c *completion) bool {
	return c.kind == complBreak && c.label == s.node.Label.Name
}

func (s *stateLabeled) step(t *Thread) state {
	if t.pending != nil {
		t.pending = nil // our break
		return s.parent
	}
	if !s.started {
		s.started = true
		child := newState(s, s.scope, s.prog, s.node.Body)
		if l, ok := child.(labelable); ok {
			l.setLabel(s.node.Label.Name)
		}
		return child
	}
	return s.parent
}
