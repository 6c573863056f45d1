package interp

import (
	"github.com/chazu/warren/ast"
)

// This file keeps the two halves of state-tree serialization together:
// refState renders a state's progress fields into a record, and
// materializeState rebuilds the state from one. Every state kind appears
// in both switches; keep them in lockstep.

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

func (e *encoder) refState(st state) int {
	if idx, ok := e.stateIndex[st]; ok {
		return idx
	}
	rec, idx := e.alloc()
	e.stateIndex[st] = idx
	rec.Type = "State"

	var props PropList
	add := func(k string, v interface{}) {
		props = append(props, PropEntry{K: k, V: v})
	}

	common := func(c *stateCommon, node ast.Node) {
		if c.parent != nil {
			add("parent", Ref{e.refState(c.parent)})
		}
		add("scope", Ref{e.refScope(c.scope)})
		if node != nil {
			add("node", e.nodeRef(c.prog, node.NodeID()))
		} else if c.prog != nil {
			add("prog", Ref{e.refProg(c.prog)})
		}
	}

	lv := func(l *lvalue) {
		add("lvReady", l.ready)
		if l.haveBase {
			add("lvHaveBase", true)
			add("lvBase", e.encodeValue(l.base))
		}
		if l.haveKey {
			add("lvHaveKey", true)
			add("lvKey", l.key)
		}
	}

	switch s := st.(type) {
	case *stateBlock:
		rec.Kind = "BlockStatement"
		common(&s.stateCommon, s.node)
		add("n", float64(s.n))
	case *stateEmpty:
		rec.Kind = "EmptyStatement"
		common(&s.stateCommon, s.node)
	case *stateExpressionStatement:
		rec.Kind = "ExpressionStatement"
		common(&s.stateCommon, s.node)
		add("done", s.done)
		if s.value != nil {
			add("value", e.encodeValue(s.value))
		}
	case *stateVariableDeclaration:
		rec.Kind = "VariableDeclaration"
		common(&s.stateCommon, s.node)
		add("n", float64(s.n))
	case *stateVariableDeclarator:
		rec.Kind = "VariableDeclarator"
		common(&s.stateCommon, s.node)
		add("have", s.have)
		if s.value != nil {
			add("value", e.encodeValue(s.value))
		}
	case *stateIf:
		rec.Kind = "IfStatement"
		common(&s.stateCommon, s.node)
		add("haveResult", s.haveResult)
		add("result", s.result)
	case *stateWhile:
		rec.Kind = "WhileStatement"
		common(&s.stateCommon, s.node)
		add("label", s.label)
		add("firstBody", s.firstBody)
		add("haveTest", s.haveTest)
		add("testVal", s.testVal)
	case *stateFor:
		rec.Kind = "ForStatement"
		common(&s.stateCommon, s.node)
		add("label", s.label)
		add("phase", float64(s.phase))
		add("testVal", s.testVal)
	case *stateForIn:
		rec.Kind = "ForInStatement"
		common(&s.stateCommon, s.node)
		add("label", s.label)
		add("haveObj", s.haveObj)
		if s.obj != nil {
			add("obj", e.encodeValue(s.obj))
		}
		keys := make([]interface{}, len(s.keys))
		for ki, k := range s.keys {
			keys[ki] = k
		}
		add("keys", keys)
		add("idx", float64(s.idx))
		add("inBody", s.inBody)
		add("lvActive", s.lvActive)
		if s.lvActive {
			lv(&s.lv)
		}
	case *stateBreak:
		rec.Kind = "BreakStatement"
		common(&s.stateCommon, s.node)
	case *stateContinue:
		rec.Kind = "ContinueStatement"
		common(&s.stateCommon, s.node)
	case *stateReturn:
		rec.Kind = "ReturnStatement"
		common(&s.stateCommon, s.node)
		add("have", s.have)
		if s.value != nil {
			add("value", e.encodeValue(s.value))
		}
	case *stateThrow:
		rec.Kind = "ThrowStatement"
		common(&s.stateCommon, s.node)
		add("have", s.have)
		if s.value != nil {
			add("value", e.encodeValue(s.value))
		}
	case *stateTry:
		rec.Kind = "TryStatement"
		common(&s.stateCommon, s.node)
		add("phase", float64(s.phase))
		if s.saved != nil {
			add("savedKind", s.saved.kind.String())
			add("savedLabel", s.saved.label)
			if s.saved.value != nil {
				add("savedValue", e.encodeValue(s.saved.value))
			}
		}
	case *stateSwitch:
		rec.Kind = "SwitchStatement"
		common(&s.stateCommon, s.node)
		add("label", s.label)
		add("phase", float64(s.phase))
		if s.disc != nil {
			add("disc", e.encodeValue(s.disc))
		}
		add("caseIdx", float64(s.caseIdx))
		add("stmtIdx", float64(s.stmtIdx))
		add("awaiting", s.awaiting)
		if s.testVal != nil {
			add("testVal", e.encodeValue(s.testVal))
		}
	case *stateLabeled:
		rec.Kind = "LabeledStatement"
		common(&s.stateCommon, s.node)
		add("started", s.started)
	case *stateIdentifier:
		rec.Kind = "Identifier"
		common(&s.stateCommon, s.node)
	case *stateLiteral:
		rec.Kind = "Literal"
		common(&s.stateCommon, s.node)
	case *stateThis:
		rec.Kind = "ThisExpression"
		common(&s.stateCommon, s.node)
	case *stateObjectExpression:
		rec.Kind = "ObjectExpression"
		common(&s.stateCommon, s.node)
		add("n", float64(s.n))
		if s.obj != nil {
			add("obj", e.encodeValue(s.obj))
		}
	case *stateArrayExpression:
		rec.Kind = "ArrayExpression"
		common(&s.stateCommon, s.node)
		add("n", float64(s.n))
		if s.obj != nil {
			add("obj", e.encodeValue(s.obj))
		}
	case *stateFunctionExpression:
		rec.Kind = "FunctionExpression"
		common(&s.stateCommon, s.node)
	case *stateMemberExpression:
		rec.Kind = "MemberExpression"
		common(&s.stateCommon, s.node)
		add("haveBase", s.haveBase)
		if s.haveBase {
			add("base", e.encodeValue(s.base))
		}
		add("haveKey", s.haveKey)
		if s.haveKey {
			add("key", s.key)
		}
	case *stateMemberDelete:
		rec.Kind = "MemberDelete"
		common(&s.stateCommon, s.node)
		add("haveBase", s.haveBase)
		if s.haveBase {
			add("base", e.encodeValue(s.base))
		}
		add("haveKey", s.haveKey)
		if s.haveKey {
			add("key", s.key)
		}
	case *stateCall:
		rec.Kind = "CallExpression"
		common(&s.stateCommon, s.node)
		add("isNew", s.isNew)
		add("haveBase", s.haveBase)
		if s.haveBase {
			add("base", e.encodeValue(s.base))
		}
		add("haveKey", s.haveKey)
		if s.haveKey {
			add("key", s.key)
		}
		add("haveFn", s.haveFn)
		if s.haveFn {
			add("fn", e.encodeValue(s.fn))
		}
		argv := make([]interface{}, len(s.argv))
		for ai, a := range s.argv {
			argv[ai] = e.encodeValue(a)
		}
		add("argv", argv)
		add("argIdx", float64(s.argIdx))
		add("invoked", s.invoked)
		if s.newObj != nil {
			add("newObj", e.encodeValue(s.newObj))
		}
		add("haveResult", s.haveResult)
		if s.haveResult && s.result != nil {
			add("result", e.encodeValue(s.result))
		}
	case *stateAssignment:
		rec.Kind = "AssignmentExpression"
		common(&s.stateCommon, s.node)
		lv(&s.lv)
		add("haveRhs", s.haveRhs)
		if s.haveRhs {
			add("rhs", e.encodeValue(s.rhs))
		}
	case *stateUpdate:
		rec.Kind = "UpdateExpression"
		common(&s.stateCommon, s.node)
		lv(&s.lv)
	case *stateBinary:
		rec.Kind = "BinaryExpression"
		common(&s.stateCommon, s.node)
		add("haveLeft", s.haveLeft)
		if s.haveLeft {
			add("left", e.encodeValue(s.left))
		}
		add("haveRight", s.haveRight)
		if s.haveRight {
			add("right", e.encodeValue(s.right))
		}
	case *stateLogical:
		rec.Kind = "LogicalExpression"
		common(&s.stateCommon, s.node)
		add("haveLeft", s.haveLeft)
		if s.haveLeft {
			add("left", e.encodeValue(s.left))
		}
	case *stateUnary:
		rec.Kind = "UnaryExpression"
		common(&s.stateCommon, s.node)
		add("have", s.have)
		if s.have {
			add("arg", e.encodeValue(s.arg))
		}
	case *stateConditional:
		rec.Kind = "ConditionalExpression"
		common(&s.stateCommon, s.node)
		add("haveResult", s.haveResult)
		add("result", s.result)
	case *stateSequence:
		rec.Kind = "SequenceExpression"
		common(&s.stateCommon, s.node)
		add("n", float64(s.n))
		if s.last != nil {
			add("last", e.encodeValue(s.last))
		}
	default:
		rec.Kind = "Unknown"
	}
	rec.Props = props
	return idx
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// materializeState rebuilds the state for record idx, materializing its
// parent chain first. newState wires the node-derived static fields; the
// record's progress fields are applied over it.
func (d *decoder) materializeState(idx int) (state, error) {
	if st, ok := d.states[idx]; ok {
		return st, nil
	}
	if d.inProgress[idx] {
		return nil, decodeErrf(DecodeShape, "state parent chain cycle at record %d", idx)
	}
	d.inProgress[idx] = true
	defer delete(d.inProgress, idx)

	rec := &d.records[idx]
	props := rec.Props

	var parent state
	if pv := props.Get("parent"); pv != nil {
		pidx, ok := d.asRef(pv)
		if !ok {
			return nil, decodeErrf(DecodeShape, "state %d has malformed parent", idx)
		}
		p, err := d.materializeState(pidx)
		if err != nil {
			return nil, err
		}
		parent = p
	}

	scope, err := d.scopeAt(props.Get("scope"))
	if err != nil {
		return nil, decodeErrf(DecodeShape, "state %d: %v", idx, err)
	}

	var st state
	if nv := props.Get("node"); nv != nil {
		prog, node, err := d.nodeAt(nv)
		if err != nil {
			return nil, decodeErrf(DecodeShape, "state %d: %v", idx, err)
		}
		if rec.Kind == "MemberDelete" {
			member, ok := node.(*ast.MemberExpression)
			if !ok {
				return nil, decodeErrf(DecodeType, "state %d: MemberDelete over %s", idx, node.Type())
			}
			st = &stateMemberDelete{
				stateCommon: stateCommon{parent: parent, scope: scope, prog: prog},
				node:        member,
			}
		} else {
			st = newState(parent, scope, prog, node)
		}
	} else {
		// A spawned call has no originating AST node.
		var prog *ast.Program
		if pv := props.Get("prog"); pv != nil {
			if p, err := d.progAt(pv); err == nil {
				prog = p
			}
		}
		st = &stateCall{stateCommon: stateCommon{parent: parent, scope: scope, prog: prog}}
	}

	d.applyStateProps(st, props)
	d.states[idx] = st
	return st, nil
}

// applyStateProps copies a record's progress fields onto a freshly
// constructed state.
func (d *decoder) applyStateProps(st state, props PropList) {
	num := func(k string) int { return int(d.asNumber(props.Get(k))) }
	flag := func(k string) bool { b, _ := props.Get(k).(bool); return b }
	str := func(k string) string { s, _ := props.Get(k).(string); return s }
	val := func(k string) Value {
		if !props.Has(k) {
			return nil
		}
		return d.asValue(props.Get(k))
	}

	lv := func(l *lvalue) {
		l.ready = flag("lvReady")
		if flag("lvHaveBase") {
			l.haveBase = true
			l.base = d.asValue(props.Get("lvBase"))
		}
		if flag("lvHaveKey") {
			l.haveKey = true
			l.key = str("lvKey")
		}
	}

	switch s := st.(type) {
	case *stateBlock:
		s.n = num("n")
	case *stateExpressionStatement:
		s.done = flag("done")
		s.value = val("value")
	case *stateVariableDeclaration:
		s.n = num("n")
	case *stateVariableDeclarator:
		s.have = flag("have")
		s.value = val("value")
	case *stateIf:
		s.haveResult = flag("haveResult")
		s.result = flag("result")
	case *stateWhile:
		s.label = str("label")
		s.firstBody = flag("firstBody")
		s.haveTest = flag("haveTest")
		s.testVal = flag("testVal")
	case *stateFor:
		s.label = str("label")
		s.phase = num("phase")
		s.testVal = flag("testVal")
	case *stateForIn:
		s.label = str("label")
		s.haveObj = flag("haveObj")
		if v := val("obj"); v != nil {
			s.obj, _ = v.(*Object)
		}
		if raw, ok := props.Get("keys").([]interface{}); ok {
			for _, k := range raw {
				if ks, ok := k.(string); ok {
					s.keys = append(s.keys, ks)
				}
			}
		}
		s.idx = num("idx")
		s.inBody = flag("inBody")
		if flag("lvActive") {
			s.initTarget()
			lv(&s.lv)
		}
	case *stateReturn:
		s.have = flag("have")
		s.value = val("value")
	case *stateThrow:
		s.have = flag("have")
		s.value = val("value")
	case *stateTry:
		s.phase = num("phase")
		if k := str("savedKind"); k != "" {
			s.saved = &completion{
				kind:  completionKindOf(k),
				label: str("savedLabel"),
				value: val("savedValue"),
			}
		}
	case *stateSwitch:
		s.label = str("label")
		s.phase = num("phase")
		s.disc = val("disc")
		s.caseIdx = num("caseIdx")
		s.stmtIdx = num("stmtIdx")
		s.awaiting = flag("awaiting")
		s.testVal = val("testVal")
	case *stateLabeled:
		s.started = flag("started")
	case *stateObjectExpression:
		s.n = num("n")
		if v := val("obj"); v != nil {
			s.obj, _ = v.(*Object)
		}
	case *stateArrayExpression:
		s.n = num("n")
		if v := val("obj"); v != nil {
			s.obj, _ = v.(*Object)
		}
	case *stateMemberExpression:
		s.haveBase = flag("haveBase")
		s.base = val("base")
		s.haveKey = flag("haveKey")
		s.key = str("key")
	case *stateMemberDelete:
		s.haveBase = flag("haveBase")
		s.base = val("base")
		s.haveKey = flag("haveKey")
		s.key = str("key")
	case *stateCall:
		s.isNew = flag("isNew")
		s.haveBase = flag("haveBase")
		s.base = val("base")
		s.haveKey = flag("haveKey")
		s.key = str("key")
		s.haveFn = flag("haveFn")
		if v := val("fn"); v != nil {
			s.fn = v
		}
		if raw, ok := props.Get("argv").([]interface{}); ok {
			for _, a := range raw {
				s.argv = append(s.argv, d.asValue(a))
			}
		}
		s.argIdx = num("argIdx")
		s.invoked = flag("invoked")
		if v := val("newObj"); v != nil {
			s.newObj, _ = v.(*Object)
		}
		s.haveResult = flag("haveResult")
		s.result = val("result")
	case *stateAssignment:
		lv(&s.lv)
		s.haveRhs = flag("haveRhs")
		s.rhs = val("rhs")
	case *stateUpdate:
		lv(&s.lv)
	case *stateBinary:
		s.haveLeft = flag("haveLeft")
		s.left = val("left")
		s.haveRight = flag("haveRight")
		s.right = val("right")
	case *stateLogical:
		s.haveLeft = flag("haveLeft")
		s.left = val("left")
	case *stateUnary:
		s.have = flag("have")
		s.arg = val("arg")
	case *stateConditional:
		s.haveResult = flag("haveResult")
		s.result = flag("result")
	case *stateSequence:
		s.n = num("n")
		s.last = val("last")
	}
}

func completionKindOf(s string) completionKind {
	switch s {
	case "break":
		return complBreak
	case "continue":
		return complContinue
	case "return":
		return complReturn
	case "throw":
		return complThrow
	}
	return complThrow
}
