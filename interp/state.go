package interp

import (
	"fmt"

	"github.com/chazu/warren/ast"
)

// ---------------------------------------------------------------------------
// Completions
// ---------------------------------------------------------------------------

// completionKind discriminates abrupt completions threaded up the state
// tree.
type completionKind uint8

const (
	complBreak completionKind = iota + 1
	complContinue
	complReturn
	complThrow
)

func (k completionKind) String() string {
	switch k {
	case complBreak:
		return "break"
	case complContinue:
		return "continue"
	case complReturn:
		return "return"
	case complThrow:
		return "throw"
	}
	return "normal"
}

// completion is an abrupt completion: break/continue carry an optional
// label, return and throw carry a value.
type completion struct {
	kind  completionKind
	value Value
	label string
}

// ---------------------------------------------------------------------------
// State protocol
// ---------------------------------------------------------------------------

// state is one vertex of the explicit continuation tree for a running
// thread; roughly one state kind per AST node type. step performs the next
// indivisible unit of evaluation and returns the state to run next: a
// freshly created child for a sub-expression, or the parent when finished.
type state interface {
	step(t *Thread) state
	parentState() state
}

// valueAcceptor is implemented by states that consume a sub-expression
// result. A child in an expression context calls parent.acceptValue exactly
// once before returning the parent.
type valueAcceptor interface {
	acceptValue(v Value)
}

// abruptAcceptor is implemented by states that can intercept an abrupt
// completion (loops for break/continue, try for throw, calls for return).
// While a completion is pending, the engine unwinds past every state whose
// wantsAbrupt rejects it without running their steps.
type abruptAcceptor interface {
	wantsAbrupt(c *completion) bool
}

// labelable is implemented by loop and switch states so an enclosing
// labeled statement can attach its label for break/continue matching.
type labelable interface {
	setLabel(label string)
}

// stateCommon carries the fields shared by every state kind.
type stateCommon struct {
	parent state
	scope  *Scope
	prog   *ast.Program
}

func (c *stateCommon) parentState() state { return c.parent }

// deliver passes v to the parent's acceptValue. Every expression state
// finishes with deliver followed by returning the parent.
func (c *stateCommon) deliver(v Value) {
	if acc, ok := c.parent.(valueAcceptor); ok {
		acc.acceptValue(v)
	}
}

// newState creates the state that evaluates node. parent is the state the
// engine returns to afterwards.
func newState(parent state, scope *Scope, prog *ast.Program, node ast.Node) state {
	sc := stateCommon{parent: parent, scope: scope, prog: prog}
	switch n := node.(type) {

	// Statements.
	case *ast.Program:
		return &stateBlock{stateCommon: sc, node: node, body: n.Body}
	case *ast.BlockStatement:
		return &stateBlock{stateCommon: sc, node: node, body: n.Body}
	case *ast.EmptyStatement:
		return &stateEmpty{stateCommon: sc, node: n}
	case *ast.ExpressionStatement:
		return &stateExpressionStatement{stateCommon: sc, node: n}
	case *ast.VariableDeclaration:
		return &stateVariableDeclaration{stateCommon: sc, node: n}
	case *ast.VariableDeclarator:
		return &stateVariableDeclarator{stateCommon: sc, node: n}
	case *ast.FunctionDeclaration:
		// Already bound by the hoisting pass.
		return &stateEmpty{stateCommon: sc, node: n}
	case *ast.IfStatement:
		return &stateIf{stateCommon: sc, node: n}
	case *ast.WhileStatement:
		return &stateWhile{stateCommon: sc, node: n, test: n.Test, body: n.Body}
	case *ast.DoWhileStatement:
		return &stateWhile{stateCommon: sc, node: n, test: n.Test, body: n.Body, doWhile: true, firstBody: true}
	case *ast.ForStatement:
		return &stateFor{stateCommon: sc, node: n}
	case *ast.ForInStatement:
		return &stateForIn{stateCommon: sc, node: n}
	case *ast.BreakStatement:
		return &stateBreak{stateCommon: sc, node: n}
	case *ast.ContinueStatement:
		return &stateContinue{stateCommon: sc, node: n}
	case *ast.ReturnStatement:
		return &stateReturn{stateCommon: sc, node: n}
	case *ast.ThrowStatement:
		return &stateThrow{stateCommon: sc, node: n}
	case *ast.TryStatement:
		return &stateTry{stateCommon: sc, node: n}
	case *ast.SwitchStatement:
		return &stateSwitch{stateCommon: sc, node: n}
	case *ast.LabeledStatement:
		return &stateLabeled{stateCommon: sc, node: n}

	// Expressions.
	case *ast.Identifier:
		return &stateIdentifier{stateCommon: sc, node: n}
	case *ast.Literal:
		return &stateLiteral{stateCommon: sc, node: n}
	case *ast.ThisExpression:
		return &stateThis{stateCommon: sc, node: n}
	case *ast.ObjectExpression:
		return &stateObjectExpression{stateCommon: sc, node: n}
	case *ast.ArrayExpression:
		return &stateArrayExpression{stateCommon: sc, node: n}
	case *ast.FunctionExpression:
		return &stateFunctionExpression{stateCommon: sc, node: n}
	case *ast.MemberExpression:
		return &stateMemberExpression{stateCommon: sc, node: n}
	case *ast.CallExpression:
		return &stateCall{stateCommon: sc, node: node, callee: n.Callee, args: n.Arguments}
	case *ast.NewExpression:
		return &stateCall{stateCommon: sc, node: node, callee: n.Callee, args: n.Arguments, isNew: true}
	case *ast.AssignmentExpression:
		s := &stateAssignment{stateCommon: sc, node: n}
		s.lv.init(scope, prog, n.Left)
		return s
	case *ast.UpdateExpression:
		s := &stateUpdate{stateCommon: sc, node: n}
		s.lv.init(scope, prog, n.Argument)
		return s
	case *ast.BinaryExpression:
		return &stateBinary{stateCommon: sc, node: n}
	case *ast.LogicalExpression:
		return &stateLogical{stateCommon: sc, node: n}
	case *ast.UnaryExpression:
		return &stateUnary{stateCommon: sc, node: n}
	case *ast.ConditionalExpression:
		return &stateConditional{stateCommon: sc, node: n}
	case *ast.SequenceExpression:
		return &stateSequence{stateCommon: sc, node: n}

	default:
		panic(fmt.Sprintf("interp: no state for AST node type %T", node))
	}
}
