package interp

import "encoding/json"

// Test programs are built as ESTree JSON, the same form the external
// parser delivers. The helpers below assemble node maps and marshal them.

type m = map[string]interface{}

func marshalProg(body ...m) string {
	data, err := json.Marshal(m{"type": "Program", "body": body})
	if err != nil {
		panic(err)
	}
	return string(data)
}

func exprStmt(e m) m { return m{"type": "ExpressionStatement", "expression": e} }

func lit(v interface{}) m { return m{"type": "Literal", "value": v} }

func ident(name string) m { return m{"type": "Identifier", "name": name} }

func bin(op string, l, r m) m {
	return m{"type": "BinaryExpression", "operator": op, "left": l, "right": r}
}

func logical(op string, l, r m) m {
	return m{"type": "LogicalExpression", "operator": op, "left": l, "right": r}
}

func unary(op string, arg m) m {
	return m{"type": "UnaryExpression", "operator": op, "argument": arg}
}

func cond(test, cons, alt m) m {
	return m{"type": "ConditionalExpression", "test": test, "consequent": cons, "alternate": alt}
}

func assign(op string, l, r m) m {
	return m{"type": "AssignmentExpression", "operator": op, "left": l, "right": r}
}

func update(op string, prefix bool, arg m) m {
	return m{"type": "UpdateExpression", "operator": op, "prefix": prefix, "argument": arg}
}

func vardecl(decls ...m) m {
	return m{"type": "VariableDeclaration", "kind": "var", "declarations": decls}
}

func declr(name string, init m) m {
	d := m{"type": "VariableDeclarator", "id": ident(name)}
	if init != nil {
		d["init"] = init
	}
	return d
}

func iff(test, cons, alt m) m {
	n := m{"type": "IfStatement", "test": test, "consequent": cons}
	if alt != nil {
		n["alternate"] = alt
	}
	return n
}

func while(test, body m) m {
	return m{"type": "WhileStatement", "test": test, "body": body}
}

func dowhile(body, test m) m {
	return m{"type": "DoWhileStatement", "body": body, "test": test}
}

func forstmt(init, test, upd, body m) m {
	n := m{"type": "ForStatement", "body": body}
	if init != nil {
		n["init"] = init
	}
	if test != nil {
		n["test"] = test
	}
	if upd != nil {
		n["update"] = upd
	}
	return n
}

func forin(left, right, body m) m {
	return m{"type": "ForInStatement", "left": left, "right": right, "body": body}
}

func block(body ...m) m {
	stmts := make([]interface{}, len(body))
	for i, s := range body {
		stmts[i] = s
	}
	return m{"type": "BlockStatement", "body": stmts}
}

func fndecl(name string, params []string, body ...m) m {
	return m{
		"type": "FunctionDeclaration", "id": ident(name),
		"params": identList(params), "body": block(body...),
	}
}

func fnexpr(params []string, body ...m) m {
	return m{
		"type": "FunctionExpression",
		"params": identList(params), "body": block(body...),
	}
}

func identList(names []string) []interface{} {
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = ident(n)
	}
	return out
}

func call(callee m, args ...m) m {
	return m{"type": "CallExpression", "callee": callee, "arguments": argList(args)}
}

func neww(callee m, args ...m) m {
	return m{"type": "NewExpression", "callee": callee, "arguments": argList(args)}
}

func argList(args []m) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func member(obj m, name string) m {
	return m{"type": "MemberExpression", "object": obj, "property": ident(name), "computed": false}
}

func index(obj, key m) m {
	return m{"type": "MemberExpression", "object": obj, "property": key, "computed": true}
}

func ret(arg m) m {
	n := m{"type": "ReturnStatement"}
	if arg != nil {
		n["argument"] = arg
	}
	return n
}

func brk(label string) m {
	n := m{"type": "BreakStatement"}
	if label != "" {
		n["label"] = ident(label)
	}
	return n
}

func cont(label string) m {
	n := m{"type": "ContinueStatement"}
	if label != "" {
		n["label"] = ident(label)
	}
	return n
}

func thrw(arg m) m { return m{"type": "ThrowStatement", "argument": arg} }

func try(blk m, param string, handler m, finalizer m) m {
	n := m{"type": "TryStatement", "block": blk}
	if handler != nil {
		n["handler"] = m{"type": "CatchClause", "param": ident(param), "body": handler}
	}
	if finalizer != nil {
		n["finalizer"] = finalizer
	}
	return n
}

func sw(disc m, cases ...m) m {
	cs := make([]interface{}, len(cases))
	for i, c := range cases {
		cs[i] = c
	}
	return m{"type": "SwitchStatement", "discriminant": disc, "cases": cs}
}

func cse(test m, stmts ...m) m {
	ss := make([]interface{}, len(stmts))
	for i, s := range stmts {
		ss[i] = s
	}
	n := m{"type": "SwitchCase", "consequent": ss}
	if test != nil {
		n["test"] = test
	}
	return n
}

func labeled(name string, body m) m {
	return m{"type": "LabeledStatement", "label": ident(name), "body": body}
}

func arrlit(elems ...m) m {
	out := make([]interface{}, len(elems))
	for i, e := range elems {
		if e == nil {
			out[i] = nil
			continue
		}
		out[i] = e
	}
	return m{"type": "ArrayExpression", "elements": out}
}

func objlit(props ...m) m {
	out := make([]interface{}, len(props))
	for i, p := range props {
		out[i] = p
	}
	return m{"type": "ObjectExpression", "properties": out}
}

func prop(key string, value m) m {
	return m{"type": "Property", "kind": "init", "key": ident(key), "value": value}
}

func seq(exprs ...m) m {
	out := make([]interface{}, len(exprs))
	for i, e := range exprs {
		out[i] = e
	}
	return m{"type": "SequenceExpression", "expressions": out}
}

func thisExpr() m { return m{"type": "ThisExpression"} }
