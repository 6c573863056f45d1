package ast

import (
	"encoding/json"
	"fmt"
)

// ParseJSON decodes an ESTree JSON document into a Program. Node IDs are
// assigned in construction order (pre-order over the tree), so decoding the
// same document always yields the same numbering.
func ParseJSON(src string) (*Program, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(src), &raw); err != nil {
		return nil, fmt.Errorf("ast: invalid JSON: %w", err)
	}
	b := &builder{}
	node, err := b.build(raw)
	if err != nil {
		return nil, err
	}
	prog, ok := node.(*Program)
	if !ok {
		return nil, fmt.Errorf("ast: top-level node is %s, want Program", node.Type())
	}
	prog.Source = src
	prog.Nodes = b.nodes
	return prog, nil
}

// builder constructs typed nodes from decoded JSON maps, assigning IDs.
type builder struct {
	nodes []Node
}

// info reserves the next node ID for a node of the given type and records
// the node in the program-wide index.
func (b *builder) info(typ string, n Node) nodeInfo {
	id := len(b.nodes)
	b.nodes = append(b.nodes, n)
	return nodeInfo{typ: typ, id: id}
}

func (b *builder) build(raw map[string]interface{}) (Node, error) {
	typ, _ := raw["type"].(string)
	if typ == "" {
		return nil, fmt.Errorf("ast: node missing type tag")
	}

	switch typ {
	case "Program":
		n := &Program{}
		n.nodeInfo = b.info(typ, n)
		body, err := b.statements(raw["body"])
		if err != nil {
			return nil, err
		}
		n.Body = body
		return n, nil

	case "EmptyStatement", "DebuggerStatement":
		n := &EmptyStatement{}
		n.nodeInfo = b.info("EmptyStatement", n)
		return n, nil

	case "BlockStatement":
		n := &BlockStatement{}
		n.nodeInfo = b.info(typ, n)
		body, err := b.statements(raw["body"])
		if err != nil {
			return nil, err
		}
		n.Body = body
		return n, nil

	case "ExpressionStatement":
		n := &ExpressionStatement{}
		n.nodeInfo = b.info(typ, n)
		expr, err := b.expression(raw["expression"])
		if err != nil {
			return nil, err
		}
		n.Expression = expr
		return n, nil

	case "IfStatement":
		n := &IfStatement{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if n.Test, err = b.expression(raw["test"]); err != nil {
			return nil, err
		}
		if n.Consequent, err = b.statement(raw["consequent"]); err != nil {
			return nil, err
		}
		if raw["alternate"] != nil {
			if n.Alternate, err = b.statement(raw["alternate"]); err != nil {
				return nil, err
			}
		}
		return n, nil

	case "LabeledStatement":
		n := &LabeledStatement{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if n.Label, err = b.identifier(raw["label"]); err != nil {
			return nil, err
		}
		if n.Body, err = b.statement(raw["body"]); err != nil {
			return nil, err
		}
		return n, nil

	case "BreakStatement":
		n := &BreakStatement{}
		n.nodeInfo = b.info(typ, n)
		if raw["label"] != nil {
			label, err := b.identifier(raw["label"])
			if err != nil {
				return nil, err
			}
			n.Label = label
		}
		return n, nil

	case "ContinueStatement":
		n := &ContinueStatement{}
		n.nodeInfo = b.info(typ, n)
		if raw["label"] != nil {
			label, err := b.identifier(raw["label"])
			if err != nil {
				return nil, err
			}
			n.Label = label
		}
		return n, nil

	case "SwitchStatement":
		n := &SwitchStatement{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if n.Discriminant, err = b.expression(raw["discriminant"]); err != nil {
			return nil, err
		}
		cases, _ := raw["cases"].([]interface{})
		for _, c := range cases {
			cm, ok := c.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("ast: malformed switch case")
			}
			node, err := b.build(cm)
			if err != nil {
				return nil, err
			}
			sc, ok := node.(*SwitchCase)
			if !ok {
				return nil, fmt.Errorf("ast: %s inside switch cases", node.Type())
			}
			n.Cases = append(n.Cases, sc)
		}
		return n, nil

	case "SwitchCase":
		n := &SwitchCase{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if raw["test"] != nil {
			if n.Test, err = b.expression(raw["test"]); err != nil {
				return nil, err
			}
		}
		if n.Consequent, err = b.statements(raw["consequent"]); err != nil {
			return nil, err
		}
		return n, nil

	case "ReturnStatement":
		n := &ReturnStatement{}
		n.nodeInfo = b.info(typ, n)
		if raw["argument"] != nil {
			arg, err := b.expression(raw["argument"])
			if err != nil {
				return nil, err
			}
			n.Argument = arg
		}
		return n, nil

	case "ThrowStatement":
		n := &ThrowStatement{}
		n.nodeInfo = b.info(typ, n)
		arg, err := b.expression(raw["argument"])
		if err != nil {
			return nil, err
		}
		n.Argument = arg
		return n, nil

	case "TryStatement":
		n := &TryStatement{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if n.Block, err = b.block(raw["block"]); err != nil {
			return nil, err
		}
		if raw["handler"] != nil {
			hm, ok := raw["handler"].(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("ast: malformed catch clause")
			}
			node, err := b.build(hm)
			if err != nil {
				return nil, err
			}
			cc, ok := node.(*CatchClause)
			if !ok {
				return nil, fmt.Errorf("ast: %s as try handler", node.Type())
			}
			n.Handler = cc
		}
		if raw["finalizer"] != nil {
			if n.Finalizer, err = b.block(raw["finalizer"]); err != nil {
				return nil, err
			}
		}
		if n.Handler == nil && n.Finalizer == nil {
			return nil, fmt.Errorf("ast: try statement without handler or finalizer")
		}
		return n, nil

	case "CatchClause":
		n := &CatchClause{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if n.Param, err = b.identifier(raw["param"]); err != nil {
			return nil, err
		}
		if n.Body, err = b.block(raw["body"]); err != nil {
			return nil, err
		}
		return n, nil

	case "WhileStatement":
		n := &WhileStatement{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if n.Test, err = b.expression(raw["test"]); err != nil {
			return nil, err
		}
		if n.Body, err = b.statement(raw["body"]); err != nil {
			return nil, err
		}
		return n, nil

	case "DoWhileStatement":
		n := &DoWhileStatement{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if n.Body, err = b.statement(raw["body"]); err != nil {
			return nil, err
		}
		if n.Test, err = b.expression(raw["test"]); err != nil {
			return nil, err
		}
		return n, nil

	case "ForStatement":
		n := &ForStatement{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if raw["init"] != nil {
			im, ok := raw["init"].(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("ast: malformed for init")
			}
			if n.Init, err = b.build(im); err != nil {
				return nil, err
			}
		}
		if raw["test"] != nil {
			if n.Test, err = b.expression(raw["test"]); err != nil {
				return nil, err
			}
		}
		if raw["update"] != nil {
			if n.Update, err = b.expression(raw["update"]); err != nil {
				return nil, err
			}
		}
		if n.Body, err = b.statement(raw["body"]); err != nil {
			return nil, err
		}
		return n, nil

	case "ForInStatement":
		n := &ForInStatement{}
		n.nodeInfo = b.info(typ, n)
		lm, ok := raw["left"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("ast: malformed for-in left")
		}
		var err error
		if n.Left, err = b.build(lm); err != nil {
			return nil, err
		}
		if n.Right, err = b.expression(raw["right"]); err != nil {
			return nil, err
		}
		if n.Body, err = b.statement(raw["body"]); err != nil {
			return nil, err
		}
		return n, nil

	case "FunctionDeclaration":
		n := &FunctionDeclaration{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if n.ID, err = b.identifier(raw["id"]); err != nil {
			return nil, err
		}
		if n.Params, err = b.identifiers(raw["params"]); err != nil {
			return nil, err
		}
		if n.Body, err = b.block(raw["body"]); err != nil {
			return nil, err
		}
		return n, nil

	case "VariableDeclaration":
		n := &VariableDeclaration{}
		n.nodeInfo = b.info(typ, n)
		n.Kind, _ = raw["kind"].(string)
		if n.Kind != "var" {
			return nil, fmt.Errorf("ast: unsupported declaration kind %q", n.Kind)
		}
		decls, _ := raw["declarations"].([]interface{})
		for _, d := range decls {
			dm, ok := d.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("ast: malformed declarator")
			}
			node, err := b.build(dm)
			if err != nil {
				return nil, err
			}
			vd, ok := node.(*VariableDeclarator)
			if !ok {
				return nil, fmt.Errorf("ast: %s inside declarations", node.Type())
			}
			n.Declarations = append(n.Declarations, vd)
		}
		return n, nil

	case "VariableDeclarator":
		n := &VariableDeclarator{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if n.ID, err = b.identifier(raw["id"]); err != nil {
			return nil, err
		}
		if raw["init"] != nil {
			if n.Init, err = b.expression(raw["init"]); err != nil {
				return nil, err
			}
		}
		return n, nil

	case "ThisExpression":
		n := &ThisExpression{}
		n.nodeInfo = b.info(typ, n)
		return n, nil

	case "ArrayExpression":
		n := &ArrayExpression{}
		n.nodeInfo = b.info(typ, n)
		elems, _ := raw["elements"].([]interface{})
		for _, e := range elems {
			if e == nil {
				n.Elements = append(n.Elements, nil)
				continue
			}
			expr, err := b.expression(e)
			if err != nil {
				return nil, err
			}
			n.Elements = append(n.Elements, expr)
		}
		return n, nil

	case "ObjectExpression":
		n := &ObjectExpression{}
		n.nodeInfo = b.info(typ, n)
		props, _ := raw["properties"].([]interface{})
		for _, p := range props {
			pm, ok := p.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("ast: malformed property")
			}
			prop, err := b.property(pm)
			if err != nil {
				return nil, err
			}
			n.Properties = append(n.Properties, prop)
		}
		return n, nil

	case "FunctionExpression":
		n := &FunctionExpression{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if raw["id"] != nil {
			if n.ID, err = b.identifier(raw["id"]); err != nil {
				return nil, err
			}
		}
		if n.Params, err = b.identifiers(raw["params"]); err != nil {
			return nil, err
		}
		if n.Body, err = b.block(raw["body"]); err != nil {
			return nil, err
		}
		return n, nil

	case "SequenceExpression":
		n := &SequenceExpression{}
		n.nodeInfo = b.info(typ, n)
		exprs, _ := raw["expressions"].([]interface{})
		for _, e := range exprs {
			expr, err := b.expression(e)
			if err != nil {
				return nil, err
			}
			n.Expressions = append(n.Expressions, expr)
		}
		if len(n.Expressions) == 0 {
			return nil, fmt.Errorf("ast: empty sequence expression")
		}
		return n, nil

	case "UnaryExpression":
		n := &UnaryExpression{}
		n.nodeInfo = b.info(typ, n)
		n.Operator, _ = raw["operator"].(string)
		arg, err := b.expression(raw["argument"])
		if err != nil {
			return nil, err
		}
		n.Argument = arg
		return n, nil

	case "BinaryExpression":
		n := &BinaryExpression{}
		n.nodeInfo = b.info(typ, n)
		n.Operator, _ = raw["operator"].(string)
		var err error
		if n.Left, err = b.expression(raw["left"]); err != nil {
			return nil, err
		}
		if n.Right, err = b.expression(raw["right"]); err != nil {
			return nil, err
		}
		return n, nil

	case "AssignmentExpression":
		n := &AssignmentExpression{}
		n.nodeInfo = b.info(typ, n)
		n.Operator, _ = raw["operator"].(string)
		var err error
		if n.Left, err = b.expression(raw["left"]); err != nil {
			return nil, err
		}
		if n.Right, err = b.expression(raw["right"]); err != nil {
			return nil, err
		}
		return n, nil

	case "UpdateExpression":
		n := &UpdateExpression{}
		n.nodeInfo = b.info(typ, n)
		n.Operator, _ = raw["operator"].(string)
		n.Prefix, _ = raw["prefix"].(bool)
		arg, err := b.expression(raw["argument"])
		if err != nil {
			return nil, err
		}
		n.Argument = arg
		return n, nil

	case "LogicalExpression":
		n := &LogicalExpression{}
		n.nodeInfo = b.info(typ, n)
		n.Operator, _ = raw["operator"].(string)
		var err error
		if n.Left, err = b.expression(raw["left"]); err != nil {
			return nil, err
		}
		if n.Right, err = b.expression(raw["right"]); err != nil {
			return nil, err
		}
		return n, nil

	case "ConditionalExpression":
		n := &ConditionalExpression{}
		n.nodeInfo = b.info(typ, n)
		var err error
		if n.Test, err = b.expression(raw["test"]); err != nil {
			return nil, err
		}
		if n.Consequent, err = b.expression(raw["consequent"]); err != nil {
			return nil, err
		}
		if n.Alternate, err = b.expression(raw["alternate"]); err != nil {
			return nil, err
		}
		return n, nil

	case "CallExpression":
		n := &CallExpression{}
		n.nodeInfo = b.info(typ, n)
		callee, err := b.expression(raw["callee"])
		if err != nil {
			return nil, err
		}
		n.Callee = callee
		if n.Arguments, err = b.expressions(raw["arguments"]); err != nil {
			return nil, err
		}
		return n, nil

	case "NewExpression":
		n := &NewExpression{}
		n.nodeInfo = b.info(typ, n)
		callee, err := b.expression(raw["callee"])
		if err != nil {
			return nil, err
		}
		n.Callee = callee
		if n.Arguments, err = b.expressions(raw["arguments"]); err != nil {
			return nil, err
		}
		return n, nil

	case "MemberExpression":
		n := &MemberExpression{}
		n.nodeInfo = b.info(typ, n)
		n.Computed, _ = raw["computed"].(bool)
		obj, err := b.expression(raw["object"])
		if err != nil {
			return nil, err
		}
		n.Object = obj
		pm, ok := raw["property"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("ast: malformed member property")
		}
		prop, err := b.build(pm)
		if err != nil {
			return nil, err
		}
		if !n.Computed {
			if _, ok := prop.(*Identifier); !ok {
				return nil, fmt.Errorf("ast: non-computed member property is %s", prop.Type())
			}
		}
		n.Property = prop
		return n, nil

	case "Identifier":
		n := &Identifier{}
		n.nodeInfo = b.info(typ, n)
		n.Name, _ = raw["name"].(string)
		if n.Name == "" {
			return nil, fmt.Errorf("ast: identifier without name")
		}
		return n, nil

	case "Literal":
		n := &Literal{}
		n.nodeInfo = b.info(typ, n)
		n.Raw, _ = raw["raw"].(string)
		if re, ok := raw["regex"].(map[string]interface{}); ok {
			n.IsRegex = true
			n.Pattern, _ = re["pattern"].(string)
			n.Flags, _ = re["flags"].(string)
			return n, nil
		}
		switch v := raw["value"].(type) {
		case nil, bool, float64, string:
			n.Value = v
		default:
			return nil, fmt.Errorf("ast: unsupported literal value %T", v)
		}
		return n, nil

	default:
		return nil, fmt.Errorf("ast: unsupported node type %q", typ)
	}
}

// ---------------------------------------------------------------------------
// Field helpers
// ---------------------------------------------------------------------------

func (b *builder) statement(v interface{}) (Statement, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("ast: expected statement node, got %T", v)
	}
	node, err := b.build(m)
	if err != nil {
		return nil, err
	}
	s, ok := node.(Statement)
	if !ok {
		return nil, fmt.Errorf("ast: %s used as statement", node.Type())
	}
	return s, nil
}

func (b *builder) statements(v interface{}) ([]Statement, error) {
	list, _ := v.([]interface{})
	out := make([]Statement, 0, len(list))
	for _, item := range list {
		s, err := b.statement(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (b *builder) expression(v interface{}) (Expression, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("ast: expected expression node, got %T", v)
	}
	node, err := b.build(m)
	if err != nil {
		return nil, err
	}
	e, ok := node.(Expression)
	if !ok {
		return nil, fmt.Errorf("ast: %s used as expression", node.Type())
	}
	return e, nil
}

func (b *builder) expressions(v interface{}) ([]Expression, error) {
	list, _ := v.([]interface{})
	out := make([]Expression, 0, len(list))
	for _, item := range list {
		e, err := b.expression(item)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *builder) identifier(v interface{}) (*Identifier, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("ast: expected identifier, got %T", v)
	}
	node, err := b.build(m)
	if err != nil {
		return nil, err
	}
	id, ok := node.(*Identifier)
	if !ok {
		return nil, fmt.Errorf("ast: expected identifier, got %s", node.Type())
	}
	return id, nil
}

func (b *builder) identifiers(v interface{}) ([]*Identifier, error) {
	list, _ := v.([]interface{})
	out := make([]*Identifier, 0, len(list))
	for _, item := range list {
		id, err := b.identifier(item)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (b *builder) block(v interface{}) (*BlockStatement, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("ast: expected block statement, got %T", v)
	}
	node, err := b.build(m)
	if err != nil {
		return nil, err
	}
	bl, ok := node.(*BlockStatement)
	if !ok {
		return nil, fmt.Errorf("ast: expected block statement, got %s", node.Type())
	}
	return bl, nil
}

func (b *builder) property(raw map[string]interface{}) (*Property, error) {
	typ, _ := raw["type"].(string)
	// Some parsers omit the Property type tag; tolerate both.
	if typ != "" && typ != "Property" {
		return nil, fmt.Errorf("ast: %s inside object properties", typ)
	}
	n := &Property{}
	n.nodeInfo = b.info("Property", n)
	n.Kind, _ = raw["kind"].(string)
	if n.Kind != "" && n.Kind != "init" {
		return nil, fmt.Errorf("ast: unsupported property kind %q", n.Kind)
	}
	km, ok := raw["key"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("ast: malformed property key")
	}
	key, err := b.build(km)
	if err != nil {
		return nil, err
	}
	switch key.(type) {
	case *Identifier, *Literal:
	default:
		return nil, fmt.Errorf("ast: property key is %s", key.Type())
	}
	n.Key = key
	value, err := b.expression(raw["value"])
	if err != nil {
		return nil, err
	}
	n.Value = value
	return n, nil
}
