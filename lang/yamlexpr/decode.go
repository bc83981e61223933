// Mgmt
// Copyright (C) James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package yamlexpr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/purpleidea/xqeval/lang/ast"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/util/errwrap"

	"github.com/iancoleman/strcase"
)

// fields is a yaml mapping with normalized keys.
type fields map[string]interface{}

// toFields normalizes the keys of a mapping, so that groupBy, group-by and
// group_by are the same key.
func toFields(raw interface{}) (fields, error) {
	m, ok := raw.(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got: %v", raw)
	}
	result := fields{}
	for k, v := range m {
		key, ok := k.(string)
		if !ok {
			return nil, fmt.Errorf("invalid key: %v", k)
		}
		result[strcase.ToSnake(key)] = v
	}
	return result, nil
}

// only errors if the mapping has a key which isn't listed.
func (obj fields) only(keys ...string) error {
	unknown := []string{}
	for k := range obj {
		found := false
		for _, key := range keys {
			if k == key {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown keys: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// expr decodes a required child expression.
func (obj fields) expr(key string) (interfaces.Expr, error) {
	raw, exists := obj[key]
	if !exists {
		return nil, fmt.Errorf("missing key: %s", key)
	}
	expr, err := decodeExpr(raw)
	if err != nil {
		return nil, errwrap.Wrapf(err, "in %s", key)
	}
	return expr, nil
}

// optionalExpr decodes a child expression which may be missing.
func (obj fields) optionalExpr(key string) (interfaces.Expr, error) {
	if _, exists := obj[key]; !exists {
		return nil, nil
	}
	return obj.expr(key)
}

// exprs decodes a list of expressions which may be missing.
func (obj fields) exprs(key string) ([]interfaces.Expr, error) {
	raw, exists := obj[key]
	if !exists || raw == nil {
		return []interfaces.Expr{}, nil
	}
	result, err := decodeList(raw)
	if err != nil {
		return nil, errwrap.Wrapf(err, "in %s", key)
	}
	return result, nil
}

// str returns a string field, or the empty string.
func (obj fields) str(key string) (string, error) {
	raw, exists := obj[key]
	if !exists || raw == nil {
		return "", nil
	}
	switch x := raw.(type) {
	case string:
		return x, nil
	case int, float64:
		return fmt.Sprint(x), nil
	case bool:
		return "", fmt.Errorf("%s: the value was read as the boolean %t, quote it", key, x)
	}
	return "", fmt.Errorf("%s: expected a string, got: %v", key, raw)
}

// name returns a variable name field, or the empty string.
func (obj fields) name(key string) (string, error) {
	raw, exists := obj[key]
	if !exists || raw == nil {
		return "", nil
	}
	name, err := varName(raw)
	if err != nil {
		return "", errwrap.Wrapf(err, "in %s", key)
	}
	return name, nil
}

// varName reads a variable name with an optional leading $. Plain scalars
// such as n, y, yes or off are booleans in yaml, so those names must be
// quoted.
func varName(raw interface{}) (string, error) {
	switch x := raw.(type) {
	case string:
		if name := strings.TrimPrefix(x, "$"); name != "" {
			return name, nil
		}
	case bool:
		return "", fmt.Errorf("variable name was read as the boolean %t, quote it", x)
	}
	return "", fmt.Errorf("invalid variable name: %v", raw)
}

// boolean returns a boolean field, or false.
func (obj fields) boolean(key string) (bool, error) {
	raw, exists := obj[key]
	if !exists || raw == nil {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%s: expected a boolean, got: %v", key, raw)
	}
	return b, nil
}

// decodeList decodes a yaml sequence of expressions.
func decodeList(raw interface{}) ([]interfaces.Expr, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list, got: %v", raw)
	}
	result := []interfaces.Expr{}
	for i, x := range list {
		expr, err := decodeExpr(x)
		if err != nil {
			return nil, errwrap.Wrapf(err, "item %d", i)
		}
		result = append(result, expr)
	}
	return result, nil
}

// decodeExpr decodes one node. A node is a mapping with a single key, which
// is the kind of the node.
func decodeExpr(raw interface{}) (interfaces.Expr, error) {
	f, err := toFields(raw)
	if err != nil {
		return nil, err
	}
	if len(f) != 1 {
		keys := []string{}
		for k := range f {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("a node must have exactly one kind, got: [%s]", strings.Join(keys, ", "))
	}
	for kind, value := range f {
		expr, err := decodeKind(kind, value)
		if err != nil {
			return nil, errwrap.Wrapf(err, "%s", kind)
		}
		return expr, nil
	}
	panic("unreachable")
}

// decodeKind builds the node of a kind from its value.
func decodeKind(kind string, value interface{}) (interfaces.Expr, error) {
	switch kind {
	case "int":
		switch x := value.(type) {
		case int:
			return &ast.ExprInt{V: int64(x)}, nil
		case string:
			i, err := strconv.ParseInt(x, 10, 64)
			if err != nil {
				return nil, err
			}
			return &ast.ExprInt{V: i}, nil
		}
		return nil, fmt.Errorf("invalid integer: %v", value)

	case "decimal":
		return &ast.ExprDecimal{V: fmt.Sprint(value)}, nil

	case "double":
		switch x := value.(type) {
		case int:
			return &ast.ExprDouble{V: float64(x)}, nil
		case float64:
			return &ast.ExprDouble{V: x}, nil
		}
		return nil, fmt.Errorf("invalid double: %v", value)

	case "str":
		s, ok := value.(string)
		if !ok {
			s = fmt.Sprint(value)
		}
		return &ast.ExprStr{V: s}, nil

	case "seq":
		if value == nil {
			return &ast.ExprSeq{Exprs: []interfaces.Expr{}}, nil
		}
		exprs, err := decodeList(value)
		if err != nil {
			return nil, err
		}
		return &ast.ExprSeq{Exprs: exprs}, nil

	case "var":
		name, err := varName(value)
		if err != nil {
			return nil, err
		}
		return &ast.ExprVar{Name: name}, nil

	case "context":
		return &ast.ExprContextItem{}, nil

	case "root":
		return &ast.ExprRoot{}, nil

	case "doc":
		uri, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("invalid uri: %v", value)
		}
		return &ast.ExprDoc{URI: uri}, nil

	case "neg", "plus":
		operand, err := decodeExpr(value)
		if err != nil {
			return nil, err
		}
		return &ast.ExprUnary{Minus: kind == "neg", Operand: operand}, nil

	case "flwor":
		return decodeFLWOR(value)

	case "path":
		steps, err := decodeList(value)
		if err != nil {
			return nil, err
		}
		return &ast.ExprPath{Steps: steps}, nil
	}

	f, err := toFields(value)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "range":
		return decodeRange(f)
	case "arith":
		return decodeArith(f)
	case "and", "or":
		return decodeLogic(kind, f)
	case "compare":
		return decodeCompare(f)
	case "if":
		return decodeIf(f)
	case "switch":
		return decodeSwitch(f)
	case "typeswitch":
		return decodeTypeswitch(f)
	case "try":
		return decodeTry(f)
	case "instance_of", "treat":
		return decodeTypeTest(kind, f)
	case "cast", "castable":
		return decodeCast(kind, f)
	case "call":
		return decodeCall(f)
	case "funcref":
		return decodeFuncRef(f)
	case "inline":
		return decodeInline(f)
	case "dynamic_call":
		return decodeDynamicCall(f)
	case "step":
		return decodeStep(f)
	case "filter":
		return decodeFilter(f)
	}
	return nil, fmt.Errorf("unknown node kind")
}

func decodeRange(f fields) (interfaces.Expr, error) {
	if err := f.only("start", "end"); err != nil {
		return nil, err
	}
	start, err := f.expr("start")
	if err != nil {
		return nil, err
	}
	end, err := f.expr("end")
	if err != nil {
		return nil, err
	}
	return &ast.ExprRange{Start: start, End: end}, nil
}

// binary decodes the left and right operands.
func binary(f fields) (interfaces.Expr, interfaces.Expr, error) {
	left, err := f.expr("left")
	if err != nil {
		return nil, nil, err
	}
	right, err := f.expr("right")
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func decodeArith(f fields) (interfaces.Expr, error) {
	if err := f.only("op", "left", "right"); err != nil {
		return nil, err
	}
	op, err := f.str("op")
	if err != nil {
		return nil, err
	}
	switch types.ArithOp(op) {
	case types.OpAdd, types.OpSub, types.OpMul, types.OpDiv, types.OpIDiv, types.OpMod:
	default:
		return nil, fmt.Errorf("unknown operator: %s", op)
	}
	left, right, err := binary(f)
	if err != nil {
		return nil, err
	}
	return &ast.ExprArith{Op: types.ArithOp(op), Left: left, Right: right}, nil
}

func decodeLogic(kind string, f fields) (interfaces.Expr, error) {
	if err := f.only("left", "right"); err != nil {
		return nil, err
	}
	left, right, err := binary(f)
	if err != nil {
		return nil, err
	}
	if kind == "and" {
		return &ast.ExprAnd{Left: left, Right: right}, nil
	}
	return &ast.ExprOr{Left: left, Right: right}, nil
}

func decodeCompare(f fields) (interfaces.Expr, error) {
	if err := f.only("op", "left", "right", "collation"); err != nil {
		return nil, err
	}
	s, err := f.str("op")
	if err != nil {
		return nil, err
	}
	op, general, err := ast.ParseCompareOp(s)
	if err != nil {
		return nil, err
	}
	collation, err := f.str("collation")
	if err != nil {
		return nil, err
	}
	left, right, err := binary(f)
	if err != nil {
		return nil, err
	}
	return &ast.ExprCompare{Op: op, General: general, Left: left, Right: right, Collation: collation}, nil
}

func decodeIf(f fields) (interfaces.Expr, error) {
	if err := f.only("cond", "then", "else"); err != nil {
		return nil, err
	}
	cond, err := f.expr("cond")
	if err != nil {
		return nil, err
	}
	then, err := f.expr("then")
	if err != nil {
		return nil, err
	}
	els, err := f.expr("else")
	if err != nil {
		return nil, err
	}
	return &ast.ExprIf{Condition: cond, ThenBranch: then, ElseBranch: els}, nil
}

// cases returns the list of case mappings.
func cases(f fields) ([]fields, error) {
	return f.mappings("cases")
}

// mappings returns the list of mappings under key.
func (obj fields) mappings(key string) ([]fields, error) {
	raw, exists := obj[key]
	if !exists {
		return nil, fmt.Errorf("missing key: %s", key)
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: expected a list, got: %v", key, raw)
	}
	result := []fields{}
	for _, x := range list {
		c, err := toFields(x)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

func decodeSwitch(f fields) (interfaces.Expr, error) {
	if err := f.only("operand", "cases", "default"); err != nil {
		return nil, err
	}
	operand, err := f.expr("operand")
	if err != nil {
		return nil, err
	}
	def, err := f.expr("default")
	if err != nil {
		return nil, err
	}
	list, err := cases(f)
	if err != nil {
		return nil, err
	}
	expr := &ast.ExprSwitch{Operand: operand, Default: def}
	for i, c := range list {
		if err := c.only("values", "return"); err != nil {
			return nil, errwrap.Wrapf(err, "case %d", i)
		}
		values, err := c.exprs("values")
		if err != nil {
			return nil, errwrap.Wrapf(err, "case %d", i)
		}
		ret, err := c.expr("return")
		if err != nil {
			return nil, errwrap.Wrapf(err, "case %d", i)
		}
		expr.Cases = append(expr.Cases, &ast.SwitchCase{Values: values, Return: ret})
	}
	return expr, nil
}

func decodeTypeswitch(f fields) (interfaces.Expr, error) {
	if err := f.only("operand", "cases", "default", "default_var"); err != nil {
		return nil, err
	}
	operand, err := f.expr("operand")
	if err != nil {
		return nil, err
	}
	def, err := f.expr("default")
	if err != nil {
		return nil, err
	}
	defVar, err := f.name("default_var")
	if err != nil {
		return nil, err
	}
	list, err := cases(f)
	if err != nil {
		return nil, err
	}
	expr := &ast.ExprTypeswitch{Operand: operand, Default: def, DefaultVar: defVar}
	for i, c := range list {
		if err := c.only("var", "types", "return"); err != nil {
			return nil, errwrap.Wrapf(err, "case %d", i)
		}
		v, err := c.name("var")
		if err != nil {
			return nil, err
		}
		raw, _ := c["types"].([]interface{})
		if len(raw) == 0 {
			return nil, fmt.Errorf("case %d: missing types", i)
		}
		sts := []types.SequenceType{}
		for _, x := range raw {
			st, err := types.ParseSequenceType(fmt.Sprint(x))
			if err != nil {
				return nil, errwrap.Wrapf(err, "case %d", i)
			}
			sts = append(sts, st)
		}
		ret, err := c.expr("return")
		if err != nil {
			return nil, errwrap.Wrapf(err, "case %d", i)
		}
		expr.Cases = append(expr.Cases, &ast.TypeswitchCase{Var: v, Types: sts, Return: ret})
	}
	return expr, nil
}

func decodeTry(f fields) (interfaces.Expr, error) {
	if err := f.only("body", "catches"); err != nil {
		return nil, err
	}
	body, err := f.expr("body")
	if err != nil {
		return nil, err
	}
	list, err := f.mappings("catches")
	if err != nil {
		return nil, err
	}
	expr := &ast.ExprTryCatch{Body: body}
	for i, c := range list {
		if err := c.only("codes", "return"); err != nil {
			return nil, errwrap.Wrapf(err, "catch %d", i)
		}
		raw, _ := c["codes"].([]interface{})
		if len(raw) == 0 {
			return nil, fmt.Errorf("catch %d: missing codes", i)
		}
		codes := []string{}
		for _, x := range raw {
			code, ok := x.(string)
			if !ok || code == "" {
				return nil, fmt.Errorf("catch %d: invalid code: %v", i, x)
			}
			codes = append(codes, code)
		}
		ret, err := c.expr("return")
		if err != nil {
			return nil, errwrap.Wrapf(err, "catch %d", i)
		}
		expr.Catches = append(expr.Catches, &ast.CatchClause{Codes: codes, Return: ret})
	}
	return expr, nil
}

func decodeTypeTest(kind string, f fields) (interfaces.Expr, error) {
	if err := f.only("operand", "type"); err != nil {
		return nil, err
	}
	operand, err := f.expr("operand")
	if err != nil {
		return nil, err
	}
	s, err := f.str("type")
	if err != nil {
		return nil, err
	}
	st, err := types.ParseSequenceType(s)
	if err != nil {
		return nil, err
	}
	if kind == "treat" {
		return &ast.ExprTreat{Operand: operand, Type: st}, nil
	}
	return &ast.ExprInstanceOf{Operand: operand, Type: st}, nil
}

// decodeCast reads the target type. A trailing question mark allows the
// empty sequence.
func decodeCast(kind string, f fields) (interfaces.Expr, error) {
	if err := f.only("operand", "type"); err != nil {
		return nil, err
	}
	operand, err := f.expr("operand")
	if err != nil {
		return nil, err
	}
	s, err := f.str("type")
	if err != nil {
		return nil, err
	}
	allowEmpty := strings.HasSuffix(s, "?")
	target, err := types.ParseType(strings.TrimSuffix(s, "?"))
	if err != nil {
		return nil, err
	}
	if kind == "castable" {
		return &ast.ExprCastable{Operand: operand, Target: target, AllowEmpty: allowEmpty}, nil
	}
	return &ast.ExprCast{Operand: operand, Target: target, AllowEmpty: allowEmpty}, nil
}

func decodeCall(f fields) (interfaces.Expr, error) {
	if err := f.only("name", "args"); err != nil {
		return nil, err
	}
	name, err := f.str("name")
	if err != nil || name == "" {
		return nil, fmt.Errorf("invalid function name")
	}
	args, err := f.exprs("args")
	if err != nil {
		return nil, err
	}
	return &ast.ExprCall{Name: name, Args: args}, nil
}

func decodeFuncRef(f fields) (interfaces.Expr, error) {
	if err := f.only("name", "arity"); err != nil {
		return nil, err
	}
	name, err := f.str("name")
	if err != nil || name == "" {
		return nil, fmt.Errorf("invalid function name")
	}
	arity, ok := f["arity"].(int)
	if !ok || arity < 0 {
		return nil, fmt.Errorf("invalid arity: %v", f["arity"])
	}
	return &ast.ExprFuncRef{Name: name, Arity: arity}, nil
}

func decodeInline(f fields) (interfaces.Expr, error) {
	if err := f.only("params", "return", "body"); err != nil {
		return nil, err
	}
	params := []Param{}
	if raw, ok := f["params"].([]interface{}); ok {
		for _, x := range raw {
			p, err := toFields(x)
			if err != nil {
				return nil, err
			}
			name, err := p.name("name")
			if err != nil {
				return nil, err
			}
			typ, err := p.str("type")
			if err != nil {
				return nil, err
			}
			params = append(params, Param{Name: name, Type: typ})
		}
	}
	decoded, err := decodeParams(params)
	if err != nil {
		return nil, err
	}
	s, err := f.str("return")
	if err != nil {
		return nil, err
	}
	ret, err := anyType(s)
	if err != nil {
		return nil, err
	}
	body, err := f.expr("body")
	if err != nil {
		return nil, err
	}
	return &ast.ExprInlineFunc{Params: decoded, Return: ret, Body: body}, nil
}

func decodeDynamicCall(f fields) (interfaces.Expr, error) {
	if err := f.only("callee", "args"); err != nil {
		return nil, err
	}
	callee, err := f.expr("callee")
	if err != nil {
		return nil, err
	}
	args, err := f.exprs("args")
	if err != nil {
		return nil, err
	}
	return &ast.ExprDynamicCall{Callee: callee, Args: args}, nil
}

func decodeStep(f fields) (interfaces.Expr, error) {
	if err := f.only("axis", "kind", "name", "predicates"); err != nil {
		return nil, err
	}
	axis, err := f.str("axis")
	if err != nil {
		return nil, err
	}
	name, err := f.str("name")
	if err != nil {
		return nil, err
	}
	test := ast.NodeTest{Name: name}
	kind, err := f.str("kind")
	if err != nil {
		return nil, err
	}
	if kind != "" {
		if test.Kind, err = types.ParseType(kind); err != nil {
			return nil, err
		}
	}
	predicates, err := f.exprs("predicates")
	if err != nil {
		return nil, err
	}
	return &ast.ExprStep{Axis: ast.Axis(axis), Test: test, Predicates: predicates}, nil
}

func decodeFilter(f fields) (interfaces.Expr, error) {
	if err := f.only("primary", "predicates"); err != nil {
		return nil, err
	}
	primary, err := f.expr("primary")
	if err != nil {
		return nil, err
	}
	predicates, err := f.exprs("predicates")
	if err != nil {
		return nil, err
	}
	return &ast.ExprFilter{Primary: primary, Predicates: predicates}, nil
}

// decodeFLWOR decodes a list of clauses, where the last one is the return.
func decodeFLWOR(value interface{}) (interfaces.Expr, error) {
	list, ok := value.([]interface{})
	if !ok || len(list) < 2 {
		return nil, fmt.Errorf("expected a list of clauses and a return")
	}
	clauses := []ast.Clause{}
	var ret interfaces.Expr
	for i, x := range list {
		f, err := toFields(x)
		if err != nil {
			return nil, errwrap.Wrapf(err, "clause %d", i)
		}
		if len(f) != 1 {
			return nil, fmt.Errorf("clause %d: a clause must have exactly one kind", i)
		}
		for kind, v := range f {
			if ret != nil {
				return nil, fmt.Errorf("clause %d: %s after the return", i, kind)
			}
			if kind == "return" {
				if ret, err = decodeExpr(v); err != nil {
					return nil, errwrap.Wrapf(err, "return")
				}
				continue
			}
			clause, err := decodeClause(kind, v)
			if err != nil {
				return nil, errwrap.Wrapf(err, "clause %d: %s", i, kind)
			}
			clauses = append(clauses, clause)
		}
	}
	if ret == nil {
		return nil, fmt.Errorf("missing return")
	}
	return ast.NewFLWOR(clauses, ret)
}

// decodeClause builds one clause of a FLWOR.
func decodeClause(kind string, value interface{}) (ast.Clause, error) {
	switch kind {
	case "where":
		cond, err := decodeExpr(value)
		if err != nil {
			return nil, err
		}
		return &ast.ExprWhere{Condition: cond}, nil

	case "group_by":
		list, ok := value.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expected a list of grouping specs")
		}
		clause := &ast.ExprGroupBy{}
		for i, x := range list {
			f, err := toFields(x)
			if err != nil {
				return nil, err
			}
			if err := f.only("var", "expr", "collation"); err != nil {
				return nil, errwrap.Wrapf(err, "spec %d", i)
			}
			v, err := f.name("var")
			if err != nil {
				return nil, errwrap.Wrapf(err, "spec %d", i)
			}
			if v == "" {
				return nil, fmt.Errorf("spec %d: missing var", i)
			}
			expr, err := f.optionalExpr("expr")
			if err != nil {
				return nil, errwrap.Wrapf(err, "spec %d", i)
			}
			collation, err := f.str("collation")
			if err != nil {
				return nil, err
			}
			clause.Specs = append(clause.Specs, &ast.GroupSpec{Var: v, Expr: expr, Collation: collation})
		}
		return clause, nil
	}

	f, err := toFields(value)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "for":
		if err := f.only("var", "at", "in", "type", "allowing_empty"); err != nil {
			return nil, err
		}
		v, err := f.name("var")
		if err != nil {
			return nil, err
		}
		if v == "" {
			return nil, fmt.Errorf("missing var")
		}
		at, err := f.name("at")
		if err != nil {
			return nil, err
		}
		in, err := f.expr("in")
		if err != nil {
			return nil, err
		}
		s, err := f.str("type")
		if err != nil {
			return nil, err
		}
		st, err := optionalType(s)
		if err != nil {
			return nil, err
		}
		allowingEmpty, err := f.boolean("allowing_empty")
		if err != nil {
			return nil, err
		}
		return &ast.ExprFor{Var: v, PosVar: at, In: in, Type: st, AllowingEmpty: allowingEmpty}, nil

	case "let":
		if err := f.only("var", "value", "type"); err != nil {
			return nil, err
		}
		v, err := f.name("var")
		if err != nil {
			return nil, err
		}
		if v == "" {
			return nil, fmt.Errorf("missing var")
		}
		value, err := f.expr("value")
		if err != nil {
			return nil, err
		}
		s, err := f.str("type")
		if err != nil {
			return nil, err
		}
		st, err := optionalType(s)
		if err != nil {
			return nil, err
		}
		return &ast.ExprLet{Var: v, Value: value, Type: st}, nil

	case "order_by":
		if err := f.only("stable", "specs"); err != nil {
			return nil, err
		}
		stable, err := f.boolean("stable")
		if err != nil {
			return nil, err
		}
		list, ok := f["specs"].([]interface{})
		if !ok || len(list) == 0 {
			return nil, fmt.Errorf("missing specs")
		}
		clause := &ast.ExprOrderBy{Stable: stable}
		for i, x := range list {
			s, err := toFields(x)
			if err != nil {
				return nil, err
			}
			if err := s.only("expr", "descending", "empty_greatest", "collation"); err != nil {
				return nil, errwrap.Wrapf(err, "spec %d", i)
			}
			expr, err := s.expr("expr")
			if err != nil {
				return nil, errwrap.Wrapf(err, "spec %d", i)
			}
			descending, err := s.boolean("descending")
			if err != nil {
				return nil, err
			}
			emptyGreatest, err := s.boolean("empty_greatest")
			if err != nil {
				return nil, err
			}
			collation, err := s.str("collation")
			if err != nil {
				return nil, err
			}
			clause.Specs = append(clause.Specs, &ast.OrderSpec{
				Expr:          expr,
				Descending:    descending,
				EmptyGreatest: emptyGreatest,
				Collation:     collation,
			})
		}
		return clause, nil
	}
	return nil, fmt.Errorf("unknown clause kind")
}
