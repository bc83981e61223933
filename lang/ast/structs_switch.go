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

package ast

import (
	"fmt"
	"strings"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

// SwitchCase is one case clause of a switch expression.
type SwitchCase struct {
	Values []interfaces.Expr
	Return interfaces.Expr
}

// ExprSwitch is a switch expression. The operand is compared with the case
// values in order and the first match wins. Falling through to the default
// branch is control flow, not error recovery.
type ExprSwitch struct {
	interfaces.Textarea
	staticInfo

	Operand interfaces.Expr
	Cases   []*SwitchCase
	Default interfaces.Expr

	coll types.Collator
}

// String returns a short representation of this expression.
func (obj *ExprSwitch) String() string {
	s := []string{}
	for _, c := range obj.Cases {
		s = append(s, fmt.Sprintf("case %s return %s", joinExprs(c.Values, " case "), c.Return))
	}
	return fmt.Sprintf("switch (%s) %s default return %s", obj.Operand, strings.Join(s, " "), obj.Default)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprSwitch) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Operand); err != nil {
		return err
	}
	for _, c := range obj.Cases {
		if err := applyAll(fn, c.Values...); err != nil {
			return err
		}
		if err := applyAll(fn, c.Return); err != nil {
			return err
		}
	}
	if err := applyAll(fn, obj.Default); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprSwitch) Analyze(ctx *interfaces.AnalyzeContext) error {
	if obj.Default == nil {
		return errcode.Static(errcode.XPST0003, "switch without a default branch")
	}
	if err := analyzeAll(ctx, obj, obj.Operand); err != nil {
		return err
	}
	obj.deps = obj.Operand.Dependencies()
	obj.typ, obj.card = types.TypeEmpty, types.Empty
	branches := []interfaces.Expr{}
	for _, c := range obj.Cases {
		if err := analyzeAll(ctx, obj, c.Values...); err != nil {
			return err
		}
		obj.deps |= depsOf(c.Values...)
		branches = append(branches, c.Return)
	}
	branches = append(branches, obj.Default)
	if err := analyzeTail(ctx, obj, branches...); err != nil {
		return err
	}
	for _, b := range branches {
		obj.typ = types.CommonSuperType(obj.typ, b.ReturnsType())
		obj.card = obj.card.Union(b.Cardinality())
	}
	obj.deps |= depsOf(branches...)

	coll, err := lookupCollation(ctx, "")
	if err != nil {
		return err
	}
	obj.coll = coll
	obj.analyzed = true
	return nil
}

// Eval evaluates the first matching branch.
func (obj *ExprSwitch) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	coll := collator(env, obj.coll)
	operand, err := evalOptionalAtomic(env, obj.Operand, contextSeq, contextItem, "switch operand")
	if err != nil {
		return nil, err
	}
	for _, c := range obj.Cases {
		for _, value := range c.Values {
			v, err := evalOptionalAtomic(env, value, contextSeq, contextItem, "switch case")
			if err != nil {
				return nil, err
			}
			if !switchMatch(operand, v, coll) {
				continue
			}
			return evalTail(env, c.Return, contextSeq, contextItem)
		}
	}
	return evalTail(env, obj.Default, contextSeq, contextItem)
}

// switchMatch compares with deep equal semantics: two empty values match,
// untyped values are strings, and incomparable values simply don't match.
func switchMatch(a, b types.Atomic, coll types.Collator) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return types.ValueEqual(untypedToString(a), untypedToString(b), coll)
}

// TypeswitchCase is one case clause of a typeswitch expression.
type TypeswitchCase struct {
	// Var is the optional variable bound to the operand.
	Var    string
	Types  []types.SequenceType
	Return interfaces.Expr
}

// ExprTypeswitch is a typeswitch expression.
type ExprTypeswitch struct {
	interfaces.Textarea
	staticInfo

	Operand    interfaces.Expr
	Cases      []*TypeswitchCase
	DefaultVar string
	Default    interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *ExprTypeswitch) String() string {
	s := []string{}
	for _, c := range obj.Cases {
		ts := []string{}
		for _, t := range c.Types {
			ts = append(ts, t.String())
		}
		v := ""
		if c.Var != "" {
			v = "$" + c.Var + " as "
		}
		s = append(s, fmt.Sprintf("case %s%s return %s", v, strings.Join(ts, " | "), c.Return))
	}
	return fmt.Sprintf("typeswitch (%s) %s default return %s", obj.Operand, strings.Join(s, " "), obj.Default)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprTypeswitch) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Operand); err != nil {
		return err
	}
	for _, c := range obj.Cases {
		if err := applyAll(fn, c.Return); err != nil {
			return err
		}
	}
	if err := applyAll(fn, obj.Default); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprTypeswitch) Analyze(ctx *interfaces.AnalyzeContext) error {
	if obj.Default == nil {
		return errcode.Static(errcode.XPST0003, "typeswitch without a default branch")
	}
	if err := analyzeAll(ctx, obj, obj.Operand); err != nil {
		return err
	}
	obj.deps = obj.Operand.Dependencies()
	obj.typ, obj.card = types.TypeEmpty, types.Empty
	declare := func(name string, st types.SequenceType) *interfaces.AnalyzeContext {
		if name == "" {
			return ctx
		}
		return ctx.Declare(name, st)
	}
	for _, c := range obj.Cases {
		if len(c.Types) == 0 {
			return errcode.Static(errcode.XPST0003, "typeswitch case without a type")
		}
		st := c.Types[0]
		if len(c.Types) > 1 {
			st = types.AnySequence
		}
		if err := analyzeTail(declare(c.Var, st), obj, c.Return); err != nil {
			return err
		}
		obj.typ = types.CommonSuperType(obj.typ, c.Return.ReturnsType())
		obj.card = obj.card.Union(c.Return.Cardinality())
		obj.deps |= c.Return.Dependencies()
	}
	if err := analyzeTail(declare(obj.DefaultVar, types.AnySequence), obj, obj.Default); err != nil {
		return err
	}
	obj.typ = types.CommonSuperType(obj.typ, obj.Default.ReturnsType())
	obj.card = obj.card.Union(obj.Default.Cardinality())
	obj.deps |= obj.Default.Dependencies()
	obj.analyzed = true
	return nil
}

// Eval evaluates the first branch whose type matches the operand.
func (obj *ExprTypeswitch) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	operand, err := eval(env, obj.Operand, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	for _, c := range obj.Cases {
		for _, st := range c.Types {
			if !st.Matches(operand) {
				continue
			}
			return obj.branch(env, c.Var, operand, c.Return, contextSeq, contextItem)
		}
	}
	return obj.branch(env, obj.DefaultVar, operand, obj.Default, contextSeq, contextItem)
}

// branch evaluates a branch with its variable bound.
func (obj *ExprTypeswitch) branch(env *interfaces.Env, name string, operand types.Sequence, expr interfaces.Expr, contextSeq types.Sequence, contextItem types.Item) (result types.Sequence, reterr error) {
	if name == "" {
		return evalTail(env, expr, contextSeq, contextItem)
	}
	mark := env.Stack.Mark(false)
	defer func() { env.Stack.Pop(mark, result) }()
	env.Stack.Bind(name, operand, types.AnySequence)
	return evalTail(env, expr, contextSeq, contextItem)
}

// ExprInstanceOf is the `instance of` operator. No promotion or atomization is
// applied.
type ExprInstanceOf struct {
	interfaces.Textarea
	staticInfo

	Operand interfaces.Expr
	Type    types.SequenceType
}

// String returns a short representation of this expression.
func (obj *ExprInstanceOf) String() string {
	return fmt.Sprintf("(%s instance of %s)", obj.Operand, obj.Type)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprInstanceOf) Apply(fn func(interfaces.Expr) error) error {
	if err := obj.Operand.Apply(fn); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprInstanceOf) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx, obj, obj.Operand); err != nil {
		return err
	}
	obj.typ, obj.card = types.TypeBoolean, types.ExactlyOne
	obj.deps = obj.Operand.Dependencies()
	obj.analyzed = true
	return nil
}

// Eval tests the operand.
func (obj *ExprInstanceOf) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	seq, err := eval(env, obj.Operand, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	return boolSeq(obj.Type.Matches(seq)), nil
}

// ExprTreat is the `treat as` operator. It asserts the dynamic type of the
// operand without converting it.
type ExprTreat struct {
	interfaces.Textarea
	staticInfo

	Operand interfaces.Expr
	Type    types.SequenceType
}

// String returns a short representation of this expression.
func (obj *ExprTreat) String() string {
	return fmt.Sprintf("(%s treat as %s)", obj.Operand, obj.Type)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprTreat) Apply(fn func(interfaces.Expr) error) error {
	if err := obj.Operand.Apply(fn); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprTreat) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx, obj, obj.Operand); err != nil {
		return err
	}
	obj.typ, obj.card = obj.Type.Type, obj.Type.Cardinality
	obj.deps = obj.Operand.Dependencies()
	obj.analyzed = true
	return nil
}

// Eval returns the operand if it matches the type.
func (obj *ExprTreat) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	seq, err := eval(env, obj.Operand, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	if !obj.Type.Matches(seq) {
		return nil, errcode.New(errcode.XPDY0050, errcode.KindSubtype, "value of type %s%s can't be treated as %s", seq.ItemType(), seq.Cardinality().Indicator(), obj.Type)
	}
	return seq, nil
}
