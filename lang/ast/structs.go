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

// Package ast contains the structs implementing and some utility functions for
// interacting with the expression tree of a compiled query. Every node
// implements the two-phase interfaces.Expr contract: Analyze runs once, and
// Eval runs any number of times afterwards.
package ast

import (
	"fmt"
	"strconv"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

// staticInfo holds what the analysis found out about a node. It is embedded in
// every node.
type staticInfo struct {
	typ      types.Type
	card     types.Cardinality
	deps     interfaces.Dependency
	analyzed bool
}

// ReturnsType returns the statically known item type of the result.
func (obj *staticInfo) ReturnsType() types.Type {
	if obj.typ == types.TypeUnknown {
		return types.TypeItem
	}
	return obj.typ
}

// Cardinality returns the statically known cardinality of the result.
func (obj *staticInfo) Cardinality() types.Cardinality {
	if obj.card == 0 {
		return types.ZeroOrMore
	}
	return obj.card
}

// Dependencies returns what the result depends on.
func (obj *staticInfo) Dependencies() interfaces.Dependency {
	return obj.deps
}

// ResetState does nothing for nodes without a cache.
func (obj *staticInfo) ResetState(postOptimization bool) {}

// ExprStr is a representation of a string literal.
type ExprStr struct {
	interfaces.Textarea
	staticInfo

	V string
}

// String returns a short representation of this expression.
func (obj *ExprStr) String() string { return strconv.Quote(obj.V) }

// Apply is a general purpose iterator method that operates on any AST node. It
// is not used as the primary AST traversal function because it is less
// readable and easy to reason about than manually implementing traversal for
// each node. Nevertheless, it is a useful facility for operations that might
// only apply to a select number of node types, since they won't need extra
// noop iterators...
func (obj *ExprStr) Apply(fn func(interfaces.Expr) error) error { return fn(obj) }

// Analyze performs the static analysis of this node.
func (obj *ExprStr) Analyze(ctx *interfaces.AnalyzeContext) error {
	obj.typ, obj.card, obj.analyzed = types.TypeString, types.ExactlyOne, true
	return nil
}

// Eval returns the literal value.
func (obj *ExprStr) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return types.Singleton(types.NewString(obj.V)), nil
}

// ExprInt is a representation of an integer literal.
type ExprInt struct {
	interfaces.Textarea
	staticInfo

	V int64
}

// String returns a short representation of this expression.
func (obj *ExprInt) String() string { return strconv.FormatInt(obj.V, 10) }

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprInt) Apply(fn func(interfaces.Expr) error) error { return fn(obj) }

// Analyze performs the static analysis of this node.
func (obj *ExprInt) Analyze(ctx *interfaces.AnalyzeContext) error {
	obj.typ, obj.card, obj.analyzed = types.TypeInteger, types.ExactlyOne, true
	return nil
}

// Eval returns the literal value.
func (obj *ExprInt) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return types.Singleton(types.NewInteger(obj.V)), nil
}

// ExprDecimal is a representation of a decimal literal. The lexical form is
// kept so that no precision is lost.
type ExprDecimal struct {
	interfaces.Textarea
	staticInfo

	V string

	value types.Atomic
}

// String returns a short representation of this expression.
func (obj *ExprDecimal) String() string { return obj.V }

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprDecimal) Apply(fn func(interfaces.Expr) error) error { return fn(obj) }

// Analyze parses the literal.
func (obj *ExprDecimal) Analyze(ctx *interfaces.AnalyzeContext) error {
	v, err := types.Convert(types.NewString(obj.V), types.TypeDecimal, nil)
	if err != nil {
		return errcode.Wrap(err, errcode.XPST0003, errcode.KindStatic, "invalid decimal literal: %s", obj.V)
	}
	obj.value = v
	obj.typ, obj.card, obj.analyzed = types.TypeDecimal, types.ExactlyOne, true
	return nil
}

// Eval returns the literal value.
func (obj *ExprDecimal) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if obj.value == nil {
		return nil, interfaces.ErrNotAnalyzed
	}
	return types.Singleton(obj.value), nil
}

// ExprDouble is a representation of a double literal.
type ExprDouble struct {
	interfaces.Textarea
	staticInfo

	V float64
}

// String returns a short representation of this expression.
func (obj *ExprDouble) String() string { return types.NewDouble(obj.V).String() }

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprDouble) Apply(fn func(interfaces.Expr) error) error { return fn(obj) }

// Analyze performs the static analysis of this node.
func (obj *ExprDouble) Analyze(ctx *interfaces.AnalyzeContext) error {
	obj.typ, obj.card, obj.analyzed = types.TypeDouble, types.ExactlyOne, true
	return nil
}

// Eval returns the literal value.
func (obj *ExprDouble) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return types.Singleton(types.NewDouble(obj.V)), nil
}

// ExprSeq is the comma operator. An empty list is the empty sequence.
type ExprSeq struct {
	interfaces.Textarea
	staticInfo

	Exprs []interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *ExprSeq) String() string {
	return "(" + joinExprs(obj.Exprs, ", ") + ")"
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprSeq) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Exprs...); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprSeq) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx, obj, obj.Exprs...); err != nil {
		return err
	}
	obj.typ, obj.card = types.TypeEmpty, types.Empty
	for _, expr := range obj.Exprs {
		obj.typ = types.CommonSuperType(obj.typ, expr.ReturnsType())
		obj.card = obj.card.Concat(expr.Cardinality())
	}
	obj.deps = depsOf(obj.Exprs...)
	obj.analyzed = true
	return nil
}

// Eval concatenates the results of every member.
func (obj *ExprSeq) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	switch len(obj.Exprs) {
	case 0:
		return types.EmptySequence, nil
	case 1:
		return eval(env, obj.Exprs[0], contextSeq, contextItem)
	}
	result := types.NewSequence()
	for _, expr := range obj.Exprs {
		seq, err := eval(env, expr, contextSeq, contextItem)
		if err != nil {
			return nil, err
		}
		if err := env.ProceedOutput(obj, result.Len()+seq.Len()); err != nil {
			return nil, err
		}
		result.AddAll(seq)
	}
	return result, nil
}

// ExprRange is the `to` operator. The range is never materialized.
type ExprRange struct {
	interfaces.Textarea
	staticInfo

	Start interfaces.Expr
	End   interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *ExprRange) String() string {
	return fmt.Sprintf("%s to %s", obj.Start, obj.End)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprRange) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Start, obj.End); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprRange) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx, obj, obj.Start, obj.End); err != nil {
		return err
	}
	obj.typ, obj.card = types.TypeInteger, types.ZeroOrMore
	obj.deps = depsOf(obj.Start, obj.End)
	obj.analyzed = true
	return nil
}

// Eval returns the integer range.
func (obj *ExprRange) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	bounds := [2]int64{}
	for i, expr := range []interfaces.Expr{obj.Start, obj.End} {
		v, err := evalOptionalAtomic(env, expr, contextSeq, contextItem, "range bound")
		if err != nil {
			return nil, err
		}
		if v == nil {
			return types.EmptySequence, nil
		}
		if v.Type() == types.TypeUntypedAtomic {
			if v, err = types.Convert(v, types.TypeInteger, nil); err != nil {
				return nil, err
			}
		}
		n, ok := v.(*types.IntValue)
		if !ok {
			return nil, typeError("range bound", v, types.TypeInteger)
		}
		bounds[i] = n.V
	}
	if bounds[1] < bounds[0] {
		return types.EmptySequence, nil
	}
	return &types.RangeSequence{Start: bounds[0], End: bounds[1]}, nil
}

// ExprVar is a representation of a variable reference.
type ExprVar struct {
	interfaces.Textarea
	staticInfo

	Name string

	local bool
}

// String returns a short representation of this expression.
func (obj *ExprVar) String() string { return "$" + obj.Name }

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprVar) Apply(fn func(interfaces.Expr) error) error { return fn(obj) }

// Analyze resolves the variable. Local variables shadow global ones.
func (obj *ExprVar) Analyze(ctx *interfaces.AnalyzeContext) error {
	if st, exists := ctx.Lookup(obj.Name); exists {
		obj.local = true
		obj.typ, obj.card = st.Type, st.Cardinality
		obj.deps = interfaces.DepLocalVars
		obj.analyzed = true
		return nil
	}
	if ctx.Static.Resolver != nil {
		if st, exists := ctx.Static.Resolver.ResolveVariable(obj.Name); exists {
			obj.typ, obj.card = st.Type, st.Cardinality
			obj.deps = interfaces.DepGlobalVars
			obj.analyzed = true
			return nil
		}
	}
	return interfaces.UnknownVariable(obj.Name)
}

// Eval returns the value bound to the variable.
func (obj *ExprVar) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if b, exists := env.Stack.Resolve(obj.Name); exists {
		if b.Value == nil {
			return nil, errcode.New(errcode.XPDY0002, errcode.KindDynamic, "variable $%s was released", obj.Name)
		}
		return b.Value, nil
	}
	if seq, exists := env.Globals[obj.Name]; exists {
		return seq, nil
	}
	return nil, errcode.New(errcode.XPDY0002, errcode.KindDynamic, "variable $%s has no value", obj.Name)
}

// IsLocal returns true if the analysis resolved a local variable.
func (obj *ExprVar) IsLocal() bool { return obj.local }

// ExprContextItem is the context item expression, which is written as a dot.
type ExprContextItem struct {
	interfaces.Textarea
	staticInfo
}

// String returns a short representation of this expression.
func (obj *ExprContextItem) String() string { return "." }

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprContextItem) Apply(fn func(interfaces.Expr) error) error { return fn(obj) }

// Analyze performs the static analysis of this node.
func (obj *ExprContextItem) Analyze(ctx *interfaces.AnalyzeContext) error {
	obj.typ, obj.card = ctx.StaticType, types.ExactlyOne
	obj.deps = interfaces.DepContextItem
	obj.analyzed = true
	return nil
}

// Eval returns the context item.
func (obj *ExprContextItem) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if contextItem == nil {
		if contextSeq != nil && contextSeq.Len() == 1 {
			return contextSeq, nil
		}
		return nil, errcode.Wrap(interfaces.ErrNoFocus, errcode.XPDY0002, errcode.KindDynamic, "no context item")
	}
	return types.Singleton(contextItem), nil
}

// ExprArith is a binary arithmetic operation.
type ExprArith struct {
	interfaces.Textarea
	staticInfo

	Op    types.ArithOp
	Left  interfaces.Expr
	Right interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *ExprArith) String() string {
	return fmt.Sprintf("(%s %s %s)", obj.Left, obj.Op, obj.Right)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprArith) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Left, obj.Right); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprArith) Analyze(ctx *interfaces.AnalyzeContext) error {
	switch obj.Op {
	case types.OpAdd, types.OpSub, types.OpMul, types.OpDiv, types.OpIDiv, types.OpMod:
	default:
		return errcode.Static(errcode.XPST0003, "unknown arithmetic operator: %s", obj.Op)
	}
	if err := analyzeAll(ctx, obj, obj.Left, obj.Right); err != nil {
		return err
	}
	l, r := obj.Left.ReturnsType(), obj.Right.ReturnsType()
	switch {
	case obj.Op == types.OpIDiv:
		obj.typ = types.TypeInteger
	case l.IsNumeric() && r.IsNumeric():
		obj.typ = types.CommonSuperType(l, r)
		if obj.Op == types.OpDiv && obj.typ.SubTypeOf(types.TypeDecimal) {
			obj.typ = types.TypeDecimal
		}
	default:
		obj.typ = types.TypeAnyAtomic
	}
	obj.card = types.ZeroOrOne
	if obj.Left.Cardinality() == types.ExactlyOne && obj.Right.Cardinality() == types.ExactlyOne {
		obj.card = types.ExactlyOne
	}
	obj.deps = depsOf(obj.Left, obj.Right)
	obj.analyzed = true
	return nil
}

// Eval applies the operator. An empty operand gives an empty result.
func (obj *ExprArith) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	l, err := evalOptionalAtomic(env, obj.Left, contextSeq, contextItem, "left operand of "+string(obj.Op))
	if err != nil || l == nil {
		return types.EmptySequence, err
	}
	r, err := evalOptionalAtomic(env, obj.Right, contextSeq, contextItem, "right operand of "+string(obj.Op))
	if err != nil || r == nil {
		return types.EmptySequence, err
	}
	v, err := types.Arith(obj.Op, l, r)
	if err != nil {
		return nil, err
	}
	return types.Singleton(v), nil
}

// ExprUnary is a unary plus or minus.
type ExprUnary struct {
	interfaces.Textarea
	staticInfo

	Minus   bool
	Operand interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *ExprUnary) String() string {
	if obj.Minus {
		return fmt.Sprintf("-%s", obj.Operand)
	}
	return fmt.Sprintf("+%s", obj.Operand)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprUnary) Apply(fn func(interfaces.Expr) error) error {
	if err := obj.Operand.Apply(fn); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprUnary) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx, obj, obj.Operand); err != nil {
		return err
	}
	obj.typ = obj.Operand.ReturnsType()
	if !obj.typ.IsNumeric() {
		obj.typ = types.TypeNumeric
	}
	obj.card = types.ZeroOrOne
	if obj.Operand.Cardinality() == types.ExactlyOne {
		obj.card = types.ExactlyOne
	}
	obj.deps = obj.Operand.Dependencies()
	obj.analyzed = true
	return nil
}

// Eval applies the sign.
func (obj *ExprUnary) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	v, err := evalOptionalAtomic(env, obj.Operand, contextSeq, contextItem, "operand of unary operator")
	if err != nil || v == nil {
		return types.EmptySequence, err
	}
	if v.Type() == types.TypeUntypedAtomic {
		if v, err = types.Convert(v, types.TypeDouble, nil); err != nil {
			return nil, err
		}
	}
	if !v.Type().IsNumeric() {
		return nil, typeError("unary operator", v, types.TypeNumeric)
	}
	if !obj.Minus {
		return types.Singleton(v), nil
	}
	n, err := types.Negate(v)
	if err != nil {
		return nil, err
	}
	return types.Singleton(n), nil
}

// ExprAnd is the logical and of two operands.
type ExprAnd struct {
	interfaces.Textarea
	staticInfo

	Left  interfaces.Expr
	Right interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *ExprAnd) String() string {
	return fmt.Sprintf("(%s and %s)", obj.Left, obj.Right)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprAnd) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Left, obj.Right); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprAnd) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx, obj, obj.Left, obj.Right); err != nil {
		return err
	}
	obj.typ, obj.card = types.TypeBoolean, types.ExactlyOne
	obj.deps = depsOf(obj.Left, obj.Right)
	obj.analyzed = true
	return nil
}

// Eval returns the conjunction. The right operand is not evaluated when the
// left one is false.
func (obj *ExprAnd) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	l, err := evalBoolean(env, obj.Left, contextSeq, contextItem)
	if err != nil || !l {
		return boolSeq(false), err
	}
	r, err := evalBoolean(env, obj.Right, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	return boolSeq(r), nil
}

// ExprOr is the logical or of two operands.
type ExprOr struct {
	interfaces.Textarea
	staticInfo

	Left  interfaces.Expr
	Right interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *ExprOr) String() string {
	return fmt.Sprintf("(%s or %s)", obj.Left, obj.Right)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprOr) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Left, obj.Right); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprOr) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx, obj, obj.Left, obj.Right); err != nil {
		return err
	}
	obj.typ, obj.card = types.TypeBoolean, types.ExactlyOne
	obj.deps = depsOf(obj.Left, obj.Right)
	obj.analyzed = true
	return nil
}

// Eval returns the disjunction. The right operand is not evaluated when the
// left one is true.
func (obj *ExprOr) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	l, err := evalBoolean(env, obj.Left, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	if l {
		return boolSeq(true), nil
	}
	r, err := evalBoolean(env, obj.Right, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	return boolSeq(r), nil
}

// evalBoolean evaluates a node and returns its effective boolean value.
func evalBoolean(env *interfaces.Env, expr interfaces.Expr, contextSeq types.Sequence, contextItem types.Item) (bool, error) {
	seq, err := eval(env, expr, contextSeq, contextItem)
	if err != nil {
		return false, err
	}
	return types.EffectiveBooleanValue(seq)
}

// ExprIf is a representation of an if expression. Both branches are in tail
// position if the whole expression is.
type ExprIf struct {
	interfaces.Textarea
	staticInfo

	Condition  interfaces.Expr
	ThenBranch interfaces.Expr
	ElseBranch interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *ExprIf) String() string {
	return fmt.Sprintf("if (%s) then %s else %s", obj.Condition, obj.ThenBranch, obj.ElseBranch)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprIf) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Condition, obj.ThenBranch, obj.ElseBranch); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprIf) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx, obj, obj.Condition); err != nil {
		return err
	}
	if err := analyzeTail(ctx, obj, obj.ThenBranch, obj.ElseBranch); err != nil {
		return err
	}
	obj.typ = types.CommonSuperType(obj.ThenBranch.ReturnsType(), obj.ElseBranch.ReturnsType())
	obj.card = obj.ThenBranch.Cardinality().Union(obj.ElseBranch.Cardinality())
	obj.deps = depsOf(obj.Condition, obj.ThenBranch, obj.ElseBranch)
	obj.analyzed = true
	return nil
}

// Eval evaluates the chosen branch. Its result is passed through unchanged so
// that a tail call in a branch reaches the enclosing call frame.
func (obj *ExprIf) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	cond, err := evalBoolean(env, obj.Condition, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	if cond {
		return evalTail(env, obj.ThenBranch, contextSeq, contextItem)
	}
	return evalTail(env, obj.ElseBranch, contextSeq, contextItem)
}
