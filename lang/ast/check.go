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

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

// CheckCardinality errors if the sequence doesn't have the required
// cardinality.
func CheckCardinality(seq types.Sequence, required types.Cardinality, what string) error {
	if required.Allows(seq.Len()) {
		return nil
	}
	return cardinalityError(what, required, seq.Len())
}

// promoteItem tries the promotion ladder on an item which isn't an instance
// of the required type: untyped values are cast, xs:anyURI becomes a string,
// numbers are widened and durations are refined.
func promoteItem(item types.Item, required types.Type, ns types.NamespaceResolver) (types.Item, bool, error) {
	if item.Type().SubTypeOf(required) {
		return item, true, nil
	}
	a, ok := item.(types.Atomic)
	if !ok || !required.IsAtomic() {
		return nil, false, nil
	}
	if a.Type() == types.TypeUntypedAtomic {
		target := required
		if target == types.TypeNumeric {
			target = types.TypeDouble
		}
		v, err := types.Convert(a, target, ns)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	if v, ok := types.Promote(a, required); ok {
		return v, true, nil
	}
	return nil, false, nil
}

// copyPrefix returns a new sequence holding the first n items of seq. The
// items are copied so that appending doesn't write into seq.
func copyPrefix(seq types.Sequence, n int) *types.ValueSequence {
	items := make([]types.Item, n, seq.Len())
	copy(items, seq.Items()[:n])
	return types.NewSequence(items...)
}

// CheckType checks that every item is an instance of the required type after
// the promotion ladder. It returns the promoted sequence.
func CheckType(seq types.Sequence, required types.Type, what string, ns types.NamespaceResolver) (types.Sequence, error) {
	if required == types.TypeItem || required == types.TypeUnknown || seq.IsEmpty() {
		return seq, nil
	}
	var result *types.ValueSequence // only built if something changed
	for i, item := range seq.Items() {
		v, ok, err := promoteItem(item, required, ns)
		if err != nil {
			return nil, errcode.Wrap(err, errcode.XPTY0004, errcode.KindSubtype, "%s: can't promote %s to %s", what, item, required)
		}
		if !ok {
			return nil, typeError(what, item, required)
		}
		if v != item && result == nil {
			result = copyPrefix(seq, i)
		}
		if result != nil {
			result.Add(v)
		}
	}
	if result == nil {
		return seq, nil
	}
	return result, nil
}

// CheckUntyped casts the untyped items of the sequence to the required atomic
// type. This refines the value space and fails with its own error kind.
func CheckUntyped(seq types.Sequence, required types.Type, what string, ns types.NamespaceResolver) (types.Sequence, error) {
	if !required.IsAtomic() || required == types.TypeUntypedAtomic || required == types.TypeAnyAtomic {
		return seq, nil
	}
	target := required
	if target == types.TypeNumeric {
		target = types.TypeDouble
	}
	var result *types.ValueSequence
	for i, item := range seq.Items() {
		a, ok := item.(types.Atomic)
		if !ok || a.Type() != types.TypeUntypedAtomic {
			if result != nil {
				result.Add(item)
			}
			continue
		}
		v, err := types.Convert(a, target, ns)
		if err != nil {
			return nil, errcode.Wrap(err, errcode.FORG0001, errcode.KindUntypedValue, "%s: untyped value %s is not a valid %s", what, a, target)
		}
		if result == nil {
			result = copyPrefix(seq, i)
		}
		result.Add(v)
	}
	if result == nil {
		return seq, nil
	}
	return result, nil
}

// ConvertSequence applies the whole conversion for a declared sequence type:
// the cardinality check, then atomization if the type is atomic, then the
// untyped value check, and finally the promotion aware type check. This is
// the same composition that CheckSequenceType builds out of nodes.
func ConvertSequence(seq types.Sequence, st types.SequenceType, what string, ns types.NamespaceResolver) (types.Sequence, error) {
	if st.IsAny() {
		return seq, nil
	}
	if err := CheckCardinality(seq, st.Cardinality, what); err != nil {
		return nil, err
	}
	var err error
	if st.Type.IsAtomic() {
		if seq, err = types.Atomize(seq); err != nil {
			return nil, err
		}
		if seq, err = CheckUntyped(seq, st.Type, what, ns); err != nil {
			return nil, err
		}
	}
	return CheckType(seq, st.Type, what, ns)
}

// CheckSequenceType wraps a node with the dynamic checks for a declared
// sequence type. It must be called before the wrapped node is analyzed, since
// the wrappers analyze their operand. The composition is: cardinality check,
// then atomization if the type is atomic, then the untyped value check and the
// type check.
func CheckSequenceType(expr interfaces.Expr, st types.SequenceType, what string) interfaces.Expr {
	if st.IsAny() {
		return expr
	}
	if st.Cardinality != types.ZeroOrMore {
		expr = &ExprDynamicCardinalityCheck{
			checkWrapper: checkWrapper{Expr: expr, What: what},
			Required:     st.Cardinality,
		}
	}
	if st.Type.IsAtomic() {
		expr = &ExprAtomize{
			checkWrapper: checkWrapper{Expr: expr, What: what},
		}
		expr = &ExprUntypedValueCheck{
			checkWrapper: checkWrapper{Expr: expr, What: what},
			Required:     st.Type,
		}
	}
	if st.Type != types.TypeItem {
		expr = &ExprDynamicTypeCheck{
			checkWrapper: checkWrapper{Expr: expr, What: what},
			Required:     st.Type,
		}
	}
	return expr
}

// checkWrapper is the common part of the check nodes.
type checkWrapper struct {
	interfaces.Textarea
	staticInfo

	Expr interfaces.Expr

	// What describes the checked value in error messages.
	What string
}

// Pos returns the position of the wrapped node, since the wrapper itself has
// no place in the source.
func (obj *checkWrapper) Pos() (int, int) {
	if obj.IsSet() {
		return obj.Textarea.Pos()
	}
	return obj.Expr.Pos()
}

// analyzeWrapped analyzes the operand and copies its static information.
func (obj *checkWrapper) analyzeWrapped(ctx *interfaces.AnalyzeContext, parent interfaces.Expr) error {
	if err := analyzeAll(ctx, parent, obj.Expr); err != nil {
		return err
	}
	obj.typ = obj.Expr.ReturnsType()
	obj.card = obj.Expr.Cardinality()
	obj.deps = obj.Expr.Dependencies()
	obj.analyzed = true
	return nil
}

// ExprDynamicCardinalityCheck checks the number of items of its operand.
type ExprDynamicCardinalityCheck struct {
	checkWrapper

	Required types.Cardinality
}

// String returns a short representation of this expression.
func (obj *ExprDynamicCardinalityCheck) String() string {
	return fmt.Sprintf("check-cardinality(%s, %s)", obj.Expr, obj.Required)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprDynamicCardinalityCheck) Apply(fn func(interfaces.Expr) error) error {
	if err := obj.Expr.Apply(fn); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprDynamicCardinalityCheck) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := obj.analyzeWrapped(ctx, obj); err != nil {
		return err
	}
	obj.card = obj.Required
	return nil
}

// Eval checks the result of the operand.
func (obj *ExprDynamicCardinalityCheck) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	seq, err := eval(env, obj.Expr, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	if err := CheckCardinality(seq, obj.Required, obj.What); err != nil {
		return nil, err
	}
	return seq, nil
}

// ExprDynamicTypeCheck checks the type of every item of its operand after the
// promotion ladder.
type ExprDynamicTypeCheck struct {
	checkWrapper

	Required types.Type

	ns types.NamespaceResolver
}

// String returns a short representation of this expression.
func (obj *ExprDynamicTypeCheck) String() string {
	return fmt.Sprintf("check-type(%s, %s)", obj.Expr, obj.Required)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprDynamicTypeCheck) Apply(fn func(interfaces.Expr) error) error {
	if err := obj.Expr.Apply(fn); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprDynamicTypeCheck) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := obj.analyzeWrapped(ctx, obj); err != nil {
		return err
	}
	obj.ns = ctx.Static
	obj.typ = obj.Required
	return nil
}

// Eval checks the result of the operand.
func (obj *ExprDynamicTypeCheck) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	seq, err := eval(env, obj.Expr, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	return CheckType(seq, obj.Required, obj.What, obj.ns)
}

// ExprUntypedValueCheck casts the untyped items of its operand to the required
// atomic type.
type ExprUntypedValueCheck struct {
	checkWrapper

	Required types.Type

	ns types.NamespaceResolver
}

// String returns a short representation of this expression.
func (obj *ExprUntypedValueCheck) String() string {
	return fmt.Sprintf("check-untyped(%s, %s)", obj.Expr, obj.Required)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprUntypedValueCheck) Apply(fn func(interfaces.Expr) error) error {
	if err := obj.Expr.Apply(fn); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprUntypedValueCheck) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := obj.analyzeWrapped(ctx, obj); err != nil {
		return err
	}
	obj.ns = ctx.Static
	return nil
}

// Eval converts the result of the operand.
func (obj *ExprUntypedValueCheck) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	seq, err := eval(env, obj.Expr, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	return CheckUntyped(seq, obj.Required, obj.What, obj.ns)
}

// ExprAtomize atomizes the result of its operand.
type ExprAtomize struct {
	checkWrapper
}

// String returns a short representation of this expression.
func (obj *ExprAtomize) String() string {
	return fmt.Sprintf("data(%s)", obj.Expr)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprAtomize) Apply(fn func(interfaces.Expr) error) error {
	if err := obj.Expr.Apply(fn); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprAtomize) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := obj.analyzeWrapped(ctx, obj); err != nil {
		return err
	}
	if obj.typ.IsNode() {
		obj.typ = types.TypeUntypedAtomic
	} else if !obj.typ.IsAtomic() {
		obj.typ = types.TypeAnyAtomic
	}
	return nil
}

// Eval atomizes the result of the operand.
func (obj *ExprAtomize) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return evalAtomic(env, obj.Expr, contextSeq, contextItem)
}
