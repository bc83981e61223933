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

// castOperand evaluates and atomizes the operand of a cast. It returns nil if
// the operand is empty and that is allowed.
func castOperand(env *interfaces.Env, expr interfaces.Expr, contextSeq types.Sequence, contextItem types.Item, target types.Type, allowEmpty bool) (types.Atomic, error) {
	seq, err := evalAtomic(env, expr, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	switch {
	case seq.IsEmpty() && allowEmpty:
		return nil, nil
	case seq.IsEmpty():
		return nil, errcode.New(errcode.XPTY0004, errcode.KindEmptyNotAllowed, "cast to %s: empty sequence is not allowed", target)
	case seq.HasMany():
		return nil, errcode.New(errcode.XPTY0004, errcode.KindCardinality, "cast to %s: expected a single value, got %d items", target, seq.Len())
	}
	return seq.ItemAt(0).(types.Atomic), nil
}

// checkCastTarget rejects the types which can't be the target of a cast.
func checkCastTarget(target types.Type) error {
	if target.IsAbstract() || !target.IsAtomic() {
		return errcode.Static(errcode.XPST0080, "invalid target type for a cast: %s", target)
	}
	return nil
}

// ExprCast is the `cast as` operator. A QName target is resolved against the
// statically known namespaces.
type ExprCast struct {
	interfaces.Textarea
	staticInfo

	Operand interfaces.Expr
	Target  types.Type

	// AllowEmpty is set when the target is written with a question mark.
	AllowEmpty bool

	ns types.NamespaceResolver
}

// String returns a short representation of this expression.
func (obj *ExprCast) String() string {
	q := ""
	if obj.AllowEmpty {
		q = "?"
	}
	return fmt.Sprintf("(%s cast as %s%s)", obj.Operand, obj.Target, q)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprCast) Apply(fn func(interfaces.Expr) error) error {
	if err := obj.Operand.Apply(fn); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprCast) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := checkCastTarget(obj.Target); err != nil {
		return err
	}
	if err := analyzeAll(ctx, obj, obj.Operand); err != nil {
		return err
	}
	obj.ns = ctx.Static
	obj.typ, obj.card = obj.Target, types.ExactlyOne
	if obj.AllowEmpty {
		obj.card = types.ZeroOrOne
	}
	obj.deps = obj.Operand.Dependencies()
	obj.analyzed = true
	return nil
}

// Eval converts the operand.
func (obj *ExprCast) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	v, err := castOperand(env, obj.Operand, contextSeq, contextItem, obj.Target, obj.AllowEmpty)
	if err != nil || v == nil {
		return types.EmptySequence, err
	}
	result, err := types.Convert(v, obj.Target, obj.ns)
	if err != nil {
		return nil, err
	}
	return types.Singleton(result), nil
}

// ExprCastable is the `castable as` operator. It runs the same conversion as a
// cast, and a failed conversion gives false instead of an error. Errors from
// the evaluation of the operand still propagate.
type ExprCastable struct {
	interfaces.Textarea
	staticInfo

	Operand    interfaces.Expr
	Target     types.Type
	AllowEmpty bool

	ns types.NamespaceResolver
}

// String returns a short representation of this expression.
func (obj *ExprCastable) String() string {
	q := ""
	if obj.AllowEmpty {
		q = "?"
	}
	return fmt.Sprintf("(%s castable as %s%s)", obj.Operand, obj.Target, q)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprCastable) Apply(fn func(interfaces.Expr) error) error {
	if err := obj.Operand.Apply(fn); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprCastable) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := checkCastTarget(obj.Target); err != nil {
		return err
	}
	if err := analyzeAll(ctx, obj, obj.Operand); err != nil {
		return err
	}
	obj.ns = ctx.Static
	obj.typ, obj.card = types.TypeBoolean, types.ExactlyOne
	obj.deps = obj.Operand.Dependencies()
	obj.analyzed = true
	return nil
}

// Eval returns true if the cast would succeed.
func (obj *ExprCastable) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	seq, err := evalAtomic(env, obj.Operand, contextSeq, contextItem)
	if err != nil {
		return nil, err // includes termination
	}
	switch {
	case seq.IsEmpty():
		return boolSeq(obj.AllowEmpty), nil
	case seq.HasMany():
		return boolSeq(false), nil
	}
	_, err = types.Convert(seq.ItemAt(0).(types.Atomic), obj.Target, obj.ns)
	return boolSeq(err == nil), nil
}
