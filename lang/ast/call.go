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

// resolveFunction looks a function up through the resolver of the static
// context.
func resolveFunction(static *interfaces.StaticContext, name string, arity int) (interfaces.Function, bool) {
	if static == nil || static.Resolver == nil {
		return nil, false
	}
	return static.Resolver.ResolveFunction(name, arity)
}

// ExprCall is a static function call. A call to a function which isn't
// declared yet is registered as a forward reference and patched once every
// declaration is known.
type ExprCall struct {
	interfaces.Textarea
	staticInfo

	Name string
	Args []interfaces.Expr

	fn interfaces.Function

	// tail is set on a call to the function whose body contains it, when
	// the call is in tail position.
	tail bool
}

// String returns a short representation of this expression.
func (obj *ExprCall) String() string {
	return fmt.Sprintf("%s(%s)", obj.Name, joinExprs(obj.Args, ", "))
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprCall) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Args...); err != nil {
		return err
	}
	return fn(obj)
}

// IsTailCall returns true if the analysis found a tail call of the function to
// itself.
func (obj *ExprCall) IsTailCall() bool { return obj.tail }

// Analyze performs the static analysis of this node.
func (obj *ExprCall) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx, obj, obj.Args...); err != nil {
		return err
	}
	obj.deps = depsOf(obj.Args...)
	obj.typ, obj.card = types.TypeItem, types.ZeroOrMore
	key := interfaces.FunctionKey(obj.Name, len(obj.Args))
	obj.tail = ctx.Has(interfaces.FlagTailPosition) && ctx.Function != nil && ctx.Function.Name != "" && ctx.Function.Key() == key
	obj.analyzed = true

	fn, exists := resolveFunction(ctx.Static, obj.Name, len(obj.Args))
	if !exists {
		if ctx.Static.Debug {
			ctx.Static.Logf("%s: forward reference", key)
		}
		ctx.Static.AddForwardReference(obj)
		return nil
	}
	obj.bind(fn)
	return nil
}

// bind attaches the resolved function.
func (obj *ExprCall) bind(fn interfaces.Function) {
	obj.fn = fn
	sig := fn.Signature()
	obj.typ, obj.card = sig.Return.Type, sig.Return.Cardinality
	if sig.Return.IsAny() || obj.typ == types.TypeUnknown {
		obj.typ, obj.card = types.TypeItem, types.ZeroOrMore
	}
	obj.deps |= fn.Dependencies()
}

// Resolve looks the function up again after the first analysis pass.
func (obj *ExprCall) Resolve(static *interfaces.StaticContext) error {
	fn, exists := resolveFunction(static, obj.Name, len(obj.Args))
	if !exists {
		line, col := obj.Pos()
		return errcode.Locate(interfaces.UnknownFunction(obj.Name, len(obj.Args)), line, col)
	}
	obj.bind(fn)
	return nil
}

// Eval calls the function. A tail call to a function which is already running
// returns a deferred call which the running function executes in its loop.
func (obj *ExprCall) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if obj.fn == nil {
		return nil, interfaces.ErrNotAnalyzed
	}
	sig := obj.fn.Signature()
	args, err := evalArgs(env, obj.Args, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	if args, err = convertArgs(env, sig, args); err != nil {
		return nil, obj.frame(err, sig)
	}

	if uf, ok := obj.fn.(*UserFunction); ok && obj.tail && env.InCall(sig) {
		return &DeferredCall{
			Function: uf,
			Args:     copyArgs(args),
			env:      env,
		}, nil
	}

	result, err := obj.fn.Call(env, args, contextItem)
	if err != nil {
		return nil, obj.frame(err, sig)
	}
	return result, nil
}

// frame adds the call site to an error which crosses the call.
func (obj *ExprCall) frame(err error, sig *interfaces.Signature) error {
	line, col := obj.Pos()
	return errcode.AddFrame(err, errcode.Frame{
		Signature: sig.Key(),
		Line:      line + 1,
		Column:    col + 1,
	})
}
