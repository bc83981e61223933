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
	"github.com/purpleidea/xqeval/lang/scope"
	"github.com/purpleidea/xqeval/lang/types"
)

// UserFunction is a function declared in the query, or the function built by
// an inline function expression. The definition is shared by every call and
// is never changed by one. Each call gets its own frame on the stack.
type UserFunction struct {
	interfaces.Textarea

	Sig  *interfaces.Signature
	Body interfaces.Expr

	// closure is set for inline functions. It holds the bindings which
	// were visible when the function value was built.
	closure scope.Closure

	analyzed bool
}

// String returns a short representation of the function.
func (obj *UserFunction) String() string {
	return fmt.Sprintf("declare function %s { %s }", obj.Sig, obj.Body)
}

// Signature returns the signature of the function.
func (obj *UserFunction) Signature() *interfaces.Signature { return obj.Sig }

// Dependencies returns DepNone since a function body has no focus.
func (obj *UserFunction) Dependencies() interfaces.Dependency { return interfaces.DepNone }

// Analyze performs the static analysis of the body.
func (obj *UserFunction) Analyze(ctx *interfaces.AnalyzeContext) error {
	if obj.analyzed {
		return nil
	}
	if obj.Body == nil {
		return errcode.Static(errcode.XPST0003, "function %s has no body", obj.Sig.Key())
	}
	seen := make(map[string]struct{})
	body := ctx.FunctionBody(obj.Sig, false)
	for _, p := range obj.Sig.Params {
		if _, exists := seen[p.Name]; exists {
			return errcode.Static(errcode.XQST0039, "duplicate parameter $%s in %s", p.Name, obj.Sig.Key())
		}
		seen[p.Name] = struct{}{}
		body = body.Declare(p.Name, p.Type)
	}
	if err := analyze(body, obj.Body); err != nil {
		return err
	}
	obj.analyzed = true
	return nil
}

// Call runs the function with converted arguments.
func (obj *UserFunction) Call(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return obj.invoke(env, args)
}

// invoke runs the body, and keeps running it for as long as it returns a tail
// call to this same function. The native stack doesn't grow with the number
// of tail calls. The result is checked against the declared return type.
func (obj *UserFunction) invoke(env *interfaces.Env, args []types.Sequence) (types.Sequence, error) {
	if err := env.FunctionStart(obj.Sig); err != nil {
		return nil, err
	}
	defer env.FunctionEnd()

	var result types.Sequence
	for {
		if err := env.Proceed(obj.Body); err != nil {
			return nil, err
		}
		seq, err := obj.run(env, args)
		if err != nil {
			return nil, err
		}
		d, ok := seq.(*DeferredCall)
		if !ok || d.Function.Sig != obj.Sig {
			result = seq
			break
		}
		args = d.Args // loop instead of recursing
	}

	result, err := types.Realize(result)
	if err != nil {
		return nil, err
	}
	return ConvertSequence(result, obj.Sig.Return, fmt.Sprintf("result of %s", obj.Sig.Key()), env.Static)
}

// run evaluates the body once in a new frame. Bindings of the caller are
// hidden and the focus is cleared.
func (obj *UserFunction) run(env *interfaces.Env, args []types.Sequence) (result types.Sequence, reterr error) {
	if len(args) != len(obj.Sig.Params) {
		return nil, errcode.New(errcode.XPTY0004, errcode.KindCardinality, "%s expects %d arguments, got %d", obj.Sig.Key(), len(obj.Sig.Params), len(args))
	}
	mark := env.Stack.Mark(true)
	defer func() { env.Stack.Pop(mark, result) }()
	env.Stack.Restore(obj.closure)
	for i, p := range obj.Sig.Params {
		env.Stack.Bind(p.Name, args[i], p.Type)
	}
	restore := env.ClearFocus()
	defer restore()
	return evalTail(env, obj.Body, nil, nil)
}

// convertArgs applies the function conversion rules to the arguments of a
// call: cardinality, atomization, untyped promotion and the type check.
func convertArgs(env *interfaces.Env, sig *interfaces.Signature, args []types.Sequence) ([]types.Sequence, error) {
	if !sig.Accepts(len(args)) {
		return nil, errcode.New(errcode.XPTY0004, errcode.KindCardinality, "%s can't be called with %d arguments", sig.Key(), len(args))
	}
	result := make([]types.Sequence, len(args))
	for i, arg := range args {
		p := sig.Param(i)
		what := fmt.Sprintf("argument %d ($%s) of %s", i+1, p.Name, sig.Key())
		seq, err := ConvertSequence(arg, p.Type, what, env.Static)
		if err != nil {
			return nil, err
		}
		result[i] = seq
	}
	return result, nil
}

// FunctionItem is a function value: the result of a named function reference
// or of an inline function expression.
type FunctionItem struct {
	Function interfaces.Function
}

// Type returns the type of a function item.
func (obj *FunctionItem) Type() types.Type { return types.TypeFunction }

// String returns a visual representation of the function item.
func (obj *FunctionItem) String() string {
	sig := obj.Function.Signature()
	if sig.Name == "" {
		return fmt.Sprintf("function#%d", sig.Arity())
	}
	return sig.Key()
}

// Name returns the function name, or the empty string if anonymous.
func (obj *FunctionItem) Name() string { return obj.Function.Signature().Name }

// Arity returns the number of parameters.
func (obj *FunctionItem) Arity() int { return obj.Function.Signature().Arity() }

// Signature returns the signature of the function.
func (obj *FunctionItem) Signature() *interfaces.Signature { return obj.Function.Signature() }

// Call converts the arguments and runs the function.
func (obj *FunctionItem) Call(env *interfaces.Env, args []types.Sequence) (types.Sequence, error) {
	args, err := convertArgs(env, obj.Function.Signature(), args)
	if err != nil {
		return nil, err
	}
	return obj.Function.Call(env, args, nil)
}

// ExprFuncRef is a named function reference, `name#arity`.
type ExprFuncRef struct {
	interfaces.Textarea
	staticInfo

	Name  string
	Arity int

	fn interfaces.Function
}

// String returns a short representation of this expression.
func (obj *ExprFuncRef) String() string {
	return interfaces.FunctionKey(obj.Name, obj.Arity)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprFuncRef) Apply(fn func(interfaces.Expr) error) error { return fn(obj) }

// Analyze performs the static analysis of this node.
func (obj *ExprFuncRef) Analyze(ctx *interfaces.AnalyzeContext) error {
	obj.typ, obj.card = types.TypeFunction, types.ExactlyOne
	obj.analyzed = true
	if fn, exists := resolveFunction(ctx.Static, obj.Name, obj.Arity); exists {
		obj.fn = fn
		return nil
	}
	ctx.Static.AddForwardReference(obj)
	return nil
}

// Resolve looks the function up again after the first analysis pass.
func (obj *ExprFuncRef) Resolve(static *interfaces.StaticContext) error {
	fn, exists := resolveFunction(static, obj.Name, obj.Arity)
	if !exists {
		line, col := obj.Pos()
		return errcode.Locate(interfaces.UnknownFunction(obj.Name, obj.Arity), line, col)
	}
	obj.fn = fn
	return nil
}

// Eval returns the function item.
func (obj *ExprFuncRef) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if obj.fn == nil {
		return nil, interfaces.ErrNotAnalyzed
	}
	return types.Singleton(&FunctionItem{Function: obj.fn}), nil
}

// ExprInlineFunc is an inline function expression. Each evaluation captures
// the visible bindings, so the function value still sees them after the scope
// which declared them is gone.
type ExprInlineFunc struct {
	interfaces.Textarea
	staticInfo

	Params []interfaces.Param
	Return types.SequenceType
	Body   interfaces.Expr

	sig *interfaces.Signature
}

// String returns a short representation of this expression.
func (obj *ExprInlineFunc) String() string {
	s := []string{}
	for _, p := range obj.Params {
		s = append(s, "$"+p.Name)
	}
	return fmt.Sprintf("function(%s) { %s }", strings.Join(s, ", "), obj.Body)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprInlineFunc) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Body); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprInlineFunc) Analyze(ctx *interfaces.AnalyzeContext) error {
	ret := obj.Return
	if ret.Type == types.TypeUnknown {
		ret = types.AnySequence
	}
	obj.sig = &interfaces.Signature{
		Params: obj.Params,
		Return: ret,
	}
	body := ctx.FunctionBody(obj.sig, true)
	for _, p := range obj.Params {
		body = body.Declare(p.Name, p.Type)
	}
	if err := analyze(body, obj.Body); err != nil {
		return err
	}
	obj.typ, obj.card = types.TypeFunction, types.ExactlyOne
	obj.deps = obj.Body.Dependencies() & (interfaces.DepLocalVars | interfaces.DepGlobalVars)
	obj.analyzed = true
	return nil
}

// Eval builds the function value with its closure.
func (obj *ExprInlineFunc) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	fn := &UserFunction{
		Textarea: obj.Textarea,
		Sig:      obj.sig,
		Body:     obj.Body,
		closure:  env.Stack.Capture(),
		analyzed: true,
	}
	return types.Singleton(&FunctionItem{Function: fn}), nil
}

// ExprDynamicCall calls the function item its callee evaluates to.
type ExprDynamicCall struct {
	interfaces.Textarea
	staticInfo

	Callee interfaces.Expr
	Args   []interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *ExprDynamicCall) String() string {
	return fmt.Sprintf("%s(%s)", obj.Callee, joinExprs(obj.Args, ", "))
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprDynamicCall) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Callee); err != nil {
		return err
	}
	if err := applyAll(fn, obj.Args...); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprDynamicCall) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx, obj, obj.Callee); err != nil {
		return err
	}
	if err := analyzeAll(ctx, obj, obj.Args...); err != nil {
		return err
	}
	obj.typ, obj.card = types.TypeItem, types.ZeroOrMore
	obj.deps = obj.Callee.Dependencies() | depsOf(obj.Args...)
	obj.analyzed = true
	return nil
}

// Eval calls the function item.
func (obj *ExprDynamicCall) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	callee, err := eval(env, obj.Callee, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	if callee.Len() != 1 {
		return nil, cardinalityError("dynamic function call", types.ExactlyOne, callee.Len())
	}
	fv, ok := callee.ItemAt(0).(interfaces.FuncValue)
	if !ok {
		return nil, typeError("dynamic function call", callee.ItemAt(0), types.TypeFunction)
	}
	if fv.Arity() != len(obj.Args) {
		return nil, errcode.New(errcode.XPTY0004, errcode.KindCardinality, "%s expects %d arguments, got %d", fv, fv.Arity(), len(obj.Args))
	}
	args, err := evalArgs(env, obj.Args, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	result, err := fv.Call(env, args)
	if err != nil {
		line, col := obj.Pos()
		return nil, errcode.AddFrame(err, errcode.Frame{
			Signature: fv.String(),
			Line:      line + 1,
			Column:    col + 1,
		})
	}
	return result, nil
}

// evalArgs evaluates the arguments of a call.
func evalArgs(env *interfaces.Env, exprs []interfaces.Expr, contextSeq types.Sequence, contextItem types.Item) ([]types.Sequence, error) {
	args := make([]types.Sequence, len(exprs))
	for i, expr := range exprs {
		seq, err := eval(env, expr, contextSeq, contextItem)
		if err != nil {
			return nil, err
		}
		args[i] = seq
	}
	return args, nil
}
