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

	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

// ExprWhere is a where clause. It drops the tuples for which the condition is
// false.
type ExprWhere struct {
	clauseBase

	Condition interfaces.Expr

	// filter is set when the condition only reads the variable of the for
	// clause right before. That clause then hands its whole input to
	// PreEval, which filters it at once, and the per tuple test is
	// skipped.
	filter bool
}

// String returns a short representation of this expression.
func (obj *ExprWhere) String() string {
	return fmt.Sprintf("where %s", obj.Condition) + obj.returnString(obj)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprWhere) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Condition, obj.ReturnExpr); err != nil {
		return err
	}
	return fn(obj)
}

// Variables returns the names of the variables bound by the clause.
func (obj *ExprWhere) Variables() []string { return nil }

// Analyze performs the static analysis of this node.
func (obj *ExprWhere) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx.With(interfaces.FlagInWhereClause), obj, obj.Condition); err != nil {
		return err
	}
	if err := analyzeTail(ctx, obj, obj.ReturnExpr); err != nil {
		return err
	}
	obj.filter = obj.canFilter()
	obj.typ = obj.ReturnExpr.ReturnsType()
	obj.card = obj.ReturnExpr.Cardinality().Union(types.Empty)
	obj.deps = depsOf(obj.Condition, obj.ReturnExpr)
	obj.analyzed = true
	return nil
}

// canFilter decides if the condition can be applied to the whole input of the
// previous for clause.
func (obj *ExprWhere) canFilter() bool {
	f, ok := obj.Previous().(*ExprFor)
	if !ok || f.PosVar != "" || f.AllowingEmpty {
		return false
	}
	deps := obj.Condition.Dependencies()
	if deps.Any(interfaces.DepContext | interfaces.DepContextPosition | interfaces.DepContextVars) {
		return false
	}
	other := interfaces.Inspect(obj.Condition, func(expr interfaces.Expr) bool {
		v, ok := expr.(*ExprVar)
		return ok && v.IsLocal() && v.Name != f.Var
	})
	return !other
}

// PreEval filters the whole input of the previous for clause.
func (obj *ExprWhere) PreEval(env *interfaces.Env, seq types.Sequence) (types.Sequence, error) {
	if !obj.filter {
		return seq, nil
	}
	f := obj.Previous().(*ExprFor)
	keep := []types.Item{}
	for _, item := range seq.Items() {
		if err := env.Proceed(obj); err != nil {
			return nil, err
		}
		ok, err := obj.test(env, f, item)
		if err != nil {
			return nil, err
		}
		if ok {
			keep = append(keep, item)
		}
	}
	if env.Profiling() {
		env.Profiler.Message(obj, "OPTIMIZATION", "where filter", fmt.Sprintf("kept %d of %d items of $%s", len(keep), seq.Len(), f.Var))
	}
	if len(keep) == seq.Len() {
		return seq, nil
	}
	return types.NewSequence(keep...), nil
}

// test evaluates the condition for one item of the input.
func (obj *ExprWhere) test(env *interfaces.Env, f *ExprFor, item types.Item) (bool, error) {
	mark := env.Stack.Mark(false)
	defer env.Stack.Pop(mark, nil)
	env.Stack.Bind(f.Var, types.Singleton(item), f.varType)
	seq, err := eval(env, obj.Condition, nil, nil)
	if err != nil {
		return false, err
	}
	return types.EffectiveBooleanValue(seq)
}

// Eval runs the rest of the chain if the condition holds.
func (obj *ExprWhere) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if !obj.filter {
		seq, err := eval(env, obj.Condition, contextSeq, contextItem)
		if err != nil {
			return nil, err
		}
		ok, err := types.EffectiveBooleanValue(seq)
		if err != nil {
			return nil, err
		}
		if !ok {
			return types.EmptySequence, nil
		}
	}
	return evalTail(env, obj.ReturnExpr, contextSeq, contextItem)
}

// PostEval hands the result to the next clause.
func (obj *ExprWhere) PostEval(env *interfaces.Env, seq types.Sequence) (types.Sequence, error) {
	return obj.postEval(obj, env, seq)
}
