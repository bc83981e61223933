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

// ExprLet is a let clause: `let $x [as T] := E`. The return of a FLWOR made of
// let and where clauses only stays in tail position.
type ExprLet struct {
	clauseBase

	Var   string
	Value interfaces.Expr

	// Type is the optional declared type of the variable.
	Type types.SequenceType

	varType types.SequenceType
	checked bool
}

// String returns a short representation of this expression.
func (obj *ExprLet) String() string {
	s := fmt.Sprintf("let $%s", obj.Var)
	if obj.Type.Type != types.TypeUnknown {
		s += fmt.Sprintf(" as %s", obj.Type)
	}
	return s + fmt.Sprintf(" := %s", obj.Value) + obj.returnString(obj)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprLet) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Value, obj.ReturnExpr); err != nil {
		return err
	}
	return fn(obj)
}

// Variables returns the names of the variables bound by the clause.
func (obj *ExprLet) Variables() []string {
	return []string{obj.Var}
}

// Analyze performs the static analysis of this node.
func (obj *ExprLet) Analyze(ctx *interfaces.AnalyzeContext) error {
	if obj.Type.Type != types.TypeUnknown && !obj.checked {
		obj.Value = CheckSequenceType(obj.Value, obj.Type, fmt.Sprintf("let variable $%s", obj.Var))
		obj.checked = true
	}
	if err := analyzeAll(ctx, obj, obj.Value); err != nil {
		return err
	}
	obj.varType = types.SequenceType{Type: obj.Value.ReturnsType(), Cardinality: obj.Value.Cardinality()}
	if err := analyzeTail(ctx.Declare(obj.Var, obj.varType), obj, obj.ReturnExpr); err != nil {
		return err
	}
	obj.typ, obj.card = obj.ReturnExpr.ReturnsType(), obj.ReturnExpr.Cardinality()
	obj.deps = depsOf(obj.Value, obj.ReturnExpr)
	obj.analyzed = true
	return nil
}

// Eval binds the variable and runs the rest of the chain.
func (obj *ExprLet) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return evalClause(env, obj, func() (result types.Sequence, reterr error) {
		if err := env.Proceed(obj); err != nil {
			return nil, err
		}
		value, err := eval(env, obj.Value, contextSeq, contextItem)
		if err != nil {
			return nil, err
		}
		mark := env.Stack.Mark(false)
		defer func() { env.Stack.Pop(mark, result) }()
		env.Stack.Bind(obj.Var, value, obj.varType)
		return evalTail(env, obj.ReturnExpr, contextSeq, contextItem)
	})
}

// PostEval hands the result to the next clause.
func (obj *ExprLet) PostEval(env *interfaces.Env, seq types.Sequence) (types.Sequence, error) {
	return obj.postEval(obj, env, seq)
}
