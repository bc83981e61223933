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

// ExprFor is a for clause: `for $x [as T] [allowing empty] [at $i] in E`. It
// streams: each item of the input evaluates the rest of the chain at once.
type ExprFor struct {
	clauseBase

	Var    string
	PosVar string
	In     interfaces.Expr

	// Type is the optional declared type of the variable.
	Type types.SequenceType

	AllowingEmpty bool

	varType types.SequenceType
	checked bool
}

// String returns a short representation of this expression.
func (obj *ExprFor) String() string {
	s := fmt.Sprintf("for $%s", obj.Var)
	if obj.Type.Type != types.TypeUnknown {
		s += fmt.Sprintf(" as %s", obj.Type)
	}
	if obj.AllowingEmpty {
		s += " allowing empty"
	}
	if obj.PosVar != "" {
		s += fmt.Sprintf(" at $%s", obj.PosVar)
	}
	return s + fmt.Sprintf(" in %s", obj.In) + obj.returnString(obj)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprFor) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.In, obj.ReturnExpr); err != nil {
		return err
	}
	return fn(obj)
}

// Variables returns the names of the variables bound by the clause.
func (obj *ExprFor) Variables() []string {
	if obj.PosVar == "" {
		return []string{obj.Var}
	}
	return []string{obj.Var, obj.PosVar}
}

// Analyze performs the static analysis of this node.
func (obj *ExprFor) Analyze(ctx *interfaces.AnalyzeContext) error {
	if obj.Type.Type != types.TypeUnknown && !obj.checked {
		// every item is checked on its own
		st := types.SequenceType{Type: obj.Type.Type, Cardinality: types.ZeroOrMore}
		obj.In = CheckSequenceType(obj.In, st, fmt.Sprintf("for variable $%s", obj.Var))
		obj.checked = true
	}
	if err := analyzeAll(ctx, obj, obj.In); err != nil {
		return err
	}
	obj.varType = types.SequenceType{Type: obj.In.ReturnsType(), Cardinality: types.ExactlyOne}
	if obj.AllowingEmpty {
		obj.varType.Cardinality = types.ZeroOrOne
	}
	next := ctx.Declare(obj.Var, obj.varType)
	if obj.PosVar != "" {
		next = next.Declare(obj.PosVar, types.SequenceType{Type: types.TypeInteger, Cardinality: types.ExactlyOne})
	}
	if err := analyzeAll(next, obj, obj.ReturnExpr); err != nil {
		return err
	}
	obj.typ, obj.card = obj.ReturnExpr.ReturnsType(), obj.retCard()
	obj.deps = depsOf(obj.In, obj.ReturnExpr)
	obj.analyzed = true
	return nil
}

// Eval iterates over the input.
func (obj *ExprFor) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return evalClause(env, obj, func() (types.Sequence, error) {
		in, err := eval(env, obj.In, contextSeq, contextItem)
		if err != nil {
			return nil, err
		}
		if next, ok := obj.next(obj); ok {
			if in, err = next.PreEval(env, in); err != nil {
				return nil, err
			}
		}
		if in.IsEmpty() && obj.AllowingEmpty {
			return obj.iterate(env, types.EmptySequence, 0, contextSeq, contextItem)
		}

		result := types.NewSequence()
		for i, item := range in.Items() {
			if err := env.Proceed(obj); err != nil {
				return nil, err
			}
			r, err := obj.iterate(env, types.Singleton(item), i+1, contextSeq, contextItem)
			if err != nil {
				return nil, err
			}
			if err := env.ProceedOutput(obj, result.Len()+r.Len()); err != nil {
				return nil, err
			}
			result.AddAll(r)
		}
		return result, nil
	})
}

// iterate binds the variables for one item and runs the rest of the chain.
func (obj *ExprFor) iterate(env *interfaces.Env, value types.Sequence, pos int, contextSeq types.Sequence, contextItem types.Item) (result types.Sequence, reterr error) {
	mark := env.Stack.Mark(false)
	defer func() { env.Stack.Pop(mark, result) }()
	env.Stack.Bind(obj.Var, value, obj.varType)
	if obj.PosVar != "" {
		env.Stack.Bind(obj.PosVar, types.Singleton(types.NewInteger(int64(pos))), types.SequenceType{Type: types.TypeInteger, Cardinality: types.ExactlyOne})
	}
	return eval(env, obj.ReturnExpr, contextSeq, contextItem)
}

// PostEval hands the result to the next clause.
func (obj *ExprFor) PostEval(env *interfaces.Env, seq types.Sequence) (types.Sequence, error) {
	return obj.postEval(obj, env, seq)
}
