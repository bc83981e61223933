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

// Clause is one clause of a FLWOR expression. The clauses of a FLWOR form a
// chain: the return expression of each clause is the next clause, and the
// last clause returns the final return expression. Each tuple of the stream
// flows through the chain by evaluation, and clauses which need the whole
// stream (group by, order by) buffer in Eval and do their work in PostEval.
type Clause interface {
	interfaces.Expr

	// PreEval is called by a for clause with its whole input sequence,
	// before the first tuple is produced. It returns the sequence the for
	// clause should iterate over.
	PreEval(env *interfaces.Env, seq types.Sequence) (types.Sequence, error)

	// PostEval is called once the first clause has produced every tuple.
	// It gets the result so far and returns the final result.
	PostEval(env *interfaces.Env, seq types.Sequence) (types.Sequence, error)

	// Previous returns the clause before this one, or nil for the first
	// clause of a FLWOR.
	Previous() Clause

	// SetPrevious links the clause to the one before it.
	SetPrevious(Clause)

	// Return returns the next clause or the final return expression.
	Return() interfaces.Expr

	// Variables returns the names of the variables bound by the clause.
	Variables() []string
}

// NewFLWOR links the clauses into a chain that ends with the return
// expression, and returns the first clause. A FLWOR must start with a for or
// a let clause.
func NewFLWOR(clauses []Clause, ret interfaces.Expr) (Clause, error) {
	if len(clauses) == 0 {
		return nil, errcode.Static(errcode.XPST0003, "FLWOR without clauses")
	}
	switch clauses[0].(type) {
	case *ExprFor, *ExprLet:
	default:
		return nil, errcode.Static(errcode.XPST0003, "FLWOR must start with a for or a let clause, not %T", clauses[0])
	}
	if ret == nil {
		return nil, errcode.Static(errcode.XPST0003, "FLWOR without a return expression")
	}
	for i, c := range clauses {
		next := ret
		if i+1 < len(clauses) {
			next = clauses[i+1]
			clauses[i+1].SetPrevious(c)
		}
		if err := setReturn(c, next); err != nil {
			return nil, err
		}
	}
	return clauses[0], nil
}

// setReturn sets the return expression of a clause.
func setReturn(c Clause, ret interfaces.Expr) error {
	switch x := c.(type) {
	case *ExprFor:
		x.ReturnExpr = ret
	case *ExprLet:
		x.ReturnExpr = ret
	case *ExprWhere:
		x.ReturnExpr = ret
	case *ExprGroupBy:
		x.ReturnExpr = ret
	case *ExprOrderBy:
		x.ReturnExpr = ret
	default:
		return fmt.Errorf("unknown clause: %T", c)
	}
	return nil
}

// clauseBase is the part which all the clauses share.
type clauseBase struct {
	interfaces.Textarea
	staticInfo

	// ReturnExpr is the next clause or the final return expression.
	ReturnExpr interfaces.Expr

	previous Clause
}

// Previous returns the clause before this one.
func (obj *clauseBase) Previous() Clause { return obj.previous }

// SetPrevious links the clause to the one before it.
func (obj *clauseBase) SetPrevious(c Clause) { obj.previous = c }

// Return returns the next clause or the final return expression.
func (obj *clauseBase) Return() interfaces.Expr { return obj.ReturnExpr }

// PreEval passes the sequence through.
func (obj *clauseBase) PreEval(env *interfaces.Env, seq types.Sequence) (types.Sequence, error) {
	return seq, nil
}

// next returns the next clause of the same FLWOR, if there is one.
func (obj *clauseBase) next(self Clause) (Clause, bool) {
	c, ok := obj.ReturnExpr.(Clause)
	if !ok || c.Previous() != self {
		return nil, false // a nested FLWOR starts its own chain
	}
	return c, true
}

// postEval hands the result to the next clause of the chain.
func (obj *clauseBase) postEval(self Clause, env *interfaces.Env, seq types.Sequence) (types.Sequence, error) {
	if c, ok := obj.next(self); ok {
		return c.PostEval(env, seq)
	}
	return seq, nil
}

// returnString prints the rest of the chain.
func (obj *clauseBase) returnString(self Clause) string {
	if c, ok := obj.next(self); ok {
		return " " + c.String()
	}
	return fmt.Sprintf(" return %s", obj.ReturnExpr)
}

// retCard is the cardinality of a clause which runs its return expression
// any number of times.
func (obj *clauseBase) retCard() types.Cardinality {
	if obj.ReturnExpr.Cardinality() == types.Empty {
		return types.Empty
	}
	return types.ZeroOrMore
}

// evalClause runs the body of a clause. The first clause of a FLWOR opens the
// frame which holds the state of the group by and order by clauses, and runs
// the PostEval chain once its own iteration is done.
func evalClause(env *interfaces.Env, c Clause, body func() (types.Sequence, error)) (result types.Sequence, reterr error) {
	if c.Previous() != nil {
		return body()
	}
	mark := env.Stack.Mark(false)
	env.PushFrame(mark)
	defer func() {
		env.PopFrame()
		env.Stack.Pop(mark, result)
	}()
	seq, err := body()
	if err != nil {
		return nil, err
	}
	return c.PostEval(env, seq)
}

// streamVars returns the variables bound by the clauses before this one.
func streamVars(c Clause) []string {
	chain := []Clause{}
	for p := c.Previous(); p != nil; p = p.Previous() {
		chain = append([]Clause{p}, chain...)
	}
	result := []string{}
	for _, p := range chain {
		result = append(result, p.Variables()...)
	}
	return result
}

// frame returns the state of the running FLWOR.
func frame(env *interfaces.Env, c Clause) (*interfaces.FLWORFrame, error) {
	f, ok := env.Frame()
	if !ok {
		return nil, fmt.Errorf("%s: no FLWOR frame", c)
	}
	return f, nil
}

// varValue is a variable of a buffered tuple.
type varValue struct {
	name  string
	value types.Sequence
	typ   types.SequenceType
}

// snapshot copies the bindings of the current tuple.
func snapshot(env *interfaces.Env, f *interfaces.FLWORFrame) []*varValue {
	result := []*varValue{}
	for _, b := range env.Stack.Since(f.Mark) {
		result = append(result, &varValue{
			name:  b.Name,
			value: b.Value,
			typ:   b.Type,
		})
	}
	return result
}

// declareAll binds the variables of a buffered tuple again.
func declareAll(env *interfaces.Env, vars []*varValue) {
	for _, v := range vars {
		env.Stack.Bind(v.name, v.value, v.typ)
	}
}

// replay evaluates the return expression once per buffered tuple.
func replay(env *interfaces.Env, c Clause, ret interfaces.Expr, tuples [][]*varValue, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	result := types.NewSequence()
	for _, vars := range tuples {
		if err := env.Proceed(c); err != nil {
			return nil, err
		}
		mark := env.Stack.Mark(false)
		declareAll(env, vars)
		r, err := eval(env, ret, contextSeq, contextItem)
		env.Stack.Pop(mark, r)
		if err != nil {
			return nil, err
		}
		if err := env.ProceedOutput(c, result.Len()+r.Len()); err != nil {
			return nil, err
		}
		result.AddAll(r)
	}
	return result, nil
}
