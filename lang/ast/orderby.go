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
	"sort"
	"strings"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

// OrderSpec is one key of an order by clause.
type OrderSpec struct {
	Expr          interfaces.Expr
	Descending    bool
	EmptyGreatest bool

	// Collation is the collation URI for string keys. The default
	// collation is used if it is empty.
	Collation string

	coll types.Collator
}

// String returns a short representation of the spec.
func (obj *OrderSpec) String() string {
	s := obj.Expr.String()
	if obj.Descending {
		s += " descending"
	}
	if obj.EmptyGreatest {
		s += " empty greatest"
	}
	if obj.Collation != "" {
		s += fmt.Sprintf(" collation %q", obj.Collation)
	}
	return s
}

// sortKey evaluates a key for the current tuple. Untyped values compare as
// strings, and a key can't have more than one item.
func sortKey(env *interfaces.Env, expr interfaces.Expr, contextSeq types.Sequence, contextItem types.Item, what string) (types.Atomic, error) {
	v, err := evalOptionalAtomic(env, expr, contextSeq, contextItem, what)
	if err != nil || v == nil {
		return nil, err
	}
	return untypedToString(v), nil
}

// compareSortKeys orders two keys. The empty key and NaN sort before every
// other value, in that order, or after every value, in the reverse order,
// when emptyGreatest is set.
func compareSortKeys(a, b types.Atomic, coll types.Collator, emptyGreatest bool) (int, error) {
	rank := func(v types.Atomic) int {
		switch {
		case v == nil:
			return 0
		case types.IsNaN(v):
			return 1
		}
		return 2
	}
	ra, rb := rank(a), rank(b)
	if ra != 2 || rb != 2 {
		c := ra - rb
		if emptyGreatest {
			c = -c
		}
		switch {
		case c < 0:
			return -1, nil
		case c > 0:
			return 1, nil
		}
		return 0, nil
	}
	return types.Compare(a, b, coll)
}

// orderTuple is a buffered tuple with its keys.
type orderTuple struct {
	vars []*varValue
	keys []types.Atomic
}

// orderState is the buffer of an order by clause within one FLWOR frame.
type orderState struct {
	tuples      []*orderTuple
	contextSeq  types.Sequence
	contextItem types.Item
}

// ExprOrderBy is an order by clause. It buffers the tuples with their keys,
// and PostEval sorts them and replays the rest of the chain in order.
type ExprOrderBy struct {
	clauseBase

	Specs []*OrderSpec

	// Stable is set for `stable order by`. Sorting is always stable here.
	Stable bool
}

// String returns a short representation of this expression.
func (obj *ExprOrderBy) String() string {
	s := []string{}
	for _, spec := range obj.Specs {
		s = append(s, spec.String())
	}
	return "order by " + strings.Join(s, ", ") + obj.returnString(obj)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprOrderBy) Apply(fn func(interfaces.Expr) error) error {
	for _, spec := range obj.Specs {
		if err := applyAll(fn, spec.Expr); err != nil {
			return err
		}
	}
	if err := applyAll(fn, obj.ReturnExpr); err != nil {
		return err
	}
	return fn(obj)
}

// Variables returns the names of the variables bound by the clause.
func (obj *ExprOrderBy) Variables() []string { return nil }

// Analyze performs the static analysis of this node.
func (obj *ExprOrderBy) Analyze(ctx *interfaces.AnalyzeContext) error {
	if obj.Previous() == nil {
		return errcode.Static(errcode.XPST0003, "order by must follow another clause")
	}
	if len(obj.Specs) == 0 {
		return errcode.Static(errcode.XPST0003, "order by without keys")
	}
	for _, spec := range obj.Specs {
		if err := analyzeAll(ctx, obj, spec.Expr); err != nil {
			return err
		}
		coll, err := lookupCollation(ctx, spec.Collation)
		if err != nil {
			return err
		}
		spec.coll = coll
		obj.deps |= spec.Expr.Dependencies()
	}
	if err := analyzeAll(ctx, obj, obj.ReturnExpr); err != nil {
		return err
	}
	obj.typ, obj.card = obj.ReturnExpr.ReturnsType(), obj.retCard()
	obj.deps |= obj.ReturnExpr.Dependencies()
	obj.analyzed = true
	return nil
}

// Eval buffers the current tuple.
func (obj *ExprOrderBy) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	f, err := frame(env, obj)
	if err != nil {
		return nil, err
	}
	state, ok := f.State[obj].(*orderState)
	if !ok {
		state = &orderState{
			tuples:      []*orderTuple{},
			contextSeq:  contextSeq,
			contextItem: contextItem,
		}
		f.State[obj] = state
	}
	if err := env.ProceedOutput(obj, len(state.tuples)+1); err != nil {
		return nil, err
	}

	t := &orderTuple{
		vars: snapshot(env, f),
		keys: make([]types.Atomic, len(obj.Specs)),
	}
	for i, spec := range obj.Specs {
		v, err := sortKey(env, spec.Expr, contextSeq, contextItem, "order by key")
		if err != nil {
			return nil, err
		}
		t.keys[i] = v
	}
	state.tuples = append(state.tuples, t)
	return types.EmptySequence, nil
}

// PostEval sorts the buffered tuples, replays them, and hands the result to
// the next clause.
func (obj *ExprOrderBy) PostEval(env *interfaces.Env, seq types.Sequence) (types.Sequence, error) {
	f, err := frame(env, obj)
	if err != nil {
		return nil, err
	}
	state, ok := f.State[obj].(*orderState)
	if !ok {
		return obj.postEval(obj, env, seq) // no tuples
	}
	delete(f.State, obj)

	colls := make([]types.Collator, len(obj.Specs))
	for i, spec := range obj.Specs {
		colls[i] = collator(env, spec.coll)
	}
	var sortErr error
	sort.SliceStable(state.tuples, func(i, j int) bool {
		a, b := state.tuples[i], state.tuples[j]
		for k, spec := range obj.Specs {
			c, err := compareSortKeys(a.keys[k], b.keys[k], colls[k], spec.EmptyGreatest)
			if err != nil {
				if sortErr == nil {
					sortErr = errcode.Wrap(err, errcode.XPTY0004, errcode.KindSubtype, "order by keys %s and %s are not comparable", a.keys[k], b.keys[k])
				}
				return false
			}
			if c == 0 {
				continue
			}
			if spec.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}

	tuples := make([][]*varValue, len(state.tuples))
	for i, t := range state.tuples {
		tuples[i] = t.vars
	}
	result, err := replay(env, obj, obj.ReturnExpr, tuples, state.contextSeq, state.contextItem)
	if err != nil {
		return nil, err
	}
	return obj.postEval(obj, env, result)
}
