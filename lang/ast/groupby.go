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

	"github.com/cespare/xxhash/v2"
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/google/btree"
)

// GroupSpec is one grouping variable of a group by clause.
type GroupSpec struct {
	Var string

	// Expr is the optional binding expression. Without it, the variable
	// must be bound by a previous clause of the same FLWOR.
	Expr interfaces.Expr

	// Collation is the collation URI for string keys. The default
	// collation is used if it is empty.
	Collation string

	coll types.Collator
	key  interfaces.Expr
}

// String returns a short representation of the spec.
func (obj *GroupSpec) String() string {
	s := "$" + obj.Var
	if obj.Expr != nil {
		s += fmt.Sprintf(" := %s", obj.Expr)
	}
	if obj.Collation != "" {
		s += fmt.Sprintf(" collation %q", obj.Collation)
	}
	return s
}

// groupTuple is a buffered tuple with its grouping keys.
type groupTuple struct {
	vars []*varValue
	keys []types.Atomic
}

// group is a set of tuples with equal keys.
type group struct {
	keys   []types.Atomic
	tuples []*groupTuple
	index  int // order of creation

	next *group // next group in the same hash bucket
}

// groupState is the buffer of a group by clause within one FLWOR frame.
type groupState struct {
	tuples      []*groupTuple
	contextSeq  types.Sequence
	contextItem types.Item
}

// ExprGroupBy is a group by clause. It buffers the tuples with their keys,
// and PostEval merges the tuples with equal keys and runs the rest of the
// chain once per group. In each group the grouping variables hold the key and
// the other variables hold the concatenation of the values of every member
// tuple, in the original order.
type ExprGroupBy struct {
	clauseBase

	Specs []*GroupSpec

	streamVars []string
}

// String returns a short representation of this expression.
func (obj *ExprGroupBy) String() string {
	s := []string{}
	for _, spec := range obj.Specs {
		s = append(s, spec.String())
	}
	return "group by " + strings.Join(s, ", ") + obj.returnString(obj)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprGroupBy) Apply(fn func(interfaces.Expr) error) error {
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

// Variables returns the names of the grouping variables.
func (obj *ExprGroupBy) Variables() []string {
	result := []string{}
	for _, spec := range obj.Specs {
		result = append(result, spec.Var)
	}
	return result
}

// Analyze performs the static analysis of this node.
func (obj *ExprGroupBy) Analyze(ctx *interfaces.AnalyzeContext) error {
	if obj.Previous() == nil {
		return errcode.Static(errcode.XPST0003, "group by must follow another clause")
	}
	if len(obj.Specs) == 0 {
		return errcode.Static(errcode.XPST0003, "group by without grouping variables")
	}
	obj.streamVars = streamVars(obj)
	bound := make(map[string]struct{})
	for _, name := range obj.streamVars {
		bound[name] = struct{}{}
	}

	keyCtx := ctx.With(interfaces.FlagInGroupBy)
	next := ctx
	for _, spec := range obj.Specs {
		spec.key = spec.Expr
		if spec.Expr == nil {
			if _, exists := bound[spec.Var]; !exists {
				return errcode.Static(errcode.XQST0094, "grouping variable $%s is not bound by a previous clause", spec.Var)
			}
			spec.key = &ExprVar{Name: spec.Var}
		}
		if err := analyzeAll(keyCtx, obj, spec.key); err != nil {
			return err
		}
		coll, err := lookupCollation(ctx, spec.Collation)
		if err != nil {
			return err
		}
		spec.coll = coll
		obj.deps |= spec.key.Dependencies()
	}

	// the other variables now hold the values of a whole group
	grouping := obj.groupingVars()
	for _, name := range obj.streamVars {
		if _, exists := grouping[name]; !exists {
			next = next.Declare(name, types.AnySequence)
		}
	}
	for _, spec := range obj.Specs {
		next = next.Declare(spec.Var, types.SequenceType{Type: types.TypeAnyAtomic, Cardinality: types.ZeroOrOne})
	}
	if err := analyzeAll(next, obj, obj.ReturnExpr); err != nil {
		return err
	}
	obj.typ, obj.card = obj.ReturnExpr.ReturnsType(), obj.retCard()
	obj.deps |= obj.ReturnExpr.Dependencies()
	obj.analyzed = true
	return nil
}

// groupingVars returns the set of the grouping variable names.
func (obj *ExprGroupBy) groupingVars() map[string]struct{} {
	result := make(map[string]struct{})
	for _, spec := range obj.Specs {
		result[spec.Var] = struct{}{}
	}
	return result
}

// Eval buffers the current tuple with its keys.
func (obj *ExprGroupBy) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	f, err := frame(env, obj)
	if err != nil {
		return nil, err
	}
	state, ok := f.State[obj].(*groupState)
	if !ok {
		state = &groupState{
			tuples:      []*groupTuple{},
			contextSeq:  contextSeq,
			contextItem: contextItem,
		}
		f.State[obj] = state
	}
	if err := env.ProceedOutput(obj, len(state.tuples)+1); err != nil {
		return nil, err
	}

	t := &groupTuple{
		vars: snapshot(env, f),
		keys: make([]types.Atomic, len(obj.Specs)),
	}
	for i, spec := range obj.Specs {
		v, err := sortKey(env, spec.key, contextSeq, contextItem, fmt.Sprintf("grouping key $%s", spec.Var))
		if err != nil {
			return nil, err
		}
		t.keys[i] = v
	}
	state.tuples = append(state.tuples, t)
	return types.EmptySequence, nil
}

// PostEval builds the groups, runs the rest of the chain once per group, and
// hands the result to the next clause.
func (obj *ExprGroupBy) PostEval(env *interfaces.Env, seq types.Sequence) (types.Sequence, error) {
	f, err := frame(env, obj)
	if err != nil {
		return nil, err
	}
	state, ok := f.State[obj].(*groupState)
	if !ok {
		return obj.postEval(obj, env, seq) // no tuples
	}
	delete(f.State, obj)

	colls := make([]types.Collator, len(obj.Specs))
	hashed := true
	for i, spec := range obj.Specs {
		colls[i] = collator(env, spec.coll)
		if !colls[i].IsCodepoint() {
			hashed = false
		}
	}
	var groups []*group
	if hashed {
		groups = hashGroups(state.tuples)
	} else {
		groups = orderedGroups(state.tuples, colls)
	}
	if env.Debug {
		env.Logger()("%s: %d tuples in %d groups (hashed: %t)", obj, len(state.tuples), len(groups), hashed)
	}

	tuples := make([][]*varValue, len(groups))
	for i, g := range groups {
		tuples[i] = obj.groupVars(g)
	}
	result, err := replay(env, obj, obj.ReturnExpr, tuples, state.contextSeq, state.contextItem)
	if err != nil {
		return nil, err
	}
	return obj.postEval(obj, env, result)
}

// groupVars returns the bindings of a group: the other variables hold the
// concatenation of the member values and the grouping variables hold the key.
func (obj *ExprGroupBy) groupVars(g *group) []*varValue {
	grouping := obj.groupingVars()
	names := []string{}
	values := make(map[string]*types.ValueSequence)
	for _, t := range g.tuples {
		last := make(map[string]*varValue) // the innermost binding wins
		for _, v := range t.vars {
			last[v.name] = v
		}
		for _, v := range t.vars {
			if _, exists := grouping[v.name]; exists || last[v.name] != v {
				continue
			}
			seq, exists := values[v.name]
			if !exists {
				seq = types.NewSequence()
				values[v.name] = seq
				names = append(names, v.name)
			}
			seq.AddAll(v.value)
		}
	}

	result := []*varValue{}
	for _, name := range names {
		result = append(result, &varValue{
			name:  name,
			value: values[name],
			typ:   types.AnySequence,
		})
	}
	for i, spec := range obj.Specs {
		var value types.Sequence = types.EmptySequence
		if g.keys[i] != nil {
			value = types.Singleton(g.keys[i])
		}
		result = append(result, &varValue{
			name:  spec.Var,
			value: value,
			typ:   types.SequenceType{Type: types.TypeAnyAtomic, Cardinality: types.ZeroOrOne},
		})
	}
	return result
}

// keysEqual compares two keys with deep equal semantics.
func keysEqual(a, b []types.Atomic, colls []types.Collator) bool {
	for i := range a {
		if a[i] == nil || b[i] == nil {
			if a[i] != b[i] {
				return false
			}
			continue
		}
		var coll types.Collator
		if colls != nil {
			coll = colls[i]
		}
		if !types.ValueEqual(a[i], b[i], coll) {
			return false
		}
	}
	return true
}

// canonicalKey returns a string which is equal for equal codepoint keys.
func canonicalKey(keys []types.Atomic) string {
	s := &strings.Builder{}
	for _, k := range keys {
		if k == nil {
			s.WriteString("\x00()")
		} else {
			s.WriteString(types.HashKey(k))
		}
		s.WriteByte('\x1f')
	}
	return s.String()
}

// hashGroups groups tuples by the hash of their canonical key. Buckets are
// kept in a linked hash map, so that the groups come out in the order of
// their first tuple.
func hashGroups(tuples []*groupTuple) []*group {
	buckets := linkedhashmap.New()
	count := 0
	collisions := false
	for _, t := range tuples {
		h := xxhash.Sum64String(canonicalKey(t.keys))
		var head *group
		if v, exists := buckets.Get(h); exists {
			head = v.(*group)
		}
		var g *group
		for x := head; x != nil; x = x.next {
			if keysEqual(x.keys, t.keys, nil) {
				g = x
				break
			}
		}
		if g == nil {
			g = &group{keys: t.keys, index: count}
			count++
			if head == nil {
				buckets.Put(h, g)
			} else {
				collisions = true
				for x := head; ; x = x.next {
					if x.next == nil {
						x.next = g
						break
					}
				}
			}
		}
		g.tuples = append(g.tuples, t)
	}

	result := make([]*group, 0, count)
	it := buckets.Iterator()
	for it.Next() {
		for x := it.Value().(*group); x != nil; x = x.next {
			result = append(result, x)
		}
	}
	if collisions {
		sort.Slice(result, func(i, j int) bool { return result[i].index < result[j].index })
	}
	return result
}

// orderedGroups groups tuples in a B-tree ordered by the collations of the
// keys. The groups come out in key order.
func orderedGroups(tuples []*groupTuple, colls []types.Collator) []*group {
	tree := btree.NewG[*group](16, func(a, b *group) bool {
		return compareGroupKeys(a.keys, b.keys, colls) < 0
	})
	for _, t := range tuples {
		fresh := &group{keys: t.keys}
		g, exists := tree.Get(fresh)
		if !exists {
			g = fresh
			tree.ReplaceOrInsert(g)
		}
		g.tuples = append(g.tuples, t)
	}
	result := make([]*group, 0, tree.Len())
	tree.Ascend(func(g *group) bool {
		result = append(result, g)
		return true
	})
	return result
}

// compareGroupKeys is a total order on keys. Keys of types which can't be
// compared with each other are ordered by type name.
func compareGroupKeys(a, b []types.Atomic, colls []types.Collator) int {
	for i := range a {
		c, err := compareSortKeys(a[i], b[i], colls[i], false)
		if err != nil {
			c = strings.Compare(a[i].Type().String(), b[i].Type().String())
			if c == 0 {
				c = strings.Compare(types.HashKey(a[i]), types.HashKey(b[i]))
			}
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
