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

package interfaces

import (
	"fmt"
	"strings"

	"github.com/purpleidea/xqeval/lang/types"
)

// Dependency is a bitmask which describes what the result of an expression
// depends on. Parents use it to pick an evaluation strategy, so it must be
// accurate and not merely informative.
type Dependency int

const (
	// DepNone means the expression is constant for a given evaluation.
	DepNone Dependency = 0

	// DepContextSet means the expression reads the whole context sequence.
	DepContextSet Dependency = 1 << iota

	// DepContextItem means the expression reads the context item.
	DepContextItem

	// DepContextPosition means the expression reads the context position
	// or size, such as a positional predicate.
	DepContextPosition

	// DepLocalVars means the expression reads local variables.
	DepLocalVars

	// DepGlobalVars means the expression reads global variables.
	DepGlobalVars

	// DepContextVars means the expression reads variables which are bound
	// per context item, such as the variables of an enclosing FLWOR.
	DepContextVars

	// DepContext is the usual dependency of a path step.
	DepContext = DepContextSet | DepContextItem
)

// Has returns true if all of the bits of dep are set.
func (obj Dependency) Has(dep Dependency) bool {
	return obj&dep == dep
}

// Any returns true if at least one of the bits of dep are set.
func (obj Dependency) Any(dep Dependency) bool {
	return obj&dep != 0
}

// String returns a visual representation of the bitmask.
func (obj Dependency) String() string {
	if obj == DepNone {
		return "NONE"
	}
	s := []string{}
	for _, x := range []struct {
		dep  Dependency
		name string
	}{
		{DepContextSet, "CONTEXT_SET"},
		{DepContextItem, "CONTEXT_ITEM"},
		{DepContextPosition, "CONTEXT_POSITION"},
		{DepLocalVars, "LOCAL_VARS"},
		{DepGlobalVars, "GLOBAL_VARS"},
		{DepContextVars, "CONTEXT_VARS"},
	} {
		if obj&x.dep != 0 {
			s = append(s, x.name)
		}
	}
	return strings.Join(s, " | ")
}

// Expr represents an expression node of a compiled query. Expr implementations
// must have their method receivers implemented as pointer receivers. The
// lifecycle is: Analyze runs exactly once, top-down, and then Eval may run any
// number of times. ResetState must be called between two runs if the node
// kept any per-evaluation state.
type Expr interface {
	fmt.Stringer

	// Apply is a general purpose iterator method that operates on any
	// node. It visits the children first and the node itself last.
	Apply(fn func(Expr) error) error

	// Analyze performs the static analysis of this node and of its
	// children. Static errors are returned from here, before any
	// evaluation has started.
	Analyze(*AnalyzeContext) error

	// Eval returns the result of this expression for the given context
	// sequence and context item. Either of them may be nil if there is no
	// focus.
	Eval(env *Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error)

	// ReturnsType returns the statically known item type of the result.
	ReturnsType() types.Type

	// Cardinality returns the statically known cardinality of the result.
	Cardinality() types.Cardinality

	// Dependencies returns what the result depends on.
	Dependencies() Dependency

	// ResetState clears any state which was cached during evaluation.
	// If postOptimization is true, the tree was rewritten and any analysis
	// derived cache must be discarded as well.
	ResetState(postOptimization bool)

	// Pos returns the zero-based starting line and column of this node in
	// the query source.
	Pos() (int, int)
}

// Walk runs fn on every node of the tree in post-order. It stops at the first
// error.
func Walk(expr Expr, fn func(Expr) error) error {
	if expr == nil {
		return nil
	}
	return expr.Apply(fn)
}

// Inspect runs fn on every node of the tree and returns true if fn returned
// true for any of them.
func Inspect(expr Expr, fn func(Expr) bool) bool {
	found := false
	Walk(expr, func(e Expr) error {
		if !found && fn(e) {
			found = true
		}
		return nil
	})
	return found
}

// ResetTree resets the state of every node of the tree.
func ResetTree(expr Expr, postOptimization bool) {
	Walk(expr, func(e Expr) error {
		e.ResetState(postOptimization)
		return nil
	})
}
