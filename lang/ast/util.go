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
	"github.com/purpleidea/xqeval/lang/types"

	"github.com/sanity-io/litter"
)

// evalTail evaluates a child node with the profiler hooks around it, and the
// position of the child attached to any error. The result may be a deferred
// call, so this is only used by nodes which pass the result of the child
// through unchanged.
func evalTail(env *interfaces.Env, expr interfaces.Expr, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	profiling := env.Profiling()
	if profiling {
		env.Profiler.Start(expr, contextSeq)
	}
	result, err := expr.Eval(env, contextSeq, contextItem)
	if profiling {
		env.Profiler.End(expr, result)
	}
	if err != nil {
		line, col := expr.Pos()
		return nil, errcode.Locate(err, line, col)
	}
	if result == nil {
		result = types.EmptySequence
	}
	return result, nil
}

// eval evaluates a child node and forces any deferred call it returned.
func eval(env *interfaces.Env, expr interfaces.Expr, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	result, err := evalTail(env, expr, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	if _, ok := result.(types.Realizer); !ok {
		return result, nil
	}
	if env.Debug {
		env.Logger()("%s: forcing a deferred call", expr)
	}
	return types.Realize(result)
}

// evalAtomic evaluates a child node and atomizes the result.
func evalAtomic(env *interfaces.Env, expr interfaces.Expr, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	seq, err := eval(env, expr, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	return types.Atomize(seq)
}

// evalOptionalAtomic evaluates a child node which must produce at most one
// atomic value. It returns nil if the result is empty.
func evalOptionalAtomic(env *interfaces.Env, expr interfaces.Expr, contextSeq types.Sequence, contextItem types.Item, what string) (types.Atomic, error) {
	seq, err := evalAtomic(env, expr, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	if seq.IsEmpty() {
		return nil, nil
	}
	if seq.HasMany() {
		return nil, errcode.New(errcode.XPTY0004, errcode.KindCardinality, "%s must be a single value, got %d items", what, seq.Len())
	}
	return seq.ItemAt(0).(types.Atomic), nil
}

// boolSeq returns a singleton boolean sequence.
func boolSeq(b bool) types.Sequence {
	return types.Singleton(types.NewBool(b))
}

// applyAll runs Apply on each non-nil node.
func applyAll(fn func(interfaces.Expr) error, exprs ...interfaces.Expr) error {
	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		if err := expr.Apply(fn); err != nil {
			return err
		}
	}
	return nil
}

// analyzeAll runs Analyze on each non-nil node with a child context. The
// children are never in tail position.
func analyzeAll(ctx *interfaces.AnalyzeContext, parent interfaces.Expr, exprs ...interfaces.Expr) error {
	return analyzeTail(ctx.Without(interfaces.FlagTailPosition), parent, exprs...)
}

// analyzeTail is like analyzeAll, but the children stay in tail position if
// the parent is in tail position.
func analyzeTail(ctx *interfaces.AnalyzeContext, parent interfaces.Expr, exprs ...interfaces.Expr) error {
	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		if err := analyze(ctx.Child(parent), expr); err != nil {
			return err
		}
	}
	return nil
}

// analyze runs Analyze on a node and attaches its position to any error.
func analyze(ctx *interfaces.AnalyzeContext, expr interfaces.Expr) error {
	if err := expr.Analyze(ctx); err != nil {
		line, col := expr.Pos()
		return errcode.Locate(err, line, col)
	}
	return nil
}

// depsOf combines the dependencies of the nodes.
func depsOf(exprs ...interfaces.Expr) interfaces.Dependency {
	deps := interfaces.DepNone
	for _, expr := range exprs {
		if expr != nil {
			deps |= expr.Dependencies()
		}
	}
	return deps
}

// joinExprs prints a list of nodes.
func joinExprs(exprs []interfaces.Expr, sep string) string {
	s := []string{}
	for _, expr := range exprs {
		s = append(s, expr.String())
	}
	return strings.Join(s, sep)
}

// Dump returns a detailed representation of a tree which is used for
// debugging.
func Dump(expr interfaces.Expr) string {
	options := litter.Options{
		HidePrivateFields: true,
		HideZeroValues:    true,
		StripPackageNames: true,
		Compact:           false,
	}
	return options.Sdump(expr)
}

// Sprint returns the printed form of a node, or a placeholder if it is nil.
func Sprint(expr interfaces.Expr) string {
	if expr == nil {
		return "<nil>"
	}
	return expr.String()
}

// typeError builds the error for a value which doesn't have the required type.
func typeError(what string, item types.Item, required types.Type) error {
	return errcode.New(errcode.XPTY0004, errcode.KindSubtype, "%s: required type is %s, got %s (%s)", what, required, item.Type(), item)
}

// cardinalityError builds the error for a sequence which doesn't have the
// required cardinality. An empty sequence gets its own kind.
func cardinalityError(what string, required types.Cardinality, n int) error {
	if n == 0 {
		return errcode.New(errcode.XPTY0004, errcode.KindEmptyNotAllowed, "%s: empty sequence is not allowed, expected %s", what, required)
	}
	return errcode.New(errcode.XPTY0004, errcode.KindCardinality, "%s: expected %s, got %s", what, required, fmt.Sprintf("%d items", n))
}
