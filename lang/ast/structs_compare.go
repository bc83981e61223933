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

	"github.com/purpleidea/xqeval/lang/collation"
	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

// CompareOp is a comparison operator.
type CompareOp string

const (
	// OpEq is equality.
	OpEq CompareOp = "="
	// OpNe is inequality.
	OpNe CompareOp = "!="
	// OpLt is less than.
	OpLt CompareOp = "<"
	// OpLe is less than or equal.
	OpLe CompareOp = "<="
	// OpGt is greater than.
	OpGt CompareOp = ">"
	// OpGe is greater than or equal.
	OpGe CompareOp = ">="
)

// valueOps are the keywords of the value comparisons.
var valueOps = map[string]CompareOp{
	"eq": OpEq,
	"ne": OpNe,
	"lt": OpLt,
	"le": OpLe,
	"gt": OpGt,
	"ge": OpGe,
}

// ParseCompareOp parses a comparison operator as it is written in a query. It
// returns true for the general comparisons and false for the value ones.
func ParseCompareOp(s string) (CompareOp, bool, error) {
	if op, exists := valueOps[s]; exists {
		return op, false, nil
	}
	switch op := CompareOp(s); op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return op, true, nil
	}
	return "", false, errcode.Static(errcode.XPST0003, "unknown comparison operator: %s", s)
}

// keyword returns the value comparison keyword of the operator.
func (obj CompareOp) keyword() string {
	for k, op := range valueOps {
		if op == obj {
			return k
		}
	}
	return string(obj)
}

// test applies the operator to the result of a three way comparison.
func (obj CompareOp) test(c int) bool {
	switch obj {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}

// compareValues compares two atomic values with the operator. Comparisons
// involving NaN are false, except for inequality.
func compareValues(op CompareOp, a, b types.Atomic, coll types.Collator) (bool, error) {
	c, err := types.Compare(a, b, coll)
	if err == types.ErrUnordered {
		return op == OpNe, nil
	}
	if err != nil {
		return false, err
	}
	return op.test(c), nil
}

// ExprCompare is a value comparison (eq, lt, ...) or a general comparison (=,
// <, ...). General comparisons are existentially quantified over both
// operands.
type ExprCompare struct {
	interfaces.Textarea
	staticInfo

	Op      CompareOp
	General bool
	Left    interfaces.Expr
	Right   interfaces.Expr

	// Collation is the collation URI to compare strings with. The default
	// collation is used if it is empty.
	Collation string

	coll types.Collator
}

// String returns a short representation of this expression.
func (obj *ExprCompare) String() string {
	op := string(obj.Op)
	if !obj.General {
		op = obj.Op.keyword()
	}
	return fmt.Sprintf("(%s %s %s)", obj.Left, op, obj.Right)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprCompare) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Left, obj.Right); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprCompare) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx, obj, obj.Left, obj.Right); err != nil {
		return err
	}
	coll, err := lookupCollation(ctx, obj.Collation)
	if err != nil {
		return err
	}
	obj.coll = coll
	obj.typ = types.TypeBoolean
	obj.card = types.ExactlyOne
	if !obj.General {
		obj.card = types.ZeroOrOne
	}
	obj.deps = depsOf(obj.Left, obj.Right)
	obj.analyzed = true
	return nil
}

// lookupCollation resolves a collation URI during analysis. It returns nil if
// neither the node nor the static context names one, in which case the env
// decides at run time.
func lookupCollation(ctx *interfaces.AnalyzeContext, uri string) (types.Collator, error) {
	if uri == "" {
		uri = ctx.Static.DefaultCollation
	}
	if uri == "" {
		return nil, nil
	}
	return collation.Lookup(uri)
}

// collator returns the collator of the node or the default one of the env.
func collator(env *interfaces.Env, coll types.Collator) types.Collator {
	if coll != nil {
		return coll
	}
	if env.Collation != nil {
		return env.Collation
	}
	return collation.Default
}

// Eval performs the comparison.
func (obj *ExprCompare) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	coll := collator(env, obj.coll)
	if !obj.General {
		l, err := evalOptionalAtomic(env, obj.Left, contextSeq, contextItem, "left operand of "+obj.Op.keyword())
		if err != nil || l == nil {
			return types.EmptySequence, err
		}
		r, err := evalOptionalAtomic(env, obj.Right, contextSeq, contextItem, "right operand of "+obj.Op.keyword())
		if err != nil || r == nil {
			return types.EmptySequence, err
		}
		b, err := compareValues(obj.Op, untypedToString(l), untypedToString(r), coll)
		if err != nil {
			return nil, err
		}
		return boolSeq(b), nil
	}

	left, err := evalAtomic(env, obj.Left, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	right, err := evalAtomic(env, obj.Right, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	for _, li := range left.Items() {
		for _, ri := range right.Items() {
			a, b, err := generalOperands(li.(types.Atomic), ri.(types.Atomic))
			if err != nil {
				return nil, err
			}
			ok, err := compareValues(obj.Op, a, b, coll)
			if err != nil {
				return nil, err
			}
			if ok {
				return boolSeq(true), nil
			}
		}
	}
	return boolSeq(false), nil
}

// untypedToString turns an untyped value into a string, which is how value
// comparisons treat them.
func untypedToString(v types.Atomic) types.Atomic {
	if v.Type() == types.TypeUntypedAtomic {
		return types.NewString(v.StringValue())
	}
	return v
}

// generalOperands converts untyped operands of a general comparison: against
// a number they become a double, against another untyped or string value they
// stay strings, and otherwise they are cast to the type of the other operand.
func generalOperands(a, b types.Atomic) (types.Atomic, types.Atomic, error) {
	ua, ub := a.Type() == types.TypeUntypedAtomic, b.Type() == types.TypeUntypedAtomic
	if !ua && !ub {
		return a, b, nil
	}
	if ua && ub {
		return untypedToString(a), untypedToString(b), nil
	}
	if ub {
		b, a, err := generalOperands(b, a)
		return a, b, err
	}
	// a is untyped and b is not
	t := b.Type()
	switch {
	case t.IsNumeric():
		t = types.TypeDouble
	case t.IsStringLike():
		return untypedToString(a), b, nil
	}
	x, err := types.Convert(a, t, nil)
	if err != nil {
		return nil, nil, err
	}
	return x, b, nil
}
