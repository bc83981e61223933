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

// Package coremath contains the numeric and aggregate functions.
package coremath

import (
	"math"

	"github.com/purpleidea/xqeval/lang/collation"
	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/funcs"
	"github.com/purpleidea/xqeval/lang/funcs/simple"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"

	"github.com/cockroachdb/apd/v3"
)

func init() {
	simple.ModuleRegister(funcs.FnModule, "sum", &simple.Func{
		Sig: simple.NewSig("($arg as xs:anyAtomicType*) as xs:anyAtomicType"),
		V:   Sum,
	})
	simple.ModuleRegister(funcs.FnModule, "sum", &simple.Func{
		Sig: simple.NewSig("($arg as xs:anyAtomicType*, $zero as xs:anyAtomicType?) as xs:anyAtomicType?"),
		V:   Sum,
	})
	simple.ModuleRegister(funcs.FnModule, "avg", &simple.Func{
		Sig: simple.NewSig("($arg as xs:anyAtomicType*) as xs:anyAtomicType?"),
		V:   Avg,
	})
	simple.ModuleRegister(funcs.FnModule, "min", &simple.Func{
		Sig: simple.NewSig("($arg as xs:anyAtomicType*) as xs:anyAtomicType?"),
		V:   Min,
	})
	simple.ModuleRegister(funcs.FnModule, "max", &simple.Func{
		Sig: simple.NewSig("($arg as xs:anyAtomicType*) as xs:anyAtomicType?"),
		V:   Max,
	})
	simple.ModuleRegister(funcs.FnModule, "abs", &simple.Func{
		Sig: simple.NewSig("($arg as xs:numeric?) as xs:numeric?"),
		V:   Abs,
	})
	simple.ModuleRegister(funcs.FnModule, "number", &simple.Func{
		Sig:  simple.NewSig("() as xs:double"),
		Deps: interfaces.DepContextItem,
		V:    Number,
	})
	simple.ModuleRegister(funcs.FnModule, "number", &simple.Func{
		Sig: simple.NewSig("($arg as xs:anyAtomicType?) as xs:double"),
		V:   Number,
	})
}

// untypedToDouble casts the untyped values to xs:double, as the aggregates
// require.
func untypedToDouble(seq types.Sequence) ([]types.Atomic, error) {
	result := make([]types.Atomic, 0, seq.Len())
	for _, item := range seq.Items() {
		v := item.(types.Atomic)
		if v.Type() == types.TypeUntypedAtomic {
			d, err := types.Convert(v, types.TypeDouble, nil)
			if err != nil {
				return nil, err
			}
			v = d
		}
		result = append(result, v)
	}
	return result, nil
}

// summable returns true for the values fn:sum and fn:avg accept.
func summable(t types.Type) bool {
	return t.IsNumeric() || t == types.TypeDayTimeDuration || t == types.TypeYearMonthDuration
}

// total adds the values. They must all be numeric or all be durations of the
// same kind.
func total(values []types.Atomic) (types.Atomic, error) {
	acc := values[0]
	if !summable(acc.Type()) {
		return nil, errcode.New(errcode.FORG0006, errcode.KindSubtype, "cannot sum values of type %s", acc.Type())
	}
	for _, v := range values[1:] {
		if !summable(v.Type()) {
			return nil, errcode.New(errcode.FORG0006, errcode.KindSubtype, "cannot sum values of type %s", v.Type())
		}
		next, err := types.Arith(types.OpAdd, acc, v)
		if err != nil {
			return nil, errcode.Wrap(err, errcode.FORG0006, errcode.KindSubtype, "cannot sum %s and %s", acc.Type(), v.Type())
		}
		acc = next
	}
	return acc, nil
}

// Sum returns the sum of the values. The sum of nothing is the integer zero,
// or the second argument if there is one.
func Sum(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if args[0].IsEmpty() {
		if len(args) > 1 {
			return args[1], nil
		}
		return types.Singleton(types.NewInteger(0)), nil
	}
	values, err := untypedToDouble(args[0])
	if err != nil {
		return nil, err
	}
	v, err := total(values)
	if err != nil {
		return nil, err
	}
	return types.Singleton(v), nil
}

// Avg returns the average of the values, or nothing for no values.
func Avg(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if args[0].IsEmpty() {
		return types.EmptySequence, nil
	}
	values, err := untypedToDouble(args[0])
	if err != nil {
		return nil, err
	}
	sum, err := total(values)
	if err != nil {
		return nil, err
	}
	var count types.Atomic = types.NewInteger(int64(len(values)))
	if !sum.Type().IsNumeric() {
		count = types.NewDouble(float64(len(values))) // durations divide by a double
	}
	v, err := types.Arith(types.OpDiv, sum, count)
	if err != nil {
		return nil, err
	}
	return types.Singleton(v), nil
}

// extreme returns the smallest value if sign is -1, and the largest if it is
// 1. A NaN wins over everything.
func extreme(env *interfaces.Env, seq types.Sequence, sign int) (types.Sequence, error) {
	if seq.IsEmpty() {
		return types.EmptySequence, nil
	}
	values, err := untypedToDouble(seq)
	if err != nil {
		return nil, err
	}
	coll := env.Collation
	if coll == nil {
		coll = collation.Default
	}
	best := values[0]
	for _, v := range values[1:] {
		if types.IsNaN(best) {
			break
		}
		if types.IsNaN(v) {
			best = v
			continue
		}
		c, err := types.Compare(v, best, coll)
		if err != nil {
			return nil, errcode.Wrap(err, errcode.FORG0006, errcode.KindSubtype, "cannot compare %s with %s", v.Type(), best.Type())
		}
		if c == sign {
			best = v
		}
	}
	return types.Singleton(best), nil
}

// Min returns the smallest value.
func Min(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return extreme(env, args[0], -1)
}

// Max returns the largest value.
func Max(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return extreme(env, args[0], 1)
}

// Abs returns the absolute value, keeping the numeric type.
func Abs(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if args[0].IsEmpty() {
		return types.EmptySequence, nil
	}
	switch x := args[0].ItemAt(0).(type) {
	case *types.IntValue:
		if x.V >= 0 {
			return args[0], nil
		}
		if x.V == math.MinInt64 {
			return nil, errcode.New(errcode.FOAR0002, errcode.KindArithmetic, "numeric operation overflow")
		}
		return types.Singleton(&types.IntValue{V: -x.V, T: x.T}), nil
	case *types.DecimalValue:
		d := &apd.Decimal{}
		d.Abs(x.V)
		return types.Singleton(&types.DecimalValue{V: d}), nil
	case *types.FloatValue:
		return types.Singleton(&types.FloatValue{V: float32(math.Abs(float64(x.V)))}), nil
	case *types.DoubleValue:
		return types.Singleton(types.NewDouble(math.Abs(x.V))), nil
	}
	return nil, errcode.New(errcode.XPTY0004, errcode.KindSubtype, "fn:abs is not defined for %s", args[0].ItemAt(0).Type())
}

// Number converts the argument, or the context item, to xs:double. Anything
// that can't be converted becomes NaN.
func Number(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	var item types.Item
	if len(args) == 0 {
		if contextItem == nil {
			return nil, errcode.New(errcode.XPDY0002, errcode.KindDynamic, "fn:number called without a context item")
		}
		item = contextItem
	} else if !args[0].IsEmpty() {
		item = args[0].ItemAt(0)
	}
	nan := types.Singleton(types.NewDouble(math.NaN()))
	if item == nil {
		return nan, nil
	}
	v, err := types.AtomizeItem(item)
	if err != nil {
		return nil, err
	}
	d, err := types.Convert(v, types.TypeDouble, nil)
	if err != nil {
		return nan, nil
	}
	return types.Singleton(d), nil
}
