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

// Package coreseq contains the functions on sequences.
package coreseq

import (
	"math"

	"github.com/purpleidea/xqeval/lang/collation"
	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/funcs"
	"github.com/purpleidea/xqeval/lang/funcs/simple"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

func init() {
	simple.ModuleRegister(funcs.FnModule, "count", &simple.Func{
		Sig: simple.NewSig("($arg as item()*) as xs:integer"),
		V:   Count,
	})
	simple.ModuleRegister(funcs.FnModule, "exists", &simple.Func{
		Sig: simple.NewSig("($arg as item()*) as xs:boolean"),
		V:   Exists,
	})
	simple.ModuleRegister(funcs.FnModule, "empty", &simple.Func{
		Sig: simple.NewSig("($arg as item()*) as xs:boolean"),
		V:   Empty,
	})
	simple.ModuleRegister(funcs.FnModule, "reverse", &simple.Func{
		Sig: simple.NewSig("($arg as item()*) as item()*"),
		V:   Reverse,
	})
	simple.ModuleRegister(funcs.FnModule, "head", &simple.Func{
		Sig: simple.NewSig("($arg as item()*) as item()?"),
		V:   Head,
	})
	simple.ModuleRegister(funcs.FnModule, "tail", &simple.Func{
		Sig: simple.NewSig("($arg as item()*) as item()*"),
		V:   Tail,
	})
	simple.ModuleRegister(funcs.FnModule, "subsequence", &simple.Func{
		Sig: simple.NewSig("($sourceSeq as item()*, $startingLoc as xs:double) as item()*"),
		V:   Subsequence,
	})
	simple.ModuleRegister(funcs.FnModule, "subsequence", &simple.Func{
		Sig: simple.NewSig("($sourceSeq as item()*, $startingLoc as xs:double, $length as xs:double) as item()*"),
		V:   Subsequence,
	})
	simple.ModuleRegister(funcs.FnModule, "distinct-values", &simple.Func{
		Sig: simple.NewSig("($arg as xs:anyAtomicType*) as xs:anyAtomicType*"),
		V:   DistinctValues,
	})
	simple.ModuleRegister(funcs.FnModule, "distinct-values", &simple.Func{
		Sig: simple.NewSig("($arg as xs:anyAtomicType*, $collation as xs:string) as xs:anyAtomicType*"),
		V:   DistinctValues,
	})
	simple.ModuleRegister(funcs.FnModule, "data", &simple.Func{
		Sig: simple.NewSig("($arg as item()*) as xs:anyAtomicType*"),
		V:   Data,
	})
	simple.ModuleRegister(funcs.FnModule, "zero-or-one", &simple.Func{
		Sig: simple.NewSig("($arg as item()*) as item()?"),
		V:   ZeroOrOne,
	})
	simple.ModuleRegister(funcs.FnModule, "one-or-more", &simple.Func{
		Sig: simple.NewSig("($arg as item()*) as item()+"),
		V:   OneOrMore,
	})
	simple.ModuleRegister(funcs.FnModule, "exactly-one", &simple.Func{
		Sig: simple.NewSig("($arg as item()*) as item()"),
		V:   ExactlyOne,
	})
}

// Count returns the number of items.
func Count(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return types.Singleton(types.NewInteger(int64(args[0].Len()))), nil
}

// Exists returns true if the argument isn't empty.
func Exists(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return types.Singleton(types.NewBool(!args[0].IsEmpty())), nil
}

// Empty returns true if the argument is empty.
func Empty(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return types.Singleton(types.NewBool(args[0].IsEmpty())), nil
}

// Reverse returns the items in reverse order.
func Reverse(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	items := args[0].Items()
	result := make([]types.Item, len(items))
	for i, item := range items {
		result[len(items)-1-i] = item
	}
	return types.NewSequence(result...), nil
}

// Head returns the first item.
func Head(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if args[0].IsEmpty() {
		return types.EmptySequence, nil
	}
	return types.Singleton(args[0].ItemAt(0)), nil
}

// Tail returns every item but the first.
func Tail(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if args[0].Len() < 2 {
		return types.EmptySequence, nil
	}
	items := args[0].Items()[1:]
	result := make([]types.Item, len(items))
	copy(result, items)
	return types.NewSequence(result...), nil
}

// round rounds half up, as fn:round does.
func round(f float64) float64 {
	return math.Floor(f + 0.5)
}

// Subsequence returns the items from a one-based position, optionally limited
// to a length. Both are rounded, and NaN selects nothing.
func Subsequence(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	seq := args[0]
	start := round(args[1].ItemAt(0).(*types.DoubleValue).V)
	end := math.Inf(1)
	if len(args) > 2 {
		end = start + round(args[2].ItemAt(0).(*types.DoubleValue).V)
	}
	result := []types.Item{}
	for i, item := range seq.Items() {
		p := float64(i + 1)
		if p >= start && p < end { // false for NaN
			result = append(result, item)
		}
	}
	return types.NewSequence(result...), nil
}

// DistinctValues returns the values without duplicates, keeping the first
// occurrence of each. Strings compare with the collation. NaN is equal to
// itself.
func DistinctValues(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	coll := env.Collation
	if len(args) > 1 {
		c, err := collation.Lookup(args[1].ItemAt(0).(types.Atomic).StringValue())
		if err != nil {
			return nil, err
		}
		coll = c
	}
	if coll == nil {
		coll = collation.Default
	}

	result := []types.Item{}
	seen := make(map[string][]types.Atomic) // only used for codepoint keys
	for _, item := range args[0].Items() {
		v := item.(types.Atomic)
		if v.Type() == types.TypeUntypedAtomic {
			v = types.NewString(v.StringValue())
		}
		if coll.IsCodepoint() {
			key := types.HashKey(v)
			duplicate := false
			for _, x := range seen[key] { // a key may be shared by unequal values
				if types.ValueEqual(x, v, nil) {
					duplicate = true
					break
				}
			}
			if duplicate {
				continue
			}
			seen[key] = append(seen[key], v)
			result = append(result, v)
			continue
		}
		duplicate := false
		for _, x := range result {
			if types.ValueEqual(x.(types.Atomic), v, coll) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			result = append(result, v)
		}
	}
	return types.NewSequence(result...), nil
}

// Data atomizes the argument.
func Data(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return types.Atomize(args[0])
}

// ZeroOrOne errors if the argument has more than one item.
func ZeroOrOne(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if args[0].HasMany() {
		return nil, errcode.New(errcode.FORG0003, errcode.KindCardinality, "fn:zero-or-one called with %d items", args[0].Len())
	}
	return args[0], nil
}

// OneOrMore errors if the argument is empty.
func OneOrMore(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if args[0].IsEmpty() {
		return nil, errcode.New(errcode.FORG0004, errcode.KindEmptyNotAllowed, "fn:one-or-more called with an empty sequence")
	}
	return args[0], nil
}

// ExactlyOne errors if the argument hasn't exactly one item.
func ExactlyOne(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if args[0].Len() != 1 {
		return nil, errcode.New(errcode.FORG0005, errcode.KindCardinality, "fn:exactly-one called with %d items", args[0].Len())
	}
	return args[0], nil
}
