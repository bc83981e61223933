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

//go:build !root

package types

import (
	"math"
	"testing"

	"github.com/purpleidea/xqeval/lang/errcode"

	"github.com/kylelemons/godebug/pretty"
)

func TestSequenceCardinality(t *testing.T) {
	seqs := []Sequence{
		EmptySequence,
		Singleton(NewInteger(1)),
		NewSequence(NewInteger(1), NewString("a")),
		&RangeSequence{Start: 1, End: 10},
		&RangeSequence{Start: 5, End: 4},
	}
	for index, seq := range seqs {
		if seq.Cardinality() != CardinalityOf(seq.Len()) {
			t.Errorf("test #%d: cardinality %s does not match length %d", index, seq.Cardinality(), seq.Len())
		}
		if seq.IsEmpty() != (seq.Len() == 0) {
			t.Errorf("test #%d: emptiness does not match length", index)
		}
		if len(seq.Items()) != seq.Len() {
			t.Errorf("test #%d: items do not match length", index)
		}
	}
}

func TestItemType(t *testing.T) {
	seq := NewSequence(NewInteger(1), &IntValue{V: 2, T: TypeInt})
	if typ := seq.ItemType(); typ != TypeInteger {
		t.Errorf("unexpected item type: %s", typ)
	}
	seq.Add(NewDouble(1))
	if typ := seq.ItemType(); typ != TypeNumeric {
		t.Errorf("unexpected item type: %s", typ)
	}
	seq.Add(NewString("x"))
	if typ := seq.ItemType(); typ != TypeAnyAtomic {
		t.Errorf("unexpected item type: %s", typ)
	}
}

func TestConcat(t *testing.T) {
	a := NewSequence(NewInteger(1))
	if Concat(EmptySequence, a, EmptySequence) != Sequence(a) {
		t.Errorf("a single non-empty input should be shared")
	}
	c := Concat(a, &RangeSequence{Start: 2, End: 3})
	got := []string{}
	for _, item := range c.Items() {
		got = append(got, item.String())
	}
	if diff := pretty.Compare(got, []string{"1", "2", "3"}); diff != "" {
		t.Errorf("unexpected concat, diff: (-got +want)\n%s", diff)
	}
}

func TestEffectiveBooleanValue(t *testing.T) {
	type test struct {
		seq Sequence
		exp bool
		err bool
	}
	testCases := []test{
		{EmptySequence, false, false},
		{Singleton(NewString("")), false, false},
		{Singleton(NewString("a")), true, false},
		{Singleton(NewInteger(0)), false, false},
		{Singleton(NewDouble(math.NaN())), false, false},
		{Singleton(NewBool(true)), true, false},
		{NewSequence(NewInteger(1), NewInteger(2)), false, true},
		{Singleton(&DurationValue{T: TypeDuration}), false, true},
	}
	for index, tc := range testCases {
		b, err := EffectiveBooleanValue(tc.seq)
		if tc.err {
			if !errcode.IsCode(err, errcode.FORG0006) {
				t.Errorf("test #%d: expected FORG0006, got: %v", index, err)
			}
			continue
		}
		if err != nil || b != tc.exp {
			t.Errorf("test #%d: expected %t, got %t (%v)", index, tc.exp, b, err)
		}
	}
}

func TestArith(t *testing.T) {
	type test struct {
		op   ArithOp
		a, b Atomic
		exp  string
		code errcode.Code
	}
	testCases := []test{
		{OpAdd, NewInteger(2), NewInteger(3), "5", ""},
		{OpDiv, NewInteger(1), NewInteger(4), "0.25", ""},
		{OpIDiv, NewInteger(7), NewInteger(2), "3", ""},
		{OpMod, NewInteger(-7), NewInteger(2), "-1", ""},
		{OpIDiv, NewInteger(1), NewInteger(0), "", errcode.FOAR0001},
		{OpDiv, NewDecimal(1, 0), NewInteger(0), "", errcode.FOAR0001},
		{OpDiv, NewDouble(1), NewInteger(0), "INF", ""},
		{OpAdd, NewInteger(math.MaxInt64), NewInteger(1), "", errcode.FOAR0002},
		{OpMul, NewInteger(math.MaxInt64), NewInteger(2), "", errcode.FOAR0002},
		{OpMul, NewInteger(-4), NewInteger(5), "-20", ""},
		{OpAdd, NewUntyped("2"), NewInteger(3), "5", ""},
		{OpAdd, NewString("2"), NewInteger(3), "", errcode.XPTY0004},
		{OpMul, &DurationValue{Dur: 3e9, T: TypeDayTimeDuration}, NewInteger(2), "PT6S", ""},
	}
	for index, tc := range testCases {
		v, err := Arith(tc.op, tc.a, tc.b)
		if tc.code != "" {
			if !errcode.IsCode(err, tc.code) {
				t.Errorf("test #%d: expected %s, got: %v", index, tc.code, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("test #%d: unexpected error: %+v", index, err)
			continue
		}
		if s := v.StringValue(); s != tc.exp {
			t.Errorf("test #%d: expected %s, got %s", index, tc.exp, s)
		}
	}
}

func TestCompareAndHash(t *testing.T) {
	if c, err := Compare(NewInteger(1), NewDouble(1.5), nil); err != nil || c != -1 {
		t.Errorf("unexpected compare: %d, %v", c, err)
	}
	if _, err := Compare(NewDouble(math.NaN()), NewDouble(1), nil); err != ErrUnordered {
		t.Errorf("expected unordered, got: %v", err)
	}
	if _, err := Compare(NewString("1"), NewInteger(1), nil); !errcode.IsKind(err, errcode.KindSubtype) {
		t.Errorf("expected a type error, got: %v", err)
	}
	if !ValueEqual(NewDouble(math.NaN()), NewDouble(math.NaN()), nil) {
		t.Errorf("NaN groups with itself")
	}
	if HashKey(NewInteger(1)) != HashKey(NewDouble(1)) || HashKey(NewDecimal(10, -1)) != HashKey(NewInteger(1)) {
		t.Errorf("equal numbers must hash equal")
	}
	if HashKey(NewUntyped("a")) != HashKey(NewString("a")) {
		t.Errorf("untyped values group as strings")
	}
	if HashKey(NewDouble(math.Copysign(0, -1))) != HashKey(NewInteger(0)) {
		t.Errorf("negative zero must hash like zero")
	}

	// equal values must share a key, whatever their lexical form
	pairs := [][2]string{
		{"2020-01-01T10:00:00Z", "2020-01-01T11:00:00+01:00"},
		{"2020-01-01T23:30:00-01:00", "2020-01-02T00:30:00Z"},
	}
	for _, p := range pairs {
		a, err := Convert(NewString(p[0]), TypeDateTime, nil)
		if err != nil {
			t.Errorf("convert failed: %+v", err)
			return
		}
		b, err := Convert(NewString(p[1]), TypeDateTime, nil)
		if err != nil {
			t.Errorf("convert failed: %+v", err)
			return
		}
		if !ValueEqual(a, b, nil) {
			t.Errorf("%s and %s are not equal", a, b)
		}
		if HashKey(a) != HashKey(b) {
			t.Errorf("%s and %s don't share a key", a, b)
		}
	}
	x := &QNameValue{Space: "urn:x", Prefix: "a", Local: "n"}
	y := &QNameValue{Space: "urn:x", Prefix: "b", Local: "n"}
	if !ValueEqual(x, y, nil) || HashKey(x) != HashKey(y) {
		t.Errorf("qnames with the same namespace don't share a key")
	}

	// a shared key doesn't mean equal values
	big, next := NewInteger(1<<53), NewInteger(1<<53+1)
	if ValueEqual(big, next, nil) {
		t.Errorf("%s and %s are equal", big, next)
	}
	if !ValueEqual(big, NewDouble(1<<53), nil) || HashKey(big) != HashKey(NewDouble(1<<53)) {
		t.Errorf("%s and its double don't share a key", big)
	}
}
