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
	"fmt"
	"testing"
)

func TestSubTypeOf(t *testing.T) {
	type test struct {
		a, b Type
		exp  bool
	}
	testCases := []test{
		{TypeInt, TypeInteger, true},
		{TypeInt, TypeDecimal, true},
		{TypeInteger, TypeNumeric, true},
		{TypeDouble, TypeNumeric, true},
		{TypeFloat, TypeDecimal, false},
		{TypeString, TypeAnyAtomic, true},
		{TypeString, TypeItem, true},
		{TypeElement, TypeNode, true},
		{TypeElement, TypeAnyAtomic, false},
		{TypeAnyAtomic, TypeString, false},
		{TypeEmpty, TypeInteger, true},
		{TypeDayTimeDuration, TypeDuration, true},
		{TypeFunction, TypeItem, true},
		{TypeUntypedAtomic, TypeString, false},
	}
	for index, tc := range testCases {
		if got := tc.a.SubTypeOf(tc.b); got != tc.exp {
			t.Errorf("test #%d: %s subtype of %s: expected %t, got %t", index, tc.a, tc.b, tc.exp, got)
		}
	}
}

func TestCommonSuperType(t *testing.T) {
	type test struct {
		a, b Type
		exp  Type
	}
	testCases := []test{
		{TypeInt, TypeInteger, TypeInteger},
		{TypeInteger, TypeDecimal, TypeDecimal},
		{TypeInteger, TypeDouble, TypeNumeric},
		{TypeString, TypeInteger, TypeAnyAtomic},
		{TypeElement, TypeText, TypeNode},
		{TypeElement, TypeString, TypeItem},
		{TypeEmpty, TypeString, TypeString},
		{TypeDayTimeDuration, TypeYearMonthDuration, TypeDuration},
	}
	for index, tc := range testCases {
		if got := CommonSuperType(tc.a, tc.b); got != tc.exp {
			t.Errorf("test #%d: common supertype of %s and %s: expected %s, got %s", index, tc.a, tc.b, tc.exp, got)
		}
	}
}

func TestParseSequenceType(t *testing.T) {
	type test struct {
		in  string
		exp SequenceType
		err bool
	}
	testCases := []test{
		{"xs:integer", SequenceType{TypeInteger, ExactlyOne}, false},
		{"xs:integer?", SequenceType{TypeInteger, ZeroOrOne}, false},
		{"integer*", SequenceType{TypeInteger, ZeroOrMore}, false},
		{"node()+", SequenceType{TypeNode, OneOrMore}, false},
		{"item()*", AnySequence, false},
		{"function(*)", SequenceType{TypeFunction, ExactlyOne}, false},
		{"function(*)?", SequenceType{TypeFunction, ZeroOrOne}, false},
		{"empty-sequence()", SequenceType{TypeEmpty, Empty}, false},
		{"xs:nope", SequenceType{}, true},
		{"", SequenceType{}, true},
	}
	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.in), func(t *testing.T) {
			st, err := ParseSequenceType(tc.in)
			if tc.err {
				if err == nil {
					t.Errorf("expected error, got: %s", st)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %+v", err)
				return
			}
			if st != tc.exp {
				t.Errorf("expected %s, got %s", tc.exp, st)
			}
		})
	}
}

// TestCardinalityAcceptance checks that a cardinality accepts a length exactly
// when it is within its allowed range.
func TestCardinalityAcceptance(t *testing.T) {
	ranges := map[Cardinality]func(int) bool{
		Empty:      func(n int) bool { return n == 0 },
		ExactlyOne: func(n int) bool { return n == 1 },
		ZeroOrOne:  func(n int) bool { return n <= 1 },
		OneOrMore:  func(n int) bool { return n >= 1 },
		ZeroOrMore: func(n int) bool { return true },
	}
	for card, fn := range ranges {
		for n := 0; n < 5; n++ {
			if got, exp := card.Allows(n), fn(n); got != exp {
				t.Errorf("%s with %d items: expected %t, got %t", card, n, exp, got)
			}
		}
	}
}

func TestCardinalityOrder(t *testing.T) {
	if !ZeroOrMore.IsSuperCardinalityOrEqualOf(OneOrMore) {
		t.Errorf("zero or more should cover one or more")
	}
	if ExactlyOne.IsSuperCardinalityOrEqualOf(ZeroOrOne) {
		t.Errorf("exactly one should not cover zero or one")
	}
	if !OneOrMore.IsSuperCardinalityOrEqualOf(Many) {
		t.Errorf("one or more should cover many")
	}
	if c := ExactlyOne.Concat(ZeroOrOne); c != OneOrMore {
		t.Errorf("unexpected concat: %s", c)
	}
	if c := ZeroOrOne.Concat(ZeroOrOne); c != ZeroOrMore {
		t.Errorf("unexpected concat: %s", c)
	}
	if s := ZeroOrOne.Indicator(); s != "?" {
		t.Errorf("unexpected indicator: %s", s)
	}
}
