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

package ast

import (
	"fmt"
	"testing"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/store"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/util"
)

func untyped(s string) interfaces.Expr {
	return &ExprCast{Operand: str(s), Target: types.TypeUntypedAtomic}
}

func TestCheckSequenceType(t *testing.T) {
	type test struct { // an individual test
		name    string
		expr    interfaces.Expr
		context types.Item
		st      types.SequenceType
		fail    bool
		code    errcode.Code
		kind    errcode.Kind
		expect  string
	}
	testCases := []test{}

	root, err := store.ParseFragment(`<a n="7">42</a>`)
	if err != nil {
		t.Errorf("parse failed: %+v", err)
		return
	}
	attr := path(&ExprStep{Axis: AxisChild, Test: NodeTest{Name: "a"}}, &ExprStep{Axis: AxisAttribute, Test: NodeTest{Name: "n"}})

	{
		testCases = append(testCases, test{
			name:   "matching value",
			expr:   i(42),
			st:     integerOne,
			expect: "42",
		})
	}
	{
		testCases = append(testCases, test{
			name:   "untyped is cast",
			expr:   untyped("42"),
			st:     integerOne,
			expect: "42",
		})
	}
	{
		testCases = append(testCases, test{
			name: "invalid untyped",
			expr: untyped("abc"),
			st:   integerOne,
			fail: true,
			code: errcode.FORG0001,
			kind: errcode.KindUntypedValue,
		})
	}
	{
		testCases = append(testCases, test{
			name:   "integer is promoted to double",
			expr:   i(2),
			st:     types.SequenceType{Type: types.TypeDouble, Cardinality: types.ExactlyOne},
			expect: "2",
		})
	}
	{
		testCases = append(testCases, test{
			name: "too many items",
			expr: seq(i(1), i(2)),
			st:   integerOne,
			fail: true,
			code: errcode.XPTY0004,
			kind: errcode.KindCardinality,
		})
	}
	{
		testCases = append(testCases, test{
			name: "empty not allowed",
			expr: seq(),
			st:   integerOne,
			fail: true,
			code: errcode.XPTY0004,
			kind: errcode.KindEmptyNotAllowed,
		})
	}
	{
		testCases = append(testCases, test{
			name: "wrong type",
			expr: str("x"),
			st:   integerOne,
			fail: true,
			code: errcode.XPTY0004,
			kind: errcode.KindSubtype,
		})
	}
	{
		testCases = append(testCases, test{
			name:    "element is atomized and cast",
			expr:    &ExprContextItem{},
			context: root,
			st:      integerOne,
			expect:  "42",
		})
	}
	{
		testCases = append(testCases, test{
			name:    "attribute is atomized and promoted",
			expr:    attr,
			context: root,
			st:      types.SequenceType{Type: types.TypeDouble, Cardinality: types.ZeroOrOne},
			expect:  "7",
		})
	}
	{
		testCases = append(testCases, test{
			name:    "node to string",
			expr:    attr,
			context: root,
			st:      types.SequenceType{Type: types.TypeString, Cardinality: types.ExactlyOne},
			expect:  `"7"`,
		})
	}
	{
		testCases = append(testCases, test{
			name:    "node with an invalid value",
			expr:    &ExprContextItem{},
			context: root,
			st:      types.SequenceType{Type: types.TypeBoolean, Cardinality: types.ExactlyOne},
			fail:    true,
			code:    errcode.FORG0001,
			kind:    errcode.KindUntypedValue,
		})
	}
	{
		testCases = append(testCases, test{
			name:    "node type is kept",
			expr:    &ExprContextItem{},
			context: root,
			st:      types.SequenceType{Type: types.TypeNode, Cardinality: types.ExactlyOne},
			expect:  root.String(),
		})
	}
	{
		testCases = append(testCases, test{
			name:   "any sequence",
			expr:   seq(i(1), str("x")),
			st:     types.AnySequence,
			expect: `(1, "x")`,
		})
	}

	names := []string{}
	for index, tc := range testCases {
		if util.StrInList(tc.name, names) {
			t.Errorf("test #%d: duplicate sub test name of: %s", index, tc.name)
			continue
		}
		names = append(names, tc.name)

		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			expr := CheckSequenceType(tc.expr, tc.st, "value")
			result, _, err := run(t, &Program{Body: expr}, tc.context, nil)
			if !tc.fail && err != nil {
				t.Errorf("test #%d: eval failed: %+v", index, err)
				return
			}
			if tc.fail {
				if err == nil {
					t.Errorf("test #%d: eval passed, expected fail", index)
					return
				}
				e, ok := errcode.Get(err)
				if !ok || e.Code != tc.code || e.Kind != tc.kind {
					t.Errorf("test #%d: expected %s (%s), got: %+v", index, tc.code, tc.kind, err)
				}
				return
			}
			if s := types.SequenceString(result); s != tc.expect {
				t.Errorf("test #%d: unexpected result: %s, expected: %s", index, s, tc.expect)
			}
		})
	}
}

func TestCast(t *testing.T) {
	type test struct { // an individual test
		name   string
		expr   interfaces.Expr
		fail   bool
		code   errcode.Code
		expect string
	}
	testCases := []test{}

	{
		testCases = append(testCases, test{
			name:   "string to integer",
			expr:   &ExprCast{Operand: str(" 12 "), Target: types.TypeInteger},
			expect: "12",
		})
	}
	{
		testCases = append(testCases, test{
			name: "invalid integer",
			expr: &ExprCast{Operand: str("x"), Target: types.TypeInteger},
			fail: true,
			code: errcode.FORG0001,
		})
	}
	{
		testCases = append(testCases, test{
			name: "empty operand",
			expr: &ExprCast{Operand: seq(), Target: types.TypeInteger},
			fail: true,
			code: errcode.XPTY0004,
		})
	}
	{
		testCases = append(testCases, test{
			name:   "empty operand allowed",
			expr:   &ExprCast{Operand: seq(), Target: types.TypeInteger, AllowEmpty: true},
			expect: "()",
		})
	}
	{
		testCases = append(testCases, test{
			name:   "castable",
			expr:   &ExprCastable{Operand: str("12"), Target: types.TypeInteger},
			expect: "true",
		})
	}
	{
		testCases = append(testCases, test{
			name:   "not castable",
			expr:   &ExprCastable{Operand: str("x"), Target: types.TypeInteger},
			expect: "false",
		})
	}
	{
		testCases = append(testCases, test{
			name:   "castable many",
			expr:   &ExprCastable{Operand: seq(i(1), i(2)), Target: types.TypeInteger},
			expect: "false",
		})
	}
	{
		testCases = append(testCases, test{
			name: "castable propagates operand errors",
			expr: &ExprCastable{Operand: call("error"), Target: types.TypeInteger},
			fail: true,
			code: errcode.FOER0000,
		})
	}
	{
		testCases = append(testCases, test{
			name:   "instance of",
			expr:   &ExprInstanceOf{Operand: seq(i(1), i(2)), Type: types.SequenceType{Type: types.TypeInteger, Cardinality: types.OneOrMore}},
			expect: "true",
		})
	}
	{
		testCases = append(testCases, test{
			name:   "not instance of",
			expr:   &ExprInstanceOf{Operand: i(1), Type: stringOne},
			expect: "false",
		})
	}
	{
		testCases = append(testCases, test{
			name: "treat as fails",
			expr: &ExprTreat{Operand: i(1), Type: stringOne},
			fail: true,
			code: errcode.XPDY0050,
		})
	}

	names := []string{}
	for index, tc := range testCases {
		if util.StrInList(tc.name, names) {
			t.Errorf("test #%d: duplicate sub test name of: %s", index, tc.name)
			continue
		}
		names = append(names, tc.name)

		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			result, _, err := run(t, &Program{Body: tc.expr}, nil, nil)
			if !tc.fail && err != nil {
				t.Errorf("test #%d: eval failed: %+v", index, err)
				return
			}
			if tc.fail {
				if !errcode.IsCode(err, tc.code) {
					t.Errorf("test #%d: expected %s, got: %+v", index, tc.code, err)
				}
				return
			}
			if s := types.SequenceString(result); s != tc.expect {
				t.Errorf("test #%d: unexpected result: %s, expected: %s", index, s, tc.expect)
			}
		})
	}
}
