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
	"github.com/purpleidea/xqeval/lang/funcs"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/util"
)

func seq(exprs ...interfaces.Expr) *ExprSeq { return &ExprSeq{Exprs: exprs} }

func str(s string) *ExprStr { return &ExprStr{V: s} }

func dateTime(s string) *ExprCast {
	return &ExprCast{Operand: str(s), Target: types.TypeDateTime}
}

func call(name string, args ...interfaces.Expr) *ExprCall {
	return &ExprCall{Name: name, Args: args}
}

func TestFLWOR(t *testing.T) {
	type test struct { // an individual test
		name    string
		clauses []Clause
		ret     interfaces.Expr
		fail    bool
		code    errcode.Code
		expect  string
	}
	testCases := []test{}

	{
		testCases = append(testCases, test{
			name: "for where order by",
			clauses: []Clause{
				&ExprFor{Var: "x", In: &ExprRange{Start: i(1), End: i(10)}},
				&ExprWhere{Condition: eq(arith(types.OpMod, v("x"), i(2)), i(0))},
				&ExprOrderBy{Specs: []*OrderSpec{{Expr: v("x"), Descending: true}}},
			},
			ret:    arith(types.OpMul, v("x"), i(10)),
			expect: "(100, 80, 60, 40, 20)",
		})
	}
	{
		testCases = append(testCases, test{
			name: "positional variable",
			clauses: []Clause{
				&ExprFor{Var: "x", PosVar: "i", In: seq(str("a"), str("b"), str("c"))},
			},
			ret:    seq(v("i"), v("x")),
			expect: `(1, "a", 2, "b", 3, "c")`,
		})
	}
	{
		testCases = append(testCases, test{
			name: "allowing empty",
			clauses: []Clause{
				&ExprFor{Var: "x", PosVar: "i", In: seq(), AllowingEmpty: true},
			},
			ret:    seq(v("i"), call("count", v("x"))),
			expect: "(0, 0)",
		})
	}
	{
		testCases = append(testCases, test{
			name: "empty for",
			clauses: []Clause{
				&ExprFor{Var: "x", In: seq()},
			},
			ret:    i(1),
			expect: "()",
		})
	}
	{
		testCases = append(testCases, test{
			name: "let",
			clauses: []Clause{
				&ExprLet{Var: "x", Value: &ExprRange{Start: i(1), End: i(4)}},
				&ExprLet{Var: "y", Value: call("count", v("x"))},
			},
			ret:    arith(types.OpMul, v("y"), i(2)),
			expect: "8",
		})
	}
	{
		testCases = append(testCases, test{
			name: "group by bound variable",
			clauses: []Clause{
				&ExprFor{Var: "x", In: &ExprRange{Start: i(1), End: i(6)}},
				&ExprLet{Var: "k", Value: arith(types.OpMod, v("x"), i(2))},
				&ExprGroupBy{Specs: []*GroupSpec{{Var: "k"}}},
				&ExprOrderBy{Specs: []*OrderSpec{{Expr: v("k")}}},
			},
			ret:    seq(v("k"), call("count", v("x"))),
			expect: "(0, 3, 1, 3)",
		})
	}
	{
		testCases = append(testCases, test{
			name: "group by expression",
			clauses: []Clause{
				&ExprFor{Var: "x", In: &ExprRange{Start: i(1), End: i(6)}},
				&ExprGroupBy{Specs: []*GroupSpec{{Var: "k", Expr: arith(types.OpMod, v("x"), i(3))}}},
				&ExprOrderBy{Specs: []*OrderSpec{{Expr: v("k")}}},
			},
			ret:    call("sum", v("x")),
			expect: "(9, 5, 7)",
		})
	}
	{
		key := &ExprIf{
			Condition:  eq(v("x"), i(2)),
			ThenBranch: seq(),
			ElseBranch: v("x"),
		}
		testCases = append(testCases, test{
			name: "order by empty least",
			clauses: []Clause{
				&ExprFor{Var: "x", In: seq(i(1), i(2), i(3))},
				&ExprOrderBy{Specs: []*OrderSpec{{Expr: key}}},
			},
			ret:    v("x"),
			expect: "(2, 1, 3)",
		})
	}
	{
		key := &ExprIf{
			Condition:  eq(v("x"), i(2)),
			ThenBranch: seq(),
			ElseBranch: v("x"),
		}
		testCases = append(testCases, test{
			name: "order by empty greatest",
			clauses: []Clause{
				&ExprFor{Var: "x", In: seq(i(1), i(2), i(3))},
				&ExprOrderBy{Specs: []*OrderSpec{{Expr: key, EmptyGreatest: true}}},
			},
			ret:    v("x"),
			expect: "(1, 3, 2)",
		})
	}
	{
		testCases = append(testCases, test{
			name: "order by strings",
			clauses: []Clause{
				&ExprFor{Var: "x", In: seq(str("pear"), str("apple"), str("fig"))},
				&ExprOrderBy{Specs: []*OrderSpec{{Expr: v("x")}}},
			},
			ret:    v("x"),
			expect: `("apple", "fig", "pear")`,
		})
	}
	{
		testCases = append(testCases, test{
			name: "for with a declared type",
			clauses: []Clause{
				&ExprFor{Var: "x", In: seq(i(1), i(2)), Type: stringOne},
			},
			ret:  v("x"),
			fail: true,
			code: errcode.XPTY0004,
		})
	}
	{
		testCases = append(testCases, test{
			name: "let with a declared type",
			clauses: []Clause{
				&ExprLet{Var: "x", Value: seq(i(1), i(2)), Type: integerOne},
			},
			ret:  v("x"),
			fail: true,
			code: errcode.XPTY0004,
		})
	}
	{
		testCases = append(testCases, test{
			name: "group by equal instants",
			clauses: []Clause{
				&ExprFor{Var: "x", In: seq(dateTime("2020-01-01T10:00:00Z"), dateTime("2020-01-01T11:00:00+01:00"))},
				&ExprGroupBy{Specs: []*GroupSpec{{Var: "k", Expr: v("x")}}},
			},
			ret:    call("count", v("x")),
			expect: "2",
		})
	}
	{
		testCases = append(testCases, test{
			name: "group by mixed numbers",
			clauses: []Clause{
				&ExprFor{Var: "x", In: seq(i(1), &ExprDouble{V: 1}, &ExprDecimal{V: "1.0"}, i(2))},
				&ExprGroupBy{Specs: []*GroupSpec{{Var: "k", Expr: v("x")}}},
			},
			ret:    call("count", v("x")),
			expect: "(3, 1)",
		})
	}
	{
		// both are the same double, but they are not equal integers
		testCases = append(testCases, test{
			name: "group by large integers",
			clauses: []Clause{
				&ExprFor{Var: "x", In: seq(i(9007199254740992), i(9007199254740993), i(9007199254740992))},
				&ExprGroupBy{Specs: []*GroupSpec{{Var: "k", Expr: v("x")}}},
			},
			ret:    call("count", v("x")),
			expect: "(2, 1)",
		})
	}
	{
		testCases = append(testCases, test{
			name: "distinct values with equal instants and numbers",
			clauses: []Clause{
				&ExprLet{Var: "v", Value: seq(dateTime("2020-01-01T10:00:00Z"), dateTime("2020-01-01T11:00:00+01:00"), i(1), &ExprDouble{V: 1})},
			},
			ret:    call("count", call("distinct-values", v("v"))),
			expect: "2",
		})
	}
	{
		testCases = append(testCases, test{
			name: "distinct values with large integers",
			clauses: []Clause{
				&ExprLet{Var: "v", Value: seq(i(9007199254740992), i(9007199254740993))},
			},
			ret:    call("count", call("distinct-values", v("v"))),
			expect: "2",
		})
	}
	{
		testCases = append(testCases, test{
			name: "order by incomparable keys",
			clauses: []Clause{
				&ExprFor{Var: "x", In: seq(i(1), str("a"))},
				&ExprOrderBy{Specs: []*OrderSpec{{Expr: v("x")}}},
			},
			ret:  v("x"),
			fail: true,
			code: errcode.XPTY0004,
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
			body, err := NewFLWOR(tc.clauses, tc.ret)
			if err != nil {
				t.Errorf("test #%d: flwor failed: %+v", index, err)
				return
			}
			result, _, err := run(t, &Program{Body: body}, nil, nil)
			if !tc.fail && err != nil {
				t.Errorf("test #%d: eval failed: %+v", index, err)
				return
			}
			if tc.fail {
				if err == nil {
					t.Errorf("test #%d: eval passed, expected fail", index)
					return
				}
				if tc.code != "" && !errcode.IsCode(err, tc.code) {
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

func TestNewFLWORFail(t *testing.T) {
	if _, err := NewFLWOR([]Clause{}, i(1)); err == nil {
		t.Errorf("flwor without clauses passed")
	}
	if _, err := NewFLWOR([]Clause{&ExprWhere{Condition: i(1)}}, i(1)); err == nil {
		t.Errorf("flwor starting with where passed")
	}
	if _, err := NewFLWOR([]Clause{&ExprLet{Var: "x", Value: i(1)}}, nil); err == nil {
		t.Errorf("flwor without return passed")
	}
}

func TestWhereFilter(t *testing.T) {
	where := &ExprWhere{Condition: eq(arith(types.OpMod, v("x"), i(3)), i(0))}
	body, err := NewFLWOR([]Clause{
		&ExprFor{Var: "x", In: &ExprRange{Start: i(1), End: i(9)}},
		where,
	}, v("x"))
	if err != nil {
		t.Errorf("flwor failed: %+v", err)
		return
	}
	result, _, err := run(t, &Program{Body: body}, nil, nil)
	if err != nil {
		t.Errorf("eval failed: %+v", err)
		return
	}
	if !where.filter {
		t.Errorf("where clause doesn't filter the input")
	}
	if s := types.SequenceString(result); s != "(3, 6, 9)" {
		t.Errorf("unexpected result: %s", s)
	}

	// the context position makes the condition per tuple
	position := &ExprWhere{Condition: call("position")}
	body, err = NewFLWOR([]Clause{
		&ExprFor{Var: "x", In: &ExprRange{Start: i(1), End: i(3)}},
		position,
	}, v("x"))
	if err != nil {
		t.Errorf("flwor failed: %+v", err)
		return
	}
	static := &interfaces.StaticContext{
		Resolver: &funcs.Library{},
		Logf:     t.Logf,
	}
	if err := body.Analyze(interfaces.NewAnalyzeContext(static)); err != nil {
		t.Errorf("analyze failed: %+v", err)
		return
	}
	if position.filter {
		t.Errorf("where clause with a focus dependency filters the input")
	}
}

func TestResetState(t *testing.T) {
	body, err := NewFLWOR([]Clause{
		&ExprFor{Var: "x", In: seq(i(3), i(1), i(2))},
		&ExprOrderBy{Specs: []*OrderSpec{{Expr: v("x")}}},
	}, v("x"))
	if err != nil {
		t.Errorf("flwor failed: %+v", err)
		return
	}
	prog := &Program{Body: body, Library: &funcs.Library{}}
	static := &interfaces.StaticContext{Logf: t.Logf}
	if err := prog.Analyze(static); err != nil {
		t.Errorf("analyze failed: %+v", err)
		return
	}
	for n := 0; n < 3; n++ {
		env := &interfaces.Env{Static: static}
		if err := env.Init(); err != nil {
			t.Errorf("init failed: %+v", err)
			return
		}
		result, err := prog.Eval(env, nil)
		if err != nil {
			t.Errorf("run #%d: eval failed: %+v", n, err)
			return
		}
		if s := types.SequenceString(result); s != "(1, 2, 3)" {
			t.Errorf("run #%d: unexpected result: %s", n, s)
		}
		prog.ResetState(false)
	}
}
