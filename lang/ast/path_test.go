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

const library = `<lib><book year="2001"><title>Go</title></book><book year="1999"><title>XML</title></book><book year="2010"><title>Trees</title></book></lib>`

func newStore(t *testing.T) *store.Store {
	obj := &store.Store{
		Logf: func(format string, v ...interface{}) {
			t.Logf("store: "+format, v...)
		},
	}
	if err := obj.Init(); err != nil {
		t.Fatalf("init failed: %+v", err)
	}
	if err := obj.Put("lib.xml", []byte(library)); err != nil {
		t.Fatalf("put failed: %+v", err)
	}
	return obj
}

func step(name string, predicates ...interfaces.Expr) *ExprStep {
	return &ExprStep{Test: NodeTest{Name: name}, Predicates: predicates}
}

func path(steps ...interfaces.Expr) *ExprPath { return &ExprPath{Steps: steps} }

func TestPath(t *testing.T) {
	type test struct { // an individual test
		name   string
		expr   interfaces.Expr
		fail   bool
		code   errcode.Code
		expect string
	}
	testCases := []test{}

	doc := func() interfaces.Expr { return &ExprDoc{URI: "lib.xml"} }

	{
		testCases = append(testCases, test{
			name:   "child steps",
			expr:   call("count", path(doc(), step("lib"), step("book"))),
			expect: "3",
		})
	}
	{
		testCases = append(testCases, test{
			name:   "positional predicate",
			expr:   call("string", path(doc(), step("lib"), step("book", i(2)), step("title"))),
			expect: `"XML"`,
		})
	}
	{
		year := path(&ExprStep{Axis: AxisAttribute, Test: NodeTest{Name: "year"}})
		testCases = append(testCases, test{
			name:   "boolean predicate",
			expr:   call("string", path(doc(), step("lib"), step("book", &ExprCompare{Op: OpGt, General: true, Left: year, Right: i(2005)}), step("title"))),
			expect: `"Trees"`,
		})
	}
	{
		year := &ExprStep{Axis: AxisAttribute, Test: NodeTest{Name: "year"}}
		testCases = append(testCases, test{
			name:   "cast of an attribute",
			expr:   &ExprCast{Operand: path(doc(), step("lib"), step("book", i(1)), year), Target: types.TypeInteger},
			expect: "2001",
		})
	}
	{
		year := &ExprStep{Axis: AxisAttribute, Test: NodeTest{Name: "year"}}
		testCases = append(testCases, test{
			name:   "castable of attributes",
			expr:   seq(&ExprCastable{Operand: path(doc(), step("lib"), step("book", i(1)), year), Target: types.TypeInteger}, &ExprCastable{Operand: path(doc(), step("lib"), step("book"), year), Target: types.TypeInteger}),
			expect: "(true, false)",
		})
	}
	{
		title := path(step("title"))
		testCases = append(testCases, test{
			name:   "value comparison on an element",
			expr:   call("count", path(doc(), step("lib"), step("book", &ExprCompare{Op: OpEq, Left: title, Right: str("XML")}))),
			expect: "1",
		})
	}
	{
		year := &ExprStep{Axis: AxisAttribute, Test: NodeTest{Name: "year"}}
		testCases = append(testCases, test{
			name:   "distinct values of attributes",
			expr:   call("count", call("distinct-values", seq(path(doc(), step("lib"), step("book"), year), str("2001")))),
			expect: "3",
		})
	}
	{
		testCases = append(testCases, test{
			name:   "descendant axis",
			expr:   call("count", path(doc(), &ExprStep{Axis: AxisDescendant, Test: NodeTest{Name: "title"}})),
			expect: "3",
		})
	}
	{
		testCases = append(testCases, test{
			name:   "atomic last step",
			expr:   path(doc(), step("lib"), step("book"), call("string", &ExprContextItem{})),
			expect: `("Go", "XML", "Trees")`,
		})
	}
	{
		testCases = append(testCases, test{
			name: "atomic intermediate step",
			expr: path(doc(), step("lib"), str("x"), step("book")),
			fail: true,
			code: errcode.XPTY0019,
		})
	}
	{
		testCases = append(testCases, test{
			name: "mixed last step",
			expr: path(doc(), step("lib"), seq(&ExprContextItem{}, str("x"))),
			fail: true,
			code: errcode.XPTY0018,
		})
	}
	{
		testCases = append(testCases, test{
			name: "step on an atomic context",
			expr: path(i(1), step("book")),
			fail: true,
			code: errcode.XPTY0019,
		})
	}
	{
		testCases = append(testCases, test{
			name: "missing document",
			expr: &ExprDoc{URI: "nope.xml"},
			fail: true,
			code: errcode.FODC0002,
		})
	}
	{
		testCases = append(testCases, test{
			name:   "empty intermediate result",
			expr:   call("count", path(doc(), step("nope"), step("book"))),
			expect: "0",
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
			documents := newStore(t)
			result, _, err := run(t, &Program{Body: tc.expr}, nil, func(env *interfaces.Env) {
				env.Documents = documents
			})
			if !tc.fail && err != nil {
				t.Errorf("test #%d: eval failed: %+v", index, err)
				return
			}
			if tc.fail {
				if err == nil {
					t.Errorf("test #%d: eval passed, expected fail", index)
					return
				}
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

func TestStepContext(t *testing.T) {
	root, err := store.ParseFragment("<a><b/><b/></a>")
	if err != nil {
		t.Errorf("parse failed: %+v", err)
		return
	}
	result, _, err := run(t, &Program{Body: path(step("a"), step("b"))}, root, nil)
	if err != nil {
		t.Errorf("eval failed: %+v", err)
		return
	}
	if result.Len() != 2 {
		t.Errorf("unexpected result: %s", types.SequenceString(result))
	}
	if result.IsPersistent() {
		t.Errorf("nodes of a fragment are persistent")
	}

	_, _, err = run(t, &Program{Body: step("a")}, types.NewInteger(1), nil)
	if !errcode.IsCode(err, errcode.XPTY0020) {
		t.Errorf("expected XPTY0020, got: %+v", err)
	}
	_, _, err = run(t, &Program{Body: step("a")}, nil, nil)
	if !errcode.IsCode(err, errcode.XPDY0002) {
		t.Errorf("expected XPDY0002, got: %+v", err)
	}
}

func TestDocumentCache(t *testing.T) {
	documents := newStore(t)
	expr := &ExprDoc{URI: "lib.xml"}
	title := call("string", path(expr, step("lib"), step("book", i(1)), step("title")))
	prog := &Program{Body: title}
	result, env, err := run(t, prog, nil, func(env *interfaces.Env) {
		env.Documents = documents
	})
	if err != nil {
		t.Errorf("eval failed: %+v", err)
		return
	}
	if s := types.SequenceString(result); s != `"Go"` {
		t.Errorf("unexpected result: %s", s)
	}
	if !expr.IsCached() {
		t.Errorf("document is not cached")
	}

	// an unrelated update keeps the cache
	if err := documents.Put("other.xml", []byte("<other/>")); err != nil {
		t.Errorf("put failed: %+v", err)
		return
	}
	if !expr.IsCached() {
		t.Errorf("unrelated update dropped the cache")
	}

	if err := documents.Put("lib.xml", []byte("<lib><book><title>New</title></book></lib>")); err != nil {
		t.Errorf("put failed: %+v", err)
		return
	}
	if expr.IsCached() {
		t.Errorf("update didn't drop the cache")
	}
	result, err = prog.Eval(env, nil)
	if err != nil {
		t.Errorf("eval failed: %+v", err)
		return
	}
	if s := types.SequenceString(result); s != `"New"` {
		t.Errorf("unexpected result after the update: %s", s)
	}

	if err := prog.Close(); err != nil {
		t.Errorf("close failed: %+v", err)
	}
	if expr.IsCached() {
		t.Errorf("document is still cached after close")
	}
}
