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

package core

import (
	"fmt"
	"testing"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/funcs"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/util"
)

func ints(v ...int64) types.Sequence {
	items := []types.Item{}
	for _, i := range v {
		items = append(items, types.NewInteger(i))
	}
	return types.NewSequence(items...)
}

func str(s string) types.Sequence {
	return types.Singleton(types.NewString(s))
}

func double(f float64) types.Sequence {
	return types.Singleton(types.NewDouble(f))
}

func TestCoreFuncExec0(t *testing.T) {
	type test struct { // an individual test
		name     string
		funcname string
		args     []types.Sequence
		context  types.Item
		focus    []int // position and size
		fail     bool
		code     errcode.Code
		expect   string
	}
	testCases := []test{}

	{
		testCases = append(testCases, test{
			name:     "count",
			funcname: "count",
			args:     []types.Sequence{ints(1, 2, 3)},
			expect:   "3",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "prefixed count",
			funcname: "fn:count",
			args:     []types.Sequence{types.EmptySequence},
			expect:   "0",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "reverse",
			funcname: "reverse",
			args:     []types.Sequence{ints(1, 2, 3)},
			expect:   "(3, 2, 1)",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "tail",
			funcname: "tail",
			args:     []types.Sequence{ints(1, 2, 3)},
			expect:   "(2, 3)",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "subsequence",
			funcname: "subsequence",
			args:     []types.Sequence{ints(1, 2, 3, 4, 5), double(2), double(2)},
			expect:   "(2, 3)",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "subsequence rounds",
			funcname: "subsequence",
			args:     []types.Sequence{ints(1, 2, 3, 4, 5), double(3.5)},
			expect:   "(4, 5)",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "distinct-values",
			funcname: "distinct-values",
			args:     []types.Sequence{ints(1, 2, 1, 3, 2)},
			expect:   "(1, 2, 3)",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "zero-or-one fails",
			funcname: "zero-or-one",
			args:     []types.Sequence{ints(1, 2)},
			fail:     true,
			code:     errcode.FORG0003,
		})
	}
	{
		testCases = append(testCases, test{
			name:     "one-or-more fails",
			funcname: "one-or-more",
			args:     []types.Sequence{types.EmptySequence},
			fail:     true,
			code:     errcode.FORG0004,
		})
	}
	{
		testCases = append(testCases, test{
			name:     "exactly-one fails",
			funcname: "exactly-one",
			args:     []types.Sequence{types.EmptySequence},
			fail:     true,
			code:     errcode.FORG0005,
		})
	}
	{
		testCases = append(testCases, test{
			name:     "sum",
			funcname: "sum",
			args:     []types.Sequence{ints(1, 2, 3, 4)},
			expect:   "10",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "empty sum",
			funcname: "sum",
			args:     []types.Sequence{types.EmptySequence},
			expect:   "0",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "sum of strings",
			funcname: "sum",
			args:     []types.Sequence{types.NewSequence(types.NewString("a"), types.NewString("b"))},
			fail:     true,
			code:     errcode.FORG0006,
		})
	}
	{
		testCases = append(testCases, test{
			name:     "avg",
			funcname: "avg",
			args:     []types.Sequence{ints(1, 2, 3, 4)},
			expect:   "2.5",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "max",
			funcname: "max",
			args:     []types.Sequence{ints(3, 9, 4)},
			expect:   "9",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "min of untyped",
			funcname: "min",
			args:     []types.Sequence{types.NewSequence(types.NewUntyped("3"), types.NewUntyped("1.5"))},
			expect:   "1.5",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "abs",
			funcname: "abs",
			args:     []types.Sequence{ints(-7)},
			expect:   "7",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "number of garbage",
			funcname: "number",
			args:     []types.Sequence{str("abc")},
			expect:   "NaN",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "concat",
			funcname: "concat",
			args:     []types.Sequence{str("a"), types.EmptySequence, str("c"), ints(1)},
			expect:   `"ac1"`,
		})
	}
	{
		testCases = append(testCases, test{
			name:     "string-join",
			funcname: "string-join",
			args:     []types.Sequence{types.NewSequence(types.NewString("a"), types.NewString("b")), str("-")},
			expect:   `"a-b"`,
		})
	}
	{
		testCases = append(testCases, test{
			name:     "string-length of context",
			funcname: "string-length",
			context:  types.NewString("héllo"),
			expect:   "5",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "string without context",
			funcname: "string",
			fail:     true,
			code:     errcode.XPDY0002,
		})
	}
	{
		testCases = append(testCases, test{
			name:     "contains",
			funcname: "contains",
			args:     []types.Sequence{str("haystack"), str("st")},
			expect:   "true",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "upper-case",
			funcname: "upper-case",
			args:     []types.Sequence{str("abc")},
			expect:   `"ABC"`,
		})
	}
	{
		testCases = append(testCases, test{
			name:     "not",
			funcname: "not",
			args:     []types.Sequence{ints(0)},
			expect:   "true",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "position",
			funcname: "position",
			focus:    []int{2, 5},
			expect:   "2",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "last",
			funcname: "last",
			focus:    []int{2, 5},
			expect:   "5",
		})
	}
	{
		testCases = append(testCases, test{
			name:     "position without focus",
			funcname: "position",
			fail:     true,
			code:     errcode.XPDY0002,
		})
	}
	{
		testCases = append(testCases, test{
			name:     "error with code",
			funcname: "error",
			args: []types.Sequence{
				types.Singleton(&types.QNameValue{Local: "MYERR0001"}),
				str("boom"),
			},
			fail: true,
			code: errcode.Code("MYERR0001"),
		})
	}
	{
		testCases = append(testCases, test{
			name:     "error without code",
			funcname: "error",
			fail:     true,
			code:     errcode.FOER0000,
		})
	}
	{
		testCases = append(testCases, test{
			name:     "doc without a source",
			funcname: "doc",
			args:     []types.Sequence{str("a.xml")},
			fail:     true,
			code:     errcode.FODC0002,
		})
	}

	names := []string{}
	for index, tc := range testCases { // run all the tests
		if tc.name == "" {
			t.Errorf("test #%d: not named", index)
			continue
		}
		if util.StrInList(tc.name, names) {
			t.Errorf("test #%d: duplicate sub test name of: %s", index, tc.name)
			continue
		}
		names = append(names, tc.name)

		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			fn, err := funcs.Lookup(tc.funcname, len(tc.args))
			if err != nil {
				t.Errorf("test #%d: func lookup failed with: %+v", index, err)
				return
			}
			env := &interfaces.Env{
				Logf: func(format string, v ...interface{}) {
					t.Logf("test #%d: func: "+format, append([]interface{}{index}, v...)...)
				},
			}
			if err := env.Init(); err != nil {
				t.Errorf("test #%d: env init failed with: %+v", index, err)
				return
			}
			if tc.focus != nil {
				defer env.SetFocus(tc.focus[0], tc.focus[1])()
			}

			result, err := fn.Call(env, tc.args, tc.context)
			if !tc.fail && err != nil {
				t.Errorf("test #%d: func failed with: %+v", index, err)
				return
			}
			if tc.fail && err == nil {
				t.Errorf("test #%d: func passed, expected fail", index)
				return
			}
			if tc.fail {
				if !errcode.IsCode(err, tc.code) {
					t.Errorf("test #%d: expected code %s, got: %+v", index, tc.code, err)
				}
				return
			}
			if s := types.SequenceString(result); s != tc.expect {
				t.Errorf("test #%d: expected: %s, got: %s", index, tc.expect, s)
			}
		})
	}
}

func TestNames(t *testing.T) {
	names := funcs.Names()
	for _, name := range []string{"fn:count#1", "fn:subsequence#3", "fn:concat#2+", "fn:error#0"} {
		if !util.StrInList(name, names) {
			t.Errorf("missing builtin: %s", name)
		}
	}
}
