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

package simple

import (
	"fmt"
	"testing"
)

func TestParseSig(t *testing.T) {
	type test struct { // an individual test
		name     string
		sig      string
		fail     bool
		arity    int
		variadic bool
		expect   string
	}
	testCases := []test{
		{
			name:   "no params",
			sig:    "() as xs:boolean",
			expect: "function() as xs:boolean",
		},
		{
			name:   "function return",
			sig:    "() as empty-sequence()",
			expect: "function() as empty-sequence()",
		},
		{
			name:   "two params",
			sig:    "($a as xs:string?, $b as item()*) as node()?",
			arity:  2,
			expect: "function($a as xs:string?, $b as item()*) as node()?",
		},
		{
			name:     "variadic",
			sig:      "($a as xs:string?, $rest as xs:string?...) as xs:string",
			arity:    2,
			variadic: true,
			expect:   "function($a as xs:string?, $rest as xs:string?, ...) as xs:string",
		},
		{
			name: "missing return",
			sig:  "($a as xs:string)",
			fail: true,
		},
		{
			name: "bad param",
			sig:  "(a xs:string) as xs:string",
			fail: true,
		},
		{
			name: "variadic in the middle",
			sig:  "($a as xs:string..., $b as xs:string) as xs:string",
			fail: true,
		},
		{
			name: "unbalanced",
			sig:  "($a as item() as xs:string",
			fail: true,
		},
	}

	for index, tc := range testCases { // run all the tests
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			sig, err := ParseSig(tc.sig)
			if !tc.fail && err != nil {
				t.Errorf("test #%d: parse failed with: %+v", index, err)
				return
			}
			if tc.fail && err == nil {
				t.Errorf("test #%d: parse passed, expected fail", index)
				return
			}
			if tc.fail {
				return
			}
			if sig.Arity() != tc.arity {
				t.Errorf("test #%d: expected arity %d, got: %d", index, tc.arity, sig.Arity())
			}
			if sig.Variadic != tc.variadic {
				t.Errorf("test #%d: expected variadic %t", index, tc.variadic)
			}
			if s := sig.String(); s != tc.expect {
				t.Errorf("test #%d: expected: %s, got: %s", index, tc.expect, s)
			}
		})
	}
}
