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

package errcode

import (
	"fmt"
	"testing"

	"github.com/purpleidea/xqeval/util/errwrap"
)

func TestErrorString(t *testing.T) {
	err := New(XPTY0004, KindCardinality, "expected %s", "exactly one")
	if s := err.Error(); s != "XPTY0004: expected exactly one" {
		t.Errorf("unexpected message: %s", s)
	}

	Locate(err, 2, 4)
	Locate(err, 9, 9) // innermost wins
	AddFrame(err, Frame{Signature: "local:f($n)", Line: 1, Column: 1})
	exp := "XPTY0004: expected exactly one [at line 3, column 5]\n\tat local:f($n) [1:1]"
	if s := err.Error(); s != exp {
		t.Errorf("unexpected message: %s", s)
	}
}

func TestKindThroughWrap(t *testing.T) {
	err := errwrap.Wrapf(New(FOAR0001, KindArithmetic, "division by zero"), "eval")
	if !IsKind(err, KindArithmetic) {
		t.Errorf("expected arithmetic kind")
	}
	if !IsCode(err, FOAR0001) {
		t.Errorf("expected FOAR0001")
	}
	if IsKind(fmt.Errorf("plain"), KindArithmetic) {
		t.Errorf("plain errors have no kind")
	}
	if IsTerminated(err) {
		t.Errorf("not a termination")
	}
}

func TestTerminated(t *testing.T) {
	err := errwrap.Wrapf(&TerminatedError{Reason: ReasonTimeout}, "step")
	if !IsTerminated(err) {
		t.Errorf("expected termination")
	}
	if _, ok := Get(err); ok {
		t.Errorf("termination is not a query error")
	}
}
