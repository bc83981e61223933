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

package errwrap

import (
	"fmt"
	"testing"
)

func TestWrapfErr1(t *testing.T) {
	if err := Wrapf(nil, "whatever: %d", 42); err != nil {
		t.Errorf("expected nil result")
	}
}

func TestAppendErr1(t *testing.T) {
	if err := Append(nil, nil); err != nil {
		t.Errorf("expected nil result")
	}
}

func TestAppendErr2(t *testing.T) {
	reterr := fmt.Errorf("reterr")
	if err := Append(reterr, nil); err != reterr {
		t.Errorf("expected reterr")
	}
}

func TestAppendErr3(t *testing.T) {
	err := fmt.Errorf("err")
	if reterr := Append(nil, err); reterr != err {
		t.Errorf("expected err")
	}
}

func TestString1(t *testing.T) {
	var err error
	if String(err) != "" {
		t.Errorf("expected empty result")
	}

	msg := "this is an error"
	if err := fmt.Errorf("%s", msg); String(err) != msg {
		t.Errorf("expected different result")
	}
}

func TestErrors1(t *testing.T) {
	if l := Errors(nil); len(l) != 0 {
		t.Errorf("expected empty list")
	}
	e1 := fmt.Errorf("e1")
	e2 := fmt.Errorf("e2")
	e3 := fmt.Errorf("e3")
	err := Append(Append(e1, e2), e3)
	l := Errors(err)
	if len(l) != 3 {
		t.Errorf("expected three errors, got: %d", len(l))
		return
	}
	if l[0] != e1 || l[1] != e2 || l[2] != e3 {
		t.Errorf("unexpected order: %+v", l)
	}
}

func TestCause1(t *testing.T) {
	inner := fmt.Errorf("inner")
	err := Wrapf(Wrapf(inner, "middle"), "outer")
	if Cause(err) != inner {
		t.Errorf("expected inner error")
	}
	if s := String(err); s != "outer: middle: inner" {
		t.Errorf("unexpected message: %s", s)
	}
}
