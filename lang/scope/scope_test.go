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

package scope

import (
	"fmt"
	"testing"

	"github.com/purpleidea/xqeval/lang/types"

	"github.com/kylelemons/godebug/pretty"
)

func names(bindings []*Binding) []string {
	result := []string{}
	for _, b := range bindings {
		result = append(result, b.Name)
	}
	return result
}

func TestMarkPop(t *testing.T) {
	stack := New()
	a := stack.Bind("a", types.Singleton(types.NewInteger(1)), types.AnySequence)

	mark := stack.Mark(false)
	b := stack.Bind("b", types.Singleton(types.NewInteger(2)), types.AnySequence)
	c := stack.Bind("c", types.Singleton(types.NewInteger(3)), types.AnySequence)
	if diff := pretty.Compare(names(stack.Since(mark)), []string{"b", "c"}); diff != "" {
		t.Errorf("unexpected bindings since mark, diff: (-got +want)\n%s", diff)
	}
	if stack.Size() != 3 {
		t.Errorf("unexpected size: %d", stack.Size())
	}

	stack.Pop(mark, types.EmptySequence)
	if stack.Size() != 1 {
		t.Errorf("unexpected size after pop: %d", stack.Size())
	}
	if !b.Destroyed() || !c.Destroyed() {
		t.Errorf("popped bindings must be destroyed")
	}
	if a.Destroyed() {
		t.Errorf("binding before the mark was destroyed")
	}
	if _, exists := stack.Resolve("b"); exists {
		t.Errorf("popped binding is still visible")
	}
	if x, exists := stack.Resolve("a"); !exists || x != a {
		t.Errorf("binding before the mark is not visible")
	}
}

// TestPopOnError checks that the usual defer pattern unwinds exactly what was
// pushed after the mark when the body fails.
func TestPopOnError(t *testing.T) {
	stack := New()
	stack.Bind("outer", types.EmptySequence, types.AnySequence)

	body := func() (err error) {
		mark := stack.Mark(false)
		defer func() { stack.Pop(mark, nil) }()
		stack.Bind("x", types.EmptySequence, types.AnySequence)
		stack.Bind("y", types.EmptySequence, types.AnySequence)
		return fmt.Errorf("failed")
	}
	if err := body(); err == nil {
		t.Errorf("expected an error")
	}
	if diff := pretty.Compare(names(stack.Locals()), []string{"outer"}); diff != "" {
		t.Errorf("unexpected bindings, diff: (-got +want)\n%s", diff)
	}
}

func TestHeldByResult(t *testing.T) {
	stack := New()
	mark := stack.Mark(false)
	value := types.NewSequence(types.NewString("kept"))
	b := stack.Bind("x", value, types.AnySequence)
	other := stack.Bind("y", types.NewSequence(types.NewString("gone")), types.AnySequence)

	stack.Pop(mark, value) // the result is the value of $x
	if b.Destroyed() || b.Value == nil {
		t.Errorf("binding held by the result was destroyed")
	}
	if !other.Destroyed() {
		t.Errorf("binding not held by the result should be destroyed")
	}
}

func TestContextBoundary(t *testing.T) {
	stack := New()
	stack.Bind("caller", types.EmptySequence, types.AnySequence)

	mark := stack.Mark(true) // function body
	if _, exists := stack.Resolve("caller"); exists {
		t.Errorf("caller bindings must be hidden inside a new context")
	}
	stack.Bind("param", types.EmptySequence, types.AnySequence)
	if diff := pretty.Compare(names(stack.Locals()), []string{"param"}); diff != "" {
		t.Errorf("unexpected locals, diff: (-got +want)\n%s", diff)
	}
	stack.Pop(mark, nil)

	if _, exists := stack.Resolve("caller"); !exists {
		t.Errorf("caller bindings must be visible again after pop")
	}
}

func TestClosure(t *testing.T) {
	stack := New()
	stack.Bind("x", types.Singleton(types.NewInteger(1)), types.AnySequence)
	stack.Bind("x", types.Singleton(types.NewInteger(2)), types.AnySequence) // shadows
	stack.Bind("y", types.Singleton(types.NewInteger(3)), types.AnySequence)
	closure := stack.Capture()

	// unwind everything, then call from somewhere deeper
	stack = New()
	for i := 0; i < 5; i++ {
		stack.Bind(fmt.Sprintf("v%d", i), types.EmptySequence, types.AnySequence)
	}
	mark := stack.Mark(true)
	stack.Restore(closure)
	x, exists := stack.Resolve("x")
	if !exists {
		t.Errorf("closure variable missing")
		return
	}
	if s := x.Value.ItemAt(0).String(); s != "2" {
		t.Errorf("expected the innermost binding, got: %s", s)
	}
	if _, exists := stack.Resolve("v0"); exists {
		t.Errorf("caller variable leaked into the closure")
	}
	stack.Pop(mark, nil)
	if x.Destroyed() {
		t.Errorf("closure bindings are never destroyed")
	}
	if closure[1].Value == nil {
		t.Errorf("captured value was released")
	}
}
