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

// Package scope implements the variable stack of a query evaluation. Lexical
// scoping uses this one explicit stack rather than the native call stack, so
// that scopes survive deferred tail calls and the native recursion depth can
// be bounded independently.
//
// Bindings are kept in a doubly linked chain. A new region (a function body)
// starts a context boundary which hides every binding declared before it.
package scope

import (
	"fmt"
	"strings"

	"github.com/purpleidea/xqeval/lang/types"
)

// Binding is a variable binding.
type Binding struct {
	Name  string
	Value types.Sequence

	// Type is the declared or inferred static type.
	Type types.SequenceType

	// StackPos is the depth of the stack when this was declared.
	StackPos int

	// Closure is set on bindings restored from a captured closure. They
	// are never destroyed by Pop since other function values may still
	// share them.
	Closure bool

	before    *Binding
	after     *Binding
	destroyed bool
}

// Before returns the previously declared binding.
func (obj *Binding) Before() *Binding { return obj.before }

// After returns the next declared binding.
func (obj *Binding) After() *Binding { return obj.after }

// Destroyed returns true if the binding was removed by Pop.
func (obj *Binding) Destroyed() bool { return obj.destroyed }

// String returns a visual representation of the binding.
func (obj *Binding) String() string {
	return fmt.Sprintf("$%s", obj.Name)
}

// destroy releases the value of the binding.
func (obj *Binding) destroy() {
	obj.Value = nil
	obj.destroyed = true
}

// Mark is a checkpoint returned by Stack.Mark. It is opaque to callers.
type Mark struct {
	binding    *Binding
	size       int
	newContext bool
	contexts   int
}

// Stack is the variable stack. It is exclusively owned by a single query
// evaluation and is not safe for concurrent use.
type Stack struct {
	root *Binding // sentinel, never popped
	last *Binding

	// contexts holds the boundary of each open context. Resolve stops when
	// it walks past the innermost one.
	contexts []*Binding

	size int
}

// New returns an empty stack.
func New() *Stack {
	root := &Binding{Name: ""}
	return &Stack{
		root:     root,
		last:     root,
		contexts: []*Binding{},
	}
}

// Size returns the number of live bindings.
func (obj *Stack) Size() int {
	return obj.size
}

// Mark returns a checkpoint for a later Pop. If newContext is true, then the
// bindings declared so far are hidden until the matching Pop, which is what a
// function body needs.
func (obj *Stack) Mark(newContext bool) *Mark {
	m := &Mark{
		binding:    obj.last,
		size:       obj.size,
		newContext: newContext,
		contexts:   len(obj.contexts),
	}
	if newContext {
		obj.contexts = append(obj.contexts, obj.last)
	}
	return m
}

// Declare adds a binding on top of the stack and returns it.
func (obj *Stack) Declare(b *Binding) *Binding {
	b.before = obj.last
	b.after = nil
	b.StackPos = obj.size
	b.destroyed = false
	obj.last.after = b
	obj.last = b
	obj.size++
	return b
}

// Bind is a helper which declares a new binding with a name and value.
func (obj *Stack) Bind(name string, value types.Sequence, typ types.SequenceType) *Binding {
	return obj.Declare(&Binding{
		Name:  name,
		Value: value,
		Type:  typ,
	})
}

// Pop removes every binding declared since the mark, on both the normal and
// the error paths. Bindings whose value is still held by the result sequence
// are unlinked but not destroyed, so that a result which hasn't been realized
// yet still sees them. Closure bindings are never destroyed.
func (obj *Stack) Pop(mark *Mark, result types.Sequence) {
	holder, _ := result.(types.Holder)
	for b := mark.binding.after; b != nil; {
		next := b.after
		b.before, b.after = nil, nil
		if !b.Closure && (holder == nil || b.Value == nil || !holder.Holds(b.Value)) {
			b.destroy()
		}
		b = next
	}
	mark.binding.after = nil
	obj.last = mark.binding
	obj.size = mark.size
	if len(obj.contexts) > mark.contexts {
		obj.contexts = obj.contexts[:mark.contexts]
	}
}

// boundary returns the binding which starts the current context.
func (obj *Stack) boundary() *Binding {
	if n := len(obj.contexts); n > 0 {
		return obj.contexts[n-1]
	}
	return obj.root
}

// Resolve finds the innermost visible binding with this name.
func (obj *Stack) Resolve(name string) (*Binding, bool) {
	stop := obj.boundary()
	for b := obj.last; b != nil && b != stop; b = b.before {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Since returns the bindings declared after the mark, oldest first.
func (obj *Stack) Since(mark *Mark) []*Binding {
	result := []*Binding{}
	for b := mark.binding.after; b != nil; b = b.after {
		result = append(result, b)
	}
	return result
}

// Locals returns every binding visible in the current context, oldest first.
// Shadowed bindings are included.
func (obj *Stack) Locals() []*Binding {
	stop := obj.boundary()
	result := []*Binding{}
	for b := obj.last; b != nil && b != stop; b = b.before {
		result = append(result, b)
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 { // reverse
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// String returns a visual representation of the visible bindings.
func (obj *Stack) String() string {
	s := []string{}
	for _, b := range obj.Locals() {
		s = append(s, b.String())
	}
	return "[" + strings.Join(s, ", ") + "]"
}

// Closure is a snapshot of the bindings that were visible when a function
// value was created.
type Closure []*Binding

// Capture snapshots every visible binding. The values are shared by reference
// since sequences are immutable once bound.
func (obj *Stack) Capture() Closure {
	locals := obj.Locals()
	result := make(Closure, 0, len(locals))
	for _, b := range locals {
		result = append(result, &Binding{
			Name:    b.Name,
			Value:   b.Value,
			Type:    b.Type,
			Closure: true,
		})
	}
	return result
}

// Restore declares the captured bindings again, in their original order, so
// that the innermost binding of a name wins. It is used right after a Mark
// with a new context, before the function body runs.
func (obj *Stack) Restore(closure Closure) {
	for _, b := range closure {
		obj.Declare(&Binding{
			Name:    b.Name,
			Value:   b.Value,
			Type:    b.Type,
			Closure: true,
		})
	}
}
