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

package interfaces

import (
	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/scope"
	"github.com/purpleidea/xqeval/lang/types"
)

// Profiler is consulted around the evaluation of every node. It must be a cheap
// no-op when it is disabled. Callers check Enabled first.
type Profiler interface {
	// Enabled returns true if the other methods should be called.
	Enabled() bool

	// Start is called before a node is evaluated.
	Start(expr Expr, contextSeq types.Sequence)

	// End is called after a node was evaluated. The result is nil if the
	// evaluation failed.
	End(expr Expr, result types.Sequence)

	// Message records a free form message about a node.
	Message(expr Expr, kind, title, msg string)
}

// Watchdog is polled cooperatively during evaluation. It returns an
// *errcode.TerminatedError once the query must stop.
type Watchdog interface {
	// Proceed is polled when entering a step, entering a function body,
	// and in every loop body.
	Proceed(expr Expr) error

	// ProceedOutput is polled before buffering items into a result.
	ProceedOutput(expr Expr, items int) error
}

// DocumentSource is the storage layer as seen by the engine.
type DocumentSource interface {
	// Document returns the persistent node set of the document root.
	Document(uri string) (types.Sequence, error)

	// Subscribe registers a listener which is called with the uri of
	// every document that changed. The returned function unsubscribes.
	Subscribe(fn func(uri string)) (cancel func())
}

// FLWORFrame is the state of one running FLWOR expression. Frames are kept on
// the env rather than on the clause nodes, so that a FLWOR which is entered
// again by recursion doesn't see the buffers of its caller.
type FLWORFrame struct {
	// Mark is the position of the stack before the first clause bound
	// anything.
	Mark *scope.Mark

	// State holds the per clause buffers, keyed by the clause.
	State map[Expr]interface{}
}

// Env is the dynamic environment of one query evaluation. It is exclusively
// owned by that evaluation and is not safe for concurrent use.
type Env struct {
	// Stack holds the local variables.
	Stack *scope.Stack

	// Globals holds the values of the global variables.
	Globals map[string]types.Sequence

	// Static is the static context the tree was analyzed with.
	Static *StaticContext

	// Documents is the storage layer. It can be nil.
	Documents DocumentSource

	// Profiler is consulted around every evaluation. It can be nil.
	Profiler Profiler

	// Watchdog is polled during evaluation. It can be nil.
	Watchdog Watchdog

	// Collation is the default collation.
	Collation types.Collator

	// MaxCallDepth bounds the depth of function calls which aren't tail
	// calls. Zero means DefaultMaxCallDepth.
	MaxCallDepth int

	// Debug represents if we're running in debug mode or not.
	Debug bool

	// Logf is a logger which should be used.
	Logf func(format string, v ...interface{})

	calls  []*Signature
	active map[string]int

	frames []*FLWORFrame

	focus    bool
	position int
	size     int
}

// Init validates the env and fills in the defaults.
func (obj *Env) Init() error {
	if obj.Stack == nil {
		obj.Stack = scope.New()
	}
	if obj.Globals == nil {
		obj.Globals = make(map[string]types.Sequence)
	}
	if obj.Static == nil {
		obj.Static = &StaticContext{}
	}
	if obj.MaxCallDepth <= 0 {
		obj.MaxCallDepth = DefaultMaxCallDepth
	}
	if obj.Logf == nil {
		obj.Logf = func(format string, v ...interface{}) {}
	}
	obj.calls = []*Signature{}
	obj.active = make(map[string]int)
	obj.frames = []*FLWORFrame{}
	return nil
}

// Profiling returns true if the profiler should be called.
func (obj *Env) Profiling() bool {
	return obj.Profiler != nil && obj.Profiler.Enabled()
}

// Proceed polls the watchdog.
func (obj *Env) Proceed(expr Expr) error {
	if obj.Watchdog == nil {
		return nil
	}
	return obj.Watchdog.Proceed(expr)
}

// ProceedOutput polls the watchdog before buffering items.
func (obj *Env) ProceedOutput(expr Expr, items int) error {
	if obj.Watchdog == nil {
		return nil
	}
	return obj.Watchdog.ProceedOutput(expr, items)
}

// FunctionStart records that a function body is being entered. It errors if
// the call depth bound would be exceeded.
func (obj *Env) FunctionStart(sig *Signature) error {
	if len(obj.calls) >= obj.MaxCallDepth {
		return errcode.New(errcode.EXXQDY0003, errcode.KindStackOverflow, "maximum call depth of %d exceeded in %s", obj.MaxCallDepth, sig.Key())
	}
	obj.calls = append(obj.calls, sig)
	obj.active[sig.Key()]++
	return nil
}

// FunctionEnd records that the innermost function body was left.
func (obj *Env) FunctionEnd() {
	n := len(obj.calls)
	if n == 0 {
		return
	}
	key := obj.calls[n-1].Key()
	obj.calls = obj.calls[:n-1]
	if obj.active[key]--; obj.active[key] <= 0 {
		delete(obj.active, key)
	}
}

// InCall returns true if the function is executing somewhere on the call
// stack.
func (obj *Env) InCall(sig *Signature) bool {
	return obj.active[sig.Key()] > 0
}

// CallDepth returns the number of function bodies being executed.
func (obj *Env) CallDepth() int {
	return len(obj.calls)
}

// PushFrame starts the state of a new FLWOR expression.
func (obj *Env) PushFrame(mark *scope.Mark) *FLWORFrame {
	frame := &FLWORFrame{
		Mark:  mark,
		State: make(map[Expr]interface{}),
	}
	obj.frames = append(obj.frames, frame)
	return frame
}

// PopFrame drops the state of the innermost FLWOR expression.
func (obj *Env) PopFrame() {
	if n := len(obj.frames); n > 0 {
		obj.frames = obj.frames[:n-1]
	}
}

// Frame returns the state of the innermost FLWOR expression.
func (obj *Env) Frame() (*FLWORFrame, bool) {
	n := len(obj.frames)
	if n == 0 {
		return nil, false
	}
	return obj.frames[n-1], true
}

// SetFocus sets the context position and size and returns a function which
// restores the previous focus.
func (obj *Env) SetFocus(position, size int) func() {
	focus, p, s := obj.focus, obj.position, obj.size
	obj.focus, obj.position, obj.size = true, position, size
	return func() {
		obj.focus, obj.position, obj.size = focus, p, s
	}
}

// ClearFocus removes the focus, as on entry of a function body, and returns a
// function which restores it.
func (obj *Env) ClearFocus() func() {
	focus, p, s := obj.focus, obj.position, obj.size
	obj.focus, obj.position, obj.size = false, 0, 0
	return func() {
		obj.focus, obj.position, obj.size = focus, p, s
	}
}

// Focus returns the one-based context position and the context size. The
// boolean is false if there is no focus.
func (obj *Env) Focus() (int, int, bool) {
	return obj.position, obj.size, obj.focus
}

// Logger returns a logger which is never nil.
func (obj *Env) Logger() func(format string, v ...interface{}) {
	if obj.Logf == nil {
		return func(format string, v ...interface{}) {}
	}
	return obj.Logf
}
