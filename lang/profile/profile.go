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

// Package profile contains the profilers which the evaluator calls around the
// evaluation of every node of a tree.
package profile

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

// Noop is the disabled profiler. It is what runs when profiling is off.
type Noop struct{}

// Enabled returns false, so none of the other methods get called.
func (obj *Noop) Enabled() bool { return false }

// Start does nothing.
func (obj *Noop) Start(expr interfaces.Expr, contextSeq types.Sequence) {}

// End does nothing.
func (obj *Noop) End(expr interfaces.Expr, result types.Sequence) {}

// Message does nothing.
func (obj *Noop) Message(expr interfaces.Expr, kind, title, msg string) {}

// Kind returns the short name of the node type, such as ExprFor.
func Kind(expr interfaces.Expr) string {
	s := fmt.Sprintf("%T", expr)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return strings.TrimPrefix(s, "*")
}

// timer measures the time between Start and End. A node can be entered again
// before it ends because of recursion, and several queries can share one
// profiler, so every node gets its own stack of start times.
type timer struct {
	mutex  sync.Mutex
	starts map[interfaces.Expr][]time.Time
}

// start pushes the current time for the node.
func (obj *timer) start(expr interfaces.Expr) {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	if obj.starts == nil {
		obj.starts = make(map[interfaces.Expr][]time.Time)
	}
	obj.starts[expr] = append(obj.starts[expr], time.Now())
}

// end pops the start time of the node and returns the elapsed time. It returns
// false if the node was never started.
func (obj *timer) end(expr interfaces.Expr) (time.Duration, bool) {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	starts := obj.starts[expr]
	if len(starts) == 0 {
		return 0, false
	}
	t := starts[len(starts)-1]
	if len(starts) == 1 {
		delete(obj.starts, expr)
	} else {
		obj.starts[expr] = starts[:len(starts)-1]
	}
	return time.Since(t), true
}

// length returns the number of items of a result, or -1 for a failure.
func length(result types.Sequence) int {
	if result == nil {
		return -1
	}
	if _, ok := result.(types.Realizer); ok {
		return -1 // don't force a deferred call
	}
	return result.Len()
}
