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

package profile

import (
	"fmt"
	"sync"

	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"

	"golang.org/x/time/rate"
)

const (
	// DefaultMessageLimit is the number of messages per second which the
	// logger lets through by default.
	DefaultMessageLimit = rate.Limit(10)

	// DefaultMessageBurst is the default burst of the message limiter.
	DefaultMessageBurst = 20
)

// Logger is a profiler which writes to the log. The optimizer messages are
// rate limited, since a hot loop can produce one per iteration.
type Logger struct {
	// Verbose logs the evaluation time of every node, and not just the
	// messages.
	Verbose bool

	// Limit is the number of messages per second. Zero means
	// DefaultMessageLimit.
	Limit rate.Limit

	// Burst is the burst size of the message limiter. Zero means
	// DefaultMessageBurst.
	Burst int

	// Logf is a logger which should be used.
	Logf func(format string, v ...interface{})

	timer   *timer
	limiter *rate.Limiter

	mutex   sync.Mutex
	dropped int
}

// Init prepares the logger.
func (obj *Logger) Init() error {
	if obj.Logf == nil {
		return fmt.Errorf("the Logf function is missing")
	}
	if obj.Limit == 0 {
		obj.Limit = DefaultMessageLimit
	}
	if obj.Burst == 0 {
		obj.Burst = DefaultMessageBurst
	}
	obj.timer = &timer{}
	obj.limiter = rate.NewLimiter(obj.Limit, obj.Burst)
	return nil
}

// Enabled returns true.
func (obj *Logger) Enabled() bool { return true }

// Start records the start of a node.
func (obj *Logger) Start(expr interfaces.Expr, contextSeq types.Sequence) {
	if !obj.Verbose {
		return
	}
	obj.timer.start(expr)
}

// End logs the evaluation time of a node.
func (obj *Logger) End(expr interfaces.Expr, result types.Sequence) {
	if !obj.Verbose {
		return
	}
	d, ok := obj.timer.end(expr)
	if !ok {
		return
	}
	n := length(result)
	if n < 0 {
		obj.Logf("profile: %s: done in %s", Kind(expr), d)
		return
	}
	obj.Logf("profile: %s: %d items in %s", Kind(expr), n, d)
}

// Message logs an optimizer message unless the limit was reached.
func (obj *Logger) Message(expr interfaces.Expr, kind, title, msg string) {
	if !obj.limiter.Allow() {
		obj.mutex.Lock()
		obj.dropped++
		obj.mutex.Unlock()
		return
	}
	obj.Logf("profile: %s: %s: %s: %s", kind, Kind(expr), title, msg)
}

// Dropped returns the number of messages that were over the limit.
func (obj *Logger) Dropped() int {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	return obj.dropped
}
