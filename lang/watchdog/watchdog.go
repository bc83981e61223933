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

// Package watchdog stops queries which run too long, were cancelled, or build
// results which are too large.
package watchdog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/interfaces"

	"github.com/dustin/go-humanize"
)

// DefaultPollEvery is how many polls pass between two looks at the context.
const DefaultPollEvery = 64

// Watchdog is polled by the evaluator. It terminates the query once the
// context is done or a buffered result grows past MaxOutputItems.
type Watchdog struct {
	// Context is the lifetime of the query. Its deadline is the timeout.
	Context context.Context

	// MaxOutputItems bounds the number of items which a node may buffer.
	// Zero means no limit.
	MaxOutputItems int

	// PollEvery is how many polls pass between two looks at the context.
	// Zero means DefaultPollEvery.
	PollEvery int

	// Debug represents if we're running in debug mode or not.
	Debug bool

	// Logf is a logger which should be used.
	Logf func(format string, v ...interface{})

	started time.Time
	polls   uint64
	err     atomic.Value // *errcode.TerminatedError
}

// Init prepares the watchdog.
func (obj *Watchdog) Init() error {
	if obj.Context == nil {
		return fmt.Errorf("the Context is missing")
	}
	if obj.MaxOutputItems < 0 {
		return fmt.Errorf("invalid MaxOutputItems: %d", obj.MaxOutputItems)
	}
	if obj.PollEvery <= 0 {
		obj.PollEvery = DefaultPollEvery
	}
	if obj.Logf == nil {
		obj.Logf = func(format string, v ...interface{}) {}
	}
	obj.started = time.Now()
	return nil
}

// Proceed returns a termination error once the context is done. The context
// is only looked at every PollEvery calls, but a termination is sticky.
func (obj *Watchdog) Proceed(expr interfaces.Expr) error {
	if err := obj.terminated(); err != nil {
		return err
	}
	if atomic.AddUint64(&obj.polls, 1)%uint64(obj.PollEvery) != 0 {
		return nil
	}
	select {
	case <-obj.Context.Done():
	default:
		return nil
	}
	reason := errcode.ReasonKilled
	if obj.Context.Err() == context.DeadlineExceeded {
		reason = errcode.ReasonTimeout
	}
	return obj.terminate(&errcode.TerminatedError{
		Reason: reason,
		Msg:    fmt.Sprintf("stopped in %s after %s", expr, time.Since(obj.started).Round(time.Millisecond)),
	})
}

// ProceedOutput returns a termination error if the number of buffered items
// is over the limit.
func (obj *Watchdog) ProceedOutput(expr interfaces.Expr, items int) error {
	if err := obj.terminated(); err != nil {
		return err
	}
	if obj.MaxOutputItems == 0 || items <= obj.MaxOutputItems {
		return nil
	}
	return obj.terminate(&errcode.TerminatedError{
		Reason: errcode.ReasonOutputSize,
		Msg:    fmt.Sprintf("%s items in %s, the limit is %s", humanize.Comma(int64(items)), expr, humanize.Comma(int64(obj.MaxOutputItems))),
	})
}

// Err returns the termination error, or nil if the query wasn't stopped.
func (obj *Watchdog) Err() error {
	if err := obj.terminated(); err != nil {
		return err
	}
	return nil
}

// terminated returns the stored termination.
func (obj *Watchdog) terminated() *errcode.TerminatedError {
	err, _ := obj.err.Load().(*errcode.TerminatedError)
	return err
}

// terminate stores the first termination and returns it.
func (obj *Watchdog) terminate(err *errcode.TerminatedError) error {
	if !obj.err.CompareAndSwap(nil, err) {
		return obj.terminated()
	}
	if obj.Debug {
		obj.Logf("watchdog: %s", err)
	}
	return err
}
