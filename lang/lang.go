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

// Package lang is the query engine. It analyzes a tree once and evaluates it
// as often as needed, each time under a fresh watchdog.
package lang

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/purpleidea/xqeval/lang/ast"
	"github.com/purpleidea/xqeval/lang/collation"
	"github.com/purpleidea/xqeval/lang/funcs"
	_ "github.com/purpleidea/xqeval/lang/funcs/core" // import so the funcs register
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/lang/watchdog"
	"github.com/purpleidea/xqeval/util/errwrap"

	"github.com/google/uuid"
)

// Limits are the resource bounds of every evaluation. Zero values pick the
// defaults.
type Limits struct {
	// MaxCallDepth bounds the number of nested function bodies.
	MaxCallDepth int `yaml:"max-call-depth"`

	// MaxOutputItems bounds the number of items a node may buffer. Zero
	// means no limit.
	MaxOutputItems int `yaml:"max-output-items"`
}

// Lang is the main query engine object.
type Lang struct {
	// Program is the tree to run. It is analyzed once by Init.
	Program *ast.Program

	// Store is where the document lookups read from. It may be nil.
	Store interfaces.DocumentSource

	// Profiler receives the timings and messages of every node. It may be
	// nil.
	Profiler interfaces.Profiler

	Limits Limits

	// Timeout bounds the run time of every evaluation. Zero means none.
	Timeout time.Duration

	// DefaultCollation is the collation URI used when a query names none.
	DefaultCollation string

	Debug bool
	Logf  func(format string, v ...interface{})

	static    *interfaces.StaticContext
	collation types.Collator

	mutex  sync.Mutex // one evaluation of the tree at a time
	closed bool
}

// Init analyzes the program. Every static error is reported here.
func (obj *Lang) Init() error {
	if obj.Program == nil {
		return fmt.Errorf("the Program is missing")
	}
	if obj.Logf == nil {
		return fmt.Errorf("the Logf function is missing")
	}
	if obj.Limits.MaxCallDepth < 0 || obj.Limits.MaxOutputItems < 0 {
		return fmt.Errorf("invalid limits: %+v", obj.Limits)
	}
	if obj.Program.Library == nil {
		obj.Program.Library = &funcs.Library{}
	}

	c, err := collation.Lookup(obj.DefaultCollation)
	if err != nil {
		return errwrap.Wrapf(err, "could not load the default collation")
	}
	obj.collation = c

	obj.static = &interfaces.StaticContext{
		DefaultCollation: obj.DefaultCollation,
		Debug:            obj.Debug,
		Logf: func(format string, v ...interface{}) {
			obj.Logf("ast: "+format, v...)
		},
	}

	obj.Logf("analyzing...")
	if err := obj.Program.Analyze(obj.static); err != nil {
		return errwrap.Wrapf(err, "could not analyze the query")
	}
	if obj.Debug {
		obj.Logf("behold, the tree: %s", ast.Dump(obj.Program.Body))
	}
	return nil
}

// Eval runs the analyzed program. The externals are the values of the
// external variables, and the context item may be nil. It can be called many
// times, but the runs don't overlap.
func (obj *Lang) Eval(ctx context.Context, contextItem types.Item, externals map[string]types.Sequence) (types.Sequence, error) {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	if obj.closed {
		return nil, fmt.Errorf("the engine is closed")
	}
	if obj.static == nil {
		return nil, fmt.Errorf("the engine was not initialized")
	}

	if obj.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, obj.Timeout)
		defer cancel()
	}

	id := uuid.New().String()
	logf := func(format string, v ...interface{}) {
		obj.Logf("run(%s): "+format, append([]interface{}{id}, v...)...)
	}

	wd := &watchdog.Watchdog{
		Context:        ctx,
		MaxOutputItems: obj.Limits.MaxOutputItems,
		Debug:          obj.Debug,
		Logf:           logf,
	}
	if err := wd.Init(); err != nil {
		return nil, errwrap.Wrapf(err, "could not start the watchdog")
	}

	globals := make(map[string]types.Sequence, len(externals))
	for name, seq := range externals {
		globals[name] = seq
	}
	env := &interfaces.Env{
		Globals:      globals,
		Static:       obj.static,
		Documents:    obj.Store,
		Profiler:     obj.Profiler,
		Watchdog:     wd,
		Collation:    obj.collation,
		MaxCallDepth: obj.Limits.MaxCallDepth,
		Debug:        obj.Debug,
		Logf:         logf,
	}
	if err := env.Init(); err != nil {
		return nil, err
	}

	started := time.Now()
	seq, err := obj.Program.Eval(env, contextItem)
	if obj.Debug {
		logf("done in %s", time.Since(started))
	}
	if err != nil {
		return nil, err
	}
	return seq, nil
}

// ResetState resets the tree so that it can run again after it was changed.
func (obj *Lang) ResetState(postOptimization bool) {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	obj.Program.ResetState(postOptimization)
}

// Close drops the document listeners of the tree. It must be called when
// finished after any successful Init ran.
func (obj *Lang) Close() error {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	if obj.closed {
		return nil
	}
	obj.closed = true
	return obj.Program.Close()
}
