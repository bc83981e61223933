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

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	cliUtil "github.com/purpleidea/xqeval/cli/util"
	"github.com/purpleidea/xqeval/lang"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/profile"
	"github.com/purpleidea/xqeval/lang/store"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/lang/yamlexpr"
	"github.com/purpleidea/xqeval/util/errwrap"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// RunArgs is the CLI parsing structure and type of the parsed result. This
// particular one contains all the flags for the `run` subcommand. The flags
// override the values of the config file.
type RunArgs struct {
	Config string `arg:"--config" help:"yaml config file"`

	Documents string `arg:"--documents" help:"directory of xml documents to load"`
	Watch     bool   `arg:"--watch" help:"evaluate again whenever a document changes"`

	MaxCallDepth   int    `arg:"--max-call-depth" help:"maximum number of nested function calls"`
	MaxOutputItems int    `arg:"--max-output-items" help:"maximum number of items a node may buffer"`
	Timeout        string `arg:"--timeout" help:"maximum run time of one evaluation, eg: 30s"`
	Collation      string `arg:"--default-collation" help:"default collation uri"`

	Profile string `arg:"--profile" help:"profiler: none, log or prometheus"`
	Listen  string `arg:"--listen" help:"listen address of the prometheus metrics"`

	Queries []string `arg:"positional,required" help:"yaml query files"`
}

// config reads the config file and applies the flags on top of it.
func (obj *RunArgs) config(fs afero.Fs) (*Config, error) {
	config, err := ReadConfig(fs, obj.Config)
	if err != nil {
		return nil, err
	}
	if obj.Documents != "" {
		config.Documents = obj.Documents
	}
	if obj.Watch {
		config.Watch = true
	}
	if obj.MaxCallDepth != 0 {
		config.Limits.MaxCallDepth = obj.MaxCallDepth
	}
	if obj.MaxOutputItems != 0 {
		config.Limits.MaxOutputItems = obj.MaxOutputItems
	}
	if obj.Timeout != "" {
		config.Timeout = obj.Timeout
	}
	if obj.Collation != "" {
		config.DefaultCollation = obj.Collation
	}
	if obj.Profile != "" {
		config.Profile.Mode = obj.Profile
	}
	if obj.Listen != "" {
		config.Profile.Listen = obj.Listen
	}
	if config.Watch && config.Documents == "" {
		return nil, fmt.Errorf("watch needs a documents directory")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// query is one loaded query file.
type query struct {
	name   string
	engine *lang.Lang
}

// Run executes the `run` subcommand. It loads the documents, analyzes every
// query and evaluates them concurrently. In watch mode it keeps evaluating
// them after every document change until it is interrupted.
func (obj *RunArgs) Run(ctx context.Context, data *cliUtil.Data) (bool, error) {
	fs := afero.NewOsFs()
	config, err := obj.config(fs)
	if err != nil {
		return false, cliUtil.CliParseError(err)
	}
	timeout, err := config.Duration()
	if err != nil {
		return false, err
	}

	cliUtil.Hello(data.Program, data.Version, data.Flags) // say hello!
	Logf := func(format string, v ...interface{}) {
		data.Flags.Logf("main: "+format, v...)
	}
	defer Logf("goodbye!")

	ctx, cancel := interruptContext(ctx, Logf)
	defer cancel()

	documents := &store.Store{
		Debug: data.Flags.Debug,
		Logf: func(format string, v ...interface{}) {
			data.Flags.Logf("store: "+format, v...)
		},
	}
	if err := documents.Init(); err != nil {
		return false, err
	}
	if config.Documents != "" {
		if err := documents.LoadDir(fs, config.Documents); err != nil {
			return false, errwrap.Wrapf(err, "could not load the documents")
		}
		Logf("loaded %d documents", len(documents.URIs()))
	}

	var profiler interfaces.Profiler = &profile.Noop{}
	var metrics *profile.Prometheus
	switch config.Profile.Mode {
	case ProfileLog:
		logger := &profile.Logger{
			Verbose: data.Flags.Verbose,
			Logf:    data.Flags.Logf,
		}
		if err := logger.Init(); err != nil {
			return false, err
		}
		defer func() {
			if n := logger.Dropped(); n > 0 {
				Logf("profiler dropped %d messages", n)
			}
		}()
		profiler = logger

	case ProfilePrometheus:
		metrics = &profile.Prometheus{
			Listen: config.Profile.Listen,
			Logf:   data.Flags.Logf,
		}
		if err := metrics.Init(); err != nil {
			return false, err
		}
		profiler = metrics
	}

	queries := []*query{}
	defer func() {
		for _, q := range queries {
			if err := q.engine.Close(); err != nil {
				Logf("close of %s failed: %+v", q.name, err)
			}
		}
	}()
	for _, name := range obj.Queries {
		code, err := afero.ReadFile(fs, name)
		if err != nil {
			return false, errwrap.Wrapf(err, "can't read %s", name)
		}
		prog, err := yamlexpr.Parse(code)
		if err != nil {
			return false, errwrap.Wrapf(err, "can't parse %s", name)
		}
		engine := &lang.Lang{
			Program:          prog,
			Store:            documents,
			Profiler:         profiler,
			Limits:           config.Limits,
			Timeout:          timeout,
			DefaultCollation: config.DefaultCollation,
			Debug:            data.Flags.Debug,
			Logf: func(format string, v ...interface{}) {
				data.Flags.Logf("lang: "+format, v...)
			},
		}
		if err := engine.Init(); err != nil {
			return false, errwrap.Wrapf(err, "%s", name)
		}
		queries = append(queries, &query{name: name, engine: engine})
	}

	wg, ctx := errgroup.WithContext(ctx)
	if metrics != nil {
		Logf("serving metrics on %s", metrics.Listen)
		wg.Go(func() error {
			return metrics.Run(ctx)
		})
	}

	if !config.Watch {
		wg.Go(func() error {
			defer cancel() // stops the metrics listener
			return evaluate(ctx, queries)
		})
		if err := wg.Wait(); err != nil {
			return false, err
		}
		return true, nil
	}

	// coalesce the document events, one pending run is enough
	changed := make(chan struct{}, 1)
	unsubscribe := documents.Subscribe(func(uri string) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	wg.Go(func() error {
		return documents.Watch(ctx, config.Documents)
	})
	wg.Go(func() error {
		for {
			if err := evaluate(ctx, queries); err != nil {
				Logf("%+v", err) // keep watching
			}
			select {
			case <-changed:
				Logf("documents changed")
			case <-ctx.Done():
				return nil
			}
		}
	})
	if err := wg.Wait(); err != nil {
		return false, err
	}
	return true, nil
}

// evaluate runs every query concurrently and prints the results in the order
// of the queries. It errors if any of them failed.
func evaluate(ctx context.Context, queries []*query) error {
	results := make([]types.Sequence, len(queries))
	errs := make([]error, len(queries))

	wg := &errgroup.Group{}
	wg.SetLimit(runtime.NumCPU())
	for i, q := range queries {
		i, q := i, q
		wg.Go(func() error {
			results[i], errs[i] = q.engine.Eval(ctx, nil, nil)
			return nil // each query reports its own error
		})
	}
	_ = wg.Wait()

	var reterr error
	for i, q := range queries {
		if err := errs[i]; err != nil {
			fmt.Printf("%s: error: %v\n", q.name, err)
			reterr = errwrap.Append(reterr, errwrap.Wrapf(err, "%s", q.name))
			continue
		}
		fmt.Printf("%s: %s\n", q.name, types.SequenceString(results[i]))
	}
	return reterr
}

// interruptContext returns a context which is cancelled on ^C or SIGTERM.
func interruptContext(ctx context.Context, logf func(format string, v ...interface{})) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	// must have buffer for max number of signals
	signals := make(chan os.Signal, 1+1) // 1 * ^C + 1 * SIGTERM
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(signals)
		select {
		case sig := <-signals:
			logf("interrupted by %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
