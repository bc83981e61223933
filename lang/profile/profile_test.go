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

package profile

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/purpleidea/xqeval/lang/ast"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"

	"golang.org/x/time/rate"
)

// query is: for $x in 1 to 9 where $x mod 3 eq 0 return $x
func query(t *testing.T) interfaces.Expr {
	x := func() interfaces.Expr { return &ast.ExprVar{Name: "x"} }
	body, err := ast.NewFLWOR([]ast.Clause{
		&ast.ExprFor{Var: "x", In: &ast.ExprRange{Start: &ast.ExprInt{V: 1}, End: &ast.ExprInt{V: 9}}},
		&ast.ExprWhere{Condition: &ast.ExprCompare{
			Op:    ast.OpEq,
			Left:  &ast.ExprArith{Op: types.OpMod, Left: x(), Right: &ast.ExprInt{V: 3}},
			Right: &ast.ExprInt{V: 0},
		}},
	}, x())
	if err != nil {
		t.Fatalf("flwor failed: %+v", err)
	}
	return body
}

func run(t *testing.T, profiler interfaces.Profiler) {
	prog := &ast.Program{Body: query(t)}
	static := &interfaces.StaticContext{Logf: t.Logf}
	if err := prog.Analyze(static); err != nil {
		t.Fatalf("analyze failed: %+v", err)
	}
	env := &interfaces.Env{
		Static:   static,
		Profiler: profiler,
		Logf:     t.Logf,
	}
	if err := env.Init(); err != nil {
		t.Fatalf("init failed: %+v", err)
	}
	result, err := prog.Eval(env, nil)
	if err != nil {
		t.Fatalf("eval failed: %+v", err)
	}
	if s := types.SequenceString(result); s != "(3, 6, 9)" {
		t.Errorf("unexpected result: %s", s)
	}
}

func TestKind(t *testing.T) {
	if k := Kind(&ast.ExprFor{}); k != "ExprFor" {
		t.Errorf("unexpected kind: %s", k)
	}
}

func TestNoop(t *testing.T) {
	obj := &Noop{}
	if obj.Enabled() {
		t.Errorf("noop profiler is enabled")
	}
	run(t, obj)
}

func TestLogger(t *testing.T) {
	mutex := &sync.Mutex{}
	lines := []string{}
	obj := &Logger{
		Verbose: true,
		Logf: func(format string, v ...interface{}) {
			mutex.Lock()
			defer mutex.Unlock()
			lines = append(lines, fmt.Sprintf(format, v...))
		},
	}
	if err := obj.Init(); err != nil {
		t.Errorf("init failed: %+v", err)
		return
	}
	run(t, obj)

	found := map[string]bool{}
	for _, line := range lines {
		switch {
		case strings.Contains(line, "ExprWhere: where filter: kept 3 of 9 items of $x"):
			found["message"] = true
		case strings.HasPrefix(line, "profile: ExprFor: 3 items in "):
			found["timing"] = true
		}
	}
	if !found["message"] || !found["timing"] {
		t.Errorf("missing log lines, got: %s", strings.Join(lines, "\n"))
	}
}

func TestLoggerLimit(t *testing.T) {
	count := 0
	obj := &Logger{
		Limit: rate.Every(time.Hour),
		Burst: 1,
		Logf: func(format string, v ...interface{}) {
			count++
		},
	}
	if err := obj.Init(); err != nil {
		t.Errorf("init failed: %+v", err)
		return
	}
	expr := &ast.ExprInt{V: 1}
	for i := 0; i < 3; i++ {
		obj.Message(expr, "OPTIMIZATION", "test", "hello")
	}
	if count != 1 || obj.Dropped() != 2 {
		t.Errorf("unexpected counts: %d logged, %d dropped", count, obj.Dropped())
	}
}

func TestPrometheus(t *testing.T) {
	obj := &Prometheus{}
	if err := obj.Init(); err != nil {
		t.Errorf("init failed: %+v", err)
		return
	}
	run(t, obj)

	metrics, err := obj.Gatherer().Gather()
	if err != nil {
		t.Errorf("error while gathering metrics: %s", err)
		return
	}

	// the values are the sum of the counters for every kind
	totals := map[string]float64{}
	kinds := map[string]bool{}
	for _, metric := range metrics {
		for _, m := range metric.Metric {
			switch {
			case m.Counter != nil:
				totals[*metric.Name] += m.Counter.GetValue()
			case m.Histogram != nil:
				totals[*metric.Name] += float64(m.Histogram.GetSampleCount())
			}
			for _, label := range m.Label {
				if label.GetName() == "kind" && *metric.Name == "xqeval_eval_total" {
					kinds[label.GetValue()] = true
				}
			}
		}
	}
	if totals["xqeval_eval_total"] == 0 || totals["xqeval_eval_total"] != totals["xqeval_eval_seconds"] {
		t.Errorf("unexpected eval totals: %v", totals)
	}
	if totals["xqeval_messages_total"] != 1 {
		t.Errorf("expected one message, got: %v", totals["xqeval_messages_total"])
	}
	for _, kind := range []string{"ExprFor", "ExprWhere", "ExprRange"} {
		if !kinds[kind] {
			t.Errorf("no evaluation of %s was counted", kind)
		}
	}
}
