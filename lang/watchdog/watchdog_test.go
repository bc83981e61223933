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

package watchdog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/purpleidea/xqeval/lang/ast"
	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/util/errwrap"
)

// loop is: for $x in 1 to 1000000 return $x
func loop(t *testing.T) interfaces.Expr {
	body, err := ast.NewFLWOR([]ast.Clause{
		&ast.ExprFor{Var: "x", In: &ast.ExprRange{Start: &ast.ExprInt{V: 1}, End: &ast.ExprInt{V: 1000000}}},
	}, &ast.ExprVar{Name: "x"})
	if err != nil {
		t.Fatalf("flwor failed: %+v", err)
	}
	return body
}

func run(t *testing.T, body interfaces.Expr, watchdog *Watchdog) (types.Sequence, error) {
	if err := watchdog.Init(); err != nil {
		t.Fatalf("init failed: %+v", err)
	}
	prog := &ast.Program{Body: body}
	static := &interfaces.StaticContext{Logf: t.Logf}
	if err := prog.Analyze(static); err != nil {
		t.Fatalf("analyze failed: %+v", err)
	}
	env := &interfaces.Env{
		Static:   static,
		Watchdog: watchdog,
		Logf:     t.Logf,
	}
	if err := env.Init(); err != nil {
		t.Fatalf("init failed: %+v", err)
	}
	return prog.Eval(env, nil)
}

func reason(err error) (errcode.Reason, bool) {
	var e *errcode.TerminatedError
	if !errwrap.As(err, &e) {
		return 0, false
	}
	return e.Reason, true
}

func TestKilled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	watchdog := &Watchdog{
		Context:   ctx,
		PollEvery: 1,
	}
	_, err := run(t, loop(t), watchdog)
	if r, ok := reason(err); !ok || r != errcode.ReasonKilled {
		t.Errorf("expected a kill, got: %+v", err)
	}
	if watchdog.Err() == nil {
		t.Errorf("termination wasn't kept")
	}
}

func TestTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	_, err := run(t, loop(t), &Watchdog{Context: ctx})
	if r, ok := reason(err); !ok || r != errcode.ReasonTimeout {
		t.Errorf("expected a timeout, got: %+v", err)
	}
}

func TestCastableDoesNotCatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	castable := &ast.ExprCastable{
		Operand: loop(t),
		Target:  types.TypeInteger,
	}
	result, err := run(t, castable, &Watchdog{Context: ctx, PollEvery: 1})
	if !errcode.IsTerminated(err) {
		t.Errorf("expected a termination, got: %s, %+v", types.SequenceString(result), err)
	}
}

func TestOutputSize(t *testing.T) {
	_, err := run(t, loop(t), &Watchdog{
		Context:        context.Background(),
		MaxOutputItems: 1000,
	})
	r, ok := reason(err)
	if !ok || r != errcode.ReasonOutputSize {
		t.Errorf("expected an output size error, got: %+v", err)
		return
	}
	if !strings.Contains(err.Error(), "the limit is 1,000") {
		t.Errorf("unexpected message: %s", err)
	}
}

func TestProceed(t *testing.T) {
	watchdog := &Watchdog{Context: context.Background()}
	result, err := run(t, loop(t), watchdog)
	if err != nil {
		t.Errorf("eval failed: %+v", err)
		return
	}
	if result.Len() != 1000000 {
		t.Errorf("unexpected result length: %d", result.Len())
	}
	if watchdog.Err() != nil {
		t.Errorf("unexpected termination: %+v", watchdog.Err())
	}
}
