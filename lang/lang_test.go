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

package lang

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/purpleidea/xqeval/lang/ast"
	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/store"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/lang/yamlexpr"
	"github.com/purpleidea/xqeval/util/errwrap"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"
)

// output renders a result the way the fixtures store it.
func output(seq types.Sequence, err error) string {
	if err != nil {
		if e, ok := errcode.Get(err); ok {
			return fmt.Sprintf("error: %s", e.Code)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return types.SequenceString(seq)
}

func newStore(t *testing.T) *store.Store {
	obj := &store.Store{
		Logf: func(format string, v ...interface{}) {
			t.Logf("store: "+format, v...)
		},
	}
	if err := obj.Init(); err != nil {
		t.Fatalf("init failed: %+v", err)
	}
	return obj
}

func newLang(t *testing.T, prog *ast.Program, documents interfaces.DocumentSource) *Lang {
	obj := &Lang{
		Program: prog,
		Store:   documents,
		Limits: Limits{
			MaxCallDepth: 1000,
		},
		Timeout: time.Minute,
		Debug:   testing.Verbose(),
		Logf: func(format string, v ...interface{}) {
			t.Logf("lang: "+format, v...)
		},
	}
	if err := obj.Init(); err != nil {
		t.Fatalf("init failed: %+v", err)
	}
	return obj
}

// TestQueries runs the fixtures in testdata/. Each archive holds the tree in
// query.yaml, any number of xml documents, and the expected OUTPUT.
func TestQueries(t *testing.T) {
	files, err := filepath.Glob("testdata/*.txtar")
	if err != nil {
		t.Fatalf("glob failed: %+v", err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		t.Fatalf("no fixtures found")
	}

	for index, file := range files { // run all the tests
		name := strings.TrimSuffix(filepath.Base(file), ".txtar")
		t.Run(fmt.Sprintf("test #%d (%s)", index, name), func(t *testing.T) {
			archive, err := txtar.ParseFile(file)
			if err != nil {
				t.Errorf("test #%d: can't read fixture: %+v", index, err)
				return
			}
			documents := newStore(t)
			var code []byte
			var expected string
			for _, f := range archive.Files {
				switch {
				case f.Name == "query.yaml":
					code = f.Data
				case f.Name == "OUTPUT":
					expected = strings.TrimSpace(string(f.Data))
				case strings.HasSuffix(f.Name, ".xml"):
					if err := documents.Put(f.Name, f.Data); err != nil {
						t.Errorf("test #%d: can't store %s: %+v", index, f.Name, err)
						return
					}
				default:
					t.Errorf("test #%d: unexpected file: %s", index, f.Name)
					return
				}
			}
			if code == nil || expected == "" {
				t.Errorf("test #%d: fixture needs query.yaml and OUTPUT", index)
				return
			}

			prog, err := yamlexpr.Parse(code)
			if err != nil {
				t.Errorf("test #%d: parse failed with: %+v", index, err)
				return
			}
			obj := newLang(t, prog, documents)
			defer obj.Close()

			seq, err := obj.Eval(context.Background(), nil, nil)
			if diff := cmp.Diff(expected, output(seq, err)); diff != "" {
				t.Errorf("test #%d: FAIL", index)
				t.Errorf("test #%d: %s", index, archive.Comment)
				t.Errorf("test #%d: output differs (-want +got):\n%s", index, diff)
				if seq != nil {
					t.Logf("test #%d: result: %s", index, spew.Sdump(seq.Items()))
				}
				if err != nil {
					t.Logf("test #%d: error: %+v", index, err)
				}
			}
		})
	}
}

func TestRepeatedEval(t *testing.T) {
	data, err := os.ReadFile("testdata/group-order.txtar")
	if err != nil {
		t.Fatalf("read failed: %+v", err)
	}
	archive := txtar.Parse(data)
	prog, err := yamlexpr.Parse(archive.Files[0].Data)
	if err != nil {
		t.Fatalf("parse failed: %+v", err)
	}
	obj := newLang(t, prog, nil)
	defer obj.Close()

	for i := 0; i < 3; i++ {
		seq, err := obj.Eval(context.Background(), nil, nil)
		if s := output(seq, err); s != "(15, 22, 18)" {
			t.Errorf("run %d: unexpected output: %s", i, s)
		}
	}
	obj.ResetState(false)
	seq, err := obj.Eval(context.Background(), nil, nil)
	if s := output(seq, err); s != "(15, 22, 18)" {
		t.Errorf("unexpected output after reset: %s", s)
	}
}

func TestDocumentUpdate(t *testing.T) {
	documents := newStore(t)
	if err := documents.Put("a.xml", []byte("<a><b/><b/></a>")); err != nil {
		t.Fatalf("put failed: %+v", err)
	}
	prog, err := yamlexpr.Parse([]byte(`call: {name: count, args: [{path: [{doc: a.xml}, {step: {name: a}}, {step: {name: b}}]}]}`))
	if err != nil {
		t.Fatalf("parse failed: %+v", err)
	}
	obj := newLang(t, prog, documents)
	defer obj.Close()

	seq, err := obj.Eval(context.Background(), nil, nil)
	if s := output(seq, err); s != "2" {
		t.Errorf("unexpected output: %s", s)
	}
	if err := documents.Put("a.xml", []byte("<a><b/><b/><b/></a>")); err != nil {
		t.Fatalf("put failed: %+v", err)
	}
	seq, err = obj.Eval(context.Background(), nil, nil)
	if s := output(seq, err); s != "3" {
		t.Errorf("stale document, got: %s", s)
	}
}

func TestExternals(t *testing.T) {
	prog, err := yamlexpr.Parse([]byte(`
variables:
  - name: "n"
    type: "xs:integer"
body: {arith: {op: "*", left: {var: "n"}, right: {int: 2}}}
`))
	if err != nil {
		t.Fatalf("parse failed: %+v", err)
	}
	obj := newLang(t, prog, nil)
	defer obj.Close()

	seq, err := obj.Eval(context.Background(), nil, map[string]types.Sequence{
		"n": types.Singleton(types.NewUntyped("21")),
	})
	if s := output(seq, err); s != "42" {
		t.Errorf("unexpected output: %s", s)
	}
	_, err = obj.Eval(context.Background(), nil, nil)
	if !errcode.IsCode(err, errcode.XPDY0002) {
		t.Errorf("expected a missing external, got: %+v", err)
	}
}

func TestTimeout(t *testing.T) {
	prog, err := yamlexpr.Parse([]byte(`
castable:
  type: "xs:integer"
  operand:
    flwor:
      - for: {var: "x", in: {range: {start: {int: 1}, end: {int: 10000}}}}
      - for: {var: "y", in: {range: {start: {int: 1}, end: {int: 10000}}}}
      - return: {var: "y"}
`))
	if err != nil {
		t.Fatalf("parse failed: %+v", err)
	}
	obj := newLang(t, prog, nil)
	obj.Timeout = time.Millisecond
	defer obj.Close()

	_, err = obj.Eval(context.Background(), nil, nil)
	var e *errcode.TerminatedError
	if !errwrap.As(err, &e) || e.Reason != errcode.ReasonTimeout {
		t.Errorf("expected a timeout, got: %+v", err)
	}
}

func TestErrorFrames(t *testing.T) {
	data, err := os.ReadFile("testdata/nested-error.txtar")
	if err != nil {
		t.Fatalf("read failed: %+v", err)
	}
	prog, err := yamlexpr.Parse(txtar.Parse(data).Files[0].Data)
	if err != nil {
		t.Fatalf("parse failed: %+v", err)
	}
	obj := newLang(t, prog, nil)
	defer obj.Close()

	_, err = obj.Eval(context.Background(), nil, nil)
	e, ok := errcode.Get(err)
	if !ok {
		t.Fatalf("expected a coded error, got: %+v", err)
	}
	frames := []string{}
	for _, f := range e.Frames {
		frames = append(frames, f.Signature)
	}
	if diff := cmp.Diff([]string{"fn:error#0", "local:b#0", "local:a#0"}, frames); diff != "" {
		t.Errorf("unexpected frames (-want +got):\n%s", diff)
	}
}

func TestClosed(t *testing.T) {
	prog := &ast.Program{Body: &ast.ExprInt{V: 1}}
	obj := newLang(t, prog, nil)
	if err := obj.Close(); err != nil {
		t.Errorf("close failed: %+v", err)
	}
	if _, err := obj.Eval(context.Background(), nil, nil); err == nil {
		t.Errorf("eval of a closed engine passed")
	}
}

func TestInitFail(t *testing.T) {
	prog := &ast.Program{Body: &ast.ExprVar{Name: "nope"}}
	obj := &Lang{
		Program: prog,
		Logf:    t.Logf,
	}
	err := obj.Init()
	if !errcode.IsKind(err, errcode.KindStatic) {
		t.Errorf("expected a static error, got: %+v", err)
	}

	obj = &Lang{
		Program:          &ast.Program{Body: &ast.ExprInt{V: 1}},
		DefaultCollation: "http://example.com/nope",
		Logf:             t.Logf,
	}
	if err := obj.Init(); err == nil {
		t.Errorf("unknown collation passed")
	}
}
