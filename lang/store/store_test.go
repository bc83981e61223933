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

package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/types"

	"github.com/kylelemons/godebug/pretty"
	"github.com/spf13/afero"
)

func newStore(t *testing.T) *Store {
	obj := &Store{
		Logf: func(format string, v ...interface{}) {
			t.Logf("store: "+format, v...)
		},
	}
	if err := obj.Init(); err != nil {
		t.Fatalf("init failed: %+v", err)
	}
	return obj
}

func TestParseFragment(t *testing.T) {
	root, err := ParseFragment(`<?xml version="1.0"?><a x="1"><b>one</b><!-- c --><b>two<i>!</i></b></a>`)
	if err != nil {
		t.Errorf("parse failed: %+v", err)
		return
	}
	if root.Type() != types.TypeDocument || root.Persistent() {
		t.Errorf("unexpected root: %s", root)
	}
	a := root.Children()[0]
	if a.LocalName() != "a" || len(a.Attributes()) != 1 {
		t.Errorf("unexpected element: %s", a)
		return
	}
	if s := a.StringValue(); s != "onetwo!" {
		t.Errorf("unexpected string value: %s", s)
	}
	if attr := a.Attributes()[0]; attr.StringValue() != "1" || attr.Parent() != a {
		t.Errorf("unexpected attribute: %s", attr)
	}
	kinds := []string{}
	for _, n := range types.Descendants(root) {
		kinds = append(kinds, n.Type().String())
	}
	expected := []string{"element()", "element()", "text()", "comment()", "element()", "text()", "element()", "text()"}
	if diff := pretty.Compare(kinds, expected); diff != "" {
		t.Errorf("unexpected descendants, diff: (-got +want)\n%s", diff)
	}

	// document order
	desc := types.Descendants(root)
	for i := 1; i < len(desc); i++ {
		if !types.NodeBefore(desc[i-1], desc[i]) {
			t.Errorf("node %d is not before node %d", i-1, i)
		}
	}
}

func TestParseNamespaces(t *testing.T) {
	root, err := ParseFragment(`<p:a xmlns:p="urn:p"><p:b/></p:a>`)
	if err != nil {
		t.Errorf("parse failed: %+v", err)
		return
	}
	b := root.Children()[0].Children()[0]
	if b.NodeName() != "p:b" || b.Namespace() != "urn:p" || b.LocalName() != "b" {
		t.Errorf("unexpected name: %s %s %s", b.NodeName(), b.Namespace(), b.LocalName())
	}
}

func TestParseFail(t *testing.T) {
	for index, s := range []string{"<a>", "<a></b>", "<a><</a>"} {
		if _, err := ParseFragment(s); err == nil {
			t.Errorf("test #%d: parse of %q passed, expected fail", index, s)
		}
	}
}

func TestPutSubscribe(t *testing.T) {
	obj := newStore(t)
	changed := []string{}
	cancel := obj.Subscribe(func(uri string) {
		changed = append(changed, uri)
	})

	if err := obj.Put("a.xml", []byte("<a/>")); err != nil {
		t.Errorf("put failed: %+v", err)
		return
	}
	if err := obj.Put("a.xml", []byte("<a/>")); err != nil { // same content
		t.Errorf("put failed: %+v", err)
		return
	}
	if err := obj.Put("a.xml", []byte("<a>2</a>")); err != nil {
		t.Errorf("put failed: %+v", err)
		return
	}
	seq, err := obj.Document("a.xml")
	if err != nil {
		t.Errorf("document failed: %+v", err)
		return
	}
	if !seq.IsPersistent() || seq.Len() != 1 || seq.ItemAt(0).(types.Node).StringValue() != "2" {
		t.Errorf("unexpected document: %s", types.SequenceString(seq))
	}
	if !obj.Remove("a.xml") || obj.Remove("a.xml") {
		t.Errorf("unexpected remove result")
	}
	if _, err := obj.Document("a.xml"); !errcode.IsCode(err, errcode.FODC0002) {
		t.Errorf("expected FODC0002, got: %+v", err)
	}

	cancel()
	if err := obj.Put("b.xml", []byte("<b/>")); err != nil {
		t.Errorf("put failed: %+v", err)
		return
	}
	if diff := pretty.Compare(changed, []string{"a.xml", "a.xml", "a.xml"}); diff != "" {
		t.Errorf("unexpected notifications, diff: (-got +want)\n%s", diff)
	}
}

func TestLoadDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/docs/a.xml":   "<a/>",
		"/docs/b.xml":   "<b/>",
		"/docs/c.txt":   "not a document",
		"/docs/bad.xml": "<bad>",
	}
	for name, content := range files {
		if err := afero.WriteFile(fs, name, []byte(content), 0644); err != nil {
			t.Errorf("write failed: %+v", err)
			return
		}
	}
	obj := newStore(t)
	err := obj.LoadDir(fs, "/docs")
	if err == nil {
		t.Errorf("expected the bad document to fail")
	}
	if diff := pretty.Compare(obj.URIs(), []string{"a.xml", "b.xml"}); diff != "" {
		t.Errorf("unexpected documents, diff: (-got +want)\n%s", diff)
	}
}

func TestConcurrentAccess(t *testing.T) {
	obj := newStore(t)
	wg := &sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			uri := fmt.Sprintf("%d.xml", i%3)
			if err := obj.Put(uri, []byte(fmt.Sprintf("<n>%d</n>", i))); err != nil {
				t.Errorf("put failed: %+v", err)
			}
			obj.Document(uri)
		}()
	}
	wg.Wait()
	if n := len(obj.URIs()); n != 3 {
		t.Errorf("expected 3 documents, got: %d", n)
	}
}
