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

package types_test

import (
	"testing"

	"github.com/purpleidea/xqeval/lang/store"
	"github.com/purpleidea/xqeval/lang/types"
)

func TestAtomizeNodes(t *testing.T) {
	root, err := store.ParseFragment(`<a year="2001">x<b>y</b></a>`)
	if err != nil {
		t.Errorf("parse failed: %+v", err)
		return
	}
	el := root.Children()[0]
	attr := el.Attributes()[0]

	if _, ok := interface{}(el).(types.Atomic); ok {
		t.Errorf("an element is an atomic value")
	}

	result, err := types.Atomize(types.NewSequence(root, el, attr, types.NewInteger(7)))
	if err != nil {
		t.Errorf("atomize failed: %+v", err)
		return
	}
	expect := []struct {
		typ types.Type
		s   string
	}{
		{types.TypeUntypedAtomic, "xy"},
		{types.TypeUntypedAtomic, "xy"},
		{types.TypeUntypedAtomic, "2001"},
		{types.TypeInteger, "7"},
	}
	if result.Len() != len(expect) {
		t.Errorf("unexpected result: %s", types.SequenceString(result))
		return
	}
	for i, item := range result.Items() {
		a, ok := item.(types.Atomic)
		if !ok {
			t.Errorf("item %d is not atomic: %s", i, item)
			continue
		}
		if a.Type() != expect[i].typ || a.StringValue() != expect[i].s {
			t.Errorf("item %d: got %s of %s, expected %q of %s", i, a, a.Type(), expect[i].s, expect[i].typ)
		}
	}

	v, err := types.AtomizeItem(attr)
	if err != nil {
		t.Errorf("atomize failed: %+v", err)
		return
	}
	if !types.ValueEqual(v, types.NewString("2001"), nil) {
		t.Errorf("attribute value %s is not equal to the string", v)
	}
	n, err := types.Convert(v, types.TypeInteger, nil)
	if err != nil {
		t.Errorf("convert failed: %+v", err)
		return
	}
	if c, err := types.Compare(n, types.NewInteger(2000), nil); err != nil || c != 1 {
		t.Errorf("unexpected compare: %d, %v", c, err)
	}
}
