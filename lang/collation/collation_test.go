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

package collation

import (
	"testing"

	"github.com/purpleidea/xqeval/lang/errcode"
)

func TestDefault(t *testing.T) {
	c, err := Lookup("")
	if err != nil {
		t.Errorf("unexpected error: %+v", err)
		return
	}
	if !c.IsCodepoint() {
		t.Errorf("expected codepoint collation")
	}
	if c.Compare("B", "a") >= 0 {
		t.Errorf("codepoint order puts upper case first")
	}
}

func TestPrimaryStrength(t *testing.T) {
	c, err := Lookup(UCAURI + "?lang=en&strength=primary")
	if err != nil {
		t.Errorf("unexpected error: %+v", err)
		return
	}
	if c.IsCodepoint() {
		t.Errorf("expected a language collation")
	}
	if c.Compare("a", "A") != 0 {
		t.Errorf("primary strength ignores case")
	}
	if c.Compare("b", "A") <= 0 {
		t.Errorf("language order puts a before b")
	}
	again, err := Lookup(UCAURI + "?lang=en&strength=primary")
	if err != nil || again != c {
		t.Errorf("expected the cached collator")
	}
}

func TestUnsupported(t *testing.T) {
	if _, err := Lookup("http://example.com/collation"); !errcode.IsCode(err, errcode.FOCH0002) {
		t.Errorf("expected FOCH0002, got: %v", err)
	}
	if _, err := Lookup(ExistURI + "?lang=en&strength=bogus"); !errcode.IsCode(err, errcode.FOCH0002) {
		t.Errorf("expected FOCH0002, got: %v", err)
	}
}
