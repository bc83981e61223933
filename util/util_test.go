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

package util

import (
	"fmt"
	"testing"
)

func TestSplitQName(t *testing.T) {
	var tests = []struct {
		name   string
		prefix string
		local  string
	}{
		{"local:countdown", "local", "countdown"},
		{"count", "", "count"},
		{"fn:", "fn", ""},
	}
	for _, test := range tests {
		prefix, local := SplitQName(test.name)
		if prefix != test.prefix || local != test.local {
			t.Errorf("SplitQName(%s): expected %s/%s, actual %s/%s", test.name, test.prefix, test.local, prefix, local)
		}
	}
}

func TestStrInList(t *testing.T) {
	if !StrInList("b", []string{"a", "b"}) {
		t.Errorf("expected b in the list")
	}
	if StrInList("c", []string{"a", "b"}) {
		t.Errorf("unexpected c in the list")
	}
	if StrInList("", nil) {
		t.Errorf("unexpected match in an empty list")
	}
}

func TestLogWriter(t *testing.T) {
	lines := []string{}
	w := &LogWriter{
		Prefix: "http: ",
		Logf: func(format string, v ...interface{}) {
			lines = append(lines, fmt.Sprintf(format, v...))
		},
	}
	if n, err := w.Write([]byte("50% done\n")); err != nil || n != 9 {
		t.Errorf("unexpected write: %d, %v", n, err)
	}
	if len(lines) != 1 || lines[0] != "http: 50% done" {
		t.Errorf("unexpected lines: %q", lines)
	}
}
