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

package interfaces

import (
	"fmt"
)

// Textarea stores the coordinates of an expression in the form of a starting
// line/column and ending line/column. It is embedded in every AST node.
type Textarea struct {
	// This data is zero-based. (Eg: first line of file is 0)
	startLine   int // first
	startColumn int // left
	endLine     int // last
	endColumn   int // right

	isSet bool
}

// IsSet returns if the position was already set with Locate already.
func (obj *Textarea) IsSet() bool {
	return obj.isSet
}

// Locate is used by the tree builder to store the token positions in AST
// nodes.
func (obj *Textarea) Locate(line int, col int, endline int, endcol int) {
	obj.startLine = line
	obj.startColumn = col
	obj.endLine = endline
	obj.endColumn = endcol
	obj.isSet = true
}

// Pos returns the starting line/column of an AST node. It returns -1, -1 if
// the position is not known.
func (obj *Textarea) Pos() (int, int) {
	if !obj.isSet {
		return -1, -1
	}
	return obj.startLine, obj.startColumn
}

// End returns the end line/column of an AST node.
func (obj *Textarea) End() (int, int) {
	return obj.endLine, obj.endColumn
}

// Byline gives a succinct representation of the Textarea, but is useful only in
// debugging.
func (obj *Textarea) Byline() string {
	if !obj.isSet {
		return "<unknown>"
	}
	// We convert to 1-based for user display.
	return fmt.Sprintf("%d:%d-%d:%d", obj.startLine+1, obj.startColumn+1, obj.endLine+1, obj.endColumn+1)
}
