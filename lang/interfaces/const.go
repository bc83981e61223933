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
	"github.com/purpleidea/xqeval/util"
)

const (
	// ErrNoFocus is returned when a node reads the context item but there
	// isn't one.
	ErrNoFocus = util.Error("context item is undefined")

	// ErrNotAnalyzed is returned from Eval when Analyze never ran on the
	// tree. This is a programming error.
	ErrNotAnalyzed = util.Error("expression was not analyzed")

	// ErrDeferredLeak is returned when a deferred tail call reaches a node
	// which doesn't expect it. This is a programming error.
	ErrDeferredLeak = util.Error("deferred call escaped its frame")
)

const (
	// ModuleSep is the separator between a prefix and a local name.
	ModuleSep = ":"

	// FnPrefix is the prefix of the builtin function namespace.
	FnPrefix = "fn"

	// LocalPrefix is the prefix of the local function namespace.
	LocalPrefix = "local"

	// DefaultMaxCallDepth is the default bound on nested function calls
	// which aren't tail calls.
	DefaultMaxCallDepth = 2048
)
