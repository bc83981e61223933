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

// Package core imports the packages of the built-in functions so that they
// register themselves.
package core

import (
	// import so the funcs register
	_ "github.com/purpleidea/xqeval/lang/funcs/core/boolean"
	_ "github.com/purpleidea/xqeval/lang/funcs/core/context"
	_ "github.com/purpleidea/xqeval/lang/funcs/core/errors"
	_ "github.com/purpleidea/xqeval/lang/funcs/core/math"
	_ "github.com/purpleidea/xqeval/lang/funcs/core/seq"
	_ "github.com/purpleidea/xqeval/lang/funcs/core/strings"
)
