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

package errcode

import (
	"github.com/purpleidea/xqeval/util/errwrap"
)

// Reason is why a query was terminated.
type Reason int

const (
	// ReasonKilled means the query was cancelled by its owner.
	ReasonKilled Reason = iota
	// ReasonTimeout means the query ran past its deadline.
	ReasonTimeout
	// ReasonOutputSize means the query produced too many items.
	ReasonOutputSize
)

// String returns a short human name for the reason.
func (obj Reason) String() string {
	switch obj {
	case ReasonTimeout:
		return "timeout"
	case ReasonOutputSize:
		return "output size exceeded"
	}
	return "killed"
}

// TerminatedError signals that evaluation must stop. It is not a query error
// and no query level handler (castable, switch fallthrough, try) may catch it.
type TerminatedError struct {
	Reason Reason
	Msg    string
}

// Error returns the printed form of the error.
func (obj *TerminatedError) Error() string {
	if obj.Msg == "" {
		return "query terminated: " + obj.Reason.String()
	}
	return "query terminated: " + obj.Reason.String() + ": " + obj.Msg
}

// IsTerminated returns true if the error chain contains a termination.
func IsTerminated(err error) bool {
	var e *TerminatedError
	return errwrap.As(err, &e)
}
