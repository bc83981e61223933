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

// Package errcode contains the structured error type used by the query engine.
// Every dynamic or static error carries a W3C error code and a kind so that
// callers can tell cardinality failures apart from subtype failures and so on.
package errcode

import (
	"fmt"
	"strings"

	"github.com/purpleidea/xqeval/util/errwrap"
)

// Code is a W3C error code such as XPTY0004.
type Code string

const (
	// XPST0003 is a syntax or tree construction error.
	XPST0003 Code = "XPST0003"
	// XPST0008 is raised for an undeclared variable reference.
	XPST0008 Code = "XPST0008"
	// XPST0017 is raised when no function matches a name and arity.
	XPST0017 Code = "XPST0017"
	// XPST0051 is raised for an unknown atomic type name.
	XPST0051 Code = "XPST0051"
	// XPST0080 is raised when casting to an abstract type.
	XPST0080 Code = "XPST0080"
	// XPST0081 is raised for an undeclared namespace prefix.
	XPST0081 Code = "XPST0081"
	// XQST0034 is raised for two functions with the same name and arity.
	XQST0034 Code = "XQST0034"
	// XQST0039 is raised for two parameters with the same name.
	XQST0039 Code = "XQST0039"
	// XQST0049 is raised for two global variables with the same name.
	XQST0049 Code = "XQST0049"
	// XQST0094 is raised for a grouping variable that isn't in scope.
	XQST0094 Code = "XQST0094"

	// XPDY0002 is raised when the context item is absent.
	XPDY0002 Code = "XPDY0002"
	// XPDY0050 is raised when treat as fails.
	XPDY0050 Code = "XPDY0050"
	// XPTY0004 is the general type error.
	XPTY0004 Code = "XPTY0004"
	// XPTY0018 is raised when the last step mixes nodes and atomic values.
	XPTY0018 Code = "XPTY0018"
	// XPTY0019 is raised when an intermediate step returns atomic values.
	XPTY0019 Code = "XPTY0019"
	// XPTY0020 is raised when an axis step has a non-node context.
	XPTY0020 Code = "XPTY0020"

	// FOAR0001 is division by zero.
	FOAR0001 Code = "FOAR0001"
	// FOAR0002 is numeric overflow or underflow.
	FOAR0002 Code = "FOAR0002"
	// FOCA0002 is an invalid lexical value.
	FOCA0002 Code = "FOCA0002"
	// FOCA0003 is an input value too large for integer.
	FOCA0003 Code = "FOCA0003"
	// FOCH0002 is an unsupported collation.
	FOCH0002 Code = "FOCH0002"
	// FODC0002 is an error retrieving a resource.
	FODC0002 Code = "FODC0002"
	// FODT0001 is an overflow in date/time arithmetic.
	FODT0001 Code = "FODT0001"
	// FOER0000 is an unidentified error raised by fn:error.
	FOER0000 Code = "FOER0000"
	// FONS0004 is raised when no namespace is found for a prefix.
	FONS0004 Code = "FONS0004"
	// FORG0001 is an invalid value for a cast or constructor.
	FORG0001 Code = "FORG0001"
	// FORG0003 is raised by fn:zero-or-one with more than one item.
	FORG0003 Code = "FORG0003"
	// FORG0004 is raised by fn:one-or-more with an empty sequence.
	FORG0004 Code = "FORG0004"
	// FORG0005 is raised by fn:exactly-one without exactly one item.
	FORG0005 Code = "FORG0005"
	// FORG0006 is an invalid argument type.
	FORG0006 Code = "FORG0006"
	// FOTY0013 is raised when atomizing a function item.
	FOTY0013 Code = "FOTY0013"
	// FOTY0014 is raised when taking the string value of a function item.
	FOTY0014 Code = "FOTY0014"

	// XQDY0054 is a circular dependency between global variables.
	XQDY0054 Code = "XQDY0054"
	// EXXQDY0003 is the local stack overflow code.
	EXXQDY0003 Code = "EXXQDY0003"
)

// Kind groups errors by the failure class that produced them.
type Kind int

const (
	// KindDynamic is any other dynamic error.
	KindDynamic Kind = iota
	// KindStatic is an error found during analysis.
	KindStatic
	// KindCardinality is an item count mismatch.
	KindCardinality
	// KindSubtype is an item type mismatch.
	KindSubtype
	// KindEmptyNotAllowed is an empty sequence where one is not allowed.
	KindEmptyNotAllowed
	// KindMixedResult is a path that mixes nodes and atomic values.
	KindMixedResult
	// KindArithmetic is a numeric domain error.
	KindArithmetic
	// KindCast is a failed conversion.
	KindCast
	// KindUntypedValue is a failed promotion of an untyped value.
	KindUntypedValue
	// KindStackOverflow is raised when the call depth limit is reached.
	KindStackOverflow
	// KindUser is an error raised by the query itself.
	KindUser
)

// String returns a short human name for the kind.
func (obj Kind) String() string {
	switch obj {
	case KindStatic:
		return "static"
	case KindCardinality:
		return "cardinality"
	case KindSubtype:
		return "subtype"
	case KindEmptyNotAllowed:
		return "empty-not-allowed"
	case KindMixedResult:
		return "mixed-result"
	case KindArithmetic:
		return "arithmetic"
	case KindCast:
		return "cast"
	case KindUntypedValue:
		return "untyped-value"
	case KindStackOverflow:
		return "stack-overflow"
	case KindUser:
		return "user"
	}
	return "dynamic"
}

// Frame is one entry of the logical call chain attached to an error when it
// crosses a function call boundary.
type Frame struct {
	Signature string
	Line      int
	Column    int
}

// String returns the printed form of a frame.
func (obj Frame) String() string {
	return fmt.Sprintf("at %s [%d:%d]", obj.Signature, obj.Line, obj.Column)
}

// Error is a query error.
type Error struct {
	Code Code
	Kind Kind
	Msg  string

	// Line and Column are the one-based position of the failing node. They
	// are zero when unknown.
	Line   int
	Column int

	// Frames is the logical call chain, innermost first.
	Frames []Frame

	// Value is an optional error object passed to fn:error.
	Value interface{}

	// Err is an optional wrapped cause.
	Err error
}

// Error returns the printed form of the error.
func (obj *Error) Error() string {
	s := &strings.Builder{}
	s.WriteString(string(obj.Code))
	s.WriteString(": ")
	s.WriteString(obj.Msg)
	if obj.Err != nil {
		s.WriteString(": ")
		s.WriteString(obj.Err.Error())
	}
	if obj.Line > 0 {
		fmt.Fprintf(s, " [at line %d, column %d]", obj.Line, obj.Column)
	}
	for _, frame := range obj.Frames {
		s.WriteString("\n\t")
		s.WriteString(frame.String())
	}
	return s.String()
}

// Unwrap returns the wrapped cause, if any.
func (obj *Error) Unwrap() error {
	return obj.Err
}

// New builds a new error.
func New(code Code, kind Kind, format string, v ...interface{}) *Error {
	return &Error{
		Code: code,
		Kind: kind,
		Msg:  fmt.Sprintf(format, v...),
	}
}

// Wrap builds a new error around an existing cause.
func Wrap(err error, code Code, kind Kind, format string, v ...interface{}) *Error {
	e := New(code, kind, format, v...)
	e.Err = err
	return e
}

// Static builds a new static error.
func Static(code Code, format string, v ...interface{}) *Error {
	return New(code, KindStatic, format, v...)
}

// Get returns the query error in the chain if there is one.
func Get(err error) (*Error, bool) {
	var e *Error
	if errwrap.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind returns true if the error is a query error of this kind.
func IsKind(err error, kind Kind) bool {
	e, ok := Get(err)
	return ok && e.Kind == kind
}

// IsCode returns true if the error is a query error with this code.
func IsCode(err error, code Code) bool {
	e, ok := Get(err)
	return ok && e.Code == code
}

// Locate sets the position on a query error if it doesn't have one yet. The
// innermost located node wins. Positions are zero-based on the way in, and
// one-based for display. Errors that aren't query errors pass through.
func Locate(err error, line, column int) error {
	if err == nil || line < 0 {
		return err
	}
	e, ok := Get(err)
	if !ok || e.Line > 0 {
		return err
	}
	e.Line = line + 1
	e.Column = column + 1
	return err
}

// AddFrame appends a call frame onto a query error. Errors that aren't query
// errors pass through unchanged.
func AddFrame(err error, frame Frame) error {
	if e, ok := Get(err); ok {
		e.Frames = append(e.Frames, frame)
	}
	return err
}
