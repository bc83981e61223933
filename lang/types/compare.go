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

package types

import (
	"bytes"
	"math"
	"strings"
	"time"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/util"

	"github.com/cockroachdb/apd/v3"
)

// ErrUnordered is returned by Compare when one of the operands is NaN. Such
// values are not equal to anything, including themselves.
const ErrUnordered = util.Error("values are unordered")

// Collator compares strings. The default is the unicode codepoint collation.
type Collator interface {
	// URI returns the collation URI.
	URI() string

	// Compare returns -1, 0 or 1.
	Compare(a, b string) int

	// IsCodepoint returns true if this compares raw codepoints. Equality
	// is then plain string equality, which allows hashing.
	IsCodepoint() bool
}

// compareStrings compares two strings with the collator, or by codepoint if
// none was given.
func compareStrings(a, b string, coll Collator) int {
	if coll == nil || coll.IsCodepoint() {
		return strings.Compare(a, b)
	}
	return coll.Compare(a, b)
}

// Comparable returns true if values of these two types can be compared with
// each other.
func Comparable(a, b Type) bool {
	switch {
	case a.IsStringLike() && b.IsStringLike():
		return true
	case a.IsNumeric() && b.IsNumeric():
		return true
	case a.SubTypeOf(TypeDuration) && b.SubTypeOf(TypeDuration):
		return true
	case (a == TypeHexBinary || a == TypeBase64Binary) && a == b:
		return true
	}
	return a == b
}

// Compare compares two atomic values and returns -1, 0 or 1. Untyped values
// are compared as strings. Numbers are compared after promotion to a common
// type. It returns ErrUnordered if a NaN is involved, and a type error if the
// two values can't be compared.
func Compare(a, b Atomic, coll Collator) (int, error) {
	ta, tb := a.Type(), b.Type()
	if !Comparable(ta, tb) {
		return 0, errcode.New(errcode.XPTY0004, errcode.KindSubtype, "cannot compare %s with %s", ta, tb)
	}

	switch {
	case ta.IsStringLike():
		return compareStrings(a.StringValue(), b.StringValue(), coll), nil

	case ta.IsNumeric():
		return compareNumeric(a, b)

	case ta == TypeBoolean:
		x, y := a.(*BoolValue).V, b.(*BoolValue).V
		switch {
		case x == y:
			return 0, nil
		case !x:
			return -1, nil
		}
		return 1, nil

	case ta.SubTypeOf(TypeDuration):
		x, y := a.(*DurationValue), b.(*DurationValue)
		if c := cmpInt64(x.Months, y.Months); c != 0 {
			return c, nil
		}
		return cmpInt64(int64(x.Dur), int64(y.Dur)), nil

	case ta == TypeDateTime || ta == TypeDate || ta == TypeTime:
		x, y := a.(*DateTimeValue).V, b.(*DateTimeValue).V
		switch {
		case x.Before(y):
			return -1, nil
		case x.After(y):
			return 1, nil
		}
		return 0, nil

	case ta == TypeQName:
		x, y := a.(*QNameValue), b.(*QNameValue)
		if c := strings.Compare(x.Space, y.Space); c != 0 {
			return c, nil
		}
		return strings.Compare(x.Local, y.Local), nil

	case ta == TypeHexBinary || ta == TypeBase64Binary:
		return bytes.Compare(a.(*BinaryValue).V, b.(*BinaryValue).V), nil
	}
	return 0, errcode.New(errcode.XPTY0004, errcode.KindSubtype, "cannot compare %s with %s", ta, tb)
}

func cmpInt64(x, y int64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// compareNumeric compares two numbers in the narrowest common type.
func compareNumeric(a, b Atomic) (int, error) {
	if x, ok := a.(*IntValue); ok {
		if y, ok := b.(*IntValue); ok {
			return cmpInt64(x.V, y.V), nil
		}
	}
	ta, tb := a.Type(), b.Type()
	if ta.SubTypeOf(TypeDecimal) && tb.SubTypeOf(TypeDecimal) {
		return toDecimal(a).Cmp(toDecimal(b)), nil
	}
	x, y := toFloat64(a), toFloat64(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, ErrUnordered
	}
	switch {
	case x < y:
		return -1, nil
	case x > y:
		return 1, nil
	}
	return 0, nil
}

// toDecimal returns the decimal form of an integer or decimal value.
func toDecimal(v Atomic) *apd.Decimal {
	switch x := v.(type) {
	case *IntValue:
		return apd.New(x.V, 0)
	case *DecimalValue:
		return x.V
	}
	panic("not a decimal value") // programming error
}

// toFloat64 returns the float form of any numeric value.
func toFloat64(v Atomic) float64 {
	switch x := v.(type) {
	case *IntValue:
		return float64(x.V)
	case *DecimalValue:
		f, _ := x.V.Float64() // out of range gives an infinity
		return f
	case *FloatValue:
		return float64(x.V)
	case *DoubleValue:
		return x.V
	}
	return math.NaN()
}

// IsNaN returns true if the value is a float or double NaN.
func IsNaN(v Atomic) bool {
	switch x := v.(type) {
	case *FloatValue:
		return math.IsNaN(float64(x.V))
	case *DoubleValue:
		return math.IsNaN(x.V)
	}
	return false
}

// ValueEqual returns true if the two values are equal in the sense used by
// grouping and distinct-values: untyped values compare as strings, NaN is
// equal to itself, and values of incomparable types are simply not equal.
func ValueEqual(a, b Atomic, coll Collator) bool {
	if IsNaN(a) && IsNaN(b) {
		return true
	}
	c, err := Compare(a, b, coll)
	return err == nil && c == 0
}

// HashKey returns a string which is equal for any two values that are equal
// under ValueEqual with the codepoint collation. The converse doesn't hold:
// numbers are keyed by their double value, since that is how mixed numeric
// comparisons are done, so distinct integers or decimals may share a key.
// Callers must resolve such collisions with ValueEqual.
func HashKey(v Atomic) string {
	t := v.Type()
	switch {
	case t.IsStringLike():
		return "s:" + v.StringValue()

	case t.IsNumeric():
		if IsNaN(v) {
			return "n:NaN"
		}
		f := toFloat64(v)
		if f == 0 {
			f = 0 // -0 eq 0
		}
		return "n:" + formatFloat(f, 64)

	case t.SubTypeOf(TypeDuration):
		d := v.(*DurationValue)
		return formatDuration(d.Months, d.Dur, TypeDuration)

	case t == TypeDateTime || t == TypeDate || t == TypeTime:
		// the instant, so that equal values in other timezones match
		return t.String() + ":" + v.(*DateTimeValue).V.UTC().Format(time.RFC3339Nano)

	case t == TypeQName:
		q := v.(*QNameValue)
		return "q:{" + q.Space + "}" + q.Local
	}
	return t.String() + ":" + v.StringValue()
}
