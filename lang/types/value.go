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
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Item is a member of a sequence. It is either an atomic value, a node or a
// function item.
type Item interface {
	fmt.Stringer // String() string (for display purposes)

	// Type returns the dynamic type of this item.
	Type() Type
}

// Atomic is an atomic value. Atomic values are immutable once built.
type Atomic interface {
	Item

	// StringValue returns the canonical lexical form of this value.
	StringValue() string

	// atomic is only implemented by the values of this package. Nodes have
	// a StringValue too, but they are not atomic.
	atomic()
}

// FuncItem is a function item. The engine decides how to call it.
type FuncItem interface {
	Item

	// Name returns the function name, or the empty string if anonymous.
	Name() string

	// Arity returns the number of parameters.
	Arity() int
}

// StrValue represents a string-like value. It is used for xs:string,
// xs:anyURI and xs:untypedAtomic which differ only in their type.
type StrValue struct {
	V string
	T Type
}

// NewString creates a new xs:string value.
func NewString(s string) *StrValue { return &StrValue{V: s, T: TypeString} }

// NewUntyped creates a new xs:untypedAtomic value.
func NewUntyped(s string) *StrValue { return &StrValue{V: s, T: TypeUntypedAtomic} }

// NewAnyURI creates a new xs:anyURI value.
func NewAnyURI(s string) *StrValue { return &StrValue{V: s, T: TypeAnyURI} }

// String returns a visual representation of this value.
func (obj *StrValue) String() string {
	return strconv.Quote(obj.V) // wraps in quotes, turns tabs into \t etc...
}

// Type returns the type of this value.
func (obj *StrValue) Type() Type {
	if obj.T == TypeUnknown {
		return TypeString
	}
	return obj.T
}

// StringValue returns the string.
func (obj *StrValue) StringValue() string { return obj.V }

func (obj *StrValue) atomic() {}

// BoolValue represents a boolean value.
type BoolValue struct {
	V bool
}

// NewBool creates a new boolean value.
func NewBool(b bool) *BoolValue { return &BoolValue{V: b} }

// String returns a visual representation of this value.
func (obj *BoolValue) String() string {
	return strconv.FormatBool(obj.V)
}

// Type returns the type of this value.
func (obj *BoolValue) Type() Type { return TypeBoolean }

// StringValue returns the canonical lexical form of this value.
func (obj *BoolValue) StringValue() string { return obj.String() }

func (obj *BoolValue) atomic() {}

// IntValue represents an integer value. Subtypes of xs:integer store their
// own type in T.
type IntValue struct {
	V int64
	T Type
}

// NewInteger creates a new xs:integer value.
func NewInteger(i int64) *IntValue { return &IntValue{V: i, T: TypeInteger} }

// String returns a visual representation of this value.
func (obj *IntValue) String() string {
	return strconv.FormatInt(obj.V, 10)
}

// Type returns the type of this value.
func (obj *IntValue) Type() Type {
	if obj.T == TypeUnknown {
		return TypeInteger
	}
	return obj.T
}

// StringValue returns the canonical lexical form of this value.
func (obj *IntValue) StringValue() string { return obj.String() }

func (obj *IntValue) atomic() {}

// decimalContext is used for all decimal arithmetic.
var decimalContext = apd.BaseContext.WithPrecision(34)

// DecimalValue represents an arbitrary precision decimal value.
type DecimalValue struct {
	V *apd.Decimal
}

// NewDecimal creates a new decimal value from an integer coefficient and an
// exponent, so that NewDecimal(15, -1) is 1.5.
func NewDecimal(coeff int64, exponent int32) *DecimalValue {
	return &DecimalValue{V: apd.New(coeff, exponent)}
}

// String returns a visual representation of this value.
func (obj *DecimalValue) String() string {
	return formatDecimal(obj.V)
}

// Type returns the type of this value.
func (obj *DecimalValue) Type() Type { return TypeDecimal }

// StringValue returns the canonical lexical form of this value.
func (obj *DecimalValue) StringValue() string { return obj.String() }

func (obj *DecimalValue) atomic() {}

// FloatValue represents a single precision floating point value.
type FloatValue struct {
	V float32
}

// String returns a visual representation of this value.
func (obj *FloatValue) String() string {
	return formatFloat(float64(obj.V), 32)
}

// Type returns the type of this value.
func (obj *FloatValue) Type() Type { return TypeFloat }

// StringValue returns the canonical lexical form of this value.
func (obj *FloatValue) StringValue() string { return obj.String() }

func (obj *FloatValue) atomic() {}

// DoubleValue represents a double precision floating point value.
type DoubleValue struct {
	V float64
}

// NewDouble creates a new double value.
func NewDouble(f float64) *DoubleValue { return &DoubleValue{V: f} }

// String returns a visual representation of this value.
func (obj *DoubleValue) String() string {
	return formatFloat(obj.V, 64)
}

// Type returns the type of this value.
func (obj *DoubleValue) Type() Type { return TypeDouble }

// StringValue returns the canonical lexical form of this value.
func (obj *DoubleValue) StringValue() string { return obj.String() }

func (obj *DoubleValue) atomic() {}

// DurationValue represents a value of the duration family. The month and the
// day-time components are kept apart since they can't be converted to one
// another. Both components carry the sign.
type DurationValue struct {
	Months int64
	Dur    time.Duration
	T      Type
}

// String returns a visual representation of this value.
func (obj *DurationValue) String() string {
	return formatDuration(obj.Months, obj.Dur, obj.Type())
}

// Type returns the type of this value.
func (obj *DurationValue) Type() Type {
	if obj.T == TypeUnknown {
		return TypeDuration
	}
	return obj.T
}

// StringValue returns the canonical lexical form of this value.
func (obj *DurationValue) StringValue() string { return obj.String() }

func (obj *DurationValue) atomic() {}

// DateTimeValue represents a value of the date and time family. Values with
// no timezone are stored in UTC with TZ unset.
type DateTimeValue struct {
	V  time.Time
	T  Type
	TZ bool
}

// String returns a visual representation of this value.
func (obj *DateTimeValue) String() string {
	return formatDateTime(obj.V, obj.Type(), obj.TZ)
}

// Type returns the type of this value.
func (obj *DateTimeValue) Type() Type {
	if obj.T == TypeUnknown {
		return TypeDateTime
	}
	return obj.T
}

// StringValue returns the canonical lexical form of this value.
func (obj *DateTimeValue) StringValue() string { return obj.String() }

func (obj *DateTimeValue) atomic() {}

// QNameValue represents a qualified name.
type QNameValue struct {
	Space  string
	Prefix string
	Local  string
}

// String returns a visual representation of this value.
func (obj *QNameValue) String() string {
	if obj.Space == "" {
		return obj.Local
	}
	return fmt.Sprintf("Q{%s}%s", obj.Space, obj.Local)
}

// Type returns the type of this value.
func (obj *QNameValue) Type() Type { return TypeQName }

// StringValue returns the lexical form with the prefix.
func (obj *QNameValue) StringValue() string {
	if obj.Prefix == "" {
		return obj.Local
	}
	return obj.Prefix + ":" + obj.Local
}

func (obj *QNameValue) atomic() {}

// BinaryValue represents a value of xs:hexBinary or xs:base64Binary.
type BinaryValue struct {
	V []byte
	T Type
}

// String returns a visual representation of this value.
func (obj *BinaryValue) String() string {
	if obj.Type() == TypeBase64Binary {
		return base64.StdEncoding.EncodeToString(obj.V)
	}
	return strings.ToUpper(hex.EncodeToString(obj.V))
}

// Type returns the type of this value.
func (obj *BinaryValue) Type() Type {
	if obj.T == TypeUnknown {
		return TypeHexBinary
	}
	return obj.T
}

// StringValue returns the canonical lexical form of this value.
func (obj *BinaryValue) StringValue() string { return obj.String() }

func (obj *BinaryValue) atomic() {}

// formatFloat returns the canonical form of a float or double.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case f == 0:
		if math.Signbit(f) {
			return "-0"
		}
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e6 {
		return strconv.FormatFloat(f, 'f', -1, bits)
	}
	s := strconv.FormatFloat(f, 'E', -1, bits) // eg: 1.5E+07
	i := strings.Index(s, "E")
	mantissa, exponent := s[:i], s[i+1:]
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	neg := strings.HasPrefix(exponent, "-")
	exponent = strings.TrimLeft(exponent, "+-0")
	if exponent == "" {
		exponent = "0"
	}
	if neg {
		exponent = "-" + exponent
	}
	return mantissa + "E" + exponent
}

// formatDecimal returns the canonical form of a decimal, without an exponent
// and without any trailing fractional zeros.
func formatDecimal(d *apd.Decimal) string {
	s := d.Text('f')
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}
