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
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/util"

	"github.com/cockroachdb/apd/v3"
)

// NamespaceResolver maps a namespace prefix to its namespace. It is needed to
// cast a string to a QName.
type NamespaceResolver interface {
	// ResolvePrefix returns the namespace bound to the prefix.
	ResolvePrefix(prefix string) (string, bool)
}

var (
	floatRegexp = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
	ncnameRegexp = regexp.MustCompile(`^[\pL_][\pL\pN._\-]*$`)
)

// truncContext rounds towards zero when casting a decimal to an integer.
var truncContext = func() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundDown
	return ctx
}()

// castError builds the error returned when no conversion exists.
func castError(v Atomic, target Type) error {
	return errcode.New(errcode.XPTY0004, errcode.KindCast, "cannot cast %s to %s", v.Type(), target)
}

// invalidValue builds the error returned when the value doesn't fit.
func invalidValue(v Atomic, target Type) error {
	return errcode.New(errcode.FORG0001, errcode.KindCast, "invalid value for cast to %s: %s", target, v)
}

// Convert casts an atomic value to the target type. It returns an error when
// the conversion is not allowed or when the value doesn't fit in the target.
// The namespace resolver is only used when the target is xs:QName and may be
// nil otherwise.
func Convert(v Atomic, target Type, ns NamespaceResolver) (Atomic, error) {
	source := v.Type()
	if target == TypeAnyAtomic || target == TypeItem {
		return v, nil
	}
	if target.IsAbstract() || !target.IsAtomic() {
		return nil, errcode.Static(errcode.XPST0080, "cannot cast to %s", target)
	}
	if source == target {
		return v, nil
	}

	switch target {
	case TypeUntypedAtomic:
		return NewUntyped(v.StringValue()), nil
	case TypeString:
		return NewString(v.StringValue()), nil
	}

	if source == TypeString || source == TypeUntypedAtomic {
		return fromString(v, strings.TrimSpace(v.StringValue()), target, ns)
	}

	switch {
	case target == TypeBoolean:
		return toBoolean(v, target)

	case target.IsNumeric():
		return toNumeric(v, target)

	case target.SubTypeOf(TypeDuration):
		d, ok := v.(*DurationValue)
		if !ok {
			break
		}
		switch target {
		case TypeDayTimeDuration:
			return &DurationValue{Dur: d.Dur, T: target}, nil
		case TypeYearMonthDuration:
			return &DurationValue{Months: d.Months, T: target}, nil
		}
		return &DurationValue{Months: d.Months, Dur: d.Dur, T: target}, nil

	case target == TypeDateTime || target == TypeDate || target == TypeTime:
		d, ok := v.(*DateTimeValue)
		if !ok || source == TypeTime {
			break // time has no date part
		}
		if source == TypeDate && target == TypeTime {
			break
		}
		t := d.V
		switch target {
		case TypeDate:
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		case TypeTime:
			t = time.Date(0, time.January, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
		}
		return &DateTimeValue{V: t, T: target, TZ: d.TZ}, nil

	case target == TypeHexBinary || target == TypeBase64Binary:
		if b, ok := v.(*BinaryValue); ok {
			return &BinaryValue{V: b.V, T: target}, nil
		}
	}

	return nil, castError(v, target)
}

// fromString parses the lexical form of the target type.
func fromString(v Atomic, s string, target Type, ns NamespaceResolver) (Atomic, error) {
	switch {
	case target == TypeAnyURI:
		return NewAnyURI(s), nil

	case target == TypeBoolean:
		switch s {
		case "true", "1":
			return NewBool(true), nil
		case "false", "0":
			return NewBool(false), nil
		}
		return nil, invalidValue(v, target)

	case target.SubTypeOf(TypeInteger):
		i, err := strconv.ParseInt(strings.TrimPrefix(s, "+"), 10, 64)
		if err != nil {
			if e, ok := err.(*strconv.NumError); ok && e.Err == strconv.ErrRange {
				return nil, errcode.New(errcode.FOCA0003, errcode.KindCast, "value too large for integer: %s", s)
			}
			return nil, invalidValue(v, target)
		}
		return castInteger(i, target, v)

	case target == TypeDecimal:
		if strings.ContainsAny(s, "eEnNiI") {
			return nil, invalidValue(v, target) // no exponent, no NaN or INF
		}
		d, _, err := apd.NewFromString(s)
		if err != nil {
			return nil, invalidValue(v, target)
		}
		return &DecimalValue{V: d}, nil

	case target == TypeDouble || target == TypeFloat:
		f, err := parseFloat(s, target)
		if err != nil {
			return nil, invalidValue(v, target)
		}
		if target == TypeFloat {
			return &FloatValue{V: float32(f)}, nil
		}
		return NewDouble(f), nil

	case target.SubTypeOf(TypeDuration):
		d, err := parseDuration(s, target)
		if err != nil {
			return nil, invalidValue(v, target)
		}
		return d, nil

	case target == TypeDateTime || target == TypeDate || target == TypeTime:
		d, err := parseDateTime(s, target)
		if err != nil {
			return nil, invalidValue(v, target)
		}
		return d, nil

	case target == TypeHexBinary:
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, invalidValue(v, target)
		}
		return &BinaryValue{V: b, T: target}, nil

	case target == TypeBase64Binary:
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
		if err != nil {
			return nil, invalidValue(v, target)
		}
		return &BinaryValue{V: b, T: target}, nil

	case target == TypeQName:
		return parseQName(v, s, ns)
	}

	return nil, castError(v, target)
}

// parseFloat parses the lexical form of a float or a double.
func parseFloat(s string, target Type) (float64, error) {
	switch s {
	case "INF", "+INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	case "NaN":
		return math.NaN(), nil
	}
	if !floatRegexp.MatchString(s) {
		return 0, util.Error("invalid floating point value")
	}
	bits := 64
	if target == TypeFloat {
		bits = 32
	}
	f, err := strconv.ParseFloat(s, bits)
	if e, ok := err.(*strconv.NumError); ok && e.Err == strconv.ErrRange {
		return f, nil // overflow gives INF which is a valid value
	}
	return f, err
}

// parseQName resolves a lexical QName with the namespace resolver.
func parseQName(v Atomic, s string, ns NamespaceResolver) (Atomic, error) {
	prefix, local := util.SplitQName(s)
	if !ncnameRegexp.MatchString(local) || (prefix != "" && !ncnameRegexp.MatchString(prefix)) {
		return nil, invalidValue(v, TypeQName)
	}
	space := ""
	if ns != nil {
		space, _ = ns.ResolvePrefix("") // default element namespace
	}
	if prefix != "" {
		var exists bool
		if ns != nil {
			space, exists = ns.ResolvePrefix(prefix)
		}
		if !exists {
			return nil, errcode.New(errcode.FONS0004, errcode.KindCast, "no namespace found for prefix: %s", prefix)
		}
	}
	return &QNameValue{Space: space, Prefix: prefix, Local: local}, nil
}

// castInteger checks that the integer fits in the target subtype.
func castInteger(i int64, target Type, v Atomic) (Atomic, error) {
	if target == TypeInt && (i < math.MinInt32 || i > math.MaxInt32) {
		return nil, invalidValue(v, target)
	}
	return &IntValue{V: i, T: target}, nil
}

// toBoolean converts a numeric value to a boolean.
func toBoolean(v Atomic, target Type) (Atomic, error) {
	switch x := v.(type) {
	case *IntValue:
		return NewBool(x.V != 0), nil
	case *DecimalValue:
		return NewBool(!x.V.IsZero()), nil
	case *FloatValue:
		return NewBool(x.V != 0 && !math.IsNaN(float64(x.V))), nil
	case *DoubleValue:
		return NewBool(x.V != 0 && !math.IsNaN(x.V)), nil
	}
	return nil, castError(v, target)
}

// toNumeric converts between the numeric types and from booleans.
func toNumeric(v Atomic, target Type) (Atomic, error) {
	if b, ok := v.(*BoolValue); ok {
		i := int64(0)
		if b.V {
			i = 1
		}
		v = NewInteger(i)
	}

	switch target {
	case TypeDouble, TypeFloat:
		var f float64
		switch x := v.(type) {
		case *IntValue:
			f = float64(x.V)
		case *DecimalValue:
			var err error
			if f, err = x.V.Float64(); err != nil {
				return nil, invalidValue(v, target)
			}
		case *FloatValue:
			f = float64(x.V)
		case *DoubleValue:
			f = x.V
		default:
			return nil, castError(v, target)
		}
		if target == TypeFloat {
			return &FloatValue{V: float32(f)}, nil
		}
		return NewDouble(f), nil

	case TypeDecimal:
		switch x := v.(type) {
		case *IntValue:
			return &DecimalValue{V: apd.New(x.V, 0)}, nil
		case *FloatValue:
			return floatToDecimal(v, float64(x.V))
		case *DoubleValue:
			return floatToDecimal(v, x.V)
		}
		return nil, castError(v, target)
	}

	// integer and its subtypes
	switch x := v.(type) {
	case *IntValue:
		return castInteger(x.V, target, v)

	case *DecimalValue:
		var r apd.Decimal
		if _, err := truncContext.RoundToIntegralValue(&r, x.V); err != nil {
			return nil, invalidValue(v, target)
		}
		i, err := r.Int64()
		if err != nil {
			return nil, errcode.New(errcode.FOCA0003, errcode.KindCast, "value too large for integer: %s", v)
		}
		return castInteger(i, target, v)

	case *FloatValue:
		return floatToInteger(v, float64(x.V), target)

	case *DoubleValue:
		return floatToInteger(v, x.V, target)
	}
	return nil, castError(v, target)
}

func floatToDecimal(v Atomic, f float64) (Atomic, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errcode.New(errcode.FOCA0002, errcode.KindCast, "cannot cast %s to xs:decimal", v)
	}
	d := &apd.Decimal{}
	if _, err := d.SetFloat64(f); err != nil {
		return nil, invalidValue(v, TypeDecimal)
	}
	return &DecimalValue{V: d}, nil
}

func floatToInteger(v Atomic, f float64, target Type) (Atomic, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errcode.New(errcode.FOCA0002, errcode.KindCast, "cannot cast %s to %s", v, target)
	}
	f = math.Trunc(f)
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, errcode.New(errcode.FOCA0003, errcode.KindCast, "value too large for integer: %s", v)
	}
	return castInteger(int64(f), target, v)
}

// Promote applies the promotion rules which let a value of one type stand in
// for another: xs:anyURI to xs:string, numeric widening from decimal to float
// to double, and refinement of a plain duration into one of its subtypes when
// the value fits. It returns false if no promotion applies. Untyped values are
// not handled here since they are cast instead.
func Promote(v Atomic, target Type) (Atomic, bool) {
	source := v.Type()
	switch {
	case source == TypeAnyURI && target == TypeString:
		return NewString(v.StringValue()), true

	case source.SubTypeOf(TypeDecimal) && (target == TypeFloat || target == TypeDouble):
		a, err := toNumeric(v, target)
		return a, err == nil

	case source == TypeFloat && target == TypeDouble:
		return NewDouble(float64(v.(*FloatValue).V)), true

	case source == TypeDuration && target == TypeDayTimeDuration:
		if d := v.(*DurationValue); d.Months == 0 {
			return &DurationValue{Dur: d.Dur, T: target}, true
		}

	case source == TypeDuration && target == TypeYearMonthDuration:
		if d := v.(*DurationValue); d.Dur == 0 {
			return &DurationValue{Months: d.Months, T: target}, true
		}
	}
	return nil, false
}
