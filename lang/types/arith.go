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
	"math"
	"math/bits"
	"time"

	"github.com/purpleidea/xqeval/lang/errcode"

	"github.com/cockroachdb/apd/v3"
)

// ArithOp is an arithmetic operator.
type ArithOp string

// The arithmetic operators.
const (
	OpAdd  ArithOp = "+"
	OpSub  ArithOp = "-"
	OpMul  ArithOp = "*"
	OpDiv  ArithOp = "div"
	OpIDiv ArithOp = "idiv"
	OpMod  ArithOp = "mod"
)

func divByZero() error {
	return errcode.New(errcode.FOAR0001, errcode.KindArithmetic, "division by zero")
}

func overflow() error {
	return errcode.New(errcode.FOAR0002, errcode.KindArithmetic, "numeric operation overflow")
}

// Arith applies an arithmetic operator to two atomic values. Untyped values
// are cast to xs:double first. Integer arithmetic that overflows raises
// FOAR0002 and division by zero outside of floating point raises FOAR0001.
func Arith(op ArithOp, a, b Atomic) (Atomic, error) {
	var err error
	if a.Type() == TypeUntypedAtomic {
		if a, err = Convert(a, TypeDouble, nil); err != nil {
			return nil, err
		}
	}
	if b.Type() == TypeUntypedAtomic {
		if b, err = Convert(b, TypeDouble, nil); err != nil {
			return nil, err
		}
	}
	ta, tb := a.Type(), b.Type()

	switch {
	case ta.IsNumeric() && tb.IsNumeric():
		return arithNumeric(op, a, b)

	case ta.SubTypeOf(TypeDuration) || tb.SubTypeOf(TypeDuration) || ta == TypeDateTime || ta == TypeDate || ta == TypeTime:
		if result, ok, err := arithTemporal(op, a, b); ok {
			return result, err
		}
	}
	return nil, errcode.New(errcode.XPTY0004, errcode.KindSubtype, "operator %s is not defined for %s and %s", op, ta, tb)
}

// Negate returns the arithmetic negation of a numeric value.
func Negate(a Atomic) (Atomic, error) {
	var err error
	if a.Type() == TypeUntypedAtomic {
		if a, err = Convert(a, TypeDouble, nil); err != nil {
			return nil, err
		}
	}
	switch x := a.(type) {
	case *IntValue:
		if x.V == math.MinInt64 {
			return nil, overflow()
		}
		return NewInteger(-x.V), nil
	case *DecimalValue:
		d := &apd.Decimal{}
		d.Neg(x.V)
		return &DecimalValue{V: d}, nil
	case *FloatValue:
		return &FloatValue{V: -x.V}, nil
	case *DoubleValue:
		return NewDouble(-x.V), nil
	case *DurationValue:
		return &DurationValue{Months: -x.Months, Dur: -x.Dur, T: x.Type()}, nil
	}
	return nil, errcode.New(errcode.XPTY0004, errcode.KindSubtype, "unary minus is not defined for %s", a.Type())
}

func arithNumeric(op ArithOp, a, b Atomic) (Atomic, error) {
	x, xok := a.(*IntValue)
	y, yok := b.(*IntValue)
	if xok && yok && op != OpDiv {
		return arithInteger(op, x.V, y.V)
	}

	ta, tb := a.Type(), b.Type()
	if ta.SubTypeOf(TypeDecimal) && tb.SubTypeOf(TypeDecimal) {
		return arithDecimal(op, toDecimal(a), toDecimal(b))
	}

	f, g := toFloat64(a), toFloat64(b)
	float := ta == TypeFloat && tb != TypeDouble || tb == TypeFloat && ta != TypeDouble
	var r float64
	switch op {
	case OpAdd:
		r = f + g
	case OpSub:
		r = f - g
	case OpMul:
		r = f * g
	case OpDiv:
		r = f / g
	case OpMod:
		r = math.Mod(f, g)
	case OpIDiv:
		if g == 0 {
			return nil, divByZero()
		}
		if math.IsNaN(f) || math.IsNaN(g) || math.IsInf(f, 0) {
			return nil, overflow()
		}
		q := math.Trunc(f / g)
		if q < math.MinInt64 || q >= math.MaxInt64 {
			return nil, overflow()
		}
		return NewInteger(int64(q)), nil
	}
	if float {
		return &FloatValue{V: float32(r)}, nil
	}
	return NewDouble(r), nil
}

func arithInteger(op ArithOp, x, y int64) (Atomic, error) {
	switch op {
	case OpAdd:
		r := x + y
		if (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r >= 0) {
			return nil, overflow()
		}
		return NewInteger(r), nil

	case OpSub:
		r := x - y
		if (x >= 0 && y < 0 && r < 0) || (x < 0 && y > 0 && r >= 0) {
			return nil, overflow()
		}
		return NewInteger(r), nil

	case OpMul:
		if x == 0 || y == 0 {
			return NewInteger(0), nil
		}
		hi, lo := bits.Mul64(uint64(abs64(x)), uint64(abs64(y)))
		neg := (x < 0) != (y < 0)
		if hi != 0 || lo > math.MaxInt64 && !(neg && lo == 1<<63) || x == math.MinInt64 || y == math.MinInt64 {
			return nil, overflow()
		}
		if neg {
			return NewInteger(-int64(lo)), nil
		}
		return NewInteger(int64(lo)), nil

	case OpIDiv:
		if y == 0 {
			return nil, divByZero()
		}
		if x == math.MinInt64 && y == -1 {
			return nil, overflow()
		}
		return NewInteger(x / y), nil

	case OpMod:
		if y == 0 {
			return nil, divByZero()
		}
		if y == -1 {
			return NewInteger(0), nil
		}
		return NewInteger(x % y), nil
	}
	return arithDecimal(op, apd.New(x, 0), apd.New(y, 0))
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func arithDecimal(op ArithOp, x, y *apd.Decimal) (Atomic, error) {
	r := &apd.Decimal{}
	var err error
	switch op {
	case OpAdd:
		_, err = decimalContext.Add(r, x, y)
	case OpSub:
		_, err = decimalContext.Sub(r, x, y)
	case OpMul:
		_, err = decimalContext.Mul(r, x, y)
	case OpDiv:
		if y.IsZero() {
			return nil, divByZero()
		}
		_, err = decimalContext.Quo(r, x, y)
	case OpMod:
		if y.IsZero() {
			return nil, divByZero()
		}
		_, err = decimalContext.Rem(r, x, y)
	case OpIDiv:
		if y.IsZero() {
			return nil, divByZero()
		}
		if _, err = decimalContext.QuoInteger(r, x, y); err != nil {
			return nil, overflow()
		}
		i, err := r.Int64()
		if err != nil {
			return nil, overflow()
		}
		return NewInteger(i), nil
	}
	if err != nil {
		return nil, overflow()
	}
	return &DecimalValue{V: r}, nil
}

// arithTemporal handles durations and dates. It returns false if the operand
// types are not a supported combination.
func arithTemporal(op ArithOp, a, b Atomic) (Atomic, bool, error) {
	da, aDur := a.(*DurationValue)
	db, bDur := b.(*DurationValue)
	ta, aTime := a.(*DateTimeValue)
	tb, bTime := b.(*DateTimeValue)

	switch {
	case aDur && bDur && a.Type() == b.Type() && a.Type() != TypeDuration:
		switch op {
		case OpAdd:
			return &DurationValue{Months: da.Months + db.Months, Dur: da.Dur + db.Dur, T: a.Type()}, true, nil
		case OpSub:
			return &DurationValue{Months: da.Months - db.Months, Dur: da.Dur - db.Dur, T: a.Type()}, true, nil
		case OpDiv:
			if db.Months == 0 && db.Dur == 0 {
				return nil, true, divByZero()
			}
			if a.Type() == TypeYearMonthDuration {
				return &DecimalValue{V: quo(da.Months, db.Months)}, true, nil
			}
			return &DecimalValue{V: quo(int64(da.Dur), int64(db.Dur))}, true, nil
		}

	case aDur && !bDur && b.Type().IsNumeric() && (op == OpMul || op == OpDiv):
		f := toFloat64(b)
		if op == OpDiv {
			if f == 0 {
				return nil, true, errcode.New(errcode.FODT0001, errcode.KindArithmetic, "duration division by zero")
			}
			f = 1 / f
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, true, errcode.New(errcode.FODT0001, errcode.KindArithmetic, "duration overflow")
		}
		months := int64(math.Round(float64(da.Months) * f))
		dur := time.Duration(math.Round(float64(da.Dur) * f))
		return &DurationValue{Months: months, Dur: dur, T: a.Type()}, true, nil

	case bDur && a.Type().IsNumeric() && op == OpMul:
		result, ok, err := arithTemporal(op, b, a)
		return result, ok, err

	case aTime && bDur && (op == OpAdd || op == OpSub):
		months, dur := db.Months, db.Dur
		if op == OpSub {
			months, dur = -months, -dur
		}
		t := ta.V.AddDate(0, int(months), 0).Add(dur)
		return &DateTimeValue{V: t, T: ta.Type(), TZ: ta.TZ}, true, nil

	case aTime && bTime && op == OpSub && a.Type() == b.Type():
		return &DurationValue{Dur: ta.V.Sub(tb.V), T: TypeDayTimeDuration}, true, nil
	}
	return nil, false, nil
}

func quo(x, y int64) *apd.Decimal {
	r := &apd.Decimal{}
	decimalContext.Quo(r, apd.New(x, 0), apd.New(y, 0))
	return r
}
