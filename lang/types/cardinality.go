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
	"fmt"
)

// Cardinality is the size class of a sequence. It is a bitmask so that the
// declared constraints are simple unions of the three basic classes.
type Cardinality uint8

const (
	cardZero Cardinality = 1 << iota
	cardOne
	cardMany
)

const (
	// Empty allows only the empty sequence.
	Empty = cardZero

	// ExactlyOne allows only a singleton.
	ExactlyOne = cardOne

	// ZeroOrOne allows the empty sequence or a singleton.
	ZeroOrOne = cardZero | cardOne

	// OneOrMore allows any non-empty sequence.
	OneOrMore = cardOne | cardMany

	// ZeroOrMore allows any sequence.
	ZeroOrMore = cardZero | cardOne | cardMany

	// Many is the internal marker for two or more items. It is what an
	// actual sequence of that length reports.
	Many = cardMany
)

// CardinalityOf returns the cardinality of a sequence of this length.
func CardinalityOf(n int) Cardinality {
	switch {
	case n <= 0:
		return Empty
	case n == 1:
		return ExactlyOne
	}
	return Many
}

// IsSuperCardinalityOrEqualOf returns true if every sequence allowed by the
// other cardinality is also allowed by this one.
func (obj Cardinality) IsSuperCardinalityOrEqualOf(other Cardinality) bool {
	return obj&other == other
}

// Allows returns true if a sequence of length n satisfies this cardinality.
func (obj Cardinality) Allows(n int) bool {
	return obj.IsSuperCardinalityOrEqualOf(CardinalityOf(n))
}

// AtLeastOne returns true if the empty sequence is not allowed.
func (obj Cardinality) AtLeastOne() bool {
	return obj&cardZero == 0
}

// AtMostOne returns true if more than one item is not allowed.
func (obj Cardinality) AtMostOne() bool {
	return obj&cardMany == 0
}

// Union returns the smallest cardinality that allows both of these.
func (obj Cardinality) Union(other Cardinality) Cardinality {
	return obj | other
}

// Concat returns the cardinality of the concatenation of two sequences.
func (obj Cardinality) Concat(other Cardinality) Cardinality {
	if obj == Empty {
		return other
	}
	if other == Empty {
		return obj
	}
	c := cardMany
	if obj&cardZero != 0 || other&cardZero != 0 {
		c |= cardOne // one side may vanish
	}
	if obj&cardZero != 0 && other&cardZero != 0 {
		c |= cardZero
	}
	return c
}

// Indicator returns the occurrence indicator used in a sequence type.
func (obj Cardinality) Indicator() string {
	switch obj {
	case ZeroOrOne:
		return "?"
	case OneOrMore, Many:
		return "+"
	case ZeroOrMore:
		return "*"
	}
	return ""
}

// String returns a human description.
func (obj Cardinality) String() string {
	switch obj {
	case Empty:
		return "empty"
	case ExactlyOne:
		return "exactly one"
	case ZeroOrOne:
		return "zero or one"
	case OneOrMore:
		return "one or more"
	case ZeroOrMore:
		return "zero or more"
	case Many:
		return "more than one"
	}
	return fmt.Sprintf("cardinality(%d)", uint8(obj))
}
