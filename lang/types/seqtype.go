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
	"strings"

	"github.com/purpleidea/xqeval/lang/errcode"
)

// SequenceType is the pairing of an item type and a cardinality which is
// attached to parameters, variables and return values.
type SequenceType struct {
	Type        Type
	Cardinality Cardinality
}

// AnySequence is item()* which accepts everything.
var AnySequence = SequenceType{Type: TypeItem, Cardinality: ZeroOrMore}

// IsAny returns true if every sequence matches.
func (obj SequenceType) IsAny() bool {
	return obj.Type == TypeItem && obj.Cardinality == ZeroOrMore
}

// String returns the sequence type as it is written in a query.
func (obj SequenceType) String() string {
	if obj.Cardinality == Empty || obj.Type == TypeEmpty {
		return TypeEmpty.String()
	}
	return obj.Type.String() + obj.Cardinality.Indicator()
}

// Matches returns true if the sequence is an instance of this type. No
// promotion or atomization is applied.
func (obj SequenceType) Matches(seq Sequence) bool {
	if !obj.Cardinality.Allows(seq.Len()) {
		return false
	}
	if obj.Type == TypeItem || seq.IsEmpty() {
		return true
	}
	for _, item := range seq.Items() {
		if !item.Type().SubTypeOf(obj.Type) {
			return false
		}
	}
	return true
}

// ParseSequenceType parses a sequence type such as xs:integer? or node()*.
func ParseSequenceType(s string) (SequenceType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SequenceType{}, errcode.Static(errcode.XPST0003, "empty sequence type")
	}
	if s == TypeEmpty.String() {
		return SequenceType{Type: TypeEmpty, Cardinality: Empty}, nil
	}
	card := ExactlyOne
	switch s[len(s)-1] {
	case '?':
		card = ZeroOrOne
	case '*':
		card = ZeroOrMore
	case '+':
		card = OneOrMore
	}
	if card != ExactlyOne {
		s = s[:len(s)-1] // function(*) ends in a paren so it is safe
	}
	t, err := ParseType(s)
	if err != nil {
		return SequenceType{}, err
	}
	return SequenceType{Type: t, Cardinality: card}, nil
}
