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

// Package types provides the value model and the type system of the query
// language. Types form two lattices, one for atomic values rooted at
// xs:anyAtomicType and one for nodes rooted at node(), which are joined under
// item().
package types

import (
	"fmt"
	"strings"

	"github.com/purpleidea/xqeval/lang/errcode"
)

// Type is a node in the type lattice.
type Type int

// The list of supported types. The order is only significant in that the
// zero value is the unknown type.
const (
	TypeUnknown Type = iota
	TypeItem

	TypeAnyAtomic
	TypeUntypedAtomic
	TypeString
	TypeAnyURI
	TypeBoolean
	TypeNumeric // union of decimal, float and double
	TypeDecimal
	TypeInteger
	TypeLong
	TypeInt
	TypeFloat
	TypeDouble
	TypeDuration
	TypeDayTimeDuration
	TypeYearMonthDuration
	TypeDateTime
	TypeDate
	TypeTime
	TypeQName
	TypeHexBinary
	TypeBase64Binary

	TypeNode
	TypeElement
	TypeAttribute
	TypeDocument
	TypeText
	TypeNamespace
	TypeProcessingInstruction
	TypeComment

	TypeFunction
	TypeEmpty // empty-sequence()
)

// parents is the direct supertype of each type.
var parents = map[Type]Type{
	TypeAnyAtomic:             TypeItem,
	TypeUntypedAtomic:         TypeAnyAtomic,
	TypeString:                TypeAnyAtomic,
	TypeAnyURI:                TypeAnyAtomic,
	TypeBoolean:               TypeAnyAtomic,
	TypeNumeric:               TypeAnyAtomic,
	TypeDecimal:               TypeAnyAtomic,
	TypeInteger:               TypeDecimal,
	TypeLong:                  TypeInteger,
	TypeInt:                   TypeLong,
	TypeFloat:                 TypeAnyAtomic,
	TypeDouble:                TypeAnyAtomic,
	TypeDuration:              TypeAnyAtomic,
	TypeDayTimeDuration:       TypeDuration,
	TypeYearMonthDuration:     TypeDuration,
	TypeDateTime:              TypeAnyAtomic,
	TypeDate:                  TypeAnyAtomic,
	TypeTime:                  TypeAnyAtomic,
	TypeQName:                 TypeAnyAtomic,
	TypeHexBinary:             TypeAnyAtomic,
	TypeBase64Binary:          TypeAnyAtomic,
	TypeNode:                  TypeItem,
	TypeElement:               TypeNode,
	TypeAttribute:             TypeNode,
	TypeDocument:              TypeNode,
	TypeText:                  TypeNode,
	TypeNamespace:             TypeNode,
	TypeProcessingInstruction: TypeNode,
	TypeComment:               TypeNode,
	TypeFunction:              TypeItem,
}

// unions lists the member types of each union type.
var unions = map[Type][]Type{
	TypeNumeric: {TypeDecimal, TypeFloat, TypeDouble},
}

var names = map[Type]string{
	TypeUnknown:               "unknown",
	TypeItem:                  "item()",
	TypeAnyAtomic:             "xs:anyAtomicType",
	TypeUntypedAtomic:         "xs:untypedAtomic",
	TypeString:                "xs:string",
	TypeAnyURI:                "xs:anyURI",
	TypeBoolean:               "xs:boolean",
	TypeNumeric:               "xs:numeric",
	TypeDecimal:               "xs:decimal",
	TypeInteger:               "xs:integer",
	TypeLong:                  "xs:long",
	TypeInt:                   "xs:int",
	TypeFloat:                 "xs:float",
	TypeDouble:                "xs:double",
	TypeDuration:              "xs:duration",
	TypeDayTimeDuration:       "xs:dayTimeDuration",
	TypeYearMonthDuration:     "xs:yearMonthDuration",
	TypeDateTime:              "xs:dateTime",
	TypeDate:                  "xs:date",
	TypeTime:                  "xs:time",
	TypeQName:                 "xs:QName",
	TypeHexBinary:             "xs:hexBinary",
	TypeBase64Binary:          "xs:base64Binary",
	TypeNode:                  "node()",
	TypeElement:               "element()",
	TypeAttribute:             "attribute()",
	TypeDocument:              "document-node()",
	TypeText:                  "text()",
	TypeNamespace:             "namespace-node()",
	TypeProcessingInstruction: "processing-instruction()",
	TypeComment:               "comment()",
	TypeFunction:              "function(*)",
	TypeEmpty:                 "empty-sequence()",
}

// String returns the name of the type as it is written in a query.
func (obj Type) String() string {
	if s, exists := names[obj]; exists {
		return s
	}
	return fmt.Sprintf("type(%d)", int(obj))
}

// Parent returns the direct supertype. The root returns TypeUnknown.
func (obj Type) Parent() Type {
	return parents[obj] // zero value is TypeUnknown
}

// SubTypeOf returns true if this type is the other type or one of its
// descendants. The empty sequence type is a subtype of everything.
func (obj Type) SubTypeOf(other Type) bool {
	if obj == other || obj == TypeEmpty {
		return true
	}
	if other == TypeItem {
		return obj != TypeUnknown
	}
	if members, exists := unions[other]; exists {
		return obj.SubTypeOfUnion(members)
	}
	for t := obj.Parent(); t != TypeUnknown; t = t.Parent() {
		if t == other {
			return true
		}
	}
	return false
}

// SubTypeOfUnion returns true if this type is a subtype of any of the members.
func (obj Type) SubTypeOfUnion(members []Type) bool {
	for _, m := range members {
		if obj.SubTypeOf(m) {
			return true
		}
	}
	return false
}

// IsAtomic returns true for atomic types.
func (obj Type) IsAtomic() bool {
	return obj != TypeEmpty && obj.SubTypeOf(TypeAnyAtomic)
}

// IsNode returns true for node kinds.
func (obj Type) IsNode() bool {
	return obj != TypeEmpty && obj.SubTypeOf(TypeNode)
}

// IsNumeric returns true for members of the numeric union.
func (obj Type) IsNumeric() bool {
	return obj != TypeEmpty && obj.SubTypeOf(TypeNumeric)
}

// IsStringLike returns true for the types that compare as strings.
func (obj Type) IsStringLike() bool {
	return obj == TypeString || obj == TypeAnyURI || obj == TypeUntypedAtomic
}

// IsAbstract returns true for types that can't be the target of a cast.
func (obj Type) IsAbstract() bool {
	return obj == TypeAnyAtomic || obj == TypeNumeric || obj == TypeItem || obj == TypeUnknown
}

// ancestors returns the chain from this type up to the root, itself first.
func (obj Type) ancestors() []Type {
	result := []Type{}
	for t := obj; t != TypeUnknown; t = t.Parent() {
		result = append(result, t)
	}
	return result
}

// CommonSuperType returns the most specific type that both arguments are a
// subtype of.
func CommonSuperType(a, b Type) Type {
	if a == b || b == TypeEmpty {
		return a
	}
	if a == TypeEmpty {
		return b
	}
	if a == TypeUnknown || b == TypeUnknown {
		return TypeItem
	}
	if a.IsNumeric() && b.IsNumeric() && a.SubTypeOf(TypeDecimal) != b.SubTypeOf(TypeDecimal) {
		return TypeNumeric
	}
	if a.IsNumeric() && b.IsNumeric() && (a == TypeFloat || a == TypeDouble) && (b == TypeFloat || b == TypeDouble) {
		return TypeNumeric
	}
	chain := a.ancestors()
	for t := b; t != TypeUnknown; t = t.Parent() {
		for _, x := range chain {
			if x == t {
				return t
			}
		}
	}
	return TypeItem
}

// ParseType parses a type name such as xs:integer or element(). The xs prefix
// may be omitted for atomic types.
func ParseType(name string) (Type, error) {
	s := strings.TrimSpace(name)
	if strings.HasSuffix(s, "()") || strings.HasSuffix(s, "(*)") {
		for t, n := range names {
			if n == s {
				return t, nil
			}
		}
		if s == "document()" {
			return TypeDocument, nil
		}
		return TypeUnknown, errcode.Static(errcode.XPST0051, "unknown type: %s", name)
	}
	if !strings.Contains(s, ":") {
		s = "xs:" + s
	}
	for t, n := range names {
		if n == s && t != TypeUnknown {
			return t, nil
		}
	}
	return TypeUnknown, errcode.Static(errcode.XPST0051, "unknown atomic type: %s", name)
}
