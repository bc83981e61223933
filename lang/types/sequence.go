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
	"strings"

	"github.com/purpleidea/xqeval/lang/errcode"
)

// Sequence is an ordered collection of items. It is the universal value shape
// of the language. A sequence is never mutated after it has been handed to a
// consumer, except through the explicitly owned accumulation methods of
// ValueSequence.
type Sequence interface {
	// Len returns the number of items.
	Len() int

	// ItemAt returns the item at the zero-based index.
	ItemAt(i int) Item

	// Items returns all the items. The caller must not modify the slice.
	Items() []Item

	// IsEmpty returns true if there are no items.
	IsEmpty() bool

	// HasMany returns true if there is more than one item.
	HasMany() bool

	// Cardinality returns the cardinality matching Len.
	Cardinality() Cardinality

	// ItemType returns the most specific type common to all items.
	ItemType() Type

	// IsPersistent returns true if this is a node set backed by stored
	// documents.
	IsPersistent() bool
}

// Holder is implemented by sequences that may still need other sequences
// after the scope which bound them has been popped.
type Holder interface {
	// Holds returns true if the argument must be kept alive.
	Holds(Sequence) bool
}

// Realizer is implemented by sequences that stand for work that hasn't run
// yet.
type Realizer interface {
	// Realize runs the work and returns the real sequence.
	Realize() (Sequence, error)
}

// Realize forces a sequence that stands for pending work. Other sequences are
// returned unchanged.
func Realize(seq Sequence) (Sequence, error) {
	for {
		r, ok := seq.(Realizer)
		if !ok {
			return seq, nil
		}
		var err error
		if seq, err = r.Realize(); err != nil {
			return nil, err
		}
	}
}

// itemType computes the common supertype of a list of items.
func itemType(items []Item) Type {
	if len(items) == 0 {
		return TypeEmpty
	}
	t := items[0].Type()
	for _, item := range items[1:] {
		if t == TypeItem {
			break
		}
		t = CommonSuperType(t, item.Type())
	}
	return t
}

// ValueSequence is an in-memory sequence built during evaluation.
type ValueSequence struct {
	items []Item
}

// NewSequence builds a sequence of these items. The slice is not copied.
func NewSequence(items ...Item) *ValueSequence {
	return &ValueSequence{items: items}
}

// Singleton returns a sequence of one item.
func Singleton(item Item) Sequence {
	return &ValueSequence{items: []Item{item}}
}

// Add appends an item. Only the owner of the sequence may call this.
func (obj *ValueSequence) Add(item Item) {
	obj.items = append(obj.items, item)
}

// AddAll appends all the items of a sequence. Only the owner of the sequence
// may call this.
func (obj *ValueSequence) AddAll(seq Sequence) {
	if seq == nil {
		return
	}
	obj.items = append(obj.items, seq.Items()...)
}

// Copy returns a new sequence with the same items.
func (obj *ValueSequence) Copy() *ValueSequence {
	items := make([]Item, len(obj.items))
	copy(items, obj.items)
	return &ValueSequence{items: items}
}

// Len returns the number of items.
func (obj *ValueSequence) Len() int { return len(obj.items) }

// ItemAt returns the item at the zero-based index.
func (obj *ValueSequence) ItemAt(i int) Item { return obj.items[i] }

// Items returns all the items.
func (obj *ValueSequence) Items() []Item { return obj.items }

// IsEmpty returns true if there are no items.
func (obj *ValueSequence) IsEmpty() bool { return len(obj.items) == 0 }

// HasMany returns true if there is more than one item.
func (obj *ValueSequence) HasMany() bool { return len(obj.items) > 1 }

// Cardinality returns the cardinality matching Len.
func (obj *ValueSequence) Cardinality() Cardinality { return CardinalityOf(len(obj.items)) }

// ItemType returns the most specific type common to all items.
func (obj *ValueSequence) ItemType() Type { return itemType(obj.items) }

// IsPersistent returns false, value sequences are never stored node sets.
func (obj *ValueSequence) IsPersistent() bool { return false }

// Holds returns true if the argument is this very sequence.
func (obj *ValueSequence) Holds(seq Sequence) bool {
	other, ok := seq.(*ValueSequence)
	return ok && other == obj
}

// String returns a visual representation of the sequence.
func (obj *ValueSequence) String() string {
	return SequenceString(obj)
}

// emptySequence is the shared empty sequence.
type emptySequence struct{}

// EmptySequence is the empty sequence.
var EmptySequence Sequence = &emptySequence{}

func (obj *emptySequence) Len() int                 { return 0 }
func (obj *emptySequence) ItemAt(i int) Item        { panic("index out of range in empty sequence") }
func (obj *emptySequence) Items() []Item            { return nil }
func (obj *emptySequence) IsEmpty() bool            { return true }
func (obj *emptySequence) HasMany() bool            { return false }
func (obj *emptySequence) Cardinality() Cardinality { return Empty }
func (obj *emptySequence) ItemType() Type           { return TypeEmpty }
func (obj *emptySequence) IsPersistent() bool       { return false }
func (obj *emptySequence) String() string           { return "()" }

// RangeSequence is the sequence of the integers from Start to End inclusive.
// The items are only built when they are asked for.
type RangeSequence struct {
	Start int64
	End   int64
}

// Len returns the number of items.
func (obj *RangeSequence) Len() int {
	if obj.End < obj.Start {
		return 0
	}
	return int(obj.End - obj.Start + 1)
}

// ItemAt returns the item at the zero-based index.
func (obj *RangeSequence) ItemAt(i int) Item { return NewInteger(obj.Start + int64(i)) }

// Items returns all the items.
func (obj *RangeSequence) Items() []Item {
	items := make([]Item, 0, obj.Len())
	for i := obj.Start; i <= obj.End; i++ {
		items = append(items, NewInteger(i))
	}
	return items
}

// IsEmpty returns true if there are no items.
func (obj *RangeSequence) IsEmpty() bool { return obj.End < obj.Start }

// HasMany returns true if there is more than one item.
func (obj *RangeSequence) HasMany() bool { return obj.End > obj.Start }

// Cardinality returns the cardinality matching Len.
func (obj *RangeSequence) Cardinality() Cardinality { return CardinalityOf(obj.Len()) }

// ItemType returns the type of the items.
func (obj *RangeSequence) ItemType() Type {
	if obj.IsEmpty() {
		return TypeEmpty
	}
	return TypeInteger
}

// IsPersistent returns false.
func (obj *RangeSequence) IsPersistent() bool { return false }

// NodeSet is a sequence of nodes in document order without duplicates.
type NodeSet struct {
	nodes      []Node
	items      []Item
	persistent bool
}

// NewNodeSet builds a node set from these nodes. They are sorted and any
// duplicates are removed. A persistent set is one whose nodes all belong to
// stored documents.
func NewNodeSet(nodes []Node, persistent bool) *NodeSet {
	nodes = SortDocumentOrder(nodes)
	items := make([]Item, len(nodes))
	for i, n := range nodes {
		items[i] = n
	}
	return &NodeSet{
		nodes:      nodes,
		items:      items,
		persistent: persistent,
	}
}

// Nodes returns the nodes in document order.
func (obj *NodeSet) Nodes() []Node { return obj.nodes }

// Len returns the number of items.
func (obj *NodeSet) Len() int { return len(obj.nodes) }

// ItemAt returns the item at the zero-based index.
func (obj *NodeSet) ItemAt(i int) Item { return obj.nodes[i] }

// Items returns all the items.
func (obj *NodeSet) Items() []Item { return obj.items }

// IsEmpty returns true if there are no items.
func (obj *NodeSet) IsEmpty() bool { return len(obj.nodes) == 0 }

// HasMany returns true if there is more than one item.
func (obj *NodeSet) HasMany() bool { return len(obj.nodes) > 1 }

// Cardinality returns the cardinality matching Len.
func (obj *NodeSet) Cardinality() Cardinality { return CardinalityOf(len(obj.nodes)) }

// ItemType returns the most specific type common to all items.
func (obj *NodeSet) ItemType() Type { return itemType(obj.items) }

// IsPersistent returns true if the nodes belong to stored documents.
func (obj *NodeSet) IsPersistent() bool { return obj.persistent }

// String returns a visual representation of the sequence.
func (obj *NodeSet) String() string {
	return SequenceString(obj)
}

// Concat returns the concatenation of the sequences.
func Concat(seqs ...Sequence) Sequence {
	var single Sequence
	count := 0
	for _, seq := range seqs {
		if seq != nil && !seq.IsEmpty() {
			single = seq
			count++
		}
	}
	switch count {
	case 0:
		return EmptySequence
	case 1:
		return single // shared by reference, it is never mutated
	}
	result := &ValueSequence{}
	for _, seq := range seqs {
		result.AddAll(seq)
	}
	return result
}

// Nodes returns the items as nodes if they all are nodes.
func Nodes(seq Sequence) ([]Node, bool) {
	if ns, ok := seq.(*NodeSet); ok {
		return ns.Nodes(), true
	}
	nodes := make([]Node, 0, seq.Len())
	for _, item := range seq.Items() {
		n, ok := item.(Node)
		if !ok {
			return nil, false
		}
		nodes = append(nodes, n)
	}
	return nodes, true
}

// AtomizeItem returns the typed value of an item.
func AtomizeItem(item Item) (Atomic, error) {
	switch x := item.(type) {
	case Node:
		return NewUntyped(x.StringValue()), nil
	case FuncItem:
		return nil, errcode.New(errcode.FOTY0013, errcode.KindSubtype, "cannot atomize a function item")
	case Atomic:
		return x, nil
	}
	return nil, errcode.New(errcode.XPTY0004, errcode.KindSubtype, "cannot atomize: %s", item)
}

// Atomize replaces every node of the sequence by its typed value. Sequences
// that are already atomic are returned unchanged.
func Atomize(seq Sequence) (Sequence, error) {
	atomic := true
	for _, item := range seq.Items() {
		if _, ok := item.(Atomic); !ok {
			atomic = false
			break
		}
	}
	if atomic {
		return seq, nil
	}
	result := &ValueSequence{items: make([]Item, 0, seq.Len())}
	for _, item := range seq.Items() {
		a, err := AtomizeItem(item)
		if err != nil {
			return nil, err
		}
		result.Add(a)
	}
	return result, nil
}

// EffectiveBooleanValue computes the effective boolean value of a sequence.
func EffectiveBooleanValue(seq Sequence) (bool, error) {
	if seq.IsEmpty() {
		return false, nil
	}
	first := seq.ItemAt(0)
	if _, ok := first.(Node); ok {
		return true, nil
	}
	if seq.HasMany() {
		return false, errcode.New(errcode.FORG0006, errcode.KindSubtype, "effective boolean value is not defined for a sequence of more than one atomic value")
	}
	switch x := first.(type) {
	case *BoolValue:
		return x.V, nil
	case *StrValue:
		return x.V != "", nil
	case *IntValue:
		return x.V != 0, nil
	case *DecimalValue:
		return !x.V.IsZero(), nil
	case *FloatValue:
		return x.V != 0 && !math.IsNaN(float64(x.V)), nil
	case *DoubleValue:
		return x.V != 0 && !math.IsNaN(x.V), nil
	}
	return false, errcode.New(errcode.FORG0006, errcode.KindSubtype, "effective boolean value is not defined for %s", first.Type())
}

// SequenceString returns a visual representation of a sequence.
func SequenceString(seq Sequence) string {
	if seq.Len() == 1 {
		return seq.ItemAt(0).String()
	}
	s := []string{}
	for _, item := range seq.Items() {
		s = append(s, item.String())
	}
	return "(" + strings.Join(s, ", ") + ")"
}
