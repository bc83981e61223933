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
	"sort"
)

// Node is an XML node. Nodes are provided by the document layer, they are
// never built by the engine itself.
type Node interface {
	Item

	// LocalName returns the local part of the node name.
	LocalName() string

	// NodeName returns the name with its prefix, or the empty string for
	// nodes that have no name.
	NodeName() string

	// Namespace returns the namespace of the node name.
	Namespace() string

	// StringValue returns the string value of the node.
	StringValue() string

	// Parent returns the parent, or nil for a root.
	Parent() Node

	// Children returns the child nodes in document order.
	Children() []Node

	// Attributes returns the attribute nodes of an element.
	Attributes() []Node

	// DocumentID is the identity of the tree the node belongs to.
	DocumentID() string

	// Order is the position of the node within its tree in document order.
	Order() int

	// Persistent returns true if the node belongs to a stored document.
	Persistent() bool
}

// SameNode returns true if both nodes have the same identity.
func SameNode(a, b Node) bool {
	return a.DocumentID() == b.DocumentID() && a.Order() == b.Order()
}

// NodeBefore returns true if a is before b in document order. Nodes of
// different trees are ordered by their tree identity which is stable.
func NodeBefore(a, b Node) bool {
	if a.DocumentID() != b.DocumentID() {
		return a.DocumentID() < b.DocumentID()
	}
	return a.Order() < b.Order()
}

// SortDocumentOrder sorts the nodes into document order and removes any
// duplicates. The input slice is reused.
func SortDocumentOrder(nodes []Node) []Node {
	sort.SliceStable(nodes, func(i, j int) bool {
		return NodeBefore(nodes[i], nodes[j])
	})
	result := nodes[:0]
	for i, n := range nodes {
		if i > 0 && SameNode(result[len(result)-1], n) {
			continue
		}
		result = append(result, n)
	}
	return result
}

// Descendants returns all the descendants of the node in document order. It
// doesn't include attributes.
func Descendants(node Node) []Node {
	result := []Node{}
	for _, child := range node.Children() {
		result = append(result, child)
		result = append(result, Descendants(child)...) // recurse
	}
	return result
}
