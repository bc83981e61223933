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

package store

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/purpleidea/xqeval/lang/types"

	"github.com/google/uuid"
)

// document is one parsed tree. Every node of a tree points to it.
type document struct {
	id         string
	uri        string
	persistent bool
	root       *node
	size       int // number of nodes
}

// node is an XML node of a parsed tree. Trees are immutable once parsed: an
// update replaces the whole document.
type node struct {
	kind   types.Type
	prefix string
	local  string
	space  string
	value  string // for attributes, text, comments and processing instructions

	parent   *node
	children []*node
	attrs    []*node

	doc   *document
	order int
}

// String returns a short representation of the node.
func (obj *node) String() string {
	switch obj.kind {
	case types.TypeDocument:
		if obj.doc.uri != "" {
			return fmt.Sprintf("document(%s)", obj.doc.uri)
		}
		return "document()"
	case types.TypeElement:
		return fmt.Sprintf("<%s/>", obj.NodeName())
	case types.TypeAttribute:
		return fmt.Sprintf("%s=%q", obj.NodeName(), obj.value)
	case types.TypeText:
		return fmt.Sprintf("text(%q)", obj.value)
	case types.TypeComment:
		return fmt.Sprintf("<!--%s-->", obj.value)
	case types.TypeProcessingInstruction:
		return fmt.Sprintf("<?%s %s?>", obj.local, obj.value)
	}
	return obj.kind.String()
}

// Type returns the node kind.
func (obj *node) Type() types.Type { return obj.kind }

// LocalName returns the local part of the node name.
func (obj *node) LocalName() string { return obj.local }

// NodeName returns the name with its prefix.
func (obj *node) NodeName() string {
	if obj.prefix == "" {
		return obj.local
	}
	return obj.prefix + ":" + obj.local
}

// Namespace returns the namespace of the node name.
func (obj *node) Namespace() string { return obj.space }

// StringValue returns the concatenation of the descendant text for documents
// and elements, and the value for the other kinds.
func (obj *node) StringValue() string {
	if obj.kind != types.TypeDocument && obj.kind != types.TypeElement {
		return obj.value
	}
	var b strings.Builder
	var walk func(n *node)
	walk = func(n *node) {
		for _, c := range n.children {
			switch c.kind {
			case types.TypeText:
				b.WriteString(c.value)
			case types.TypeElement:
				walk(c)
			}
		}
	}
	walk(obj)
	return b.String()
}

// Parent returns the parent, or nil for a root.
func (obj *node) Parent() types.Node {
	if obj.parent == nil {
		return nil // not a typed nil
	}
	return obj.parent
}

// Children returns the child nodes in document order.
func (obj *node) Children() []types.Node {
	result := make([]types.Node, len(obj.children))
	for i, c := range obj.children {
		result[i] = c
	}
	return result
}

// Attributes returns the attribute nodes of an element.
func (obj *node) Attributes() []types.Node {
	result := make([]types.Node, len(obj.attrs))
	for i, a := range obj.attrs {
		result[i] = a
	}
	return result
}

// DocumentID is the identity of the tree the node belongs to.
func (obj *node) DocumentID() string { return obj.doc.id }

// Order is the position of the node in document order.
func (obj *node) Order() int { return obj.order }

// Persistent returns true if the node belongs to a stored document.
func (obj *node) Persistent() bool { return obj.doc.persistent }

// parse builds a tree from XML text. Whitespace-only text between elements is
// dropped.
func parse(data []byte, uri string, persistent bool) (*node, error) {
	doc := &document{
		id:         uuid.New().String(),
		uri:        uri,
		persistent: persistent,
	}
	root := &node{kind: types.TypeDocument, doc: doc}
	doc.root = root

	// keep the prefixes, which the decoder replaces by the namespace
	prefixes := []map[string]string{{"xml": "http://www.w3.org/XML/1998/namespace"}}
	lookupPrefix := func(space string) string {
		for i := len(prefixes) - 1; i >= 0; i-- {
			for p, s := range prefixes[i] {
				if s == space {
					return p
				}
			}
		}
		return ""
	}

	next := 1
	add := func(parent, n *node) {
		n.parent, n.doc, n.order = parent, doc, next
		next++
		parent.children = append(parent.children, n)
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	current := root
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			scope := map[string]string{}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					scope[a.Name.Local] = a.Value
				}
			}
			prefixes = append(prefixes, scope)
			el := &node{
				kind:   types.TypeElement,
				local:  t.Name.Local,
				space:  t.Name.Space,
				prefix: lookupPrefix(t.Name.Space),
			}
			add(current, el)
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				attr := &node{
					kind:   types.TypeAttribute,
					local:  a.Name.Local,
					space:  a.Name.Space,
					prefix: lookupPrefix(a.Name.Space),
					value:  a.Value,
					parent: el,
					doc:    doc,
					order:  next,
				}
				next++
				el.attrs = append(el.attrs, attr)
			}
			current = el

		case xml.EndElement:
			prefixes = prefixes[:len(prefixes)-1]
			current = current.parent

		case xml.CharData:
			s := string(t)
			if strings.TrimSpace(s) == "" {
				continue
			}
			if n := len(current.children); n > 0 && current.children[n-1].kind == types.TypeText {
				current.children[n-1].value += s // merge adjacent text
				continue
			}
			add(current, &node{kind: types.TypeText, value: s})

		case xml.Comment:
			add(current, &node{kind: types.TypeComment, value: string(t)})

		case xml.ProcInst:
			if t.Target == "xml" {
				continue // the declaration isn't a node
			}
			add(current, &node{kind: types.TypeProcessingInstruction, local: t.Target, value: string(t.Inst)})
		}
	}
	if current != root {
		return nil, fmt.Errorf("unclosed element: %s", current.NodeName())
	}
	doc.size = next
	return root, nil
}

// ParseFragment builds a transient tree from XML text and returns its
// document node. The nodes aren't persistent.
func ParseFragment(s string) (types.Node, error) {
	root, err := parse([]byte(s), "", false)
	if err != nil {
		return nil, err
	}
	return root, nil
}
