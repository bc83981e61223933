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

package interfaces

import (
	"fmt"
	"sort"
	"strings"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/util/errwrap"
)

// Flag is a bitmask of facts about the position of a node in the tree which
// are passed down during analysis.
type Flag uint32

const (
	// FlagInPredicate is set inside a filter predicate.
	FlagInPredicate Flag = 1 << iota

	// FlagInWhereClause is set inside the condition of a where clause.
	FlagInWhereClause

	// FlagSingleStepExecution is set when the context is known to hold a
	// single item, so per-item evaluation is never needed.
	FlagSingleStepExecution

	// FlagInNodeConstructor is set inside node constructors.
	FlagInNodeConstructor

	// FlagTailPosition is set when the value of the node is the value of
	// the enclosing function body.
	FlagTailPosition

	// FlagInFunctionBody is set inside the body of a function.
	FlagInFunctionBody

	// FlagInGroupBy is set inside the key expressions of a group by.
	FlagInGroupBy
)

// String returns a visual representation of the flags.
func (obj Flag) String() string {
	s := []string{}
	for _, x := range []struct {
		flag Flag
		name string
	}{
		{FlagInPredicate, "IN_PREDICATE"},
		{FlagInWhereClause, "IN_WHERE_CLAUSE"},
		{FlagSingleStepExecution, "SINGLE_STEP_EXECUTION"},
		{FlagInNodeConstructor, "IN_NODE_CONSTRUCTOR"},
		{FlagTailPosition, "TAIL_POSITION"},
		{FlagInFunctionBody, "IN_FUNCTION_BODY"},
		{FlagInGroupBy, "IN_GROUP_BY"},
	} {
		if obj&x.flag != 0 {
			s = append(s, x.name)
		}
	}
	return strings.Join(s, " | ")
}

// localVar is an immutable chain of the local variables in scope.
type localVar struct {
	name string
	typ  types.SequenceType
	next *localVar
}

// AnalyzeContext is the record which is propagated top-down during analysis.
// Each subtree owns its own copy. The methods which change it return a new
// copy and never modify the receiver.
type AnalyzeContext struct {
	// Parent is the node which is analyzing its child with this context.
	Parent Expr

	// Flags are the facts about the current position in the tree.
	Flags Flag

	// StaticType is the inferred type of the context item, or TypeItem if
	// it isn't known.
	StaticType types.Type

	// ContextID correlates the nodes which evaluate against the same
	// context, so that nested context dependent evaluations stay aligned.
	ContextID int

	// Function is the signature of the function whose body is being
	// analyzed, or nil outside of a named function body.
	Function *Signature

	// Static is shared by the whole tree.
	Static *StaticContext

	locals *localVar
}

// NewAnalyzeContext returns the root context for a tree.
func NewAnalyzeContext(static *StaticContext) *AnalyzeContext {
	return &AnalyzeContext{
		StaticType: types.TypeItem,
		Static:     static,
	}
}

// Copy returns a copy of the context.
func (obj *AnalyzeContext) Copy() *AnalyzeContext {
	c := *obj
	return &c
}

// Child returns a copy with the parent set.
func (obj *AnalyzeContext) Child(parent Expr) *AnalyzeContext {
	c := obj.Copy()
	c.Parent = parent
	return c
}

// With returns a copy with the flags added.
func (obj *AnalyzeContext) With(flags Flag) *AnalyzeContext {
	c := obj.Copy()
	c.Flags |= flags
	return c
}

// Without returns a copy with the flags removed.
func (obj *AnalyzeContext) Without(flags Flag) *AnalyzeContext {
	c := obj.Copy()
	c.Flags &^= flags
	return c
}

// Has returns true if all of the flags are set.
func (obj *AnalyzeContext) Has(flags Flag) bool {
	return obj.Flags&flags == flags
}

// WithContext returns a copy for analyzing a node which evaluates against a
// new context, such as the right hand side of a path step or a predicate.
func (obj *AnalyzeContext) WithContext(staticType types.Type) *AnalyzeContext {
	c := obj.Copy()
	c.StaticType = staticType
	c.ContextID = obj.Static.NextContextID()
	return c
}

// Declare returns a copy with a new local variable in scope.
func (obj *AnalyzeContext) Declare(name string, typ types.SequenceType) *AnalyzeContext {
	c := obj.Copy()
	c.locals = &localVar{
		name: name,
		typ:  typ,
		next: obj.locals,
	}
	return c
}

// Lookup returns the type of a local variable in scope.
func (obj *AnalyzeContext) Lookup(name string) (types.SequenceType, bool) {
	for v := obj.locals; v != nil; v = v.next {
		if v.name == name {
			return v.typ, true
		}
	}
	return types.SequenceType{}, false
}

// Locals returns the names of the local variables in scope, innermost first.
func (obj *AnalyzeContext) Locals() []string {
	result := []string{}
	for v := obj.locals; v != nil; v = v.next {
		result = append(result, v.name)
	}
	return result
}

// FunctionBody returns a copy for analyzing the body of a function. Local
// variables are dropped unless keepLocals is true, which is what closures of
// inline functions need.
func (obj *AnalyzeContext) FunctionBody(sig *Signature, keepLocals bool) *AnalyzeContext {
	c := obj.Copy()
	c.Parent = nil
	c.Flags = FlagInFunctionBody | FlagTailPosition
	c.StaticType = types.TypeItem
	c.ContextID = obj.Static.NextContextID()
	c.Function = sig
	if !keepLocals {
		c.locals = nil
	}
	return c
}

// ForwardReference is a node which refers to a declaration that might not be
// known yet during the first analysis pass.
type ForwardReference interface {
	// Resolve looks the declaration up again and patches the node. It
	// errors if it still can't be found.
	Resolve(*StaticContext) error
}

// StaticContext is shared by the whole tree during analysis.
type StaticContext struct {
	// Resolver finds functions and global variables.
	Resolver Resolver

	// Namespaces maps the prefixes declared by the query to their URI.
	// The predeclared prefixes are always available.
	Namespaces map[string]string

	// DefaultCollation is the collation URI used when none is named. The
	// empty string is the codepoint collation.
	DefaultCollation string

	// Debug represents if we're running in debug mode or not.
	Debug bool

	// Logf is a logger which should be used.
	Logf func(format string, v ...interface{})

	forward []ForwardReference
	nextID  int
}

// predeclared are the namespaces which every query can use.
var predeclared = map[string]string{
	"xml":   "http://www.w3.org/XML/1998/namespace",
	"xs":    "http://www.w3.org/2001/XMLSchema",
	"xsi":   "http://www.w3.org/2001/XMLSchema-instance",
	"fn":    "http://www.w3.org/2005/xpath-functions",
	"math":  "http://www.w3.org/2005/xpath-functions/math",
	"local": "http://www.w3.org/2005/xquery-local-functions",
	"err":   "http://www.w3.org/2005/xqt-errors",
}

// ResolvePrefix returns the namespace URI bound to a prefix.
func (obj *StaticContext) ResolvePrefix(prefix string) (string, bool) {
	if uri, exists := obj.Namespaces[prefix]; exists {
		return uri, true
	}
	uri, exists := predeclared[prefix]
	return uri, exists
}

// NextContextID returns a fresh correlation id.
func (obj *StaticContext) NextContextID() int {
	obj.nextID++
	return obj.nextID
}

// AddForwardReference records a node to patch after the first pass.
func (obj *StaticContext) AddForwardReference(ref ForwardReference) {
	obj.forward = append(obj.forward, ref)
}

// ResolveForwardReferences patches every recorded node. All the failures are
// collected so that the user sees every unresolved name at once.
func (obj *StaticContext) ResolveForwardReferences() error {
	var reterr error
	forward := obj.forward
	obj.forward = nil
	for _, ref := range forward {
		if err := ref.Resolve(obj); err != nil {
			reterr = errwrap.Append(reterr, err)
		}
	}
	return reterr
}

// PendingReferences returns the number of nodes which are waiting on a
// declaration.
func (obj *StaticContext) PendingReferences() int {
	return len(obj.forward)
}

// UnknownFunction builds the error for a function which can't be found.
func UnknownFunction(name string, arity int) error {
	return errcode.Static(errcode.XPST0017, "function %s#%d is not defined", name, arity)
}

// UnknownVariable builds the error for a variable which can't be found.
func UnknownVariable(name string) error {
	return errcode.Static(errcode.XPST0008, "variable $%s is not defined", name)
}

// NamespaceList returns a sorted representation of the declared namespaces,
// which is used when dumping debug information.
func (obj *StaticContext) NamespaceList() []string {
	result := []string{}
	for prefix, uri := range obj.Namespaces {
		result = append(result, fmt.Sprintf("%s=%s", prefix, uri))
	}
	sort.Strings(result)
	return result
}
