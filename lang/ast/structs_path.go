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

package ast

import (
	"fmt"
	"strings"
	"sync"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

// contextDeps are the dependencies which a path step satisfies for the nodes
// on its right.
const contextDeps = interfaces.DepContextSet | interfaces.DepContextItem | interfaces.DepContextPosition

// ExprPath is a chain of steps evaluated left to right. The result of each
// step is the context sequence of the next one.
type ExprPath struct {
	interfaces.Textarea
	staticInfo

	Steps []interfaces.Expr

	singleStep bool
}

// String returns a short representation of this expression.
func (obj *ExprPath) String() string {
	return joinExprs(obj.Steps, "/")
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprPath) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Steps...); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprPath) Analyze(ctx *interfaces.AnalyzeContext) error {
	if len(obj.Steps) == 0 {
		return errcode.Static(errcode.XPST0003, "empty path expression")
	}
	obj.singleStep = ctx.Has(interfaces.FlagSingleStepExecution)
	stepCtx := ctx.Without(interfaces.FlagTailPosition)
	for i, step := range obj.Steps {
		if i > 0 {
			stepCtx = stepCtx.WithContext(obj.Steps[i-1].ReturnsType())
		}
		if err := analyze(stepCtx.Child(obj), step); err != nil {
			return err
		}
		deps := step.Dependencies()
		if i > 0 {
			deps &^= contextDeps
		}
		obj.deps |= deps
	}
	last := obj.Steps[len(obj.Steps)-1]
	obj.typ = last.ReturnsType()
	obj.card = types.ZeroOrMore
	if len(obj.Steps) == 1 {
		obj.card = last.Cardinality()
	}
	obj.analyzed = true
	return nil
}

// perItem returns true if the step must run once per context item. That's
// the case when it depends on the context item or position, and always when
// the context is not a persistent node set.
func (obj *ExprPath) perItem(step interfaces.Expr, seq types.Sequence) bool {
	if obj.singleStep || !seq.HasMany() {
		return false
	}
	if !seq.IsPersistent() {
		return true
	}
	return step.Dependencies().Any(interfaces.DepContextItem | interfaces.DepContextPosition)
}

// Eval runs the steps.
func (obj *ExprPath) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	var result types.Sequence
	for i, step := range obj.Steps {
		if err := env.Proceed(step); err != nil {
			return nil, err
		}
		if i == 0 {
			seq, err := eval(env, step, contextSeq, contextItem)
			if err != nil {
				return nil, err
			}
			result = seq
			continue
		}
		if result.IsEmpty() {
			return types.EmptySequence, nil // nothing can follow
		}
		if _, ok := types.Nodes(result); !ok {
			return nil, errcode.New(errcode.XPTY0019, errcode.KindMixedResult, "the result of a step before %s contains atomic values", step)
		}

		var seq types.Sequence
		var err error
		if obj.perItem(step, result) {
			seq, err = obj.evalPerItem(env, step, result)
		} else {
			seq, err = eval(env, step, result, nil)
		}
		if err != nil {
			return nil, err
		}
		if seq, err = normalizeStep(seq, i == len(obj.Steps)-1); err != nil {
			return nil, err
		}
		result = seq
	}
	return result, nil
}

// evalPerItem runs a step once per context item and concatenates the results.
func (obj *ExprPath) evalPerItem(env *interfaces.Env, step interfaces.Expr, seq types.Sequence) (types.Sequence, error) {
	result := types.NewSequence()
	size := seq.Len()
	if env.Profiling() {
		env.Profiler.Message(step, "OPTIMIZATION", "per item step", fmt.Sprintf("%d context items", size))
	}
	for i, item := range seq.Items() {
		if err := env.Proceed(step); err != nil {
			return nil, err
		}
		restore := env.SetFocus(i+1, size)
		r, err := eval(env, step, seq, item)
		restore()
		if err != nil {
			return nil, err
		}
		if err := env.ProceedOutput(obj, result.Len()+r.Len()); err != nil {
			return nil, err
		}
		result.AddAll(r)
	}
	return result, nil
}

// normalizeStep puts the node results of a step in document order without
// duplicates. A mix of nodes and atomic values is an error.
func normalizeStep(seq types.Sequence, last bool) (types.Sequence, error) {
	if _, ok := seq.(*types.NodeSet); ok || seq.IsEmpty() {
		return seq, nil
	}
	nodes := []types.Node{}
	atomic := 0
	for _, item := range seq.Items() {
		if n, ok := item.(types.Node); ok {
			nodes = append(nodes, n)
			continue
		}
		atomic++
	}
	switch {
	case atomic == 0:
		return types.NewNodeSet(nodes, allPersistent(nodes)), nil
	case len(nodes) == 0 && last:
		return seq, nil
	case len(nodes) == 0:
		return nil, errcode.New(errcode.XPTY0019, errcode.KindMixedResult, "intermediate step returned atomic values")
	}
	return nil, errcode.New(errcode.XPTY0018, errcode.KindMixedResult, "the result of the last step contains both nodes and atomic values")
}

// allPersistent returns true if all the nodes belong to stored documents.
func allPersistent(nodes []types.Node) bool {
	for _, n := range nodes {
		if !n.Persistent() {
			return false
		}
	}
	return true
}

// Axis is the direction of a step.
type Axis string

const (
	// AxisChild selects the children.
	AxisChild Axis = "child"
	// AxisDescendant selects the descendants.
	AxisDescendant Axis = "descendant"
	// AxisDescendantOrSelf selects the node and its descendants.
	AxisDescendantOrSelf Axis = "descendant-or-self"
	// AxisSelf selects the node itself.
	AxisSelf Axis = "self"
	// AxisParent selects the parent.
	AxisParent Axis = "parent"
	// AxisAncestor selects the ancestors.
	AxisAncestor Axis = "ancestor"
	// AxisAncestorOrSelf selects the node and its ancestors.
	AxisAncestorOrSelf Axis = "ancestor-or-self"
	// AxisAttribute selects the attributes.
	AxisAttribute Axis = "attribute"
)

// valid returns true for the supported axes.
func (obj Axis) valid() bool {
	switch obj {
	case AxisChild, AxisDescendant, AxisDescendantOrSelf, AxisSelf, AxisParent, AxisAncestor, AxisAncestorOrSelf, AxisAttribute:
		return true
	}
	return false
}

// nodes returns the nodes of the axis in axis order. The ancestors come
// nearest first, so that positions count backwards on the reverse axes.
func (obj Axis) nodes(n types.Node) ([]types.Node, error) {
	switch obj {
	case AxisChild:
		return n.Children(), nil
	case AxisDescendant:
		return types.Descendants(n), nil
	case AxisDescendantOrSelf:
		return append([]types.Node{n}, types.Descendants(n)...), nil
	case AxisSelf:
		return []types.Node{n}, nil
	case AxisParent:
		if p := n.Parent(); p != nil {
			return []types.Node{p}, nil
		}
		return nil, nil
	case AxisAncestor, AxisAncestorOrSelf:
		result := []types.Node{}
		if obj == AxisAncestorOrSelf {
			result = append(result, n)
		}
		for p := n.Parent(); p != nil; p = p.Parent() {
			result = append(result, p)
		}
		return result, nil
	case AxisAttribute:
		return n.Attributes(), nil
	}
	return nil, errcode.Static(errcode.XPST0003, "unknown axis: %s", obj)
}

// NodeTest selects nodes by kind and name.
type NodeTest struct {
	// Kind is the node kind, or TypeNode for any kind.
	Kind types.Type

	// Name is the name to match, or "*" or the empty string for any name.
	// A name without a prefix matches the local name.
	Name string
}

// String returns the test as it is written in a query.
func (obj NodeTest) String() string {
	if obj.Name != "" && (obj.Kind == types.TypeElement || obj.Kind == types.TypeAttribute) {
		return obj.Name
	}
	return obj.Kind.String()
}

// Matches returns true if the node passes the test.
func (obj NodeTest) Matches(n types.Node) bool {
	if !n.Type().SubTypeOf(obj.Kind) {
		return false
	}
	switch {
	case obj.Name == "" || obj.Name == "*":
		return true
	case strings.HasPrefix(obj.Name, "*:"):
		return n.LocalName() == obj.Name[2:]
	case strings.Contains(obj.Name, interfaces.ModuleSep):
		return n.NodeName() == obj.Name
	}
	return n.LocalName() == obj.Name
}

// ExprStep is an axis step with a node test and optional predicates. It reads
// the whole context set, so a path runs it in bulk mode over persistent node
// sets.
type ExprStep struct {
	interfaces.Textarea
	staticInfo

	Axis       Axis
	Test       NodeTest
	Predicates []interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *ExprStep) String() string {
	s := fmt.Sprintf("%s::%s", obj.Axis, obj.Test)
	for _, p := range obj.Predicates {
		s += fmt.Sprintf("[%s]", p)
	}
	return s
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprStep) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Predicates...); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprStep) Analyze(ctx *interfaces.AnalyzeContext) error {
	if obj.Axis == "" {
		obj.Axis = AxisChild
	}
	if obj.Test.Kind == types.TypeUnknown {
		obj.Test.Kind = types.TypeElement
		if obj.Axis == AxisAttribute {
			obj.Test.Kind = types.TypeAttribute
		}
	}
	if !obj.Test.Kind.IsNode() {
		return errcode.Static(errcode.XPST0003, "invalid node test: %s", obj.Test.Kind)
	}
	if !obj.Axis.valid() {
		return errcode.Static(errcode.XPST0003, "unknown axis: %s", obj.Axis)
	}
	obj.deps = interfaces.DepContextSet
	if err := analyzePredicates(ctx, obj, obj.Test.Kind, obj.Predicates); err != nil {
		return err
	}
	for _, p := range obj.Predicates {
		obj.deps |= p.Dependencies() &^ contextDeps
	}
	obj.typ, obj.card = obj.Test.Kind, types.ZeroOrMore
	obj.analyzed = true
	return nil
}

// Eval applies the axis to every context node.
func (obj *ExprStep) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	var context []types.Item
	switch {
	case contextItem != nil:
		context = []types.Item{contextItem}
	case contextSeq != nil:
		context = contextSeq.Items()
	default:
		return nil, errcode.Wrap(interfaces.ErrNoFocus, errcode.XPDY0002, errcode.KindDynamic, "no context for %s", obj)
	}

	result := []types.Node{}
	for _, item := range context {
		n, ok := item.(types.Node)
		if !ok {
			return nil, errcode.New(errcode.XPTY0020, errcode.KindSubtype, "context item of an axis step is not a node: %s", item)
		}
		candidates, err := obj.Axis.nodes(n)
		if err != nil {
			return nil, err
		}
		selected := []types.Item{}
		for _, c := range candidates {
			if obj.Test.Matches(c) {
				selected = append(selected, c)
			}
		}
		if len(obj.Predicates) > 0 {
			if selected, err = applyPredicates(env, obj.Predicates, selected); err != nil {
				return nil, err
			}
		}
		for _, s := range selected {
			result = append(result, s.(types.Node))
		}
	}
	return types.NewNodeSet(result, allPersistent(result)), nil
}

// analyzePredicates analyzes predicates with a new context.
func analyzePredicates(ctx *interfaces.AnalyzeContext, parent interfaces.Expr, contextType types.Type, predicates []interfaces.Expr) error {
	pctx := ctx.Without(interfaces.FlagTailPosition).WithContext(contextType).With(interfaces.FlagInPredicate)
	for _, p := range predicates {
		if err := analyze(pctx.Child(parent), p); err != nil {
			return err
		}
	}
	return nil
}

// applyPredicates filters the items with each predicate in turn. A numeric
// predicate value selects by position, any other value by its effective
// boolean value. Predicates which don't depend on the focus run only once.
func applyPredicates(env *interfaces.Env, predicates []interfaces.Expr, items []types.Item) ([]types.Item, error) {
	for _, p := range predicates {
		if len(items) == 0 {
			return items, nil
		}
		seq := types.NewSequence(items...)
		size := len(items)
		if !p.Dependencies().Any(contextDeps) {
			r, err := eval(env, p, seq, nil)
			if err != nil {
				return nil, err
			}
			keep := []types.Item{}
			for i, item := range items {
				ok, err := predicateTruth(r, i+1)
				if err != nil {
					return nil, err
				}
				if ok {
					keep = append(keep, item)
				}
			}
			items = keep
			continue
		}
		keep := []types.Item{}
		for i, item := range items {
			if err := env.Proceed(p); err != nil {
				return nil, err
			}
			restore := env.SetFocus(i+1, size)
			r, err := eval(env, p, seq, item)
			restore()
			if err != nil {
				return nil, err
			}
			ok, err := predicateTruth(r, i+1)
			if err != nil {
				return nil, err
			}
			if ok {
				keep = append(keep, item)
			}
		}
		items = keep
	}
	return items, nil
}

// predicateTruth decides if the item at this position passes the predicate.
func predicateTruth(r types.Sequence, position int) (bool, error) {
	if r.Len() == 1 {
		if a, ok := r.ItemAt(0).(types.Atomic); ok && a.Type().IsNumeric() {
			c, err := types.Compare(a, types.NewInteger(int64(position)), nil)
			if err == types.ErrUnordered {
				return false, nil
			}
			return err == nil && c == 0, err
		}
	}
	return types.EffectiveBooleanValue(r)
}

// ExprFilter is a primary expression followed by predicates. The items keep
// the order of the primary expression.
type ExprFilter struct {
	interfaces.Textarea
	staticInfo

	Primary    interfaces.Expr
	Predicates []interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *ExprFilter) String() string {
	s := obj.Primary.String()
	for _, p := range obj.Predicates {
		s += fmt.Sprintf("[%s]", p)
	}
	return s
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprFilter) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Primary); err != nil {
		return err
	}
	if err := applyAll(fn, obj.Predicates...); err != nil {
		return err
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node.
func (obj *ExprFilter) Analyze(ctx *interfaces.AnalyzeContext) error {
	if err := analyzeAll(ctx, obj, obj.Primary); err != nil {
		return err
	}
	if err := analyzePredicates(ctx, obj, obj.Primary.ReturnsType(), obj.Predicates); err != nil {
		return err
	}
	obj.deps = obj.Primary.Dependencies()
	for _, p := range obj.Predicates {
		obj.deps |= p.Dependencies() &^ contextDeps
	}
	obj.typ = obj.Primary.ReturnsType()
	obj.card = obj.Primary.Cardinality().Union(types.ZeroOrOne)
	if !obj.Primary.Cardinality().AtMostOne() {
		obj.card = types.ZeroOrMore
	}
	obj.analyzed = true
	return nil
}

// Eval filters the primary sequence.
func (obj *ExprFilter) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	seq, err := eval(env, obj.Primary, contextSeq, contextItem)
	if err != nil {
		return nil, err
	}
	items, err := applyPredicates(env, obj.Predicates, seq.Items())
	if err != nil {
		return nil, err
	}
	if len(items) == seq.Len() {
		return seq, nil
	}
	return types.NewSequence(items...), nil
}

// ExprRoot is the leading slash of an absolute path. It returns the root of
// the tree holding the context node.
type ExprRoot struct {
	interfaces.Textarea
	staticInfo
}

// String returns a short representation of this expression.
func (obj *ExprRoot) String() string { return "root()" }

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprRoot) Apply(fn func(interfaces.Expr) error) error { return fn(obj) }

// Analyze performs the static analysis of this node.
func (obj *ExprRoot) Analyze(ctx *interfaces.AnalyzeContext) error {
	obj.typ, obj.card = types.TypeNode, types.ExactlyOne
	obj.deps = interfaces.DepContextItem
	obj.analyzed = true
	return nil
}

// Eval returns the root of the context node.
func (obj *ExprRoot) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if contextItem == nil && contextSeq != nil && contextSeq.Len() == 1 {
		contextItem = contextSeq.ItemAt(0)
	}
	if contextItem == nil {
		return nil, errcode.Wrap(interfaces.ErrNoFocus, errcode.XPDY0002, errcode.KindDynamic, "no context node for the root")
	}
	n, ok := contextItem.(types.Node)
	if !ok {
		return nil, errcode.New(errcode.XPTY0020, errcode.KindSubtype, "context item is not a node: %s", contextItem)
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		n = p
	}
	return types.NewNodeSet([]types.Node{n}, n.Persistent()), nil
}

// ExprDoc returns the root of a stored document. The node set is cached for
// the lifetime of the tree, and the cache is dropped when the document layer
// reports an update of the same document.
type ExprDoc struct {
	interfaces.Textarea
	staticInfo

	URI string

	mutex  *sync.Mutex
	cached types.Sequence
	cancel func()
}

// String returns a short representation of this expression.
func (obj *ExprDoc) String() string {
	return fmt.Sprintf("doc(%q)", obj.URI)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprDoc) Apply(fn func(interfaces.Expr) error) error { return fn(obj) }

// Analyze performs the static analysis of this node.
func (obj *ExprDoc) Analyze(ctx *interfaces.AnalyzeContext) error {
	if obj.URI == "" {
		return errcode.Static(errcode.XPST0003, "doc without a uri")
	}
	obj.mutex = &sync.Mutex{}
	obj.typ, obj.card = types.TypeDocument, types.ZeroOrOne
	obj.analyzed = true
	return nil
}

// Eval returns the document root.
func (obj *ExprDoc) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if env.Documents == nil {
		return nil, errcode.New(errcode.FODC0002, errcode.KindDynamic, "no document source to load %s", obj.URI)
	}
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	if obj.cached != nil {
		return obj.cached, nil
	}
	if obj.cancel == nil {
		obj.cancel = env.Documents.Subscribe(obj.invalidate)
	}
	seq, err := env.Documents.Document(obj.URI)
	if err != nil {
		return nil, err
	}
	obj.cached = seq
	return seq, nil
}

// invalidate drops the cache if the update is about our document. It runs on
// the goroutine of whoever changed the document.
func (obj *ExprDoc) invalidate(uri string) {
	if uri != obj.URI {
		return
	}
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	obj.cached = nil
}

// IsCached returns true if the node set is cached.
func (obj *ExprDoc) IsCached() bool {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	return obj.cached != nil
}

// ResetState drops the cache.
func (obj *ExprDoc) ResetState(postOptimization bool) {
	if obj.mutex == nil {
		return
	}
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	obj.cached = nil
}

// Close unsubscribes from the document layer.
func (obj *ExprDoc) Close() error {
	if obj.mutex == nil {
		return nil
	}
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	if obj.cancel != nil {
		obj.cancel()
		obj.cancel = nil
	}
	obj.cached = nil
	return nil
}
