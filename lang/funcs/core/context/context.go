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

// Package corecontext contains the functions which read the focus, and the
// document lookup.
package corecontext

import (
	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/funcs"
	"github.com/purpleidea/xqeval/lang/funcs/simple"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

func init() {
	simple.ModuleRegister(funcs.FnModule, "position", &simple.Func{
		Sig:  simple.NewSig("() as xs:integer"),
		Deps: interfaces.DepContextPosition,
		V:    Position,
	})
	simple.ModuleRegister(funcs.FnModule, "last", &simple.Func{
		Sig:  simple.NewSig("() as xs:integer"),
		Deps: interfaces.DepContextPosition | interfaces.DepContextSet,
		V:    Last,
	})
	simple.ModuleRegister(funcs.FnModule, "name", &simple.Func{
		Sig:  simple.NewSig("() as xs:string"),
		Deps: interfaces.DepContextItem,
		V:    Name,
	})
	simple.ModuleRegister(funcs.FnModule, "name", &simple.Func{
		Sig: simple.NewSig("($arg as node()?) as xs:string"),
		V:   Name,
	})
	simple.ModuleRegister(funcs.FnModule, "local-name", &simple.Func{
		Sig:  simple.NewSig("() as xs:string"),
		Deps: interfaces.DepContextItem,
		V:    LocalName,
	})
	simple.ModuleRegister(funcs.FnModule, "local-name", &simple.Func{
		Sig: simple.NewSig("($arg as node()?) as xs:string"),
		V:   LocalName,
	})
	simple.ModuleRegister(funcs.FnModule, "root", &simple.Func{
		Sig:  simple.NewSig("() as node()"),
		Deps: interfaces.DepContextItem,
		V:    Root,
	})
	simple.ModuleRegister(funcs.FnModule, "root", &simple.Func{
		Sig: simple.NewSig("($arg as node()?) as node()?"),
		V:   Root,
	})
	simple.ModuleRegister(funcs.FnModule, "doc", &simple.Func{
		Sig: simple.NewSig("($uri as xs:string?) as document-node()?"),
		V:   Doc,
	})
}

// focus returns the focus, or XPDY0002 when there is none.
func focus(env *interfaces.Env, name string) (int, int, error) {
	position, size, ok := env.Focus()
	if !ok {
		return 0, 0, errcode.New(errcode.XPDY0002, errcode.KindDynamic, "%s called without a focus", name)
	}
	return position, size, nil
}

// Position returns the context position.
func Position(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	position, _, err := focus(env, "fn:position")
	if err != nil {
		return nil, err
	}
	return types.Singleton(types.NewInteger(int64(position))), nil
}

// Last returns the context size.
func Last(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	_, size, err := focus(env, "fn:last")
	if err != nil {
		return nil, err
	}
	return types.Singleton(types.NewInteger(int64(size))), nil
}

// node returns the node argument, or the context item if there is no
// argument. The boolean is false for an empty argument.
func node(args []types.Sequence, contextItem types.Item, name string) (types.Node, bool, error) {
	if len(args) > 0 {
		if args[0].IsEmpty() {
			return nil, false, nil
		}
		return args[0].ItemAt(0).(types.Node), true, nil
	}
	if contextItem == nil {
		return nil, false, errcode.New(errcode.XPDY0002, errcode.KindDynamic, "%s called without a context item", name)
	}
	n, ok := contextItem.(types.Node)
	if !ok {
		return nil, false, errcode.New(errcode.XPTY0004, errcode.KindSubtype, "%s: the context item is not a node", name)
	}
	return n, true, nil
}

// Name returns the name of the node with its prefix.
func Name(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	n, ok, err := node(args, contextItem, "fn:name")
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.Singleton(types.NewString("")), nil
	}
	return types.Singleton(types.NewString(n.NodeName())), nil
}

// LocalName returns the local part of the name of the node.
func LocalName(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	n, ok, err := node(args, contextItem, "fn:local-name")
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.Singleton(types.NewString("")), nil
	}
	return types.Singleton(types.NewString(n.LocalName())), nil
}

// Root returns the root of the tree the node belongs to.
func Root(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	n, ok, err := node(args, contextItem, "fn:root")
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.EmptySequence, nil
	}
	for n.Parent() != nil {
		n = n.Parent()
	}
	return types.NewNodeSet([]types.Node{n}, n.Persistent()), nil
}

// Doc returns the document stored under the uri.
func Doc(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if args[0].IsEmpty() {
		return types.EmptySequence, nil
	}
	uri := args[0].ItemAt(0).(types.Atomic).StringValue()
	if env.Documents == nil {
		return nil, errcode.New(errcode.FODC0002, errcode.KindDynamic, "no document source for %s", uri)
	}
	return env.Documents.Document(uri)
}
