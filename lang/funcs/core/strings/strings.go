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

// Package corestrings contains the string functions.
package corestrings

import (
	"strings"
	"unicode/utf8"

	"github.com/purpleidea/xqeval/lang/collation"
	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/funcs"
	"github.com/purpleidea/xqeval/lang/funcs/simple"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

func init() {
	simple.ModuleRegister(funcs.FnModule, "string", &simple.Func{
		Sig:  simple.NewSig("() as xs:string"),
		Deps: interfaces.DepContextItem,
		V:    String,
	})
	simple.ModuleRegister(funcs.FnModule, "string", &simple.Func{
		Sig: simple.NewSig("($arg as item()?) as xs:string"),
		V:   String,
	})
	simple.ModuleRegister(funcs.FnModule, "string-length", &simple.Func{
		Sig:  simple.NewSig("() as xs:integer"),
		Deps: interfaces.DepContextItem,
		V:    StringLength,
	})
	simple.ModuleRegister(funcs.FnModule, "string-length", &simple.Func{
		Sig: simple.NewSig("($arg as xs:string?) as xs:integer"),
		V:   StringLength,
	})
	simple.ModuleRegister(funcs.FnModule, "concat", &simple.Func{
		Sig: simple.NewSig("($arg1 as xs:anyAtomicType?, $arg2 as xs:anyAtomicType?, $args as xs:anyAtomicType?...) as xs:string"),
		V:   Concat,
	})
	simple.ModuleRegister(funcs.FnModule, "string-join", &simple.Func{
		Sig: simple.NewSig("($arg1 as xs:anyAtomicType*) as xs:string"),
		V:   StringJoin,
	})
	simple.ModuleRegister(funcs.FnModule, "string-join", &simple.Func{
		Sig: simple.NewSig("($arg1 as xs:anyAtomicType*, $arg2 as xs:string) as xs:string"),
		V:   StringJoin,
	})
	simple.ModuleRegister(funcs.FnModule, "contains", &simple.Func{
		Sig: simple.NewSig("($arg1 as xs:string?, $arg2 as xs:string?) as xs:boolean"),
		V:   Contains,
	})
	simple.ModuleRegister(funcs.FnModule, "contains", &simple.Func{
		Sig: simple.NewSig("($arg1 as xs:string?, $arg2 as xs:string?, $collation as xs:string) as xs:boolean"),
		V:   Contains,
	})
	simple.ModuleRegister(funcs.FnModule, "starts-with", &simple.Func{
		Sig: simple.NewSig("($arg1 as xs:string?, $arg2 as xs:string?) as xs:boolean"),
		V:   StartsWith,
	})
	simple.ModuleRegister(funcs.FnModule, "upper-case", &simple.Func{
		Sig: simple.NewSig("($arg as xs:string?) as xs:string"),
		V:   UpperCase,
	})
	simple.ModuleRegister(funcs.FnModule, "lower-case", &simple.Func{
		Sig: simple.NewSig("($arg as xs:string?) as xs:string"),
		V:   LowerCase,
	})
}

// str returns the string value of an optional argument, or the empty string.
func str(seq types.Sequence) string {
	if seq.IsEmpty() {
		return ""
	}
	switch x := seq.ItemAt(0).(type) {
	case types.Node:
		return x.StringValue()
	case types.Atomic:
		return x.StringValue()
	}
	return ""
}

// contextString returns the string value of the context item.
func contextString(contextItem types.Item, name string) (string, error) {
	if contextItem == nil {
		return "", errcode.New(errcode.XPDY0002, errcode.KindDynamic, "%s called without a context item", name)
	}
	if _, ok := contextItem.(types.FuncItem); ok {
		return "", errcode.New(errcode.FOTY0014, errcode.KindSubtype, "%s called on a function item", name)
	}
	return str(types.Singleton(contextItem)), nil
}

// String returns the string value of the argument, or of the context item.
func String(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	if len(args) == 0 {
		s, err := contextString(contextItem, "fn:string")
		if err != nil {
			return nil, err
		}
		return types.Singleton(types.NewString(s)), nil
	}
	if !args[0].IsEmpty() {
		if _, ok := args[0].ItemAt(0).(types.FuncItem); ok {
			return nil, errcode.New(errcode.FOTY0014, errcode.KindSubtype, "fn:string called on a function item")
		}
	}
	return types.Singleton(types.NewString(str(args[0]))), nil
}

// StringLength returns the number of characters of the argument, or of the
// string value of the context item.
func StringLength(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	var s string
	if len(args) == 0 {
		var err error
		if s, err = contextString(contextItem, "fn:string-length"); err != nil {
			return nil, err
		}
	} else {
		s = str(args[0])
	}
	return types.Singleton(types.NewInteger(int64(utf8.RuneCountInString(s)))), nil
}

// Concat joins the string values of every argument. An empty argument counts
// as the empty string.
func Concat(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	var b strings.Builder
	for _, arg := range args {
		b.WriteString(str(arg))
	}
	return types.Singleton(types.NewString(b.String())), nil
}

// StringJoin joins the string values of the items with an optional separator.
func StringJoin(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	sep := ""
	if len(args) > 1 {
		sep = str(args[1])
	}
	s := make([]string, 0, args[0].Len())
	for _, item := range args[0].Items() {
		s = append(s, item.(types.Atomic).StringValue())
	}
	return types.Singleton(types.NewString(strings.Join(s, sep))), nil
}

// Contains returns true if the first string contains the second. With a
// collation other than codepoint the match is done on collation equality of
// every substring of the right length.
func Contains(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	s, sub := str(args[0]), str(args[1])
	coll := env.Collation
	if len(args) > 2 {
		c, err := collation.Lookup(str(args[2]))
		if err != nil {
			return nil, err
		}
		coll = c
	}
	if coll == nil || coll.IsCodepoint() || sub == "" {
		return types.Singleton(types.NewBool(strings.Contains(s, sub))), nil
	}
	runes, n := []rune(s), utf8.RuneCountInString(sub)
	for i := 0; i+n <= len(runes); i++ {
		if coll.Compare(string(runes[i:i+n]), sub) == 0 {
			return types.Singleton(types.NewBool(true)), nil
		}
	}
	return types.Singleton(types.NewBool(false)), nil
}

// StartsWith returns true if the first string starts with the second.
func StartsWith(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return types.Singleton(types.NewBool(strings.HasPrefix(str(args[0]), str(args[1])))), nil
}

// UpperCase returns the argument in upper case.
func UpperCase(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return types.Singleton(types.NewString(strings.ToUpper(str(args[0])))), nil
}

// LowerCase returns the argument in lower case.
func LowerCase(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return types.Singleton(types.NewString(strings.ToLower(str(args[0])))), nil
}
