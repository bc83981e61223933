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

// Package simple is a helper for writing built-in functions as plain Go
// functions with a signature written as a string.
package simple

import (
	"fmt"
	"strings"

	"github.com/purpleidea/xqeval/lang/funcs"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

// Func is a built-in function. The arguments it receives were already
// converted to the declared parameter types.
type Func struct {
	Sig *interfaces.Signature

	// Deps are the dependencies of a call apart from its arguments.
	Deps interfaces.Dependency

	V func(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error)
}

// Signature returns the signature of the function.
func (obj *Func) Signature() *interfaces.Signature { return obj.Sig }

// Dependencies returns the dependencies of a call apart from its arguments.
func (obj *Func) Dependencies() interfaces.Dependency { return obj.Deps }

// Call runs the function.
func (obj *Func) Call(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return obj.V(env, args, contextItem)
}

// Register registers a built-in function under its full name.
func Register(name string, fn *Func) {
	fn.Sig.Name = name
	funcs.Register(name, func() interfaces.Function { return fn })
}

// ModuleRegister is exactly like Register, except that it registers within a
// named module. This is a helper function.
func ModuleRegister(module, name string, fn *Func) {
	Register(module+funcs.ModuleSep+name, fn)
}

// NewSig parses a signature such as `($a as xs:string?, $b as xs:string?) as
// xs:boolean`. A last parameter followed by `...` accepts any number of
// arguments. It panics on error, since signatures are written by hand at init.
func NewSig(s string) *interfaces.Signature {
	sig, err := ParseSig(s)
	if err != nil {
		panic(fmt.Sprintf("invalid signature %q: %+v", s, err))
	}
	return sig
}

// ParseSig parses a signature. See NewSig for the format.
func ParseSig(s string) (*interfaces.Signature, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return nil, fmt.Errorf("missing parens")
	}
	end, depth := -1, 0
	for i, c := range s {
		if c == '(' {
			depth++
		} else if c == ')' {
			depth--
		}
		if depth == 0 {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("unbalanced parens")
	}
	rest := strings.TrimSpace(s[end+1:])
	if !strings.HasPrefix(rest, "as ") {
		return nil, fmt.Errorf("missing return type")
	}
	ret, err := types.ParseSequenceType(strings.TrimPrefix(rest, "as "))
	if err != nil {
		return nil, err
	}
	sig := &interfaces.Signature{
		Params: []interfaces.Param{},
		Return: ret,
	}
	inner := strings.TrimSpace(s[1:end])
	if inner == "" {
		return sig, nil
	}
	for _, p := range strings.Split(inner, ",") {
		p = strings.TrimSpace(p)
		if strings.HasSuffix(p, "...") {
			sig.Variadic = true
			p = strings.TrimSpace(strings.TrimSuffix(p, "..."))
		} else if sig.Variadic {
			return nil, fmt.Errorf("only the last parameter can be variadic")
		}
		name, typ, found := strings.Cut(p, " as ")
		if !found || !strings.HasPrefix(name, "$") {
			return nil, fmt.Errorf("invalid parameter: %s", p)
		}
		st, err := types.ParseSequenceType(typ)
		if err != nil {
			return nil, err
		}
		sig.Params = append(sig.Params, interfaces.Param{
			Name: strings.TrimPrefix(strings.TrimSpace(name), "$"),
			Type: st,
		})
	}
	return sig, nil
}
