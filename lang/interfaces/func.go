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
	"strings"

	"github.com/purpleidea/xqeval/lang/types"
)

// Param is a declared function parameter.
type Param struct {
	Name string
	Type types.SequenceType
}

// Signature is the static description of a function. The identity of a
// function is its qualified name and its arity.
type Signature struct {
	// Name is the qualified name, such as local:fib or fn:count. It is
	// empty for anonymous functions.
	Name string

	Params []Param

	Return types.SequenceType

	// Variadic is set when the last parameter accepts any number of
	// arguments, such as for fn:concat.
	Variadic bool
}

// Arity returns the number of parameters.
func (obj *Signature) Arity() int {
	return len(obj.Params)
}

// Key returns the identity of the function as name#arity.
func (obj *Signature) Key() string {
	return FunctionKey(obj.Name, obj.Arity())
}

// Accepts returns true if a call with this number of arguments matches.
func (obj *Signature) Accepts(arity int) bool {
	if obj.Variadic {
		return arity >= len(obj.Params)-1
	}
	return arity == len(obj.Params)
}

// Param returns the declared parameter for the argument at index i, taking a
// variadic tail into account.
func (obj *Signature) Param(i int) Param {
	if i >= len(obj.Params) && obj.Variadic {
		return obj.Params[len(obj.Params)-1]
	}
	return obj.Params[i]
}

// String returns the printed form of the signature.
func (obj *Signature) String() string {
	s := []string{}
	for _, p := range obj.Params {
		s = append(s, fmt.Sprintf("$%s as %s", p.Name, p.Type))
	}
	if obj.Variadic {
		s = append(s, "...")
	}
	name := obj.Name
	if name == "" {
		name = "function"
	}
	return fmt.Sprintf("%s(%s) as %s", name, strings.Join(s, ", "), obj.Return)
}

// FunctionKey returns the identity of a function as name#arity.
func FunctionKey(name string, arity int) string {
	return fmt.Sprintf("%s#%d", name, arity)
}

// Function is a callable function. Both user declared functions and builtins
// implement it. A function must not store any per-call state on itself since
// the same definition is shared by every call and every recursion.
type Function interface {
	// Signature returns the signature of the function.
	Signature() *Signature

	// Dependencies returns the dependencies that a call has apart from
	// its arguments, for example fn:position depends on the context.
	Dependencies() Dependency

	// Call runs the function with evaluated and converted arguments. The
	// context item is passed for the functions that read the focus.
	Call(env *Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error)
}

// FuncValue is a function item which can be called dynamically.
type FuncValue interface {
	types.FuncItem

	// Signature returns the signature of the function.
	Signature() *Signature

	// Call runs the function with evaluated arguments. Arguments are
	// converted to the declared parameter types by the callee.
	Call(env *Env, args []types.Sequence) (types.Sequence, error)
}

// Resolver resolves names to declarations. Only the resolution capability is
// consumed, not any caching or loading policy behind it.
type Resolver interface {
	// ResolveFunction returns the function with this name and arity.
	ResolveFunction(name string, arity int) (Function, bool)

	// ResolveVariable returns the declared type of a global variable.
	ResolveVariable(name string) (types.SequenceType, bool)
}
