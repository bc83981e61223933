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

// Package funcs provides the registry of the built-in functions. Functions are
// registered by name and arity in the init method of the package that holds
// them, and are looked up by the static analysis through a Library.
package funcs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

const (
	// ModuleSep is the separator between the prefix and the local name of
	// a function.
	ModuleSep = interfaces.ModuleSep

	// FnModule is the prefix of the standard function namespace. Names
	// without a prefix are looked up in it.
	FnModule = interfaces.FnPrefix
)

// registeredFuncs is a global map of all the functions which can be used, by
// name and arity. You should never touch this map directly. Use methods like
// Register instead.
var registeredFuncs = make(map[string]func() interfaces.Function) // must initialize

// variadicFuncs holds the functions which take any number of arguments, by
// name.
var variadicFuncs = make(map[string]func() interfaces.Function)

// Register takes a function and its name and makes it available for use. It is
// commonly called in the init() method of the function at program startup.
// There is no matching Unregister function.
func Register(name string, fn func() interfaces.Function) {
	sig := fn().Signature()
	if sig.Variadic {
		if _, exists := variadicFuncs[name]; exists {
			panic(fmt.Sprintf("a variadic func named %s is already registered", name))
		}
		variadicFuncs[name] = fn
		return
	}
	key := interfaces.FunctionKey(name, sig.Arity())
	if _, exists := registeredFuncs[key]; exists {
		panic(fmt.Sprintf("a func named %s is already registered", key))
	}
	registeredFuncs[key] = fn
}

// ModuleRegister is exactly like Register, except that it registers within a
// named module. This is a helper function.
func ModuleRegister(module, name string, fn func() interfaces.Function) {
	Register(module+ModuleSep+name, fn)
}

// normalize adds the standard prefix to a name which has none.
func normalize(name string) string {
	if strings.Contains(name, ModuleSep) {
		return name
	}
	return FnModule + ModuleSep + name
}

// Lookup returns the function with this name and arity.
func Lookup(name string, arity int) (interfaces.Function, error) {
	name = normalize(name)
	if f, exists := registeredFuncs[interfaces.FunctionKey(name, arity)]; exists {
		return f(), nil
	}
	if f, exists := variadicFuncs[name]; exists {
		fn := f()
		if fn.Signature().Accepts(arity) {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

// Names returns the sorted list of the registered functions as name#arity.
// Variadic functions are listed as name#n+.
func Names() []string {
	names := []string{}
	for key := range registeredFuncs {
		names = append(names, key)
	}
	for name, f := range variadicFuncs {
		names = append(names, fmt.Sprintf("%s#%d+", name, f().Signature().Arity()-1))
	}
	sort.Strings(names)
	return names
}

// Library resolves the built-in functions for the static analysis. It has no
// global variables.
type Library struct{}

// ResolveFunction returns the built-in function with this name and arity.
func (obj *Library) ResolveFunction(name string, arity int) (interfaces.Function, bool) {
	fn, err := Lookup(name, arity)
	return fn, err == nil
}

// ResolveVariable always returns false.
func (obj *Library) ResolveVariable(name string) (types.SequenceType, bool) {
	return types.SequenceType{}, false
}
