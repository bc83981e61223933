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

// Package coreboolean contains the boolean functions.
package coreboolean

import (
	"github.com/purpleidea/xqeval/lang/funcs"
	"github.com/purpleidea/xqeval/lang/funcs/simple"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

func init() {
	simple.ModuleRegister(funcs.FnModule, "true", &simple.Func{
		Sig: simple.NewSig("() as xs:boolean"),
		V:   True,
	})
	simple.ModuleRegister(funcs.FnModule, "false", &simple.Func{
		Sig: simple.NewSig("() as xs:boolean"),
		V:   False,
	})
	simple.ModuleRegister(funcs.FnModule, "boolean", &simple.Func{
		Sig: simple.NewSig("($arg as item()*) as xs:boolean"),
		V:   Boolean,
	})
	simple.ModuleRegister(funcs.FnModule, "not", &simple.Func{
		Sig: simple.NewSig("($arg as item()*) as xs:boolean"),
		V:   Not,
	})
}

// True returns true.
func True(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return types.Singleton(types.NewBool(true)), nil
}

// False returns false.
func False(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	return types.Singleton(types.NewBool(false)), nil
}

// Boolean returns the effective boolean value of the argument.
func Boolean(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	b, err := types.EffectiveBooleanValue(args[0])
	if err != nil {
		return nil, err
	}
	return types.Singleton(types.NewBool(b)), nil
}

// Not returns the negation of the effective boolean value of the argument.
func Not(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	b, err := types.EffectiveBooleanValue(args[0])
	if err != nil {
		return nil, err
	}
	return types.Singleton(types.NewBool(!b)), nil
}
