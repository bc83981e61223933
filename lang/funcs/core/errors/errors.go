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

// Package coreerrors contains fn:error and fn:trace.
package coreerrors

import (
	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/funcs"
	"github.com/purpleidea/xqeval/lang/funcs/simple"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

func init() {
	simple.ModuleRegister(funcs.FnModule, "error", &simple.Func{
		Sig: simple.NewSig("() as empty-sequence()"),
		V:   Error,
	})
	simple.ModuleRegister(funcs.FnModule, "error", &simple.Func{
		Sig: simple.NewSig("($code as xs:QName?) as empty-sequence()"),
		V:   Error,
	})
	simple.ModuleRegister(funcs.FnModule, "error", &simple.Func{
		Sig: simple.NewSig("($code as xs:QName?, $description as xs:string) as empty-sequence()"),
		V:   Error,
	})
	simple.ModuleRegister(funcs.FnModule, "error", &simple.Func{
		Sig: simple.NewSig("($code as xs:QName?, $description as xs:string, $error-object as item()*) as empty-sequence()"),
		V:   Error,
	})
	simple.ModuleRegister(funcs.FnModule, "trace", &simple.Func{
		Sig: simple.NewSig("($value as item()*) as item()*"),
		V:   Trace,
	})
	simple.ModuleRegister(funcs.FnModule, "trace", &simple.Func{
		Sig: simple.NewSig("($value as item()*, $label as xs:string) as item()*"),
		V:   Trace,
	})
}

// Error raises a user error. The local part of the code becomes the error
// code, and FOER0000 is used when there is none.
func Error(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	code := errcode.FOER0000
	if len(args) > 0 && !args[0].IsEmpty() {
		if q, ok := args[0].ItemAt(0).(*types.QNameValue); ok {
			code = errcode.Code(q.Local)
		}
	}
	msg := "error raised by fn:error"
	if len(args) > 1 {
		msg = args[1].ItemAt(0).(types.Atomic).StringValue()
	}
	e := errcode.New(code, errcode.KindUser, "%s", msg)
	if len(args) > 2 {
		e.Value = args[2]
	}
	return nil, e
}

// Trace logs the value with an optional label and returns it unchanged.
func Trace(env *interfaces.Env, args []types.Sequence, contextItem types.Item) (types.Sequence, error) {
	label := "trace"
	if len(args) > 1 {
		label = args[1].ItemAt(0).(types.Atomic).StringValue()
	}
	env.Logger()("%s: %s", label, types.SequenceString(args[0]))
	return args[0], nil
}
