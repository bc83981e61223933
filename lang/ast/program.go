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

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/util/errwrap"
)

// GlobalVar is a global variable declared in the prolog.
type GlobalVar struct {
	interfaces.Textarea

	Name string

	// Type is the optional declared type.
	Type types.SequenceType

	// Value is the initializer. It is nil for an external variable, whose
	// value must be provided by the caller.
	Value interfaces.Expr
}

// String returns a short representation of the declaration.
func (obj *GlobalVar) String() string {
	if obj.Value == nil {
		return fmt.Sprintf("declare variable $%s external", obj.Name)
	}
	return fmt.Sprintf("declare variable $%s := %s", obj.Name, obj.Value)
}

// Program is a main module: the prolog declarations and the body. It resolves
// the names of its own declarations and falls back on the library for the
// rest.
type Program struct {
	Variables []*GlobalVar
	Functions []*UserFunction
	Body      interfaces.Expr

	// Library resolves the built-in functions. It can be nil.
	Library interfaces.Resolver

	functions map[string]*UserFunction
	variables map[string]*GlobalVar
	visible   int // number of global variables in scope
}

// String returns a short representation of the program.
func (obj *Program) String() string {
	s := []string{}
	for _, v := range obj.Variables {
		s = append(s, v.String()+";")
	}
	for _, fn := range obj.Functions {
		s = append(s, fn.String()+";")
	}
	if obj.Body != nil {
		s = append(s, obj.Body.String())
	}
	return strings.Join(s, "\n")
}

// ResolveFunction returns a function declared by the program or by the
// library.
func (obj *Program) ResolveFunction(name string, arity int) (interfaces.Function, bool) {
	if fn, exists := obj.functions[interfaces.FunctionKey(name, arity)]; exists {
		return fn, true
	}
	if obj.Library == nil {
		return nil, false
	}
	return obj.Library.ResolveFunction(name, arity)
}

// ResolveVariable returns the declared type of a global variable. Only the
// variables declared before the one being analyzed are in scope.
func (obj *Program) ResolveVariable(name string) (types.SequenceType, bool) {
	v, exists := obj.variables[name]
	if !exists {
		return types.SequenceType{}, false
	}
	for i := 0; i < obj.visible; i++ {
		if obj.Variables[i] != v {
			continue
		}
		if v.Type.Type == types.TypeUnknown {
			return types.AnySequence, true
		}
		return v.Type, true
	}
	return types.SequenceType{}, false
}

// Analyze runs the static analysis of the whole program. Functions are
// declared one after the other, so a call to a function which comes later is
// a forward reference that gets patched once everything was seen. Every error
// found is reported, not just the first one.
func (obj *Program) Analyze(static *interfaces.StaticContext) error {
	if obj.Body == nil {
		return errcode.Static(errcode.XPST0003, "program without a body")
	}
	static.Resolver = obj
	obj.functions = make(map[string]*UserFunction)
	obj.variables = make(map[string]*GlobalVar)
	obj.visible = 0

	var reterr error
	for _, v := range obj.Variables {
		if _, exists := obj.variables[v.Name]; exists {
			reterr = errwrap.Append(reterr, errcode.Static(errcode.XQST0049, "duplicate global variable $%s", v.Name))
			continue
		}
		obj.variables[v.Name] = v
	}

	ctx := interfaces.NewAnalyzeContext(static)
	for i, v := range obj.Variables {
		obj.visible = i
		if v.Value != nil {
			if v.Type.Type != types.TypeUnknown {
				v.Value = CheckSequenceType(v.Value, v.Type, fmt.Sprintf("global variable $%s", v.Name))
			}
			if err := analyze(ctx, v.Value); err != nil {
				reterr = errwrap.Append(reterr, err)
			}
		}
	}
	obj.visible = len(obj.Variables)

	for _, fn := range obj.Functions {
		key := fn.Sig.Key()
		if _, exists := obj.functions[key]; exists {
			line, col := fn.Pos()
			reterr = errwrap.Append(reterr, errcode.Locate(errcode.Static(errcode.XQST0034, "duplicate function %s", key), line, col))
			continue
		}
		obj.functions[key] = fn
		if err := fn.Analyze(ctx); err != nil {
			reterr = errwrap.Append(reterr, errwrap.Wrapf(err, "in %s", key))
		}
	}

	if err := analyze(ctx, obj.Body); err != nil {
		reterr = errwrap.Append(reterr, err)
	}
	if err := static.ResolveForwardReferences(); err != nil {
		reterr = errwrap.Append(reterr, err)
	}
	return reterr
}

// Eval computes the global variables in declaration order and then runs the
// body. External variables must already be in env.Globals.
func (obj *Program) Eval(env *interfaces.Env, contextItem types.Item) (types.Sequence, error) {
	for _, v := range obj.Variables {
		if v.Value == nil {
			seq, exists := env.Globals[v.Name]
			if !exists {
				return nil, errcode.New(errcode.XPDY0002, errcode.KindDynamic, "no value for external variable $%s", v.Name)
			}
			if v.Type.Type != types.TypeUnknown {
				var err error
				if seq, err = ConvertSequence(seq, v.Type, fmt.Sprintf("external variable $%s", v.Name), env.Static); err != nil {
					return nil, err
				}
			}
			env.Globals[v.Name] = seq
			continue
		}
		seq, err := eval(env, v.Value, nil, contextItem)
		if err != nil {
			return nil, err
		}
		env.Globals[v.Name] = seq
	}

	var contextSeq types.Sequence
	if contextItem != nil {
		contextSeq = types.Singleton(contextItem)
	}
	return eval(env, obj.Body, contextSeq, contextItem)
}

// Apply runs the function on every node of the program.
func (obj *Program) Apply(fn func(interfaces.Expr) error) error {
	for _, v := range obj.Variables {
		if err := applyAll(fn, v.Value); err != nil {
			return err
		}
	}
	for _, f := range obj.Functions {
		if err := applyAll(fn, f.Body); err != nil {
			return err
		}
	}
	return applyAll(fn, obj.Body)
}

// ResetState resets every node so that the program can run again.
func (obj *Program) ResetState(postOptimization bool) {
	obj.Apply(func(expr interfaces.Expr) error {
		expr.ResetState(postOptimization)
		return nil
	})
}

// Close releases what the nodes hold on to, such as the update listeners of
// the document lookups.
func (obj *Program) Close() error {
	var reterr error
	obj.Apply(func(expr interfaces.Expr) error {
		if c, ok := expr.(interface{ Close() error }); ok {
			reterr = errwrap.Append(reterr, c.Close())
		}
		return nil
	})
	return reterr
}
