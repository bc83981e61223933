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
	"github.com/purpleidea/xqeval/util"
)

// ErrorNamespace is the namespace of the error codes.
const ErrorNamespace = "http://www.w3.org/2005/xqt-errors"

// These are the variables which are in scope in a catch clause.
const (
	// ErrCode is the code of the caught error, as an xs:QName.
	ErrCode = "err:code"
	// ErrDescription is the message of the caught error.
	ErrDescription = "err:description"
	// ErrValue is the error object which was passed to fn:error.
	ErrValue = "err:value"
	// ErrLineNumber is the line of the failing node, if known.
	ErrLineNumber = "err:line-number"
	// ErrColumnNumber is the column of the failing node, if known.
	ErrColumnNumber = "err:column-number"
	// ErrAdditional is the call chain of the error, innermost first.
	ErrAdditional = "err:additional"
)

// errVariables are the types of the catch variables.
var errVariables = []struct {
	name string
	typ  types.SequenceType
}{
	{ErrCode, types.SequenceType{Type: types.TypeQName, Cardinality: types.ExactlyOne}},
	{ErrDescription, types.SequenceType{Type: types.TypeString, Cardinality: types.ZeroOrOne}},
	{ErrValue, types.AnySequence},
	{ErrLineNumber, types.SequenceType{Type: types.TypeInteger, Cardinality: types.ZeroOrOne}},
	{ErrColumnNumber, types.SequenceType{Type: types.TypeInteger, Cardinality: types.ZeroOrOne}},
	{ErrAdditional, types.SequenceType{Type: types.TypeString, Cardinality: types.ZeroOrMore}},
}

// CatchClause is one catch of a try expression.
type CatchClause struct {
	// Codes are the name tests of the caught errors. A test is a code such
	// as FOER0000 or err:FOER0000, or a wildcard: *, err:* or *:FOER0000.
	Codes  []string
	Return interfaces.Expr
}

// String returns a short representation of the clause.
func (obj *CatchClause) String() string {
	return fmt.Sprintf("catch %s { %s }", strings.Join(obj.Codes, " | "), obj.Return)
}

// Matches returns true if the clause catches an error with this code.
func (obj *CatchClause) Matches(code errcode.Code) bool {
	for _, test := range obj.Codes {
		prefix, local := util.SplitQName(test)
		if prefix != "" && prefix != "*" && prefix != "err" {
			continue // codes all live in the error namespace
		}
		if local == "*" || local == string(code) {
			return true
		}
	}
	return false
}

// ExprTryCatch is a try expression. A query error raised while evaluating the
// body is handled by the first catch clause which matches its code. Errors
// that no clause matches propagate, and so does a termination, which is never
// caught.
type ExprTryCatch struct {
	interfaces.Textarea
	staticInfo

	Body    interfaces.Expr
	Catches []*CatchClause
}

// String returns a short representation of this expression.
func (obj *ExprTryCatch) String() string {
	s := []string{}
	for _, c := range obj.Catches {
		s = append(s, c.String())
	}
	return fmt.Sprintf("try { %s } %s", obj.Body, strings.Join(s, " "))
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExprTryCatch) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Body); err != nil {
		return err
	}
	for _, c := range obj.Catches {
		if err := applyAll(fn, c.Return); err != nil {
			return err
		}
	}
	return fn(obj)
}

// Analyze performs the static analysis of this node. Neither the body nor the
// catch clauses are in tail position: a deferred call would run after the try
// has returned, outside of its reach.
func (obj *ExprTryCatch) Analyze(ctx *interfaces.AnalyzeContext) error {
	if len(obj.Catches) == 0 {
		return errcode.Static(errcode.XPST0003, "try without a catch clause")
	}
	if err := analyzeAll(ctx, obj, obj.Body); err != nil {
		return err
	}
	obj.typ, obj.card = obj.Body.ReturnsType(), obj.Body.Cardinality()
	obj.deps = obj.Body.Dependencies()

	catchCtx := ctx
	for _, v := range errVariables {
		catchCtx = catchCtx.Declare(v.name, v.typ)
	}
	for _, c := range obj.Catches {
		if len(c.Codes) == 0 {
			return errcode.Static(errcode.XPST0003, "catch clause without an error code")
		}
		if c.Return == nil {
			return errcode.Static(errcode.XPST0003, "catch clause without an expression")
		}
		if err := analyzeAll(catchCtx, obj, c.Return); err != nil {
			return err
		}
		obj.typ = types.CommonSuperType(obj.typ, c.Return.ReturnsType())
		obj.card = obj.card.Union(c.Return.Cardinality())
		obj.deps |= c.Return.Dependencies()
	}
	obj.analyzed = true
	return nil
}

// Eval evaluates the body, and the matching catch clause if it failed.
func (obj *ExprTryCatch) Eval(env *interfaces.Env, contextSeq types.Sequence, contextItem types.Item) (types.Sequence, error) {
	result, err := eval(env, obj.Body, contextSeq, contextItem)
	if err == nil {
		return result, nil
	}
	if errcode.IsTerminated(err) {
		return nil, err
	}
	e, ok := errcode.Get(err)
	if !ok {
		return nil, err // not a query error
	}
	for _, c := range obj.Catches {
		if !c.Matches(e.Code) {
			continue
		}
		if env.Debug {
			env.Logger()("%s: caught %s", obj, e.Code)
		}
		return obj.catch(env, c, e, contextSeq, contextItem)
	}
	return nil, err
}

// catch evaluates a catch clause with the error variables bound.
func (obj *ExprTryCatch) catch(env *interfaces.Env, c *CatchClause, e *errcode.Error, contextSeq types.Sequence, contextItem types.Item) (result types.Sequence, reterr error) {
	mark := env.Stack.Mark(false)
	defer func() { env.Stack.Pop(mark, result) }()

	values := errValues(e)
	for _, v := range errVariables {
		env.Stack.Bind(v.name, values[v.name], v.typ)
	}
	return eval(env, c.Return, contextSeq, contextItem)
}

// errValues builds the values of the catch variables.
func errValues(e *errcode.Error) map[string]types.Sequence {
	optionalInt := func(n int) types.Sequence {
		if n <= 0 {
			return types.EmptySequence
		}
		return types.Singleton(types.NewInteger(int64(n)))
	}
	var value types.Sequence = types.EmptySequence
	if seq, ok := e.Value.(types.Sequence); ok && seq != nil {
		value = seq
	}
	frames := []types.Item{}
	for _, frame := range e.Frames {
		frames = append(frames, types.NewString(frame.String()))
	}
	return map[string]types.Sequence{
		ErrCode:         types.Singleton(&types.QNameValue{Space: ErrorNamespace, Prefix: "err", Local: string(e.Code)}),
		ErrDescription:  types.Singleton(types.NewString(e.Msg)),
		ErrValue:        value,
		ErrLineNumber:   optionalInt(e.Line),
		ErrColumnNumber: optionalInt(e.Column),
		ErrAdditional:   types.NewSequence(frames...),
	}
}
