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

	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
)

// DeferredCall is a tail call which hasn't run yet. It is returned by a tail
// call to a function which is already running, and travels up through the
// nodes in tail position to the loop of that function, which runs it without
// growing the native stack. Anything else which touches it forces it, so it
// is also a sequence.
type DeferredCall struct {
	Function *UserFunction

	// Args are the converted arguments. They were copied when the call
	// was deferred.
	Args []types.Sequence

	env    *interfaces.Env
	result types.Sequence
	err    error
	done   bool
}

// Realize runs the call. The result is cached.
func (obj *DeferredCall) Realize() (types.Sequence, error) {
	if !obj.done {
		obj.result, obj.err = obj.Function.invoke(obj.env, obj.Args)
		obj.done = true
	}
	return obj.result, obj.err
}

// Holds returns true if the sequence is one of the arguments, which must then
// stay alive until the call runs.
func (obj *DeferredCall) Holds(seq types.Sequence) bool {
	for _, arg := range obj.Args {
		if arg == seq {
			return true
		}
	}
	return false
}

// realized returns the result, or the empty sequence if the call failed. The
// error itself is reported by Realize, which is what eval uses.
func (obj *DeferredCall) realized() types.Sequence {
	seq, err := obj.Realize()
	if err != nil || seq == nil {
		return types.EmptySequence
	}
	return seq
}

// Len forces the call and returns the number of items.
func (obj *DeferredCall) Len() int { return obj.realized().Len() }

// ItemAt forces the call and returns an item.
func (obj *DeferredCall) ItemAt(i int) types.Item { return obj.realized().ItemAt(i) }

// Items forces the call and returns the items.
func (obj *DeferredCall) Items() []types.Item { return obj.realized().Items() }

// IsEmpty forces the call.
func (obj *DeferredCall) IsEmpty() bool { return obj.realized().IsEmpty() }

// HasMany forces the call.
func (obj *DeferredCall) HasMany() bool { return obj.realized().HasMany() }

// Cardinality forces the call.
func (obj *DeferredCall) Cardinality() types.Cardinality { return obj.realized().Cardinality() }

// ItemType forces the call.
func (obj *DeferredCall) ItemType() types.Type { return obj.realized().ItemType() }

// IsPersistent forces the call.
func (obj *DeferredCall) IsPersistent() bool { return obj.realized().IsPersistent() }

// String returns a visual representation which doesn't force the call.
func (obj *DeferredCall) String() string {
	return fmt.Sprintf("deferred(%s)", obj.Function.Sig.Key())
}

// copyArgs copies the arguments of a call which is deferred, so that they
// can't be changed by whoever built them in the meantime.
func copyArgs(args []types.Sequence) []types.Sequence {
	result := make([]types.Sequence, len(args))
	for i, arg := range args {
		if v, ok := arg.(*types.ValueSequence); ok {
			result[i] = v.Copy()
			continue
		}
		result[i] = arg
	}
	return result
}
