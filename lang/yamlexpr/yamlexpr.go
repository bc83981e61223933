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

// Package yamlexpr provides the facilities for loading an expression tree from
// a yaml file. The yaml has the shape of the parser output, which lets the
// tools run compiled trees without a textual front end.
package yamlexpr

import (
	"fmt"

	"github.com/purpleidea/xqeval/lang/ast"
	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/util/errwrap"

	"gopkg.in/yaml.v2"
)

// Param is the data structure of a function parameter.
type Param struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Variable is the data structure of a global variable. A variable without a
// value is external.
type Variable struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value *Node  `yaml:"value"`
}

// Function is the data structure of a declared function.
type Function struct {
	Name   string  `yaml:"name"`
	Params []Param `yaml:"params"`
	Return string  `yaml:"return"`
	Body   *Node   `yaml:"body"`
}

// ProgramConfig is the data structure of a whole query.
type ProgramConfig struct {
	Comment   string     `yaml:"comment"`
	Variables []Variable `yaml:"variables"`
	Functions []Function `yaml:"functions"`
	Body      *Node      `yaml:"body"`
}

// Node is one expression. It decodes itself from any yaml value.
type Node struct {
	Expr interfaces.Expr
}

// UnmarshalYAML decodes the node from the generic yaml value.
func (obj *Node) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	expr, err := decodeExpr(raw)
	if err != nil {
		return err
	}
	obj.Expr = expr
	return nil
}

// Parse decodes a query. A document without any of the program keys is read
// as the body alone.
func Parse(data []byte) (*ast.Program, error) {
	var top map[string]interface{}
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, errwrap.Wrapf(err, "can't decode the query")
	}
	_, hasBody := top["body"]
	_, hasVariables := top["variables"]
	_, hasFunctions := top["functions"]
	if !hasBody && !hasVariables && !hasFunctions {
		var body Node
		if err := yaml.Unmarshal(data, &body); err != nil {
			return nil, errwrap.Wrapf(err, "can't decode the query")
		}
		return &ast.Program{Body: body.Expr}, nil
	}

	var config ProgramConfig
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, errwrap.Wrapf(err, "can't decode the query")
	}
	return config.Program()
}

// Program builds the tree of the query.
func (obj *ProgramConfig) Program() (*ast.Program, error) {
	if obj.Body == nil {
		return nil, fmt.Errorf("the query has no body")
	}
	prog := &ast.Program{
		Body: obj.Body.Expr,
	}
	for _, v := range obj.Variables {
		if v.Name == "" {
			return nil, fmt.Errorf("variable without a name")
		}
		st, err := optionalType(v.Type)
		if err != nil {
			return nil, errwrap.Wrapf(err, "variable $%s", v.Name)
		}
		gv := &ast.GlobalVar{Name: v.Name, Type: st}
		if v.Value != nil {
			gv.Value = v.Value.Expr
		}
		prog.Variables = append(prog.Variables, gv)
	}
	for _, f := range obj.Functions {
		fn, err := f.function()
		if err != nil {
			return nil, errwrap.Wrapf(err, "function %s", f.Name)
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

// function builds a declared function.
func (obj *Function) function() (*ast.UserFunction, error) {
	if obj.Name == "" {
		return nil, fmt.Errorf("function without a name")
	}
	if obj.Body == nil {
		return nil, fmt.Errorf("function without a body")
	}
	params, err := decodeParams(obj.Params)
	if err != nil {
		return nil, err
	}
	ret, err := anyType(obj.Return)
	if err != nil {
		return nil, err
	}
	return &ast.UserFunction{
		Sig: &interfaces.Signature{
			Name:   obj.Name,
			Params: params,
			Return: ret,
		},
		Body: obj.Body.Expr,
	}, nil
}

// decodeParams builds the parameters of a function. A parameter without a
// type accepts anything.
func decodeParams(list []Param) ([]interfaces.Param, error) {
	params := []interfaces.Param{}
	for _, p := range list {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter without a name")
		}
		st, err := anyType(p.Type)
		if err != nil {
			return nil, errwrap.Wrapf(err, "parameter $%s", p.Name)
		}
		params = append(params, interfaces.Param{Name: p.Name, Type: st})
	}
	return params, nil
}

// anyType parses a sequence type, where the empty string is item()*.
func anyType(s string) (types.SequenceType, error) {
	if s == "" {
		return types.AnySequence, nil
	}
	return types.ParseSequenceType(s)
}

// optionalType parses a sequence type, where the empty string is no declared
// type at all.
func optionalType(s string) (types.SequenceType, error) {
	if s == "" {
		return types.SequenceType{}, nil
	}
	return types.ParseSequenceType(s)
}
