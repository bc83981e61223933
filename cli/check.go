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

package cli

import (
	"context"
	"fmt"

	cliUtil "github.com/purpleidea/xqeval/cli/util"
	"github.com/purpleidea/xqeval/lang"
	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/yamlexpr"
	"github.com/purpleidea/xqeval/util/errwrap"

	"github.com/spf13/afero"
)

// CheckArgs is the CLI parsing structure and type of the parsed result. This
// particular one contains the flags for the `check` subcommand.
type CheckArgs struct {
	Collation string `arg:"--default-collation" help:"default collation uri"`

	Queries []string `arg:"positional,required" help:"yaml query files"`
}

// Run executes the `check` subcommand. It reports every static error of
// every query.
func (obj *CheckArgs) Run(ctx context.Context, data *cliUtil.Data) (bool, error) {
	fs := afero.NewOsFs()
	var reterr error
	for _, name := range obj.Queries {
		if err := obj.check(fs, name, data); err != nil {
			for _, e := range errwrap.Errors(err) {
				fmt.Printf("%s: %s\n", name, describe(e))
			}
			reterr = errwrap.Append(reterr, fmt.Errorf("%s failed the check", name))
			continue
		}
		fmt.Printf("%s: ok\n", name)
	}
	return true, reterr
}

// check parses and analyzes one query.
func (obj *CheckArgs) check(fs afero.Fs, name string, data *cliUtil.Data) error {
	code, err := afero.ReadFile(fs, name)
	if err != nil {
		return err
	}
	prog, err := yamlexpr.Parse(code)
	if err != nil {
		return err
	}
	engine := &lang.Lang{
		Program:          prog,
		DefaultCollation: obj.Collation,
		Debug:            data.Flags.Debug,
		Logf: func(format string, v ...interface{}) {
			data.Flags.Logf("lang: "+format, v...)
		},
	}
	if err := engine.Init(); err != nil {
		return errwrap.Cause(err) // drop the wrapping to list every error
	}
	return engine.Close()
}

// describe formats an error with its code when it has one.
func describe(err error) string {
	if e, ok := errcode.Get(err); ok {
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	}
	return err.Error()
}
