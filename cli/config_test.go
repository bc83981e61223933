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

//go:build !root

package cli

import (
	"testing"
	"time"

	"github.com/purpleidea/xqeval/lang"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

const configFile = `
limits:
  max-call-depth: 500
  max-output-items: 1000
timeout: 30s
documents: /srv/docs
profile:
  mode: log
`

func TestConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/etc/xqeval.yaml", []byte(configFile), 0600); err != nil {
		t.Fatalf("write failed: %+v", err)
	}

	args := &RunArgs{
		Config:         "/etc/xqeval.yaml",
		MaxOutputItems: 50,
		Profile:        ProfilePrometheus,
		Watch:          true,
	}
	config, err := args.config(fs)
	if err != nil {
		t.Errorf("config failed: %+v", err)
		return
	}
	expected := &Config{
		Limits: lang.Limits{
			MaxCallDepth:   500,
			MaxOutputItems: 50,
		},
		Timeout:   "30s",
		Documents: "/srv/docs",
		Watch:     true,
		Profile: Profile{
			Mode: ProfilePrometheus,
		},
	}
	if diff := cmp.Diff(expected, config); diff != "" {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
	if d, err := config.Duration(); err != nil || d != 30*time.Second {
		t.Errorf("unexpected timeout: %v, %v", d, err)
	}
}

func TestConfigMissing(t *testing.T) {
	args := &RunArgs{Config: "/nope.yaml"}
	config, err := args.config(afero.NewMemMapFs())
	if err != nil {
		t.Errorf("config failed: %+v", err)
		return
	}
	if diff := cmp.Diff(&Config{}, config); diff != "" {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestConfigFail(t *testing.T) {
	type test struct { // an individual test
		name string
		file string
		args RunArgs
	}
	testCases := []test{
		{"unknown key", "colour: blue\n", RunArgs{}},
		{"bad timeout", "timeout: soon\n", RunArgs{}},
		{"bad profile", "", RunArgs{Profile: "pprof"}},
		{"negative limit", "limits: {max-call-depth: -1}\n", RunArgs{}},
		{"watch without documents", "", RunArgs{Watch: true}},
	}
	for index, tc := range testCases {
		fs := afero.NewMemMapFs()
		if err := afero.WriteFile(fs, "/c.yaml", []byte(tc.file), 0600); err != nil {
			t.Fatalf("write failed: %+v", err)
		}
		args := tc.args
		args.Config = "/c.yaml"
		if _, err := args.config(fs); err == nil {
			t.Errorf("test #%d (%s): config passed, expected fail", index, tc.name)
		}
	}
}
