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
	"os"
	"time"

	"github.com/purpleidea/xqeval/lang"
	"github.com/purpleidea/xqeval/util"
	"github.com/purpleidea/xqeval/util/errwrap"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

const (
	// ProfileNone disables the profiler.
	ProfileNone = "none"

	// ProfileLog logs the node timings and the optimizer messages.
	ProfileLog = "log"

	// ProfilePrometheus exports the node metrics over http.
	ProfilePrometheus = "prometheus"
)

// Profile is the profiling section of the config file.
type Profile struct {
	Mode   string `yaml:"mode"`
	Listen string `yaml:"listen"`
}

// Config is the data structure of the config file. Every field can be
// overridden by a flag.
type Config struct {
	Limits lang.Limits `yaml:"limits"`

	// Timeout is a duration string such as 30s.
	Timeout string `yaml:"timeout"`

	DefaultCollation string `yaml:"default-collation"`

	// Documents is the directory of xml files to load.
	Documents string `yaml:"documents"`

	// Watch keeps running and evaluates the queries again whenever a
	// document changes.
	Watch bool `yaml:"watch"`

	Profile Profile `yaml:"profile"`
}

// ReadConfig reads the config file. A missing file gives the empty config.
func ReadConfig(fs afero.Fs, name string) (*Config, error) {
	config := &Config{}
	if name == "" {
		return config, nil
	}
	data, err := afero.ReadFile(fs, name)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errwrap.Wrapf(err, "can't read the config")
	}
	if err := yaml.UnmarshalStrict(data, config); err != nil {
		return nil, errwrap.Wrapf(err, "can't decode the config")
	}
	return config, nil
}

// Duration parses the timeout. The empty string is no timeout.
func (obj *Config) Duration() (time.Duration, error) {
	if obj.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(obj.Timeout)
	if err != nil {
		return 0, errwrap.Wrapf(err, "invalid timeout")
	}
	return d, nil
}

// Validate checks the values of the config.
func (obj *Config) Validate() error {
	if _, err := obj.Duration(); err != nil {
		return err
	}
	switch obj.Profile.Mode {
	case "", ProfileNone, ProfileLog, ProfilePrometheus:
	default:
		return errwrap.Wrapf(errUnknownProfile, "%s", obj.Profile.Mode)
	}
	if obj.Limits.MaxCallDepth < 0 || obj.Limits.MaxOutputItems < 0 {
		return errNegativeLimit
	}
	return nil
}

const (
	errUnknownProfile = util.Error("unknown profile mode")
	errNegativeLimit  = util.Error("limits can't be negative")
)
