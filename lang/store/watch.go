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

package store

import (
	"context"
	"path/filepath"

	"github.com/purpleidea/xqeval/util/errwrap"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// Watch follows the changes of the xml files of a directory on the real
// filesystem and updates the store, until the context is cancelled. The
// directory should have been loaded with LoadDir first.
func (obj *Store) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return errwrap.Wrapf(err, "can't watch %s", dir)
	}
	fs := afero.NewOsFs()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isDocument(event.Name) {
				continue
			}
			if obj.Debug {
				obj.Logf("watch: %s", event)
			}
			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				obj.Remove(filepath.Base(event.Name))

			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if err := obj.loadFile(fs, event.Name); err != nil {
					// a half written file is common, the next
					// write event will fix it up
					obj.Logf("watch: can't load %s: %v", event.Name, err)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errwrap.Wrapf(err, "watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}
