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

// Package store is an in-memory document store. It holds parsed XML documents
// by uri, hands out their persistent node sets to the query engine, and tells
// listeners about every document that changed.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/util/errwrap"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// Store holds the documents. It is safe for concurrent use.
type Store struct {
	// Debug represents if we're running in debug mode or not.
	Debug bool

	// Logf is a logger which should be used.
	Logf func(format string, v ...interface{})

	mutex     sync.RWMutex
	docs      map[string]*document
	hashes    map[string]uint64 // content hash per uri
	listeners map[int]func(uri string)
	nextID    int
}

// Init prepares the store.
func (obj *Store) Init() error {
	if obj.Logf == nil {
		return fmt.Errorf("the Logf function is missing")
	}
	obj.docs = make(map[string]*document)
	obj.hashes = make(map[string]uint64)
	obj.listeners = make(map[int]func(uri string))
	return nil
}

// Document returns the persistent node set of the document root.
func (obj *Store) Document(uri string) (types.Sequence, error) {
	obj.mutex.RLock()
	doc, exists := obj.docs[uri]
	obj.mutex.RUnlock()
	if !exists {
		return nil, errcode.New(errcode.FODC0002, errcode.KindDynamic, "document %s not found", uri)
	}
	return types.NewNodeSet([]types.Node{doc.root}, true), nil
}

// URIs returns the sorted list of the stored documents.
func (obj *Store) URIs() []string {
	obj.mutex.RLock()
	defer obj.mutex.RUnlock()
	result := []string{}
	for uri := range obj.docs {
		result = append(result, uri)
	}
	sort.Strings(result)
	return result
}

// Subscribe registers a listener which is called with the uri of every
// document that changed. The returned function unsubscribes.
func (obj *Store) Subscribe(fn func(uri string)) (cancel func()) {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	id := obj.nextID
	obj.nextID++
	obj.listeners[id] = fn
	return func() {
		obj.mutex.Lock()
		defer obj.mutex.Unlock()
		delete(obj.listeners, id)
	}
}

// notify calls every listener. It must be called without the lock held, since
// listeners may read the store.
func (obj *Store) notify(uri string) {
	obj.mutex.RLock()
	listeners := make([]func(string), 0, len(obj.listeners))
	for _, fn := range obj.listeners {
		listeners = append(listeners, fn)
	}
	obj.mutex.RUnlock()
	for _, fn := range listeners {
		fn(uri)
	}
}

// Put parses and stores a document, replacing any previous version. Storing
// the same content again doesn't notify anyone.
func (obj *Store) Put(uri string, data []byte) error {
	hash := xxhash.Sum64(data)
	obj.mutex.RLock()
	old, exists := obj.hashes[uri]
	obj.mutex.RUnlock()
	if exists && old == hash {
		return nil
	}

	root, err := parse(data, uri, true)
	if err != nil {
		return errwrap.Wrapf(err, "can't parse %s", uri)
	}
	obj.mutex.Lock()
	obj.docs[uri] = root.doc
	obj.hashes[uri] = hash
	obj.mutex.Unlock()
	if obj.Debug {
		obj.Logf("put %s (%d nodes)", uri, root.doc.size)
	}
	obj.notify(uri)
	return nil
}

// Remove deletes a document. It returns false if there was none.
func (obj *Store) Remove(uri string) bool {
	obj.mutex.Lock()
	_, exists := obj.docs[uri]
	delete(obj.docs, uri)
	delete(obj.hashes, uri)
	obj.mutex.Unlock()
	if !exists {
		return false
	}
	if obj.Debug {
		obj.Logf("removed %s", uri)
	}
	obj.notify(uri)
	return true
}

// isDocument returns true for the file names the store loads.
func isDocument(name string) bool {
	return strings.HasSuffix(name, ".xml")
}

// LoadDir stores every xml file of a directory under its file name. Every
// file is tried, and all the failures are returned together.
func (obj *Store) LoadDir(fs afero.Fs, dir string) error {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return errwrap.Wrapf(err, "can't read %s", dir)
	}
	var reterr error
	for _, info := range infos {
		if info.IsDir() || !isDocument(info.Name()) {
			continue
		}
		if err := obj.loadFile(fs, filepath.Join(dir, info.Name())); err != nil {
			reterr = errwrap.Append(reterr, err)
		}
	}
	return reterr
}

// loadFile stores one file under its base name.
func (obj *Store) loadFile(fs afero.Fs, name string) error {
	data, err := afero.ReadFile(fs, name)
	if os.IsNotExist(err) {
		obj.Remove(filepath.Base(name))
		return nil
	}
	if err != nil {
		return err
	}
	return obj.Put(filepath.Base(name), data)
}
