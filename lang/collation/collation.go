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

// Package collation resolves collation URIs into string comparators. The
// unicode codepoint collation is the default. Language sensitive collations
// are built with the golang.org/x/text/collate package.
package collation

import (
	"net/url"
	"strings"
	"sync"

	"github.com/purpleidea/xqeval/lang/errcode"
	"github.com/purpleidea/xqeval/lang/types"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	// CodepointURI is the URI of the unicode codepoint collation.
	CodepointURI = "http://www.w3.org/2005/xpath-functions/collation/codepoint"

	// UCAURI is the prefix of the unicode collation algorithm URIs.
	UCAURI = "http://www.w3.org/2013/collation/UCA"

	// ExistURI is the prefix of the legacy language collation URIs.
	ExistURI = "http://exist-db.org/collation"
)

// Codepoint is the unicode codepoint collation.
type Codepoint struct{}

// URI returns the collation URI.
func (obj *Codepoint) URI() string { return CodepointURI }

// Compare returns -1, 0 or 1.
func (obj *Codepoint) Compare(a, b string) int { return strings.Compare(a, b) }

// IsCodepoint returns true.
func (obj *Codepoint) IsCodepoint() bool { return true }

// Default is the default collation.
var Default types.Collator = &Codepoint{}

// Collator is a language sensitive collation.
type Collator struct {
	uri string

	// mutex guards the collator which keeps internal buffers.
	mutex    *sync.Mutex
	collator *collate.Collator
}

// URI returns the collation URI.
func (obj *Collator) URI() string { return obj.uri }

// Compare returns -1, 0 or 1.
func (obj *Collator) Compare(a, b string) int {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	return obj.collator.CompareString(a, b)
}

// IsCodepoint returns false.
func (obj *Collator) IsCodepoint() bool { return false }

var (
	cacheMutex = &sync.Mutex{}
	cache      = map[string]types.Collator{}
)

// Lookup returns the collator for this URI. The empty string gives the
// default collation. Collators are cached so that repeated lookups are cheap.
func Lookup(uri string) (types.Collator, error) {
	if uri == "" || uri == CodepointURI {
		return Default, nil
	}

	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	if c, exists := cache[uri]; exists {
		return c, nil
	}
	c, err := build(uri)
	if err != nil {
		return nil, err
	}
	cache[uri] = c
	return c, nil
}

// build parses a collation URI of the form base?lang=xx&strength=yy.
func build(uri string) (types.Collator, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errcode.Wrap(err, errcode.FOCH0002, errcode.KindStatic, "invalid collation: %s", uri)
	}
	base := strings.TrimSuffix(u.Scheme+"://"+u.Host+u.Path, "/")
	if base != UCAURI && base != ExistURI {
		return nil, errcode.Static(errcode.FOCH0002, "unsupported collation: %s", uri)
	}
	q := u.Query()

	tag := language.Und
	if lang := q.Get("lang"); lang != "" {
		if tag, err = language.Parse(lang); err != nil {
			return nil, errcode.Wrap(err, errcode.FOCH0002, errcode.KindStatic, "invalid collation language: %s", lang)
		}
	}

	options := []collate.Option{}
	switch strings.ToLower(q.Get("strength")) {
	case "primary":
		options = append(options, collate.Loose) // ignore case, accents and width
	case "secondary":
		options = append(options, collate.IgnoreCase, collate.IgnoreWidth)
	case "", "tertiary", "identical", "quaternary":
	default:
		return nil, errcode.Static(errcode.FOCH0002, "invalid collation strength: %s", q.Get("strength"))
	}
	if q.Get("numeric") == "yes" {
		options = append(options, collate.Numeric)
	}

	return &Collator{
		uri:      uri,
		mutex:    &sync.Mutex{},
		collator: collate.New(tag, options...),
	}, nil
}
