//  Copyright 2015 by Leipzig University Library, http://ub.uni-leipzig.de
//                    The Finc Authors, http://finc.info
//                    Martin Czygan, <martin.czygan@uni-leipzig.de>
//
// This file is part of some open source application.
//
// Some open source application is free software: you can redistribute
// it and/or modify it under the terms of the GNU General Public
// License as published by the Free Software Foundation, either
// version 3 of the License, or (at your option) any later version.
//
// Some open source application is distributed in the hope that it will
// be useful, but WITHOUT ANY WARRANTY; without even the implied warranty
// of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Foobar.  If not, see <http://www.gnu.org/licenses/>.
//
// @license GPL-3.0+ <http://spdx.org/licenses/GPL-3.0+>
//
// Package providers resolves short names for repositories, read from a
// git-config style file:
//
//	[provider "dnb"]
//	url = https://services.dnb.de/oai/repository
//	set = dnb:reiheA
//	prefix = MARC21-xml
package providers

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/gcfg.v1"
)

// DefaultFilename is looked up in the home directory.
const DefaultFilename = ".oaiharvest.cfg"

// Provider is a repository alias with optional harvest defaults.
type Provider struct {
	URL    string `gcfg:"url"`
	Set    string `gcfg:"set"`
	Prefix string `gcfg:"prefix"`
}

// Config holds all provider aliases.
type Config struct {
	Provider map[string]*Provider
}

// DefaultPath returns the path of the config file in the home directory.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultFilename), nil
}

// Read parses the config file at path. A missing file yields an empty
// config.
func Read(path string) (*Config, error) {
	c := &Config{Provider: make(map[string]*Provider)}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c, nil
	}
	if err := gcfg.ReadFileInto(c, path); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse reads provider aliases from a string.
func Parse(s string) (*Config, error) {
	c := &Config{Provider: make(map[string]*Provider)}
	if err := gcfg.ReadStringInto(c, s); err != nil {
		return nil, err
	}
	return c, nil
}

// Lookup returns the provider for an alias. Anything that is not an alias
// is taken as an endpoint URL.
func (c *Config) Lookup(name string) *Provider {
	if name == "" {
		return nil
	}
	if p, ok := c.Provider[name]; ok {
		return p
	}
	return &Provider{URL: name}
}
