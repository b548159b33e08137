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
package oaiharvest

import (
	"bytes"
	"encoding/xml"
	"io"
	"sync"
)

// Metadata is a decoded metadata payload.
type Metadata interface {
	// MetadataPrefix returns the prefix the payload was decoded as.
	MetadataPrefix() string
}

// Decoder turns the inner XML of a metadata, about or setDescription
// element into a payload.
type Decoder interface {
	Decode(fragment []byte) (Metadata, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(fragment []byte) (Metadata, error)

func (f DecoderFunc) Decode(fragment []byte) (Metadata, error) { return f(fragment) }

// Registry maps metadata prefixes to decoders. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry returns a registry with a Dublin Core decoder for oai_dc.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]Decoder)}
	r.Register(DefaultFormat, DecoderFunc(decodeDublinCore))
	return r
}

// Register sets the decoder for prefix, replacing any previous one.
func (r *Registry) Register(prefix string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[prefix] = d
}

// Has reports whether a decoder is registered for prefix.
func (r *Registry) Has(prefix string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.decoders[prefix]
	return ok
}

// Decode decodes fragment with the decoder registered for prefix. There is
// no fallback: unknown prefixes fail with a DecodeError.
func (r *Registry) Decode(prefix string, fragment []byte) (Metadata, error) {
	r.mu.RLock()
	d, ok := r.decoders[prefix]
	r.mu.RUnlock()
	if !ok {
		return nil, &DecodeError{Prefix: prefix, Err: ErrUnknownPrefix}
	}
	m, err := d.Decode(fragment)
	if err != nil {
		return nil, &DecodeError{Prefix: prefix, Err: err}
	}
	return m, nil
}

// Raw is a payload kept as XML, for formats without a dedicated decoder.
type Raw struct {
	Prefix string `json:"prefix"`
	XML    string `json:"xml"`
}

func (r Raw) MetadataPrefix() string { return r.Prefix }

// RawDecoder returns a decoder that keeps fragments verbatim. Register it
// explicitly for prefixes like marcxml that should pass through untouched.
func RawDecoder(prefix string) Decoder {
	return DecoderFunc(func(fragment []byte) (Metadata, error) {
		return Raw{Prefix: prefix, XML: string(bytes.TrimSpace(fragment))}, nil
	})
}

// DublinCore holds the fifteen elements of simple Dublin Core, each
// optional and repeatable.
type DublinCore struct {
	Title       []string `json:"title,omitempty"`
	Creator     []string `json:"creator,omitempty"`
	Subject     []string `json:"subject,omitempty"`
	Description []string `json:"description,omitempty"`
	Publisher   []string `json:"publisher,omitempty"`
	Contributor []string `json:"contributor,omitempty"`
	Date        []string `json:"date,omitempty"`
	Type        []string `json:"type,omitempty"`
	Format      []string `json:"format,omitempty"`
	Identifier  []string `json:"identifier,omitempty"`
	Source      []string `json:"source,omitempty"`
	Language    []string `json:"language,omitempty"`
	Relation    []string `json:"relation,omitempty"`
	Coverage    []string `json:"coverage,omitempty"`
	Rights      []string `json:"rights,omitempty"`
}

func (dc *DublinCore) MetadataPrefix() string { return DefaultFormat }

// field returns the slice for a Dublin Core element name, nil if the name
// is not one of the fifteen.
func (dc *DublinCore) field(name string) *[]string {
	switch name {
	case "title":
		return &dc.Title
	case "creator":
		return &dc.Creator
	case "subject":
		return &dc.Subject
	case "description":
		return &dc.Description
	case "publisher":
		return &dc.Publisher
	case "contributor":
		return &dc.Contributor
	case "date":
		return &dc.Date
	case "type":
		return &dc.Type
	case "format":
		return &dc.Format
	case "identifier":
		return &dc.Identifier
	case "source":
		return &dc.Source
	case "language":
		return &dc.Language
	case "relation":
		return &dc.Relation
	case "coverage":
		return &dc.Coverage
	case "rights":
		return &dc.Rights
	}
	return nil
}

// Get returns the values of a Dublin Core element by name, e.g. "creator".
func (dc *DublinCore) Get(name string) []string {
	if f := dc.field(name); f != nil {
		return *f
	}
	return nil
}

// decodeDublinCore matches elements by local name, so dc:title and a bare
// title both count.
func decodeDublinCore(fragment []byte) (Metadata, error) {
	dc := &DublinCore{}
	dec := newDecoder(bytes.NewReader(fragment))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return dc, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		f := dc.field(start.Name.Local)
		if f == nil {
			continue
		}
		s, err := readText(dec)
		if err != nil {
			return nil, err
		}
		if s != "" {
			*f = append(*f, s)
		}
	}
}
