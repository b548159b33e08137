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
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// capture collects the bytes consumed by a decoder while switched on.
type capture struct {
	on  bool
	buf bytes.Buffer
}

// tap hands bytes to an xml.Decoder one at a time. Since the decoder does
// not buffer a ByteReader, the capture sees exactly the consumed bytes.
type tap struct {
	r   *bufio.Reader
	cap *capture
}

func (t *tap) ReadByte() (byte, error) {
	b, err := t.r.ReadByte()
	if err == nil && t.cap.on {
		t.cap.buf.WriteByte(b)
	}
	return b, err
}

func (t *tap) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if t.cap.on {
		t.cap.buf.Write(p[:n])
	}
	return n, err
}

// stream is a forward-only walk over one XML document or fragment.
type stream struct {
	dec *xml.Decoder
	cap *capture
}

func newStream(r io.Reader) *stream {
	c := &capture{}
	dec := xml.NewDecoder(&tap{r: bufio.NewReader(r), cap: c})
	dec.Entity = xml.HTMLEntity
	// Some repositories still serve ISO-8859-1 or windows-1252.
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		// Read past the old tap, only decoded bytes are captured.
		if t, ok := input.(*tap); ok {
			input = t.r
		}
		cr, err := charset.NewReaderLabel(label, input)
		if err != nil {
			return nil, err
		}
		return &tap{r: bufio.NewReader(cr), cap: c}, nil
	}
	return &stream{dec: dec, cap: c}
}

func newDecoder(r io.Reader) *xml.Decoder {
	return newStream(r).dec
}

// inner consumes the element whose start tag was just read and returns its
// inner markup verbatim.
func (s *stream) inner() ([]byte, error) {
	s.cap.buf.Reset()
	s.cap.on = true
	defer func() { s.cap.on = false }()
	depth := 1
	for depth > 0 {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	b := s.cap.buf.Bytes()
	i := bytes.LastIndex(b, []byte("</"))
	if i < 0 {
		// self-closing element
		return nil, nil
	}
	return bytes.Clone(b[:i]), nil
}

// children calls fn for each child element of the element whose start tag
// was just read, until its end tag. fn must consume the child.
func (s *stream) children(fn func(xml.StartElement) error) error {
	for {
		tok, err := s.dec.Token()
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// header reads a record header. The first non-empty identifier wins.
func (s *stream) header(start xml.StartElement) (Header, error) {
	h := Header{Status: StatusActive}
	if strings.TrimSpace(attr(start, "status")) == string(StatusDeleted) {
		h.Status = StatusDeleted
	}
	err := s.children(func(c xml.StartElement) error {
		switch c.Name.Local {
		case "identifier":
			v, err := readText(s.dec)
			if h.Identifier == "" {
				h.Identifier = v
			}
			return err
		case "datestamp":
			v, err := readText(s.dec)
			h.Datestamp = v
			return err
		case "setSpec":
			v, err := readText(s.dec)
			if v != "" {
				h.SetSpecs = append(h.SetSpecs, v)
			}
			return err
		}
		return s.dec.Skip()
	})
	return h, err
}

// readText consumes the current element and returns its character data,
// including that of nested elements, with surrounding space trimmed.
func readText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Response can hold any answer to a request to an OAI server. Which of the
// fields are set depends on the verb.
type Response struct {
	Verb     Verb
	Date     string
	URL      string
	Identity *Identity
	Formats  []MetadataFormat
	Record   *Record
	Records  []Record
	Headers  []Header
	Sets     []Set
	Cursor   *Cursor
}

func (r *Response) info() ResponseInfo {
	return ResponseInfo{Date: r.Date, URL: r.URL}
}

type parser struct {
	s    *stream
	req  Request
	reg  *Registry
	resp *Response
}

// parse reads a response body in a single pass. An error element yields a
// ProtocolError, whatever verb was requested.
func parse(body io.Reader, req Request, reg *Registry) (*Response, error) {
	p := &parser{
		s:    newStream(body),
		req:  req,
		reg:  reg,
		resp: &Response{Verb: req.Verb},
	}
	return p.run()
}

func (p *parser) run() (*Response, error) {
	var found bool
	for {
		tok, err := p.s.dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if found {
				// trailing garbage after a complete container
				return p.resp, nil
			}
			return nil, p.malformed("unreadable document", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch name := start.Name.Local; {
		case name == "error":
			return nil, p.protocolError(start)
		case name == "responseDate":
			if p.resp.Date, err = readText(p.s.dec); err != nil {
				return nil, p.malformed("responseDate", err)
			}
		case name == string(p.req.Verb) && !found:
			found = true
			if err := p.container(); err != nil {
				return nil, err
			}
		case Verb(name).Valid():
			if err := p.s.dec.Skip(); err != nil {
				return nil, p.malformed(name, err)
			}
		}
	}
	if !found {
		return nil, p.malformed(fmt.Sprintf("no %s element", p.req.Verb), nil)
	}
	return p.resp, nil
}

func (p *parser) protocolError(start xml.StartElement) error {
	msg, err := readText(p.s.dec)
	if err != nil {
		return p.malformed("error element", err)
	}
	return &ProtocolError{Code: attr(start, "code"), Message: msg}
}

func (p *parser) malformed(reason string, err error) error {
	return &MalformedResponseError{Verb: p.req.Verb, Reason: reason, Err: err}
}

// wrap passes typed errors through and marks anything else as malformed.
func (p *parser) wrap(reason string, err error) error {
	var (
		derr *DecodeError
		merr *MalformedResponseError
	)
	if errors.As(err, &derr) || errors.As(err, &merr) {
		return err
	}
	return p.malformed(reason, err)
}

func (p *parser) container() error {
	switch p.req.Verb {
	case VerbIdentify:
		return p.identify()
	case VerbListMetadataFormats:
		return p.formats()
	case VerbGetRecord:
		return p.getRecord()
	case VerbListRecords:
		return p.listRecords()
	case VerbListIdentifiers:
		return p.listIdentifiers()
	case VerbListSets:
		return p.listSets()
	}
	return ErrBadVerb
}

func (p *parser) identify() error {
	id := &Identity{}
	err := p.s.children(func(c xml.StartElement) error {
		var (
			v   string
			err error
		)
		switch c.Name.Local {
		case "description":
			b, err := p.s.inner()
			if err == nil {
				id.Descriptions = append(id.Descriptions, strings.TrimSpace(string(b)))
			}
			return err
		case "repositoryName", "baseURL", "protocolVersion", "earliestDatestamp",
			"deletedRecord", "granularity", "adminEmail", "compression":
			if v, err = readText(p.s.dec); err != nil {
				return err
			}
		default:
			return p.s.dec.Skip()
		}
		switch c.Name.Local {
		case "repositoryName":
			id.Name = v
		case "baseURL":
			id.BaseURL = v
		case "protocolVersion":
			id.ProtocolVersion = v
		case "earliestDatestamp":
			id.EarliestDatestamp = v
		case "deletedRecord":
			id.DeletedRecord = DeletedPolicy(v)
		case "granularity":
			id.Granularity = v
		case "adminEmail":
			id.AdminEmails = append(id.AdminEmails, v)
		case "compression":
			id.Compressions = append(id.Compressions, v)
		}
		return nil
	})
	if err != nil {
		return p.wrap("Identify", err)
	}
	p.resp.Identity = id
	return nil
}

func (p *parser) formats() error {
	err := p.s.children(func(c xml.StartElement) error {
		if c.Name.Local != "metadataFormat" {
			return p.s.dec.Skip()
		}
		var f MetadataFormat
		err := p.s.children(func(c xml.StartElement) error {
			var err error
			switch c.Name.Local {
			case "metadataPrefix":
				f.Prefix, err = readText(p.s.dec)
			case "schema":
				f.Schema, err = readText(p.s.dec)
			case "metadataNamespace":
				f.Namespace, err = readText(p.s.dec)
			default:
				err = p.s.dec.Skip()
			}
			return err
		})
		if err == nil {
			p.resp.Formats = append(p.resp.Formats, f)
		}
		return err
	})
	return p.wrap("ListMetadataFormats", err)
}

func (p *parser) getRecord() error {
	var found bool
	err := p.s.children(func(c xml.StartElement) error {
		if c.Name.Local != "record" || found {
			return p.s.dec.Skip()
		}
		raw, err := p.s.inner()
		if err != nil {
			return err
		}
		rec, err := p.record(raw)
		if err != nil {
			return err
		}
		found = true
		p.resp.Record = &rec
		return nil
	})
	if err != nil {
		return p.wrap("GetRecord", err)
	}
	if !found {
		return p.malformed("no record element", nil)
	}
	return nil
}

// list walks a list container, handing item elements to fn and picking up
// the resumption token.
func (p *parser) list(item string, fn func(xml.StartElement) error) (n int, sawToken bool, err error) {
	err = p.s.children(func(c xml.StartElement) error {
		switch c.Name.Local {
		case item:
			if err := fn(c); err != nil {
				return err
			}
			n++
			return nil
		case "resumptionToken":
			sawToken = true
			text, err := readText(p.s.dec)
			if err != nil {
				return err
			}
			p.resp.Cursor = newCursor(text, attr(c, "expirationDate"), attr(c, "completeListSize"), attr(c, "cursor"))
			if p.resp.Cursor != nil && p.req.Verb != VerbListSets {
				p.resp.Cursor.Prefix = p.req.prefix()
			}
			return nil
		}
		return p.s.dec.Skip()
	})
	return n, sawToken, err
}

// checkList turns a list walk into an error. Lists of records or headers
// that hold neither items nor a token are malformed.
func (p *parser) checkList(n int, sawToken bool, err error) error {
	if err != nil {
		var derr *DecodeError
		if n == 0 && !errors.As(err, &derr) {
			return p.malformed("end of document before any item", fmt.Errorf("%w: %w", ErrEmptyResult, err))
		}
		return p.wrap(string(p.req.Verb), err)
	}
	if n == 0 && !sawToken {
		return p.malformed("container holds no items", ErrEmptyResult)
	}
	return nil
}

func (p *parser) listRecords() error {
	n, sawToken, err := p.list("record", func(xml.StartElement) error {
		raw, err := p.s.inner()
		if err != nil {
			return err
		}
		rec, err := p.record(raw)
		if err != nil {
			return err
		}
		p.resp.Records = append(p.resp.Records, rec)
		return nil
	})
	return p.checkList(n, sawToken, err)
}

func (p *parser) listIdentifiers() error {
	n, sawToken, err := p.list("header", func(c xml.StartElement) error {
		h, err := p.s.header(c)
		if err != nil {
			return err
		}
		p.resp.Headers = append(p.resp.Headers, h)
		return nil
	})
	return p.checkList(n, sawToken, err)
}

func (p *parser) listSets() error {
	_, _, err := p.list("set", func(xml.StartElement) error {
		set, err := p.set()
		if err != nil {
			return err
		}
		p.resp.Sets = append(p.resp.Sets, set)
		return nil
	})
	if err != nil {
		return p.wrap("ListSets", err)
	}
	return nil
}

func (p *parser) set() (Set, error) {
	var set Set
	err := p.s.children(func(c xml.StartElement) error {
		var err error
		switch c.Name.Local {
		case "setSpec":
			set.Spec, err = readText(p.s.dec)
		case "setName":
			set.Name, err = readText(p.s.dec)
		case "setDescription":
			var b []byte
			if b, err = p.s.inner(); err != nil {
				return err
			}
			set.Description, err = p.reg.Decode(DefaultFormat, b)
		default:
			err = p.s.dec.Skip()
		}
		return err
	})
	return set, err
}

// record builds a record from the inner markup of a record element. The
// fragment is parsed on its own, so the outer stream never holds more than
// one record.
func (p *parser) record(raw []byte) (Record, error) {
	rec := Record{Raw: string(raw)}
	s := newStream(bytes.NewReader(raw))
	var (
		metadata           []byte
		about              [][]byte
		hasHeader, hasMeta bool
	)
	for {
		tok, err := s.dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rec, p.malformed("record", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "header":
			if hasHeader {
				err = s.dec.Skip()
				break
			}
			rec.Header, err = s.header(start)
			hasHeader = true
		case "metadata":
			if hasMeta {
				err = s.dec.Skip()
				break
			}
			metadata, err = s.inner()
			hasMeta = true
		case "about":
			var b []byte
			if b, err = s.inner(); err == nil {
				about = append(about, b)
			}
		}
		if err != nil {
			return rec, p.malformed("record", err)
		}
	}
	if !hasHeader {
		return rec, p.malformed("record without header", nil)
	}
	if rec.Header.Deleted() {
		return rec, nil
	}
	var err error
	if hasMeta {
		if rec.Metadata, err = p.reg.Decode(p.req.prefix(), metadata); err != nil {
			return rec, err
		}
	}
	for _, b := range about {
		m, err := p.reg.Decode(p.req.prefix(), b)
		if err != nil {
			return rec, err
		}
		rec.About = append(rec.About, m)
	}
	return rec, nil
}
