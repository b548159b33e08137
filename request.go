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
	"fmt"
	"net/url"
	"strings"
)

// Verb is one of the six protocol requests (4. Protocol Requests and Responses).
type Verb string

const (
	VerbIdentify            Verb = "Identify"
	VerbListMetadataFormats Verb = "ListMetadataFormats"
	VerbGetRecord           Verb = "GetRecord"
	VerbListRecords         Verb = "ListRecords"
	VerbListIdentifiers     Verb = "ListIdentifiers"
	VerbListSets            Verb = "ListSets"
)

var (
	// Version of this library, part of the default user agent.
	Version = "0.2.0"
	// DefaultUserAgent identifies the harvester to repositories.
	DefaultUserAgent = fmt.Sprintf("oaiharvest/%s (+https://github.com/miku/oaiharvest)", Version)
	// DefaultFormat should be supported by most endpoints.
	DefaultFormat = "oai_dc"

	verbs = map[Verb]bool{
		VerbIdentify:            true,
		VerbListMetadataFormats: true,
		VerbGetRecord:           true,
		VerbListRecords:         true,
		VerbListIdentifiers:     true,
		VerbListSets:            true,
	}
)

// Valid reports whether v is a protocol verb.
func (v Verb) Valid() bool { return verbs[v] }

// Resumable reports whether v is a list request, which may be continued with
// a resumption token (3.5 Flow Control).
func (v Verb) Resumable() bool {
	switch v {
	case VerbListRecords, VerbListIdentifiers, VerbListSets:
		return true
	}
	return false
}

// Request can hold any parameter, that you want to send to an OAI server.
// Token is the raw resumption token as it appeared in a response; it is
// escaped when the URL is built and must not be escaped by the caller.
type Request struct {
	Endpoint   string
	Verb       Verb
	Identifier string
	Prefix     string
	Set        string
	From       string
	Until      string
	Token      string
}

// prefix returns the metadata prefix, falling back to DefaultFormat.
func (r Request) prefix() string {
	if r.Prefix == "" {
		return DefaultFormat
	}
	return r.Prefix
}

// URL returns the absolute URL for a given request. Catches basic errors like
// missing endpoint or bad verb. Optional arguments that are empty are left
// out. Dates are passed as given, the repository is the judge of their syntax.
func (r Request) URL() (string, error) {
	if r.Endpoint == "" {
		return "", ErrNoEndpoint
	}
	if !r.Verb.Valid() {
		return "", ErrBadVerb
	}

	var sb strings.Builder
	sb.WriteString(r.Endpoint)
	if strings.Contains(r.Endpoint, "?") {
		sb.WriteByte('&')
	} else {
		sb.WriteByte('?')
	}
	sb.WriteString("verb=")
	sb.WriteString(string(r.Verb))

	maybeAdd := func(k, v string) {
		if v == "" {
			return
		}
		sb.WriteByte('&')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v)
	}

	// An exclusive argument with a value that is the flow control token.
	if r.Token != "" {
		if !r.Verb.Resumable() {
			return "", ErrNoResumption
		}
		maybeAdd("resumptionToken", EscapeToken(r.Token))
		return sb.String(), nil
	}

	switch r.Verb {
	case VerbListMetadataFormats:
		maybeAdd("identifier", url.QueryEscape(r.Identifier))
	case VerbGetRecord:
		maybeAdd("metadataPrefix", url.QueryEscape(r.prefix()))
		maybeAdd("identifier", url.QueryEscape(r.Identifier))
	case VerbListRecords, VerbListIdentifiers:
		maybeAdd("metadataPrefix", url.QueryEscape(r.prefix()))
		maybeAdd("set", url.QueryEscape(r.Set))
		maybeAdd("from", url.QueryEscape(r.From))
		maybeAdd("until", url.QueryEscape(r.Until))
	}
	return sb.String(), nil
}
