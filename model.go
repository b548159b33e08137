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

// DeletedPolicy is the level of support a repository has for deleted records.
type DeletedPolicy string

const (
	DeletedNo         DeletedPolicy = "no"
	DeletedTransient  DeletedPolicy = "transient"
	DeletedPersistent DeletedPolicy = "persistent"
)

// Status of a record header. A header without status attribute is active.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// ResponseInfo is attached to every result. Date is the responseDate
// reported by the repository, URL the request that produced the response.
type ResponseInfo struct {
	Date string `json:"date,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Identity is the Identify response.
type Identity struct {
	Name              string        `json:"name"`
	BaseURL           string        `json:"url"`
	ProtocolVersion   string        `json:"version"`
	EarliestDatestamp string        `json:"earliest"`
	DeletedRecord     DeletedPolicy `json:"delete"`
	Granularity       string        `json:"granularity"`
	AdminEmails       []string      `json:"emails,omitempty"`
	Compressions      []string      `json:"compressions,omitempty"`
	// Descriptions keep the inner XML of each description element.
	Descriptions []string     `json:"descriptions,omitempty"`
	Response     ResponseInfo `json:"-"`
}

// MetadataFormat describes one format a repository can disseminate.
type MetadataFormat struct {
	Prefix    string `json:"prefix"`
	Schema    string `json:"schema"`
	Namespace string `json:"namespace"`
}

// Header is the main response of ListIdentifiers requests and also
// transmitted in records.
type Header struct {
	Identifier string   `json:"identifier"`
	Datestamp  string   `json:"datestamp"`
	Status     Status   `json:"status"`
	SetSpecs   []string `json:"sets,omitempty"`
}

// Deleted reports whether the header marks a deleted record.
func (h Header) Deleted() bool { return h.Status == StatusDeleted }

// Record is a header plus decoded payloads, one About entry per about
// container. Metadata and About are nil for deleted records. Raw holds the inner XML of the record element.
type Record struct {
	Header   Header     `json:"header"`
	Metadata Metadata   `json:"metadata,omitempty"`
	About    []Metadata `json:"about,omitempty"`
	Raw      string     `json:"-"`
	// Response is only set for records returned by GetRecord.
	Response ResponseInfo `json:"-"`
}

// Set is a named subset of a repository's records.
type Set struct {
	Spec        string   `json:"spec"`
	Name        string   `json:"name"`
	Description Metadata `json:"description,omitempty"`
}
