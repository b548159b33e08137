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
	"strconv"
	"strings"
	"time"
)

var tokenEscaper = strings.NewReplacer(
	"%", "%25",
	"/", "%2F",
	"?", "%3F",
	"#", "%23",
	"=", "%3D",
	"&", "%26",
	":", "%3A",
	";", "%3B",
	" ", "%20",
	"+", "%2B",
)

// EscapeToken percent-escapes a resumption token for use as a query value.
// Request.URL calls it; the token must be raw when passed in.
func EscapeToken(token string) string {
	return tokenEscaper.Replace(token)
}

// Cursor is part of OAI flow control (3.5). A page with a cursor may be
// continued by token alone; a page without one is the last.
type Cursor struct {
	// Token is the raw, unescaped value of the resumptionToken element.
	Token string
	// Expires is the time at which the token ceases to be valid, zero if the
	// repository did not say.
	Expires time.Time
	// CompleteListSize is the cardinality of the complete list, which may
	// only be an estimate. Nil if not given.
	CompleteListSize *int
	// Position counts the elements of the complete list returned so far,
	// starting at zero. Nil if not given.
	Position *int
	// Prefix is the metadata prefix of the request that produced this cursor.
	// It selects the decoder for the next page and is never sent.
	Prefix string
}

// Expired reports whether the token has an expiration date before t.
func (c Cursor) Expired(t time.Time) bool {
	return !c.Expires.IsZero() && c.Expires.Before(t)
}

// newCursor builds a cursor from the element attributes and text. Empty
// tokens mark the last page of a list and yield nil.
func newCursor(token, expirationDate, completeListSize, position string) *Cursor {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	c := &Cursor{Token: token}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(expirationDate)); err == nil {
		c.Expires = t
	}
	if n, err := strconv.Atoi(strings.TrimSpace(completeListSize)); err == nil {
		c.CompleteListSize = &n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(position)); err == nil {
		c.Position = &n
	}
	return c
}
