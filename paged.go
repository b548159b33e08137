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

// Page is one response of a list request: the items in document order and a
// cursor, if the repository has more. A page keeps its own traversal position
// for Next and Previous.
type Page[T any] struct {
	Items    []T
	Cursor   *Cursor
	Response ResponseInfo
	pos      int
}

func newPage[T any](items []T, cursor *Cursor, info ResponseInfo) *Page[T] {
	return &Page[T]{Items: items, Cursor: cursor, Response: info}
}

// Next returns the item at the current position and advances. At the end it
// returns false and does not move.
func (p *Page[T]) Next() (T, bool) {
	var zero T
	if p.pos >= len(p.Items) {
		return zero, false
	}
	item := p.Items[p.pos]
	p.pos++
	return item, true
}

// Previous returns the item at the current position and steps back by one,
// unless already at the first item. After Next has returned the last item,
// Previous returns that item again.
func (p *Page[T]) Previous() (T, bool) {
	var zero T
	if len(p.Items) == 0 {
		return zero, false
	}
	if p.pos >= len(p.Items) {
		p.pos = len(p.Items) - 1
	}
	item := p.Items[p.pos]
	if p.pos > 0 {
		p.pos--
	}
	return item, true
}

// Count returns the number of items on this page.
func (p *Page[T]) Count() int { return len(p.Items) }

// Reset moves the position back to the first item.
func (p *Page[T]) Reset() { p.pos = 0 }

// HasMore reports whether the repository has another page.
func (p *Page[T]) HasMore() bool { return p.Cursor != nil }
