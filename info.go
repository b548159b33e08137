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
	"context"
	"time"
)

// RepositoryInfo summarizes a repository.
type RepositoryInfo struct {
	Identity *Identity        `json:"id,omitempty"`
	Formats  []MetadataFormat `json:"formats,omitempty"`
	Sets     []Set            `json:"sets,omitempty"`
	Errors   []error          `json:"-"`
	Elapsed  float64          `json:"elapsed"`
}

type message struct {
	verb     Verb
	identity *Identity
	formats  []MetadataFormat
	sets     []Set
	err      error
}

// About issues Identify, ListMetadataFormats and ListSets in parallel. Failed
// verbs are collected in Errors, the error is only set when ctx is done.
func (c *Client) About(ctx context.Context) (*RepositoryInfo, error) {
	start := time.Now()
	ch := make(chan message, 3)

	go func() {
		id, err := c.Identify(ctx)
		ch <- message{verb: VerbIdentify, identity: id, err: err}
	}()
	go func() {
		formats, err := c.ListMetadataFormats(ctx, "")
		ch <- message{verb: VerbListMetadataFormats, formats: formats, err: err}
	}()
	go func() {
		var sets []Set
		err := NewHarvester(c).HarvestSets(ctx, func(p *Page[Set]) error {
			sets = append(sets, p.Items...)
			return nil
		})
		ch <- message{verb: VerbListSets, sets: sets, err: err}
	}()

	info := &RepositoryInfo{}
	for received := 0; received < 3; received++ {
		select {
		case msg := <-ch:
			if msg.err != nil {
				info.Errors = append(info.Errors, msg.err)
				continue
			}
			switch msg.verb {
			case VerbIdentify:
				info.Identity = msg.identity
			case VerbListMetadataFormats:
				info.Formats = msg.formats
			case VerbListSets:
				info.Sets = msg.sets
			}
		case <-ctx.Done():
			return info, ctx.Err()
		}
	}
	info.Elapsed = time.Since(start).Seconds()
	return info, nil
}
