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

	"golang.org/x/time/rate"
)

// DefaultMaxRequests will prevent endless loops due to broken
// resumptionToken implementations, which hand out the same token forever.
const DefaultMaxRequests = 16384

// Harvester takes a single list request but will do more than one HTTP
// request to fulfill it, if necessary. Each page is handed to a callback, so
// memory stays bounded by the page size.
type Harvester struct {
	Client *Client
	// MaxRequests per list, zero means no limit.
	MaxRequests int
	// Limiter, if set, is waited on before every request.
	Limiter *rate.Limiter
}

// NewHarvester returns a harvester with the default request limit.
func NewHarvester(c *Client) *Harvester {
	return &Harvester{Client: c, MaxRequests: DefaultMaxRequests}
}

func (h *Harvester) wait(ctx context.Context) error {
	if h.Limiter == nil {
		return nil
	}
	return h.Limiter.Wait(ctx)
}

// walk requests the first page, then follows cursors until a page comes
// without one. A first page reporting no matches is an empty harvest.
func walk[T any](ctx context.Context, h *Harvester,
	first func(context.Context) (*Page[T], error),
	next func(context.Context, Cursor) (*Page[T], error),
	fn func(*Page[T]) error) error {

	if err := h.wait(ctx); err != nil {
		return err
	}
	page, err := first(ctx)
	if err != nil {
		if IsCode(err, CodeNoRecordsMatch) || IsCode(err, CodeNoSetHierarchy) {
			h.Client.logger.Debug("empty harvest", "endpoint", h.Client.Endpoint(), "err", err)
			return nil
		}
		return err
	}
	for i := 1; ; i++ {
		if err := fn(page); err != nil {
			return err
		}
		if page.Cursor == nil {
			return nil
		}
		if h.MaxRequests > 0 && i >= h.MaxRequests {
			return ErrTooManyRequests
		}
		if err := h.wait(ctx); err != nil {
			return err
		}
		if page, err = next(ctx, *page.Cursor); err != nil {
			return err
		}
	}
}

// HarvestRecords harvests all records matching args.
func (h *Harvester) HarvestRecords(ctx context.Context, args ListArgs, fn func(*Page[Record]) error) error {
	first := func(ctx context.Context) (*Page[Record], error) {
		return h.Client.ListRecords(ctx, args)
	}
	return walk(ctx, h, first, h.Client.ResumeListRecords, fn)
}

// ResumeRecords continues a record harvest from a stored cursor.
func (h *Harvester) ResumeRecords(ctx context.Context, cursor Cursor, fn func(*Page[Record]) error) error {
	first := func(ctx context.Context) (*Page[Record], error) {
		return h.Client.ResumeListRecords(ctx, cursor)
	}
	return walk(ctx, h, first, h.Client.ResumeListRecords, fn)
}

// HarvestIdentifiers harvests all headers matching args.
func (h *Harvester) HarvestIdentifiers(ctx context.Context, args ListArgs, fn func(*Page[Header]) error) error {
	first := func(ctx context.Context) (*Page[Header], error) {
		return h.Client.ListIdentifiers(ctx, args)
	}
	return walk(ctx, h, first, h.Client.ResumeListIdentifiers, fn)
}

// ResumeIdentifiers continues a header harvest from a stored cursor.
func (h *Harvester) ResumeIdentifiers(ctx context.Context, cursor Cursor, fn func(*Page[Header]) error) error {
	first := func(ctx context.Context) (*Page[Header], error) {
		return h.Client.ResumeListIdentifiers(ctx, cursor)
	}
	return walk(ctx, h, first, h.Client.ResumeListIdentifiers, fn)
}

// HarvestSets harvests the complete set hierarchy.
func (h *Harvester) HarvestSets(ctx context.Context, fn func(*Page[Set]) error) error {
	return walk(ctx, h, h.Client.ListSets, h.Client.ResumeListSets, fn)
}

// ResumeSets continues a set listing from a stored cursor.
func (h *Harvester) ResumeSets(ctx context.Context, cursor Cursor, fn func(*Page[Set]) error) error {
	first := func(ctx context.Context) (*Page[Set], error) {
		return h.Client.ResumeListSets(ctx, cursor)
	}
	return walk(ctx, h, first, h.Client.ResumeListSets, fn)
}

// HarvestWindows splits the range of w into windows of the given interval
// (daily, weekly or monthly) and harvests the records of each in turn.
func (h *Harvester) HarvestWindows(ctx context.Context, args ListArgs, w Window,
	interval, granularity string, fn func(*Page[Record]) error) error {

	ws, err := w.Split(interval)
	if err != nil {
		return err
	}
	for _, win := range ws {
		wargs := win.Args(args, granularity)
		h.Client.logger.Info("window", "from", wargs.From, "until", wargs.Until)
		if err := h.HarvestRecords(ctx, wargs, fn); err != nil {
			return err
		}
	}
	return nil
}
