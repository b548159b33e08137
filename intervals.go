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
	"time"

	"github.com/jinzhu/now"
)

const oneDay = 24 * time.Hour

// Window represent a span of time, from and until including.
type Window struct {
	From  time.Time
	Until time.Time
}

type TimeShiftFunc func(time.Time) time.Time

// makeWindows cuts w into consecutive windows. The first window starts at
// the beginning of the day of From, the last ends at the end of the day of
// Until.
func (w Window) makeWindows(left, right TimeShiftFunc) ([]Window, error) {
	var ws []Window
	if w.From.After(w.Until) {
		return ws, ErrInvalidDateRange
	}
	last := now.New(w.Until).EndOfDay()
	var start, end time.Time
	from := w.From
	for {
		switch {
		case len(ws) == 0:
			start = now.New(w.From).BeginningOfDay()
		default:
			start = left(from)
		}
		end = right(from)
		if !end.Before(last) {
			ws = append(ws, Window{From: start, Until: last})
			break
		}
		ws = append(ws, Window{From: start, Until: end})
		from = end.Add(oneDay)
	}
	return ws, nil
}

func (w Window) Daily() ([]Window, error) {
	shiftLeft := func(t time.Time) time.Time {
		return now.New(t).BeginningOfDay()
	}
	shiftRight := func(t time.Time) time.Time {
		return now.New(t).EndOfDay()
	}
	return w.makeWindows(shiftLeft, shiftRight)
}

func (w Window) Weekly() ([]Window, error) {
	shiftLeft := func(t time.Time) time.Time {
		return now.New(t).BeginningOfWeek()
	}
	shiftRight := func(t time.Time) time.Time {
		return now.New(t).EndOfWeek()
	}
	return w.makeWindows(shiftLeft, shiftRight)
}

func (w Window) Monthly() ([]Window, error) {
	shiftLeft := func(t time.Time) time.Time {
		return now.New(t).BeginningOfMonth()
	}
	shiftRight := func(t time.Time) time.Time {
		return now.New(t).EndOfMonth()
	}
	return w.makeWindows(shiftLeft, shiftRight)
}

// Split dispatches on an interval name: daily, weekly or monthly.
func (w Window) Split(interval string) ([]Window, error) {
	switch interval {
	case "daily":
		return w.Daily()
	case "weekly":
		return w.Weekly()
	case "monthly":
		return w.Monthly()
	}
	return nil, fmt.Errorf("unknown window interval: %q", interval)
}

// Granularity of datestamps a repository supports (3.3.2).
const (
	GranularityDay    = "YYYY-MM-DD"
	GranularitySecond = "YYYY-MM-DDThh:mm:ssZ"
)

// Args returns a copy of args with From and Until set to this window,
// formatted for the given granularity. Day granularity is used unless the
// repository supports seconds. Days are taken in the window's own location,
// seconds are converted to UTC.
func (w Window) Args(args ListArgs, granularity string) ListArgs {
	if granularity == GranularitySecond {
		args.From = w.From.UTC().Format("2006-01-02T15:04:05Z")
		args.Until = w.Until.UTC().Format("2006-01-02T15:04:05Z")
		return args
	}
	args.From = w.From.Format("2006-01-02")
	args.Until = w.Until.Format("2006-01-02")
	return args
}
