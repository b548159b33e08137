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
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sethgrid/pester"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 4
	// DefaultRetryWait is used when a 503 comes without a usable Retry-After.
	DefaultRetryWait = 3 * time.Second
)

// Doer lets us use pester, http.DefaultClient or other HTTP client
// implementations interchangeably.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// newDefaultDoer returns a pester client that makes a single attempt per
// call. Retries are decided by the retrier, which knows about Retry-After.
func newDefaultDoer(timeout time.Duration) *pester.Client {
	c := pester.New()
	c.Timeout = timeout
	c.MaxRetries = 1
	c.Backoff = func(int) time.Duration { return 0 }
	return c
}

// retrier executes one logical GET, retrying while the repository answers
// 503 Service Unavailable.
type retrier struct {
	doer       Doer
	maxRetries int
	wait       time.Duration
	userAgent  string
	logger     *log.Logger
	sleep      func(context.Context, time.Duration) error
}

// get returns a response with a 2xx status, the caller must close its body.
// Every attempt sends the identical request.
func (r *retrier) get(ctx context.Context, link string) (*http.Response, error) {
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
		if err != nil {
			return nil, &TransportError{Kind: KindConnection, URL: link, Attempts: attempt, Err: err}
		}
		req.Header.Set("User-Agent", r.userAgent)
		req.Header.Set("Accept", "application/xml;*/*")
		r.logger.Debug("request", "url", link, "attempt", attempt)

		resp, err := r.doer.Do(req)
		if err != nil {
			return nil, classify(link, attempt, err)
		}
		switch {
		case resp.StatusCode == http.StatusServiceUnavailable:
			wait := retryAfter(resp.Header.Get("Retry-After"), r.wait)
			drain(resp)
			if attempt > r.maxRetries {
				r.logger.Error("retries exhausted", "url", link, "attempts", attempt)
				return nil, &TransportError{
					Kind:       KindExhausted,
					StatusCode: resp.StatusCode,
					URL:        link,
					Attempts:   attempt,
				}
			}
			r.logger.Warn("service unavailable", "url", link, "status", resp.StatusCode,
				"attempt", attempt, "wait", wait)
			if err := r.sleep(ctx, wait); err != nil {
				return nil, classify(link, attempt, err)
			}
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			drain(resp)
			return nil, &TransportError{
				Kind:       KindStatus,
				StatusCode: resp.StatusCode,
				URL:        link,
				Attempts:   attempt,
			}
		default:
			return resp, nil
		}
	}
}

// classify turns an error from the doer into a TransportError.
func classify(link string, attempt int, err error) *TransportError {
	kind := KindConnection
	var nerr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &nerr) && nerr.Timeout():
		kind = KindTimeout
	}
	return &TransportError{Kind: kind, URL: link, Attempts: attempt, Err: err}
}

// retryAfter reads a Retry-After value given in seconds. HTTP dates and
// garbage yield the fallback.
func retryAfter(v string, fallback time.Duration) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// drain lets the connection be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}
