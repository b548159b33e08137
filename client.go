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
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Client turns OAI requests into typed results. It keeps no state between
// calls besides its configuration and may be used from multiple goroutines.
type Client struct {
	endpoint string
	reg      *Registry
	logger   *log.Logger
	retry    *retrier
}

// Option configures a Client.
type Option func(*Client)

// WithDoer replaces the default pester client. The doer is responsible for
// its own timeouts.
func WithDoer(d Doer) Option {
	return func(c *Client) { c.retry.doer = d }
}

// WithLogger sets a logger, the default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRegistry sets the metadata decoders.
func WithRegistry(r *Registry) Option {
	return func(c *Client) { c.reg = r }
}

// WithRetry sets the number of retries after the first attempt and the wait
// used when a 503 carries no Retry-After header.
func WithRetry(maxRetries int, wait time.Duration) Option {
	return func(c *Client) {
		c.retry.maxRetries = maxRetries
		c.retry.wait = wait
	}
}

// withSleep replaces the wait between retries, for tests.
func withSleep(fn func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.retry.sleep = fn }
}

// NewClient creates a client for the repository at cfg.Endpoint.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		reg:      NewRegistry(),
		logger:   log.New(io.Discard),
		retry: &retrier{
			doer:       newDefaultDoer(cfg.Timeout()),
			maxRetries: DefaultMaxRetries,
			wait:       DefaultRetryWait,
			userAgent:  cfg.userAgent(),
			sleep:      sleepContext,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.logger = c.logger
	return c, nil
}

// Endpoint returns the base URL of the repository.
func (c *Client) Endpoint() string { return c.endpoint }

// Registry returns the decoders used by this client.
func (c *Client) Registry() *Registry { return c.reg }

// Do takes an OAI request and turns it into at most one OAI response. An
// empty request endpoint means the client's endpoint. Records are decoded
// with the decoder registered for the request prefix.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Endpoint == "" {
		req.Endpoint = c.endpoint
	}
	link, err := req.URL()
	if err != nil {
		return nil, err
	}
	resp, err := c.retry.get(ctx, link)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	r, err := parse(resp.Body, req, c.reg)
	if err != nil {
		c.logger.Debug("response", "url", link, "err", err)
		return nil, err
	}
	r.URL = link
	return r, nil
}

// checkPrefix fails early for prefixes no decoder is registered for.
func (c *Client) checkPrefix(prefix string) error {
	if prefix == "" {
		prefix = DefaultFormat
	}
	if !c.reg.Has(prefix) {
		return &DecodeError{Prefix: prefix, Err: ErrUnknownPrefix}
	}
	return nil
}

// Identify retrieves information about the repository.
func (c *Client) Identify(ctx context.Context) (*Identity, error) {
	r, err := c.Do(ctx, Request{Verb: VerbIdentify})
	if err != nil {
		return nil, err
	}
	r.Identity.Response = r.info()
	return r.Identity, nil
}

// ListMetadataFormats returns the formats available from the repository,
// or for a single item, if identifier is not empty.
func (c *Client) ListMetadataFormats(ctx context.Context, identifier string) ([]MetadataFormat, error) {
	r, err := c.Do(ctx, Request{Verb: VerbListMetadataFormats, Identifier: identifier})
	if err != nil {
		return nil, err
	}
	return r.Formats, nil
}

// GetRecord retrieves a single record. An empty prefix means oai_dc.
func (c *Client) GetRecord(ctx context.Context, identifier, prefix string) (*Record, error) {
	if err := c.checkPrefix(prefix); err != nil {
		return nil, err
	}
	r, err := c.Do(ctx, Request{Verb: VerbGetRecord, Identifier: identifier, Prefix: prefix})
	if err != nil {
		return nil, err
	}
	r.Record.Response = r.info()
	return r.Record, nil
}

// ListArgs are the selective harvesting arguments of ListRecords and
// ListIdentifiers. Empty values are not sent, except Prefix, which defaults
// to oai_dc.
type ListArgs struct {
	Prefix string
	Set    string
	From   string
	Until  string
}

func (a ListArgs) request(verb Verb) Request {
	return Request{Verb: verb, Prefix: a.Prefix, Set: a.Set, From: a.From, Until: a.Until}
}

// resume builds the follow-up request for a cursor. Only the token is sent,
// the prefix selects the decoder.
func resume(verb Verb, cursor Cursor) (Request, error) {
	if cursor.Token == "" {
		return Request{}, ErrNoToken
	}
	return Request{Verb: verb, Token: cursor.Token, Prefix: cursor.Prefix}, nil
}

// ListRecords harvests the first page of records.
func (c *Client) ListRecords(ctx context.Context, args ListArgs) (*Page[Record], error) {
	if err := c.checkPrefix(args.Prefix); err != nil {
		return nil, err
	}
	return c.records(ctx, args.request(VerbListRecords))
}

// ResumeListRecords fetches the page a cursor points to.
func (c *Client) ResumeListRecords(ctx context.Context, cursor Cursor) (*Page[Record], error) {
	req, err := resume(VerbListRecords, cursor)
	if err != nil {
		return nil, err
	}
	if err := c.checkPrefix(req.Prefix); err != nil {
		return nil, err
	}
	return c.records(ctx, req)
}

func (c *Client) records(ctx context.Context, req Request) (*Page[Record], error) {
	r, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return newPage(r.Records, r.Cursor, r.info()), nil
}

// ListIdentifiers harvests the first page of headers.
func (c *Client) ListIdentifiers(ctx context.Context, args ListArgs) (*Page[Header], error) {
	return c.headers(ctx, args.request(VerbListIdentifiers))
}

// ResumeListIdentifiers fetches the page a cursor points to.
func (c *Client) ResumeListIdentifiers(ctx context.Context, cursor Cursor) (*Page[Header], error) {
	req, err := resume(VerbListIdentifiers, cursor)
	if err != nil {
		return nil, err
	}
	return c.headers(ctx, req)
}

func (c *Client) headers(ctx context.Context, req Request) (*Page[Header], error) {
	r, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return newPage(r.Headers, r.Cursor, r.info()), nil
}

// ListSets harvests the first page of the set hierarchy.
func (c *Client) ListSets(ctx context.Context) (*Page[Set], error) {
	return c.sets(ctx, Request{Verb: VerbListSets})
}

// ResumeListSets fetches the page a cursor points to.
func (c *Client) ResumeListSets(ctx context.Context, cursor Cursor) (*Page[Set], error) {
	req, err := resume(VerbListSets, cursor)
	if err != nil {
		return nil, err
	}
	return c.sets(ctx, req)
}

func (c *Client) sets(ctx context.Context, req Request) (*Page[Set], error) {
	r, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return newPage(r.Sets, r.Cursor, r.info()), nil
}
