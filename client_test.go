package oaiharvest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleeper records waits instead of sleeping.
type sleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithDoer(srv.Client())}, opts...)
	c, err := NewClient(Config{Endpoint: srv.URL}, opts...)
	require.NoError(t, err)
	return c
}

func oaiResponse(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
<responseDate>2024-01-01T00:00:00Z</responseDate>
` + body + `
</OAI-PMH>`
}

func recordXML(id string) string {
	return fmt.Sprintf(`<record><header><identifier>%s</identifier><datestamp>2024-01-01</datestamp></header>`+
		`<metadata><oai_dc:dc xmlns:oai_dc="http://www.openarchives.org/OAI/2.0/oai_dc/" xmlns:dc="http://purl.org/dc/elements/1.1/">`+
		`<dc:title>Title of %s</dc:title></oai_dc:dc></metadata></record>`, id, id)
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrNoEndpoint)
	_, err = NewClient(Config{Endpoint: "  "})
	assert.ErrorIs(t, err, ErrNoEndpoint)

	c, err := NewClient(Config{Endpoint: " http://example.com/oai "})
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/oai", c.Endpoint())
	assert.True(t, c.Registry().Has(DefaultFormat))
}

func TestClientIdentifyDefaultDoer(t *testing.T) {
	var ua, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua, accept = r.UserAgent(), r.Header.Get("Accept")
		assert.Equal(t, "Identify", r.URL.Query().Get("verb"))
		fmt.Fprint(w, identifyResponse)
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL, TimeoutMillis: 5000})
	require.NoError(t, err)
	id, err := c.Identify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.0", id.ProtocolVersion)
	assert.Equal(t, "2002-02-08T12:00:01Z", id.Response.Date)
	assert.Equal(t, srv.URL+"?verb=Identify", id.Response.URL)
	assert.Equal(t, DefaultUserAgent, ua)
	assert.Equal(t, "application/xml;*/*", accept)
}

func TestClientUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
		fmt.Fprint(w, identifyResponse)
	}))
	defer srv.Close()
	c, err := NewClient(Config{Endpoint: srv.URL, UserAgent: "tester/1.0"}, WithDoer(srv.Client()))
	require.NoError(t, err)
	_, err = c.Identify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tester/1.0", ua)
}

func TestClientRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, identifyResponse)
	}))
	defer srv.Close()

	s := &sleeper{}
	c := newTestClient(t, srv, withSleep(s.sleep))
	_, err := c.Identify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second}, s.waits)
}

func TestClientRetryExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := &sleeper{}
	c := newTestClient(t, srv, withSleep(s.sleep))
	_, err := c.ListRecords(context.Background(), ListArgs{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.True(t, IsRetryable(err))

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, KindExhausted, terr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, terr.StatusCode)
	assert.Equal(t, int32(1+DefaultMaxRetries), calls.Load())
	assert.Equal(t, 1+DefaultMaxRetries, terr.Attempts)
	assert.Len(t, s.waits, DefaultMaxRetries)
	for _, w := range s.waits {
		assert.Equal(t, DefaultRetryWait, w)
	}
}

func TestClientWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := &sleeper{}
	c := newTestClient(t, srv, WithRetry(0, time.Second), withSleep(s.sleep))
	_, err := c.Identify(context.Background())
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, s.waits)
}

func TestClientFatalStatus(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusBadGateway} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(code)
			}))
			defer srv.Close()

			s := &sleeper{}
			c := newTestClient(t, srv, withSleep(s.sleep))
			_, err := c.Identify(context.Background())
			var terr *TransportError
			require.True(t, errors.As(err, &terr), "got %v", err)
			assert.Equal(t, KindStatus, terr.Kind)
			assert.Equal(t, code, terr.StatusCode)
			assert.False(t, IsRetryable(err))
			assert.Equal(t, int32(1), calls.Load())
			assert.Empty(t, s.waits)
		})
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL}, WithDoer(&http.Client{Timeout: 50 * time.Millisecond}))
	require.NoError(t, err)
	_, err = c.Identify(context.Background())
	var terr *TransportError
	require.True(t, errors.As(err, &terr), "got %v", err)
	assert.Equal(t, KindTimeout, terr.Kind)
}

func TestClientCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, identifyResponse)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(t, srv).Identify(ctx)
	var terr *TransportError
	require.True(t, errors.As(err, &terr), "got %v", err)
	assert.Equal(t, KindCanceled, terr.Kind)
}

func TestClientConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{Endpoint: url}, WithDoer(http.DefaultClient))
	require.NoError(t, err)
	_, err = c.Identify(context.Background())
	var terr *TransportError
	require.True(t, errors.As(err, &terr), "got %v", err)
	assert.Equal(t, KindConnection, terr.Kind)
}

func TestClientProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, oaiResponse(`<error code="idDoesNotExist">No matching identifier</error>`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).GetRecord(context.Background(), "oai:x:missing", "")
	assert.True(t, IsCode(err, CodeIDDoesNotExist), "got %v", err)
	assert.False(t, IsRetryable(err))
}

func TestClientGetRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "GetRecord", q.Get("verb"))
		assert.Equal(t, "oai:x:1", q.Get("identifier"))
		assert.Equal(t, "oai_dc", q.Get("metadataPrefix"))
		fmt.Fprint(w, oaiResponse(`<GetRecord>`+recordXML("oai:x:1")+`</GetRecord>`))
	}))
	defer srv.Close()

	rec, err := newTestClient(t, srv).GetRecord(context.Background(), "oai:x:1", "")
	require.NoError(t, err)
	assert.Equal(t, "oai:x:1", rec.Header.Identifier)
	assert.Equal(t, []string{"Title of oai:x:1"}, rec.Metadata.(*DublinCore).Title)
	assert.Equal(t, "2024-01-01T00:00:00Z", rec.Response.Date)
}

func TestClientUnknownPrefixBeforeRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetRecord(context.Background(), "oai:x:1", "marcxml")
	var derr *DecodeError
	require.True(t, errors.As(err, &derr), "got %v", err)
	assert.Equal(t, "marcxml", derr.Prefix)

	_, err = c.ListRecords(context.Background(), ListArgs{Prefix: "mods"})
	require.True(t, errors.As(err, &derr), "got %v", err)
	assert.Equal(t, "mods", derr.Prefix)

	_, err = c.ResumeListRecords(context.Background(), Cursor{Token: "x", Prefix: "mods"})
	require.True(t, errors.As(err, &derr), "got %v", err)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClientCustomDecoder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "marcxml", r.URL.Query().Get("metadataPrefix"))
		fmt.Fprint(w, oaiResponse(`<ListRecords><record><header><identifier>a</identifier></header>`+
			`<metadata><record xmlns="http://www.loc.gov/MARC21/slim"><leader>00000nam</leader></record></metadata>`+
			`</record></ListRecords>`))
	}))
	defer srv.Close()

	reg := NewRegistry()
	reg.Register("marcxml", RawDecoder("marcxml"))
	page, err := newTestClient(t, srv, WithRegistry(reg)).ListRecords(context.Background(), ListArgs{Prefix: "marcxml"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Count())
	raw := page.Items[0].Metadata.(Raw)
	assert.Equal(t, `<record xmlns="http://www.loc.gov/MARC21/slim"><leader>00000nam</leader></record>`, raw.XML)
	assert.Nil(t, page.Cursor)
}

func TestClientResumptionTokenRoundTrip(t *testing.T) {
	const token = "a/b=c&d e+f:g;h?i#j%k"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("resumptionToken") {
		case "":
			assert.Equal(t, "verb=ListIdentifiers&metadataPrefix=oai_dc&set=math", r.URL.RawQuery)
			fmt.Fprint(w, oaiResponse(`<ListIdentifiers>
<header><identifier>oai:x:1</identifier></header>
<resumptionToken completeListSize="2" cursor="0">a/b=c&amp;d e+f:g;h?i#j%k</resumptionToken>
</ListIdentifiers>`))
		case token:
			assert.Equal(t, "verb=ListIdentifiers&resumptionToken="+EscapeToken(token), r.URL.RawQuery)
			assert.Len(t, q, 2)
			fmt.Fprint(w, oaiResponse(`<ListIdentifiers>
<header><identifier>oai:x:2</identifier></header>
<resumptionToken completeListSize="2" cursor="1"></resumptionToken>
</ListIdentifiers>`))
		default:
			t.Errorf("unexpected token %q", q.Get("resumptionToken"))
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	page, err := c.ListIdentifiers(context.Background(), ListArgs{Set: "math"})
	require.NoError(t, err)
	require.NotNil(t, page.Cursor)
	assert.Equal(t, token, page.Cursor.Token)

	page, err = c.ResumeListIdentifiers(context.Background(), *page.Cursor)
	require.NoError(t, err)
	assert.Equal(t, "oai:x:2", page.Items[0].Identifier)
	assert.Nil(t, page.Cursor)
	assert.True(t, strings.HasSuffix(page.Response.URL, EscapeToken(token)))
}

func TestClientResumeWithoutToken(t *testing.T) {
	c, err := NewClient(Config{Endpoint: "http://example.com/oai"})
	require.NoError(t, err)
	_, err = c.ResumeListRecords(context.Background(), Cursor{})
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = c.ResumeListIdentifiers(context.Background(), Cursor{})
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = c.ResumeListSets(context.Background(), Cursor{})
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestClientListMetadataFormatsForItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "oai:x:1", r.URL.Query().Get("identifier"))
		fmt.Fprint(w, oaiResponse(`<ListMetadataFormats><metadataFormat><metadataPrefix>oai_dc</metadataPrefix>`+
			`</metadataFormat></ListMetadataFormats>`))
	}))
	defer srv.Close()

	formats, err := newTestClient(t, srv).ListMetadataFormats(context.Background(), "oai:x:1")
	require.NoError(t, err)
	assert.Equal(t, []MetadataFormat{{Prefix: "oai_dc"}}, formats)
}

func TestClientEmptyListIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, oaiResponse(`<ListRecords></ListRecords>`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).ListRecords(context.Background(), ListArgs{})
	var merr *MalformedResponseError
	require.True(t, errors.As(err, &merr), "got %v", err)
	assert.ErrorIs(t, err, ErrEmptyResult)
}
