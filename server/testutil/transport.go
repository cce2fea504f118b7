package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
)

// Transport is an http.RoundTripper that serves requests by calling Handler
// directly. No socket is opened, so requests run on the caller's goroutine.
type Transport struct {
	Handler http.Handler
}

var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	// the server side owns its own copy of the request, as net/http does
	srvReq := req.Clone(req.Context())
	srvReq.RequestURI = req.URL.RequestURI()
	srvReq.RemoteAddr = "192.0.2.1:1234"
	if srvReq.Host == "" {
		srvReq.Host = req.URL.Host
	}
	if req.Body == nil {
		srvReq.Body = http.NoBody
	}

	rec := httptest.NewRecorder()
	t.Handler.ServeHTTP(rec, srvReq)
	if req.Body != nil {
		_ = req.Body.Close()
	}

	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

// BaseURL is the origin used for in-process requests.
const BaseURL = "http://testserver"

// NewClient returns an http.Client whose requests are served in process by
// handler. Relative paths are resolved against BaseURL by Client.
func NewClient(handler http.Handler) *Client {
	base, _ := url.Parse(BaseURL)
	return &Client{
		HTTP: &http.Client{
			Transport: &Transport{Handler: handler},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		base: base,
	}
}

// Client issues requests against an in-process handler using paths relative
// to BaseURL.
type Client struct {
	HTTP *http.Client
	base *url.URL
}

// Do builds and sends a request. header may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, header http.Header) (*http.Response, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.HTTP.Do(req)
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, header http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, header)
}

// PostForm sends form-encoded values.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, header http.Header) (*http.Response, error) {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.Do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), h)
}
