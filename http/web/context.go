package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gorilla/securecookie"
	"github.com/xy-planning-network/switchback"
)

// DefaultMaxBodyBytes caps how much of a request body a Context reads
// when no cap is configured with WithMaxBodyBytes.
const DefaultMaxBodyBytes int64 = 1 << 20

// A Handler consumes a *Context in order to respond to a matched request.
type Handler func(*Context)

// A Context wraps a single inbound *http.Request,
// carrying the params bound during routing, a value stash for middlewares,
// and the buffered *Response under construction.
//
// A Context belongs to exactly one request and is never shared across goroutines
// except by the code driving the handler chain.
type Context struct {
	r       *http.Request
	resp    *Response
	params  map[string]string
	query   url.Values
	values  map[switchback.Key]any
	body    []byte
	bodyErr error
	read    bool
	maxBody int64
	aborted bool
}

// A ContextOptFn is a functional option configuring a Context when constructing a new one.
type ContextOptFn func(*Context)

// WithParams sets the path params bound during routing.
func WithParams(params map[string]string) ContextOptFn {
	return func(c *Context) {
		c.params = params
	}
}

// WithMaxBodyBytes caps how many bytes of the request body Body reads.
func WithMaxBodyBytes(n int64) ContextOptFn {
	return func(c *Context) {
		c.maxBody = n
	}
}

// WithBody sets an already read request body on the Context,
// marking the body as read.
//
// The dispatcher reads bodies up front so it can reject oversized payloads
// before any handler runs; WithBody hands the buffered bytes over.
func WithBody(b []byte) ContextOptFn {
	return func(c *Context) {
		c.body = b
		c.read = true
	}
}

// NewContext constructs a Context around r.
func NewContext(r *http.Request, opts ...ContextOptFn) *Context {
	c := &Context{
		r:       r,
		resp:    NewResponse(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Request returns the wrapped *http.Request.
func (c *Context) Request() *http.Request { return c.r }

// Context returns the request's context.Context,
// which is cancelled when the request times out or the client goes away.
//
// Long-running handlers ought to watch Context().Done() and bail out
// once the deadline passes; any response built after that point is discarded.
func (c *Context) Context() context.Context { return c.r.Context() }

// Response returns the buffered *Response under construction.
func (c *Context) Response() *Response { return c.resp }

// Method returns the request's HTTP method.
func (c *Context) Method() string { return c.r.Method }

// Path returns the request's URL path.
func (c *Context) Path() string { return c.r.URL.Path }

// Param returns the decoded value bound to the named path param
// or the empty string when the matched pattern binds no such name.
func (c *Context) Param(name string) string { return c.params[name] }

// Params returns a copy of all path params bound during routing.
func (c *Context) Params() map[string]string {
	params := make(map[string]string, len(c.params))
	for k, v := range c.params {
		params[k] = v
	}

	return params
}

// Query returns the value for the named query param.
//
// When a key repeats, the last value wins; confer QueryValues for all of them.
func (c *Context) Query(name string) string {
	vals := c.queryValues()[name]
	if len(vals) == 0 {
		return ""
	}

	return vals[len(vals)-1]
}

// QueryValues returns every value for the named query param in order of appearance.
func (c *Context) QueryValues(name string) []string { return c.queryValues()[name] }

// Header returns the value for the named request header.
func (c *Context) Header(name string) string { return c.r.Header.Get(name) }

// Headers returns all request headers.
func (c *Context) Headers() http.Header { return c.r.Header }

// Cookie returns the value of the named cookie.
func (c *Context) Cookie(name string) (string, error) {
	cookie, err := c.r.Cookie(name)
	if err != nil {
		return "", fmt.Errorf("switchback/http/web: %w: no cookie %q", switchback.ErrMissingData, name)
	}

	return cookie.Value, nil
}

// SignedCookie returns the value of the named cookie
// after verifying and decoding it with codec.
func (c *Context) SignedCookie(codec *securecookie.SecureCookie, name string) (string, error) {
	cookie, err := c.r.Cookie(name)
	if err != nil {
		return "", fmt.Errorf("switchback/http/web: %w: no cookie %q", switchback.ErrMissingData, name)
	}

	var val string
	if err := codec.Decode(name, cookie.Value, &val); err != nil {
		return "", fmt.Errorf("switchback/http/web: %w: failed decoding cookie %q: %s", switchback.ErrNotValid, name, err)
	}

	return val, nil
}

// Body returns the request body, reading and buffering it on first use.
//
// Body never reads more than the configured cap;
// a body exceeding it returns an error matching [switchback.ErrPayloadTooLarge].
// Repeated calls return the same bytes.
func (c *Context) Body() ([]byte, error) {
	if c.read {
		return c.body, c.bodyErr
	}

	c.read = true
	if c.r.Body == nil {
		return nil, nil
	}

	b, err := io.ReadAll(io.LimitReader(c.r.Body, c.maxBody+1))
	if err != nil {
		c.bodyErr = fmt.Errorf("switchback/http/web: failed reading request body: %s", err)
		return nil, c.bodyErr
	}

	if int64(len(b)) > c.maxBody {
		c.bodyErr = fmt.Errorf("switchback/http/web: %w: request body exceeds %d bytes", switchback.ErrPayloadTooLarge, c.maxBody)
		return nil, c.bodyErr
	}

	c.body = b
	return c.body, nil
}

// BindJSON decodes the request body into v.
func (c *Context) BindJSON(v any) error {
	b, err := c.Body()
	if err != nil {
		return err
	}

	if len(b) == 0 {
		return fmt.Errorf("switchback/http/web: %w: empty request body", switchback.ErrMissingData)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("switchback/http/web: %w: failed decoding request body: %s", switchback.ErrNotValid, err)
	}

	return nil
}

// FormValues parses the request body as a URL-encoded form.
func (c *Context) FormValues() (url.Values, error) {
	b, err := c.Body()
	if err != nil {
		return nil, err
	}

	vals, err := url.ParseQuery(string(b))
	if err != nil {
		return nil, fmt.Errorf("switchback/http/web: %w: failed parsing form body: %s", switchback.ErrNotValid, err)
	}

	return vals, nil
}

// Set stashes a value under key for parts of the chain running after the caller.
func (c *Context) Set(key switchback.Key, val any) {
	if c.values == nil {
		c.values = make(map[switchback.Key]any)
	}

	c.values[key] = val
}

// Value returns the stashed value for key or nil.
func (c *Context) Value(key switchback.Key) any { return c.values[key] }

// Abort marks the Context so no further middleware or handler runs.
//
// Whatever the aborting middleware wrote on the Response is what the client receives.
func (c *Context) Abort() { c.aborted = true }

// Aborted reports whether Abort was called.
func (c *Context) Aborted() bool { return c.aborted }

func (c *Context) queryValues() url.Values {
	if c.query == nil {
		c.query = c.r.URL.Query()
	}

	return c.query
}
