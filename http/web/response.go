package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/xy-planning-network/switchback"
)

// A Response buffers everything a handler wants to send back to the client.
//
// A Response accepts at most one body write; later writes are ignored and counted
// so the code flushing the Response can surface the misuse.
// Flush delivers the buffered state to an http.ResponseWriter exactly once.
type Response struct {
	status  int
	header  http.Header
	body    []byte
	bodySet bool
	dropped int
	flushed bool
}

// NewResponse constructs an empty Response.
func NewResponse() *Response {
	return &Response{header: make(http.Header)}
}

// Status sets the HTTP status code to respond with.
func (r *Response) Status(code int) *Response {
	r.status = code
	return r
}

// StatusCode returns the status code set so far, or zero.
func (r *Response) StatusCode() int { return r.status }

// SetHeader sets the named header, replacing any existing values.
func (r *Response) SetHeader(key, val string) *Response {
	r.header.Set(key, val)
	return r
}

// AddHeader appends a value to the named header.
func (r *Response) AddHeader(key, val string) *Response {
	r.header.Add(key, val)
	return r
}

// DelHeader removes the named header.
func (r *Response) DelHeader(key string) *Response {
	r.header.Del(key)
	return r
}

// HeaderValue returns the first value set for the named header.
func (r *Response) HeaderValue(key string) string { return r.header.Get(key) }

// Headers returns the headers accumulated so far.
func (r *Response) Headers() http.Header { return r.header }

// JSON encodes v as the response body with an application/json content type.
func (r *Response) JSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("switchback/http/web: %w: failed encoding response body: %s", switchback.ErrNotValid, err)
	}

	r.setBody("application/json", b)
	return nil
}

// Text sets s as the response body with a text/plain content type.
func (r *Response) Text(s string) *Response {
	r.setBody("text/plain; charset=utf-8", []byte(s))
	return r
}

// HTML sets s as the response body with a text/html content type.
func (r *Response) HTML(s string) *Response {
	r.setBody("text/html; charset=utf-8", []byte(s))
	return r
}

// Bytes sets b as the response body with the provided content type.
func (r *Response) Bytes(contentType string, b []byte) *Response {
	r.setBody(contentType, b)
	return r
}

// Body returns the body buffered so far.
func (r *Response) Body() []byte { return r.body }

// BodySet reports whether a body write has been accepted.
func (r *Response) BodySet() bool { return r.bodySet }

// DroppedWrites counts body writes ignored because a body was already set.
func (r *Response) DroppedWrites() int { return r.dropped }

// SetCookie adds a Set-Cookie header for cookie.
func (r *Response) SetCookie(cookie *http.Cookie) error {
	v := cookie.String()
	if v == "" {
		return fmt.Errorf("switchback/http/web: %w: malformed cookie %q", switchback.ErrNotValid, cookie.Name)
	}

	r.header.Add("Set-Cookie", v)
	return nil
}

// SetSignedCookie adds a Set-Cookie header for cookie
// after encoding and signing its value with codec.
//
// The counterpart [*Context.SignedCookie] verifies and decodes the value.
func (r *Response) SetSignedCookie(codec *securecookie.SecureCookie, cookie *http.Cookie) error {
	encoded, err := codec.Encode(cookie.Name, cookie.Value)
	if err != nil {
		return fmt.Errorf("switchback/http/web: %w: failed encoding cookie %q: %s", switchback.ErrNotValid, cookie.Name, err)
	}

	signed := *cookie
	signed.Value = encoded
	return r.SetCookie(&signed)
}

// Flushed reports whether the Response has been written out already.
func (r *Response) Flushed() bool { return r.flushed }

// Flush writes the buffered status, headers, and body to w.
//
// A Response flushes at most once; a second call is an error and writes nothing.
// An unset status flushes as 200.
func (r *Response) Flush(w http.ResponseWriter) (int, error) {
	if r.flushed {
		return 0, fmt.Errorf("switchback/http/web: %w: response already flushed", switchback.ErrInvalidState)
	}

	r.flushed = true
	for key, vals := range r.header {
		for _, val := range vals {
			w.Header().Add(key, val)
		}
	}

	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if len(r.body) == 0 {
		return 0, nil
	}

	n, err := w.Write(r.body)
	if err != nil {
		return n, fmt.Errorf("switchback/http/web: failed writing response: %s", err)
	}

	return n, nil
}

// setBody accepts the first body write and drops the rest.
func (r *Response) setBody(contentType string, b []byte) {
	if r.bodySet {
		r.dropped++
		return
	}

	r.bodySet = true
	r.body = b
	if contentType != "" {
		r.header.Set("Content-Type", contentType)
	}
}
