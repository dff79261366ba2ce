package router

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xy-planning-network/switchback"
)

// Segment kinds, ordered so a higher kind always outranks a lower one
// when patterns compete for the same concrete path.
const (
	segWildcard = iota + 1
	segParam
	segStatic

	// segEnd is the effective kind past a pattern's last segment.
	// The only way two patterns of different lengths compete is when the
	// longer one carries a wildcard tail; the fully explicit pattern wins.
	segEnd
)

// A segment is one /-delimited piece of a compiled pattern.
//
// val holds the literal text for static segments and the binding name otherwise.
type segment struct {
	kind int
	val  string
}

// A pattern is a compiled route path.
type pattern struct {
	raw      string
	segs     []segment
	captures int
}

// compilePattern parses path into a pattern.
//
// Static segments match exactly and case-sensitively.
// A ":name" segment binds exactly one non-empty path segment.
// A "*name" segment binds the rest of the path and must come last.
func compilePattern(path string) (pattern, error) {
	if path == "" || path[0] != '/' {
		return pattern{}, fmt.Errorf("switchback/http/router: %w: pattern %q must begin with /", switchback.ErrNotValid, path)
	}

	p := pattern{raw: path}
	names := make(map[string]bool)
	parts := splitPath(path)
	for i, part := range parts {
		switch {
		case strings.HasPrefix(part, ":"):
			name := part[1:]
			if name == "" {
				return pattern{}, fmt.Errorf("switchback/http/router: %w: param segment in %q missing a name", switchback.ErrNotValid, path)
			}
			if names[name] {
				return pattern{}, fmt.Errorf("switchback/http/router: %w: pattern %q binds %q twice", switchback.ErrNotValid, path, name)
			}

			names[name] = true
			p.captures++
			p.segs = append(p.segs, segment{kind: segParam, val: name})

		case strings.HasPrefix(part, "*"):
			name := part[1:]
			if name == "" {
				return pattern{}, fmt.Errorf("switchback/http/router: %w: wildcard segment in %q missing a name", switchback.ErrNotValid, path)
			}
			if i != len(parts)-1 {
				return pattern{}, fmt.Errorf("switchback/http/router: %w: wildcard segment in %q must come last", switchback.ErrNotValid, path)
			}
			if names[name] {
				return pattern{}, fmt.Errorf("switchback/http/router: %w: pattern %q binds %q twice", switchback.ErrNotValid, path, name)
			}

			names[name] = true
			p.captures++
			p.segs = append(p.segs, segment{kind: segWildcard, val: name})

		default:
			p.segs = append(p.segs, segment{kind: segStatic, val: part})
		}
	}

	return p, nil
}

// match binds the request path segments against the pattern,
// returning the bound params when every segment matches.
//
// allowEmptyWildcard permits a trailing wildcard to bind nothing at all,
// as "/files/" does against "/files/*path".
func (p pattern) match(parts []string, allowEmptyWildcard bool) (map[string]string, bool) {
	var params map[string]string
	if p.captures > 0 {
		params = make(map[string]string, p.captures)
	}

	for i, seg := range p.segs {
		switch seg.kind {
		case segStatic:
			if i >= len(parts) || parts[i] != seg.val {
				return nil, false
			}

		case segParam:
			if i >= len(parts) || parts[i] == "" {
				return nil, false
			}
			params[seg.val] = parts[i]

		case segWildcard:
			rest := parts[i:]
			if len(rest) == 0 && !allowEmptyWildcard {
				return nil, false
			}
			params[seg.val] = strings.Join(rest, "/")
			return params, true
		}
	}

	if len(parts) != len(p.segs) {
		return nil, false
	}

	return params, true
}

// moreSpecific reports whether p outranks q when both could match the same path.
//
// Comparison walks positions left to right: a static segment outranks a param,
// a param outranks a wildcard, and a pattern that ends before the other's
// wildcard tail outranks the tail itself. Identical shapes tie, leaving
// registration order to decide.
func (p pattern) moreSpecific(q pattern) bool {
	n := len(p.segs)
	if len(q.segs) > n {
		n = len(q.segs)
	}

	for i := 0; i < n; i++ {
		pk, qk := p.kindAt(i), q.kindAt(i)
		if pk != qk {
			return pk > qk
		}
	}

	return false
}

// kindAt returns the effective segment kind at position i.
func (p pattern) kindAt(i int) int {
	if i >= len(p.segs) {
		return segEnd
	}

	return p.segs[i].kind
}

// splitPath breaks path into segments, ignoring leading and trailing slashes
// so "/users/" and "/users" resolve alike.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}

	return strings.Split(path, "/")
}

// splitRequestPath splits the still escaped request path and decodes each
// segment exactly once, so an encoded separator cannot change the shape of the path.
func splitRequestPath(escaped string) []string {
	parts := splitPath(escaped)
	for i, part := range parts {
		if dec, err := url.PathUnescape(part); err == nil {
			parts[i] = dec
		}
	}

	return parts
}
