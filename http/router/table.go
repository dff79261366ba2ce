package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/xy-planning-network/switchback"
	"github.com/xy-planning-network/switchback/http/middleware"
	"github.com/xy-planning-network/switchback/http/web"
)

var knownMethods = map[string]struct{}{
	http.MethodDelete:  {},
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodOptions: {},
	http.MethodPatch:   {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodTrace:   {},
}

// A Table is a server's route set. Routes register while the Table is
// mutable, Freeze compiles and orders them, and Resolve then serves
// lookups without locks.
//
// Registration methods panic on malformed patterns, unknown methods, nil
// handlers and post-freeze calls: all programmer errors best caught at setup.
type Table struct {
	routes             []*tableRoute
	globals            []scopedMiddleware
	byMethod           map[string][]*tableRoute
	frozen             bool
	allowEmptyWildcard bool
}

// A tableRoute carries a registered Route through compilation.
type tableRoute struct {
	Route
	pat      pattern
	groupMWs []middleware.Middleware
	chain    web.Handler
}

// A scopedMiddleware applies to every route whose path it prefixes.
type scopedMiddleware struct {
	segs []string
	mw   middleware.Middleware
}

// covers reports whether the scope prefixes pat's path on a segment boundary.
// Scopes are literal: a scope segment only ever matches an equal static segment.
func (s scopedMiddleware) covers(pat pattern) bool {
	if len(s.segs) > len(pat.segs) {
		return false
	}

	for i, want := range s.segs {
		if pat.segs[i].kind != segStatic || pat.segs[i].val != want {
			return false
		}
	}

	return true
}

// A TableOptFn configures a Table under construction.
type TableOptFn func(*Table)

// RequireWildcardValues makes trailing wildcards refuse an empty remainder,
// so "/files/*path" no longer matches "/files/".
func RequireWildcardValues() TableOptFn {
	return func(t *Table) { t.allowEmptyWildcard = false }
}

// NewTable constructs an empty, mutable Table.
func NewTable(opts ...TableOptFn) *Table {
	t := &Table{allowEmptyWildcard: true}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Handle registers rt.
//
// Duplicate method and pattern pairs are legal; the earlier registration
// wins at resolution.
func (t *Table) Handle(rt Route) {
	t.handle(rt, nil)
}

func (t *Table) handle(rt Route, groupMWs []middleware.Middleware) {
	if t.frozen {
		panic(fmt.Errorf("switchback/http/router: %w: cannot register %q after freeze", switchback.ErrInvalidState, rt.Path))
	}
	if _, ok := knownMethods[rt.Method]; !ok {
		panic(fmt.Errorf("switchback/http/router: %w: unknown method %q for %q", switchback.ErrNotValid, rt.Method, rt.Path))
	}
	if rt.Handler == nil {
		panic(fmt.Errorf("switchback/http/router: %w: route %q needs a handler", switchback.ErrNotValid, rt.Path))
	}

	pat, err := compilePattern(rt.Path)
	if err != nil {
		panic(err)
	}

	t.routes = append(t.routes, &tableRoute{Route: rt, pat: pat, groupMWs: groupMWs})
}

// DELETE registers handler for DELETE requests matching path.
func (t *Table) DELETE(path string, handler web.Handler, mws ...middleware.Middleware) {
	t.Handle(Route{Path: path, Method: http.MethodDelete, Handler: handler, Middlewares: mws})
}

// GET registers handler for GET requests matching path.
//
// GET routes do not serve HEAD: register HEAD explicitly when a path
// should answer it.
func (t *Table) GET(path string, handler web.Handler, mws ...middleware.Middleware) {
	t.Handle(Route{Path: path, Method: http.MethodGet, Handler: handler, Middlewares: mws})
}

// HEAD registers handler for HEAD requests matching path.
func (t *Table) HEAD(path string, handler web.Handler, mws ...middleware.Middleware) {
	t.Handle(Route{Path: path, Method: http.MethodHead, Handler: handler, Middlewares: mws})
}

// OPTIONS registers handler for OPTIONS requests matching path.
func (t *Table) OPTIONS(path string, handler web.Handler, mws ...middleware.Middleware) {
	t.Handle(Route{Path: path, Method: http.MethodOptions, Handler: handler, Middlewares: mws})
}

// PATCH registers handler for PATCH requests matching path.
func (t *Table) PATCH(path string, handler web.Handler, mws ...middleware.Middleware) {
	t.Handle(Route{Path: path, Method: http.MethodPatch, Handler: handler, Middlewares: mws})
}

// POST registers handler for POST requests matching path.
func (t *Table) POST(path string, handler web.Handler, mws ...middleware.Middleware) {
	t.Handle(Route{Path: path, Method: http.MethodPost, Handler: handler, Middlewares: mws})
}

// PUT registers handler for PUT requests matching path.
func (t *Table) PUT(path string, handler web.Handler, mws ...middleware.Middleware) {
	t.Handle(Route{Path: path, Method: http.MethodPut, Handler: handler, Middlewares: mws})
}

// TRACE registers handler for TRACE requests matching path.
func (t *Table) TRACE(path string, handler web.Handler, mws ...middleware.Middleware) {
	t.Handle(Route{Path: path, Method: http.MethodTrace, Handler: handler, Middlewares: mws})
}

// HandleRoutes registers the set of Routes, applying mws to each ahead of
// any middleware already assigned to a Route.
func (t *Table) HandleRoutes(routes []Route, mws ...middleware.Middleware) {
	for _, rt := range routes {
		t.handle(rt, mws)
	}
}

// Group returns a Group registering routes under prefix with mws applied
// after any scoped globals and before each route's own Middlewares.
func (t *Table) Group(prefix string, mws ...middleware.Middleware) *Group {
	return &Group{t: t, prefix: joinPaths("/", prefix), mws: mws}
}

// Use applies mws to every route in the Table.
//
// Scoped and global middlewares wrap routes matched by Resolve; requests
// resolving to no route never run them.
func (t *Table) Use(mws ...middleware.Middleware) {
	t.UseOn("/", mws...)
}

// UseOn applies mws to every route whose path begins with scope on a
// segment boundary, so "/api" covers "/api/users" but not "/apiary".
func (t *Table) UseOn(scope string, mws ...middleware.Middleware) {
	if t.frozen {
		panic(fmt.Errorf("switchback/http/router: %w: cannot add middleware after freeze", switchback.ErrInvalidState))
	}

	segs := splitPath(scope)
	for _, mw := range mws {
		t.globals = append(t.globals, scopedMiddleware{segs: segs, mw: mw})
	}
}

// Freeze compiles the Table: each method's routes sort by specificity with
// registration order breaking ties, and each route's middleware chain
// composes once as scoped globals, then group middleware, then the route's
// own. Freeze is idempotent.
func (t *Table) Freeze() {
	if t.frozen {
		return
	}
	t.frozen = true

	t.byMethod = make(map[string][]*tableRoute)
	for _, rt := range t.routes {
		t.byMethod[rt.Method] = append(t.byMethod[rt.Method], rt)
	}
	for _, bucket := range t.byMethod {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].pat.moreSpecific(bucket[j].pat)
		})
	}

	for _, rt := range t.routes {
		var mws []middleware.Middleware
		for _, g := range t.globals {
			if g.covers(rt.pat) {
				mws = append(mws, g.mw)
			}
		}
		mws = append(mws, rt.groupMWs...)
		mws = append(mws, rt.Middlewares...)
		rt.chain = middleware.Chain(rt.Handler, mws...)
	}
}

// Resolve finds the route serving method and path.
//
// path is expected in its escaped form; each segment decodes exactly once
// while matching, so an encoded separator cannot split a segment. A path
// registered only under other methods returns a *MethodNotAllowedError,
// and a path registered nowhere returns an error matching
// switchback.ErrNotFound.
func (t *Table) Resolve(method, path string) (*Match, error) {
	if !t.frozen {
		return nil, fmt.Errorf("switchback/http/router: %w: resolve called before freeze", switchback.ErrInvalidState)
	}

	parts := splitRequestPath(path)
	for _, rt := range t.byMethod[method] {
		if params, ok := rt.pat.match(parts, t.allowEmptyWildcard); ok {
			return &Match{Route: &rt.Route, Params: params, chain: rt.chain}, nil
		}
	}

	var allow []string
	for m, bucket := range t.byMethod {
		if m == method {
			continue
		}
		for _, rt := range bucket {
			if _, ok := rt.pat.match(parts, t.allowEmptyWildcard); ok {
				allow = append(allow, m)
				break
			}
		}
	}
	if len(allow) > 0 {
		sort.Strings(allow)
		return nil, &MethodNotAllowedError{Allow: allow}
	}

	return nil, fmt.Errorf("switchback/http/router: %w: no route for %s %s", switchback.ErrNotFound, method, path)
}

// A Group registers routes under a shared path prefix and middleware set.
//
// Groups nest: a child group joins its prefix onto its parent's and runs
// the parent's middleware before its own.
type Group struct {
	t      *Table
	prefix string
	mws    []middleware.Middleware
}

// Group returns a child Group rooted at the joined prefix.
func (g *Group) Group(prefix string, mws ...middleware.Middleware) *Group {
	combined := append([]middleware.Middleware{}, g.mws...)
	combined = append(combined, mws...)

	return &Group{t: g.t, prefix: joinPaths(g.prefix, prefix), mws: combined}
}

// Handle registers rt under the Group's prefix and middleware.
func (g *Group) Handle(rt Route) {
	rt.Path = joinPaths(g.prefix, rt.Path)
	g.t.handle(rt, g.mws)
}

// HandleRoutes registers the set of Routes under the Group's prefix and middleware.
func (g *Group) HandleRoutes(routes []Route) {
	for _, rt := range routes {
		g.Handle(rt)
	}
}

// DELETE registers handler for DELETE requests matching path under the Group's prefix.
func (g *Group) DELETE(path string, handler web.Handler, mws ...middleware.Middleware) {
	g.Handle(Route{Path: path, Method: http.MethodDelete, Handler: handler, Middlewares: mws})
}

// GET registers handler for GET requests matching path under the Group's prefix.
func (g *Group) GET(path string, handler web.Handler, mws ...middleware.Middleware) {
	g.Handle(Route{Path: path, Method: http.MethodGet, Handler: handler, Middlewares: mws})
}

// HEAD registers handler for HEAD requests matching path under the Group's prefix.
func (g *Group) HEAD(path string, handler web.Handler, mws ...middleware.Middleware) {
	g.Handle(Route{Path: path, Method: http.MethodHead, Handler: handler, Middlewares: mws})
}

// OPTIONS registers handler for OPTIONS requests matching path under the Group's prefix.
func (g *Group) OPTIONS(path string, handler web.Handler, mws ...middleware.Middleware) {
	g.Handle(Route{Path: path, Method: http.MethodOptions, Handler: handler, Middlewares: mws})
}

// PATCH registers handler for PATCH requests matching path under the Group's prefix.
func (g *Group) PATCH(path string, handler web.Handler, mws ...middleware.Middleware) {
	g.Handle(Route{Path: path, Method: http.MethodPatch, Handler: handler, Middlewares: mws})
}

// POST registers handler for POST requests matching path under the Group's prefix.
func (g *Group) POST(path string, handler web.Handler, mws ...middleware.Middleware) {
	g.Handle(Route{Path: path, Method: http.MethodPost, Handler: handler, Middlewares: mws})
}

// PUT registers handler for PUT requests matching path under the Group's prefix.
func (g *Group) PUT(path string, handler web.Handler, mws ...middleware.Middleware) {
	g.Handle(Route{Path: path, Method: http.MethodPut, Handler: handler, Middlewares: mws})
}

// TRACE registers handler for TRACE requests matching path under the Group's prefix.
func (g *Group) TRACE(path string, handler web.Handler, mws ...middleware.Middleware) {
	g.Handle(Route{Path: path, Method: http.MethodTrace, Handler: handler, Middlewares: mws})
}

// joinPaths joins prefix and path with exactly one separator,
// normalizing away trailing slashes.
func joinPaths(prefix, path string) string {
	joined := strings.Trim(prefix, "/") + "/" + strings.Trim(path, "/")

	return "/" + strings.Trim(joined, "/")
}
