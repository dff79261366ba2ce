package middleware

import (
	"github.com/xy-planning-network/switchback/http/web"
)

// A Middleware runs work around handling a request before the next Middleware in a chain.
//
// A Middleware short-circuits the rest of its chain by writing a response
// and calling [*web.Context.Abort].
type Middleware func(*web.Context)

// Noop does nothing, letting the chain continue.
//
// Constructors return Noop when their configuration disables them.
var Noop Middleware = func(*web.Context) {}

// Chain glues the set of middlewares to the handler.
//
// The returned handler runs each middleware in order and then handler itself.
// Before each step, it checks whether the *web.Context was aborted
// or its deadline passed; if so, nothing further runs.
func Chain(handler web.Handler, mws ...Middleware) web.Handler {
	return func(c *web.Context) {
		for _, mw := range mws {
			if c.Aborted() || c.Context().Err() != nil {
				return
			}

			mw(c)
		}

		if c.Aborted() || c.Context().Err() != nil {
			return
		}

		handler(c)
	}
}
