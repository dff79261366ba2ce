package router

import (
	"github.com/xy-planning-network/switchback/http/middleware"
	"github.com/xy-planning-network/switchback/http/web"
)

// A Route pairs a path pattern and HTTP method with the Handler serving it
// and any Middlewares applied to it alone.
type Route struct {
	Path        string
	Method      string
	Handler     web.Handler
	Middlewares []middleware.Middleware
}

// A Match is the outcome of resolving a request against a Table.
//
// Route is the registered route that won and Params holds the decoded
// values its pattern bound, keyed by capture name.
type Match struct {
	Route  *Route
	Params map[string]string

	chain web.Handler
}

// Handle runs the matched route's full middleware chain and handler against c.
func (m *Match) Handle(c *web.Context) {
	m.chain(c)
}
