/*

Package main provides a toy example use of the switchback stack,
focusing on the basics of:

(1) building a route Table out of static, param, and wildcard patterns;
(2) grouping routes under shared prefixes and middleware;
(3) responding through the buffered web.Response;
(4) and running the Table inside the protective server envelope.

Run it, then try:

	curl localhost:3000/
	curl localhost:3000/trailheads/42?units=km
	curl localhost:3000/maps/topo/north-rim.pdf
	curl -X POST localhost:3000/api/v1/conditions -d '{"summit":"icy"}'
	curl localhost:3000/admin/reports
	curl localhost:3000/boom
	curl localhost:3000/slow
*/
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xy-planning-network/switchback"
	"github.com/xy-planning-network/switchback/http/middleware"
	"github.com/xy-planning-network/switchback/http/router"
	"github.com/xy-planning-network/switchback/http/web"
	"github.com/xy-planning-network/switchback/logger"
	"github.com/xy-planning-network/switchback/server"
)

// Handler shares the initialized dependencies across all example handlers.
type Handler struct {
	ls logger.Logger
}

func (h *Handler) root(c *web.Context) {
	c.Response().HTML("<h1>switchback</h1><p>an embeddable web server core</p>")
}

// trailhead shows param binding and last-value-wins query lookups.
func (h *Handler) trailhead(c *web.Context) {
	if err := c.Response().JSON(map[string]string{
		"id":    c.Param("id"),
		"units": c.Query("units"),
	}); err != nil {
		h.ls.Error("failed rendering trailhead", &logger.LogContext{Error: err})
	}
}

// mapFile shows a trailing wildcard binding the rest of the path.
func (h *Handler) mapFile(c *web.Context) {
	c.Response().Text("would serve " + c.Param("path"))
}

// reportConditions shows bounded body reads; over the server's body cap the
// dispatcher answers 413 before this handler ever runs.
func (h *Handler) reportConditions(c *web.Context) {
	var report map[string]string
	if err := c.BindJSON(&report); err != nil {
		c.Response().Status(http.StatusBadRequest).Text(err.Error())
		return
	}

	c.Response().Status(http.StatusCreated)
	if err := c.Response().JSON(report); err != nil {
		h.ls.Error("failed rendering conditions", &logger.LogContext{Error: err})
	}
}

// boom shows panic isolation: the client receives a generic 500 and the
// server keeps serving.
func (h *Handler) boom(_ *web.Context) {
	panic("lost the trail")
}

// slow outruns the request timeout unless it honors cancellation.
func (h *Handler) slow(c *web.Context) {
	select {
	case <-time.After(10 * time.Second):
		c.Response().Text("finally")
	case <-c.Context().Done():
		// the deadline passed; anything written now is discarded
	}
}

func main() {
	ls := logger.NewLogger()
	h := &Handler{ls: ls}

	tbl := router.NewTable()

	// every matched route runs the stock stack first.
	vs := middleware.NewVisitors()
	tbl.Use(
		middleware.RateLimit(vs),
		middleware.InjectIPAddress(),
		middleware.RequestID(),
		middleware.LogRequest(ls),
		middleware.SecureHeaders(switchback.Development),
	)

	tbl.GET("/", h.root)
	tbl.GET("/trailheads/:id", h.trailhead)
	tbl.GET("/maps/*path", h.mapFile)
	tbl.GET("/boom", h.boom)
	tbl.GET("/slow", h.slow)

	api := tbl.Group("/api/v1", middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{"*"},
	}))
	api.POST("/conditions", h.reportConditions)
	api.OPTIONS("/conditions", func(c *web.Context) { c.Response().Status(http.StatusNoContent) })

	// the admin group refuses requests without a valid bearer token.
	admin := tbl.Group("/admin", middleware.Authorize([]byte("example-signing-key")))
	admin.GET("/reports", func(c *web.Context) {
		claims := c.Value(switchback.ClaimsKey)
		if err := c.Response().JSON(map[string]any{"claims": claims}); err != nil {
			ls.Error("failed rendering reports", &logger.LogContext{Error: err})
		}
	})

	srv, err := server.New(
		tbl,
		server.WithLogger(ls),
		server.WithRequestTimeout(2*time.Second),
		server.WithMaxBodyBytes(64<<10),
		server.WithMetricsEndpoint("/metrics"),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	// serve until a termination signal arrives, then drain.
	if err := srv.Serve(); err != nil {
		fmt.Println(err)
	}
}
