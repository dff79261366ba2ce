package middleware

import (
	"strings"

	"github.com/xy-planning-network/switchback"
	"github.com/xy-planning-network/switchback/http/web"
	"github.com/xy-planning-network/switchback/logger"
)

// LogRequest logs the request's method, requested URL, and originating IP address
// using the enclosed implementation of logger.Logger.
//
// LogRequest scrubs the values for the following keys:
// - password
//
// If ls is nil, Noop returns and this middleware does nothing.
func LogRequest(ls logger.Logger) Middleware {
	if ls == nil {
		return Noop
	}

	return func(c *web.Context) {
		uri := c.Path()
		q := c.Request().URL.Query()
		switchback.Mask(q, "password")

		if query := q.Encode(); query != "" {
			uri += "?" + query
		}

		strs := []string{c.Method(), uri}
		if ip, ok := c.Value(switchback.IpAddrKey).(string); ok {
			strs = append([]string{ip}, strs...)
		}

		ls.Info(strings.Join(strs, " "), nil)
	}
}
