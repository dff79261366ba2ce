package middleware

import (
	"github.com/google/uuid"
	"github.com/xy-planning-network/switchback"
	"github.com/xy-planning-network/switchback/http/web"
)

// RequestID stashes a uuid in the *web.Context under switchback.RequestIDKey
// and echoes it back in the X-Request-Id response header.
func RequestID() Middleware {
	return func(c *web.Context) {
		id := uuid.NewString()
		c.Set(switchback.RequestIDKey, id)
		c.Response().SetHeader("X-Request-Id", id)
	}
}
