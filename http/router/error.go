package router

import (
	"fmt"
	"strings"

	"github.com/xy-planning-network/switchback"
)

// A MethodNotAllowedError reports a path that is registered, just not under
// the requested method.
type MethodNotAllowedError struct {
	// Allow lists the methods the path is registered under,
	// sorted and ready for an Allow response header.
	Allow []string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("switchback/http/router: %s: allowed methods %s", switchback.ErrMethodNotAllowed, strings.Join(e.Allow, ", "))
}

func (e *MethodNotAllowedError) Unwrap() error {
	return switchback.ErrMethodNotAllowed
}
