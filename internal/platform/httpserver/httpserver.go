// Package httpserver constructs the command-surface listener.
package httpserver

import (
	"net/http"
	"time"
)

// New returns the listener serving the court's command surface. The
// read-header timeout bounds how long a client may stall on the request
// line and headers.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
