package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for this project. The write
// timeout leaves room for a lookup whose two methods each hit the fetch timeout.
func New(addr string, handler http.Handler, fetchTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      3*fetchTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
