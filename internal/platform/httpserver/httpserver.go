package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. The surface is a read-only JSON API with
// small responses, so requests are bounded tightly; idle keep-alives get a
// longer leash for polling clients.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
