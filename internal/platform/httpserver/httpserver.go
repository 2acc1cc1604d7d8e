package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for a low-volume back office:
// generous write timeout for report generation, tight header timeout to shed
// slow-loris connections.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
