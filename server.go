package medidown

import (
	"context"
	"net/http"
	"time"
)

// Server wraps the HTTP server so main owns only wiring and shutdown order.
type Server struct {
	httpServer *http.Server
}

func (s *Server) NewServer(port string, handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: artifact streaming runs as long as the file is big.
	}
}

func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
