package gateway

import (
	"context"
	"log"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"strategist/internal/gateway/middleware"
)

// BuildMux wires every endpoint onto one mux.
func (s *Server) BuildMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/process", s.handleProcess)
	mux.HandleFunc("/api/status/", s.handleStatus)
	mux.HandleFunc("/api/results/", s.handleResults)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/requests", s.handleRequests)
	mux.HandleFunc("/api/watch/", s.handleWatchSSE)
	mux.HandleFunc("/ws/watch/", s.handleWatchWS)
	return mux
}

// Serve runs the server until ctx is cancelled, then drains in-flight
// requests for up to ten seconds. h2c carries HTTP/2 without TLS so
// streaming endpoints work behind plain proxies.
func (s *Server) Serve(ctx context.Context, addr string) error {
	h := middleware.CORS(s.BuildMux())
	srv := &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(h, &http2.Server{}),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting API server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
