// Package server serves the generated JSON artifacts over HTTP for local
// inspection of the static site data.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Server serves the output directory.
type Server struct {
	dir string
	mux *http.ServeMux
}

// New creates a server rooted at the given output directory.
func New(dir string) *Server {
	s := &Server{dir: dir, mux: http.NewServeMux()}
	s.mux.Handle("/", http.FileServer(http.Dir(dir)))
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// Serve starts serving dir on the given port and blocks until the context
// is canceled or the listener fails.
func Serve(ctx context.Context, dir string, port int) error {
	s := New(dir)
	srv := &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", port),
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
