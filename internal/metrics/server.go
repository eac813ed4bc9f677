package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// HealthInfo is the payload of the /health endpoint. Extra carries
// component snapshots such as rate limiter state.
type HealthInfo struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// HealthFunc supplies component snapshots for /health.
type HealthFunc func() map[string]interface{}

// Server exposes /metrics and /health.
type Server struct {
	http *http.Server
}

func NewServer(addr string, registry *Registry, health HealthFunc) *Server {
	router := mux.NewRouter()
	router.Handle("/metrics", registry.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		info := HealthInfo{Status: "ok", Timestamp: time.Now().UTC()}
		if health != nil {
			info.Extra = health()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(info); err != nil {
			log.Warn().Err(err).Msg("failed to write health response")
		}
	}).Methods(http.MethodGet)

	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.http.Addr).Msg("metrics server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
