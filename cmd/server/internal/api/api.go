package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/store"
)

// Server exposes the pull-style REST surface: pure reads of the snapshot
// store. Bootstrap guarantees a valid snapshot exists before the listener
// starts, so these endpoints never answer "no data".
type Server struct {
	store  *store.SnapshotStore
	logger *zap.Logger
}

func NewServer(st *store.SnapshotStore, logger *zap.Logger) *Server {
	return &Server{store: st, logger: logger}
}

// Routes mounts the REST endpoints and the websocket upgrade handler.
func (s *Server) Routes(wsHandler http.HandlerFunc) *mux.Router {
	router := mux.NewRouter()
	router.Use(s.corsMiddleware)

	router.HandleFunc("/health", s.getHealth).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/market", s.getMarket).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/stocks", s.getStocks).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/indices", s.getIndices).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/ws", wsHandler)

	return router
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) getMarket(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.store.Read())
}

func (s *Server) getStocks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.store.Read().Stocks)
}

func (s *Server) getIndices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.store.Read().Indices)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("JSON encoding error", zap.Error(err))
	}
}

// The dashboard is served from a different origin during development.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
