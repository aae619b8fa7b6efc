// Package api serves the scenario dispatcher over HTTP: a JSON endpoint that
// runs one RunSpec, discovery endpoints for kinds, examples and the schema,
// and a websocket that plays a precomputed timeline back event by event.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/cstopics/cstopics/sim"
	"github.com/cstopics/cstopics/sim/scenario"
)

const maxBodyBytes = 1 << 20

// Server exposes the simulators over HTTP.
type Server struct {
	seed     int64
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	server   *http.Server
}

// NewServer creates a server listening on addr. Runs that do not carry their
// own seed use seed.
func NewServer(addr string, seed int64) *Server {
	s := &Server{
		seed: seed,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/kinds", s.handleKinds)
	s.mux.HandleFunc("/api/schema", s.handleSchema)
	s.mux.HandleFunc("/api/example/", s.handleExample)
	s.mux.HandleFunc("/api/run", s.handleRun)
	s.mux.HandleFunc("/api/play", s.handlePlay)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the request router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		logrus.Infof("[api] listening on %s", s.server.Addr)
		errc <- s.server.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logrus.Infof("[api] shutting down")
		return s.server.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("[api] failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, scenario.Describe())
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	if _, err := w.Write(scenario.Schema()); err != nil {
		logrus.Warnf("[api] failed to write schema: %v", err)
	}
}

func (s *Server) handleExample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	kind := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/example/"), "/")
	run, ok := scenario.Example(kind)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown kind " + strconv.Quote(kind)})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// seedFrom returns the ?seed= query parameter, or the server default.
func (s *Server) seedFrom(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("seed")
	if raw == "" {
		return s.seed, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// decodeStrict decodes JSON into v, rejecting unknown keys.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// execute checks run against the scenario schema and executes it.
func (s *Server) execute(run scenario.RunSpec, seed int64) scenario.Outcome {
	var out scenario.Outcome
	if err := scenario.CheckRunSchema(run); err != nil {
		out = scenario.Reject(run, err)
	} else {
		out = scenario.Execute(run, sim.NewPartitionedRNG(sim.NewSimulationKey(seed)))
	}
	logrus.Infof("[api] run %s kind=%s name=%q ok=%t", out.RunID, out.Kind, out.Name, out.OK())
	return out
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	seed, err := s.seedFrom(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid seed: " + err.Error()})
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "reading body: " + err.Error()})
		return
	}
	var run scenario.RunSpec
	if err := decodeStrict(data, &run); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid run: " + err.Error()})
		return
	}

	out := s.execute(run, seed)
	status := http.StatusOK
	if !out.OK() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, out)
}
