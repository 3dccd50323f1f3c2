package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dreamware/corral/internal/cluster"
	"github.com/dreamware/corral/internal/coordinator"
	"github.com/dreamware/corral/internal/metrics"
	"github.com/dreamware/corral/internal/optimizer"
)

// server exposes the coordinator to its collaborators over HTTP: node
// lifecycle, placement, shared state, and observability. The coordination
// core itself stays transport-free; this is the daemon's outer surface.
type server struct {
	coord *coordinator.Coordinator
	log   *zap.Logger
}

func newServer(coord *coordinator.Coordinator, log *zap.Logger) *server {
	return &server{coord: coord, log: log}
}

// router wires the HTTP surface. The prometheus registry is supplied by the
// caller so tests can use an isolated one.
func (s *server) router(prom *prometheus.Registry) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(prom, promhttp.HandlerOpts{}))

	r.Route("/nodes", func(r chi.Router) {
		r.Post("/", s.handleRegister)
		r.Get("/", s.handleListNodes)
		r.Get("/{id}", s.handleGetNode)
		r.Delete("/{id}", s.handleUnregister)
		r.Post("/{id}/status", s.handleStatus)
		r.Post("/{id}/drain", s.handleDrain)
	})

	r.Post("/placements", s.handlePlacement)

	r.Route("/state/{id}", func(r chi.Router) {
		r.Put("/", s.handlePushState)
		r.Get("/", s.handlePullState)
		r.Post("/reconcile", s.handleReconcileState)
	})

	r.Get("/cluster/metrics", s.handleClusterMetrics)
	r.Post("/cluster/optimize", s.handleOptimize)
	r.Put("/cluster/thresholds", s.handleThresholds)

	return r
}

type registerRequest struct {
	Addr         string   `json:"addr"`
	Capabilities []string `json:"capabilities"`
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Addr == "" {
		http.Error(w, "addr required", http.StatusBadRequest)
		return
	}

	id, err := s.coord.RegisterNode(req.Addr, cluster.NewCapabilitySet(req.Capabilities...))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"node_id": id})
}

func (s *server) handleListNodes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Nodes []cluster.NodeRecord `json:"nodes"`
	}{Nodes: s.coord.Nodes()})
}

func (s *server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.coord.GetNode(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "node not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	s.coord.UnregisterNode(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Load   float64            `json:"load"`
	Status cluster.NodeStatus `json:"status"`
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.coord.ReportStatus(chi.URLParam(r, "id"), req.Load, req.Status); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.DrainNode(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type placementRequest struct {
	Capabilities []string `json:"capabilities"`
}

func (s *server) handlePlacement(w http.ResponseWriter, r *http.Request) {
	var req placementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	rec, err := s.coord.SelectNode(cluster.NewCapabilitySet(req.Capabilities...))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"node_id": rec.ID,
		"addr":    rec.Addr,
	})
}

type pushStateRequest struct {
	Payload []byte `json:"payload"` // base64 in JSON
	Version uint64 `json:"version"`
}

func (s *server) handlePushState(w http.ResponseWriter, r *http.Request) {
	var req pushStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.coord.PushState(chi.URLParam(r, "id"), req.Payload, req.Version); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handlePullState(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.coord.PullState(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "no state for node", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		WrittenAt time.Time `json:"written_at"`
		Checksum  string    `json:"checksum"`
		Payload   []byte    `json:"payload"`
		Version   uint64    `json:"version"`
	}{
		WrittenAt: snap.WrittenAt,
		Checksum:  snap.Checksum,
		Payload:   snap.Payload,
		Version:   snap.Version,
	})
}

type reconcileRequest struct {
	WrittenAt time.Time `json:"written_at"`
	Payload   []byte    `json:"payload"`
	Version   uint64    `json:"version"`
}

// handleReconcileState ingests a state observation carried over from another
// coordinator or a rejoining node. Unlike a push it never fails on version
// order; the response reports whether the observation won.
func (s *server) handleReconcileState(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	applied := s.coord.ReconcileState(chi.URLParam(r, "id"), req.Payload, req.Version, req.WrittenAt)
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

type thresholdsRequest struct {
	CPUHigh    float64 `json:"cpu_high"`
	CPULow     float64 `json:"cpu_low"`
	MemoryHigh float64 `json:"memory_high"`
	MemoryLow  float64 `json:"memory_low"`
}

func (s *server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	var req thresholdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	err := s.coord.SetThresholds(optimizer.Thresholds{
		CPUHigh:    req.CPUHigh,
		CPULow:     req.CPULow,
		MemoryHigh: req.MemoryHigh,
		MemoryLow:  req.MemoryLow,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleClusterMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Metrics())
}

func (s *server) handleOptimize(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Optimize())
}

// writeError maps the core's error taxonomy onto HTTP statuses.
func (s *server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cluster.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, cluster.ErrStaleVersion):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, cluster.ErrNoEligibleNode):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, cluster.ErrCapacityExceeded):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newPromRegistry builds the daemon's metric registry with the coordinator
// collector installed.
func newPromRegistry(coord *coordinator.Coordinator) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(coord.Metrics))
	return reg
}
