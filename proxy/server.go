// Copyright 2025 The Docpipeline Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package proxy

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docpipeline/proxy/registry"
	"docpipeline/shared/logger"
)

// Server wires the Hub's WebSocket endpoint together with the Proxy's
// plain HTTP surface: readiness, executor snapshot, and metrics.
type Server struct {
	log      *logger.Logger
	registry *registry.Registry
	hub      *Hub
}

// NewServer constructs a Server over hub and reg.
func NewServer(log *logger.Logger, reg *registry.Registry, hub *Hub) *Server {
	return &Server{log: log, registry: reg, hub: hub}
}

// Router builds the proxy's HTTP surface.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.hub.ServeWS)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/api/executors", s.handleExecutors).Methods(http.MethodGet)
	r.Handle("/prometheus", promhttp.Handler())
	r.HandleFunc("/metrics", s.handleMetricsJSON).Methods(http.MethodGet)
	return r
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	application := r.URL.Query().Get("application")

	ready, executors := s.registry.Ready(application)
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ready":  false,
			"code":   "NO_EXECUTOR",
			"action": "register an executor for " + application,
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"ready": true, "executors": executors})
}

func (s *Server) handleExecutors(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"executors": s.registry.Snapshot()})
}

func (s *Server) handleMetricsJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"active_locks": s.hub.locks.ActiveCount(),
	})
}
