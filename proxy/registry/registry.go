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

package registry

import (
	"sync"
	"time"
)

// State is a connection's position in the registration state machine.
type State string

const (
	StateUnregistered State = "unregistered"
	StateRegistered    State = "registered"
	StateGone          State = "gone"
)

// Role distinguishes an executor (performs commands inside the design
// application) from a bridge (the HTTP-facing relay). Only executors
// contribute to readiness.
type Role string

const (
	RoleExecutor Role = "executor"
	RoleBridge   Role = "bridge"
)

// Registration is a transient record of one WebSocket connection known to
// the Proxy.
type Registration struct {
	ConnectionID string    `json:"connectionId"`
	Application  string    `json:"application"`
	Role         Role      `json:"role"`
	State        State     `json:"state"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

// Registry is the Proxy's connection table, keyed by connection id.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Registration
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{conns: make(map[string]*Registration)}
}

// Connect records a new, as-yet-unregistered connection.
func (r *Registry) Connect(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connectionID] = &Registration{
		ConnectionID: connectionID,
		State:        StateUnregistered,
		ConnectedAt:  time.Now(),
	}
}

// Register transitions connectionID to "registered" under application and
// role. It returns false if the connection is not known (e.g. it already
// went away).
func (r *Registry) Register(connectionID, application string, role Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.conns[connectionID]
	if !ok {
		return false
	}
	reg.Application = application
	reg.Role = role
	reg.State = StateRegistered
	return true
}

// Disconnect transitions connectionID to "gone" and removes it from the
// readiness count.
func (r *Registry) Disconnect(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connectionID)
}

// Ready reports whether at least one executor is registered for
// application, and returns immutable snapshots of those executors.
func (r *Registry) Ready(application string) (bool, []Registration) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var executors []Registration
	for _, reg := range r.conns {
		if reg.State == StateRegistered && reg.Role == RoleExecutor && reg.Application == application {
			executors = append(executors, *reg)
		}
	}
	return len(executors) > 0, executors
}

// Snapshot returns a copy of every known registration, for the
// GET /api/executors diagnostic endpoint.
func (r *Registry) Snapshot() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Registration, 0, len(r.conns))
	for _, reg := range r.conns {
		out = append(out, *reg)
	}
	return out
}
