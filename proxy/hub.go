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
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"docpipeline/proxy/registry"
	"docpipeline/shared/logger"
	"docpipeline/transport"
)

// wireFrame is the minimal envelope used to dispatch an incoming WS
// message to the right handler before decoding its payload.
type wireFrame struct {
	Type        string                   `json:"type"`
	Application string                   `json:"application"`
	Role        string                   `json:"role"`
	Command     transport.CommandPacket  `json:"command"`
	Response    transport.Response       `json:"response"`
}

type wsConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type pendingOp struct {
	sourceConnID string
	release      func()
	started      time.Time
	command      string
}

// Hub is the Proxy's WebSocket server: it multiplexes between Bridge(s)
// and Executor(s), enforces readiness before routing, and serializes
// per-document operations through a LockManager.
type Hub struct {
	log      *logger.Logger
	registry *registry.Registry
	locks    *LockManager
	idem     *IdempotencyCache
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*wsConn

	pendingMu sync.Mutex
	pending   map[string]*pendingOp
}

// NewHub constructs a Hub backed by reg for readiness tracking, locks for
// document serialization, and idem for idempotent replay.
func NewHub(log *logger.Logger, reg *registry.Registry, locks *LockManager, idem *IdempotencyCache) *Hub {
	return &Hub{
		log:      log,
		registry: reg,
		locks:    locks,
		idem:     idem,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		conns:    make(map[string]*wsConn),
		pending:  make(map[string]*pendingOp),
	}
}

// ServeWS upgrades an HTTP connection and runs its receive loop until it
// disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("", "", "websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	connectionID := uuid.NewString()
	wc := &wsConn{id: connectionID, conn: conn}

	h.mu.Lock()
	h.conns[connectionID] = wc
	h.mu.Unlock()

	h.registry.Connect(connectionID)
	defer h.disconnect(connectionID)

	for {
		var frame wireFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		h.handleFrame(connectionID, &frame)
	}
}

func (h *Hub) disconnect(connectionID string) {
	h.registry.Disconnect(connectionID)
	h.mu.Lock()
	delete(h.conns, connectionID)
	h.mu.Unlock()
}

func (h *Hub) handleFrame(connectionID string, frame *wireFrame) {
	switch frame.Type {
	case "register":
		role := registry.Role(frame.Role)
		h.registry.Register(connectionID, frame.Application, role)
		h.send(connectionID, map[string]interface{}{
			"type": "registration_response",
			"ok":   true,
			"message": "registered as " + frame.Role + " for " + frame.Application,
		})
	case "command_packet":
		go h.route(connectionID, frame.Application, frame.Command)
	case "packet_response":
		h.deliver(&frame.Response)
	default:
		h.log.Warn("", "", "unknown frame type received by proxy", map[string]interface{}{"type": frame.Type})
	}
}

func (h *Hub) send(connectionID string, v interface{}) {
	h.mu.Lock()
	wc, ok := h.conns[connectionID]
	h.mu.Unlock()
	if !ok {
		return
	}
	if err := wc.writeJSON(v); err != nil {
		h.log.Warn("", "", "failed writing to connection", map[string]interface{}{"error": err.Error()})
	}
}

// route implements the §4.2 routing algorithm: replay from the
// idempotency cache on a hit, else reject with NO_EXECUTOR, derive the
// document key, acquire its lock, and forward to a connected executor.
func (h *Hub) route(sourceConnID, application string, cmd transport.CommandPacket) {
	start := time.Now()
	commandsTotal.WithLabelValues(cmd.Command).Inc()
	defer func() { commandLatency.WithLabelValues(cmd.Command).Observe(time.Since(start).Seconds()) }()

	if cached, ok := h.idem.Get(context.Background(), cmd.RequestID); ok {
		h.log.Info("", cmd.RequestID, "idempotent replay", map[string]interface{}{"command": cmd.Command})
		var resp transport.Response
		if json.Unmarshal(cached, &resp) == nil {
			h.send(sourceConnID, map[string]interface{}{"type": "packet_response", "response": resp})
			return
		}
	}

	ready, executors := h.registry.Ready(application)
	if !ready {
		commandFailuresTotal.WithLabelValues(string(transport.CodeNoExecutor)).Inc()
		h.replyError(sourceConnID, cmd.RequestID, transport.NewError(transport.CodeNoExecutor, "no executor registered for "+application, "start an executor for "+application))
		return
	}

	key := DocumentKey(application, cmd.Args)
	release, err := h.locks.Acquire(context.Background(), key, cmd.RequestID, DefaultLockWait)
	if err != nil {
		commandFailuresTotal.WithLabelValues("DOCUMENT_LOCKED").Inc()
		h.replyError(sourceConnID, cmd.RequestID, transport.NewError("DOCUMENT_LOCKED", "document lock acquisition timed out for "+key, "retry once the current operation completes"))
		return
	}
	activeLocks.Set(float64(h.locks.ActiveCount()))

	h.pendingMu.Lock()
	h.pending[cmd.RequestID] = &pendingOp{sourceConnID: sourceConnID, release: release, started: start, command: cmd.Command}
	h.pendingMu.Unlock()

	executorConnID := executors[0].ConnectionID
	h.send(executorConnID, map[string]interface{}{"type": "command_packet", "application": application, "command": cmd})
}

// deliver routes a packet_response from an executor back to the bridge
// that submitted the matching request, releasing the document lock and
// recording the response for idempotent replay.
func (h *Hub) deliver(resp *transport.Response) {
	h.pendingMu.Lock()
	op, ok := h.pending[resp.RequestID]
	if ok {
		delete(h.pending, resp.RequestID)
	}
	h.pendingMu.Unlock()

	if !ok {
		h.log.Warn("", resp.RequestID, "unmatched packet_response at proxy", nil)
		return
	}

	op.release()
	activeLocks.Set(float64(h.locks.ActiveCount()))

	h.idem.Put(context.Background(), resp.RequestID, resp)
	h.send(op.sourceConnID, map[string]interface{}{"type": "packet_response", "response": resp})
}

func (h *Hub) replyError(connectionID, requestID string, err *transport.Error) {
	resp := transport.Response{RequestID: requestID, OK: false, Status: "error", Err: err}
	h.send(connectionID, map[string]interface{}{"type": "packet_response", "response": resp})
}
