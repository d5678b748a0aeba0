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

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"docpipeline/shared/logger"
)

// pendingEntry is a one-shot channel the WebSocket receive loop resolves
// when the matching packet_response arrives.
type pendingEntry struct {
	ch      chan *Response
	class   CommandClass
	started time.Time
}

// Bridge is the HTTP-facing process that accepts job submissions and
// forwards them to the Proxy over a persistent WebSocket connection.
type Bridge struct {
	log          *logger.Logger
	application  string
	proxyWSURL   string
	proxyHTTPURL string
	httpClient   *http.Client

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	startedAt time.Time

	pendingMu sync.Mutex
	pending   map[string]*pendingEntry

	requestsTotal atomic.Int64
	errorsTotal   atomic.Int64
}

// NewBridge constructs a Bridge that will dial proxyWSURL for the command
// channel and proxyHTTPURL for readiness/preset side-calls.
func NewBridge(log *logger.Logger, application, proxyWSURL, proxyHTTPURL string) *Bridge {
	return &Bridge{
		log:          log,
		application:  application,
		proxyWSURL:   proxyWSURL,
		proxyHTTPURL: proxyHTTPURL,
		httpClient:   &http.Client{},
		pending:      make(map[string]*pendingEntry),
		startedAt:    time.Now(),
	}
}

// Connect dials the Proxy's WebSocket endpoint, registers this process
// with role "bridge", and starts the response receive loop. It is safe to
// call again after a disconnect to reconnect.
func (b *Bridge) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, b.proxyWSURL, nil)
	if err != nil {
		return fmt.Errorf("transport: dial proxy: %w", err)
	}

	reg := RegisterMessage{Application: b.application, Role: "bridge"}
	if err := conn.WriteJSON(reg); err != nil {
		conn.Close()
		return fmt.Errorf("transport: register with proxy: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.connected = true
	b.mu.Unlock()

	go b.readLoop(conn)
	b.log.Info("", "", "bridge connected to proxy", map[string]interface{}{"application": b.application})
	return nil
}

// Connected reports whether the WebSocket link to the Proxy is currently
// up.
func (b *Bridge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		var resp Response
		if err := conn.ReadJSON(&resp); err != nil {
			b.mu.Lock()
			b.connected = false
			b.conn = nil
			b.mu.Unlock()
			b.log.Warn("", "", "bridge lost connection to proxy", map[string]interface{}{"error": err.Error()})
			return
		}
		b.resolve(&resp)
	}
}

func (b *Bridge) resolve(resp *Response) {
	b.pendingMu.Lock()
	entry, ok := b.pending[resp.RequestID]
	if ok {
		delete(b.pending, resp.RequestID)
	}
	b.pendingMu.Unlock()

	if !ok {
		b.log.Warn("", resp.RequestID, "unmatched packet_response discarded", nil)
		return
	}
	entry.ch <- resp
}

// checkReady issues a non-blocking readiness query to the Proxy with a
// short abort timeout, per the pre-flight algorithm.
func (b *Bridge) checkReady(ctx context.Context, application string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, ReadyCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.proxyHTTPURL+"/ready?application="+application, nil)
	if err != nil {
		return false, err
	}
	res, err := b.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	var body struct {
		Ready bool `json:"ready"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return false, err
	}
	return body.Ready, nil
}

// SubmitCommand runs the pre-flight algorithm and, if it passes, forwards
// command as a CommandPacket and blocks for the command-class timeout.
func (b *Bridge) SubmitCommand(ctx context.Context, application, command string, args map[string]interface{}) (*Response, *Error) {
	b.requestsTotal.Add(1)

	if !b.Connected() {
		b.errorsTotal.Add(1)
		return nil, NewError(CodeBridgeDisconnected, "not connected to proxy", "retry shortly; the bridge is reconnecting")
	}

	ready, err := b.checkReady(ctx, application)
	if err != nil {
		b.errorsTotal.Add(1)
		return nil, NewError(CodeProxyDown, "readiness check to proxy failed: "+err.Error(), "check the proxy process")
	}
	if !ready {
		b.errorsTotal.Add(1)
		return nil, NewError(CodeNoExecutor, "no executor registered for application "+application, "start an executor for "+application+" and retry")
	}

	requestID := uuid.NewString()
	class := ClassOf(command)
	timeout := TimeoutFor(command)

	entry := &pendingEntry{ch: make(chan *Response, 1), class: class, started: time.Now()}
	b.pendingMu.Lock()
	b.pending[requestID] = entry
	b.pendingMu.Unlock()

	packet := CommandPacket{Application: application, RequestID: requestID, Command: command, Args: args}

	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn == nil {
		b.clearPending(requestID)
		b.errorsTotal.Add(1)
		return nil, NewError(CodeBridgeDisconnected, "not connected to proxy", "retry shortly")
	}
	if err := conn.WriteJSON(map[string]interface{}{"type": "command_packet", "application": application, "command": packet}); err != nil {
		b.clearPending(requestID)
		b.errorsTotal.Add(1)
		return nil, NewError(CodeProxyDown, "failed writing command frame: "+err.Error(), "check the proxy connection")
	}

	select {
	case resp := <-entry.ch:
		return resp, nil
	case <-time.After(timeout):
		b.clearPending(requestID)
		b.errorsTotal.Add(1)
		return nil, NewError(CodeCommandTimeout, fmt.Sprintf("command class %s timed out after %s", class, timeout), "")
	case <-ctx.Done():
		b.clearPending(requestID)
		return nil, NewError(CodeInternalError, ctx.Err().Error(), "")
	}
}

func (b *Bridge) clearPending(requestID string) {
	b.pendingMu.Lock()
	delete(b.pending, requestID)
	b.pendingMu.Unlock()
}

// Router builds the bridge's HTTP surface: POST /api/jobs, GET /health,
// GET /ready, GET /api/presets.
func (b *Bridge) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/jobs", b.handleJobs).Methods(http.MethodPost)
	r.HandleFunc("/health", b.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", b.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/api/presets", b.handlePresets).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(r)
}

func (b *Bridge) handleJobs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var packet CommandPacket
	if err := json.NewDecoder(r.Body).Decode(&packet); err != nil {
		writeEnvelope(w, NewError(CodeValidationError, "request body could not be parsed: "+err.Error(), "send a valid CommandPacket JSON body"))
		return
	}
	if packet.Application == "" {
		packet.Application = b.application
	}

	resp, transportErr := b.SubmitCommand(r.Context(), packet.Application, packet.Command, packet.Args)
	if transportErr != nil {
		writeEnvelope(w, transportErr)
		return
	}
	if resp.Err != nil {
		writeEnvelope(w, resp.Err)
		return
	}

	env := Envelope{OK: true, Status: resp.Status, Output: resp.Output}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(env)
}

func writeEnvelope(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code.HTTPStatus())
	json.NewEncoder(w).Encode(Envelope{OK: false, Status: "error", Err: e})
}

func (b *Bridge) handleHealth(w http.ResponseWriter, r *http.Request) {
	connected := b.Connected()
	status := "ok"
	if !connected {
		status = "disconnected"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         status,
		"connected":      connected,
		"uptime_seconds": int(time.Since(b.startedAt).Seconds()),
		"requests_total": b.requestsTotal.Load(),
		"errors_total":   b.errorsTotal.Load(),
	})
}

func (b *Bridge) handleReady(w http.ResponseWriter, r *http.Request) {
	application := r.URL.Query().Get("application")
	if application == "" {
		application = b.application
	}
	ready, err := b.checkReady(r.Context(), application)
	w.Header().Set("Content-Type", "application/json")
	if err != nil || !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ready":  false,
			"code":   string(CodeNoExecutor),
			"action": "start an executor for " + application + " and retry",
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"ready": true})
}

func (b *Bridge) handlePresets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), PresetsTimeout)
	defer cancel()

	resp, transportErr := b.SubmitCommand(ctx, b.application, "list_presets", nil)
	w.Header().Set("Content-Type", "application/json")
	if transportErr != nil || resp.Err != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"presets": FallbackPresets})
		return
	}

	presets, ok := resp.Output["presets"].([]interface{})
	if !ok || len(presets) == 0 {
		json.NewEncoder(w).Encode(map[string]interface{}{"presets": FallbackPresets})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"presets": presets})
}
