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

import "time"

// CommandPacket is the transport frame carried between the Bridge and the
// Proxy, and from the Proxy to a registered Executor.
type CommandPacket struct {
	Application string                 `json:"application"`
	RequestID   string                 `json:"requestId"`
	Command     string                 `json:"command"`
	Args        map[string]interface{} `json:"args,omitempty"`
}

// CommandClass buckets command names into a shared timeout policy.
type CommandClass string

const (
	ClassSimpleCreate  CommandClass = "simple_create"
	ClassTextPlacement CommandClass = "text_placement"
	ClassPDFExport     CommandClass = "pdf_export"
	ClassScreenCapture CommandClass = "screen_capture"
	ClassPing          CommandClass = "ping"
	ClassDefault       CommandClass = "default"
)

// classTimeouts is the canonical per-command-class timeout table from the
// transport's pre-flight design: simple creation ops are fast, PDF export
// is by far the slowest, everything unrecognized falls to the default.
var classTimeouts = map[CommandClass]time.Duration{
	ClassSimpleCreate:  15 * time.Second,
	ClassTextPlacement: 20 * time.Second,
	ClassPDFExport:     120 * time.Second,
	ClassScreenCapture: 30 * time.Second,
	ClassPing:          5 * time.Second,
	ClassDefault:       30 * time.Second,
}

// commandNameClass maps a command name to its timeout class. Unknown
// commands fall back to ClassDefault rather than failing closed here;
// UNKNOWN_COMMAND is the executor's call to make, not the transport's.
var commandNameClass = map[string]CommandClass{
	"create_document":  ClassSimpleCreate,
	"create_textframe":  ClassSimpleCreate,
	"create_page":       ClassSimpleCreate,
	"place_text":        ClassTextPlacement,
	"update_text":       ClassTextPlacement,
	"export_pdf":        ClassPDFExport,
	"capture_screen":    ClassScreenCapture,
	"ping":              ClassPing,
}

// TimeoutFor returns the configured timeout for command, falling back to
// the default bucket for any command this table does not recognize.
func TimeoutFor(command string) time.Duration {
	class := commandNameClass[command]
	if class == "" {
		class = ClassDefault
	}
	if d, ok := classTimeouts[class]; ok {
		return d
	}
	return classTimeouts[ClassDefault]
}

// ClassOf returns the CommandClass for command, defaulting to
// ClassDefault.
func ClassOf(command string) CommandClass {
	if class, ok := commandNameClass[command]; ok {
		return class
	}
	return ClassDefault
}

// Response is what the Proxy emits back to the Bridge as packet_response,
// and what the Bridge renders to the original HTTP caller.
type Response struct {
	RequestID string                 `json:"requestId"`
	OK        bool                   `json:"ok"`
	Status    string                 `json:"status"`
	Output    map[string]interface{} `json:"output,omitempty"`
	Err       *Error                 `json:"error,omitempty"`
}

// RegisterMessage is the WebSocket client->server frame an executor or
// bridge sends to announce itself to the proxy.
type RegisterMessage struct {
	Application string `json:"application"`
	Role        string `json:"role"`
}

// RegistrationResponse acknowledges a RegisterMessage.
type RegistrationResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Envelope is the HTTP response body for POST /api/jobs.
type Envelope struct {
	OK       bool                   `json:"ok"`
	Status   string                 `json:"status"`
	Output   map[string]interface{} `json:"output,omitempty"`
	Response map[string]interface{} `json:"response,omitempty"`
	Err      *Error                 `json:"error,omitempty"`
}

// MaxBodyBytes caps the accepted POST /api/jobs body size.
const MaxBodyBytes = 50 * 1024 * 1024

// ReadyCheckTimeout bounds the bridge's readiness pre-flight call to the proxy.
const ReadyCheckTimeout = 2 * time.Second

// PresetsTimeout bounds the GET /api/presets proxy round trip.
const PresetsTimeout = 5 * time.Second

// FallbackPresets is returned by GET /api/presets when the proxy round
// trip fails; it must contain at least one entry.
var FallbackPresets = []string{"default"}
