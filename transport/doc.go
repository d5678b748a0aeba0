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

/*
Package transport implements the HTTP-to-WebSocket bridge that sits between
job submitters and the Proxy.

# Overview

The Bridge exposes a synchronous HTTP API (POST /api/jobs, GET /health,
GET /ready, GET /api/presets) and multiplexes accepted commands over a
single persistent WebSocket connection to the Proxy. Responses are
correlated back to the waiting HTTP caller by request id.

# Pre-flight

Before any command is forwarded, the Bridge runs a three-step check:
confirm the WebSocket link to the Proxy is up, confirm at least one
executor is registered and ready for the target application, then emit
the command frame. A failure at either of the first two steps short-
circuits the call without ever reaching the Proxy's command routing.

# Timeouts

Each command name maps to a timeout bucket (command class). Expiry
unregisters the pending response listener and returns COMMAND_TIMEOUT.

# Thread Safety

Bridge is safe for concurrent use; the pending-response map is the single
structure shared between the HTTP handlers and the WebSocket receive loop,
and it is guarded by its own mutex.
*/
package transport
