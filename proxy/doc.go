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
Package proxy implements the WebSocket hub that sits between one or more
Bridges and one or more Executors.

# Responsibilities

  - Maintain the connection registry (proxy/registry) and expose readiness
    per application tag.
  - Route each incoming command frame to a connected executor, rejecting
    with NO_EXECUTOR when none is registered.
  - Serialize operations against the same logical document through a
    LockManager, bounded by DefaultLockWait.
  - Replay cached responses for a duplicate request id within the
    idempotency TTL instead of re-dispatching to the executor.
  - Expose Prometheus metrics (command counters, failure counters,
    latency histogram, queue depth, active lock count) alongside a legacy
    JSON /metrics endpoint.

# Frame Routing

Routing order per the registration and routing design: look up the
idempotency cache first, then check readiness, then acquire the document
lock, then forward. On response, release the lock, store the response in
the idempotency cache, and deliver it to the original bridge connection.
*/
package proxy
