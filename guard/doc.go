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
Package guard implements the three concurrency and cost guards the
orchestrator enforces before and around worker dispatch: a process-wide
FIFO mutex, a per-service circuit breaker, and an append-only budget
ledger.

# Single-Writer Mutex

Mutex serializes local-interactive and multi-server invocations, since
the desktop application is not safe for concurrent document-mutating
operations. Acquisition is FIFO and every acquire/release is logged with
timing so queuing is observable.

# Circuit Breaker

Breaker tracks consecutive failures per external service. After the
failure threshold is reached it opens and fails fast with CIRCUIT_OPEN
for the configured open duration, then allows a bounded number of
half-open probes before closing again.

# Budget Ledger

Ledger is an append-only record of billable calls with in-memory daily
and monthly aggregates. Before a billable call it projects the new total
and rejects with BUDGET_EXCEEDED if either cap would be crossed. Daily
aggregates reset at UTC midnight. Threshold alerts fire once per
boundary at 50/75/90%.
*/
package guard
