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
Package orchestrator provides the Job Orchestrator - the top-level control
flow that turns a validated JobTicket into a finished, quality-gated PDF.

# Overview

The Orchestrator is the entry point for a production run. It receives a
JobTicket (from the CLI or an API caller), and drives it through:

	Parse/validate ticket → resolve effective QA threshold → L0 planning →
	select worker + acquire the single-writer mutex → invoke worker
	(guarded by the budget ledger and circuit breakers) → run the quality
	gate pipeline → persist the scorecard and JobResult → release the
	mutex → exit

# Worker Selection

The Orchestrator delegates backend selection to router.Route, which chooses
between a LocalInteractiveWorker, a ServerlessWorker, and a MultiServerWorker
based on the ticket's mode, style, and quality requirements.

# Guards

Before invoking a worker, the Orchestrator acquires the global single-writer
mutex (for local-interactive and multi-server decisions only), checks the
relevant circuit breaker, and confirms the job's budget scope has remaining
headroom. A guard rejection short-circuits the run with a structured error;
a mutex already held is released on return. The Orchestrator takes no
document-level lock.

# Quality Gate

After a worker produces a candidate artifact, the Orchestrator runs it
through the layered quality gate (qualitygate.Run). A world-class ticket is
re-gated against the authoritative pipeline even if the worker already
scored it, since local workers are permitted an optimistic self-check but
never get the final word on a world-class job.

# Usage

	result, exitCode, err := orchestrator.Run(ctx, ticket, deps)

# Exit Codes

The CLI entrypoint (cmd/orchestrate) maps the returned JobResult into a
process exit code: 0 for a passing job, 1 for a quality-gate failure, 2 for
a ticket validation error, 3 for an infrastructure error.

# Thread Safety

A single Orchestrator instance may drive multiple concurrent jobs; all
shared state (the single-writer mutex, the budget ledger, the circuit
breakers) is synchronized internally.
*/
package orchestrator
