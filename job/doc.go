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
Package job defines the JobTicket/JobResult model, its schema validator,
and the PostgreSQL-backed history/scorecard store.

# Schema

A JobTicket requires an id, a jobType, and an output destination. Optional
fields (worldClass, mcpMode, style, quality, qa, timeouts, featureFlags,
multiServerWorkflow, workerPreference) refine routing and quality-gate
behavior. Tickets are decoded with encoding/json defaults, so unknown keys
are ignored both at the top level and inside known sub-objects; they are
not rejected.

# Effective Threshold

Normalize computes the ticket's effective QA threshold (through
Ticket.EffectiveThreshold) and stores it on the ticket: a world-class
ticket's threshold is clamped upward to at least 0.95 regardless of what
was supplied; a ticket without worldClass uses its supplied threshold or
the 0.90 default.

# Path Safety

Output destinations are checked against a configured allow-list of root
directories; traversal segments and roots outside the allow-list are
rejected with PATH_NOT_ALLOWED.
*/
package job
