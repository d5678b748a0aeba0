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
Package router selects the worker kind for a job ticket and invokes it.

# Decision Rule

Select applies the following rule, first match wins:

 1. worldClass true routes to local-interactive, still on the hardened
    world-class gate (enforced downstream by the quality gate, not here).
 2. mcpMode true, style "TFU", or a non-empty multi-server workflow name
    routes to multi-server orchestration. The TFU path is mandatory: its
    failure must not fall back to another worker kind.
 3. workerPreference local-interactive, or quality high combined with a
    partnership/report class jobType, routes to local-interactive.
 4. Otherwise routes to serverless-batch if configured, else
    local-interactive.

# Workers

Worker is the uniform contract Local, Serverless, and MultiServer workers
implement. MultiServer fans a declared workflow out across the kept
connector backends (postgres, redis, http, s3) using golang.org/x/sync's
errgroup, mirroring how a Multi-Server Orchestration Worker invokes several
external tool servers concurrently and requires every step to succeed.

# No Fallback

A failed world-class or TFU job is never retried on a different worker
kind. Select returns one Decision and Route invokes only the worker for
that decision's kind; a failed invocation is returned to Route's caller.
*/
package router
