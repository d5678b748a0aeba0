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

package router

import (
	"context"
	"fmt"

	"docpipeline/job"
	"docpipeline/shared/logger"
)

// Kind names the worker family a ticket is routed to.
type Kind string

const (
	KindLocalInteractive Kind = "local-interactive"
	KindServerlessBatch  Kind = "serverless-batch"
	KindMultiServer      Kind = "multi-server"
)

// Decision is the outcome of Select: which worker kind to invoke, and
// whether that choice is mandatory (no fallback permitted on failure).
type Decision struct {
	Kind      Kind
	Mandatory bool
	Reason    string
}

// Router holds one Worker per kind and applies the decision rule.
type Router struct {
	workers map[Kind]Worker
	log     *logger.Logger
}

// New constructs a Router. serverless may be nil, in which case rule 4
// falls through to local-interactive.
func New(local, serverless, multiServer Worker, log *logger.Logger) *Router {
	workers := map[Kind]Worker{
		KindLocalInteractive: local,
		KindMultiServer:      multiServer,
	}
	if serverless != nil {
		workers[KindServerlessBatch] = serverless
	}
	return &Router{workers: workers, log: log}
}

// Select applies the worker-selection decision rule to t. First match
// wins; the rule never considers runtime worker health, only the
// ticket's declared fields.
func Select(t *job.Ticket) Decision {
	if t.WorldClass {
		return Decision{Kind: KindLocalInteractive, Mandatory: true, Reason: "worldClass"}
	}

	if t.ForcesMultiServer() {
		reason := "mcpMode"
		switch {
		case t.Style == "TFU":
			reason = "style=TFU"
		case t.MultiServerWorkflow != nil && t.MultiServerWorkflow.Workflow != "":
			reason = "multiServer.workflow=" + t.MultiServerWorkflow.Workflow
		}
		return Decision{Kind: KindMultiServer, Mandatory: true, Reason: reason}
	}

	if t.WorkerPreference == job.PreferenceLocalInteractive {
		return Decision{Kind: KindLocalInteractive, Reason: "workerPreference=local-interactive"}
	}
	if t.Quality == job.QualityHigh && t.IsPartnershipOrReportClass() {
		return Decision{Kind: KindLocalInteractive, Reason: "quality=high, partnership/report class"}
	}

	return Decision{Kind: KindServerlessBatch, Reason: "default"}
}

// Route selects a worker kind for t, resolves the fallback arm if no
// serverless worker is configured, and invokes the corresponding Worker.
// A mandatory decision's failure is returned verbatim; it is never
// retried against a different kind.
func (r *Router) Route(ctx context.Context, t *job.Ticket) (*Result, error) {
	decision := Select(t)

	kind := decision.Kind
	if kind == KindServerlessBatch {
		if _, ok := r.workers[KindServerlessBatch]; !ok {
			kind = KindLocalInteractive
			decision.Reason += ", no serverless worker configured: falling back to local-interactive"
		}
	}

	worker, ok := r.workers[kind]
	if !ok || worker == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoWorkerForKind, kind)
	}

	r.log.Info(t.Tenant, t.ID, "router: dispatching", map[string]interface{}{
		"job_id": t.ID,
		"kind":   string(kind),
		"reason": decision.Reason,
	})

	result, err := worker.Invoke(ctx, t)
	if err != nil {
		r.log.Error(t.Tenant, t.ID, "router: worker invocation failed", map[string]interface{}{
			"job_id":    t.ID,
			"kind":      string(kind),
			"mandatory": decision.Mandatory,
			"error":     err.Error(),
		})
		return nil, err
	}
	result.Kind = kind
	return result, nil
}
