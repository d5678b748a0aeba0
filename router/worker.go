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
	"time"

	"golang.org/x/sync/errgroup"

	"docpipeline/connectors/base"
	"docpipeline/job"
	"docpipeline/transport"
)

// Result is a worker's report of one job invocation, prior to quality
// gating. The orchestrator turns this, plus the gate's verdict, into a
// job.Result.
type Result struct {
	Kind          Kind
	ArtifactPaths []string
	ReportedScore float64
	Duration      time.Duration
	Details       map[string]interface{}
}

// Worker is the uniform contract every routed worker kind implements.
type Worker interface {
	Invoke(ctx context.Context, t *job.Ticket) (*Result, error)
}

// LocalInteractiveWorker drives the desktop application through the
// Command Transport bridge. It is the only worker kind that can satisfy
// a world-class ticket, since the bridge is what talks to the
// interactive session capable of the hardened re-gate.
type LocalInteractiveWorker struct {
	Bridge *transport.Bridge
}

// NewLocalInteractiveWorker wraps an already-configured Bridge.
func NewLocalInteractiveWorker(bridge *transport.Bridge) *LocalInteractiveWorker {
	return &LocalInteractiveWorker{Bridge: bridge}
}

func (w *LocalInteractiveWorker) Invoke(ctx context.Context, t *job.Ticket) (*Result, error) {
	start := time.Now()
	resp, transportErr := w.Bridge.SubmitCommand(ctx, t.TargetApplication, "export_pdf", ticketPayload(t))
	if transportErr != nil {
		return nil, fmt.Errorf("router: local-interactive worker: %s", transportErr.Message)
	}
	if resp.Err != nil {
		return nil, fmt.Errorf("router: local-interactive worker: %s", resp.Err.Message)
	}

	var reportedScore float64
	if v, ok := resp.Output["reportedScore"].(float64); ok {
		reportedScore = v
	}
	return &Result{
		Kind:          KindLocalInteractive,
		ArtifactPaths: []string{t.ResolvedPath},
		ReportedScore: reportedScore,
		Duration:      time.Since(start),
		Details:       resp.Output,
	}, nil
}

// ServerlessWorker invokes a remote batch PDF generation service over
// the kept HTTP connector. It never takes the global serialization
// mutex: batch jobs are assumed independent of the desktop session.
type ServerlessWorker struct {
	Connector base.Connector
	Endpoint  string
}

// NewServerlessWorker wraps an http connector pointed at endpoint.
func NewServerlessWorker(conn base.Connector, endpoint string) *ServerlessWorker {
	return &ServerlessWorker{Connector: conn, Endpoint: endpoint}
}

func (w *ServerlessWorker) Invoke(ctx context.Context, t *job.Ticket) (*Result, error) {
	start := time.Now()
	res, err := w.Connector.Execute(ctx, &base.Command{
		Action:    "generate_document",
		Statement: w.Endpoint,
		Parameters: map[string]interface{}{
			"jobId":    t.ID,
			"jobType":  string(t.JobType),
			"output":   t.ResolvedPath,
			"cloudKey": t.Output.CloudKey,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("router: serverless worker: %w", err)
	}
	if !res.Success {
		return nil, fmt.Errorf("router: serverless worker: %s", res.Message)
	}
	return &Result{
		Kind:          KindServerlessBatch,
		ArtifactPaths: []string{t.ResolvedPath},
		Duration:      time.Since(start),
		Details:       res.Metadata,
	}, nil
}

// WorkflowStep is one named step of a multi-server workflow, bound to a
// connector backend.
type WorkflowStep struct {
	Name      string
	Connector base.Connector
	Command   *base.Command
}

// MultiServerWorker fans a declared workflow out across the connector
// backends registered for each step, running the steps concurrently and
// requiring all of them to succeed. This is the forced, no-fallback path
// for mcpMode and TFU-style tickets.
type MultiServerWorker struct {
	Workflows map[string][]WorkflowStep
}

// NewMultiServerWorker constructs a worker from a name → steps table.
func NewMultiServerWorker(workflows map[string][]WorkflowStep) *MultiServerWorker {
	return &MultiServerWorker{Workflows: workflows}
}

func (w *MultiServerWorker) Invoke(ctx context.Context, t *job.Ticket) (*Result, error) {
	name := ""
	if t.MultiServerWorkflow != nil {
		name = t.MultiServerWorkflow.Workflow
	}
	steps, ok := w.Workflows[name]
	if !ok || len(steps) == 0 {
		return nil, fmt.Errorf("router: multi-server worker: unknown workflow %q", name)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	results := make([]*base.CommandResult, len(steps))

	for i, step := range steps {
		i, step := i, step
		g.Go(func() error {
			res, err := step.Connector.Execute(gctx, step.Command)
			if err != nil {
				return fmt.Errorf("%w: step %q: %v", ErrMultiServerStepFailed, step.Name, err)
			}
			if !res.Success {
				return fmt.Errorf("%w: step %q: %s", ErrMultiServerStepFailed, step.Name, res.Message)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	details := make(map[string]interface{}, len(steps))
	for i, step := range steps {
		details[step.Name] = results[i].Metadata
	}

	return &Result{
		Kind:          KindMultiServer,
		ArtifactPaths: []string{t.ResolvedPath},
		Duration:      time.Since(start),
		Details:       details,
	}, nil
}

func ticketPayload(t *job.Ticket) map[string]interface{} {
	return map[string]interface{}{
		"id":                t.ID,
		"jobType":           string(t.JobType),
		"worldClass":        t.WorldClass,
		"style":             t.Style,
		"resolvedThreshold": t.ResolvedThreshold,
		"resolvedPath":      t.ResolvedPath,
		"featureFlags":      t.FeatureFlags,
	}
}
