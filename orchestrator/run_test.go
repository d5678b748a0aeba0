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

package orchestrator

import (
	"context"
	"errors"
	"testing"

	"docpipeline/guard"
	"docpipeline/job"
	"docpipeline/qualitygate"
	"docpipeline/router"
	"docpipeline/shared/logger"
)

type fixedWorker struct {
	result *router.Result
	err    error

	invoked bool
	// sawResolvedAssetsAtDispatch records whether ResolvedAssets was
	// already populated on the ticket when Invoke ran, so tests can
	// confirm L0 executed before worker dispatch.
	sawResolvedAssetsAtDispatch *bool
}

func (f *fixedWorker) Invoke(ctx context.Context, t *job.Ticket) (*router.Result, error) {
	f.invoked = true
	if f.sawResolvedAssetsAtDispatch != nil {
		*f.sawResolvedAssetsAtDispatch = t.ResolvedAssets != nil
	}
	return f.result, f.err
}

func newDeps(local router.Worker) Deps {
	return Deps{
		Validator: job.NewValidator(nil),
		Router:    router.New(local, nil, nil, logger.New("orchestrator-test")),
		Mutex:     guard.NewMutex(logger.New("orchestrator-test")),
		Breaker:   guard.NewBreaker(guard.DefaultBreakerConfig(), logger.New("orchestrator-test")),
		Ledger:    guard.NewLedger(0, 0, nil),
		Log:       logger.New("orchestrator-test"),
		Service:   "test-service",
	}
}

func passingPipeline() *qualitygate.Pipeline {
	return qualitygate.New(qualitygate.NewGeometryLayer(func(a qualitygate.Artifact, c qualitygate.Config) (float64, map[string]interface{}, error) {
		return 0.99, nil, nil
	}))
}

func TestRunValidationErrorShortCircuits(t *testing.T) {
	deps := newDeps(&fixedWorker{})
	ticket := &job.Ticket{} // missing id, jobType, output

	_, exitCode, err := Run(context.Background(), ticket, deps)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if exitCode != ExitSchemaInvalid {
		t.Fatalf("expected ExitSchemaInvalid, got %v", exitCode)
	}
}

func TestRunSuccessPath(t *testing.T) {
	deps := newDeps(&fixedWorker{result: &router.Result{ArtifactPaths: []string{"/out/j1.pdf"}}})
	deps.Pipeline = passingPipeline()
	deps.GateCfg = func(t *job.Ticket) qualitygate.Config {
		return qualitygate.Config{AggregateThreshold: 0.5}
	}

	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, Output: job.Output{Path: "/out/j1.pdf"}}
	result, exitCode, err := Run(context.Background(), ticket, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exitCode != ExitPass {
		t.Fatalf("expected ExitPass, got %v", exitCode)
	}
	if result.Outcome != job.OutcomeSuccess {
		t.Fatalf("expected success outcome, got %v", result.Outcome)
	}
}

func TestRunQualityGateFailure(t *testing.T) {
	deps := newDeps(&fixedWorker{result: &router.Result{ArtifactPaths: []string{"/out/j1.pdf"}}})
	deps.Pipeline = qualitygate.New(qualitygate.NewGeometryLayer(func(a qualitygate.Artifact, c qualitygate.Config) (float64, map[string]interface{}, error) {
		return 0.1, nil, nil
	}))
	deps.GateCfg = func(t *job.Ticket) qualitygate.Config {
		return qualitygate.Config{AggregateThreshold: 0.95}
	}

	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, Output: job.Output{Path: "/out/j1.pdf"}}
	result, exitCode, err := Run(context.Background(), ticket, deps)
	if err == nil {
		t.Fatal("expected quality gate failure")
	}
	if exitCode != ExitValidationFailed {
		t.Fatalf("expected ExitValidationFailed, got %v", exitCode)
	}
	if result.Outcome != job.OutcomeFailure {
		t.Fatalf("expected failure outcome, got %v", result.Outcome)
	}
}

func TestRunWorkerFailureTripsInfrastructureError(t *testing.T) {
	deps := newDeps(&fixedWorker{err: errors.New("bridge disconnected")})
	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, Output: job.Output{Path: "/out/j1.pdf"}}

	_, exitCode, err := Run(context.Background(), ticket, deps)
	if err == nil {
		t.Fatal("expected worker failure to propagate")
	}
	if exitCode != ExitInfrastructureErr {
		t.Fatalf("expected ExitInfrastructureErr, got %v", exitCode)
	}
	if deps.Breaker.StateOf("test-service") != guard.StateClosed {
		t.Fatal("one failure under the default threshold of 5 should not yet open the circuit")
	}
}

func TestRunPlanningLayerExecutesBeforeWorkerDispatch(t *testing.T) {
	var sawAssets bool
	worker := &fixedWorker{
		result:                      &router.Result{ArtifactPaths: []string{"/out/j1.pdf"}},
		sawResolvedAssetsAtDispatch: &sawAssets,
	}
	deps := newDeps(worker)
	deps.Planning = qualitygate.NewPlanningLayer(func(a qualitygate.Artifact, c qualitygate.Config) (float64, map[string]interface{}, error) {
		return 1.0, map[string]interface{}{"resolvedAssets": map[string]string{"logo": "/assets/logo.png"}}, nil
	}, false)
	deps.Pipeline = passingPipeline()
	deps.GateCfg = func(t *job.Ticket) qualitygate.Config {
		return qualitygate.Config{AggregateThreshold: 0.5}
	}

	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, Output: job.Output{Path: "/out/j1.pdf"}}
	_, exitCode, err := Run(context.Background(), ticket, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exitCode != ExitPass {
		t.Fatalf("expected ExitPass, got %v", exitCode)
	}
	if !sawAssets {
		t.Fatal("expected ResolvedAssets to be populated on the ticket before worker dispatch")
	}
	if ticket.ResolvedAssets["logo"] != "/assets/logo.png" {
		t.Fatalf("expected ResolvedAssets to carry the planning layer's output, got %+v", ticket.ResolvedAssets)
	}
}

func TestRunPlanningLayerBlockingFailureShortCircuitsBeforeDispatch(t *testing.T) {
	worker := &fixedWorker{result: &router.Result{ArtifactPaths: []string{"/out/j1.pdf"}}}
	deps := newDeps(worker)
	deps.Planning = qualitygate.NewPlanningLayer(func(a qualitygate.Artifact, c qualitygate.Config) (float64, map[string]interface{}, error) {
		return 0.1, nil, nil
	}, true)
	deps.PlanningCfg = func(t *job.Ticket) qualitygate.Config {
		return qualitygate.Config{LayerThresholds: map[string]float64{"L0": 0.5}}
	}

	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, Output: job.Output{Path: "/out/j1.pdf"}}
	_, exitCode, err := Run(context.Background(), ticket, deps)
	if err == nil {
		t.Fatal("expected blocking L0 failure to be reported")
	}
	if exitCode != ExitValidationFailed {
		t.Fatalf("expected ExitValidationFailed, got %v", exitCode)
	}
	if worker.invoked {
		t.Fatal("expected worker dispatch to be skipped when L0 blocks")
	}
}

func TestRunWorldClassEnforcesFloorThroughGate(t *testing.T) {
	deps := newDeps(&fixedWorker{result: &router.Result{ArtifactPaths: []string{"/out/j1.pdf"}, ReportedScore: 0.99}})
	deps.Pipeline = qualitygate.New(qualitygate.NewGeometryLayer(func(a qualitygate.Artifact, c qualitygate.Config) (float64, map[string]interface{}, error) {
		return 0.80, nil, nil // below world-class floor despite a high reported score
	}))
	deps.GateCfg = func(t *job.Ticket) qualitygate.Config {
		return qualitygate.Config{AggregateThreshold: t.ResolvedThreshold, WorldClass: t.WorldClass}
	}

	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, WorldClass: true, Output: job.Output{Path: "/out/j1.pdf"}}
	_, exitCode, err := Run(context.Background(), ticket, deps)
	if err == nil {
		t.Fatal("expected the world-class floor to reject a locally low-scoring artifact")
	}
	if exitCode != ExitValidationFailed {
		t.Fatalf("expected ExitValidationFailed, got %v", exitCode)
	}
}
