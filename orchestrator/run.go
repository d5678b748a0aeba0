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
	"fmt"
	"time"

	"docpipeline/guard"
	"docpipeline/job"
	"docpipeline/qualitygate"
	"docpipeline/router"
	"docpipeline/shared/logger"
)

// ExitCode mirrors the CLI's process exit contract: 0 pass, 1
// quality-gate failure, 2 ticket validation error, 3 infrastructure
// error.
type ExitCode int

const (
	ExitPass             ExitCode = 0
	ExitValidationFailed ExitCode = 1
	ExitSchemaInvalid    ExitCode = 2
	ExitInfrastructureErr ExitCode = 3
)

// Deps bundles everything Run needs beyond the ticket itself. Fields
// left nil disable the corresponding guard or stage: a nil Pipeline, for
// instance, makes Run skip quality gating entirely (useful for dry runs).
type Deps struct {
	Validator *job.Validator
	Router    *router.Router
	Mutex     *guard.Mutex
	Breaker   *guard.Breaker
	Ledger    *guard.Ledger
	// Planning is L0: it runs before worker dispatch, against the ticket's
	// resolved output path rather than a produced artifact, and seeds
	// ResolvedAssets for the worker and downstream layers to consume. A
	// nil Planning skips L0 entirely.
	Planning    *qualitygate.PlanningLayer
	PlanningCfg func(t *job.Ticket) qualitygate.Config
	Pipeline    *qualitygate.Pipeline
	GateCfg     func(t *job.Ticket) qualitygate.Config
	Store       *job.Store
	Log         *logger.Logger

	// EstimatedCost is the projected USD cost of this job's billable
	// call, used by the budget ledger before dispatch.
	EstimatedCost float64
	// Service names the external service the circuit breaker and
	// budget ledger track this job's dispatch under.
	Service string
}

// Run drives one ticket through the full orchestrator algorithm: parse
// and validate, resolve thresholds, select and invoke a worker under the
// concurrency and budget guards, run the quality gate against the
// produced artifact, and persist the outcome.
func Run(ctx context.Context, t *job.Ticket, deps Deps) (*job.Result, ExitCode, error) {
	start := time.Now()

	if err := deps.Validator.Validate(t); err != nil {
		return nil, ExitSchemaInvalid, err
	}
	if err := deps.Validator.Normalize(t); err != nil {
		return nil, ExitSchemaInvalid, err
	}

	var planningDuration time.Duration
	if deps.Planning != nil {
		cfg := qualitygate.Config{AggregateThreshold: t.ResolvedThreshold, WorldClass: t.WorldClass}
		if deps.PlanningCfg != nil {
			cfg = deps.PlanningCfg(t)
		}

		planStart := time.Now()
		planResult, err := deps.Planning.Run(qualitygate.Artifact{Path: t.ResolvedPath}, cfg)
		planningDuration = time.Since(planStart)
		if err != nil {
			return nil, ExitInfrastructureErr, fmt.Errorf("orchestrator: L0 planning: %w", err)
		}
		if planResult.RawDetails != nil {
			if assets, ok := planResult.RawDetails["resolvedAssets"].(map[string]string); ok {
				t.ResolvedAssets = assets
			}
		}
		if !planResult.Passed {
			return &job.Result{
				JobID:          t.ID,
				Outcome:        job.OutcomeFailure,
				ErrorChain:     []string{fmt.Sprintf("L0 planning failed: score %.4f below threshold %.4f", planResult.Score, planResult.ThresholdUsed)},
				StageDurations: map[string]float64{"planning": float64(planningDuration.Milliseconds())},
				CompletedAt:    time.Now().UTC(),
			}, ExitValidationFailed, &qualitygate.ValidationFailedError{LayerID: "L0", Score: planResult.Score, Threshold: planResult.ThresholdUsed}
		}
	}

	decision := router.Select(t)
	deps.Log.Info(t.Tenant, t.ID, "orchestrator: worker selected", map[string]interface{}{
		"kind":      string(decision.Kind),
		"mandatory": decision.Mandatory,
		"threshold": t.ResolvedThreshold,
	})

	needsMutex := decision.Kind == router.KindLocalInteractive || decision.Kind == router.KindMultiServer
	var release func()
	if needsMutex && deps.Mutex != nil {
		r, err := deps.Mutex.Acquire(ctx, t.ID)
		if err != nil {
			return nil, ExitInfrastructureErr, fmt.Errorf("orchestrator: acquire mutex: %w", err)
		}
		release = r
		defer release()
	}

	if deps.Breaker != nil && deps.Service != "" {
		if err := deps.Breaker.Allow(deps.Service); err != nil {
			return nil, ExitInfrastructureErr, fmt.Errorf("orchestrator: %w", err)
		}
	}
	if deps.Ledger != nil && deps.Service != "" {
		if err := deps.Ledger.Reserve(ctx, t.ID, deps.Service, deps.EstimatedCost); err != nil {
			return nil, ExitInfrastructureErr, fmt.Errorf("orchestrator: %w", err)
		}
	}

	workerResult, err := deps.Router.Route(ctx, t)
	if err != nil {
		if deps.Breaker != nil && deps.Service != "" {
			deps.Breaker.RecordFailure(deps.Service)
		}
		return failureResult(t, start, err), ExitInfrastructureErr, err
	}
	if deps.Breaker != nil && deps.Service != "" {
		deps.Breaker.RecordSuccess(deps.Service)
	}

	result := &job.Result{
		JobID:         t.ID,
		ArtifactPaths: workerResult.ArtifactPaths,
		StageDurations: map[string]float64{
			"planning": float64(planningDuration.Milliseconds()),
			"worker":   float64(workerResult.Duration.Milliseconds()),
		},
	}

	if deps.Pipeline != nil {
		artifact := qualitygate.Artifact{
			Path:           firstOrEmpty(workerResult.ArtifactPaths),
			ReportedScore:  workerResult.ReportedScore,
			ReportedByTool: workerResult.ReportedScore > 0,
		}
		cfg := qualitygate.Config{AggregateThreshold: t.ResolvedThreshold, WorldClass: t.WorldClass}
		if deps.GateCfg != nil {
			cfg = deps.GateCfg(t)
		}

		report, gateErr := deps.Pipeline.Run(artifact, cfg)
		if deps.Store != nil && report != nil {
			if err := deps.Store.SaveScorecard(ctx, t.ID, report); err != nil {
				deps.Log.Error(t.Tenant, t.ID, "orchestrator: failed to persist scorecard", map[string]interface{}{"error": err.Error()})
			}
		}
		if gateErr != nil {
			var vf *qualitygate.ValidationFailedError
			var ie *qualitygate.InfrastructureError
			switch {
			case errors.As(gateErr, &vf):
				result.Outcome = job.OutcomeFailure
				result.ErrorChain = append(result.ErrorChain, vf.Error())
				result.Aggregate = report.Aggregate
				result.CompletedAt = time.Now().UTC()
				deps.persist(ctx, result)
				return result, ExitValidationFailed, gateErr
			case errors.As(gateErr, &ie):
				result.Outcome = job.OutcomeFailure
				result.ErrorChain = append(result.ErrorChain, ie.Error())
				result.CompletedAt = time.Now().UTC()
				deps.persist(ctx, result)
				return result, ExitInfrastructureErr, gateErr
			default:
				return nil, ExitInfrastructureErr, gateErr
			}
		}
		result.Aggregate = report.Aggregate
	}

	result.Outcome = job.OutcomeSuccess
	result.CompletedAt = time.Now().UTC()
	deps.persist(ctx, result)

	deps.Log.Info(t.Tenant, t.ID, "orchestrator: job complete", map[string]interface{}{
		"outcome":       string(result.Outcome),
		"aggregate":     result.Aggregate,
		"duration_ms":   time.Since(start).Milliseconds(),
	})
	return result, ExitPass, nil
}

func (d Deps) persist(ctx context.Context, result *job.Result) {
	if d.Store == nil {
		return
	}
	if err := d.Store.SaveResult(ctx, result); err != nil {
		d.Log.Error(result.JobID, result.JobID, "orchestrator: failed to persist job result", map[string]interface{}{"error": err.Error()})
	}
}

func failureResult(t *job.Ticket, start time.Time, err error) *job.Result {
	return &job.Result{
		JobID:          t.ID,
		Outcome:        job.OutcomeFailure,
		ErrorChain:     []string{err.Error()},
		StageDurations: map[string]float64{"worker": float64(time.Since(start).Milliseconds())},
		CompletedAt:    time.Now().UTC(),
	}
}

func firstOrEmpty(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}
