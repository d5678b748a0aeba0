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

package qualitygate

import "time"

// Artifact is the produced document handed to the pipeline for
// validation. Layers must treat it as read-only; a remediation layer
// that needs to emit a changed artifact returns a new Artifact rather
// than mutating this one.
type Artifact struct {
	Path           string
	ReportedScore  float64 // score a nested tool already claimed, informational only
	ReportedByTool bool
}

// Config carries the effective thresholds and per-layer overrides
// resolved from the job ticket.
type Config struct {
	AggregateThreshold float64
	LayerThresholds    map[string]float64
	WorldClass         bool
	EnabledLayers      map[string]bool // nil means every registered layer is enabled
}

// ThresholdFor returns the effective threshold for layerID: a per-layer
// override if configured, else def.
func (c Config) ThresholdFor(layerID string, def float64) float64 {
	if c.LayerThresholds != nil {
		if t, ok := c.LayerThresholds[layerID]; ok {
			return t
		}
	}
	return def
}

// LayerResult is what a single layer reports after Run.
type LayerResult struct {
	LayerID       string
	Score         float64
	Passed        bool
	ThresholdUsed float64
	Duration      time.Duration
	ReportPath    string
	RawDetails    map[string]interface{}
}

// Layer is one validation stage. Run must be side-effect-free on
// artifact; a remediation stage instead implements RemediatingLayer,
// whose Remediate returns a newly produced Artifact.
type Layer interface {
	ID() string
	Enabled(cfg Config) bool
	Run(artifact Artifact, cfg Config) (LayerResult, error)
}

// RemediatingLayer is a Layer that may, in addition to its LayerResult,
// produce a replacement artifact. The pipeline re-validates the new
// artifact from this layer forward.
type RemediatingLayer interface {
	Layer
	Remediate(artifact Artifact, result LayerResult, cfg Config) (Artifact, bool, error)
}

// Report is the pipeline's full verdict for one artifact.
type Report struct {
	Results   []LayerResult
	Aggregate float64
	Passed    bool
}

// Pipeline runs an ordered list of layers against a produced artifact.
// L0 (PlanningLayer) is not one of these: it runs before the artifact
// exists, so the orchestrator invokes it directly ahead of worker
// dispatch rather than placing it in Layers. Pipeline holds L1-L5, the
// post-dispatch validation stages.
type Pipeline struct {
	Layers []Layer
}

// New constructs a Pipeline from layers in canonical order.
func New(layers ...Layer) *Pipeline {
	return &Pipeline{Layers: layers}
}

// Run executes every enabled layer in order. A layer is enabled when its
// Enabled(cfg) reports true and, if cfg.EnabledLayers is non-nil, that
// map sets its ID to true; layers absent from a non-nil map are skipped.
// It short-circuits on the
// first layer that fails or errors, except that a RemediatingLayer's
// remediation restarts the walk from its own position against the new
// artifact rather than stopping the pipeline outright.
//
// A previously-reported score on artifact is never trusted: every
// enabled layer always actually runs, which is what makes the
// world-class re-gate authoritative regardless of what a nested tool
// already claimed.
func (p *Pipeline) Run(artifact Artifact, cfg Config) (*Report, error) {
	report := &Report{Passed: true}
	current := artifact
	const maxRemediations = 3
	remediationAttempts := make(map[string]int)

	for i := 0; i < len(p.Layers); i++ {
		layer := p.Layers[i]
		if cfg.EnabledLayers != nil && !cfg.EnabledLayers[layer.ID()] {
			continue
		}
		if !layer.Enabled(cfg) {
			continue
		}

		start := time.Now()
		result, err := layer.Run(current, cfg)
		result.Duration = time.Since(start)
		if err != nil {
			return report, &InfrastructureError{LayerID: layer.ID(), Cause: err}
		}

		report.Results = append(report.Results, result)

		if !result.Passed {
			if remediator, ok := layer.(RemediatingLayer); ok && remediationAttempts[layer.ID()] < maxRemediations {
				remediated, changed, rerr := remediator.Remediate(current, result, cfg)
				if rerr != nil {
					return report, &InfrastructureError{LayerID: layer.ID(), Cause: rerr}
				}
				if changed {
					remediationAttempts[layer.ID()]++
					current = remediated
					i-- // re-run this same layer against the remediated artifact
					continue
				}
			}
			report.Passed = false
			return report, &ValidationFailedError{LayerID: layer.ID(), Score: result.Score, Threshold: result.ThresholdUsed}
		}
	}

	report.Aggregate = aggregate(report.Results)
	if report.Aggregate < cfg.AggregateThreshold {
		report.Passed = false
		return report, &ValidationFailedError{LayerID: "aggregate", Score: report.Aggregate, Threshold: cfg.AggregateThreshold}
	}

	return report, nil
}

func aggregate(results []LayerResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	return sum / float64(len(results))
}
