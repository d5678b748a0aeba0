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

// Analyzer is the pluggable scorer a layer delegates to. Each concrete
// layer below is a thin adapter between the pipeline's Layer contract
// and one Analyzer call; swapping the rendering/inspection backend
// means supplying a different Analyzer, not touching the layer.
type Analyzer func(artifact Artifact, cfg Config) (score float64, details map[string]interface{}, err error)

// baseLayer shares the enabled-flag bookkeeping every concrete layer
// below needs.
type baseLayer struct {
	id           string
	defThreshold float64
	analyze      Analyzer
}

func (b *baseLayer) ID() string { return b.id }

func (b *baseLayer) Enabled(cfg Config) bool {
	if cfg.EnabledLayers == nil {
		return true
	}
	enabled, ok := cfg.EnabledLayers[b.id]
	return !ok || enabled
}

func (b *baseLayer) Run(artifact Artifact, cfg Config) (LayerResult, error) {
	threshold := cfg.ThresholdFor(b.id, b.defThreshold)
	score, details, err := b.analyze(artifact, cfg)
	if err != nil {
		return LayerResult{}, err
	}
	return LayerResult{
		LayerID:       b.id,
		Score:         score,
		Passed:        score >= threshold,
		ThresholdUsed: threshold,
		RawDetails:    details,
	}, nil
}

// PlanningLayer is L0: pre-generation planning and asset preparation. It
// runs before worker dispatch and its output seeds downstream ticket
// fields; a planning shortfall does not block unless the layer was
// constructed with blocking set to true.
type PlanningLayer struct {
	baseLayer
	Blocking bool
}

// NewPlanningLayer wraps analyze as L0.
func NewPlanningLayer(analyze Analyzer, blocking bool) *PlanningLayer {
	return &PlanningLayer{baseLayer: baseLayer{id: "L0", defThreshold: 0, analyze: analyze}, Blocking: blocking}
}

func (l *PlanningLayer) Run(artifact Artifact, cfg Config) (LayerResult, error) {
	result, err := l.baseLayer.Run(artifact, cfg)
	if err != nil {
		return result, err
	}
	if !l.Blocking {
		result.Passed = true
	}
	return result, nil
}

// StructuralLayer is L1: the structural/content rubric, scored on an
// ordinal scale (0-150 by convention).
type StructuralLayer struct{ baseLayer }

// NewStructuralLayer wraps analyze as L1 with a default threshold of 120.
// When cfg is world-class, Run raises the threshold to at least the
// world-class content-rubric floor of 140 (140/150).
func NewStructuralLayer(analyze Analyzer) *StructuralLayer {
	return &StructuralLayer{baseLayer{id: "L1", defThreshold: 120, analyze: analyze}}
}

func (l *StructuralLayer) Run(artifact Artifact, cfg Config) (LayerResult, error) {
	if cfg.WorldClass && cfg.ThresholdFor(l.id, l.defThreshold) < 140 {
		overrides := make(map[string]float64, len(cfg.LayerThresholds)+1)
		for k, v := range cfg.LayerThresholds {
			overrides[k] = v
		}
		overrides[l.id] = 140
		cfg.LayerThresholds = overrides
	}
	return l.baseLayer.Run(artifact, cfg)
}

// GeometryLayer is L2: pixel/geometry quality checks (page dimensions,
// text overflow, image load integrity, palette and font conformance).
type GeometryLayer struct{ baseLayer }

func NewGeometryLayer(analyze Analyzer) *GeometryLayer {
	return &GeometryLayer{baseLayer{id: "L2", defThreshold: 0.90, analyze: analyze}}
}

// VisualRegressionLayer is L3: per-page percent-different against a
// named baseline; analyze should return 1-diffPercent as its score so
// the pass rule stays "score >= threshold" like every other layer.
type VisualRegressionLayer struct{ baseLayer }

func NewVisualRegressionLayer(analyze Analyzer) *VisualRegressionLayer {
	return &VisualRegressionLayer{baseLayer{id: "L3", defThreshold: 0.95, analyze: analyze}}
}

// DesignAnalysisLayer is L3.5: AI design analysis across typography,
// whitespace, and color harmony, each in [0,1] and weighted-averaged by
// analyze into a single score.
type DesignAnalysisLayer struct{ baseLayer }

func NewDesignAnalysisLayer(analyze Analyzer) *DesignAnalysisLayer {
	return &DesignAnalysisLayer{baseLayer{id: "L3.5", defThreshold: 0.80, analyze: analyze}}
}

// VisionCritiqueLayer is L4: AI vision critique, a per-page score in
// [0,1] that analyze aggregates.
type VisionCritiqueLayer struct{ baseLayer }

func NewVisionCritiqueLayer(analyze Analyzer) *VisionCritiqueLayer {
	return &VisionCritiqueLayer{baseLayer{id: "L4", defThreshold: 0.85, analyze: analyze}}
}

// AccessibilityLayer is L5: WCAG-style criteria rollup plus structural
// tagging rollup.
type AccessibilityLayer struct{ baseLayer }

func NewAccessibilityLayer(analyze Analyzer) *AccessibilityLayer {
	return &AccessibilityLayer{baseLayer{id: "L5", defThreshold: 0.90, analyze: analyze}}
}
