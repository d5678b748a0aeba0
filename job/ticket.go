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

package job

import "time"

// JobType enumerates the kinds of document a ticket may request.
type JobType string

const (
	TypePartnershipDocument JobType = "partnership-document"
	TypeProgramReport       JobType = "program-report"
	TypeAnnualReport        JobType = "annual-report"
	TypeGeneric             JobType = "generic"
)

// WorkerPreference is the submitter's hint for which worker kind should
// run the job; the router treats it as advisory except where the schema
// forces a specific path (worldClass, TFU style, mcpMode).
type WorkerPreference string

const (
	PreferenceAuto            WorkerPreference = "auto"
	PreferenceLocalInteractive WorkerPreference = "local-interactive"
	PreferenceServerlessBatch WorkerPreference = "serverless-batch"
	PreferenceMultiServer     WorkerPreference = "multi-server"
)

// Quality is the optional, coarse quality hint distinct from the
// world-class flag.
type Quality string

const (
	QualityLow      Quality = "low"
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
)

// DefaultQAThreshold is used when a ticket supplies no qa.threshold and
// is not world-class.
const DefaultQAThreshold = 0.90

// WorldClassFloor is the hard minimum aggregate threshold a world-class
// ticket cannot be configured below.
const WorldClassFloor = 0.95

// WorldClassContentRubricFloor is the world-class floor on the 0-150
// ordinal content rubric scale used by layer L1.
const WorldClassContentRubricFloor = 140.0 / 150.0

// QAConfig carries the submitter's quality-gate configuration.
type QAConfig struct {
	Threshold      float64            `json:"threshold,omitempty"`
	LayerOverrides map[string]float64 `json:"layerOverrides,omitempty"`
}

// Output describes where the produced artifact is delivered.
type Output struct {
	Path     string `json:"path,omitempty"`
	CloudKey string `json:"cloudKey,omitempty"`
}

// MultiServer carries the declared workflow name for the Multi-Server
// Orchestration Worker.
type MultiServer struct {
	Workflow string `json:"workflow,omitempty"`
}

// Ticket is the unit of work submitted to the orchestrator. It is owned
// exclusively by the orchestrator for the duration of the job; the
// orchestrator is the only writer of the Resolved* fields.
type Ticket struct {
	ID                   string                   `json:"id"`
	JobType              JobType                  `json:"jobType"`
	TargetApplication    string                   `json:"targetApplication,omitempty"`
	WorkerPreference      WorkerPreference         `json:"workerPreference,omitempty"`
	WorldClass            bool                     `json:"worldClass,omitempty"`
	MCPMode               bool                     `json:"mcpMode,omitempty"`
	Style                 string                   `json:"style,omitempty"`
	Quality               Quality                  `json:"quality,omitempty"`
	QA                    *QAConfig                `json:"qa,omitempty"`
	Timeouts              map[string]int           `json:"timeouts,omitempty"`
	FeatureFlags          map[string]bool          `json:"featureFlags,omitempty"`
	MultiServerWorkflow   *MultiServer             `json:"multiServer,omitempty"`
	Output                Output                   `json:"output"`
	Tenant                string                   `json:"tenant,omitempty"`
	Partner               map[string]interface{}   `json:"partner,omitempty"`

	// Resolved* fields are populated by the orchestrator and never set by
	// the submitter directly.
	ResolvedThreshold float64           `json:"resolvedThreshold,omitempty"`
	ResolvedPath      string            `json:"resolvedPath,omitempty"`
	ResolvedAssets    map[string]string `json:"resolvedAssets,omitempty"`
}

// Outcome is the terminal state of a JobResult.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

// Result is the immutable record written at job completion.
type Result struct {
	JobID          string             `json:"jobId"`
	Outcome        Outcome            `json:"outcome"`
	ArtifactPaths  []string           `json:"artifactPaths,omitempty"`
	Aggregate      float64            `json:"aggregate"`
	StageDurations map[string]float64 `json:"stageDurationsMs"`
	CostBreakdown  map[string]float64 `json:"costBreakdown,omitempty"`
	ErrorChain     []string           `json:"errorChain,omitempty"`
	CompletedAt    time.Time          `json:"completedAt"`
}

// EffectiveThreshold computes the QA threshold the authoritative gate
// must enforce: a world-class ticket's threshold is clamped upward to at
// least WorldClassFloor regardless of the supplied value (including a
// supplied value already above the floor, which is honored). A
// non-world-class ticket uses its supplied threshold, or
// DefaultQAThreshold if none was supplied.
func (t *Ticket) EffectiveThreshold() float64 {
	supplied := 0.0
	if t.QA != nil {
		supplied = t.QA.Threshold
	}

	if t.WorldClass {
		if supplied > WorldClassFloor {
			return supplied
		}
		return WorldClassFloor
	}

	if supplied > 0 {
		return supplied
	}
	return DefaultQAThreshold
}

// ForcesMultiServer reports whether the ticket's mode routes to the
// multi-server path with no fallback permitted (the TFU failsafe). The
// router checks worldClass before this, so a world-class ticket goes to
// local-interactive even when this reports true.
func (t *Ticket) ForcesMultiServer() bool {
	return t.MCPMode || t.Style == "TFU" || (t.MultiServerWorkflow != nil && t.MultiServerWorkflow.Workflow != "")
}

// IsPartnershipOrReportClass reports whether jobType belongs to the
// "partnership/report" family §4.4 singles out for the local-interactive
// default.
func (t *Ticket) IsPartnershipOrReportClass() bool {
	switch t.JobType {
	case TypePartnershipDocument, TypeProgramReport, TypeAnnualReport:
		return true
	}
	return false
}
