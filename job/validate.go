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

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Validator checks a Ticket against the schema contract and a configured
// set of allowed filesystem output roots.
type Validator struct {
	AllowedRoots []string
}

// NewValidator constructs a Validator that accepts output paths resolving
// within any of allowedRoots.
func NewValidator(allowedRoots []string) *Validator {
	return &Validator{AllowedRoots: allowedRoots}
}

var validJobTypes = map[JobType]bool{
	TypePartnershipDocument: true,
	TypeProgramReport:       true,
	TypeAnnualReport:        true,
	TypeGeneric:             true,
}

var validPreferences = map[WorkerPreference]bool{
	"": true, PreferenceAuto: true, PreferenceLocalInteractive: true,
	PreferenceServerlessBatch: true, PreferenceMultiServer: true,
}

var validQualities = map[Quality]bool{
	"": true, QualityLow: true, QualityStandard: true, QualityHigh: true,
}

// Validate runs every schema check against t and returns a *ValidationError
// listing every violation found, or nil if t is schema-valid.
func (v *Validator) Validate(t *Ticket) error {
	var violations []error

	if t.ID == "" {
		violations = append(violations, ErrMissingID)
	}
	if t.JobType == "" {
		violations = append(violations, ErrMissingJobType)
	} else if !validJobTypes[t.JobType] {
		violations = append(violations, fmt.Errorf("%w: %s", ErrUnknownJobType, t.JobType))
	}
	if !validPreferences[t.WorkerPreference] {
		violations = append(violations, fmt.Errorf("job: unknown workerPreference: %s", t.WorkerPreference))
	}
	if !validQualities[t.Quality] {
		violations = append(violations, fmt.Errorf("job: unknown quality: %s", t.Quality))
	}

	if t.Output.Path == "" && t.Output.CloudKey == "" {
		violations = append(violations, ErrMissingOutput)
	}
	if t.Output.Path != "" {
		if _, err := v.resolvePath(t.Output.Path); err != nil {
			violations = append(violations, err)
		}
	}

	if t.QA != nil && (t.QA.Threshold < 0 || t.QA.Threshold > 1) {
		violations = append(violations, fmt.Errorf("%w: got %v", ErrThresholdRange, t.QA.Threshold))
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// resolvePath confirms path has no traversal segments and resolves
// within one of the validator's allowed roots.
func (v *Validator) resolvePath(path string) (string, error) {
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: %s contains a traversal segment", ErrPathNotAllowed, path)
	}

	clean := filepath.Clean(path)
	if len(v.AllowedRoots) == 0 {
		return clean, nil
	}

	for _, root := range v.AllowedRoots {
		rel, err := filepath.Rel(root, clean)
		if err != nil {
			continue
		}
		if rel == "." || (!strings.HasPrefix(rel, "..") && rel != "..") {
			return filepath.Join(root, rel), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPathNotAllowed, path)
}

// Normalize resolves the ticket's effective threshold and output path,
// populating the Resolved* fields. It is the orchestrator's only mutation
// of a ticket.
func (v *Validator) Normalize(t *Ticket) error {
	t.ResolvedThreshold = t.EffectiveThreshold()

	if t.Output.Path != "" {
		resolved, err := v.resolvePath(t.Output.Path)
		if err != nil {
			return err
		}
		t.ResolvedPath = resolved
	}
	return nil
}
