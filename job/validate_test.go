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
	"errors"
	"testing"
)

func TestValidateRejectsMissingFields(t *testing.T) {
	v := NewValidator(nil)
	err := v.Validate(&Ticket{})
	if err == nil {
		t.Fatal("expected validation errors for an empty ticket")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Violations) < 3 {
		t.Errorf("expected at least 3 violations (id, jobType, output), got %d", len(verr.Violations))
	}
}

func TestValidateAcceptsWellFormedTicket(t *testing.T) {
	v := NewValidator([]string{"/var/docpipeline/output"})
	ticket := &Ticket{
		ID:      "j1",
		JobType: TypeGeneric,
		Output:  Output{Path: "/var/docpipeline/output/j1.pdf"},
	}
	if err := v.Validate(ticket); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsUnknownJobType(t *testing.T) {
	v := NewValidator(nil)
	err := v.Validate(&Ticket{ID: "j1", JobType: "not-a-type", Output: Output{CloudKey: "k"}})
	if err == nil {
		t.Fatal("expected error for unknown jobType")
	}
}

func TestValidateRejectsThresholdOutOfRange(t *testing.T) {
	v := NewValidator(nil)
	err := v.Validate(&Ticket{ID: "j1", JobType: TypeGeneric, Output: Output{CloudKey: "k"}, QA: &QAConfig{Threshold: 1.5}})
	if err == nil {
		t.Fatal("expected error for threshold out of [0,1]")
	}
}

func TestValidateRejectsPathTraversal(t *testing.T) {
	v := NewValidator([]string{"/var/docpipeline/output"})
	err := v.Validate(&Ticket{ID: "j1", JobType: TypeGeneric, Output: Output{Path: "/var/docpipeline/output/../../etc/passwd"}})
	if err == nil {
		t.Fatal("expected error for a path traversal segment")
	}
}

func TestValidateRejectsPathOutsideAllowedRoots(t *testing.T) {
	v := NewValidator([]string{"/var/docpipeline/output"})
	err := v.Validate(&Ticket{ID: "j1", JobType: TypeGeneric, Output: Output{Path: "/tmp/elsewhere/j1.pdf"}})
	if err == nil {
		t.Fatal("expected error for a path outside every allowed root")
	}
}

func TestValidateAllowsAnyPathWhenNoRootsConfigured(t *testing.T) {
	v := NewValidator(nil)
	err := v.Validate(&Ticket{ID: "j1", JobType: TypeGeneric, Output: Output{Path: "/tmp/anywhere/j1.pdf"}})
	if err != nil {
		t.Fatalf("unexpected error with no configured allowed roots: %v", err)
	}
}

func TestNormalizePopulatesResolvedFields(t *testing.T) {
	v := NewValidator([]string{"/var/docpipeline/output"})
	ticket := &Ticket{
		ID:      "j1",
		JobType: TypeGeneric,
		Output:  Output{Path: "/var/docpipeline/output/j1.pdf"},
	}
	if err := v.Normalize(ticket); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.ResolvedThreshold != DefaultQAThreshold {
		t.Errorf("expected default threshold resolved, got %v", ticket.ResolvedThreshold)
	}
	if ticket.ResolvedPath != "/var/docpipeline/output/j1.pdf" {
		t.Errorf("expected resolved path to match, got %v", ticket.ResolvedPath)
	}
}

func TestNormalizeRejectsDisallowedPath(t *testing.T) {
	v := NewValidator([]string{"/var/docpipeline/output"})
	ticket := &Ticket{ID: "j1", JobType: TypeGeneric, Output: Output{Path: "/tmp/elsewhere/j1.pdf"}}
	if err := v.Normalize(ticket); err == nil {
		t.Fatal("expected Normalize to reject a disallowed path")
	}
}
