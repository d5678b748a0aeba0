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

import "testing"

func TestEffectiveThresholdDefaultsWhenNotSupplied(t *testing.T) {
	ticket := &Ticket{}
	if got := ticket.EffectiveThreshold(); got != DefaultQAThreshold {
		t.Errorf("expected default threshold %v, got %v", DefaultQAThreshold, got)
	}
}

func TestEffectiveThresholdHonorsSuppliedValue(t *testing.T) {
	ticket := &Ticket{QA: &QAConfig{Threshold: 0.80}}
	if got := ticket.EffectiveThreshold(); got != 0.80 {
		t.Errorf("expected 0.80, got %v", got)
	}
}

func TestEffectiveThresholdClampsWorldClassUpward(t *testing.T) {
	ticket := &Ticket{WorldClass: true, QA: &QAConfig{Threshold: 0.70}}
	if got := ticket.EffectiveThreshold(); got != WorldClassFloor {
		t.Errorf("expected world-class floor %v, got %v", WorldClassFloor, got)
	}
}

func TestEffectiveThresholdWorldClassHonorsHigherSuppliedValue(t *testing.T) {
	ticket := &Ticket{WorldClass: true, QA: &QAConfig{Threshold: 0.99}}
	if got := ticket.EffectiveThreshold(); got != 0.99 {
		t.Errorf("expected supplied value 0.99 above the floor to be honored, got %v", got)
	}
}

func TestEffectiveThresholdWorldClassWithNoSuppliedValue(t *testing.T) {
	ticket := &Ticket{WorldClass: true}
	if got := ticket.EffectiveThreshold(); got != WorldClassFloor {
		t.Errorf("expected world-class floor %v, got %v", WorldClassFloor, got)
	}
}

func TestForcesMultiServerMCPMode(t *testing.T) {
	ticket := &Ticket{MCPMode: true}
	if !ticket.ForcesMultiServer() {
		t.Error("expected mcpMode to force multi-server")
	}
}

func TestForcesMultiServerTFUStyle(t *testing.T) {
	ticket := &Ticket{Style: "TFU"}
	if !ticket.ForcesMultiServer() {
		t.Error("expected style=TFU to force multi-server")
	}
}

func TestForcesMultiServerNamedWorkflow(t *testing.T) {
	ticket := &Ticket{MultiServerWorkflow: &MultiServer{Workflow: "annual-report-pipeline"}}
	if !ticket.ForcesMultiServer() {
		t.Error("expected a named multiServer workflow to force multi-server")
	}
}

func TestForcesMultiServerFalseByDefault(t *testing.T) {
	ticket := &Ticket{}
	if ticket.ForcesMultiServer() {
		t.Error("expected a plain ticket not to force multi-server")
	}
}

func TestIsPartnershipOrReportClass(t *testing.T) {
	cases := []struct {
		jobType JobType
		want    bool
	}{
		{TypePartnershipDocument, true},
		{TypeProgramReport, true},
		{TypeAnnualReport, true},
		{TypeGeneric, false},
	}
	for _, c := range cases {
		ticket := &Ticket{JobType: c.jobType}
		if got := ticket.IsPartnershipOrReportClass(); got != c.want {
			t.Errorf("jobType %s: expected %v, got %v", c.jobType, c.want, got)
		}
	}
}
