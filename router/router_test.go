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
	"testing"

	"docpipeline/job"
	"docpipeline/shared/logger"
)

type stubWorker struct {
	kind    Kind
	called  bool
	err     error
	result  *Result
}

func (s *stubWorker) Invoke(ctx context.Context, t *job.Ticket) (*Result, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &Result{Kind: s.kind}, nil
}

func TestSelectMultiServerForcedByMCPMode(t *testing.T) {
	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, MCPMode: true}
	d := Select(ticket)
	if d.Kind != KindMultiServer || !d.Mandatory {
		t.Fatalf("expected mandatory multi-server, got %+v", d)
	}
}

func TestSelectMultiServerForcedByTFU(t *testing.T) {
	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, Style: "TFU"}
	d := Select(ticket)
	if d.Kind != KindMultiServer || !d.Mandatory {
		t.Fatalf("expected mandatory multi-server, got %+v", d)
	}
}

func TestSelectMultiServerForcedByWorkflow(t *testing.T) {
	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, MultiServerWorkflow: &job.MultiServer{Workflow: "nightly"}}
	d := Select(ticket)
	if d.Kind != KindMultiServer || !d.Mandatory {
		t.Fatalf("expected mandatory multi-server, got %+v", d)
	}
}

func TestSelectWorldClassRoutesLocal(t *testing.T) {
	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, WorldClass: true}
	d := Select(ticket)
	if d.Kind != KindLocalInteractive || !d.Mandatory {
		t.Fatalf("expected mandatory local-interactive, got %+v", d)
	}
}

func TestSelectPreferenceLocalInteractive(t *testing.T) {
	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, WorkerPreference: job.PreferenceLocalInteractive}
	d := Select(ticket)
	if d.Kind != KindLocalInteractive {
		t.Fatalf("expected local-interactive, got %+v", d)
	}
}

func TestSelectHighQualityPartnershipClass(t *testing.T) {
	ticket := &job.Ticket{ID: "j1", JobType: job.TypePartnershipDocument, Quality: job.QualityHigh}
	d := Select(ticket)
	if d.Kind != KindLocalInteractive {
		t.Fatalf("expected local-interactive, got %+v", d)
	}
}

func TestSelectDefaultsServerless(t *testing.T) {
	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric}
	d := Select(ticket)
	if d.Kind != KindServerlessBatch {
		t.Fatalf("expected serverless-batch, got %+v", d)
	}
}

func TestRouteFallsBackToLocalWhenNoServerlessConfigured(t *testing.T) {
	local := &stubWorker{kind: KindLocalInteractive}
	r := &Router{workers: map[Kind]Worker{KindLocalInteractive: local}, log: logger.New("router-test")}

	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric}
	res, err := r.Route(context.Background(), ticket)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !local.called {
		t.Fatal("expected fallback to local-interactive worker")
	}
	if res.Kind != KindLocalInteractive {
		t.Fatalf("expected result kind local-interactive, got %v", res.Kind)
	}
}

func TestRouteMandatoryFailureIsNotRetried(t *testing.T) {
	multi := &stubWorker{kind: KindMultiServer, err: ErrMultiServerStepFailed}
	local := &stubWorker{kind: KindLocalInteractive}
	r := &Router{workers: map[Kind]Worker{KindMultiServer: multi, KindLocalInteractive: local}, log: logger.New("router-test")}

	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, Style: "TFU"}
	_, err := r.Route(context.Background(), ticket)
	if err == nil {
		t.Fatal("expected error from mandatory multi-server failure")
	}
	if local.called {
		t.Fatal("router must not fall back to a different worker kind on mandatory-path failure")
	}
}

func TestRouteNoWorkerRegistered(t *testing.T) {
	r := &Router{workers: map[Kind]Worker{}, log: logger.New("router-test")}
	ticket := &job.Ticket{ID: "j1", JobType: job.TypeGeneric, WorldClass: true}
	_, err := r.Route(context.Background(), ticket)
	if err == nil {
		t.Fatal("expected ErrNoWorkerForKind")
	}
}
