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

package guard

import (
	"context"
	"errors"
	"testing"
)

type recordingAlerter struct {
	calls []int
}

func (r *recordingAlerter) Alert(ctx context.Context, thresholdPct int, dailyUSD, dailyCapUSD float64) {
	r.calls = append(r.calls, thresholdPct)
}

func TestLedgerReserveWithinCap(t *testing.T) {
	l := NewLedger(100, 1000, nil)
	if err := l.Reserve(context.Background(), "job-1", "pdf-export", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.DailyTotal() != 10 {
		t.Fatalf("expected daily total 10, got %v", l.DailyTotal())
	}
}

func TestLedgerReserveRejectsOverDailyCap(t *testing.T) {
	l := NewLedger(50, 1000, nil)
	if err := l.Reserve(context.Background(), "job-1", "pdf-export", 40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := l.Reserve(context.Background(), "job-2", "pdf-export", 20)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if l.DailyTotal() != 40 {
		t.Fatalf("rejected reservation must not move the total, got %v", l.DailyTotal())
	}
}

func TestLedgerReserveRejectsOverMonthlyCap(t *testing.T) {
	l := NewLedger(1000, 50, nil)
	l.Reserve(context.Background(), "job-1", "pdf-export", 40)
	err := l.Reserve(context.Background(), "job-2", "pdf-export", 20)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
}

func TestLedgerAlertFiresOncePerThreshold(t *testing.T) {
	alerter := &recordingAlerter{}
	l := NewLedger(100, 1000, alerter)

	l.Reserve(context.Background(), "job-1", "pdf-export", 55) // crosses 50%
	l.Reserve(context.Background(), "job-2", "pdf-export", 1)  // still past 50%, no new threshold

	if len(alerter.calls) != 1 || alerter.calls[0] != 50 {
		t.Fatalf("expected exactly one 50%% alert, got %v", alerter.calls)
	}

	l.Reserve(context.Background(), "job-3", "pdf-export", 20) // crosses 75%
	if len(alerter.calls) != 2 || alerter.calls[1] != 75 {
		t.Fatalf("expected a second alert at 75%%, got %v", alerter.calls)
	}
}

func TestLedgerEntriesAreAppendOnly(t *testing.T) {
	l := NewLedger(0, 0, nil)
	l.Reserve(context.Background(), "job-1", "pdf-export", 1)
	l.Reserve(context.Background(), "job-2", "pdf-export", 2)

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	entries[0].CostUSD = 999 // mutate the copy
	if l.Entries()[0].CostUSD != 1 {
		t.Fatal("Entries must return a copy, not the live slice")
	}
}
