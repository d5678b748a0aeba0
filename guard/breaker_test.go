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
	"testing"
	"time"

	"docpipeline/shared/logger"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, OpenDuration: time.Hour, HalfOpenProbes: 1}, logger.New("guard-test"))

	for i := 0; i < 2; i++ {
		b.RecordFailure("pdf-export")
		if b.StateOf("pdf-export") != StateClosed {
			t.Fatalf("expected closed before threshold, got %v", b.StateOf("pdf-export"))
		}
	}
	b.RecordFailure("pdf-export")
	if b.StateOf("pdf-export") != StateOpen {
		t.Fatalf("expected open after threshold, got %v", b.StateOf("pdf-export"))
	}
	if err := b.Allow("pdf-export"); err != ErrCircuitOpen {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerHalfOpenAfterDuration(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, OpenDuration: 10 * time.Millisecond, HalfOpenProbes: 1}, logger.New("guard-test"))

	b.RecordFailure("pdf-export")
	if b.StateOf("pdf-export") != StateOpen {
		t.Fatal("expected open after single failure at threshold 1")
	}

	time.Sleep(20 * time.Millisecond)
	if err := b.Allow("pdf-export"); err != nil {
		t.Fatalf("expected half-open probe to be admitted, got %v", err)
	}
	if b.StateOf("pdf-export") != StateHalfOpen {
		t.Fatalf("expected half-open, got %v", b.StateOf("pdf-export"))
	}

	if err := b.Allow("pdf-export"); err != ErrCircuitOpen {
		t.Fatalf("expected second concurrent probe to be rejected, got %v", err)
	}
}

func TestBreakerRecordSuccessCloses(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig(), logger.New("guard-test"))
	for i := 0; i < 5; i++ {
		b.RecordFailure("s3")
	}
	if b.StateOf("s3") != StateOpen {
		t.Fatal("expected open")
	}

	b.config.OpenDuration = 0
	b.Allow("s3") // transitions to half-open
	b.RecordSuccess("s3")
	if b.StateOf("s3") != StateClosed {
		t.Fatalf("expected closed after success, got %v", b.StateOf("s3"))
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 5, OpenDuration: 0, HalfOpenProbes: 1}, logger.New("guard-test"))
	for i := 0; i < 5; i++ {
		b.RecordFailure("s3")
	}
	b.Allow("s3") // half-open
	b.RecordFailure("s3")
	if b.StateOf("s3") != StateOpen {
		t.Fatalf("expected reopened circuit, got %v", b.StateOf("s3"))
	}
}
