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
	"time"

	"docpipeline/shared/logger"
)

// Mutex is the single process-wide writer lock guarding local-interactive
// and multi-server job invocations. It is backed by a buffered channel of
// capacity one used as a ticket queue, which gives FIFO ordering: the
// goroutine that reaches the front of the channel first is the first one
// let through.
type Mutex struct {
	ch  chan struct{}
	log *logger.Logger
}

// NewMutex constructs an unlocked Mutex.
func NewMutex(log *logger.Logger) *Mutex {
	m := &Mutex{ch: make(chan struct{}, 1), log: log}
	m.ch <- struct{}{}
	return m
}

// Acquire blocks until the mutex is free or ctx is cancelled. It returns
// a release function that must be called exactly once.
func (m *Mutex) Acquire(ctx context.Context, jobID string) (release func(), err error) {
	waitStart := time.Now()
	select {
	case <-m.ch:
		waited := time.Since(waitStart)
		acquiredAt := time.Now()
		m.log.Info("", jobID, "guard: mutex acquired", map[string]interface{}{
			"wait_ms": waited.Milliseconds(),
		})
		released := false
		return func() {
			if released {
				return
			}
			released = true
			held := time.Since(acquiredAt)
			m.log.Info("", jobID, "guard: mutex released", map[string]interface{}{
				"held_ms": held.Milliseconds(),
			})
			m.ch <- struct{}{}
		}, nil
	case <-ctx.Done():
		return nil, ErrMutexWaitTimeout
	}
}
