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

import "errors"

var (
	// ErrCircuitOpen is returned by Breaker.Allow while a service's
	// circuit is open.
	ErrCircuitOpen = errors.New("guard: CIRCUIT_OPEN")

	// ErrBudgetExceeded is returned by Ledger.Reserve when a projected
	// charge would cross the daily or monthly cap.
	ErrBudgetExceeded = errors.New("guard: BUDGET_EXCEEDED")

	// ErrMutexWaitTimeout is returned by Mutex.Acquire when ctx expires
	// before the mutex becomes available.
	ErrMutexWaitTimeout = errors.New("guard: timed out waiting for the single-writer mutex")
)
