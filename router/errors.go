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

import "errors"

var (
	// ErrNoServerlessWorker is returned when the decision rule's fallback
	// arm is reached but no serverless worker was configured.
	ErrNoServerlessWorker = errors.New("router: no serverless worker configured, and no local-interactive fallback available")

	// ErrNoWorkerForKind is returned when Select names a worker kind for
	// which the Router has no registered Worker.
	ErrNoWorkerForKind = errors.New("router: no worker registered for the selected kind")

	// ErrMultiServerStepFailed wraps the first failing step of a
	// multi-server workflow fan-out.
	ErrMultiServerStepFailed = errors.New("router: multi-server workflow step failed")
)
