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

/*
Package registry tracks the executor and bridge connections held open by
the Proxy, and answers readiness queries for a given application tag.

# Registration State Machine

An incoming WebSocket connection starts "unregistered". A register
message transitions it to "registered" under the given role. A disconnect
at any point transitions it to "gone" and removes it from the readiness
count. Only connections registered with role "executor" count toward
readiness for their application tag.

# Thread Safety

Registry is safe for concurrent use; readers receive immutable snapshots
rather than references into internal state.
*/
package registry
