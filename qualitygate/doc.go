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
Package qualitygate runs an ordered, composable series of validation
layers against a produced artifact and decides pass or fail.

# Layers

A Layer declares an id, an Enabled predicate, and a Run method producing
a LayerResult: score, pass/fail, the threshold it was judged against,
duration, an optional report path, and raw details. The canonical
pipeline order is L0 (pre-generation planning), L1 (structural/content
rubric), L2 (pixel/geometry checks), L3 (visual regression), L3.5 (AI
design analysis), L4 (AI vision critique), and L5 (accessibility). L0
runs before worker dispatch; L1 through L5 run against the finished
artifact.

This package treats each layer's internal scoring algorithm as a
black box: Pipeline only sequences layers, enforces thresholds, and
aggregates. Concrete Layer implementations live alongside whatever
renders or inspects the artifact; qualitygate itself ships lightweight
stage stubs suitable for wiring a real analyzer behind each Run method.

# World-Class Re-Gate

If an artifact already carries a score reported by a nested tool, that
report is informational only. Pipeline.Run always re-executes every
enabled layer locally and applies the effective threshold; a world-class
ticket's report can never bypass the local gate.

# Failure Semantics

A failing layer returns VALIDATION_FAILED with its shortfall. An error
raised while running a layer (as opposed to a low score) is reported
separately as INFRASTRUCTURE_ERROR, so a failing layer and a broken tool
are distinguishable. Exit codes follow the layer boundary: 0 pass, 1
validation failure, 3 infrastructure error.
*/
package qualitygate
