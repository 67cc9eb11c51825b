// Copyright the ctuscan authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package analysis drives the whole-program analysis.

A [State] owns the run-wide pieces: configuration, loggers, the front end
producing syntax trees with attached values, the registered detectors and the
diagnostic sink. [State.Run] checks every file with a fixed-size worker pool,
then merges the per-file records behind a barrier and runs each detector once
over the combined view. Per-file results are cached in the configured build
directory and replayed on later runs when the file and configuration are
unchanged.
*/
package analysis
