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
Package config provides a simple way to manage configuration files.

Use [Load](filename) to load a configuration from a specific filename.

Use [SetGlobalConfig](filename) to set filename as the global config, and then [LoadGlobal]() to load the global config.

A config file should be in yaml format. The top-level fields can be any of the
fields defined in the Config struct type. For example, a valid config file is
as follows:

	build-dir: .ctuscan
	jobs: 4
	max-ctu-depth: 2
	checkers:
	  - nullpointer
	  - bufferoverrun
	severities:
	  - error
	  - warning

The [Config.ToolInfo] string digests every option that changes analysis
results; it is folded into the per-file cache checksum so that editing the
configuration invalidates stale cached records.
*/
package config
