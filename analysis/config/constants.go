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

package config

const (
	// Version identifies the analyzer release. It participates in the cache
	// checksum so cached records from another release are never reused.
	Version = "0.3.0"

	// DefaultMaxCtuDepth is the default maximum number of pass-through call
	// hops followed by the whole-program path search.
	DefaultMaxCtuDepth = 2

	// MaxCtuDepthLimit is the hard ceiling on the path search depth,
	// regardless of configuration.
	MaxCtuDepthLimit = 10
)
