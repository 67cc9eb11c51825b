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

package ctu

import "hash/crc32"

// Checksum digests the source text and the effective tool configuration into
// the 32-bit key that gates cache reuse. Any change to either invalidates the
// cached record for the file.
func Checksum(source []byte, toolInfo string) uint32 {
	h := crc32.NewIEEE()
	h.Write(source)
	h.Write([]byte{0})
	h.Write([]byte(toolInfo))
	return h.Sum32()
}
