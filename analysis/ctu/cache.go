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

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/ctuscan/ctuscan/analysis/config"
	"github.com/ctuscan/ctuscan/analysis/lang"
	"github.com/ctuscan/ctuscan/analysis/valueflow"
)

// cacheFile is the on-disk envelope, one per analyzed file. Fact entries are
// kept as raw messages so one malformed entry invalidates only itself, while
// a checksum mismatch invalidates the whole file.
type cacheFile struct {
	Checksum      uint32                     `json:"checksum"`
	Diagnostics   []Diagnostic               `json:"diagnostics,omitempty"`
	FunctionCalls []json.RawMessage          `json:"function-call,omitempty"`
	NestedCalls   []json.RawMessage          `json:"nested-call,omitempty"`
	CheckData     map[string]json.RawMessage `json:"check-data,omitempty"`
}

// cacheFunctionCall flattens a FunctionCall and the kind/magnitude of its
// carried value into one entry.
type cacheFunctionCall struct {
	CalleeID   string                    `json:"callee-id"`
	CalleeName string                    `json:"callee-name"`
	ArgNr      int                       `json:"arg-nr"`
	ArgExpr    string                    `json:"arg-expr"`
	Loc        *lang.Location            `json:"loc"`
	ValueKind  valueflow.Kind            `json:"value-kind"`
	Value      int64                     `json:"value"`
	Warning    bool                      `json:"warning"`
	Path       []valueflow.ErrorPathItem `json:"path,omitempty"`
}

type cacheNestedCall struct {
	MyID     string         `json:"my-id"`
	MyArgNr  int            `json:"my-arg-nr"`
	CalleeID string         `json:"callee-id"`
	ArgNr    int            `json:"arg-nr"`
	Loc      *lang.Location `json:"loc"`
}

// CachePath returns the cache file path for a source file within buildDir.
// Base names alone collide across directories, so the full path is folded
// into the name.
func CachePath(buildDir, file string) string {
	return filepath.Join(buildDir,
		fmt.Sprintf("%s.%08x.json", filepath.Base(file), crc32.ChecksumIEEE([]byte(file))))
}

// TryLoadFromCache returns true when a valid cached record exists for the
// file with the given checksum, and populates rec from it: cached diagnostics
// to replay, facts for the whole-program merge, and detector payloads. It
// fails closed: a missing file, a decode error or a checksum mismatch all
// read as "no cached result", never as an error.
func (rec *FileRecord) TryLoadFromCache(buildDir string, checksum uint32, logger *config.LogGroup) bool {
	if buildDir == "" || rec.File == "" {
		return false
	}
	b, err := os.ReadFile(CachePath(buildDir, rec.File))
	if err != nil {
		return false
	}
	var cf cacheFile
	if err := json.Unmarshal(b, &cf); err != nil {
		logger.Debugf("discarding cache for %s: %v", rec.File, err)
		return false
	}
	if cf.Checksum != checksum {
		logger.Debugf("cache for %s is stale", rec.File)
		return false
	}
	rec.populate(cf, logger)
	return true
}

// LoadRecordFile reads a previously persisted record without checksum
// validation. The replay tool uses it to rebuild the combined record from a
// build directory.
func LoadRecordFile(path string, logger *config.LogGroup) (*FileRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", path, err)
	}
	var cf cacheFile
	if err := json.Unmarshal(b, &cf); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", path, err)
	}
	rec := &FileRecord{File: path}
	rec.populate(cf, logger)
	return rec, nil
}

// populate fills rec from a decoded envelope, dropping individual entries
// that are missing required attributes.
func (rec *FileRecord) populate(cf cacheFile, logger *config.LogGroup) {
	rec.Checksum = cf.Checksum
	rec.Diagnostics = cf.Diagnostics
	rec.checkData = cf.CheckData
	for _, raw := range cf.FunctionCalls {
		var e cacheFunctionCall
		if err := json.Unmarshal(raw, &e); err != nil || e.CalleeID == "" || e.ArgNr <= 0 || e.Loc == nil {
			logger.Debugf("skipping malformed function-call entry in record for %s", rec.File)
			continue
		}
		fc := FunctionCall{
			Call:    Call{CalleeID: e.CalleeID, CalleeName: e.CalleeName, ArgNr: e.ArgNr, Loc: *e.Loc},
			ArgExpr: e.ArgExpr,
			Warning: e.Warning,
		}
		fc.ArgValue = valueflow.NewIntValue(e.Value)
		fc.ArgValue.Kind = e.ValueKind
		fc.ArgValue.ErrorPath = e.Path
		rec.FunctionCalls = append(rec.FunctionCalls, fc)
	}
	for _, raw := range cf.NestedCalls {
		var e cacheNestedCall
		if err := json.Unmarshal(raw, &e); err != nil || e.MyID == "" || e.CalleeID == "" || e.ArgNr <= 0 || e.MyArgNr <= 0 || e.Loc == nil {
			logger.Debugf("skipping malformed nested-call entry in record for %s", rec.File)
			continue
		}
		rec.NestedCalls = append(rec.NestedCalls, NestedCall{
			Call:    Call{CalleeID: e.CalleeID, ArgNr: e.ArgNr, Loc: *e.Loc},
			MyID:    e.MyID,
			MyArgNr: e.MyArgNr,
		})
	}
}

// Persist writes the record to the cache. A no-op when caching is disabled or
// the record has no identifiable source path.
func (rec *FileRecord) Persist(buildDir string) error {
	if buildDir == "" || rec.File == "" {
		return nil
	}
	cf := cacheFile{
		Checksum:    rec.Checksum,
		Diagnostics: rec.Diagnostics,
		CheckData:   rec.checkData,
	}
	for i := range rec.FunctionCalls {
		fc := &rec.FunctionCalls[i]
		loc := fc.Loc
		raw, err := json.Marshal(cacheFunctionCall{
			CalleeID:   fc.CalleeID,
			CalleeName: fc.CalleeName,
			ArgNr:      fc.ArgNr,
			ArgExpr:    fc.ArgExpr,
			Loc:        &loc,
			ValueKind:  fc.ArgValue.Kind,
			Value:      fc.ArgValue.IntValue,
			Warning:    fc.Warning,
			Path:       fc.ArgValue.ErrorPath,
		})
		if err != nil {
			return fmt.Errorf("marshaling function-call entry: %w", err)
		}
		cf.FunctionCalls = append(cf.FunctionCalls, raw)
	}
	for i := range rec.NestedCalls {
		nc := &rec.NestedCalls[i]
		loc := nc.Loc
		raw, err := json.Marshal(cacheNestedCall{
			MyID:     nc.MyID,
			MyArgNr:  nc.MyArgNr,
			CalleeID: nc.CalleeID,
			ArgNr:    nc.ArgNr,
			Loc:      &loc,
		})
		if err != nil {
			return fmt.Errorf("marshaling nested-call entry: %w", err)
		}
		cf.NestedCalls = append(cf.NestedCalls, raw)
	}

	b, err := json.MarshalIndent(cf, "", " ")
	if err != nil {
		return fmt.Errorf("marshaling cache for %s: %w", rec.File, err)
	}
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return fmt.Errorf("creating build dir: %w", err)
	}
	if err := os.WriteFile(CachePath(buildDir, rec.File), b, 0o644); err != nil {
		return fmt.Errorf("writing cache for %s: %w", rec.File, err)
	}
	return nil
}
