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

package analysis

import (
	"context"
	"runtime"
	"sync"
)

// fileQueue is the only structure the workers share mutably: the pending file
// list, popped under a mutex.
type fileQueue struct {
	mu    sync.Mutex
	files []string
	next  int
}

// pop returns the next pending file and its index, or ok=false when the queue
// is drained.
func (q *fileQueue) pop() (file string, idx int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= len(q.files) {
		return "", 0, false
	}
	file, idx = q.files[q.next], q.next
	q.next++
	return file, idx, true
}

// jobs resolves the configured worker count, defaulting to the available
// hardware parallelism.
func (s *State) jobs() int {
	if n := s.Config.Jobs; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// runWorker drains the queue. Each worker owns the record of the file it is
// checking exclusively; results land in disjoint slots of results.
func (s *State) runWorker(ctx context.Context, q *fileQueue, results []*checkResult) {
	for {
		if s.checkTerminate(ctx) {
			return
		}
		file, idx, ok := q.pop()
		if !ok {
			return
		}
		results[idx] = s.checkFile(ctx, file)
	}
}

// runFiles checks every file with a fixed-size worker pool and returns one
// result per file, in input order. Slots stay nil for files skipped due to
// termination.
func (s *State) runFiles(ctx context.Context, files []string) []*checkResult {
	q := &fileQueue{files: files}
	results := make([]*checkResult, len(files))

	n := s.jobs()
	if n > len(files) {
		n = len(files)
	}
	s.Logger.Debugf("checking %d files with %d workers", len(files), n)

	wg := &sync.WaitGroup{}
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			s.runWorker(ctx, q, results)
		}()
	}
	wg.Wait()
	return results
}
