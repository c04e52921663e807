// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"iter"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultExtension selects the daily snapshot files.
const DefaultExtension = ".csv"

// Queue hands out the paths of a lazy sequence to concurrent callers.
// Every matching path is delivered exactly once; the sequence is only
// advanced while the lock is held.
type Queue struct {
	mu   sync.Mutex
	next func() (string, bool)
	stop func()
	ext  string
	done bool
}

// NewQueue returns a queue over paths that only yields names ending in ext,
// compared without regard to case. An empty ext means DefaultExtension.
func NewQueue(paths iter.Seq[string], ext string) *Queue {
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	next, stop := iter.Pull(paths)
	return &Queue{next: next, stop: stop, ext: ext}
}

// Next returns the next matching path, or false once the sequence is done.
func (q *Queue) Next() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.done {
		path, ok := q.next()
		if !ok {
			q.done = true
			break
		}
		if strings.EqualFold(filepath.Ext(path), q.ext) {
			return path, true
		}
	}
	return "", false
}

// Stop releases the underlying sequence. Next reports false afterwards.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done = true
	q.stop()
}
