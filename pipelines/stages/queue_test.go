// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages_test

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/mdhender/drivestats/pipelines/stages"
)

func TestQueue_FiltersByExtension(t *testing.T) {
	q := stages.NewQueue(slices.Values([]string{"a.csv", "b.txt", "c.CSV", "d", "e.csv.gz"}), "")
	defer q.Stop()

	var got []string
	for {
		path, ok := q.Next()
		if !ok {
			break
		}
		got = append(got, path)
	}
	if !slices.Equal(got, []string{"a.csv", "c.CSV"}) {
		t.Errorf("want [a.csv c.CSV], got %v", got)
	}
	if _, ok := q.Next(); ok {
		t.Errorf("exhausted queue: want false")
	}
}

func TestQueue_ExactlyOnceUnderConcurrency(t *testing.T) {
	const numPaths = 1000
	paths := make([]string, numPaths)
	for i := range paths {
		paths[i] = fmt.Sprintf("/data/%04d.csv", i)
	}
	q := stages.NewQueue(slices.Values(paths), ".csv")
	defer q.Stop()

	const numWorkers = 16
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	seen := make(map[string]int)
	var mu sync.Mutex

	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for {
				path, ok := q.Next()
				if !ok {
					return
				}
				mu.Lock()
				seen[path]++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if len(seen) != numPaths {
		t.Errorf("expected %d distinct paths, got %d", numPaths, len(seen))
	}
	for path, n := range seen {
		if n != 1 {
			t.Errorf("%s: delivered %d times", path, n)
		}
	}
}

func TestQueue_StopEndsDelivery(t *testing.T) {
	q := stages.NewQueue(slices.Values([]string{"a.csv", "b.csv"}), "csv")
	if path, ok := q.Next(); !ok || path != "a.csv" {
		t.Fatalf("want a.csv, got %q %v", path, ok)
	}
	q.Stop()
	if _, ok := q.Next(); ok {
		t.Errorf("stopped queue: want false")
	}
	q.Stop()
}
