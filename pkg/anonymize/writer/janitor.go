package writer

import (
	"os"
	"sort"
	"sync"
)

// Janitor tracks in-flight temporary files so they can be removed on forced
// termination. Writers register a temp path before writing and deregister it
// once the commit reaches a terminal state; the process signal handler calls
// Sweep as a last resort.
type Janitor struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewJanitor returns an empty janitor.
func NewJanitor() *Janitor {
	return &Janitor{paths: make(map[string]struct{})}
}

func (j *Janitor) register(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.paths[path] = struct{}{}
}

func (j *Janitor) deregister(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.paths, path)
}

// Pending returns the registered temp paths in sorted order.
func (j *Janitor) Pending() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.paths))
	for p := range j.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Sweep removes every registered temp file, best effort, and returns the
// number of files actually deleted.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	paths := make([]string, 0, len(j.paths))
	for p := range j.paths {
		paths = append(paths, p)
	}
	j.paths = make(map[string]struct{})
	j.mu.Unlock()

	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err == nil {
			removed++
		}
	}
	return removed
}
