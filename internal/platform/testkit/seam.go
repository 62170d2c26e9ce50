package testkit

import (
	"sync"
	"testing"
)

var serialMu sync.Mutex

// Swap replaces a package level seam for one test and restores the
// original on cleanup
func Swap[T any](t *testing.T, target *T, with T) {
	t.Helper()
	saved := *target
	*target = with
	t.Cleanup(func() { *target = saved })
}

// Serial holds a process wide lock for the duration of the test so
// tests that swap shared seams cannot interleave
func Serial(t *testing.T) {
	t.Helper()
	serialMu.Lock()
	t.Cleanup(serialMu.Unlock)
}
