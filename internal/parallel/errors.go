// Package parallel holds the small concurrency helpers shared by the
// multiplication backends.
package parallel

import "sync"

// FirstErr keeps the first non-nil error reported by a group of
// goroutines. The zero value is ready to use.
type FirstErr struct {
	mu  sync.Mutex
	err error
}

// Set records err unless an error was already recorded. Nil errors are
// ignored. Safe for concurrent use.
func (f *FirstErr) Set(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.mu.Unlock()
}

// Err returns the recorded error, or nil.
func (f *FirstErr) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
