// Package common holds timing and memory helpers for scan benchmarks.
package common

import (
	"fmt"
	"time"
)

// Timer measures one named span.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer starts a timer labelled name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records and returns the elapsed time.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the time recorded by Stop.
func (t *Timer) Duration() time.Duration { return t.duration }

// Name returns the timer label.
func (t *Timer) Name() string { return t.name }

func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return t.duration.String()
}
