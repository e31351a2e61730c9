// Package notify defines the interface for publishing engine lifecycle
// events. The abstraction keeps the engine independent of a specific message
// transport.
package notify

import (
	"context"
	"time"
)

// Event kinds published by the engine.
const (
	KindCycleFinished   = "cycle_finished"
	KindPricesRefreshed = "prices_refreshed"
)

// Event is the payload published after a cycle or aggregation pass.
type Event struct {
	Kind     string    `json:"kind"`
	Count    int       `json:"count"`
	Failed   int       `json:"failed,omitempty"`
	NotFound int       `json:"not_found,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher sends engine events to interested consumers. Publishing is
// best-effort; the engine never fails a run because a notification did not
// go out.
type Publisher interface {
	Publish(ctx context.Context, event Event)
	Close() error
}

// NoOpPublisher discards all events. Used when no transport is configured
// and in tests.
type NoOpPublisher struct{}

// Publish for NoOpPublisher does nothing.
func (NoOpPublisher) Publish(_ context.Context, _ Event) {}

// Close for NoOpPublisher does nothing and returns nil.
func (NoOpPublisher) Close() error { return nil }
