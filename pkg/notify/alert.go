// Package notify delivers focus alerts without ever blocking the tracker.
//
// Producers call Notify on a Notifier; the Dispatcher queues the alert and a
// background worker hands it to every configured Sender. Delivery failures
// are logged and dropped.
package notify

import (
	"context"
	"time"
)

// Kind classifies an alert.
type Kind string

const (
	KindWarning    Kind = "warning"    // are you still there?
	KindDistracted Kind = "distracted" // idle limit crossed
	KindRestored   Kind = "restored"   // activity resumed after a distraction
	KindStreak     Kind = "streak"     // long uninterrupted distraction
	KindGoal       Kind = "goal"       // focus goal reached
)

// Alert is a fire-and-forget notification.
type Alert struct {
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Sound     string    `json:"sound,omitempty"`
	User      string    `json:"user,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Time      time.Time `json:"time"`
}

// Notifier accepts alerts. Implementations must not block the caller.
type Notifier interface {
	Notify(a Alert)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(a Alert)

// Notify calls f(a).
func (f NotifierFunc) Notify(a Alert) { f(a) }

// Nop discards every alert.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(Alert) {}

// Sender performs the actual delivery for a Dispatcher. Send may block;
// the dispatcher bounds it with a timeout.
type Sender interface {
	Send(ctx context.Context, a Alert) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, a Alert) error

// Send calls f(ctx, a).
func (f SenderFunc) Send(ctx context.Context, a Alert) error { return f(ctx, a) }
