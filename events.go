// Package webcodecsgo (events.go) provides JSON-serializable Event types
// for external consumers that want codec lifecycle notifications without
// importing internal/codec or internal/events directly. Regrounded from
// the teacher's Spindle integration events: the BaseEvent/EventHandler
// shape survives, but the event set moves from batch-encode progress to
// per-instance dequeue/error signals.
package webcodecsgo

import (
	"time"

	"github.com/five82/webcodecsgo/internal/events"
)

// Event type name constants.
const (
	EventTypeDequeue = events.TypeDequeue
	EventTypeError   = "error"
)

// Event is the interface every event value implements.
type Event interface {
	Type() string
	Timestamp() int64
}

// BaseEvent carries the fields common to every event.
type BaseEvent struct {
	EventType string `json:"type"`
	Time      int64  `json:"timestamp"`
}

func (e BaseEvent) Type() string     { return e.EventType }
func (e BaseEvent) Timestamp() int64 { return e.Time }

// DequeueEvent fires when a codec instance's work queue drains one entry,
// mirroring the ondequeue slot every facade exposes via SetOnDequeue.
type DequeueEvent struct {
	BaseEvent
	InstanceID string `json:"instance_id"`
}

// ErrorEvent fires when a codec instance's Error callback is invoked.
type ErrorEvent struct {
	BaseEvent
	InstanceID string `json:"instance_id"`
	Message    string `json:"message"`
}

// EventHandler is called with events as they occur.
type EventHandler func(Event) error

// NewTimestamp returns the current Unix timestamp in seconds.
func NewTimestamp() int64 { return time.Now().Unix() }

// dequeuer is satisfied by every codec facade (VideoEncoder, VideoDecoder,
// AudioEncoder, AudioDecoder).
type dequeuer interface {
	SetOnDequeue(func())
}

// WatchDequeue registers handler to fire a DequeueEvent tagged with
// instanceID every time target's queue drains an entry.
func WatchDequeue(instanceID string, target dequeuer, handler EventHandler) {
	target.SetOnDequeue(func() {
		_ = handler(DequeueEvent{
			BaseEvent:  BaseEvent{EventType: EventTypeDequeue, Time: NewTimestamp()},
			InstanceID: instanceID,
		})
	})
}

// WrapErrorHandler adapts handler into the `func(error)` shape each codec
// *Init struct's Error field expects, tagging every error with
// instanceID before forwarding it as an ErrorEvent.
func WrapErrorHandler(instanceID string, handler EventHandler) func(error) {
	return func(err error) {
		_ = handler(ErrorEvent{
			BaseEvent:  BaseEvent{EventType: EventTypeError, Time: NewTimestamp()},
			InstanceID: instanceID,
			Message:    err.Error(),
		})
	}
}
