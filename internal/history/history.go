package history

import (
	"context"
	"time"
)

// EventType defines the kind of supervisor lifecycle event.
type EventType string

const (
	EventSupervisorStart EventType = "supervisor_start"
	EventSupervisorStop  EventType = "supervisor_stop"
	EventScraperStart    EventType = "scraper_start"
	EventScraperRestart  EventType = "scraper_restart"
	EventCommentTrigger  EventType = "comment_trigger"
	EventCommentComplete EventType = "comment_complete"
	EventCommentTimeout  EventType = "comment_timeout"
)

// Event is one supervisor lifecycle event to be exported to an audit store.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Task       string    `json:"task"`   // "supervisor", "scraper", "comments"
	PID        int       `json:"pid"`    // subject process id, 0 when not applicable
	Detail     string    `json:"detail"` // free-form context (exit error, wait result)
}

// Sink is a destination for lifecycle events. Implementations must be safe
// for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}

// Nop is a Sink that discards all events. Used when no history DSN is
// configured so the supervisor loop can record unconditionally.
type Nop struct{}

func (Nop) Send(context.Context, Event) error { return nil }
func (Nop) Close() error                      { return nil }
