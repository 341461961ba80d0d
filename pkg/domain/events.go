package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRequestSent   EventType = "request_sent"
	EventReplyReceived EventType = "reply_received"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp     time.Time `json:"timestamp"`
	Type          EventType `json:"type"`
	CorrelationID string    `json:"correlation_id"`
}

// RequestEvent describes one round trip through an endpoint.
// Status, Duration and Err are only populated on EventReplyReceived.
type RequestEvent struct {
	EventBase
	Request  string        `json:"request"`
	Status   string        `json:"status,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// RequestHooks defines callbacks for endpoint observability.
type RequestHooks struct {
	OnRequest func(context.Context, *RequestEvent)
	OnReply   func(context.Context, *RequestEvent)
}

// Merge returns hooks that call h first and then other.
func (h RequestHooks) Merge(other RequestHooks) RequestHooks {
	return RequestHooks{
		OnRequest: chain(h.OnRequest, other.OnRequest),
		OnReply:   chain(h.OnReply, other.OnReply),
	}
}

func chain(a, b func(context.Context, *RequestEvent)) func(context.Context, *RequestEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *RequestEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
