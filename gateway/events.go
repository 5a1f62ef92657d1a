package gateway

import (
	"time"
)

// Event is the structured record emitted for every operation outcome.
// It carries enough for a caller to build both a session log line and
// an operational event feed entry without re-deriving anything.
type Event struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Op     string    `json:"op"`
	OK     bool      `json:"ok"`
	Code   string    `json:"code,omitempty"`
	Detail string    `json:"detail,omitempty"`
	Port   string    `json:"port,omitempty"`
	Bytes  int       `json:"bytes,omitempty"`
}

// EventSink receives operation events. Sinks are caller-owned; the
// gateway never blocks its contract on what a sink does with them.
type EventSink interface {
	Record(ev Event)
}

// nopSink is used when no sink is wired.
type nopSink struct{}

func (nopSink) Record(Event) {}
