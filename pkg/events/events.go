// Package events publishes reveal events to a message bus.
//
// A [Sink] turns every scheduler output call into a JSON [RunEvent] on a
// subject under "growtree.". Browsers or other services subscribe to
// "growtree.>" and replay the animation live.
package events

import (
	"context"
	"time"

	"github.com/matzehuels/growtree/pkg/graph"
)

// Event subjects.
const (
	TopicReveal   = "growtree.node.revealed"
	TopicPlace    = "growtree.node.placed"
	TopicEdge     = "growtree.edge.created"
	TopicComplete = "growtree.run.complete"

	// TopicAll matches every growtree subject.
	TopicAll = "growtree.>"
)

// RunEvent is the payload of every published message.
type RunEvent struct {
	RunID    string          `json:"run_id"`
	Seq      int             `json:"seq"`
	Time     time.Time       `json:"time"`
	NodeID   string          `json:"node,omitempty"`
	Position *graph.Position `json:"position,omitempty"`
	Source   string          `json:"source,omitempty"`
	Target   string          `json:"target,omitempty"`
}

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives events from the bus.
type Subscriber interface {
	// Subscribe delivers raw payloads on the returned channel. Call the
	// returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
