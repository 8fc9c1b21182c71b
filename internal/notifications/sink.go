package notifications

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
)

// Message is one notification addressed to a single user.
type Message struct {
	UserID uuid.UUID
	Role   enums.UserRole
	Type   enums.NotificationType
	Title  string
	Body   string
	Data   map[string]any
}

// Sink accepts notifications on a best-effort basis. Notify must not block
// and never reports failure to the caller.
type Sink interface {
	Notify(ctx context.Context, msg Message)
}

// NopSink discards every message.
type NopSink struct{}

func (NopSink) Notify(context.Context, Message) {}

// Batch collects messages produced while a transaction is open so they can be
// handed to a Sink once it commits.
type Batch struct {
	messages []Message
}

// Add queues msg. Messages without a recipient are ignored.
func (b *Batch) Add(msg Message) {
	if msg.UserID == uuid.Nil {
		return
	}
	b.messages = append(b.messages, msg)
}

// Reset drops everything collected so far. Retried transactions call it
// before each attempt.
func (b *Batch) Reset() {
	b.messages = b.messages[:0]
}

// Messages returns a copy of the collected messages.
func (b *Batch) Messages() []Message {
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Flush hands every collected message to sink.
func (b *Batch) Flush(ctx context.Context, sink Sink) {
	if sink == nil {
		return
	}
	for _, msg := range b.messages {
		sink.Notify(ctx, msg)
	}
	b.Reset()
}
