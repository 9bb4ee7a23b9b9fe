// Package handoff delivers escalation tickets to the human-agent queue.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	logx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/logger"
	qstashx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/qstash"
)

// QStashNotifier publishes handoff tickets through QStash so a human-agent
// consumer can pick them up asynchronously. The conversation id doubles as
// the deduplication id: one ticket per conversation inside the dedup window,
// no matter how many turns escalate.
type QStashNotifier struct {
	client      *qstashx.Client
	destination string
}

func NewQStashNotifier(client *qstashx.Client, destination string) (*QStashNotifier, error) {
	if client == nil {
		return nil, errors.New("qstash client is required")
	}
	dest := strings.TrimSpace(destination)
	if dest == "" {
		return nil, errors.New("handoff destination url is required")
	}
	return &QStashNotifier{client: client, destination: dest}, nil
}

func (n *QStashNotifier) Publish(ctx context.Context, h contractx.Handoff) error {
	if strings.TrimSpace(h.ConversationID) == "" {
		return errors.New("handoff conversation id is empty")
	}

	messageID, err := n.client.Publish(ctx, n.destination, h,
		qstashx.WithDeduplicationID(h.ConversationID))
	if err != nil {
		return fmt.Errorf("publish handoff ticket: %w", err)
	}

	logx.Info().
		Str("conversation_id", h.ConversationID).
		Str("message_id", messageID).
		Msg("escalation handoff published")
	return nil
}

// Noop drops every ticket. It is the default when no queue is configured so
// escalations still resolve locally.
type Noop struct{}

func (Noop) Publish(context.Context, contractx.Handoff) error { return nil }

var (
	_ contractx.HandoffNotifier = (*QStashNotifier)(nil)
	_ contractx.HandoffNotifier = Noop{}
)
