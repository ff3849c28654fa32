package events

import "context"

// Event types published on the escrow stream.
const (
	EventEscrowCreated      = "escrow_created"
	EventMilestoneSubmitted = "milestone_submitted"
	EventMilestoneApproved  = "milestone_approved"
	EventEscrowCompleted    = "escrow_completed"
	EventFundsDeposited     = "funds_deposited"
	EventFundsWithdrawn     = "funds_withdrawn"
)

// StreamEscrow is the redis channel all escrow lifecycle events go to.
const StreamEscrow = "events:escrow"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
