package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types
const (
	NotificationEscrowCreated      = "escrow_created"
	NotificationMilestoneSubmitted = "milestone_submitted"
	NotificationMilestoneApproved  = "milestone_approved"
	NotificationEscrowCompleted    = "escrow_completed"
)

type Notification struct {
	ID              uuid.UUID  `json:"id"`
	UserAddress     string     `json:"user_address"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	RelatedEscrowID *uuid.UUID `json:"related_escrow_id,omitempty"`
	Read            bool       `json:"read"`
	CreatedAt       time.Time  `json:"created_at"`
}
