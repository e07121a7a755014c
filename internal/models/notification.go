package models

import (
	"time"
)

// NotificationType is the domain event behind a notification
type NotificationType string

const (
	NotificationReservationCreated NotificationType = "reservation_created"
	NotificationProofSubmitted     NotificationType = "proof_submitted"
	NotificationOrderApproved      NotificationType = "order_approved"
	NotificationOrderRejected      NotificationType = "order_rejected"
	NotificationWinnerDrawn        NotificationType = "winner_drawn"
)

// NotificationChannel tells the dispatcher who the recipient is
type NotificationChannel string

const (
	ChannelBuyer NotificationChannel = "buyer" // email/phone of the buyer
	ChannelStaff NotificationChannel = "staff" // organizer alert
)

// Notification status values
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification is an outbox entry, delivered by the dispatcher after the
// state transition that produced it has committed
type Notification struct {
	ID            string              `bson:"_id" json:"id"`
	RaffleID      string              `bson:"raffleId" json:"raffleId"`
	Reference     string              `bson:"reference,omitempty" json:"reference,omitempty"`
	Type          NotificationType    `bson:"type" json:"type"`
	Channel       NotificationChannel `bson:"channel" json:"channel"`
	Recipient     string              `bson:"recipient" json:"recipient"`
	Subject       string              `bson:"subject" json:"subject"`
	Content       string              `bson:"content" json:"content"`
	Status        string              `bson:"status" json:"status"`
	Gateway       string              `bson:"gateway,omitempty" json:"gateway,omitempty"`
	MessageID     string              `bson:"messageId,omitempty" json:"messageId,omitempty"`
	Attempts      int                 `bson:"attempts" json:"attempts"`
	StatusMessage string              `bson:"statusMessage,omitempty" json:"statusMessage,omitempty"`
	SentAt        *time.Time          `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}
