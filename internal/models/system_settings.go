package models

import (
	"time"
)

// SystemSettings represents runtime-switchable settings
type SystemSettings struct {
	NotificationGateway string    `bson:"notificationGateway" json:"notificationGateway"` // MOCK, TELEGRAM, WEBHOOK
	CreatedAt           time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time `bson:"updatedAt" json:"updatedAt"`
	UpdatedBy           string    `bson:"updatedBy" json:"updatedBy"`
}
