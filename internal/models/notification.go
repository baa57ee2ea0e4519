package models

import (
	"fmt"
	"time"
)

// NotificationType enumerates notification kinds.
type NotificationType string

const (
	NotificationGroupRejected NotificationType = "GROUP_REJECTED"
)

// Notification is a durable message to a user. Reading clears it.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Message   string           `gorm:"size:512;not null" json:"message"`
	ActionURL string           `gorm:"size:512;not null;default:''" json:"actionUrl"`
	UserID    uint             `gorm:"not null;index" json:"userId"`
	CreatedAt time.Time        `gorm:"index" json:"createdAt"`
}

// GroupRejectedNotification builds the notification sent to an owner when their group is denied.
func GroupRejectedNotification(g *Group) *Notification {
	return &Notification{
		Type:      NotificationGroupRejected,
		Message:   fmt.Sprintf("your group: %s has been rejected", g.Name),
		ActionURL: "",
		UserID:    g.UserID,
	}
}
