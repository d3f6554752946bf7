package model

import "time"

// Notification type constants
const (
	NotifTypeChoreDue     = "chore_due"
	NotifTypeChoreOverdue = "chore_overdue"
	NotifTypeApproval     = "completion_approved"
)

type PushSubscription struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	HouseholdID int64     `json:"household_id"`
	Endpoint    string    `json:"endpoint"`
	P256dhKey   string    `json:"p256dh_key"`
	AuthKey     string    `json:"auth_key"`
	DeviceName  string    `json:"device_name"`
	CreatedAt   time.Time `json:"created_at"`
}
