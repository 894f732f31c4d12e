package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification is an append-only event record delivered to a single user.
// It never participates in state-machine decisions.
type Notification struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	Role    string `gorm:"not null" json:"role"` // "client", "technician" or "admin"
	Title   string `gorm:"not null" json:"title"`
	Message string `json:"message"`
	Kind    string `gorm:"default:'info'" json:"kind"` // info, success, warning, error
	Link    string `json:"link"`
	Read    bool   `gorm:"default:false" json:"read"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}

// AdminNotification statuses.
const (
	AdminNotifOpen     = "open"
	AdminNotifResolved = "resolved"
)

// AdminNotification records an escalation raised against a Work, typically
// a field issue reported by the assigned technician. Resolving one is the
// only path that returns a held work to inprogress.
type AdminNotification struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Type         string `gorm:"not null" json:"type"` // e.g. "work_issue"
	Message      string `json:"message"`
	WorkID       uint   `gorm:"not null;index" json:"work_id"`
	Work         Work   `gorm:"foreignKey:WorkID" json:"-"`
	TechnicianID uint   `gorm:"index" json:"technician_id"`
	IssueType    string `json:"issue_type"`
	Remarks      string `json:"remarks"`
	Seen         bool   `gorm:"default:false" json:"seen"`
	Status       string `gorm:"default:'open'" json:"status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the AdminNotification model
func (AdminNotification) TableName() string {
	return "admin_notifications"
}
