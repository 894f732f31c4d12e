package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// DefaultWarrantyDays is the coverage window opened when a work completes.
const DefaultWarrantyDays = 30

// Warranty statuses.
const (
	WarrantyActive  = "active"
	WarrantyClaimed = "claimed"
)

// Warranty is the coverage record opened automatically when a Work completes.
// A claim inside the window spawns a free re-service Work assigned to the
// original technician; the replacement work carries no warranty of its own.
type Warranty struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	WorkID       uint `gorm:"not null;uniqueIndex" json:"work_id"`
	Work         Work `gorm:"foreignKey:WorkID" json:"-"`
	ClientID     uint `gorm:"not null;index" json:"client_id"`
	TechnicianID uint `gorm:"not null;index" json:"technician_id"`

	ServiceType  string    `gorm:"not null" json:"service_type"`
	WarrantyDays int       `gorm:"not null;default:30" json:"warranty_days"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`

	Status      string     `gorm:"not null;default:'active'" json:"status"`
	ClaimedAt   *time.Time `json:"claimed_at"`
	ClaimReason string     `json:"claim_reason"`
	// the free re-service request created by the claim
	ClaimWorkID *uint `json:"claim_work_id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Warranty model
func (Warranty) TableName() string {
	return "warranties"
}

// InWarranty reports whether the coverage window is still open at now.
func (w *Warranty) InWarranty(now time.Time) bool {
	return !now.After(w.ExpiresAt)
}

// DaysLeft returns the whole days of coverage remaining at now, zero once
// expired.
func (w *Warranty) DaysLeft(now time.Time) int {
	if !w.InWarranty(now) {
		return 0
	}
	return int(math.Ceil(w.ExpiresAt.Sub(now).Hours() / 24))
}
