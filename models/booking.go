package models

import (
	"time"

	"gorm.io/gorm"
)

// Booking is a scheduling ledger entry linking a client and a technician.
// It mirrors a subset of the Work lifecycle and exists to detect duplicate
// or conflicting engagements for the same technician.
type Booking struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	UserID       uint `gorm:"not null;index" json:"user_id"`
	User         User `gorm:"foreignKey:UserID" json:"-"`
	TechnicianID uint `gorm:"not null;index" json:"technician_id"`
	Technician   User `gorm:"foreignKey:TechnicianID" json:"-"`

	ServiceType   string  `gorm:"not null" json:"service_type"`
	ServiceCharge float64 `json:"service_charge"`
	Description   string  `json:"description"`
	Location      string  `json:"location"`

	Date   time.Time  `gorm:"not null" json:"date"`
	Status WorkStatus `gorm:"not null;default:'open'" json:"status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}
