package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Technician availability states mirrored onto the user record as jobs move
// through their lifecycle.
const (
	TechAvailable  = "available"
	TechDispatched = "dispatched"
	TechInProgress = "inprogress"
	TechPending    = "pending"
	TechApproved   = "approved"
)

// User represents a person in the system acting as client, technician or
// admin. Role is a plain column; technician-only fields stay empty for
// clients.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string `json:"phone"`
	Role         string `gorm:"not null;default:'client'" json:"role"` // "client", "technician" or "admin"
	PasswordHash string `json:"-"`                                     // empty for OAuth-created accounts

	// Technician matching attributes. Specialization is a comma-joined set
	// of normalized lowercase tags; Location is stored lowercase.
	Specialization string `json:"specialization"`
	Location       string `json:"location"`

	// Live coordinates, updated on every location ping.
	Lat                *float64   `json:"lat"`
	Lng                *float64   `json:"lng"`
	LastLocationUpdate *time.Time `json:"last_location_update"`

	OnDuty           bool   `gorm:"default:false" json:"on_duty"`
	Availability     bool   `gorm:"default:true" json:"availability"`
	TechnicianStatus string `gorm:"default:'available'" json:"technician_status"`
	TotalJobs        int    `gorm:"default:0" json:"total_jobs"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// Specializations returns the technician's tags as a slice.
func (u *User) Specializations() []string {
	return SplitTags(u.Specialization)
}

// HasCoordinates reports whether a live position is known for the user.
func (u *User) HasCoordinates() bool {
	return u.Lat != nil && u.Lng != nil
}

// NormalizeTags lowercases, trims and drops empty entries, preserving order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinTags serializes a tag set into the comma-joined column format.
func JoinTags(tags []string) string {
	return strings.Join(NormalizeTags(tags), ",")
}

// SplitTags parses the comma-joined column format back into a slice.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	return NormalizeTags(strings.Split(s, ","))
}
