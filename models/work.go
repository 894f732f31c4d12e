package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentInfo is the payment sub-record embedded in a Work. It is treated as
// a value object: transitions replace it wholesale rather than mutating
// individual fields.
type PaymentInfo struct {
	Method        string     `json:"method"` // "cash" or "upi", empty until selected
	Status        string     `gorm:"default:'pending'" json:"status"`
	ConfirmedByID *uint      `json:"confirmed_by_id"` // technician who confirmed
	ConfirmedAt   *time.Time `json:"confirmed_at"`
	PaidAt        *time.Time `json:"paid_at"`
}

// InvoiceSnapshot is the invoice summary embedded in a Work when the job
// completes. Materials holds the used-material line items as JSON so the
// snapshot survives later edits to the Bill.
type InvoiceSnapshot struct {
	InvoiceNumber string         `json:"invoice_number"`
	Materials     datatypes.JSON `json:"materials"`
	ServiceCharge float64        `json:"service_charge"`
	Subtotal      float64        `json:"subtotal"`
	Total         float64        `json:"total"`
	PDFPath       string         `json:"pdf_path"`
}

// Work is one client service request and its full lifecycle record, the
// central aggregate of the system.
type Work struct {
	ID       uint  `gorm:"primaryKey" json:"id"`
	ClientID uint  `gorm:"not null;index" json:"client_id"`
	Client   User  `gorm:"foreignKey:ClientID" json:"client"`
	// nullable until a technician is matched; reassignable only while open
	TechnicianID *uint `gorm:"index" json:"technician_id"`
	Technician   *User `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`

	ServiceType    string `gorm:"not null" json:"service_type"`
	Specialization string `json:"specialization"` // comma-joined normalized tags
	Description    string `json:"description"`
	Location       string `json:"location"` // normalized lowercase
	ServiceCharge  float64 `gorm:"default:0" json:"service_charge"`

	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`

	Token  string     `gorm:"index" json:"token"` // REQ-<year>-<5-digit-sequence>
	Status WorkStatus `gorm:"not null;default:'open'" json:"status"`

	IssueType *string `json:"issue_type"`
	Remarks   string  `json:"remarks"`

	BeforePhoto string `json:"before_photo"`
	AfterPhoto  string `json:"after_photo"`

	Invoice InvoiceSnapshot `gorm:"embedded;embeddedPrefix:invoice_" json:"invoice"`
	Payment PaymentInfo     `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`

	BillID *uint `gorm:"index" json:"bill_id"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Work model
func (Work) TableName() string {
	return "works"
}

// AssignedTo reports whether the work is assigned to the given technician.
func (w *Work) AssignedTo(technicianID uint) bool {
	return w.TechnicianID != nil && *w.TechnicianID == technicianID
}

// HasCoordinates reports whether the job site position is known.
func (w *Work) HasCoordinates() bool {
	return w.Lat != nil && w.Lng != nil
}
