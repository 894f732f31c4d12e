package models

import (
	"time"

	"gorm.io/gorm"
)

// Bill lifecycle states.
const (
	BillDraft     = "draft"
	BillSent      = "sent"
	BillPaid      = "paid"
	BillCancelled = "cancelled"
)

// Payment methods recognized on a Bill.
const (
	PayCash        = "cash"
	PayUPI         = "upi"
	PayNotSelected = "not_selected"
)

// BillItem is one material line on a bill.
type BillItem struct {
	ID     uint    `gorm:"primaryKey" json:"id"`
	BillID uint    `gorm:"not null;index" json:"bill_id"`
	Name   string  `gorm:"not null" json:"name"`
	Qty    int     `gorm:"not null;check:qty >= 1" json:"qty"`
	Price  float64 `gorm:"not null;check:price >= 0" json:"price"`
}

// TableName specifies the table name for the BillItem model
func (BillItem) TableName() string {
	return "bill_items"
}

// Bill is the financial settlement record for a Work. TotalAmount equals
// the item sum plus service charge plus taxes at creation time; once status
// is "paid" the amounts are never changed again (only invoice id and pdf
// path may be backfilled).
type Bill struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	WorkID       uint `gorm:"not null;index" json:"work_id"`
	Work         Work `gorm:"foreignKey:WorkID" json:"-"`
	TechnicianID uint `gorm:"not null;index" json:"technician_id"`
	ClientID     uint `gorm:"not null;index" json:"client_id"`

	Items         []BillItem `gorm:"foreignKey:BillID" json:"items"`
	ServiceCharge float64    `gorm:"default:0" json:"service_charge"`
	Taxes         float64    `gorm:"default:0" json:"taxes"`
	TotalAmount   float64    `gorm:"not null" json:"total_amount"`

	Status        string `gorm:"not null;default:'draft'" json:"status"`
	PaymentMethod string `gorm:"default:'not_selected'" json:"payment_method"`

	PaymentOrderID string `json:"payment_order_id"`
	PaymentID      string `json:"payment_id"`
	ProofURL       string `json:"proof_url"`
	ManualConfirm  bool   `gorm:"default:false" json:"manual_confirm"`

	InvoiceID string     `json:"invoice_id"` // INV-<year>-<4-digit-random>
	PDFPath   string     `json:"pdf_path"`
	PaidAt    *time.Time `json:"paid_at"`
	Notes     string     `json:"notes"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Bill model
func (Bill) TableName() string {
	return "bills"
}

// ItemTotal returns the material line-item sum.
func (b *Bill) ItemTotal() float64 {
	var sum float64
	for _, it := range b.Items {
		sum += float64(it.Qty) * it.Price
	}
	return sum
}
