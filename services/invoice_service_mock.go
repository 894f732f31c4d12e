package services

import (
	"fmt"
	"sync"

	"github.com/onestep-solution/field-service-api/models"
)

// GeneratedInvoice captures one invoice rendered through the mock generator.
type GeneratedInvoice struct {
	BillID    uint
	WorkID    uint
	InvoiceID string
	HadUPIQR  bool
}

// MockInvoiceService records invoice generations instead of rendering PDFs
type MockInvoiceService struct {
	generated []GeneratedInvoice
	err       error
	seq       int
	mu        sync.Mutex
}

// NewMockInvoiceService creates a new mock invoice generator
func NewMockInvoiceService() *MockInvoiceService {
	return &MockInvoiceService{}
}

// SetAsMockForTesting sets this mock as the global invoice generator for testing
func (m *MockInvoiceService) SetAsMockForTesting() {
	SetInvoiceService(m)
}

// FailWith makes every subsequent Generate return err
func (m *MockInvoiceService) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Generate records the call and hands back a deterministic invoice id
func (m *MockInvoiceService) Generate(bill *models.Bill, work *models.Work, client, technician *models.User, upiQR []byte) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", "", m.err
	}
	m.seq++
	invoiceID := fmt.Sprintf("INV-TEST-%04d", m.seq)
	m.generated = append(m.generated, GeneratedInvoice{
		BillID:    bill.ID,
		WorkID:    work.ID,
		InvoiceID: invoiceID,
		HadUPIQR:  len(upiQR) > 0,
	})
	return fmt.Sprintf("/tmp/invoices/%s.pdf", invoiceID), invoiceID, nil
}

// Generated returns a copy of all recorded generations
func (m *MockInvoiceService) Generated() []GeneratedInvoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GeneratedInvoice, len(m.generated))
	copy(out, m.generated)
	return out
}

// Clear removes all recorded generations
func (m *MockInvoiceService) Clear() {
	m.mu.Lock()
	m.generated = nil
	m.seq = 0
	m.mu.Unlock()
}
