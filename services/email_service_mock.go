package services

import "sync"

// SentEmail captures one delivery made through the mock sender.
type SentEmail struct {
	To          string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// MockEmailService records outgoing email instead of delivering it
type MockEmailService struct {
	sent []SentEmail
	err  error
	mu   sync.Mutex
}

// NewMockEmailService creates a new mock email sender
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

// SetAsMockForTesting sets this mock as the global email sender for testing
func (m *MockEmailService) SetAsMockForTesting() {
	SetEmailService(m)
}

// FailWith makes every subsequent Send return err
func (m *MockEmailService) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Send records the email
func (m *MockEmailService) Send(to, subject, htmlBody string, attachments []Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, SentEmail{To: to, Subject: subject, HTMLBody: htmlBody, Attachments: attachments})
	return nil
}

// Sent returns a copy of all recorded emails
func (m *MockEmailService) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

// Clear removes all recorded emails
func (m *MockEmailService) Clear() {
	m.mu.Lock()
	m.sent = nil
	m.mu.Unlock()
}
