package services

import (
	"fmt"
	"sync"
)

// MockPaymentGateway returns canned gateway order responses for testing
type MockPaymentGateway struct {
	orders []string
	err    error
	mu     sync.Mutex
}

// NewMockPaymentGateway creates a new mock gateway
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

// SetAsMockForTesting sets this mock as the global payment gateway for testing
func (m *MockPaymentGateway) SetAsMockForTesting() {
	SetPaymentGateway(m)
}

// FailWith makes every subsequent CreateOrder return err
func (m *MockPaymentGateway) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// CreateOrder records the order and echoes a gateway-shaped envelope
func (m *MockPaymentGateway) CreateOrder(workID uint, amount float64) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	orderID := fmt.Sprintf("TXN_%d_%d", workID, len(m.orders)+1)
	m.orders = append(m.orders, orderID)
	return map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"merchantTransactionId": orderID,
			"amount":                amount,
			"instrumentResponse": map[string]interface{}{
				"type": "UPI_INTENT",
			},
		},
	}, nil
}

// Orders returns a copy of all created order ids
func (m *MockPaymentGateway) Orders() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.orders))
	copy(out, m.orders)
	return out
}
