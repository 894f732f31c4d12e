package services

import (
	"log"
	"sync"

	"github.com/onestep-solution/field-service-api/config"
	"github.com/onestep-solution/field-service-api/models"
)

// Notifier defines the interface for the notification side-channel. Core
// state transitions depend only on this capability, never on delivery
// details; failures are logged and swallowed.
type Notifier interface {
	Notify(userID uint, role, title, message, kind, link string)
}

var notifierInstance Notifier

// InitNotifier initializes the database-backed notifier
func InitNotifier() Notifier {
	notifierInstance = &DBNotifier{}
	return notifierInstance
}

// GetNotifier returns the notifier instance
func GetNotifier() Notifier {
	return notifierInstance
}

// SetNotifier sets the notifier instance (primarily for testing)
func SetNotifier(n Notifier) {
	notifierInstance = n
}

// DBNotifier appends notification rows to the database.
type DBNotifier struct{}

// Notify persists one notification event. Best-effort: a write failure is
// logged, never propagated to the caller's state transition.
func (n *DBNotifier) Notify(userID uint, role, title, message, kind, link string) {
	notification := models.Notification{
		UserID:  userID,
		Role:    role,
		Title:   title,
		Message: message,
		Kind:    kind,
		Link:    link,
	}
	if err := config.GetDB().Create(&notification).Error; err != nil {
		log.Printf("notification write failed for user %d: %v", userID, err)
	}
}

// FakeNotifier records notifications in memory for test assertions
type FakeNotifier struct {
	events []models.Notification
	mu     sync.Mutex
}

// NewFakeNotifier creates a new in-memory notifier
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

// SetAsFakeForTesting sets this fake as the global notifier for testing
func (f *FakeNotifier) SetAsFakeForTesting() {
	SetNotifier(f)
}

// Notify records the event
func (f *FakeNotifier) Notify(userID uint, role, title, message, kind, link string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, models.Notification{
		UserID: userID, Role: role, Title: title, Message: message, Kind: kind, Link: link,
	})
}

// Events returns a copy of all recorded notifications
func (f *FakeNotifier) Events() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Notification, len(f.events))
	copy(out, f.events)
	return out
}

// Clear removes all recorded notifications
func (f *FakeNotifier) Clear() {
	f.mu.Lock()
	f.events = nil
	f.mu.Unlock()
}
