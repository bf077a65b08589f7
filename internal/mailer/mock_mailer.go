package mailer

import (
	"sync"
)

// Email is a receipt the MockMailer accepted.
type Email struct {
	Recipient    string
	TemplateFile string
	Data         any
}

// MockMailer keeps receipts in memory. When Err is set every Send fails with
// it and nothing is recorded.
type MockMailer struct {
	mu     sync.RWMutex
	emails []Email
	Err    error
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) Send(recipient, templateFile string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.emails = append(m.emails, Email{Recipient: recipient, TemplateFile: templateFile, Data: data})
	return nil
}

// GetSentEmails returns the accepted receipts in send order.
func (m *MockMailer) GetSentEmails() []Email {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]Email(nil), m.emails...)
}

func (m *MockMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.emails = nil
	m.Err = nil
}
