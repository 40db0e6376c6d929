package testutil

import (
	"context"
	"slices"
	"sync"
)

// MockNATSClient is an in-memory publisher for testing. It stores every
// published message in publish order.
type MockNATSClient struct {
	mu       sync.RWMutex
	messages map[string][][]byte
	order    []string

	// PublishErr, if set, is returned by Publish and nothing is stored
	PublishErr error
}

// NewMockNATSClient creates a new mock NATS client.
func NewMockNATSClient() *MockNATSClient {
	return &MockNATSClient{
		messages: make(map[string][][]byte),
	}
}

// Publish stores data under subject
func (c *MockNATSClient) Publish(_ context.Context, subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.PublishErr != nil {
		return c.PublishErr
	}
	c.messages[subject] = append(c.messages[subject], data)
	c.order = append(c.order, subject)
	return nil
}

// GetMessages returns a copy of the messages published on subject
func (c *MockNATSClient) GetMessages(subject string) [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.messages[subject])
}

// Subjects returns the subjects of all published messages in publish order
func (c *MockNATSClient) Subjects() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// TotalCount returns the number of messages on all subjects
func (c *MockNATSClient) TotalCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
