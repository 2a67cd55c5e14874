package mailbox

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/reconflow/reconflow/internal/service"
)

// Mock is an in-memory service.Mailbox for tests. Queries match any
// message whose subject, body or sender contains the query string.
type Mock struct {
	Messages    map[string]*service.Message
	Attachments map[string][]byte // keyed messageID/attachmentID
	SearchErr   error
	GetErr      error

	mu           sync.Mutex
	searchCalls  int
	messageCalls int
}

var _ service.Mailbox = (*Mock)(nil)

// NewMock creates an empty mock mailbox.
func NewMock() *Mock {
	return &Mock{
		Messages:    make(map[string]*service.Message),
		Attachments: make(map[string][]byte),
	}
}

// AddMessage registers a message and its attachments.
func (m *Mock) AddMessage(msg *service.Message, attachments map[string][]byte) {
	m.Messages[msg.ID] = msg
	for attID, data := range attachments {
		m.Attachments[msg.ID+"/"+attID] = data
	}
}

// Search implements service.Mailbox.
func (m *Mock) Search(_ context.Context, query string, maxResults int64) ([]service.MessageRef, error) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	ids := make([]string, 0, len(m.Messages))
	for id := range m.Messages {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var refs []service.MessageRef
	for _, id := range ids {
		msg := m.Messages[id]
		if containsFold(msg.Subject, query) || containsFold(msg.Body, query) || containsFold(msg.From, query) {
			refs = append(refs, service.MessageRef{ID: id})
		}
		if int64(len(refs)) >= maxResults {
			break
		}
	}
	return refs, nil
}

// GetMessage implements service.Mailbox.
func (m *Mock) GetMessage(_ context.Context, id string) (*service.Message, error) {
	m.mu.Lock()
	m.messageCalls++
	m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	msg, ok := m.Messages[id]
	if !ok {
		return nil, &notFoundError{id: id}
	}
	return msg, nil
}

// GetAttachment implements service.Mailbox.
func (m *Mock) GetAttachment(_ context.Context, messageID, attachmentID string) ([]byte, error) {
	data, ok := m.Attachments[messageID+"/"+attachmentID]
	if !ok {
		return nil, &notFoundError{id: attachmentID}
	}
	return data, nil
}

// SearchCalls reports how many searches were issued.
func (m *Mock) SearchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls
}

type notFoundError struct{ id string }

func (e *notFoundError) Error() string { return "message not found: " + e.id }

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
