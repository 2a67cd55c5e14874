package mailbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconflow/reconflow/internal/service"
)

func TestMockSearchOrderIsStable(t *testing.T) {
	m := NewMock()
	for _, id := range []string{"msg-c", "msg-a", "msg-b"} {
		m.AddMessage(&service.Message{ID: id, Subject: "Invoice INV-100"}, nil)
	}

	for i := 0; i < 5; i++ {
		refs, err := m.Search(context.Background(), "INV-100", 10)
		require.NoError(t, err)
		require.Len(t, refs, 3)
		assert.Equal(t, "msg-a", refs[0].ID)
		assert.Equal(t, "msg-b", refs[1].ID)
		assert.Equal(t, "msg-c", refs[2].ID)
	}
}

func TestMockSearchRespectsMaxResults(t *testing.T) {
	m := NewMock()
	for _, id := range []string{"msg-c", "msg-a", "msg-b"} {
		m.AddMessage(&service.Message{ID: id, Subject: "Invoice INV-100"}, nil)
	}

	refs, err := m.Search(context.Background(), "INV-100", 2)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "msg-a", refs[0].ID)
	assert.Equal(t, "msg-b", refs[1].ID)
}
