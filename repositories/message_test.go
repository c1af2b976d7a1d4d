package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newMessageRepo(t *testing.T) *MessageRepository {
	t.Helper()
	return NewMessageRepository(newTestDB(t), slog.Default())
}

func newMessage(conversationID, sender, receiver, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         sender,
		Receiver:       receiver,
		Content:        content,
		Status:         domain.StatusSent,
		CreatedAt:      at,
	}
}

func TestMessageRepository_List_Is_Chronological(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepo(t)
	convID := uuid.NewString()
	base := time.Now().UTC()

	// Given messages appended out of order
	second := newMessage(convID, "alice", "bob", "second", base.Add(time.Second))
	first := newMessage(convID, "bob", "alice", "first", base)
	third := newMessage(convID, "alice", "bob", "third", base.Add(2*time.Second))
	req.NoError(repo.Append(second))
	req.NoError(repo.Append(third))
	req.NoError(repo.Append(first))

	// When the conversation history is listed
	messages, err := repo.ListByConversation(convID)
	req.NoError(err)

	// Then messages come back oldest first
	req.Len(messages, 3)
	req.Equal("first", messages[0].Content)
	req.Equal("second", messages[1].Content)
	req.Equal("third", messages[2].Content)

	// And another conversation's history stays empty
	others, err := repo.ListByConversation(uuid.NewString())
	req.NoError(err)
	req.Empty(others)
}

func TestMessageRepository_UpdateStatus_Only_Moves_Forward(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepo(t)
	msg := newMessage(uuid.NewString(), "alice", "bob", "hello", time.Now().UTC())
	req.NoError(repo.Append(msg))

	// When the message is delivered then read
	updated, changed, err := repo.UpdateStatus(msg.ID, domain.StatusDelivered)
	req.NoError(err)
	req.True(changed)
	req.Equal(domain.StatusDelivered, updated.Status)

	updated, changed, err = repo.UpdateStatus(msg.ID, domain.StatusRead)
	req.NoError(err)
	req.True(changed)
	req.Equal(domain.StatusRead, updated.Status)

	// Then a stray late "delivered" does not undo "read"
	updated, changed, err = repo.UpdateStatus(msg.ID, domain.StatusDelivered)
	req.NoError(err)
	req.False(changed)
	req.Equal(domain.StatusRead, updated.Status)

	got, err := repo.Get(msg.ID)
	req.NoError(err)
	req.Equal(domain.StatusRead, got.Status)
}

func TestMessageRepository_Get_Unknown_Message(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepo(t)

	_, err := repo.Get(uuid.NewString())
	req.ErrorIs(err, errors.ErrNotFound)

	_, _, err = repo.UpdateStatus(uuid.NewString(), domain.StatusDelivered)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestMessageRepository_MarkRead_Counts_Only_Pending_Inbound(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepo(t)
	convID := uuid.NewString()
	base := time.Now().UTC()

	// Given two pending messages for bob, one already read, and one
	// going the other way
	pending1 := newMessage(convID, "alice", "bob", "one", base)
	pending2 := newMessage(convID, "alice", "bob", "two", base.Add(time.Second))
	alreadyRead := newMessage(convID, "alice", "bob", "old", base.Add(-time.Minute))
	alreadyRead.Status = domain.StatusRead
	outbound := newMessage(convID, "bob", "alice", "reply", base.Add(2*time.Second))
	for _, msg := range []domain.Message{pending1, pending2, alreadyRead, outbound} {
		req.NoError(repo.Append(msg))
	}

	// When bob marks the conversation read
	count, err := repo.MarkRead(convID, "bob", "alice")
	req.NoError(err)

	// Then only the pending inbound messages were flipped
	req.Equal(2, count)
	for _, id := range []string{pending1.ID, pending2.ID} {
		got, err := repo.Get(id)
		req.NoError(err)
		req.Equal(domain.StatusRead, got.Status)
	}
	got, err := repo.Get(outbound.ID)
	req.NoError(err)
	req.Equal(domain.StatusSent, got.Status)

	// And a second sweep has nothing left to do
	count, err = repo.MarkRead(convID, "bob", "alice")
	req.NoError(err)
	req.Zero(count)
}

func TestMessageRepository_PendingFor(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepo(t)
	convID := uuid.NewString()
	base := time.Now().UTC()

	unreadOld := newMessage(convID, "alice", "bob", "old unread", base)
	delivered := newMessage(convID, "alice", "bob", "delivered", base.Add(time.Second))
	delivered.Status = domain.StatusDelivered
	read := newMessage(convID, "alice", "bob", "seen", base.Add(2*time.Second))
	read.Status = domain.StatusRead
	unreadNew := newMessage(convID, "alice", "bob", "new unread", base.Add(3*time.Second))
	forAlice := newMessage(convID, "bob", "alice", "for alice", base.Add(4*time.Second))
	for _, msg := range []domain.Message{unreadOld, delivered, read, unreadNew, forAlice} {
		req.NoError(repo.Append(msg))
	}

	// Sent and delivered messages addressed to bob are pending, read
	// ones and alice's inbound are not
	pending, err := repo.PendingFor(convID, "bob")
	req.NoError(err)
	req.Len(pending, 3)
	req.Equal("old unread", pending[0].Content)
	req.Equal("delivered", pending[1].Content)
	req.Equal("new unread", pending[2].Content)
}
