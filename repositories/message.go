//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

type IMessageRepository interface {
	Append(message domain.Message) error
	Get(messageID string) (domain.Message, error)
	ListByConversation(conversationID string) ([]domain.Message, error)
	UpdateStatus(messageID string, status domain.MessageStatus) (domain.Message, bool, error)
	MarkRead(conversationID, receiverID, senderID string) (int, error)
	PendingFor(conversationID, receiverID string) ([]domain.Message, error)
}

// MessageRepository is the append-only message log.
//
// The key is "msg:{conversation_id}:{timestamp_padded}:{message_id}":
//  1. 19-digit zero padding makes lexicographic order chronological order.
//  2. The message ID disambiguates two messages landing on the same
//     nanosecond.
//
// "msgid:{id}" points at the full key so status updates are addressed by ID.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

func messageKey(m domain.Message) []byte {
	return fmt.Appendf(nil, "msg:%s:%019d:%s", m.ConversationID, m.CreatedAt.UnixNano(), m.ID)
}

func messageIDKey(id string) []byte { return []byte("msgid:" + id) }

// Append persists a new message. Messages are never rewritten afterwards
// except for their status field.
func (m *MessageRepository) Append(message domain.Message) error {
	key := messageKey(message)
	return update(m.db, func(txn *badger.Txn) error {
		if err := setJSON(txn, key, message); err != nil {
			return err
		}
		return txn.Set(messageIDKey(message.ID), key)
	})
}

func (m *MessageRepository) Get(messageID string) (domain.Message, error) {
	var msg domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		key, err := getString(txn, messageIDKey(messageID))
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(key), &msg)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.ErrNotFound
	}
	return msg, err
}

// ListByConversation returns the conversation's messages oldest first.
// The padded timestamp in the key makes the forward scan chronological.
func (m *MessageRepository) ListByConversation(conversationID string) ([]domain.Message, error) {
	return m.scan(conversationID, func(domain.Message) bool { return true })
}

// PendingFor returns the still-unread messages addressed to receiverID,
// oldest first. The caller derives the unread count and the most recent
// unread message from this slice.
func (m *MessageRepository) PendingFor(conversationID, receiverID string) ([]domain.Message, error) {
	return m.scan(conversationID, func(msg domain.Message) bool {
		return msg.Receiver == receiverID && msg.Status.Pending()
	})
}

func (m *MessageRepository) scan(conversationID string, keep func(domain.Message) bool) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = fmt.Appendf(nil, "msg:%s:", conversationID)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(options.Prefix); it.ValidForPrefix(options.Prefix); it.Next() {
			var msg domain.Message
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			})
			if err != nil {
				return err
			}
			if keep(msg) {
				messages = append(messages, msg)
			}
		}
		return nil
	})
	return messages, err
}

// UpdateStatus advances a message's delivery state. Transitions that do not
// move forward in sent < delivered < read are silently skipped, so a late
// "delivered" can never undo "read". The returned bool reports whether the
// stored record changed.
func (m *MessageRepository) UpdateStatus(messageID string, status domain.MessageStatus) (domain.Message, bool, error) {
	var msg domain.Message
	changed := false
	err := update(m.db, func(txn *badger.Txn) error {
		changed = false
		key, err := getString(txn, messageIDKey(messageID))
		if err != nil {
			return err
		}
		if err := getJSON(txn, []byte(key), &msg); err != nil {
			return err
		}
		if !msg.Status.CanAdvance(status) {
			m.log.Debug("skipping backwards status transition",
				"message_id", messageID, "from", msg.Status, "to", status)
			return nil
		}
		msg.Status = status
		changed = true
		return setJSON(txn, []byte(key), msg)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, false, errors.ErrNotFound
	}
	return msg, changed, err
}

// MarkRead bulk-advances every pending message in the conversation that was
// sent by senderID to receiverID. The whole sweep runs in one transaction so
// it cannot interleave with a concurrent send's delivered transition, and the
// returned count is exactly the number of rows changed.
func (m *MessageRepository) MarkRead(conversationID, receiverID, senderID string) (int, error) {
	count := 0
	err := update(m.db, func(txn *badger.Txn) error {
		count = 0
		options := badger.DefaultIteratorOptions
		options.Prefix = fmt.Appendf(nil, "msg:%s:", conversationID)
		it := txn.NewIterator(options)

		type pending struct {
			key []byte
			msg domain.Message
		}
		var toFlip []pending
		for it.Seek(options.Prefix); it.ValidForPrefix(options.Prefix); it.Next() {
			var msg domain.Message
			key := it.Item().KeyCopy(nil)
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			})
			if err != nil {
				it.Close()
				return err
			}
			if msg.Receiver == receiverID && msg.Sender == senderID && msg.Status.Pending() {
				toFlip = append(toFlip, pending{key: key, msg: msg})
			}
		}
		it.Close()

		for _, p := range toFlip {
			p.msg.Status = domain.StatusRead
			if err := setJSON(txn, p.key, p.msg); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
