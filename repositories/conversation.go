//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	stderrors "errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IConversationRepository interface {
	FindOrCreate(a, b string) (domain.Conversation, error)
	Get(id string) (domain.Conversation, error)
	Touch(id, lastMessageID string, at time.Time) error
	ListForUser(userID string) ([]domain.Conversation, error)
}

// ConversationRepository persists the pairwise conversations.
//
// The record lives under "conv:{minID}:{maxID}" so the sorted pair is the
// uniqueness key; "convid:{id}" points at that key for by-ID lookups, and
// "convuser:{userID}:{id}" indexes membership for the list query.
type ConversationRepository struct {
	db *badger.DB
}

func NewConversationRepository(db *badger.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func pairKey(a, b string) []byte {
	lo, hi := domain.SortPair(a, b)
	return []byte("conv:" + lo + ":" + hi)
}

func convIDKey(id string) []byte { return []byte("convid:" + id) }

func memberKey(userID, convID string) []byte {
	return []byte("convuser:" + userID + ":" + convID)
}

// FindOrCreate returns the conversation for the unordered pair, creating it
// if absent. Lookup and insert share one transaction; when two first sends
// race from both directions the loser replays and finds the winner's row, so
// exactly one conversation ever exists per pair.
func (c *ConversationRepository) FindOrCreate(a, b string) (domain.Conversation, error) {
	var conv domain.Conversation
	key := pairKey(a, b)

	err := update(c.db, func(txn *badger.Txn) error {
		switch err := getJSON(txn, key, &conv); {
		case err == nil:
			return nil
		case !stderrors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		now := time.Now().UTC()
		lo, hi := domain.SortPair(a, b)
		conv = domain.Conversation{
			ID:           uuid.NewString(),
			ParticipantA: lo,
			ParticipantB: hi,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := setJSON(txn, key, conv); err != nil {
			return err
		}
		if err := txn.Set(convIDKey(conv.ID), key); err != nil {
			return err
		}
		if err := txn.Set(memberKey(lo, conv.ID), key); err != nil {
			return err
		}
		return txn.Set(memberKey(hi, conv.ID), key)
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func (c *ConversationRepository) Get(id string) (domain.Conversation, error) {
	var conv domain.Conversation
	err := c.db.View(func(txn *badger.Txn) error {
		key, err := getString(txn, convIDKey(id))
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(key), &conv)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Conversation{}, errors.ErrNotFound
	}
	return conv, err
}

// Touch records the newest message on the conversation aggregate.
func (c *ConversationRepository) Touch(id, lastMessageID string, at time.Time) error {
	return update(c.db, func(txn *badger.Txn) error {
		key, err := getString(txn, convIDKey(id))
		if err != nil {
			return err
		}
		var conv domain.Conversation
		if err := getJSON(txn, []byte(key), &conv); err != nil {
			return err
		}
		conv.LastMessageID = lastMessageID
		conv.UpdatedAt = at
		return setJSON(txn, []byte(key), conv)
	})
}

// ListForUser resolves the membership index into full conversations.
func (c *ConversationRepository) ListForUser(userID string) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	err := c.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte("convuser:" + userID + ":")
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(options.Prefix); it.ValidForPrefix(options.Prefix); it.Next() {
			var pair []byte
			err := it.Item().Value(func(val []byte) error {
				pair = append([]byte(nil), val...)
				return nil
			})
			if err != nil {
				return err
			}
			var conv domain.Conversation
			if err := getJSON(txn, pair, &conv); err != nil {
				return err
			}
			convs = append(convs, conv)
		}
		return nil
	})
	return convs, err
}
