//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(user domain.User) (domain.User, error)
	GetUserByEmail(email string) (domain.User, error)
	GetUserByID(id string) (domain.User, error)
	ListUsers() ([]domain.User, error)
	SetOnline(id string, online bool) error
}

// UserRepository persists accounts in BadgerDB.
// Keys: "user:{email}" holds the record, "userid:{id}" points back at the
// email so by-ID lookups stay a two-key read.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(email string) []byte { return []byte("user:" + email) }
func userIDKey(id string) []byte  { return []byte("userid:" + id) }

// CreateUser assigns an ID and persists the account. Email uniqueness is
// checked inside the same transaction that writes the record.
func (u *UserRepository) CreateUser(user domain.User) (domain.User, error) {
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	if user.StatusLine == "" {
		user.StatusLine = domain.DefaultStatusLine
	}

	err := update(u.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(user.Email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := setJSON(txn, userKey(user.Email), user); err != nil {
			return err
		}
		return txn.Set(userIDKey(user.ID), []byte(user.Email))
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u *UserRepository) GetUserByEmail(email string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(email), &user)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrNotFound
	}
	return user, err
}

func (u *UserRepository) GetUserByID(id string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		email, err := getString(txn, userIDKey(id))
		if err != nil {
			return err
		}
		return getJSON(txn, userKey(email), &user)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrNotFound
	}
	return user, err
}

// ListUsers returns every account sorted by name.
func (u *UserRepository) ListUsers() ([]domain.User, error) {
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte("user:")
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(options.Prefix); it.ValidForPrefix(options.Prefix); it.Next() {
			var user domain.User
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &user)
			})
			if err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

// SetOnline flips the persisted presence flag. Callers treat failures as
// best-effort; the registry remains the authoritative signal.
func (u *UserRepository) SetOnline(id string, online bool) error {
	return update(u.db, func(txn *badger.Txn) error {
		email, err := getString(txn, userIDKey(id))
		if err != nil {
			return fmt.Errorf("unknown user %s: %w", id, err)
		}
		var user domain.User
		if err := getJSON(txn, userKey(email), &user); err != nil {
			return err
		}
		user.Online = online
		return setJSON(txn, userKey(email), user)
	})
}
