package repositories

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// transactionRetries bounds how often an update is replayed after a
// serialization conflict. Conflicts happen when two connections race on the
// same keys, e.g. simultaneous first sends for a fresh pair.
const transactionRetries = 5

// update runs fn in a read-write transaction, replaying it on ErrConflict so
// concurrent writers serialize instead of failing.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for range transactionRetries {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if err != nil {
		return "", err
	}
	var out string
	err = item.Value(func(val []byte) error {
		out = string(val)
		return nil
	})
	return out, err
}
