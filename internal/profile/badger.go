package profile

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStorage persists profile documents in a BadgerDB key-value store,
// keyed by profile id. Useful when profiles outgrow a flat directory or when
// the data dir sits on a filesystem with poor small-file behavior.
type BadgerStorage struct {
	db *badger.DB
}

// NewBadgerStorage opens (or creates) the Badger database at dirPath.
func NewBadgerStorage(dirPath string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(dirPath).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("profile: open badger store: %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

// Init is a no-op: the database directory is created on open.
func (b *BadgerStorage) Init() error { return nil }

func (b *BadgerStorage) Read(id string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("profile: read %s: %w", id, err)
	}
	return data, nil
}

func (b *BadgerStorage) Write(id string, data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(id), data)
	})
	if err != nil {
		return fmt.Errorf("profile: write %s: %w", id, err)
	}
	return nil
}

// Delete removes the record for id. Badger's Delete is silent on missing
// keys, so existence is checked first to surface deletes of absent records
// the same way the file backend does.
func (b *BadgerStorage) Delete(id string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(id)); err != nil {
			return err
		}
		return txn.Delete([]byte(id))
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("profile: delete %s: %w", id, err)
	}
	return nil
}

func (b *BadgerStorage) List() ([]string, error) {
	var ids []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("profile: list badger store: %w", err)
	}
	return ids, nil
}

func (b *BadgerStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
