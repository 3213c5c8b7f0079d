package upstream

import (
	badger "github.com/dgraph-io/badger/v4"
)

// diskCache stores validated upstream responses on disk so repeated
// ingestion runs don't hit the network for the same completed event.
// Entries never expire: a finished session's data is immutable.
type diskCache struct {
	db *badger.DB
}

func openDiskCache(dir string) (*diskCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &diskCache{db: db}, nil
}

func (c *diskCache) get(key string) ([]byte, bool) {
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *diskCache) put(key string, data []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (c *diskCache) close() error {
	return c.db.Close()
}
