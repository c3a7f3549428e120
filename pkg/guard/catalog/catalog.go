// Package catalog provides Badger DB-backed storage for capture history.
// Every finalized capture is recorded here so the history command can browse
// past captures without parsing the audit logs.
package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/rcastle/filetrap/pkg/filetrap/types"
)

// Key prefix for capture records.
const prefixCapture = "c:"

// Catalog is the capture history store backed by Badger DB.
type Catalog struct {
	db *badger.DB
}

// Open opens or creates a catalog at the given path.
func Open(path string) (*Catalog, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Catalog{db: db}, nil
}

// Close closes the catalog.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put stores a capture record. The destination path is unique per capture,
// so it disambiguates records sharing a timestamp.
func (c *Catalog) Put(res types.CaptureResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}

	key := captureKey(res)
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// List returns capture records sorted by timestamp descending (newest
// first). If limit is 0 or negative, all records are returned.
func (c *Catalog) List(limit int) ([]types.CaptureResult, error) {
	var results []types.CaptureResult

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixCapture)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var res types.CaptureResult
				if err := json.Unmarshal(val, &res); err != nil {
					return nil // Skip records that can't be parsed
				}
				results = append(results, res)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Count returns the number of capture records.
func (c *Catalog) Count() (int, error) {
	count := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixCapture)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Clean removes records older than the retention period. Returns the number
// of records removed.
func (c *Catalog) Clean(retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)

	var stale [][]byte
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixCapture)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var res types.CaptureResult
				if err := json.Unmarshal(val, &res); err != nil {
					return nil
				}
				if res.Timestamp.Before(cutoff) {
					stale = append(stale, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, key := range stale {
		err := c.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return 0, err
		}
	}

	return len(stale), nil
}

// captureKey builds a sortable, unique key for a record.
func captureKey(res types.CaptureResult) []byte {
	return []byte(fmt.Sprintf("%s%s|%s", prefixCapture,
		res.Timestamp.UTC().Format(time.RFC3339Nano), res.DestPath))
}
