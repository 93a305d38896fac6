// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/ten-protocol/tenrunner/environment"
)

var ErrTableClosed = errors.New("table is not open")

// table is one independent pebble database living in its own directory.
type table struct {
	name string
	path string
	db   *pebble.DB
}

func newTable(dir, name string) table {
	return table{name: name, path: filepath.Join(dir, name)}
}

// create opens the table, creating it on disk if it does not exist.
func (t *table) create() error {
	if t.db != nil {
		return nil
	}
	db, err := pebble.Open(t.path, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("failed to open %s table at %s: %w", t.name, t.path, err)
	}
	t.db = db
	return nil
}

func (t *table) close() error {
	if t.db == nil {
		return nil
	}
	err := t.db.Close()
	t.db = nil
	if err != nil {
		return fmt.Errorf("failed to close %s table: %w", t.name, err)
	}
	return nil
}

func (t *table) get(key []byte) ([]byte, bool, error) {
	if t.db == nil {
		return nil, false, ErrTableClosed
	}
	val, closer, err := t.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	return append([]byte{}, val...), true, nil
}

func (t *table) set(key, value []byte) error {
	if t.db == nil {
		return ErrTableClosed
	}
	return t.db.Set(key, value, pebble.Sync)
}

// deletePrefix removes every key beginning with prefix.
func (t *table) deletePrefix(prefix []byte) error {
	if t.db == nil {
		return ErrTableClosed
	}
	return t.db.DeleteRange(prefix, prefixEnd(prefix), pebble.Sync)
}

// scan calls fn for each key under prefix in ascending order.
func (t *table) scan(prefix []byte, fn func(key, value []byte) error) error {
	if t.db == nil {
		return ErrTableClosed
	}
	iter, err := t.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return err
	}
	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			iter.Close()
			return err
		}
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return err
	}
	return iter.Close()
}

// last returns the greatest key and its value under prefix.
func (t *table) last(prefix []byte) ([]byte, []byte, bool, error) {
	if t.db == nil {
		return nil, nil, false, ErrTableClosed
	}
	iter, err := t.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return nil, nil, false, err
	}
	defer iter.Close()
	if !iter.Last() {
		return nil, nil, false, iter.Error()
	}
	key := append([]byte{}, iter.Key()...)
	value := append([]byte{}, iter.Value()...)
	return key, value, true, nil
}

func envPrefix(env environment.Environment) []byte {
	return []byte(env.String() + "/")
}

func joinKey(env environment.Environment, parts ...string) []byte {
	key := envPrefix(env)
	for _, p := range parts {
		key = append(key, p...)
		key = append(key, '/')
	}
	return key
}

// seriesKey orders entries of a time series by their timestamp.
func seriesKey(env environment.Environment, name string, at time.Time) []byte {
	return binary.BigEndian.AppendUint64(joinKey(env, name), uint64(at.UnixNano()))
}

func seriesTime(key []byte) time.Time {
	if len(key) < 8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(key[len(key)-8:])))
}

// prefixEnd returns the smallest key greater than every key with the given prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
