package history

import (
	"context"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"
)

const repEntity = "rep"

// BadgerStore keeps msgpack encoded reps under rep/<id> keys
type BadgerStore struct {
	entityPrefix []byte
	db           *badger.DB
}

// OpenBadger opens the store in dir. An empty dir keeps everything in memory.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerStore{
		entityPrefix: []byte(repEntity + "/"),
		db:           db,
	}, nil
}

func (b *BadgerStore) buildKey(id string) []byte {
	return []byte(fmt.Sprintf("%s%s", b.entityPrefix, id))
}

func (b *BadgerStore) Append(_ context.Context, rec RepRecord) error {
	if !rec.Completed() {
		return nil
	}
	buf, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal rep: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.buildKey(rec.ID), buf)
	})
}

// List returns reps newest first. Keys sort by ksuid, which sorts by time.
func (b *BadgerStore) List(ctx context.Context, limit int) ([]RepRecord, error) {
	var reps []RepRecord
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(b.entityPrefix); it.ValidForPrefix(b.entityPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec RepRecord
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			reps = append(reps, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reps: %w", err)
	}

	sort.SliceStable(reps, func(i, j int) bool { return reps[i].ID > reps[j].ID })
	if limit > 0 && len(reps) > limit {
		reps = reps[:limit]
	}
	return reps, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
