package cursor

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

// BadgerOpener returns an opener that iterates every key under prefix in a
// read-only transaction. Values are JSON metadata records.
func BadgerOpener(db *badger.DB, prefix []byte) IteratorOpener {
	return func(_ context.Context) (QueryIterator, error) {
		if db == nil || db.IsClosed() {
			return nil, errors.New("badger: database is closed")
		}
		txn := db.NewTransaction(false)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		it.Seek(prefix)
		return &badgerIterator{txn: txn, it: it, prefix: prefix}, nil
	}
}

type badgerIterator struct {
	txn    *badger.Txn
	it     *badger.Iterator
	prefix []byte
}

func (b *badgerIterator) NextBatch(ctx context.Context, size int) ([]models.RawMetadataRecord, error) {
	out := make([]models.RawMetadataRecord, 0, size)
	for ; len(out) < size && b.it.ValidForPrefix(b.prefix); b.it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := b.it.Item()
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			logger.FromContext(ctx).Warn("undecodable metadata value", "backend", models.StoreBadger, "key", string(item.Key()), "error", err)
			rec = models.RawMetadataRecord{}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (b *badgerIterator) Close() error {
	b.it.Close()
	b.txn.Discard()
	return nil
}
