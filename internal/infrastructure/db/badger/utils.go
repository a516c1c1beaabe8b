package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const (
	basketStoreDir = "basket"
	maxRetries     = 5
)

type txKey struct{}

// OpenStore opens the badgerhold store shared by all basket repositories.
// An empty base directory opens an in-memory store.
func OpenStore(config ...interface{}) (*badgerhold.Store, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, basketStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open basket store: %s", err)
	}
	return store, nil
}

// RunInTx runs fn inside a read-write badger transaction carried by the
// context. Nested calls join the outer transaction.
func RunInTx(
	ctx context.Context, store *badgerhold.Store, fn func(ctx context.Context) error,
) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx := store.Badger().NewTransaction(true)
	defer tx.Discard()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func txFromContext(ctx context.Context) *badger.Txn {
	tx, _ := ctx.Value(txKey{}).(*badger.Txn)
	return tx
}

func get(ctx context.Context, store *badgerhold.Store, key, result interface{}) error {
	if tx := txFromContext(ctx); tx != nil {
		return store.TxGet(tx, key, result)
	}
	return store.Get(key, result)
}

func find(
	ctx context.Context, store *badgerhold.Store, result interface{}, query *badgerhold.Query,
) error {
	if tx := txFromContext(ctx); tx != nil {
		return store.TxFind(tx, result, query)
	}
	return store.Find(result, query)
}

func insert(ctx context.Context, store *badgerhold.Store, key, data interface{}) error {
	if tx := txFromContext(ctx); tx != nil {
		return store.TxInsert(tx, key, data)
	}
	return withRetry(func() error {
		return store.Insert(key, data)
	})
}

func upsert(ctx context.Context, store *badgerhold.Store, key, data interface{}) error {
	if tx := txFromContext(ctx); tx != nil {
		return store.TxUpsert(tx, key, data)
	}
	return withRetry(func() error {
		return store.Upsert(key, data)
	})
}

func remove(ctx context.Context, store *badgerhold.Store, key, dataType interface{}) error {
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = store.TxDelete(tx, key, dataType)
	} else {
		err = withRetry(func() error {
			return store.Delete(key, dataType)
		})
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil
	}
	return err
}

// withRetry retries standalone writes that lose a race with another transaction.
func withRetry(fn func() error) error {
	err := fn()
	attempts := 1
	for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
		time.Sleep(100 * time.Millisecond)
		err = fn()
		attempts++
	}
	return err
}
