package store

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

func init() {
	RegisterDriver("leveldb", NewStoreBackendLevelDB)
	RegisterDriver("memory", NewStoreBackendMemory)
}

type StoreBackendLevelDB struct {
	db *leveldb.DB
}

func NewStoreBackendLevelDB(path string) (StoreBackend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &StoreBackendLevelDB{db: db}, nil
}

// NewStoreBackendMemory keeps everything in process memory; path is ignored.
func NewStoreBackendMemory(path string) (StoreBackend, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &StoreBackendLevelDB{db: db}, nil
}

func (st *StoreBackendLevelDB) Close() error {
	return st.db.Close()
}

func (st *StoreBackendLevelDB) View(fn func(txn StoreReader) error) error {
	snap, err := st.db.GetSnapshot()
	if err != nil {
		return errors.WithStack(err)
	}
	defer snap.Release()
	return fn(&storeBackendLevelDBSnapshot{snap: snap})
}

func (st *StoreBackendLevelDB) Update(fn func(txn StoreWriter) error) error {
	txn, err := st.db.OpenTransaction()
	if err != nil {
		return errors.WithStack(err)
	}
	if err := fn(&storeBackendLevelDBTx{txn: txn}); err != nil {
		txn.Discard()
		return err
	}
	if err := txn.Commit(); err != nil {
		txn.Discard()
		return errors.WithStack(err)
	}
	return nil
}

// prefixRange covers every key starting with prefix.
func prefixRange(prefix []byte) *util.Range {
	if len(prefix) == 0 {
		return nil
	}
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return &util.Range{Start: prefix, Limit: end}
		}
	}
	// prefix is all 0xff
	return &util.Range{Start: prefix}
}

type iteratorSource interface {
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

func iterate(src iteratorSource, prefix []byte, fn func(key []byte, value []byte) error) error {
	it := src.NewIterator(prefixRange(prefix), nil)
	defer it.Release()
	for it.Next() {
		if !bytes.HasPrefix(it.Key(), prefix) {
			break
		}
		if err := fn(copyBytes(it.Key()), copyBytes(it.Value())); err != nil {
			return err
		}
	}
	return errors.WithStack(it.Error())
}

func copyBytes(bs []byte) []byte {
	result := make([]byte, len(bs))
	copy(result, bs)
	return result
}

func get(value []byte, err error) ([]byte, error) {
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotExistKey
		}
		return nil, errors.WithStack(err)
	}
	return value, nil
}

type storeBackendLevelDBSnapshot struct {
	snap *leveldb.Snapshot
}

func (r *storeBackendLevelDBSnapshot) Get(key []byte) ([]byte, error) {
	return get(r.snap.Get(key, nil))
}

func (r *storeBackendLevelDBSnapshot) Iterate(prefix []byte, fn func(key []byte, value []byte) error) error {
	return iterate(r.snap, prefix, fn)
}

type storeBackendLevelDBTx struct {
	txn *leveldb.Transaction
}

func (r *storeBackendLevelDBTx) Get(key []byte) ([]byte, error) {
	return get(r.txn.Get(key, nil))
}

func (r *storeBackendLevelDBTx) Iterate(prefix []byte, fn func(key []byte, value []byte) error) error {
	return iterate(r.txn, prefix, fn)
}

func (r *storeBackendLevelDBTx) Set(key []byte, value []byte) error {
	return errors.WithStack(r.txn.Put(key, value, nil))
}

func (r *storeBackendLevelDBTx) Delete(key []byte) error {
	return errors.WithStack(r.txn.Delete(key, nil))
}
