package store

import (
	"github.com/pkg/errors"
)

// errors
var (
	ErrNotExistDriver = errors.New("not exist driver")
	ErrNotExistKey    = errors.New("not exist key")
)

type StoreBackend interface {
	Close() error
	View(fn func(txn StoreReader) error) error
	Update(fn func(txn StoreWriter) error) error
}

type StoreReader interface {
	Get(key []byte) ([]byte, error)
	Iterate(prefix []byte, fn func(key []byte, value []byte) error) error
}

type StoreWriter interface {
	StoreReader
	Set(key []byte, value []byte) error
	Delete(key []byte) error
}

type CreateBackend func(path string) (StoreBackend, error)

var gDriverMap = map[string]CreateBackend{}

func RegisterDriver(name string, fn CreateBackend) {
	gDriverMap[name] = fn
}

func Create(name string, path string) (StoreBackend, error) {
	fn, has := gDriverMap[name]
	if !has {
		return nil, errors.Wrap(ErrNotExistDriver, name)
	}
	return fn(path)
}
