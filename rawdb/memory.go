package rawdb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/everFinance/nftmarket/schema"
)

const (
	MemoryType = "memory"

	// entries must outlive the process, bigcache has no "never expire"
	memLifeWindow = 100 * 365 * 24 * time.Hour
	keySep        = "/"
)

// MemDB keeps buckets in a bigcache instance. Nothing survives a restart.
type MemDB struct {
	cache *bigcache.BigCache
}

func NewMemDB() (*MemDB, error) {
	cfg := bigcache.DefaultConfig(memLifeWindow)
	cfg.Shards = 16
	cfg.CleanWindow = 0 // no background eviction
	cfg.Verbose = false
	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return &MemDB{cache: cache}, nil
}

func memKey(bucket, key string) string {
	return bucket + keySep + key
}

func (m *MemDB) Type() string {
	return MemoryType
}

func (m *MemDB) Put(bucket, key string, value []byte) error {
	return m.cache.Set(memKey(bucket, key), value)
}

func (m *MemDB) Get(bucket, key string) ([]byte, error) {
	data, err := m.cache.Get(memKey(bucket, key))
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, schema.ErrNotExist
	}
	return data, err
}

func (m *MemDB) GetAllKey(bucket string) ([]string, error) {
	keys := make([]string, 0)
	prefix := bucket + keySep
	it := m.cache.Iterator()
	for it.SetNext() {
		entry, err := it.Value()
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(entry.Key(), prefix) {
			keys = append(keys, strings.TrimPrefix(entry.Key(), prefix))
		}
	}
	return keys, nil
}

func (m *MemDB) Delete(bucket, key string) error {
	err := m.cache.Delete(memKey(bucket, key))
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (m *MemDB) Exist(bucket, key string) bool {
	_, err := m.Get(bucket, key)
	return err == nil
}

func (m *MemDB) Close() error {
	return m.cache.Close()
}
