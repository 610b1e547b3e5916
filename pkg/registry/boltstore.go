package registry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// _metadataBucketKey 是一个特殊的 bucket，用于存放 registry 的元数据。
	_metadataBucketKey = []byte("_metadata")
	// _objectsBucketKey 存放所有 API 对象，key 为 group/version/resource/namespace/name
	_objectsBucketKey = []byte("objects")
	// _globalResourceVersionKey 是存储全局版本号的 key。
	_globalResourceVersionKey = []byte("globalResourceVersion")
)

// BoltStore 实现了 Store 接口，使用 bbolt 作为后端。
type BoltStore struct {
	db *bolt.DB
}

var _ Store = &BoltStore{}

// OpenBoltStore 打开（必要时创建）path 处的 bbolt 数据库。
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}
	store, err := NewBoltStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewBoltStore 基于一个已经打开的 bbolt 数据库实例创建 BoltStore。
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	// 初始化 bucket
	err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(_metadataBucketKey); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(_objectsBucketKey)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(_objectsBucketKey).Get([]byte(key))
		if v == nil {
			return ErrKeyNotFound
		}
		// bbolt 返回的切片只在事务内有效
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

func (s *BoltStore) Put(key string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(_objectsBucketKey).Put([]byte(key), data)
	})
}

func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(_objectsBucketKey).Delete([]byte(key))
	})
}

func (s *BoltStore) List(prefix string) ([][]byte, error) {
	var items [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(_objectsBucketKey).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			items = append(items, append([]byte(nil), v...))
		}
		return nil
	})
	return items, err
}

func (s *BoltStore) NextResourceVersion() (uint64, error) {
	var rv uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		rv, err = getAndIncrementGlobalRV(tx.Bucket(_metadataBucketKey))
		return err
	})
	return rv, err
}

func (s *BoltStore) CurrentResourceVersion() (uint64, error) {
	var rv uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(_metadataBucketKey).Get(_globalResourceVersionKey); b != nil {
			rv = binary.BigEndian.Uint64(b)
		}
		return nil
	})
	return rv, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// getAndIncrementGlobalRV 是一个在事务内部调用的辅助函数。
// bbolt 同一时间只允许一个写事务，所以读取和递增是原子的。
func getAndIncrementGlobalRV(metaBucket *bolt.Bucket) (uint64, error) {
	currentRVBytes := metaBucket.Get(_globalResourceVersionKey)
	var currentRV uint64 = 0
	if currentRVBytes != nil {
		currentRV = binary.BigEndian.Uint64(currentRVBytes)
	}

	newRV := currentRV + 1

	newRVBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(newRVBytes, newRV)

	if err := metaBucket.Put(_globalResourceVersionKey, newRVBytes); err != nil {
		return 0, err
	}

	return newRV, nil
}
