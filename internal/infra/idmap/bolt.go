package idmap

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

var bucketName = []byte("vector_mapping")

// BoltStore keeps the vector to row mapping in an embedded bbolt file.
// Keys and values are 8 byte big endian integers.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (or creates) the mapping file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt mapping store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bolt mapping bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// PutAll writes mappings in a single transaction.
func (s *BoltStore) PutAll(ids map[faq.VectorID]faq.RowID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		for vectorID, rowID := range ids {
			if err := b.Put(encodeID(int64(vectorID)), encodeID(int64(rowID))); err != nil {
				return err
			}
		}
		return nil
	})
}

// RowIDFor implements faq.MappingStore.
func (s *BoltStore) RowIDFor(_ context.Context, id faq.VectorID) (faq.RowID, bool, error) {
	var (
		row   faq.RowID
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(encodeID(int64(id)))
		if v == nil {
			return nil
		}
		if len(v) != 8 {
			return fmt.Errorf("corrupt mapping value for vector %d", id)
		}
		row = faq.RowID(int64(binary.BigEndian.Uint64(v)))
		found = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return row, found, nil
}

func encodeID(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

var _ faq.MappingStore = (*BoltStore)(nil)
