package raster

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const BoltStoreType = "BoltStore"

var boltBucketName = []byte("raster")

// BoltStore keeps a whole dataset in a single bbolt file, one key per
// metadata document or chunk.
type BoltStore struct {
	path string
	db   *bolt.DB
}

var _ Store = (*BoltStore)(nil)

func NewBoltStore(path string) (*BoltStore, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPermissionBits); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt store %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize bolt store")
	}

	return &BoltStore{path: path, db: db}, nil
}

func (s *BoltStore) Type() string { return BoltStoreType }

func (s *BoltStore) URI() string { return "bolt://" + s.path }

func (s *BoltStore) Get(key string) (io.ReadCloser, error) {
	var d []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucketName).Get([]byte(key))
		if v == nil {
			return errors.Wrap(ErrNotFound, key)
		}
		// v is only valid for the life of the transaction
		d = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(d)), nil
}

func (s *BoltStore) Put(key string, val io.Reader) error {
	d, err := io.ReadAll(val)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucketName).Put([]byte(key), d)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
