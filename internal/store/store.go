package store

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const DBFileName = "records.db"

// Bucket names
var (
	recordsBucket = []byte("records") // title -> encrypted body token
	metaBucket    = []byte("meta")    // vault identity - unencrypted
)

var metaVaultID = []byte("vault_id")

// ErrDuplicateTitle is returned by Put when the title is already taken.
// Existing records are never silently overwritten.
var ErrDuplicateTitle = errors.New("a record with this title already exists")

// Store provides BBolt-based storage for encrypted notes
type Store struct {
	db *bolt.DB
}

// Open opens or creates the record database in dir and ensures the bucket
// structure exists.
func Open(dir string) (*Store, error) {
	db, err := bolt.Open(filepath.Join(dir, DBFileName), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{recordsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Further operations on a closed store are a
// programming error.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get looks up a record body by exact title. The second return value reports
// whether the title exists.
func (s *Store) Get(title string) (string, bool, error) {
	var body string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(recordsBucket).Get([]byte(title))
		if data == nil {
			return nil
		}
		// Copy: the slice is only valid during the transaction.
		body = string(data)
		found = true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read record: %w", err)
	}
	return body, found, nil
}

// Put inserts a new record. Fails with ErrDuplicateTitle if the title exists.
func (s *Store) Put(title, body string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(recordsBucket)
		if records.Get([]byte(title)) != nil {
			return ErrDuplicateTitle
		}
		return records.Put([]byte(title), []byte(body))
	})
	if errors.Is(err, ErrDuplicateTitle) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

// Replace overwrites a record body in one transaction, inserting the title if
// absent. Put is the duplicate-checked path for new records.
func (s *Store) Replace(title, body string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Put([]byte(title), []byte(body))
	})
	if err != nil {
		return fmt.Errorf("failed to replace record: %w", err)
	}
	return nil
}

// Delete removes a record by title. Deleting an absent title is a no-op.
func (s *Store) Delete(title string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Delete([]byte(title))
	})
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Empty reports whether no records are stored.
func (s *Store) Empty() (bool, error) {
	var empty bool
	err := s.db.View(func(tx *bolt.Tx) error {
		empty = tx.Bucket(recordsBucket).Stats().KeyN == 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to inspect records: %w", err)
	}
	return empty, nil
}

// ForEach calls fn for every stored record. Used by the password-change flow
// to walk all bodies; titles are not otherwise enumerable from the UI.
func (s *Store) ForEach(fn func(title, body string) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			return fn(string(k), string(v))
		})
	})
}

// ReplaceAll overwrites the bodies of the given titles in one transaction.
// Either every record is rewritten or none is.
func (s *Store) ReplaceAll(records map[string]string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(recordsBucket)
		for title, body := range records {
			if err := bucket.Put([]byte(title), []byte(body)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to rewrite records: %w", err)
	}
	return nil
}

// Wipe destroys all records and the vault identity, recreating empty buckets.
func (s *Store) Wipe() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{recordsBucket, metaBucket} {
			if err := tx.DeleteBucket(bucket); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to wipe storage: %w", err)
	}
	return nil
}

// VaultID retrieves the vault ID, if one has been assigned.
func (s *Store) VaultID() (string, error) {
	var vaultID string
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(metaBucket).Get(metaVaultID)
		if data == nil {
			return fmt.Errorf("vault_id not found")
		}
		vaultID = string(data)
		return nil
	})
	return vaultID, err
}

// GetOrCreateVaultID retrieves the existing vault ID or generates a new one.
// The ID names this vault in the OS keyring.
func (s *Store) GetOrCreateVaultID() (string, error) {
	if vaultID, err := s.VaultID(); err == nil {
		return vaultID, nil
	}

	vaultID := uuid.NewString()
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(metaVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", fmt.Errorf("failed to store vault ID: %w", err)
	}
	return vaultID, nil
}
