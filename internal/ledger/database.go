package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	entryBucketName     = "entries"
	recurringBucketName = "recurring"
)

// ErrNotFound reports that a referenced entry or recurring definition does
// not exist (or, for ProcessOne, is inactive).
var ErrNotFound = errors.New("not found")

// DB defines the interface for database operations
type DB interface {
	// SaveEntry saves a ledger entry to the database
	SaveEntry(entry *Entry) error

	// GetEntry retrieves a ledger entry by ID
	GetEntry(id string) (*Entry, error)

	// ListEntries returns all ledger entries
	ListEntries() ([]*Entry, error)

	// DeleteEntry removes a ledger entry from the database
	DeleteEntry(id string) error

	// SaveRecurring saves a recurring definition to the database
	SaveRecurring(def *RecurringDefinition) error

	// GetRecurring retrieves a recurring definition by ID
	GetRecurring(id string) (*RecurringDefinition, error)

	// ListRecurring returns all recurring definitions
	ListRecurring() ([]*RecurringDefinition, error)

	// ListActiveRecurring returns the definitions the scheduler evaluates
	ListActiveRecurring() ([]*RecurringDefinition, error)

	// UpdateRecurringLastProcessed advances a definition's last-processed
	// marker without touching any owner-controlled field
	UpdateRecurringLastProcessed(id string, date string) error

	// DeleteRecurring removes a recurring definition from the database
	DeleteRecurring(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(entryBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(recurringBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveEntry saves a ledger entry to the database
func (b *BoltDB) SaveEntry(entry *Entry) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entryBucketName))
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling entry: %w", err)
		}
		return bucket.Put([]byte(entry.ID), data)
	})
}

// GetEntry retrieves a ledger entry by ID
func (b *BoltDB) GetEntry(id string) (*Entry, error) {
	var entry *Entry
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entryBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("entry %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntries returns all ledger entries
func (b *BoltDB) ListEntries() ([]*Entry, error) {
	entries := make([]*Entry, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entryBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling entry: %w", err)
			}
			entries = append(entries, &entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteEntry removes a ledger entry from the database
func (b *BoltDB) DeleteEntry(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entryBucketName))
		return bucket.Delete([]byte(id))
	})
}

// SaveRecurring saves a recurring definition to the database
func (b *BoltDB) SaveRecurring(def *RecurringDefinition) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recurringBucketName))
		data, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("marshaling recurring definition: %w", err)
		}
		return bucket.Put([]byte(def.ID), data)
	})
}

// GetRecurring retrieves a recurring definition by ID
func (b *BoltDB) GetRecurring(id string) (*RecurringDefinition, error) {
	var def *RecurringDefinition
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recurringBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("recurring definition %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &def)
	})
	if err != nil {
		return nil, err
	}
	return def, nil
}

// ListRecurring returns all recurring definitions
func (b *BoltDB) ListRecurring() ([]*RecurringDefinition, error) {
	return b.listRecurring(false)
}

// ListActiveRecurring returns only the active recurring definitions
func (b *BoltDB) ListActiveRecurring() ([]*RecurringDefinition, error) {
	return b.listRecurring(true)
}

func (b *BoltDB) listRecurring(activeOnly bool) ([]*RecurringDefinition, error) {
	defs := make([]*RecurringDefinition, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recurringBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var def RecurringDefinition
			if err := json.Unmarshal(v, &def); err != nil {
				return fmt.Errorf("unmarshaling recurring definition: %w", err)
			}
			if activeOnly && !def.IsActive {
				return nil
			}
			defs = append(defs, &def)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// UpdateRecurringLastProcessed advances a definition's last-processed marker.
// The read-modify-write runs inside one update transaction so concurrent
// marker writes cannot interleave.
func (b *BoltDB) UpdateRecurringLastProcessed(id string, date string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recurringBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("recurring definition %s: %w", id, ErrNotFound)
		}
		var def RecurringDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("unmarshaling recurring definition: %w", err)
		}
		def.LastProcessedDate = date
		updated, err := json.Marshal(&def)
		if err != nil {
			return fmt.Errorf("marshaling recurring definition: %w", err)
		}
		return bucket.Put([]byte(id), updated)
	})
}

// DeleteRecurring removes a recurring definition from the database
func (b *BoltDB) DeleteRecurring(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recurringBucketName))
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
