package scan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var recordsBucket = []byte("scan_records")

// BoltStore keeps scan records in a bbolt database indexed by package name.
// Keys are package_name, a zero byte, then the origin file name, so all
// scans of one package are adjacent and ordered by file name.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (or creates) the index database at path
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open scan index: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize scan index: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Sync makes the index mirror records: entries are added or replaced, and
// entries whose origin file is no longer among records are removed, all in
// one transaction. Records without a package name are not indexed. It
// returns the number of records indexed.
func (s *BoltStore) Sync(records []Record) (int, error) {
	indexed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		wanted := make(map[string]struct{}, len(records))

		for i := range records {
			rec := &records[i]
			if rec.PackageName == "" {
				continue
			}
			if rec.File == "" {
				return fmt.Errorf("record for %q has no origin file", rec.PackageName)
			}
			data, err := encodeRecord(rec)
			if err != nil {
				return err
			}
			key := recordKey(rec.PackageName, rec.File)
			if err := b.Put(key, data); err != nil {
				return err
			}
			wanted[string(key)] = struct{}{}
			indexed++
		}

		var stale [][]byte
		err := b.ForEach(func(k, _ []byte) error {
			if _, ok := wanted[string(k)]; !ok {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sync scan index: %w", err)
	}
	return indexed, nil
}

// Records returns every indexed record in key order
func (s *BoltStore) Records() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("corrupt index entry %q: %w", k, err)
			}
			records = append(records, *rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read scan index: %w", err)
	}
	return records, nil
}

// Latest returns the most recent record for name, reading only that
// package's entries. Ties go to the smallest origin file name, as with
// FindLatest over Records.
func (s *BoltStore) Latest(name string) (*Record, error) {
	if name == "" {
		return nil, nil
	}

	var matches []Record
	prefix := recordKey(name, "")
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			rec, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("corrupt index entry %q: %w", k, err)
			}
			matches = append(matches, *rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read scan index: %w", err)
	}
	return FindLatest(name, matches), nil
}

func recordKey(name, file string) []byte {
	key := make([]byte, 0, len(name)+1+len(file))
	key = append(key, name...)
	key = append(key, 0)
	return append(key, file...)
}

// storedRecord carries File, which Record does not serialize
type storedRecord struct {
	Record
	File string `json:"_file"`
}

func encodeRecord(rec *Record) ([]byte, error) {
	return json.Marshal(storedRecord{Record: *rec, File: rec.File})
}

func decodeRecord(data []byte) (*Record, error) {
	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	rec := stored.Record
	rec.File = stored.File
	return &rec, nil
}
