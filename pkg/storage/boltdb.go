package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

const (
	// DBFile is the database file name inside the data directory
	DBFile = "burrow.db"

	// DefaultLockTimeout is how long Open waits for a concurrent run to finish
	DefaultLockTimeout = 2 * time.Second
)

var (
	// Bucket names
	bucketRuns      = []byte("runs")
	bucketResources = []byte("resources")
)

// BoltStore implements Store using BoltDB. The open handle holds an
// exclusive file lock and doubles as the run lock.
type BoltStore struct {
	db *bolt.DB
}

// Open opens (or creates) the database in dataDir, waiting up to timeout for
// the file lock
func Open(dataDir string, timeout time.Duration) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: timeout})
	if errors.Is(err, berrors.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRuns, bucketResources} {
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

	return &BoltStore{db: db}, nil
}

// Close closes the database and releases the run lock
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *BoltStore) Path() string {
	return s.db.Path()
}

// Run operations
func (s *BoltStore) SaveRun(run *Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRuns).Put([]byte(run.ID), data)
	})
}

// GetRun returns a run by id or unique id prefix
func (s *BoltStore) GetRun(id string) (*Run, error) {
	if id == "" {
		return nil, errors.New("run id is required")
	}

	var run Run
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		if data := b.Get([]byte(id)); data != nil {
			return json.Unmarshal(data, &run)
		}

		prefix := []byte(id)
		var match []byte
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if match != nil {
				return fmt.Errorf("%w: %s", ErrAmbiguous, id)
			}
			match = v
		}
		if match == nil {
			return fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(match, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs newest first. An empty stack lists every stack;
// limit <= 0 means no limit.
func (s *BoltStore) ListRuns(stack string, limit int) ([]*Run, error) {
	var runs []*Run
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			if stack == "" || run.Stack == stack {
				runs = append(runs, &run)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func resourceKey(kind, name string) []byte {
	return []byte(kind + "/" + name)
}

// Resource operations
func (s *BoltStore) PutResource(rec *ResourceRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketResources).Put(resourceKey(rec.Kind, rec.Name), data)
	})
}

func (s *BoltStore) GetResource(kind, name string) (*ResourceRecord, error) {
	var rec ResourceRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketResources).Get(resourceKey(kind, name))
		if data == nil {
			return fmt.Errorf("%s %s: %w", kind, name, ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BoltStore) DeleteResource(kind, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResources).Delete(resourceKey(kind, name))
	})
}
