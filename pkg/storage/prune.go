package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

// Backup writes a consistent copy of the database to path
func (s *BoltStore) Backup(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(path, 0600)
	})
}

// PruneRuns keeps the newest keep runs of each stack and deletes the rest.
// An empty stack prunes every stack. The pruned ids are returned newest
// first; with dryRun nothing is deleted.
func (s *BoltStore) PruneRuns(stack string, keep int, dryRun bool) ([]string, error) {
	if keep < 0 {
		return nil, errors.New("keep must not be negative")
	}

	runs, err := s.ListRuns(stack, 0)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int)
	var pruned []string
	for _, run := range runs {
		seen[run.Stack]++
		if seen[run.Stack] > keep {
			pruned = append(pruned, run.ID)
		}
	}
	if dryRun || len(pruned) == 0 {
		return pruned, nil
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		for _, id := range pruned {
			if err := b.Delete([]byte(id)); err != nil {
				return fmt.Errorf("failed to delete run %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pruned, nil
}
