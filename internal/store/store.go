package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"phpclientgen/internal/types"
)

var bucketProjects = []byte("projects")

// ErrNotFound is returned when no project is stored under a name
var ErrNotFound = errors.New("project not found")

// Store persists projects between CLI invocations
type Store interface {
	Save(p *types.Project) error
	Load(name string) (*types.Project, error)
	List() ([]string, error)
	Delete(name string) error
	Close() error
}

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// NewBoltStore opens or creates the project database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketProjects)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *BoltStore) Path() string {
	return s.path
}

// Save stores the project under its name, replacing any previous version.
func (s *BoltStore) Save(p *types.Project) error {
	if p.Name == "" {
		return errors.New("project name is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProjects)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(p.Name), data)
	})
}

// Load returns the named project or ErrNotFound.
func (s *BoltStore) Load(name string) (*types.Project, error) {
	var p types.Project
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProjects)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		data := b.Get([]byte(name))
		if data == nil {
			return nil
		}

		found = true
		return json.Unmarshal(data, &p)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load project %q: %w", name, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return &p, nil
}

// List returns stored project names in sorted order.
func (s *BoltStore) List() ([]string, error) {
	names := make([]string, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProjects)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the named project; ErrNotFound when it does not exist.
func (s *BoltStore) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProjects)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return b.Delete([]byte(name))
	})
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
