package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Keys for everything the client persists locally. Durable content lives
// on the server; these are just the credentials and the viewer's picks.
const (
	KeyToken  = "token"
	KeyUser   = "user"
	KeyAvatar = "selectedAvatar"
)

// Store is the local key-value persistence layer. Set and MultiSet must
// not return before the write is acknowledged as durable, so a read-back
// immediately after a successful Set always observes the new value.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	MultiSet(pairs map[string]string) error
	MultiRemove(keys ...string) error
}

// FileStore keeps the whole key space in a single JSON file. Writes go to
// a temp file which is fsynced and renamed over the old one.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path: path,
		data: map[string]string{},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, errors.Wrap(err, "store: can't read store file")
	}
	if err := json.Unmarshal(raw, &fs.data); err != nil {
		return nil, errors.Wrap(err, "store: store file is corrupted")
	}
	return fs, nil
}

// Missing keys read back as the empty string, not as an error.
func (fs *FileStore) Get(key string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.data[key], nil
}

func (fs *FileStore) Set(key, value string) error {
	return fs.MultiSet(map[string]string{key: value})
}

func (fs *FileStore) MultiSet(pairs map[string]string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for k, v := range pairs {
		fs.data[k] = v
	}
	return fs.flush()
}

func (fs *FileStore) Delete(key string) error {
	return fs.MultiRemove(key)
}

func (fs *FileStore) MultiRemove(keys ...string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for _, k := range keys {
		delete(fs.data, k)
	}
	return fs.flush()
}

// Callers must hold fs.mu.
func (fs *FileStore) flush() error {
	raw, err := json.Marshal(fs.data)
	if err != nil {
		return errors.Wrap(err, "store: can't marshal store data")
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".store-*")
	if err != nil {
		return errors.Wrap(err, "store: can't create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "store: can't write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "store: can't sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "store: can't close temp file")
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return errors.Wrap(err, "store: can't replace store file")
	}
	return nil
}
