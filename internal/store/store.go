// Package store provides durable key-value storage shared by every part of
// the daemon. Values live in a single JSON file in the state directory and
// writes are atomic (temp file + rename), so readers never observe a partial
// auth record. Interested components subscribe to change notifications
// instead of polling.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage keys, as exposed in change notifications.
const (
	KeyAuthToken    = "authToken"
	KeyUser         = "user"
	KeyGeminiAPIKey = "geminiApiKey"
)

// User is the identity captured from the auth callback.
type User struct {
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Email       string `json:"email,omitempty"`
}

// AuthRecord pairs a user identity with its bearer token. The two fields are
// written and cleared together; a record with only one of them never exists.
type AuthRecord struct {
	User  User   `json:"user"`
	Token string `json:"authToken"`
}

type fileData struct {
	User         *User  `json:"user,omitempty"`
	AuthToken    string `json:"authToken,omitempty"`
	GeminiAPIKey string `json:"geminiApiKey,omitempty"`
}

// Subscriber receives the storage key that changed.
type Subscriber func(key string)

// Store is a file-backed key-value store with change notifications.
type Store struct {
	path string

	mu   sync.RWMutex
	data fileData

	subMu  sync.Mutex
	subs   map[int]Subscriber
	nextID int
}

// Open loads (or initializes) the store file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	s := &Store{path: path, subs: make(map[int]Subscriber)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		return nil, fmt.Errorf("parse store %s: %w", path, err)
	}
	return s, nil
}

// Auth returns the stored auth record, or nil when logged out. A half-written
// pair is treated as absent.
func (s *Store) Auth() *AuthRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.User == nil || s.data.AuthToken == "" {
		return nil
	}
	u := *s.data.User
	return &AuthRecord{User: u, Token: s.data.AuthToken}
}

// SetAuth persists user and token as one atomic write.
func (s *Store) SetAuth(rec AuthRecord) error {
	s.mu.Lock()
	u := rec.User
	s.data.User = &u
	s.data.AuthToken = rec.Token
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(KeyAuthToken)
	return nil
}

// ClearAuth removes both auth fields. Clearing an already-empty record is a
// no-op, not an error.
func (s *Store) ClearAuth() error {
	s.mu.Lock()
	if s.data.User == nil && s.data.AuthToken == "" {
		s.mu.Unlock()
		return nil
	}
	s.data.User = nil
	s.data.AuthToken = ""
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(KeyAuthToken)
	return nil
}

// AuthToken returns the bearer token, or "" when logged out.
func (s *Store) AuthToken() string {
	if rec := s.Auth(); rec != nil {
		return rec.Token
	}
	return ""
}

// GeminiAPIKey returns the user-configured API key, or "".
func (s *Store) GeminiAPIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GeminiAPIKey
}

// SetGeminiAPIKey persists the API key.
func (s *Store) SetGeminiAPIKey(key string) error {
	s.mu.Lock()
	s.data.GeminiAPIKey = key
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(KeyGeminiAPIKey)
	return nil
}

// Subscribe registers fn for change notifications and returns an unsubscribe
// func. Notifications are delivered synchronously after the write completes.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(key string) {
	s.subMu.Lock()
	fns := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

// persistLocked writes the store file atomically. Callers hold s.mu.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".store-*")
	if err != nil {
		return fmt.Errorf("temp store file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
