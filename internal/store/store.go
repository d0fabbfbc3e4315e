// Package store holds the single live snapshot-derived document. One writer
// (the polling loop) replaces it; any number of HTTP readers observe it.
package store

import (
	"errors"
	"sync"
)

// ErrNotReady is returned before the first snapshot has been published.
var ErrNotReady = errors.New("no snapshot published yet")

// Store is the process-wide holder of the current version token and the
// last-rendered document.
type Store interface {
	// Publish atomically replaces both the token and the document.
	Publish(token string, doc []byte)
	// Version returns the current version token, or ErrNotReady.
	Version() (string, error)
	// Document returns the current rendered document, or ErrNotReady.
	Document() ([]byte, error)
}

type memStore struct {
	mu    sync.RWMutex
	token string
	doc   []byte
}

// New creates an empty in-memory store.
func New() Store {
	return &memStore{}
}

func (s *memStore) Publish(token string, doc []byte) {
	s.mu.Lock()
	s.token = token
	s.doc = doc
	s.mu.Unlock()
}

func (s *memStore) Version() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNotReady
	}
	return s.token, nil
}

func (s *memStore) Document() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, ErrNotReady
	}
	return s.doc, nil
}
