// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/anubhavitis/peeksy/internal/util"
)

// =============================================================================
// TYPES
// =============================================================================

// User is the identity part of a persisted session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is what a successful sign-in leaves behind.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the session is past its expiry at now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

var (
	// ErrNoSession is returned by Load when nothing is persisted.
	ErrNoSession = errors.New("no saved session")

	// ErrCorrupt is returned when the session file cannot be opened with the key.
	ErrCorrupt = errors.New("saved session is unreadable")
)

const (
	fileVersion = 1
	keySize     = 32
	hkdfInfo    = "peeksy-session-v1"
)

type envelope struct {
	V     int    `json:"v"`
	Nonce string `json:"nonce"`
	Data  string `json:"data"`
}

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore reads and writes one encrypted session file.
type FileStore struct {
	path    string
	keyPath string

	mu sync.Mutex
}

// NewFileStore returns a store for path, keeping its secret at keyPath.
func NewFileStore(path, keyPath string) *FileStore {
	return &FileStore{path: path, keyPath: keyPath}
}

// Path returns the session file path.
func (f *FileStore) Path() string { return f.path }

// Load reads and decrypts the saved session.
func (f *FileStore) Load() (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNoSession
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.V != fileVersion {
		return nil, ErrCorrupt
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, ErrCorrupt
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, ErrCorrupt
	}

	key, err := f.key(false)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCorrupt
		}
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrCorrupt
	}
	plain, err := aead.Open(nil, nonce, sealed, []byte(f.path))
	if err != nil {
		return nil, ErrCorrupt
	}

	var s Session
	if err := json.Unmarshal(plain, &s); err != nil {
		return nil, ErrCorrupt
	}
	return &s, nil
}

// Save encrypts and atomically writes the session.
func (f *FileStore) Save(s *Session) error {
	if s == nil {
		return f.Clear()
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	plain, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	key, err := f.key(true)
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	data, err := json.Marshal(envelope{
		V:     fileVersion,
		Nonce: base64.StdEncoding.EncodeToString(nonce),
		Data:  base64.StdEncoding.EncodeToString(aead.Seal(nil, nonce, plain, []byte(f.path))),
	})
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the saved session. Clearing a missing session is not an error.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// key loads the install secret (creating it when create is set) and derives
// the file key from it.
func (f *FileStore) key(create bool) ([]byte, error) {
	secret, err := os.ReadFile(f.keyPath)
	switch {
	case err == nil && len(secret) == keySize:
	case (err == nil || os.IsNotExist(err)) && create:
		secret = make([]byte, keySize)
		if _, err := io.ReadFull(rand.Reader, secret); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
		if err := util.AtomicWriteFile(f.keyPath, secret, 0600); err != nil {
			return nil, fmt.Errorf("write session key: %w", err)
		}
	case err == nil:
		return nil, ErrCorrupt
	default:
		return nil, err
	}

	out := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), out); err != nil {
		return nil, err
	}
	return out, nil
}
