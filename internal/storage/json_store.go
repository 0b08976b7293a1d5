package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/noahxzhu/tiffin-client/internal/model"
)

// ErrIncompleteSession is returned by SetUser when a field is empty. The
// session is still written so the on-disk state mirrors what the caller
// supplied, but IsLoggedIn stays false.
var ErrIncompleteSession = errors.New("session is missing a field")

// Store keeps the signed-in user's session in a flat JSON document.
type Store struct {
	mu       sync.RWMutex
	filePath string
	logger   *slog.Logger
	data     model.Session
}

func NewStore(filePath string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		filePath: filePath,
		logger:   logger,
	}
}

// Open creates a store and loads whatever is on disk.
func Open(filePath string, logger *slog.Logger) *Store {
	s := NewStore(filePath, logger)
	s.Load()
	return s
}

func (s *Store) Path() string {
	return s.filePath
}

// Load replaces the in-memory session with the file contents. A missing,
// empty, unreadable or corrupt file leaves an empty session behind.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = model.Session{}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read session file", "path", s.filePath, "error", err)
		}
		return
	}
	if len(data) == 0 {
		return
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Warn("Ignoring corrupt session file", "path", s.filePath, "error", err)
		return
	}
	s.data = sess
}

// save writes the session with a temp file and rename so readers never see
// a half-written document. Callers hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// SetUser overwrites the whole session and persists it before returning.
// Persistence failures are logged and returned; the in-memory session is
// updated either way. A session with any field empty is stored as logged out
// and reported as ErrIncompleteSession.
func (s *Store) SetUser(name, email, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = model.Session{
		Name:        name,
		Email:       email,
		UserID:      userID,
		AccessToken: token,
	}
	complete := s.data.Complete()
	if !complete {
		s.logger.Warn("Refusing partial session", "user_id", userID)
		s.data = model.Session{}
	}
	if err := s.save(); err != nil {
		s.logger.Error("Failed to save session", "path", s.filePath, "error", err)
		return err
	}
	if !complete {
		return ErrIncompleteSession
	}
	s.logger.Info("Session saved", "user_id", userID)
	return nil
}

func (s *Store) SaveUser(u model.User, token string) error {
	return s.SetUser(u.Name, u.Email, u.ID, token)
}

// GetUser returns the cached identity; unset fields are "".
func (s *Store) GetUser() (name, email, userID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Name, s.data.Email, s.data.UserID
}

func (s *Store) Session() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.AccessToken
}

func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.UserID
}

// UserName falls back to "User" for greetings.
func (s *Store) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.Name == "" {
		return "User"
	}
	return s.data.Name
}

func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Complete()
}

// Clear erases the session and persists the empty document.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = model.Session{}
	if err := s.save(); err != nil {
		s.logger.Error("Failed to clear session", "path", s.filePath, "error", err)
		return err
	}
	s.logger.Info("Session cleared")
	return nil
}
