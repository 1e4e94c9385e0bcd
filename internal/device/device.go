// Package device owns the process-wide capture-device identity: an opaque
// token generated once, persisted, and attached to every recognition request.
// It also renders human labels for dashboard clients from their user agents.
package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"presence/pkg/sentinel"
)

// Store persists the device token. Implementations return
// sentinel.ErrNotFound when no token has been stored yet.
type Store interface {
	Load() (string, error)
	Save(token string) error
}

// Manager lazily initializes the token exactly once per process and hands the
// same value to every caller afterward. The token is never rotated or expired
// by this service.
type Manager struct {
	store Store

	once  sync.Once
	token string
	err   error
}

// NewManager creates a Manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// ID returns the device token, generating and persisting it on first use.
func (m *Manager) ID() (string, error) {
	m.once.Do(func() {
		token, err := m.store.Load()
		switch {
		case err == nil && token != "":
			m.token = token
			return
		case err != nil && !errors.Is(err, sentinel.ErrNotFound):
			m.err = fmt.Errorf("load device identity: %w", err)
			return
		}

		token = "device_" + uuid.NewString()
		if err := m.store.Save(token); err != nil {
			m.err = fmt.Errorf("persist device identity: %w", err)
			return
		}
		m.token = token
	})
	return m.token, m.err
}

// FileStore keeps the token in a single file under the state directory.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, "device_id")}
}

func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", sentinel.ErrNotFound
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token+"\n"), 0o600)
}

// Describe renders a display label like "Chrome on Mac OS X" from a raw
// user-agent string, for logging connected dashboard clients.
func Describe(rawUserAgent string) string {
	if strings.TrimSpace(rawUserAgent) == "" {
		return "Unknown Device"
	}

	agent := useragent.New(rawUserAgent)
	browser, _ := agent.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := agent.OSInfo().Name
	if os == "" {
		os = agent.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}
