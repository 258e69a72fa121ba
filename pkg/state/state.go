package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/miniheartx/heartx/pkg/logger"
	"github.com/miniheartx/heartx/pkg/session"
)

// State is what the console remembers between runs.
type State struct {
	// LastMode is the team mode the previous console session ended in.
	LastMode session.Mode `json:"last_mode,omitempty"`

	// Timestamp is the last time this state was updated
	Timestamp time.Time `json:"timestamp"`
}

// Manager manages persistent state with atomic saves.
type Manager struct {
	state     *State
	mu        sync.RWMutex
	stateFile string
}

var (
	stateReadFile         = os.ReadFile
	stateBootstrapTimeout = 750 * time.Millisecond
)

// NewManager loads dir/state.json if present. A missing or unreadable file
// starts from an empty state.
func NewManager(dir string) *Manager {
	sm := &Manager{
		stateFile: filepath.Join(dir, "state.json"),
		state:     &State{},
	}

	loaded, err := loadWithTimeout(sm.stateFile, stateBootstrapTimeout)
	if err != nil {
		logger.WarnCF("state", "State bootstrap skipped", map[string]interface{}{
			"path":  sm.stateFile,
			"error": err.Error(),
		})
	} else if loaded != nil {
		sm.state = loaded
	}
	return sm
}

// SetLastMode records m and saves the state.
func (sm *Manager) SetLastMode(m session.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("invalid mode %q", m)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.state.LastMode = m
	sm.state.Timestamp = time.Now()

	if err := sm.saveAtomic(); err != nil {
		return fmt.Errorf("failed to save state atomically: %w", err)
	}
	return nil
}

// LastMode returns the remembered mode, or "" when none is stored or the
// stored value is no longer a known mode.
func (sm *Manager) LastMode() session.Mode {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.state.LastMode.Valid() {
		return ""
	}
	return sm.state.LastMode
}

func (sm *Manager) Timestamp() time.Time {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state.Timestamp
}

func (sm *Manager) Path() string {
	return sm.stateFile
}

// saveAtomic writes a temp file next to the target and renames it over.
// Must be called with the lock held.
func (sm *Manager) saveAtomic() error {
	if err := os.MkdirAll(filepath.Dir(sm.stateFile), 0755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	data, err := json.MarshalIndent(sm.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tempFile := sm.stateFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, sm.stateFile); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// loadWithTimeout keeps startup responsive on slow or network-backed home
// directories.
func loadWithTimeout(path string, timeout time.Duration) (*State, error) {
	if timeout <= 0 {
		return loadStateFromPath(path)
	}

	type result struct {
		state *State
		err   error
	}

	done := make(chan result, 1)
	go func() {
		st, err := loadStateFromPath(path)
		done <- result{state: st, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.state, out.err
	case <-timer.C:
		return nil, fmt.Errorf("state load timed out")
	}
}

func loadStateFromPath(path string) (*State, error) {
	data, err := stateReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state %s: %w", path, err)
	}
	return &st, nil
}
