package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Memory is an in-process session cache. When constructed with a snapshot
// directory it reloads previous entries on startup and writes snapshots back
// after each update, so a restarted server keeps its session cache warm.
type Memory struct {
	logger      *logrus.Logger
	snapshotDir string
	mu          sync.RWMutex
	entries     map[string][]byte
}

// NewMemory creates an in-memory cache. snapshotDir may be empty to disable
// file snapshots.
func NewMemory(logger *logrus.Logger, snapshotDir string) *Memory {
	if logger == nil {
		logger = logrus.New()
	}
	if snapshotDir != "" {
		os.MkdirAll(snapshotDir, 0755)
	}

	m := &Memory{
		logger:      logger,
		snapshotDir: snapshotDir,
		entries:     make(map[string][]byte),
	}
	m.loadSnapshot()
	return m
}

func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *Memory) Set(key string, value []byte) {
	m.mu.Lock()
	m.entries[key] = value
	m.mu.Unlock()

	if m.snapshotDir != "" {
		go m.saveSnapshot()
	}
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) snapshotFile() string {
	return filepath.Join(m.snapshotDir, "session_cache.json")
}

func (m *Memory) loadSnapshot() {
	if m.snapshotDir == "" {
		return
	}
	data, err := os.ReadFile(m.snapshotFile())
	if err != nil {
		return
	}

	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		m.logger.WithError(err).Error("Failed to parse session cache snapshot")
		return
	}

	m.mu.Lock()
	for k, v := range raw {
		m.entries[k] = []byte(v)
	}
	m.mu.Unlock()

	m.logger.Infof("Loaded %d cached responses", len(raw))
}

func (m *Memory) saveSnapshot() {
	m.mu.RLock()
	raw := make(map[string]json.RawMessage, len(m.entries))
	for k, v := range m.entries {
		raw[k] = json.RawMessage(v)
	}
	m.mu.RUnlock()

	data, err := json.Marshal(raw)
	if err != nil {
		m.logger.WithError(err).Error("Failed to marshal session cache snapshot")
		return
	}

	if err := os.WriteFile(m.snapshotFile(), data, 0644); err != nil {
		m.logger.WithError(err).Error("Failed to save session cache snapshot")
	}
}
