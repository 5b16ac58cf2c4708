// Package storage persists saved games and the high score.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/signalsfoundry/airport-simulator/model"
)

// DefaultSlot is the save slot used when none is configured.
const DefaultSlot = "default"

// ErrNoSave is returned by LoadGame when the slot is empty.
var ErrNoSave = errors.New("no saved game")

// Store is the persistence collaborator of the game runtime.
type Store interface {
	SaveGame(ctx context.Context, slot string, data model.SaveData) error
	LoadGame(ctx context.Context, slot string) (model.SaveData, error)
	DeleteSave(ctx context.Context, slot string) error
	HighScore(ctx context.Context) (int, error)
	// SubmitScore records score and reports whether it beat the stored
	// high score.
	SubmitScore(ctx context.Context, score int) (bool, error)
	Close() error
}

// MemoryStore keeps everything in process memory. It backs tests and
// servers run without a database.
type MemoryStore struct {
	mu    sync.Mutex
	saves map[string]model.SaveData
	high  int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{saves: make(map[string]model.SaveData)}
}

func (m *MemoryStore) SaveGame(_ context.Context, slot string, data model.SaveData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data.PurchasedUpgrades = append([]string(nil), data.PurchasedUpgrades...)
	data.Gates = append([]model.SavedGate(nil), data.Gates...)
	m.saves[slot] = data
	return nil
}

func (m *MemoryStore) LoadGame(_ context.Context, slot string) (model.SaveData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.saves[slot]
	if !ok {
		return model.SaveData{}, ErrNoSave
	}
	return data, nil
}

func (m *MemoryStore) DeleteSave(_ context.Context, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saves, slot)
	return nil
}

func (m *MemoryStore) HighScore(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.high, nil
}

func (m *MemoryStore) SubmitScore(_ context.Context, score int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if score <= m.high {
		return false, nil
	}
	m.high = score
	return true, nil
}

func (m *MemoryStore) Close() error { return nil }
