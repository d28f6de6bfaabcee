package store

import (
	"context"
	"sync"

	"github.com/james-see/mozart/pkg/music"
)

// Memory keeps encoded songs in a map. It is intended for tests and for
// servers run without a data directory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Create(ctx context.Context, song *music.Song) (string, error) {
	id := NewID()
	return id, m.Put(ctx, id, song)
}

func (m *Memory) Get(_ context.Context, id string) (*music.Song, error) {
	m.mu.RLock()
	data, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return unmarshalSong(data)
}

func (m *Memory) Put(_ context.Context, id string, song *music.Song) error {
	if err := validID(id); err != nil {
		return err
	}
	data, err := marshalSong(song)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[id] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Update(_ context.Context, id string, fn func(*music.Song) error) (*music.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[id]
	if !ok {
		return nil, notFound(id)
	}
	song, err := unmarshalSong(data)
	if err != nil {
		return nil, err
	}
	if err := fn(song); err != nil {
		return nil, err
	}
	if data, err = marshalSong(song); err != nil {
		return nil, err
	}
	m.data[id] = data
	return song, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return notFound(id)
	}
	delete(m.data, id)
	return nil
}

func (m *Memory) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]Summary, 0, len(m.data))
	for id, data := range m.data {
		s, err := summarize(id, data)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	sortSummaries(list)
	return list, nil
}

func (m *Memory) Close() error {
	return nil
}
