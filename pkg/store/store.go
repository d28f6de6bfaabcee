// Package store persists songs by ID. Songs are stored as msgpack-encoded
// codec documents, either in memory or in a badger database.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/james-see/mozart/pkg/codec"
	"github.com/james-see/mozart/pkg/music"
)

// Summary is the listing view of a stored song.
type Summary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Notes    int       `json:"notes"`
	Modified time.Time `json:"modified"`
}

// Store is a song repository. Implementations are safe for concurrent use;
// Update serializes read-modify-write cycles on one song.
type Store interface {
	// Create stores a new song and returns its generated ID.
	Create(ctx context.Context, song *music.Song) (string, error)
	// Get returns a copy of the song.
	Get(ctx context.Context, id string) (*music.Song, error)
	// Put replaces or inserts the song under id.
	Put(ctx context.Context, id string, song *music.Song) error
	// Update loads the song, applies fn and stores the result. Nothing is
	// written when fn fails.
	Update(ctx context.Context, id string, fn func(*music.Song) error) (*music.Song, error)
	// Delete removes the song.
	Delete(ctx context.Context, id string) error
	// List returns every song, most recently modified first.
	List(ctx context.Context) ([]Summary, error)
	Close() error
}

// Open returns a badger store in dir, or a memory store when dir is empty.
func Open(dir string, logger *slog.Logger) (Store, error) {
	if dir == "" {
		return NewMemory(), nil
	}
	return NewBadger(BadgerOptions{Dir: dir, Logger: logger})
}

// NewID returns a fresh song ID.
func NewID() string {
	return uuid.NewString()
}

func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound(id)
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("%w: song %q", music.ErrNotFound, id)
}

func marshalSong(song *music.Song) ([]byte, error) {
	data, err := msgpack.Marshal(codec.NewDocument(song))
	if err != nil {
		return nil, fmt.Errorf("store: encode song: %w", err)
	}
	return data, nil
}

func unmarshalSong(data []byte) (*music.Song, error) {
	var doc codec.Document
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("store: decode song: %w", err)
	}
	return doc.Song()
}

func summarize(id string, data []byte) (Summary, error) {
	song, err := unmarshalSong(data)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		ID:       id,
		Title:    song.Metadata.Title,
		Notes:    song.NoteCount(),
		Modified: song.Metadata.Modified,
	}, nil
}

func sortSummaries(list []Summary) {
	slices.SortFunc(list, func(a, b Summary) int {
		if c := b.Modified.Compare(a.Modified); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
