package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/mozart/pkg/music"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	b, err := NewBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"badger": b,
	}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			song := music.NewSong("Lifecycle")
			require.NoError(t, song.ParseMelody("C4q D4q"))

			id, err := s.Create(ctx, song)
			require.NoError(t, err)

			got, err := s.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "Lifecycle", got.Metadata.Title)
			assert.Equal(t, song.Notes(), got.Notes())

			updated, err := s.Update(ctx, id, func(song *music.Song) error {
				_, err := song.Transpose(music.Chromatic{Semitones: 2})
				return err
			})
			require.NoError(t, err)
			assert.Equal(t, "D4q E4q", updated.FormatMelody())

			got, err = s.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "D4q E4q", got.FormatMelody())

			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, id, list[0].ID)
			assert.Equal(t, 2, list[0].Notes)

			require.NoError(t, s.Delete(ctx, id))
			_, err = s.Get(ctx, id)
			assert.ErrorIs(t, err, music.ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, id), music.ErrNotFound)
		})
	}
}

func TestStoreUpdateFailureKeepsSong(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			song := music.NewSong("")
			require.NoError(t, song.ParseMelody("G9q"))
			id, err := s.Create(ctx, song)
			require.NoError(t, err)

			_, err = s.Update(ctx, id, func(song *music.Song) error {
				song.SetTitle("changed")
				return boom
			})
			assert.ErrorIs(t, err, boom)

			_, err = s.Update(ctx, id, func(song *music.Song) error {
				_, err := song.Transpose(music.Chromatic{Semitones: 1})
				return err
			})
			assert.ErrorIs(t, err, music.ErrRange)

			got, err := s.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, music.DefaultTitle, got.Metadata.Title)
			assert.Equal(t, "G9q", got.FormatMelody())

			_, err = s.Update(ctx, NewID(), func(*music.Song) error { return nil })
			assert.ErrorIs(t, err, music.ErrNotFound)
		})
	}
}

func TestStoreRejectsMalformedID(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Put(ctx, "../etc/passwd", music.NewSong(""))
			assert.ErrorIs(t, err, music.ErrNotFound)
		})
	}
}

func TestStoreConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Create(ctx, music.NewSong(""))
			require.NoError(t, err)

			const writers = 8
			var wg sync.WaitGroup
			for i := range writers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Update(ctx, id, func(song *music.Song) error {
						_, err := song.AddNote(music.Note{Pitch: music.Pitch(60 + i), Start: 480 * i, Duration: 480, Velocity: 90})
						return err
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := s.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, writers, got.NoteCount())
		})
	}
}

func TestOpen(t *testing.T) {
	s, err := Open("", nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	require.NoError(t, s.Close())

	dir := t.TempDir()
	s, err = Open(dir, nil)
	require.NoError(t, err)
	assert.IsType(t, &Badger{}, s)

	ctx := context.Background()
	orig := music.NewSong("Persisted")
	orig.Metadata.Created = orig.Metadata.Created.Add(123456789 * time.Nanosecond)
	id, err := s.Create(ctx, orig)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()
	song, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Persisted", song.Metadata.Title)
	assert.True(t, orig.Metadata.Created.Equal(song.Metadata.Created), "created %v vs %v", orig.Metadata.Created, song.Metadata.Created)
}
