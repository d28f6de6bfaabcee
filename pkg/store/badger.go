package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/james-see/mozart/pkg/music"
)

const songPrefix = "song:"

// Badger is a Store backed by BadgerDB v4.
type Badger struct {
	db *badger.DB
	// mu serializes Update so concurrent edits never hit txn conflicts
	mu sync.Mutex
}

// BadgerOptions configures the badger store.
type BadgerOptions struct {
	// Dir is the data directory. Required unless InMemory is set.
	Dir string
	// InMemory runs badger without disk persistence.
	InMemory bool
	// Logger receives badger warnings and errors; nil uses slog.Default.
	Logger *slog.Logger
}

// NewBadger opens (or creates) a badger song store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(slogLogger{logger.With("component", "badger")})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func songKey(id string) []byte {
	return []byte(songPrefix + id)
}

func (b *Badger) Create(ctx context.Context, song *music.Song) (string, error) {
	id := NewID()
	return id, b.Put(ctx, id, song)
}

func (b *Badger) Get(_ context.Context, id string) (*music.Song, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(songKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return unmarshalSong(data)
}

func (b *Badger) Put(_ context.Context, id string, song *music.Song) error {
	if err := validID(id); err != nil {
		return err
	}
	data, err := marshalSong(song)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(songKey(id), data)
	})
}

func (b *Badger) Update(ctx context.Context, id string, fn func(*music.Song) error) (*music.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var song *music.Song
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(songKey(id))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if song, err = unmarshalSong(data); err != nil {
			return err
		}
		if err := fn(song); err != nil {
			return err
		}
		if data, err = marshalSong(song); err != nil {
			return err
		}
		return txn.Set(songKey(id), data)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return song, nil
}

func (b *Badger) Delete(_ context.Context, id string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(songKey(id)); err != nil {
			return err
		}
		return txn.Delete(songKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound(id)
	}
	return err
}

func (b *Badger) List(_ context.Context) ([]Summary, error) {
	var list []Summary
	prefix := []byte(songPrefix)
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			s, err := summarize(strings.TrimPrefix(string(item.Key()), songPrefix), data)
			if err != nil {
				return err
			}
			list = append(list, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortSummaries(list)
	return list, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// slogLogger routes badger's logger to slog, dropping debug and info output.
type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Errorf(f string, v ...any)   { s.l.Error(strings.TrimSpace(fmt.Sprintf(f, v...))) }
func (s slogLogger) Warningf(f string, v ...any) { s.l.Warn(strings.TrimSpace(fmt.Sprintf(f, v...))) }
func (slogLogger) Infof(string, ...any)          {}
func (slogLogger) Debugf(string, ...any)         {}
