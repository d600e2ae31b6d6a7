package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/lucasjlepore/techjournal/canonical"
)

const (
	activityKeyPrefix = "activity:"
	trackKeyPrefix    = "track:"
	fileKeyPrefix     = "file:"
)

// trackValue is the bulky part of a record, kept apart from the summary so
// List never has to decode points.
type trackValue struct {
	Laps   []canonical.Lap        `json:"laps"`
	Points []canonical.TrackPoint `json:"points"`
}

// BadgerRepository stores records in an embedded badger database.
//
// Keys:
//
//	activity:<id>  activity summary JSON
//	track:<id>     laps and points JSON
//	file:<name>    activity id, for deduplication by source file name
type BadgerRepository struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger database in dir.
func OpenBadger(dir string) (*BadgerRepository, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &BadgerRepository{db: db}, nil
}

// OpenBadgerInMemory opens a throwaway in-memory database.
func OpenBadgerInMemory() (*BadgerRepository, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &BadgerRepository{db: db}, nil
}

func NewBadgerRepository(db *badger.DB) *BadgerRepository {
	return &BadgerRepository{db: db}
}

func (s *BadgerRepository) Close() error {
	return s.db.Close()
}

func (s *BadgerRepository) Upsert(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	summary, track, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	id := rec.Activity.ID
	return s.db.Update(func(txn *badger.Txn) error {
		prev, err := getActivity(txn, id)
		switch {
		case err == nil:
			if prev.SourceFileName != "" && prev.SourceFileName != rec.Activity.SourceFileName {
				if err := deleteFileMapping(txn, prev.SourceFileName, id); err != nil {
					return err
				}
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}
		return putRecord(txn, rec, summary, track)
	})
}

// insertAttempts bounds retries after a transaction conflict. A retry reads
// the winner's commit and reports the id as present.
const insertAttempts = 3

func (s *BadgerRepository) Insert(ctx context.Context, rec *Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	summary, track, err := encodeRecord(rec)
	if err != nil {
		return false, err
	}

	key := []byte(activityKeyPrefix + rec.Activity.ID)
	for attempt := 1; ; attempt++ {
		created := false
		err := s.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			switch {
			case err == nil:
				return nil
			case !errors.Is(err, badger.ErrKeyNotFound):
				return fmt.Errorf("get activity: %w", err)
			}
			created = true
			return putRecord(txn, rec, summary, track)
		})
		if errors.Is(err, badger.ErrConflict) && attempt < insertAttempts {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("insert %s: %w", rec.Activity.ID, err)
		}
		return created, nil
	}
}

func encodeRecord(rec *Record) (summary, track []byte, err error) {
	if rec == nil || rec.Activity.ID == "" {
		return nil, nil, fmt.Errorf("store: activity id is required")
	}
	summary, err = json.Marshal(rec.Activity)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal activity: %w", err)
	}
	track, err = json.Marshal(trackValue{Laps: rec.Laps, Points: rec.Points})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal track: %w", err)
	}
	return summary, track, nil
}

func putRecord(txn *badger.Txn, rec *Record, summary, track []byte) error {
	id := rec.Activity.ID
	if err := txn.Set([]byte(activityKeyPrefix+id), summary); err != nil {
		return fmt.Errorf("set activity: %w", err)
	}
	if err := txn.Set([]byte(trackKeyPrefix+id), track); err != nil {
		return fmt.Errorf("set track: %w", err)
	}
	if name := rec.Activity.SourceFileName; name != "" {
		if err := txn.Set([]byte(fileKeyPrefix+name), []byte(id)); err != nil {
			return fmt.Errorf("set file mapping: %w", err)
		}
	}
	return nil
}

// deleteFileMapping removes file:<name> only while it still points at id.
func deleteFileMapping(txn *badger.Txn, name, id string) error {
	key := []byte(fileKeyPrefix + name)
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get file mapping: %w", err)
	}
	owner, err := item.ValueCopy(nil)
	if err != nil {
		return fmt.Errorf("read file mapping: %w", err)
	}
	if string(owner) != id {
		return nil
	}
	if err := txn.Delete(key); err != nil {
		return fmt.Errorf("delete file mapping: %w", err)
	}
	return nil
}

func (s *BadgerRepository) Exists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, activityKeyPrefix+id)
}

func (s *BadgerRepository) ExistsFileName(ctx context.Context, name string) (bool, error) {
	return s.exists(ctx, fileKeyPrefix+name)
}

func (s *BadgerRepository) exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", key, err)
	}
	return found, nil
}

func (s *BadgerRepository) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		a, err := getActivity(txn, id)
		if err != nil {
			return err
		}
		rec.Activity = *a

		item, err := txn.Get([]byte(trackKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get track: %w", err)
		}
		return item.Value(func(val []byte) error {
			var tv trackValue
			if err := json.Unmarshal(val, &tv); err != nil {
				return fmt.Errorf("unmarshal track: %w", err)
			}
			rec.Laps, rec.Points = tv.Laps, tv.Points
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BadgerRepository) List(ctx context.Context) ([]canonical.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []canonical.Activity
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(activityKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var a canonical.Activity
				if err := json.Unmarshal(val, &a); err != nil {
					return err
				}
				out = append(out, a)
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].StartTime, out[j].StartTime
		switch {
		case a == nil && b == nil:
			return out[i].ID < out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return out[i].ID < out[j].ID
		}
	})
	return out, nil
}

func (s *BadgerRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		a, err := getActivity(txn, id)
		if err != nil {
			return err
		}
		for _, k := range []string{activityKeyPrefix + id, trackKeyPrefix + id} {
			if err := txn.Delete([]byte(k)); err != nil {
				return fmt.Errorf("delete %s: %w", k, err)
			}
		}
		if a.SourceFileName != "" {
			return deleteFileMapping(txn, a.SourceFileName, id)
		}
		return nil
	})
}

func getActivity(txn *badger.Txn, id string) (*canonical.Activity, error) {
	item, err := txn.Get([]byte(activityKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	var a canonical.Activity
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &a)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal activity: %w", err)
	}
	return &a, nil
}
