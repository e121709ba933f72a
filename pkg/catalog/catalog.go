// Package catalog persists decoded objects in a pebble database, grouped
// by catalog run.
//
// Keys are laid out as
//
//	run/<ksuid>                                 run record
//	obj/<ksuid>/<path>/<logical file>/<key>     object JSON
//
// so that one prefix scan yields every object of a run in file order.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/welllog/pkg/dlis"
	"github.com/ssargent/welllog/pkg/fault"
	"go.uber.org/zap"
)

const (
	runPrefix    = "run/"
	objectPrefix = "obj/"
	sep          = "/"
)

// Run describes one catalog run.
type Run struct {
	ID      ksuid.KSUID `json:"id"`
	Started time.Time   `json:"started"`
}

// Entry is one stored object.
type Entry struct {
	Run         ksuid.KSUID     `json:"run"`
	Path        string          `json:"path"`
	LogicalFile int             `json:"logical_file"`
	Key         string          `json:"key"`
	Object      json.RawMessage `json:"object"`
}

// Store is a pebble backed object catalog. It is safe for concurrent use.
type Store struct {
	db     *pebble.DB
	logger *zap.Logger
}

// Open opens or creates the catalog in dir.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open catalog in %s", dir)
	}
	return &Store{db: db, logger: logger}, nil
}

// Begin starts a new run and returns its id.
func (s *Store) Begin() (ksuid.KSUID, error) {
	run := Run{ID: ksuid.New(), Started: time.Now().UTC()}
	data, err := json.Marshal(run)
	if err != nil {
		return ksuid.Nil, err
	}
	if err := s.db.Set([]byte(runPrefix+run.ID.String()), data, pebble.Sync); err != nil {
		return ksuid.Nil, errors.Wrap(err, "unable to record catalog run")
	}
	s.logger.Info("catalog run started", zap.String("run", run.ID.String()))
	return run.ID, nil
}

// Runs returns every run, oldest first.
func (s *Store) Runs() ([]Run, error) {
	var out []Run
	err := s.scan(runPrefix, func(_, value []byte) error {
		var r Run
		if err := json.Unmarshal(value, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func objectKey(run ksuid.KSUID, path string, lf int, key string) []byte {
	// a fixed width logical file number keeps lexical order numeric
	return []byte(objectPrefix + run.String() + sep + path + sep + fmt.Sprintf("%06d", lf) + sep + key)
}

// Put stores v as JSON under run, path, logical file and key.
func (s *Store) Put(run ksuid.KSUID, path string, lf int, key string, v any) error {
	if strings.Contains(key, sep) {
		return errors.Newf("catalog key %q contains %q", key, sep)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "unable to encode %s", key)
	}
	return s.db.Set(objectKey(run, path, lf, key), data, pebble.NoSync)
}

// PutObject stores a DLIS object under its fingerprint.
func (s *Store) PutObject(run ksuid.KSUID, path string, lf int, obj *dlis.Object) error {
	return s.Put(run, path, lf, obj.Fingerprint().String(), obj)
}

// Get returns the entry stored under run, path, logical file and key.
func (s *Store) Get(run ksuid.KSUID, path string, lf int, key string) (*Entry, error) {
	data, closer, err := s.db.Get(objectKey(run, path, lf, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, errors.Wrapf(fault.ErrNotFound, "%s in %s, logical file %d", key, path, lf)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return &Entry{
		Run:         run,
		Path:        path,
		LogicalFile: lf,
		Key:         key,
		Object:      append(json.RawMessage(nil), data...),
	}, nil
}

// Objects returns every entry of run in key order.
func (s *Store) Objects(run ksuid.KSUID) ([]Entry, error) {
	prefix := objectPrefix + run.String() + sep

	var out []Entry
	err := s.scan(prefix, func(key, value []byte) error {
		e, err := parseKey(strings.TrimPrefix(string(key), prefix))
		if err != nil {
			return err
		}
		e.Run = run
		e.Object = append(json.RawMessage(nil), value...)
		out = append(out, e)
		return nil
	})
	return out, err
}

// parseKey splits <path>/<lf>/<key>. The path may itself contain
// separators, the last two components never do.
func parseKey(rest string) (Entry, error) {
	last := strings.LastIndex(rest, sep)
	if last < 0 {
		return Entry{}, errors.Wrapf(fault.ErrCorruptFormat, "catalog key %q", rest)
	}
	mid := strings.LastIndex(rest[:last], sep)
	if mid < 0 {
		return Entry{}, errors.Wrapf(fault.ErrCorruptFormat, "catalog key %q", rest)
	}

	var lf int
	if _, err := fmt.Sscanf(rest[mid+1:last], "%d", &lf); err != nil {
		return Entry{}, errors.Wrapf(fault.ErrCorruptFormat, "catalog key %q: %v", rest, err)
	}
	return Entry{Path: rest[:mid], LogicalFile: lf, Key: rest[last+1:]}, nil
}

func (s *Store) scan(prefix string, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upperBound([]byte(prefix)),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// upperBound returns the smallest key greater than every key with prefix.
func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// Flush syncs pending writes to disk.
func (s *Store) Flush() error {
	return s.db.Flush()
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
