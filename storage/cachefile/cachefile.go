package cachefile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/kylycht/curconv/service"
	"github.com/kylycht/curconv/storage"
	"github.com/rs/zerolog/log"
)

// Store persists one JSON snapshot of T on disk inside a
// timestamped envelope: {"timestamp": <epoch seconds>, <key>: <payload>}.
// The timestamp records when the payload was fetched.
// Single process, single reader/writer; no locking.
type Store[T any] struct {
	path string           // cache file location
	key  string           // envelope payload key, e.g. "currencies" or "rates"
	now  func() time.Time // clock, swappable in tests
}

func New[T any](path, key string) *Store[T] {
	return &Store[T]{path: path, key: key, now: time.Now}
}

// Load reads the snapshot and classifies it against the expiration
// window. An absent, unreadable or malformed file is reported as
// storage.Missing; corruption is never an error on its own. A stale
// snapshot is still returned: staleness is informational.
func (s *Store[T]) Load(window time.Duration) (T, storage.Status) {
	var payload T

	content, err := os.ReadFile(s.path)
	if err != nil {
		return payload, storage.Missing
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(content, &envelope); err != nil {
		log.Debug().Str("path", s.path).Msg("cache file is corrupted")
		return payload, storage.Missing
	}

	var timestamp float64
	if err := json.Unmarshal(envelope["timestamp"], &timestamp); err != nil {
		return payload, storage.Missing
	}

	raw, ok := envelope[s.key]
	if !ok {
		return payload, storage.Missing
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, storage.Missing
	}

	age := s.now().Sub(time.Unix(int64(timestamp), 0))
	if age <= window {
		return payload, storage.Fresh
	}

	return payload, storage.Stale
}

// Save overwrites the whole envelope with the given payload and a
// timestamp of now. The write goes through a temp file and a rename,
// so a reader sees either a complete prior envelope or the new one.
func (s *Store[T]) Save(payload T) error {
	envelope := map[string]any{
		"timestamp": s.now().Unix(),
		s.key:       payload,
	}

	content, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

// Refresh runs the read-then-conditionally-refetch cycle:
//
//  1. a fresh snapshot is used as is
//  2. otherwise fetch, save and use the new payload
//  3. if the fetch fails and a stale snapshot exists, degrade to it
//  4. if the fetch fails and nothing is cached, fail hard
//
// Refresh itself never retries; retrying is the orchestrator's job.
func (s *Store[T]) Refresh(ctx context.Context, window time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	cached, status := s.Load(window)
	if status == storage.Fresh {
		log.Debug().Str("key", s.key).Msg("using cached data")
		return cached, nil
	}

	log.Debug().Str("key", s.key).Str("status", status.String()).Msg("cache unusable, fetching")

	payload, err := fetch(ctx)
	if err == nil {
		if saveErr := s.Save(payload); saveErr != nil {
			log.Error().Err(saveErr).Str("path", s.path).Msg("unable to save cache file")
		}
		return payload, nil
	}

	if status == storage.Stale {
		log.Debug().Err(err).Str("key", s.key).Msg("fetch failed, degrading to stale cache")
		return cached, nil
	}

	log.Error().Err(err).Str("key", s.key).Msg("fetch failed with no cached data to serve")
	return cached, service.ErrNoData
}
