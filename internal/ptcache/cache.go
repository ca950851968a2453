package ptcache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"projtrace/internal/fileutil"
	"projtrace/internal/infostore"
	"projtrace/internal/logging"
	"projtrace/internal/services"
)

const (
	fileSuffix = ".info"
	lockSuffix = ".lock"
)

// Store loads and saves per-image records for a fixed program version.
type Store struct {
	dirName string
	version string
	logger  *slog.Logger
}

// New creates a store writing into dirName beside each image and tagging
// records with version.
func New(dirName, version string, logger *slog.Logger) *Store {
	dirName = strings.TrimSpace(dirName)
	if dirName == "" {
		dirName = "pt_cache"
	}
	return &Store{
		dirName: dirName,
		version: version,
		logger:  logging.NewComponentLogger(logger, "ptcache"),
	}
}

// Version returns the tag written into every saved record.
func (s *Store) Version() string { return s.version }

// Path returns the cache file location for imagePath.
func (s *Store) Path(imagePath string) string {
	return filepath.Join(filepath.Dir(imagePath), s.dirName, filepath.Base(imagePath)+fileSuffix)
}

// Load returns the cached record for imagePath. The boolean reports whether a
// usable record was found; otherwise a fresh record is returned. Only a
// failure to take the lock is reported as an error.
func (s *Store) Load(ctx context.Context, imagePath string) (*infostore.Record, bool, error) {
	path := s.Path(imagePath)
	logger := logging.WithContext(ctx, s.logger)

	if _, err := os.Stat(filepath.Dir(path)); errors.Is(err, fs.ErrNotExist) {
		return infostore.New(), false, nil
	}

	lock := flock.New(path + lockSuffix)
	if err := lock.RLock(); err != nil {
		return nil, false, services.Wrap(services.ErrPersistence, "ptcache", "lock", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(ctx, logger, "cache unreadable", "ptcache_read_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "all stages will be recomputed"))
		}
		return infostore.New(), false, nil
	}

	var rec infostore.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		logging.WarnWithContext(ctx, logger, "cache undecodable", "ptcache_decode_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "all stages will be recomputed"))
		return infostore.New(), false, nil
	}
	if rec.Version != s.version {
		logger.Info("discarding cache from another version",
			logging.String("path", path),
			logging.String("cached_version", rec.Version),
			logging.String("program_version", s.version))
		return infostore.New(), false, nil
	}

	logger.Debug("loaded cache", logging.String("path", path), logging.Int("boxes", len(rec.Boxes)))
	return &rec, true, nil
}

// Save tags rec with the store version and writes it atomically.
func (s *Store) Save(ctx context.Context, imagePath string, rec *infostore.Record) error {
	if rec == nil {
		return services.Wrap(services.ErrValidation, "ptcache", "save", "nil record", nil)
	}
	path := s.Path(imagePath)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrPersistence, "ptcache", "create cache directory", dir, err)
	}

	rec.Version = s.version
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "ptcache", "encode", path, err)
	}

	lock := flock.New(path + lockSuffix)
	if err := lock.Lock(); err != nil {
		return services.Wrap(services.ErrPersistence, "ptcache", "lock", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := fileutil.WriteAtomic(path, payload, 0o644); err != nil {
		return services.Wrap(services.ErrPersistence, "ptcache", "write", path, err)
	}

	logging.WithContext(ctx, s.logger).Debug("saved cache", logging.String("path", path), logging.Int("bytes", len(payload)))
	return nil
}

// Remove deletes the cached record for imagePath. It reports whether a file
// existed.
func (s *Store) Remove(imagePath string) (bool, error) {
	path := s.Path(imagePath)
	if ok, err := fileutil.Exists(filepath.Dir(path)); err != nil || !ok {
		return false, err
	}

	lock := flock.New(path + lockSuffix)
	if err := lock.Lock(); err != nil {
		return false, services.Wrap(services.ErrPersistence, "ptcache", "lock", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, services.Wrap(services.ErrPersistence, "ptcache", "remove", path, err)
	}
	s.logger.Debug("removed cache", logging.String("path", path))
	return true, nil
}
