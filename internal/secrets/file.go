package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
)

// lockTimeout bounds how long a file operation waits for the advisory lock.
// Past it the operation proceeds unlocked so the server never hangs on a
// stale lock left by a crashed process.
const lockTimeout = 200 * time.Millisecond

// FileStore keeps the token pair in a JSON file readable only by the owner.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates a store writing to dir/token.json.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dir: dir, logger: logger}
}

// Name implements Store.
func (s *FileStore) Name() string {
	return "file"
}

// Path returns the token file location.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, "token.json")
}

func (s *FileStore) lockPath() string {
	return filepath.Join(s.dir, "token.lock")
}

// IsAvailable reports whether the directory can be created.
func (s *FileStore) IsAvailable() bool {
	return os.MkdirAll(s.dir, 0700) == nil
}

func (s *FileStore) lock() (*flock.Flock, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}

	fl := flock.New(s.lockPath())
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.logger.Debug("token file lock timed out, continuing unlocked", "path", s.lockPath())
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock token file: %w", err)
	}
	if !locked {
		return nil, nil
	}
	return fl, nil
}

func unlock(fl *flock.Flock) {
	if fl != nil {
		_ = fl.Unlock()
	}
}

// Save writes the pair atomically through a temp file and rename.
func (s *FileStore) Save(pair *TokenPair) error {
	data, err := encodePair(pair)
	if err != nil {
		return err
	}

	fl, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock(fl)

	tmp, err := os.CreateTemp(s.dir, "token-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close token file: %w", err)
	}

	dest := s.Path()
	if err := os.Rename(tmpPath, dest); err != nil {
		if runtime.GOOS != "windows" {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to replace token file: %w", err)
		}
		// Windows refuses to rename over an existing file.
		if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Debug("ignoring failure to delete previous token file", "path", dest, "error", rmErr)
		}
		if err := os.Rename(tmpPath, dest); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to replace token file: %w", err)
		}
	}
	return nil
}

// Load implements Store.
func (s *FileStore) Load() (*TokenPair, error) {
	fl, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock(fl)

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return decodePair(string(data))
}

// Delete implements Store.
func (s *FileStore) Delete() error {
	fl, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock(fl)

	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}
