package secrets

import (
	"log/slog"
	"os"
)

// NewStore returns the keyring store when usable, otherwise a FileStore in
// fallbackDir. Setting INOREADER_NO_KEYRING forces the file backend.
func NewStore(fallbackDir string, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}

	if os.Getenv("INOREADER_NO_KEYRING") == "" {
		ks := NewKeyringStore(logger)
		if ks.IsAvailable() {
			return ks
		}
	}

	fs := NewFileStore(fallbackDir, logger)
	logger.Warn("system keyring unavailable, token stored in plaintext file",
		"path", fs.Path())
	return fs
}
