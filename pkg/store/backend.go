package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"linkstash/pkg/config"
	"linkstash/pkg/errors"
	"linkstash/pkg/logger"
)

// Backend persists the single store record
type Backend interface {
	// Load returns nil data when nothing has been saved yet
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// default file names inside the data directory
var defaultFiles = map[string]string{
	"file":   "collections.json",
	"bolt":   "collections.db",
	"sqlite": "collections.sqlite",
}

// Open builds the backend named by cfg. An empty path puts the file in
// the data directory.
func Open(cfg config.StoreConfig, log logger.Logger) (Backend, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	backend := strings.ToLower(cfg.Backend)
	if backend == "" {
		backend = "file"
	}
	if backend == "memory" {
		return NewMemoryBackend(), nil
	}

	name, ok := defaultFiles[backend]
	if !ok {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("unknown store backend %q", cfg.Backend))
	}
	path := cfg.Path
	if path == "" {
		dir, err := DataDir()
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeConfig, "locating data directory", err)
		}
		path = filepath.Join(dir, name)
	}

	log.DebugWithFields("opening store", map[string]interface{}{"backend": backend, "path": path})
	switch backend {
	case "bolt":
		return OpenBolt(path)
	case "sqlite":
		return OpenSQLite(path)
	default:
		return NewFileBackend(path)
	}
}

// DataDir returns the per-user data directory, creating it if needed
func DataDir() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "linkstash")
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "linkstash")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			dataDir = filepath.Join(xdg, "linkstash")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "linkstash")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
