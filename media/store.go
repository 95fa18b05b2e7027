package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/camden-git/beachfinder/logging"
)

// Store saves, opens and deletes stored image variants by slash-separated key,
// e.g. "bondi/3f1c...e2.webp".
type Store interface {
	Save(ctx context.Context, key string, data io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ErrInvalidKey is returned for keys that escape the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

// LocalStorage implements the Store interface using the local filesystem
type LocalStorage struct {
	basePath string // absolute path to MEDIA_STORAGE_PATH
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absBasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory '%s': %w", absBasePath, err)
	}

	logging.Info().Str("path", absBasePath).Msg("media.store: initialized local storage")
	return &LocalStorage{basePath: absBasePath}, nil
}

// BasePath returns the absolute storage root.
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

func (ls *LocalStorage) Save(_ context.Context, key string, data io.Reader, _ string) error {
	fullSavePath, err := ls.GetFullPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullSavePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", key, err)
	}

	outFile, err := os.Create(fullSavePath)
	if err != nil {
		return fmt.Errorf("failed to create destination file '%s': %w", fullSavePath, err)
	}

	if _, err := io.Copy(outFile, data); err != nil {
		outFile.Close()
		os.Remove(fullSavePath)
		return fmt.Errorf("failed to write data to '%s': %w", fullSavePath, err)
	}
	if err := outFile.Close(); err != nil {
		os.Remove(fullSavePath)
		return fmt.Errorf("failed to close '%s': %w", fullSavePath, err)
	}

	logging.Debug().Str("key", key).Msg("media.store: saved asset")
	return nil
}

func (ls *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := ls.GetFullPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("asset not found at '%s': %w", key, err)
		}
		return nil, fmt.Errorf("failed to open asset '%s': %w", key, err)
	}
	return file, nil
}

// Delete removes an asset file
func (ls *LocalStorage) Delete(_ context.Context, key string) error {
	fullPath, err := ls.GetFullPath(key)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete asset '%s': %w", key, err)
	}
	if err == nil {
		logging.Debug().Str("key", key).Msg("media.store: deleted asset")
	}
	return nil
}

// GetFullPath calculates the absolute path and performs security check
func (ls *LocalStorage) GetFullPath(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: '%s'", ErrInvalidKey, key)
	}

	fullPath := filepath.Join(ls.basePath, filepath.FromSlash(filepath.Clean("/"+key)))
	if !strings.HasPrefix(fullPath, ls.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: access denied for '%s'", ErrInvalidKey, key)
	}
	return fullPath, nil
}
