package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/casdoor/oss"
	"github.com/google/uuid"
)

// Uploader stores a local file and returns its public URL. Uploads are the
// slowest step in registration; callers must pass a deadline-bound context
// and must not hold anything while waiting.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

type ossUploader struct {
	store   oss.StorageInterface
	baseURL string
}

func NewUploader(store oss.StorageInterface, baseURL string) Uploader {
	return &ossUploader{store: store, baseURL: strings.TrimRight(baseURL, "/")}
}

func (u *ossUploader) Upload(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open upload source: %w", err)
	}

	name := objectName(localPath)
	done := make(chan error, 1)
	// The oss providers take no context; bound the call here so a caller
	// disconnect or deadline aborts the wait. The goroutine owns f and closes
	// it once Put returns, so an abandoned upload never reads a closed file.
	go func() {
		defer f.Close()
		_, err := u.store.Put(name, f)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("store object %q: %w", name, err)
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}

	url, err := u.store.GetURL(name)
	if err != nil {
		return "", fmt.Errorf("resolve object url %q: %w", name, err)
	}
	if u.baseURL != "" && !strings.HasPrefix(url, "http") {
		url = u.baseURL + "/" + strings.TrimLeft(url, "/")
	}
	return url, nil
}

// objectName keeps the original extension but randomizes the name so two
// users uploading "avatar.png" never collide.
func objectName(localPath string) string {
	ext := filepath.Ext(localPath)
	return fmt.Sprintf("%s/%s%s", time.Now().UTC().Format("2006/01"), uuid.NewString(), ext)
}
