// Package filestore stores uploaded images and videos and hands back the
// URL clients load them from.
package filestore

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Store is where uploads live.
type Store interface {
	// Put writes r under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// URL is the download URL for key.
	URL(key string) string
}

// Upload describes a stored file.
type Upload struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Save writes r under dir/YYYY/MM/<short-uuid>-<sanitized name> and returns
// where it landed.
func Save(ctx context.Context, s Store, dir, filename string, r io.Reader, size int64, contentType string) (Upload, error) {
	now := time.Now().UTC()
	key := path.Join(dir, fmt.Sprintf("%04d/%02d", now.Year(), now.Month()),
		uuid.NewString()[:8]+"-"+sanitizeFilename(filename))

	if err := s.Put(ctx, key, r, size, contentType); err != nil {
		return Upload{}, fmt.Errorf("store upload: %w", err)
	}
	return Upload{Key: key, URL: s.URL(key), Size: size, ContentType: contentType}, nil
}

// sanitizeFilename keeps [A-Za-z0-9._-], replaces everything else with '_'
// and caps the length at 100 while keeping a short extension.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filepath.ToSlash(filename))
	if filename == "." || filename == "/" {
		filename = ""
	}

	out := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}

	if len(out) == 0 {
		return "file"
	}
	if len(out) > 100 {
		ext := filepath.Ext(string(out))
		if ext != "" && len(ext) < 10 {
			out = append(out[:100-len(ext)], ext...)
		} else {
			out = out[:100]
		}
	}
	return string(out)
}
