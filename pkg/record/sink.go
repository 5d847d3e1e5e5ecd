package record

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Sink stores one flushed recording and returns where it went.
type Sink interface {
	Write(ctx context.Context, body []byte) (string, error)
}

// objectName returns "<prefix><UTC timestamp>-<id>.ndjson".
func objectName(prefix string, now time.Time, id string) string {
	return fmt.Sprintf("%s%s-%s.ndjson", prefix, now.UTC().Format("20060102T150405Z"), id)
}

// DiskSink writes recordings as files in a directory.
type DiskSink struct {
	dir string
}

// NewDiskSink creates a DiskSink, creating dir if needed.
func NewDiskSink(dir string) (*DiskSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskSink{dir: dir}, nil
}

// Write implements Sink.
func (s *DiskSink) Write(ctx context.Context, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, objectName("", time.Now(), uuid.NewString()))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, nil
}
