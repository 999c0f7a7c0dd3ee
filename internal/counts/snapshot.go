package counts

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"contrastcore/internal/blob"
)

const snapshotContentType = "application/gzip"

// WriteSnapshot serializes the table as gzip-compressed JSON and stores it
// once under key. Later pipeline stages reload it with ReadSnapshot; keys are
// write-once so a snapshot cannot change between stages.
func WriteSnapshot(ctx context.Context, store blob.Store, key string, t *Table) (blob.Info, error) {
	pr, pw := io.Pipe()
	go func() {
		gz := gzip.NewWriter(pw)
		if err := json.NewEncoder(gz).Encode(t); err != nil {
			_ = pw.CloseWithError(fmt.Errorf("encode snapshot: %w", err))
			return
		}
		if err := gz.Close(); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.Close()
	}()

	info, err := store.Put(ctx, key, pr, blob.PutOptions{
		ContentType: snapshotContentType,
		Metadata: map[string]string{
			"features": strconv.Itoa(len(t.Features)),
			"samples":  strconv.Itoa(len(t.Samples)),
		},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store snapshot %s: %w", key, err)
	}
	return info, nil
}

// ReadSnapshot loads and decodes a table snapshot previously written under
// key.
func ReadSnapshot(ctx context.Context, store blob.Store, key string) (*Table, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()

	gz, err := gzip.NewReader(rc)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", key, err)
	}
	defer func() { _ = gz.Close() }()

	var t Table
	if err := json.NewDecoder(gz).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return &t, nil
}
