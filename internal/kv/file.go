package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"ngoexplorer/internal/fileutil"
	appLog "ngoexplorer/internal/log"
)

// File keeps every slot in one JSON object on disk, e.g.
//
//	{"ngo-registrations": "[3,7]"}
//
// Each Set rewrites the whole file atomically with 0600 perms. Get on an
// undecodable file fails with ErrCorrupt; Set replaces such a file.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a File store backed by path. The file is created on
// the first Set; a missing file reads as an empty store.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("kv: file path is empty")
	}
	return &File{path: path}, nil
}

func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.readLocked()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (f *File) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.readLocked()
	if errors.Is(err, ErrCorrupt) {
		appLog.Error("replacing corrupt kv file", err, "path", f.path)
		data, err = make(map[string]string), nil
	}
	if err != nil {
		return err
	}
	data[key] = value
	return f.writeLocked(data)
}

func (f *File) readLocked() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("kv: read %s: %w", f.path, err)
	}
	data := make(map[string]string)
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, f.path, err)
	}
	return data, nil
}

func (f *File) writeLocked(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(f.path, raw, 0o600)
}
