package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects on disk below Root.
type Local struct {
	root string
}

// NewLocal creates root and the category directories.
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	for _, c := range []Category{Avatars, Submissions, Exports} {
		if err := os.MkdirAll(filepath.Join(abs, string(c)), 0o700); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	return &Local{root: abs}, nil
}

func (l *Local) Root() string { return l.root }

// path resolves (category, name) and verifies the result stays inside the
// category directory.
func (l *Local) path(category Category, name string) (string, error) {
	if err := check(category, name); err != nil {
		return "", err
	}
	dir := filepath.Join(l.root, string(category))
	full := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, full)
	if err != nil || rel != name || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidName
	}
	return full, nil
}

func (l *Local) Put(ctx context.Context, category Category, name string, r io.Reader) (int64, error) {
	p, err := l.path(category, name)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, ErrExists
		}
		return 0, fmt.Errorf("create object: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(p)
		return 0, fmt.Errorf("write object: %w", err)
	}
	return n, nil
}

func (l *Local) Open(ctx context.Context, category Category, name string) (io.ReadCloser, error) {
	p, err := l.path(category, name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	st, err := f.Stat()
	if err != nil || !st.Mode().IsRegular() {
		f.Close()
		return nil, ErrNotFound
	}
	return f, nil
}

func (l *Local) Delete(ctx context.Context, category Category, name string) error {
	p, err := l.path(category, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (l *Local) List(ctx context.Context, category Category) ([]string, error) {
	if !category.Valid() {
		return nil, ErrInvalidName
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(l.root, string(category)))
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && ValidateName(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
