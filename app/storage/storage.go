// Package storage keeps uploaded artifacts outside any publicly served
// directory. Callers address objects by a fixed category and a bare name.
package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
)

type Category string

const (
	Avatars     Category = "Avatars"
	Submissions Category = "Submissions"
	Exports     Category = "Exports"
)

func (c Category) Valid() bool {
	switch c {
	case Avatars, Submissions, Exports:
		return true
	}
	return false
}

var (
	ErrNotFound    = errors.New("storage: object not found")
	ErrExists      = errors.New("storage: object already exists")
	ErrInvalidName = errors.New("storage: invalid object name")
)

// MaxNameLength bounds stored object names.
const MaxNameLength = 255

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName accepts only bare file names: no separators, no parent
// references, no absolute paths. It never touches the filesystem.
func ValidateName(name string) error {
	if name == "" || len(name) > MaxNameLength {
		return ErrInvalidName
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`+"\x00") {
		return ErrInvalidName
	}
	if !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// Store is implemented by every storage backend.
type Store interface {
	// Put writes r under (category, name). It fails with ErrExists rather
	// than overwrite.
	Put(ctx context.Context, category Category, name string, r io.Reader) (int64, error)
	// Open returns the object's bytes; ErrNotFound when it does not exist.
	Open(ctx context.Context, category Category, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, category Category, name string) error
	// List returns the names stored in category, in no particular order.
	List(ctx context.Context, category Category) ([]string, error)
}

func check(category Category, name string) error {
	if !category.Valid() {
		return ErrInvalidName
	}
	return ValidateName(name)
}
