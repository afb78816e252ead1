package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kurin/blazer/b2"
)

// B2 stores objects in a private Backblaze B2 bucket under
// "<category>/<name>" keys.
type B2 struct {
	Client *b2.Client
	Bucket *b2.Bucket
}

func NewB2(ctx context.Context, keyID, appKey, bucketName string) (*B2, error) {
	client, err := b2.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create b2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &B2{Client: client, Bucket: bucket}, nil
}

func key(category Category, name string) string {
	return string(category) + "/" + name
}

func (s *B2) Put(ctx context.Context, category Category, name string, r io.Reader) (int64, error) {
	if err := check(category, name); err != nil {
		return 0, err
	}
	obj := s.Bucket.Object(key(category, name))
	if _, err := obj.Attrs(ctx); err == nil {
		return 0, ErrExists
	} else if !b2.IsNotExist(err) {
		return 0, fmt.Errorf("failed to stat object: %w", err)
	}

	return upload(ctx, func(wctx context.Context) io.WriteCloser { return obj.NewWriter(wctx) }, r)
}

// upload copies r into a writer bound to a child context. On a copy error
// the context is cancelled before Close, so the partial object is never
// committed.
func upload(ctx context.Context, open func(context.Context) io.WriteCloser, r io.Reader) (int64, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := open(wctx)
	n, err := io.Copy(w, r)
	if err != nil {
		cancel()
		w.Close()
		return 0, fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("failed to close writer: %w", err)
	}
	return n, nil
}

func (s *B2) Open(ctx context.Context, category Category, name string) (io.ReadCloser, error) {
	if err := check(category, name); err != nil {
		return nil, err
	}
	obj := s.Bucket.Object(key(category, name))
	if _, err := obj.Attrs(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return obj.NewReader(ctx), nil
}

func (s *B2) Delete(ctx context.Context, category Category, name string) error {
	if err := check(category, name); err != nil {
		return err
	}
	if err := s.Bucket.Object(key(category, name)).Delete(ctx); err != nil {
		if b2.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *B2) List(ctx context.Context, category Category) ([]string, error) {
	if !category.Valid() {
		return nil, ErrInvalidName
	}
	prefix := string(category) + "/"
	var names []string
	iter := s.Bucket.List(ctx, b2.ListPrefix(prefix))
	for iter.Next() {
		name := strings.TrimPrefix(iter.Object().Name(), prefix)
		if ValidateName(name) == nil {
			names = append(names, name)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return names, nil
}
