package storage

import (
	"context"
	"fmt"

	"github.com/hungnqdz/exam-management/app/config"
)

// Open builds the backend selected by STORAGE_BACKEND.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "local":
		local, err := NewLocal(cfg.Root)
		if err != nil {
			return nil, err
		}
		return local, nil
	case "b2":
		bucket, err := NewB2(ctx, cfg.B2.KeyID, cfg.B2.AppKey, cfg.B2.Bucket)
		if err != nil {
			return nil, err
		}
		return bucket, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
