package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/hungnqdz/exam-management/app/storage"
)

// ExportRetention is how long a generated CSV export stays downloadable.
const ExportRetention = time.Hour

// StartScheduler purges expired exports every interval until ctx is done.
func StartScheduler(ctx context.Context, files storage.Store, interval time.Duration) {
	go func() {
		log.Println("Scheduler started...")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := PurgeExports(ctx, files, now, ExportRetention)
				if err != nil {
					log.Printf("Error purging exports: %v", err)
				}
				if n > 0 {
					log.Printf("Purged %d expired exports", n)
				}
			}
		}
	}()
}

// PurgeExports deletes exports created more than maxAge before now. The
// creation time is read from the users_<unix-nanos>.csv name; other names
// are left alone.
func PurgeExports(ctx context.Context, files storage.Store, now time.Time, maxAge time.Duration) (int, error) {
	names, err := files.List(ctx, storage.Exports)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, name := range names {
		created, ok := exportTime(name)
		if !ok || now.Sub(created) < maxAge {
			continue
		}
		if err := files.Delete(ctx, storage.Exports, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return purged, err
		}
		purged++
	}
	return purged, nil
}

func exportTime(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, exportPrefix) || !strings.HasSuffix(name, ".csv") {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, exportPrefix), ".csv"), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}
