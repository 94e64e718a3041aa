package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kedaiku/resto-pos/internal/redisx"
)

// Listings is the read side the invalidator clears: JSON blobs of listing
// responses keyed by scope + date.
type Listings struct{ Redis *redis.Client }

func BranchKey(branchID string, at time.Time) string {
	return fmt.Sprintf(redisx.KeyListBranch, branchID, at.UTC().Format(dateLayout))
}

func (l *Listings) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := l.Redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (l *Listings) Set(ctx context.Context, key string, body []byte) {
	_ = l.Redis.Set(ctx, key, body, redisx.TTLListing).Err()
}
