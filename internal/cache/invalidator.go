package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kedaiku/resto-pos/internal/redisx"
)

const dateLayout = "2006-01-02"

// ScopeKeys derives every cached listing an order touches: its branch, its
// company and its waiter, each combined with the order date.
func ScopeKeys(branchID, companyID, waiterID string, at time.Time) []string {
	d := at.UTC().Format(dateLayout)
	return []string{
		fmt.Sprintf(redisx.KeyListBranch, branchID, d),
		fmt.Sprintf(redisx.KeyListCompany, companyID, d),
		fmt.Sprintf(redisx.KeyListWaiter, waiterID, d),
	}
}

type Invalidator struct{ Redis *redis.Client }

// Invalidate drops the cached views. Best effort: a failed DEL is logged
// and swallowed, stale reads beat blocking order placement.
func (i *Invalidator) Invalidate(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := i.Redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache invalidate %v: %v", keys, err)
	}
}
