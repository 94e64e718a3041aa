package redisx

import "time"

const (
	// Single-order read cache: order:{order_id} -> full order JSON
	KeyOrder = "order:%s"

	// Cached listings per scope, keyed by the order date (yyyy-mm-dd).
	// These are the scopes the invalidator clears when an order lands.
	KeyListBranch  = "orders:list:branch:%s:%s"
	KeyListCompany = "orders:list:company:%s:%s"
	KeyListWaiter  = "orders:list:waiter:%s:%s"

	// Fulfillment fast-path dedup: dedup:fulfill:{order_id}.
	// The stock_applies row is the truth; this only spares a round-trip.
	KeyFulfillDedup = "dedup:fulfill:%s"

	// Event dedup for consumers: dedup:{service}:{event_id}
	KeyEventDedup = "dedup:%s:%s"

	// Live kitchen board per branch: hash kitchen:board:{branch_id},
	// field = order_id, value = board entry JSON.
	KeyKitchenBoard = "kitchen:board:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLListing    = 2 * time.Minute
	TTLDedup      = 48 * time.Hour
)
