// Package kitchen consumes order-change events and keeps a per-branch live
// board in Redis so dashboards read current state without polling.
package kitchen

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/kedaiku/resto-pos/internal/kafka"
	"github.com/kedaiku/resto-pos/internal/orders"
	"github.com/kedaiku/resto-pos/internal/redisx"
)

type BoardAction int

const (
	BoardPut BoardAction = iota
	BoardRemove
)

// ActionFor decides what an incoming status does to the board. PAID stays:
// in a pay-first flow the kitchen still has to cook the order. Finished or
// cancelled orders leave the board.
func ActionFor(status string) BoardAction {
	switch orders.Status(status) {
	case orders.StatusCompleted, orders.StatusCancelled:
		return BoardRemove
	}
	return BoardPut
}

// BoardEntry is the value stored per order on the branch board hash.
type BoardEntry struct {
	OrderID    string              `json:"order_id"`
	SeqNo      int                 `json:"seq_no"`
	Status     string              `json:"status"`
	TotalCents int                 `json:"total_cents"`
	Lines      []orders.LineChange `json:"lines,omitempty"`
}

type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderChanged is the consumer handler for pos.order.changed.
func (s *Service) HandleOrderChanged(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	switch env.EventType {
	case orders.EventOrderCreated, orders.EventOrderStatusChanged:
	default:
		return nil
	}

	// dedup by event id; redelivery after a commit failure is expected
	dkey := fmt.Sprintf(redisx.KeyEventDedup, s.ServiceName, env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderChangedPayload](env.Payload)
	if err != nil {
		return err
	}

	board := fmt.Sprintf(redisx.KeyKitchenBoard, p.BranchID)
	switch ActionFor(p.Status) {
	case BoardRemove:
		if err := s.Redis.HDel(ctx, board, p.OrderID).Err(); err != nil {
			return err
		}
	case BoardPut:
		entry := kafkax.MustMarshal(BoardEntry{
			OrderID:    p.OrderID,
			SeqNo:      p.SeqNo,
			Status:     p.Status,
			TotalCents: p.TotalCents,
			Lines:      p.Lines,
		})
		if err := s.Redis.HSet(ctx, board, p.OrderID, entry).Err(); err != nil {
			return err
		}
	}

	return s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
}
