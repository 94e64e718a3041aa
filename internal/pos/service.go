// Package pos orchestrates the order lifecycle: persist, settle, fulfill
// inventory, invalidate caches, broadcast.
package pos

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/kedaiku/resto-pos/internal/cache"
	"github.com/kedaiku/resto-pos/internal/inventory"
	kafkax "github.com/kedaiku/resto-pos/internal/kafka"
	"github.com/kedaiku/resto-pos/internal/orders"
	"github.com/kedaiku/resto-pos/internal/redisx"
)

type OrderStore interface {
	CreateOrder(ctx context.Context, o *orders.Order, pay *orders.Payment) error
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID string, from, to orders.Status) error
	CreatePaymentOnce(ctx context.Context, pay *orders.Payment) (bool, error)
}

type Planner interface {
	Plan(ctx context.Context, o *orders.Order) (inventory.Plan, error)
}

type Ledger interface {
	Apply(ctx context.Context, orderID string, plan inventory.Plan) ([]inventory.PlanKey, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context, keys []string)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type FulfillmentState string

const (
	// FulfillmentSkipped: the order is not paid, nothing to deduct yet.
	FulfillmentSkipped FulfillmentState = "SKIPPED"
	// FulfillmentApplied: the deduction plan landed atomically.
	FulfillmentApplied FulfillmentState = "APPLIED"
	// FulfillmentRepeat: this order was fulfilled before; no-op success.
	FulfillmentRepeat FulfillmentState = "ALREADY_APPLIED"
	// FulfillmentFailed: order and payment are committed, stock is not.
	// The caller may retry via Fulfill with the same order id.
	FulfillmentFailed FulfillmentState = "FAILED"
)

type Result struct {
	Order          *orders.Order
	Payment        *orders.Payment
	Fulfillment    FulfillmentState
	FulfillmentErr error
}

// Service is wired once at startup; storage sessions, caches and producers
// are injected, never global.
type Service struct {
	Orders    OrderStore
	Planner   Planner
	Ledger    Ledger
	Cache     Invalidator
	Publisher Publisher
	Redis     *redis.Client // optional fulfillment dedup fast path
	Name      string        // producer name stamped on events
}

type SubmitInput struct {
	BranchID      string
	CompanyID     string
	WaiterID      string
	Lines         []orders.LineInput
	DiscountCents int
	RoundingCents int
	Status        orders.Status
	Payment       *orders.PaymentInput
	TraceID       string
}

// SubmitOrder persists order + lines (and the payment, when the order
// arrives PAID) as one unit, then runs the post-commit steps. A fulfillment
// failure never rolls the order back; it comes back in the Result so a
// retry path can re-run it.
func (s *Service) SubmitOrder(ctx context.Context, in SubmitInput) (*Result, error) {
	o, err := orders.NewOrder(in.BranchID, in.CompanyID, in.WaiterID, in.Lines, in.DiscountCents, in.RoundingCents, in.Status)
	if err != nil {
		return nil, err
	}

	var pay *orders.Payment
	if o.Status == orders.StatusPaid {
		pay = orders.NewPayment(o, in.Payment)
	}
	if err := s.Orders.CreateOrder(ctx, o, pay); err != nil {
		return nil, err
	}

	res := &Result{Order: o, Payment: pay, Fulfillment: FulfillmentSkipped}
	if o.Status == orders.StatusPaid {
		s.fulfill(ctx, o, res)
	}
	s.finish(ctx, o, orders.EventOrderCreated, in.TraceID)
	return res, nil
}

// TransitionStatus validates the move against the state machine and, on a
// transition into PAID, runs fulfillment exactly once (idempotency key =
// order id, claimed inside the ledger's transaction).
func (s *Service) TransitionStatus(ctx context.Context, orderID string, to orders.Status, pay *orders.PaymentInput, traceID string) (*Result, error) {
	o, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !orders.CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%s -> %s: %w", o.Status, to, orders.ErrInvalidTransition)
	}
	if err := s.Orders.UpdateStatus(ctx, orderID, o.Status, to); err != nil {
		return nil, err
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()

	res := &Result{Order: o, Fulfillment: FulfillmentSkipped}
	if to == orders.StatusPaid {
		p := orders.NewPayment(o, pay)
		created, err := s.Orders.CreatePaymentOnce(ctx, p)
		switch {
		case err != nil:
			// Order is PAID either way; payment stays pending for a
			// correction path outside this core.
			log.Printf("payment for order %s: %v", o.ID, err)
		case created:
			res.Payment = p
		}
		s.fulfill(ctx, o, res)
	}
	s.finish(ctx, o, orders.EventOrderStatusChanged, traceID)
	return res, nil
}

// Fulfill re-runs inventory fulfillment for an already paid order, e.g.
// after a FAILED result. Safe to call any number of times.
func (s *Service) Fulfill(ctx context.Context, orderID string) (*Result, error) {
	o, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != orders.StatusPaid {
		return nil, fmt.Errorf("order %s is %s, not PAID: %w", orderID, o.Status, orders.ErrInvalidTransition)
	}
	res := &Result{Order: o}
	s.fulfill(ctx, o, res)
	return res, nil
}

func (s *Service) fulfill(ctx context.Context, o *orders.Order, res *Result) {
	if s.seenFulfilled(ctx, o.ID) {
		res.Fulfillment = FulfillmentRepeat
		return
	}

	plan, err := s.Planner.Plan(ctx, o)
	if err != nil {
		res.Fulfillment = FulfillmentFailed
		res.FulfillmentErr = err
		return
	}

	if _, err := s.Ledger.Apply(ctx, o.ID, plan); err != nil {
		if errors.Is(err, inventory.ErrAlreadyApplied) {
			res.Fulfillment = FulfillmentRepeat
			s.markFulfilled(ctx, o.ID)
			return
		}
		res.Fulfillment = FulfillmentFailed
		res.FulfillmentErr = err
		return
	}

	s.markFulfilled(ctx, o.ID)
	res.Fulfillment = FulfillmentApplied
}

// Redis is only a fast path; the stock_applies claim in the ledger's
// transaction is the truth.
func (s *Service) seenFulfilled(ctx context.Context, orderID string) bool {
	if s.Redis == nil {
		return false
	}
	ok, _ := redisx.Exists(ctx, s.Redis, fmt.Sprintf(redisx.KeyFulfillDedup, orderID))
	return ok
}

func (s *Service) markFulfilled(ctx context.Context, orderID string) {
	if s.Redis == nil {
		return
	}
	_ = s.Redis.Set(ctx, fmt.Sprintf(redisx.KeyFulfillDedup, orderID), "1", redisx.TTLDedup).Err()
}

// finish runs the best-effort tail: drop stale read views, then broadcast.
// Neither step may fail the order operation.
func (s *Service) finish(ctx context.Context, o *orders.Order, eventType, traceID string) {
	keys := cache.ScopeKeys(o.BranchID, o.CompanyID, o.WaiterID, o.CreatedAt)
	keys = append(keys, fmt.Sprintf(redisx.KeyOrder, o.ID))
	s.Cache.Invalidate(ctx, keys)

	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Name,
		TraceID:       traceID,
		CorrelationID: o.ID,
		Payload:       kafkax.MustMarshal(orders.ChangedPayload(o)),
	}
	s.Publisher.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
