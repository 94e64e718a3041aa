package pos

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kedaiku/resto-pos/internal/cache"
	"github.com/kedaiku/resto-pos/internal/inventory"
	"github.com/kedaiku/resto-pos/internal/orders"
)

type fakeStore struct {
	byID     map[string]*orders.Order
	payments map[string]*orders.Payment
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]*orders.Order{}, payments: map[string]*orders.Payment{}}
}

func (f *fakeStore) CreateOrder(_ context.Context, o *orders.Order, pay *orders.Payment) error {
	o.SeqNo = len(f.byID) + 1
	f.byID[o.ID] = o
	if pay != nil {
		f.payments[o.ID] = pay
	}
	return nil
}

func (f *fakeStore) GetOrder(_ context.Context, orderID string) (*orders.Order, error) {
	o, ok := f.byID[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, orderID string, from, to orders.Status) error {
	o, ok := f.byID[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	if o.Status != from {
		return orders.ErrInvalidTransition
	}
	o.Status = to
	return nil
}

func (f *fakeStore) CreatePaymentOnce(_ context.Context, pay *orders.Payment) (bool, error) {
	if _, ok := f.payments[pay.OrderID]; ok {
		return false, nil
	}
	f.payments[pay.OrderID] = pay
	return true, nil
}

type fakeRecipes map[string][]inventory.RecipeEntry

func (f fakeRecipes) Recipe(_ context.Context, menuItemID string) ([]inventory.RecipeEntry, error) {
	return f[menuItemID], nil
}

type fakeLedger struct {
	applies int
	plans   []inventory.Plan
	applied map[string]bool
	err     error
}

func (f *fakeLedger) Apply(_ context.Context, orderID string, plan inventory.Plan) ([]inventory.PlanKey, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.applied == nil {
		f.applied = map[string]bool{}
	}
	if f.applied[orderID] {
		return nil, inventory.ErrAlreadyApplied
	}
	f.applied[orderID] = true
	f.applies++
	f.plans = append(f.plans, plan)
	return plan.Keys(), nil
}

type fakeInvalidator struct{ keys []string }

func (f *fakeInvalidator) Invalidate(_ context.Context, keys []string) {
	f.keys = append(f.keys, keys...)
}

type fakePublisher struct{ events []orders.Envelope }

func (f *fakePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	var env orders.Envelope
	if err := json.Unmarshal(value, &env); err == nil {
		f.events = append(f.events, env)
	}
}

type fixture struct {
	svc    *Service
	store  *fakeStore
	ledger *fakeLedger
	inval  *fakeInvalidator
	pub    *fakePublisher
}

func newFixture(recipes fakeRecipes) *fixture {
	f := &fixture{
		store:  newFakeStore(),
		ledger: &fakeLedger{},
		inval:  &fakeInvalidator{},
		pub:    &fakePublisher{},
	}
	f.svc = &Service{
		Orders:    f.store,
		Planner:   &inventory.Planner{Recipes: recipes},
		Ledger:    f.ledger,
		Cache:     f.inval,
		Publisher: f.pub,
		Name:      "pos-test",
	}
	return f
}

var breadRecipe = fakeRecipes{
	"bread": {{IngredientID: "flour", AmountPerUnit: 3}},
}

func TestSubmitPaidOrderFulfillsAndPays(t *testing.T) {
	f := newFixture(breadRecipe)

	res, err := f.svc.SubmitOrder(context.Background(), SubmitInput{
		BranchID:  "bx",
		CompanyID: "cy",
		WaiterID:  "wz",
		Lines: []orders.LineInput{
			{MenuItemID: "bread", Qty: 2, UnitPriceCents: 1500},
		},
		Status:  orders.StatusPaid,
		Payment: &orders.PaymentInput{Method: "CASH"},
	})
	require.NoError(t, err)

	assert.Equal(t, FulfillmentApplied, res.Fulfillment)
	require.NotNil(t, res.Payment)
	assert.Equal(t, res.Order.TotalCents, res.Payment.AmountCents)
	assert.Contains(t, f.store.payments, res.Order.ID)

	require.Len(t, f.ledger.plans, 1)
	assert.Equal(t, 6.0, f.ledger.plans[0][inventory.PlanKey{IngredientID: "flour", BranchID: "bx"}])

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, orders.EventOrderCreated, f.pub.events[0].EventType)
	assert.Equal(t, res.Order.ID, f.pub.events[0].CorrelationID)
}

func TestSubmitPendingOrderSkipsFulfillment(t *testing.T) {
	f := newFixture(breadRecipe)

	res, err := f.svc.SubmitOrder(context.Background(), SubmitInput{
		BranchID:  "bx",
		CompanyID: "cy",
		WaiterID:  "wz",
		Lines:     []orders.LineInput{{MenuItemID: "bread", Qty: 1, UnitPriceCents: 1500}},
	})
	require.NoError(t, err)

	assert.Equal(t, FulfillmentSkipped, res.Fulfillment)
	assert.Zero(t, f.ledger.applies)
	assert.Nil(t, res.Payment)
	require.Len(t, f.pub.events, 1)
}

func TestSubmitRejectsMalformedLines(t *testing.T) {
	f := newFixture(breadRecipe)
	var ve *orders.ValidationError

	_, err := f.svc.SubmitOrder(context.Background(), SubmitInput{
		BranchID:  "bx",
		CompanyID: "cy",
		WaiterID:  "wz",
		Lines:     []orders.LineInput{{MenuItemID: "bread", IngredientID: "flour", Qty: 1}},
	})
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, f.store.byID)
	assert.Empty(t, f.pub.events)
}

func TestFulfillmentFailureIsPartialSuccess(t *testing.T) {
	f := newFixture(breadRecipe)
	f.ledger.err = errors.New("storage down")

	res, err := f.svc.SubmitOrder(context.Background(), SubmitInput{
		BranchID:  "bx",
		CompanyID: "cy",
		WaiterID:  "wz",
		Lines:     []orders.LineInput{{MenuItemID: "bread", Qty: 2, UnitPriceCents: 1500}},
		Status:    orders.StatusPaid,
	})
	require.NoError(t, err, "order acceptance must survive a fulfillment failure")

	assert.Equal(t, FulfillmentFailed, res.Fulfillment)
	assert.ErrorContains(t, res.FulfillmentErr, "storage down")
	// order and payment stay committed
	assert.Contains(t, f.store.byID, res.Order.ID)
	assert.Contains(t, f.store.payments, res.Order.ID)
	require.Len(t, f.pub.events, 1)
}

func TestFulfillRetryAppliesExactlyOnce(t *testing.T) {
	f := newFixture(breadRecipe)
	f.ledger.err = errors.New("storage down")

	res, err := f.svc.SubmitOrder(context.Background(), SubmitInput{
		BranchID:  "bx",
		CompanyID: "cy",
		WaiterID:  "wz",
		Lines:     []orders.LineInput{{MenuItemID: "bread", Qty: 2, UnitPriceCents: 1500}},
		Status:    orders.StatusPaid,
	})
	require.NoError(t, err)
	require.Equal(t, FulfillmentFailed, res.Fulfillment)

	f.ledger.err = nil
	retry, err := f.svc.Fulfill(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, FulfillmentApplied, retry.Fulfillment)

	again, err := f.svc.Fulfill(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, FulfillmentRepeat, again.Fulfillment)
	assert.Equal(t, 1, f.ledger.applies)
}

func TestTransitionToPaidFulfillsAndCreatesPayment(t *testing.T) {
	f := newFixture(breadRecipe)

	res, err := f.svc.SubmitOrder(context.Background(), SubmitInput{
		BranchID:  "bx",
		CompanyID: "cy",
		WaiterID:  "wz",
		Lines:     []orders.LineInput{{MenuItemID: "bread", Qty: 2, UnitPriceCents: 1500}},
	})
	require.NoError(t, err)
	require.Zero(t, f.ledger.applies)

	paid, err := f.svc.TransitionStatus(context.Background(), res.Order.ID, orders.StatusPaid, &orders.PaymentInput{Method: "QRIS"}, "")
	require.NoError(t, err)

	assert.Equal(t, FulfillmentApplied, paid.Fulfillment)
	assert.Equal(t, 1, f.ledger.applies)
	require.NotNil(t, paid.Payment)
	assert.Equal(t, "QRIS", paid.Payment.Method)

	require.Len(t, f.pub.events, 2)
	assert.Equal(t, orders.EventOrderStatusChanged, f.pub.events[1].EventType)
}

func TestCancelPendingNeverDeducts(t *testing.T) {
	f := newFixture(breadRecipe)

	res, err := f.svc.SubmitOrder(context.Background(), SubmitInput{
		BranchID:  "bx",
		CompanyID: "cy",
		WaiterID:  "wz",
		Lines:     []orders.LineInput{{IngredientID: "flour", Qty: 5, UnitPriceCents: 200}},
	})
	require.NoError(t, err)

	cancelled, err := f.svc.TransitionStatus(context.Background(), res.Order.ID, orders.StatusCancelled, nil, "")
	require.NoError(t, err)
	assert.Equal(t, FulfillmentSkipped, cancelled.Fulfillment)
	assert.Zero(t, f.ledger.applies)

	// terminal: paying a cancelled order is rejected
	_, err = f.svc.TransitionStatus(context.Background(), res.Order.ID, orders.StatusPaid, nil, "")
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
	assert.Zero(t, f.ledger.applies)
}

func TestInvalidationCoversOrderScopesOnly(t *testing.T) {
	f := newFixture(breadRecipe)

	res, err := f.svc.SubmitOrder(context.Background(), SubmitInput{
		BranchID:  "bx",
		CompanyID: "cy",
		WaiterID:  "wz",
		Lines:     []orders.LineInput{{MenuItemID: "bread", Qty: 1, UnitPriceCents: 1500}},
	})
	require.NoError(t, err)

	want := cache.ScopeKeys("bx", "cy", "wz", res.Order.CreatedAt)
	for _, k := range want {
		assert.Contains(t, f.inval.keys, k)
	}
	for _, k := range cache.ScopeKeys("other-branch", "other-company", "other-waiter", res.Order.CreatedAt) {
		assert.NotContains(t, f.inval.keys, k)
	}
}

func TestTransitionUnknownOrder(t *testing.T) {
	f := newFixture(breadRecipe)
	_, err := f.svc.TransitionStatus(context.Background(), "nope", orders.StatusPaid, nil, "")
	require.ErrorIs(t, err, orders.ErrNotFound)
}
