package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

const (
	// Every state change of every order goes through one topic so
	// dashboards need a single subscription.
	TopicOrderChanged = "pos.order.changed"
)

// Partition key = order_id so all events of one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type LineChange struct {
	Kind         string `json:"kind"`
	MenuItemID   string `json:"menu_item_id,omitempty"`
	IngredientID string `json:"ingredient_id,omitempty"`
	Qty          int    `json:"qty"`
}

type OrderChangedPayload struct {
	OrderID    string       `json:"order_id"`
	BranchID   string       `json:"branch_id"`
	CompanyID  string       `json:"company_id"`
	WaiterID   string       `json:"waiter_id"`
	SeqNo      int          `json:"seq_no"`
	Status     string       `json:"status"`
	TotalCents int          `json:"total_cents"`
	Lines      []LineChange `json:"lines,omitempty"`
}

func ChangedPayload(o *Order) OrderChangedPayload {
	lines := make([]LineChange, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, LineChange{
			Kind:         string(l.Kind),
			MenuItemID:   l.MenuItemID,
			IngredientID: l.IngredientID,
			Qty:          l.Qty,
		})
	}
	return OrderChangedPayload{
		OrderID:    o.ID,
		BranchID:   o.BranchID,
		CompanyID:  o.CompanyID,
		WaiterID:   o.WaiterID,
		SeqNo:      o.SeqNo,
		Status:     string(o.Status),
		TotalCents: o.TotalCents,
		Lines:      lines,
	}
}
