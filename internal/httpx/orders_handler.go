package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/kedaiku/resto-pos/internal/cache"
	"github.com/kedaiku/resto-pos/internal/orders"
	"github.com/kedaiku/resto-pos/internal/pos"
	"github.com/kedaiku/resto-pos/internal/redisx"
)

// Identity arrives pre-validated from the session layer in front of us.
const (
	headerBranch  = "X-Branch-ID"
	headerCompany = "X-Company-ID"
	headerActor   = "X-Actor-ID"
)

type OrdersHandler struct {
	Svc      *pos.Service
	Repo     *orders.Repo
	Redis    *redis.Client
	Listings *cache.Listings
}

type SubmitOrderReq struct {
	Lines         []orders.LineInput   `json:"lines"`
	DiscountCents int                  `json:"discount_cents"`
	RoundingCents int                  `json:"rounding_cents"`
	Status        string               `json:"status,omitempty"`
	Payment       *orders.PaymentInput `json:"payment,omitempty"`
}

type TransitionReq struct {
	Status  string               `json:"status"`
	Payment *orders.PaymentInput `json:"payment,omitempty"`
}

type OrderResp struct {
	OrderID          string `json:"order_id"`
	SeqNo            int    `json:"seq_no"`
	Status           string `json:"status"`
	TotalCents       int    `json:"total_cents"`
	Fulfillment      string `json:"fulfillment,omitempty"`
	FulfillmentError string `json:"fulfillment_error,omitempty"`
	PaymentID        string `json:"payment_id,omitempty"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.submitOrder)
	r.Post("/orders/{id}/status", h.transitionStatus)
	r.Post("/orders/{id}/fulfill", h.fulfill)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders", h.listOrders)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	var ve *orders.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error()})
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func toResp(res *pos.Result) OrderResp {
	out := OrderResp{
		OrderID:     res.Order.ID,
		SeqNo:       res.Order.SeqNo,
		Status:      string(res.Order.Status),
		TotalCents:  res.Order.TotalCents,
		Fulfillment: string(res.Fulfillment),
	}
	if res.FulfillmentErr != nil {
		out.FulfillmentError = res.FulfillmentErr.Error()
	}
	if res.Payment != nil {
		out.PaymentID = res.Payment.ID
	}
	return out
}

func (h *OrdersHandler) submitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	branch, company, actor := r.Header.Get(headerBranch), r.Header.Get(headerCompany), r.Header.Get(headerActor)
	if branch == "" || company == "" || actor == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing identity headers"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.SubmitOrder(ctx, pos.SubmitInput{
		BranchID:      branch,
		CompanyID:     company,
		WaiterID:      actor,
		Lines:         req.Lines,
		DiscountCents: req.DiscountCents,
		RoundingCents: req.RoundingCents,
		Status:        orders.Status(req.Status),
		Payment:       req.Payment,
		TraceID:       r.Header.Get("X-Request-Id"),
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResp(res))
}

func (h *OrdersHandler) transitionStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req TransitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.TransitionStatus(ctx, orderID, orders.Status(req.Status), req.Payment, r.Header.Get("X-Request-Id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(res))
}

// fulfill is the retry entry after a FAILED fulfillment result.
func (h *OrdersHandler) fulfill(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Fulfill(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(res))
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrder, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	o, err := h.Repo.GetOrder(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	b, _ := json.Marshal(o)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLOrderCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	branch := r.URL.Query().Get("branch")
	if branch == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing branch"})
		return
	}
	date := time.Now().UTC()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date"})
			return
		}
		date = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := cache.BranchKey(branch, date)
	if b, ok := h.Listings.Get(ctx, key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
		return
	}

	list, err := h.Repo.ListByBranchDate(ctx, branch, date)
	if err != nil {
		writeErr(w, err)
		return
	}
	if list == nil {
		list = []orders.Summary{}
	}
	b, _ := json.Marshal(list)
	h.Listings.Set(ctx, key, b)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
