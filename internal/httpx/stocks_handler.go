package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kedaiku/resto-pos/internal/inventory"
)

type StocksHandler struct {
	Stocks *inventory.StockRepo
}

type ReceiveStockReq struct {
	IngredientID string  `json:"ingredient_id"`
	BranchID     string  `json:"branch_id"`
	Qty          float64 `json:"qty"`
}

func (h *StocksHandler) Register(r *chi.Mux) {
	r.Post("/stocks", h.receiveStock)
	r.Get("/stocks", h.listStock)
}

func (h *StocksHandler) receiveStock(w http.ResponseWriter, r *http.Request) {
	var req ReceiveStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.IngredientID == "" || req.BranchID == "" || req.Qty <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ingredient_id, branch_id and positive qty required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	level, err := h.Stocks.Receive(ctx, req.IngredientID, req.BranchID, req.Qty)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, level)
}

func (h *StocksHandler) listStock(w http.ResponseWriter, r *http.Request) {
	branch := r.URL.Query().Get("branch")
	if branch == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing branch"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	levels, err := h.Stocks.Snapshot(ctx, branch)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if levels == nil {
		levels = []inventory.StockLevel{}
	}
	writeJSON(w, http.StatusOK, levels)
}
