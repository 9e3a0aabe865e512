package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Makepad-fr/foodchain/internal/ledger"
	"github.com/Makepad-fr/foodchain/internal/model"
	"github.com/Makepad-fr/foodchain/internal/qr"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

type handler struct {
	ledger Ledger
	log    *zap.Logger
}

type accountResponse struct {
	Account   string `json:"account"`
	Connected bool   `json:"connected"`
	Contract  string `json:"contractAddress"`
}

type addItemRequest struct {
	Name   string `json:"name"`
	Origin string `json:"origin"`
}

type addItemResponse struct {
	TxHash  string       `json:"txHash"`
	Items   []model.Item `json:"items"`
	Warning string       `json:"warning,omitempty"`
}

type scanRequest struct {
	Text string `json:"text"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) account(w http.ResponseWriter, _ *http.Request) {
	addr, ok := h.ledger.Account()
	resp := accountResponse{Connected: ok, Contract: h.ledger.ContractAddress().Hex()}
	if ok {
		resp.Account = addr.Hex()
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.ledger.Items(r.Context())
	if err != nil {
		h.log.Warn("list items", zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "Could not load items: "+err.Error())
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	h.respondJSON(w, http.StatusOK, items)
}

func (h *handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	rcpt, err := h.ledger.AddItem(r.Context(), req.Name, req.Origin)
	switch {
	case errors.Is(err, ledger.ErrEmptyName):
		h.respondError(w, http.StatusBadRequest, "Item name is required")
		return
	case errors.Is(err, ledger.ErrNotConnected):
		h.respondError(w, http.StatusConflict, "Wallet not connected")
		return
	case err != nil:
		h.log.Warn("add item", zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "Transaction failed: "+err.Error())
		return
	}

	// the item is mined; a failed re-fetch does not turn that into an error
	resp := addItemResponse{TxHash: rcpt.TxHash.Hex(), Items: []model.Item{}}
	items, err := h.ledger.Items(r.Context())
	if err != nil {
		h.log.Warn("list items after add", zap.Error(err))
		resp.Warning = "Could not load items: " + err.Error()
	} else if items != nil {
		resp.Items = items
	}
	h.respondJSON(w, http.StatusCreated, resp)
}

func (h *handler) itemQR(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid item id")
		return
	}
	size := qr.DefaultSize
	if s := r.URL.Query().Get("size"); s != "" {
		if size, err = strconv.Atoi(s); err != nil || size < 64 || size > 2048 {
			h.respondError(w, http.StatusBadRequest, "Invalid size")
			return
		}
	}

	count, err := h.ledger.ItemCount(r.Context())
	if err != nil {
		h.respondError(w, http.StatusBadGateway, "Could not load items: "+err.Error())
		return
	}
	if id >= count {
		h.respondError(w, http.StatusNotFound, "Item not found")
		return
	}
	it, err := h.ledger.GetItem(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	text, err := qr.NewPayload(it, h.ledger.ContractAddress().Hex()).Encode()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	png, err := qr.PNG(text, size)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.log.Debug("write qr", zap.Error(err))
	}
}

func (h *handler) scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := qr.Decode(req.Text)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid QR code")
		return
	}
	h.respondJSON(w, http.StatusOK, p)
}

// decode reads a JSON body of at most maxBodyBytes into v and answers the
// request itself when that fails.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	case err != nil:
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("encode response", zap.Error(err))
	}
}

func (h *handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
