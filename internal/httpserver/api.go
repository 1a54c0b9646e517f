package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront/mirror/internal/domain"
	"storefront/mirror/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type syncTriggerResponse struct {
	Started bool              `json:"started"`
	Status  domain.SyncStatus `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSource serves the validated upstream body when the record carries one,
// so fields without a struct member reach API clients unchanged.
func writeSource(w http.ResponseWriter, status int, raw json.RawMessage, v any) {
	if len(raw) == 0 {
		writeJSON(w, status, v)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// upstreamStatus maps a single-entity upstream failure onto a response code
func upstreamStatus(err error) (int, string) {
	if domain.IsAbsent(err) {
		return http.StatusNotFound, "not found"
	}
	return http.StatusBadGateway, "upstream error"
}

// cartStatus maps a cart mutation failure onto a response code
func cartStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrInvalidProduct):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "cart unavailable"
	}
}

func (s *Server) apiCategories(w http.ResponseWriter, r *http.Request) {
	tree, err := s.catalog.Categories(r.Context())
	if err != nil {
		log.Warnf("⚠️ Failed to fetch category tree: %v", err)
		status, msg := upstreamStatus(err)
		writeError(w, r, status, msg)
		return
	}
	writeSource(w, http.StatusOK, tree.SourceJSON(), tree)
}

func (s *Server) apiCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.Atoi(chi.URLParam(r, "categoryID"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}

	detail, err := s.catalog.Category(r.Context(), categoryID)
	if err != nil {
		log.Warnf("⚠️ Failed to fetch category %d: %v", categoryID, err)
		status, msg := upstreamStatus(err)
		writeError(w, r, status, msg)
		return
	}
	writeSource(w, http.StatusOK, detail.SourceJSON(), detail)
}

func (s *Server) apiProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	detail, err := s.catalog.Product(r.Context(), productID)
	if err != nil {
		log.Warnf("⚠️ Failed to fetch product %s: %v", productID, err)
		status, msg := upstreamStatus(err)
		writeError(w, r, status, msg)
		return
	}
	writeSource(w, http.StatusOK, detail.SourceJSON(), detail)
}

func (s *Server) apiSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.catalog.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		log.Errorf("❌ Search failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) apiCart(w http.ResponseWriter, r *http.Request) {
	s.writeCart(w, r, http.StatusOK)
}

func (s *Server) apiCartAdd(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := s.cart.Add(r.Context(), sessionID(r), req.ProductID, req.Quantity); err != nil {
		status, msg := cartStatus(err)
		writeError(w, r, status, msg)
		return
	}
	s.writeCart(w, r, http.StatusOK)
}

func (s *Server) apiCartUpdate(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.cart.SetQuantity(r.Context(), sessionID(r), chi.URLParam(r, "productID"), req.Quantity); err != nil {
		status, msg := cartStatus(err)
		writeError(w, r, status, msg)
		return
	}
	s.writeCart(w, r, http.StatusOK)
}

func (s *Server) apiCartRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.cart.Remove(r.Context(), sessionID(r), chi.URLParam(r, "productID")); err != nil {
		status, msg := cartStatus(err)
		writeError(w, r, status, msg)
		return
	}
	s.writeCart(w, r, http.StatusOK)
}

func (s *Server) writeCart(w http.ResponseWriter, r *http.Request, status int) {
	view, err := s.cart.View(r.Context(), sessionID(r))
	if err != nil {
		log.Errorf("❌ Failed to build cart: %v", err)
		writeError(w, r, http.StatusInternalServerError, "cart unavailable")
		return
	}
	writeJSON(w, status, view)
}

func (s *Server) apiSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.sync.Status(r.Context())
	if err != nil {
		log.Warnf("⚠️ Failed to read last sync run: %v", err)
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) apiSyncTrigger(w http.ResponseWriter, r *http.Request) {
	started := s.sync.Trigger()

	status, err := s.sync.Status(r.Context())
	if err != nil {
		log.Warnf("⚠️ Failed to read last sync run: %v", err)
	}

	code := http.StatusAccepted
	if !started {
		code = http.StatusConflict
	}
	writeJSON(w, code, syncTriggerResponse{Started: started, Status: status})
}
