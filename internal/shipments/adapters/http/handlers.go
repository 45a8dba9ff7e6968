package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mercato/backoffice/internal/shipments/app"
	"github.com/mercato/backoffice/internal/shipments/domain"
	"github.com/mercato/backoffice/internal/shipments/ports"
)

// Handler exposes shipment tracking and the carrier progress callback.
type Handler struct {
	service *app.Service
}

func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// Register binds the shipment handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/shipments/", h.handleShipmentByID)
}

func (h *Handler) handleShipmentByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/v1/shipments/")
	if trimmed == "" {
		writeError(w, http.StatusNotFound, "shipment not found")
		return
	}

	if strings.HasSuffix(trimmed, "/advance") {
		id := strings.TrimSuffix(trimmed, "/advance")
		id = strings.TrimSuffix(id, "/")
		if id == "" {
			writeError(w, http.StatusNotFound, "shipment not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.advance(w, r, id)
		return
	}

	id := strings.TrimSuffix(trimmed, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "shipment not found")
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.getShipment(w, r, id)
}

// advance is the carrier's progress callback. Each call moves the shipment
// exactly one step.
func (h *Handler) advance(w http.ResponseWriter, r *http.Request, id string) {
	shipment, err := h.service.Advance(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrNotFound):
			writeError(w, http.StatusNotFound, "shipment not found")
		case errors.Is(err, domain.ErrNotAdvanceable):
			writeError(w, http.StatusConflict, "shipment cannot be advanced")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"shipment": shipment})
}

func (h *Handler) getShipment(w http.ResponseWriter, r *http.Request, id string) {
	shipment, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "shipment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipment": shipment})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
