package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/market-realtime/internal/application/notification"
	"github.com/market-realtime/internal/domain"
	"github.com/market-realtime/internal/pkg/validate"
)

// InternalHandler lets the order and appointment workflows publish
// notifications once their own transaction has committed.
type InternalHandler struct {
	svc notification.Service
}

func NewInternalHandler(svc notification.Service) *InternalHandler {
	return &InternalHandler{svc: svc}
}

type OrderReceivedRequest struct {
	VendorUserID int64   `json:"vendor_user_id" validate:"required,gt=0"`
	OrderID      int64   `json:"order_id" validate:"required,gt=0"`
	StoreOrderID int64   `json:"store_order_id" validate:"required,gt=0"`
	CustomerName string  `json:"customer_name" validate:"required"`
	Total        float64 `json:"total" validate:"gte=0"`
}

type AppointmentBookedRequest struct {
	VendorUserID  int64     `json:"vendor_user_id" validate:"required,gt=0"`
	AppointmentID int64     `json:"appointment_id" validate:"required,gt=0"`
	StaffName     string    `json:"staff_name" validate:"required"`
	ServiceName   string    `json:"service_name" validate:"required"`
	StartsAt      time.Time `json:"starts_at" validate:"required"`
}

type AppointmentCancelledRequest struct {
	VendorUserID  int64  `json:"vendor_user_id" validate:"required,gt=0"`
	AppointmentID int64  `json:"appointment_id" validate:"required,gt=0"`
	CustomerName  string `json:"customer_name"`
	Late          bool   `json:"late"`
}

// Publish stores an arbitrary notification and pushes it live.
func (h *InternalHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req domain.NewNotification
	if !decodeValid(w, r, &req) {
		return
	}
	h.publish(w, r, req)
}

func (h *InternalHandler) OrderReceived(w http.ResponseWriter, r *http.Request) {
	var req OrderReceivedRequest
	if !decodeValid(w, r, &req) {
		return
	}
	h.publish(w, r, notification.OrderReceived(req.VendorUserID, req.OrderID, req.StoreOrderID, req.CustomerName, req.Total))
}

func (h *InternalHandler) AppointmentBooked(w http.ResponseWriter, r *http.Request) {
	var req AppointmentBookedRequest
	if !decodeValid(w, r, &req) {
		return
	}
	h.publish(w, r, notification.AppointmentBooked(req.VendorUserID, req.AppointmentID, req.StaffName, req.ServiceName, req.StartsAt))
}

func (h *InternalHandler) AppointmentCancelled(w http.ResponseWriter, r *http.Request) {
	var req AppointmentCancelledRequest
	if !decodeValid(w, r, &req) {
		return
	}
	h.publish(w, r, notification.AppointmentCancelled(req.VendorUserID, req.AppointmentID, req.CustomerName, req.Late))
}

func (h *InternalHandler) publish(w http.ResponseWriter, r *http.Request, n domain.NewNotification) {
	created, err := h.svc.Publish(r.Context(), n)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func decodeValid(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}
