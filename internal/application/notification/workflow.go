package notification

import (
	"fmt"
	"time"

	"github.com/market-realtime/internal/domain"
)

// Builders for the notifications raised by the order and appointment
// workflows. They only shape the payload; callers pass the result to Publish.

// OrderReceived tells a vendor that a customer placed an order in their store.
func OrderReceived(vendorUserID, orderID, storeOrderID int64, customerName string, total float64) domain.NewNotification {
	return domain.NewNotification{
		UserID:    vendorUserID,
		Title:     "New Order Received",
		Message:   fmt.Sprintf("You have received a new order #%d from %s. Total: $%.2f", storeOrderID, customerName, total),
		Type:      domain.NotificationOrder,
		RelatedID: &orderID,
	}
}

// AppointmentBooked tells a vendor about a new booking.
func AppointmentBooked(vendorUserID, appointmentID int64, staffName, serviceName string, at time.Time) domain.NewNotification {
	return domain.NewNotification{
		UserID:    vendorUserID,
		Title:     "New Appointment Booked",
		Message:   fmt.Sprintf("New appointment with %s for %s on %s.", staffName, serviceName, at.Format("2006-01-02 15:04")),
		Type:      domain.NotificationAppointment,
		RelatedID: &appointmentID,
	}
}

// AppointmentCancelled tells a vendor a customer cancelled. late marks a
// cancellation inside the 24h penalty window.
func AppointmentCancelled(vendorUserID, appointmentID int64, customerName string, late bool) domain.NewNotification {
	if customerName == "" {
		customerName = "Guest"
	}
	msg := fmt.Sprintf("Customer %s successfully cancelled appointment #%d.", customerName, appointmentID)
	if late {
		msg += " (LATE CANCELLATION: Within 24h Penalty Applied)"
	}
	return domain.NewNotification{
		UserID:    vendorUserID,
		Title:     "Appointment Cancelled",
		Message:   msg,
		Type:      domain.NotificationAppointment,
		RelatedID: &appointmentID,
	}
}
