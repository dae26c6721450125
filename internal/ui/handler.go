package ui

import (
	"context"
	"html/template"
	"net/http"
	"strings"

	"github.com/saadiahenna/hennabook/internal/booking"
	"github.com/saadiahenna/hennabook/internal/config"
)

const submittedMessage = "Request sent! You’ll get an email confirmation of your booking soon."

var eventTypes = []string{"Event", "Private"}

// BookingService is the part of booking.Service the handlers drive.
type BookingService interface {
	Submit(ctx context.Context, req booking.Request) (string, error)
	Confirm(ctx context.Context, token string) (booking.Confirmation, error)
}

// Handler serves the booking form, the confirmed page and the booking API.
type Handler struct {
	cfg       *config.Config
	bookings  BookingService
	templates map[string]*template.Template
}

// NewHandler returns a Handler rendering the embedded page templates.
func NewHandler(cfg *config.Config, bookings BookingService) *Handler {
	return &Handler{cfg: cfg, bookings: bookings, templates: templates}
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/book", http.StatusFound)
}

// BookingForm renders the request form.
func (h *Handler) BookingForm(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title":           "Book an appointment",
		"EventTypes":      eventTypes,
		"DefaultTimezone": h.cfg.Business.DefaultTimezone,
	}
	h.render(w, r, "book.html", h.withFlash(r, data))
}

// SubmitBookingForm handles the HTML form post and redirects back to the
// form with a flash message.
func (h *Handler) SubmitBookingForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/book", map[string]string{"error": "Could not read the form"})
		return
	}

	req := booking.Request{
		FullName:  r.PostFormValue("fullName"),
		Email:     r.PostFormValue("email"),
		Phone:     r.PostFormValue("phone"),
		EventType: r.PostFormValue("eventType"),
		Location:  r.PostFormValue("location"),
		Notes:     r.PostFormValue("notes"),
		StartISO:  r.PostFormValue("startIso"),
		EndISO:    r.PostFormValue("endIso"),
		Timezone:  strings.TrimSpace(r.PostFormValue("timezone")),
	}

	if _, err := h.bookings.Submit(r.Context(), req); err != nil {
		h.redirect(w, r, "/book", map[string]string{"error": booking.PublicMessage(err)})
		return
	}
	h.redirect(w, r, "/book", map[string]string{"status": submittedMessage})
}

// Confirmed renders the page the owner lands on after confirming.
func (h *Handler) Confirmed(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title":     "Booking confirmed",
		"BookingID": r.URL.Query().Get("id"),
	}
	h.render(w, r, "confirmed.html", h.withFlash(r, data))
}
