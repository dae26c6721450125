package ui

import (
	"encoding/json"
	"net/http"

	"github.com/saadiahenna/hennabook/internal/booking"
	"github.com/saadiahenna/hennabook/internal/http/errors"
)

const maxRequestBody = 64 << 10

type apiResponse struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
	Field string `json:"field,omitempty"`
}

// CreateBooking accepts a JSON booking request and answers with the new
// booking id.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req booking.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.LogInfo(r, "rejecting malformed booking request body")
		errors.JSON(w, r, http.StatusBadRequest, apiResponse{Error: "Invalid request body"})
		return
	}

	id, err := h.bookings.Submit(r.Context(), req)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}

	errors.JSON(w, r, http.StatusOK, apiResponse{OK: true, ID: id})
}

// ConfirmBooking is the link the owner follows from the request email.
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	result, err := h.bookings.Confirm(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	http.Redirect(w, r, result.RedirectPath(), http.StatusFound)
}

func (h *Handler) writeBookingError(w http.ResponseWriter, r *http.Request, err error) {
	resp := apiResponse{Error: booking.PublicMessage(err), Field: booking.FieldOf(err)}

	switch booking.KindOf(err) {
	case booking.KindValidation:
		errors.JSON(w, r, http.StatusBadRequest, resp)
	case booking.KindNotFound:
		errors.JSON(w, r, http.StatusNotFound, resp)
	default:
		errors.LogError(r, "booking request failed", err)
		errors.JSON(w, r, http.StatusInternalServerError, resp)
	}
}
