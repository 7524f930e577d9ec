package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bookon-app/bookon/internal/api/dto"
	"github.com/bookon-app/bookon/internal/model"
	bkg "github.com/bookon-app/bookon/internal/model/booking"
	"github.com/bookon-app/bookon/internal/policy"
	"github.com/bookon-app/bookon/internal/repo"
	"github.com/bookon-app/bookon/internal/schedule"
	"github.com/bookon-app/bookon/internal/service"
	"github.com/bookon-app/bookon/internal/serviceerrs"
)

type bookingService interface {
	Create(ctx context.Context, in *service.NewBookingInput) (bkg.Booking, error)
	List(ctx context.Context, parentID string) ([]bkg.Booking, error)
}

type cancellationService interface {
	Cancel(ctx context.Context, bookingID, parentID string) (repo.CancellationRecord, error)
	ProviderCancel(ctx context.Context, bookingID string,
		choice policy.RefundChoice, requestedBy string) (repo.CancellationRecord, error)
}

type BookingHandler struct {
	bookings      bookingService
	cancellations cancellationService
	log           *slog.Logger
}

func NewBookingHandler(
	bookings bookingService,
	cancellations cancellationService,
	log *slog.Logger,
) *BookingHandler {
	return &BookingHandler{
		bookings:      bookings,
		cancellations: cancellations,
		log:           log,
	}
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	parentID, ok := parentIDFromContext(r)
	if !ok {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	var req dto.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.IsValid(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	amountFloat, err := req.Amount.Float64()
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	amount, err := model.FromFloat(amountFloat)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	b, err := h.bookings.Create(r.Context(), &service.NewBookingInput{
		ParentID:      parentID,
		ChildID:       req.ChildID,
		ActivityID:    req.ActivityID,
		PaymentMethod: bkg.PaymentMethod(req.PaymentMethod),
		Amount:        amount,
		SessionAt:     req.SessionAt,
		Sessions:      req.Sessions,
	})
	if err != nil {
		if errors.Is(err, serviceerrs.ErrInsufficientCredit) {
			http.Error(w, "insufficient wallet credit", http.StatusPaymentRequired)
			return
		}
		h.log.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to create booking",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "failed to create booking", http.StatusInternalServerError)
		return
	}

	writeJSON(r.Context(), w, h.log, http.StatusCreated, toBookingResponse(&b))
}

func (h *BookingHandler) GetBookings(w http.ResponseWriter, r *http.Request) {
	parentID, ok := parentIDFromContext(r)
	if !ok {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	bookings, err := h.bookings.List(r.Context(), parentID)
	if err != nil {
		h.log.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to list bookings",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}
	if len(bookings) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]dto.BookingResponse, len(bookings))
	for i := range bookings {
		resp[i] = toBookingResponse(&bookings[i])
	}
	writeJSON(r.Context(), w, h.log, http.StatusOK, resp)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	parentID, ok := parentIDFromContext(r)
	if !ok {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}
	bookingID := chi.URLParam(r, "bookingID")

	record, err := h.cancellations.Cancel(r.Context(), bookingID, parentID)
	if err != nil {
		h.writeCancellationError(w, r, err)
		return
	}

	writeJSON(r.Context(), w, h.log, http.StatusOK, toCancellationResponse(&record))
}

func (h *BookingHandler) ProviderCancelBooking(w http.ResponseWriter, r *http.Request) {
	requestedBy, ok := parentIDFromContext(r)
	if !ok {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}
	bookingID := chi.URLParam(r, "bookingID")

	var req dto.ProviderCancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.IsValid(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.cancellations.ProviderCancel(r.Context(),
		bookingID, policy.RefundChoice(req.RefundMethod), requestedBy)
	if err != nil {
		h.writeCancellationError(w, r, err)
		return
	}

	writeJSON(r.Context(), w, h.log, http.StatusOK, toCancellationResponse(&record))
}

func (h *BookingHandler) writeCancellationError(
	w http.ResponseWriter, r *http.Request, err error,
) {
	if errors.Is(err, serviceerrs.ErrBookingNotFound) {
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	}
	var ineligible *serviceerrs.IneligibleCancellationError
	if errors.As(err, &ineligible) {
		http.Error(w, ineligible.Reason, http.StatusConflict)
		return
	}

	h.log.LogAttrs(r.Context(),
		slog.LevelError,
		"cancellation failed",
		slog.Any(model.KeyLoggerError, err),
	)
	http.Error(w, "cancellation failed", http.StatusInternalServerError)
}

func toBookingResponse(b *bkg.Booking) dto.BookingResponse {
	sessions := 1
	var sessionDates []time.Time
	if b.IsCourse() {
		sessions = b.Course.Sessions
		// a snapshot inconsistency only costs the dates in the response
		if dates, err := schedule.SessionDates(
			b.Course.Start, b.Course.End, b.Course.Sessions); err == nil {
			sessionDates = dates
		}
	}
	return dto.BookingResponse{
		ID:            b.ID,
		ChildID:       b.ChildID,
		ActivityID:    b.ActivityID,
		Amount:        json.Number(b.Amount.String()),
		PaymentMethod: string(b.PaymentMethod),
		Status:        string(b.Status),
		SessionAt:     b.SessionAt,
		Sessions:      sessions,
		SessionDates:  sessionDates,
		CreatedAt:     b.CreatedAt,
	}
}

func toCancellationResponse(record *repo.CancellationRecord) dto.CancellationResponse {
	return dto.CancellationResponse{
		BookingID: record.Booking.ID,
		Method:    string(record.Verdict.Method),
		Refund:    json.Number(record.Verdict.Refund.String()),
		Credit:    json.Number(record.Verdict.Credit.String()),
		Fee:       json.Number(record.Verdict.Fee.String()),
		Reason:    record.Verdict.Reason,
	}
}
