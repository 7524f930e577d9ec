package dto

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ShiraazMoollatjie/goluhn"
	passwordvalidator "github.com/wagslane/go-password-validator"

	"github.com/bookon-app/bookon/internal/model/booking"
	"github.com/bookon-app/bookon/internal/policy"
)

type ParentRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (r *ParentRequest) IsValid() error {
	var invalidLoginErr error
	if r.Login == "" {
		invalidLoginErr = errors.New("login is empty")
	}

	const minEntropyBits = 50
	invalidPasswordErr := passwordvalidator.Validate(r.Password, minEntropyBits)
	return errors.Join(invalidLoginErr, invalidPasswordErr)
}

type CreateBookingRequest struct {
	ChildID          string      `json:"child_id"`
	ActivityID       string      `json:"activity_id"`
	Amount           json.Number `json:"amount"`
	PaymentMethod    string      `json:"payment_method"`
	PaymentReference string      `json:"payment_reference,omitempty"`
	SessionAt        time.Time   `json:"session_at"`
	Sessions         int         `json:"sessions"`
}

func (r *CreateBookingRequest) IsValid() error {
	errs := make([]error, 0)
	if r.ChildID == "" {
		errs = append(errs, errors.New("child_id is empty"))
	}
	if r.ActivityID == "" {
		errs = append(errs, errors.New("activity_id is empty"))
	}
	if !booking.PaymentMethod(r.PaymentMethod).Valid() {
		errs = append(errs, errors.New("unknown payment_method"))
	}
	if r.SessionAt.IsZero() {
		errs = append(errs, errors.New("session_at is empty"))
	}
	if r.Sessions < 1 {
		errs = append(errs, errors.New("sessions must be positive"))
	}
	// voucher references carry a check digit
	if booking.PaymentMethod(r.PaymentMethod) == booking.MethodVoucher {
		if err := goluhn.Validate(r.PaymentReference); err != nil {
			errs = append(errs, errors.New("invalid payment_reference"))
		}
	}
	return errors.Join(errs...)
}

type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

type ProviderCancelRequest struct {
	RefundMethod string `json:"refund_method"`
}

func (r *ProviderCancelRequest) IsValid() error {
	switch policy.RefundChoice(r.RefundMethod) {
	case policy.RefundChoiceCash, policy.RefundChoiceCredit, policy.RefundChoiceParent:
		return nil
	}
	return errors.New("unknown refund_method")
}

type BookingResponse struct {
	ID            string      `json:"id"`
	ChildID       string      `json:"child_id"`
	ActivityID    string      `json:"activity_id"`
	Amount        json.Number `json:"amount"`
	PaymentMethod string      `json:"payment_method"`
	Status        string      `json:"status"`
	SessionAt     time.Time   `json:"session_at"`
	Sessions      int         `json:"sessions"`
	SessionDates  []time.Time `json:"session_dates,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

type CancellationResponse struct {
	BookingID string      `json:"booking_id"`
	Method    string      `json:"method"`
	Refund    json.Number `json:"refund"`
	Credit    json.Number `json:"credit"`
	Fee       json.Number `json:"fee"`
	Reason    string      `json:"reason"`
}

type WalletResponse struct {
	Balance json.Number `json:"balance"`
}

type CreditResponse struct {
	ID          string      `json:"id"`
	BookingID   string      `json:"booking_id"`
	Amount      json.Number `json:"amount"`
	ExpiresAt   time.Time   `json:"expires_at"`
	Source      string      `json:"source"`
	Status      string      `json:"status"`
	Description string      `json:"description,omitempty"`
}

type RefundResponse struct {
	ID        string      `json:"id"`
	BookingID string      `json:"booking_id"`
	Amount    json.Number `json:"amount"`
	Fee       json.Number `json:"fee"`
	Method    string      `json:"method"`
	Reason    string      `json:"reason"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}
