package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/model/booking"
	"github.com/bookon-app/bookon/internal/schedule"
)

type bookingStore interface {
	Create(ctx context.Context, b *booking.Booking) error
	CreateCreditPaid(ctx context.Context, b *booking.Booking) error
	ListByParent(ctx context.Context, parentID string) ([]booking.Booking, error)
	FindByID(ctx context.Context, id string) (booking.Booking, error)
}

// NewBookingInput is the validated write-side snapshot of a booking
// request. Sessions > 1 makes the booking a weekly course starting at
// SessionAt.
type NewBookingInput struct {
	ParentID      string
	ChildID       string
	ActivityID    string
	PaymentMethod booking.PaymentMethod
	Amount        model.Amount
	SessionAt     time.Time
	Sessions      int
}

type BookingService struct {
	store bookingStore
	log   *slog.Logger
}

func NewBookingService(store bookingStore, log *slog.Logger) *BookingService {
	return &BookingService{
		store: store,
		log:   log,
	}
}

func (s *BookingService) Create(ctx context.Context, in *NewBookingInput,
) (booking.Booking, error) {
	if !in.PaymentMethod.Valid() {
		return booking.Booking{}, errors.New("unknown payment method: " + string(in.PaymentMethod))
	}
	if in.Sessions < 1 {
		return booking.Booking{}, errors.New("session count must be positive")
	}

	b := booking.Booking{
		ID:            uuid.NewString(),
		ParentID:      in.ParentID,
		ChildID:       in.ChildID,
		ActivityID:    in.ActivityID,
		Amount:        in.Amount,
		PaymentMethod: in.PaymentMethod,
		Status:        booking.StatusConfirmed,
		SessionAt:     in.SessionAt,
	}

	if in.Sessions > 1 {
		end, err := schedule.CourseEnd(in.SessionAt, in.Sessions)
		if err != nil {
			return booking.Booking{}, err //nolint: wrapcheck // error from wrapped function
		}
		b.Course = &booking.Course{
			Start:    in.SessionAt,
			End:      end,
			Sessions: in.Sessions,
		}
	}

	var err error
	if in.PaymentMethod == booking.MethodCredit {
		err = s.store.CreateCreditPaid(ctx, &b)
	} else {
		err = s.store.Create(ctx, &b)
	}
	if err != nil {
		return booking.Booking{}, err //nolint: wrapcheck // error from wrapped function
	}

	return b, nil
}

func (s *BookingService) List(ctx context.Context, parentID string,
) ([]booking.Booking, error) {
	return s.store.ListByParent(ctx, parentID) //nolint: wrapcheck // error from wrapped function
}

func (s *BookingService) Get(ctx context.Context, bookingID, parentID string,
) (booking.Booking, error) {
	b, err := s.store.FindByID(ctx, bookingID)
	if err != nil {
		return booking.Booking{}, err //nolint: wrapcheck // error from wrapped function
	}
	if b.ParentID != parentID {
		return booking.Booking{}, errors.New("booking belongs to another parent")
	}
	return b, nil
}
