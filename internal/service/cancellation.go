package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookon-app/bookon/internal/model/booking"
	"github.com/bookon-app/bookon/internal/model/refund"
	"github.com/bookon-app/bookon/internal/notify"
	"github.com/bookon-app/bookon/internal/policy"
	"github.com/bookon-app/bookon/internal/repo"
	"github.com/bookon-app/bookon/internal/serviceerrs"
)

type bookingCanceller interface {
	Cancel(ctx context.Context, bookingID string, reason refund.Reason,
		requestedBy string, now time.Time, decide repo.DecideFunc,
	) (repo.CancellationRecord, error)
}

// CancellationService glues the pure policy engine to the transactional
// booking store and queues a notification once a cancellation sticks.
type CancellationService struct {
	bookings bookingCanceller
	events   chan<- notify.Event
	log      *slog.Logger
	now      func() time.Time
}

func NewCancellationService(
	bookings bookingCanceller,
	events chan<- notify.Event,
	log *slog.Logger,
) *CancellationService {
	return &CancellationService{
		bookings: bookings,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// Cancel runs a parent-initiated cancellation. The ownership check and
// the policy decision both happen against the booking row locked inside
// the store's transaction, so a concurrent cancel of the same booking
// settles exactly once.
func (s *CancellationService) Cancel(ctx context.Context,
	bookingID, parentID string,
) (repo.CancellationRecord, error) {
	now := s.now().UTC()

	decide := func(b *booking.Booking) (policy.Verdict, error) {
		if b.ParentID != parentID {
			return policy.Verdict{}, serviceerrs.ErrBookingNotFound
		}
		return policy.Decide(b, now)
	}

	record, err := s.bookings.Cancel(ctx,
		bookingID, refund.ReasonCancellation, parentID, now, decide)
	if err != nil {
		return repo.CancellationRecord{}, err //nolint: wrapcheck // error from wrapped function
	}

	s.queueNotification(ctx, &record)
	return record, nil
}

// ProviderCancel skips eligibility gating: the provider can always
// cancel and the admin fee is waived.
func (s *CancellationService) ProviderCancel(ctx context.Context,
	bookingID string, choice policy.RefundChoice, requestedBy string,
) (repo.CancellationRecord, error) {
	now := s.now().UTC()

	decide := func(b *booking.Booking) (policy.Verdict, error) {
		return policy.DecideProvider(b, choice)
	}

	record, err := s.bookings.Cancel(ctx,
		bookingID, refund.ReasonProviderCancelled, requestedBy, now, decide)
	if err != nil {
		return repo.CancellationRecord{}, err //nolint: wrapcheck // error from wrapped function
	}

	s.queueNotification(ctx, &record)
	return record, nil
}

// queueNotification never blocks the request path: a full queue drops
// the event and the cancellation stays applied.
func (s *CancellationService) queueNotification(ctx context.Context,
	record *repo.CancellationRecord,
) {
	if s.events == nil {
		return
	}

	ev := notify.Event{
		ParentID:  record.Booking.ParentID,
		BookingID: record.Booking.ID,
		Reason:    record.Verdict.Reason,
		Refund:    record.Verdict.Refund.String(),
		Credit:    record.Verdict.Credit.String(),
	}
	select {
	case s.events <- ev:
	default:
		s.log.LogAttrs(ctx,
			slog.LevelWarn,
			"notification queue full, event dropped",
			slog.String("booking_id", record.Booking.ID),
		)
	}
}
