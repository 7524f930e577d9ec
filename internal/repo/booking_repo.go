package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/model/booking"
	"github.com/bookon-app/bookon/internal/model/refund"
	"github.com/bookon-app/bookon/internal/model/wallet"
	"github.com/bookon-app/bookon/internal/policy"
	"github.com/bookon-app/bookon/internal/serviceerrs"
)

const sqlInsertBooking = `
INSERT INTO bookings
	(id, parent_id, child_id, activity_id, amount, payment_method,
	 status, session_at, course_start, course_end, course_sessions,
	 notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`

const sqlSelectBooking = `
SELECT id, parent_id, child_id, activity_id, amount, payment_method,
	status, session_at, course_start, course_end, course_sessions,
	notes, created_at, updated_at
FROM bookings
WHERE id = $1`

const sqlSelectBookingForUpdate = sqlSelectBooking + `
FOR UPDATE`

const sqlListBookingsByParent = `
SELECT id, parent_id, child_id, activity_id, amount, payment_method,
	status, session_at, course_start, course_end, course_sessions,
	notes, created_at, updated_at
FROM bookings
WHERE parent_id = $1
ORDER BY session_at`

// The status predicate is the at-most-once guard: a concurrent
// canceller loses the race here and observes zero affected rows.
const sqlMarkCancelled = `
UPDATE bookings
SET status = 'cancelled', notes = $2, updated_at = $3
WHERE id = $1 AND status IN ('pending', 'confirmed')`

const sqlInsertRefund = `
INSERT INTO refund_transactions
	(id, booking_id, amount, method, fee, reason, status, audit, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const sqlInsertCredit = `
INSERT INTO wallet_credits
	(id, parent_id, provider_id, booking_id, amount, expires_at,
	 source, status, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

type BookingRepository struct {
	DB
}

func NewBookingRepository(pool connectionPool, log *slog.Logger) *BookingRepository {
	return &BookingRepository{
		DB{
			pool: pool,
			log:  log,
		},
	}
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	createLogic := func() (struct{}, error) {
		var courseStart, courseEnd pgtype.Timestamptz
		var courseSessions pgtype.Int4
		if b.Course != nil {
			courseStart = pgtype.Timestamptz{Time: b.Course.Start, Valid: true}
			courseEnd = pgtype.Timestamptz{Time: b.Course.End, Valid: true}
			courseSessions = pgtype.Int4{Int32: int32(b.Course.Sessions), Valid: true}
		}

		_, err := r.pool.Exec(ctx, sqlInsertBooking,
			b.ID, b.ParentID, b.ChildID, b.ActivityID,
			b.Amount.ToPGNumeric(), string(b.PaymentMethod), string(b.Status),
			pgtype.Timestamptz{Time: b.SessionAt, Valid: true},
			courseStart, courseEnd, courseSessions,
			b.Notes,
			pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true},
		)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to create booking in DB: %w", err)
		}
		return struct{}{}, nil
	}

	_, err := WithRetry[struct{}](createLogic, 0)
	return err //nolint: wrapcheck // error from wrapped function
}

// CreateCreditPaid writes a credit-paid booking and redeems wallet
// credits for the amount inside the same transaction. Credits closest
// to expiry are spent first; a partially spent credit keeps its row
// with the remainder.
func (r *BookingRepository) CreateCreditPaid(ctx context.Context, b *booking.Booking) error {
	createLogic := func(ctx context.Context, tx connectionPool) (any, error) {
		if err := redeemCredits(ctx, tx, b.ParentID, b.Amount); err != nil {
			return struct{}{}, err
		}

		var courseStart, courseEnd pgtype.Timestamptz
		var courseSessions pgtype.Int4
		if b.Course != nil {
			courseStart = pgtype.Timestamptz{Time: b.Course.Start, Valid: true}
			courseEnd = pgtype.Timestamptz{Time: b.Course.End, Valid: true}
			courseSessions = pgtype.Int4{Int32: int32(b.Course.Sessions), Valid: true}
		}
		_, err := tx.Exec(ctx, sqlInsertBooking,
			b.ID, b.ParentID, b.ChildID, b.ActivityID,
			b.Amount.ToPGNumeric(), string(b.PaymentMethod), string(b.Status),
			pgtype.Timestamptz{Time: b.SessionAt, Valid: true},
			courseStart, courseEnd, courseSessions,
			b.Notes,
			pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true},
		)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to create booking in DB: %w", err)
		}
		return struct{}{}, nil
	}

	runWithTX := func() (struct{}, error) {
		return WithTX[struct{}](ctx, r.pool, r.log, createLogic)
	}

	_, err := WithRetry[struct{}](runWithTX, 0)
	return err //nolint: wrapcheck // error from wrapped function
}

func (r *BookingRepository) FindByID(ctx context.Context, id string,
) (booking.Booking, error) {
	findLogic := func() (booking.Booking, error) {
		row := r.pool.QueryRow(ctx, sqlSelectBooking, id)
		return scanBooking(row)
	}

	b, err := WithRetry[booking.Booking](findLogic, 0)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return booking.Booking{}, serviceerrs.ErrBookingNotFound
		}
		return booking.Booking{}, err //nolint: wrapcheck // error from wrapped function
	}
	return b, nil
}

func (r *BookingRepository) ListByParent(ctx context.Context, parentID string,
) ([]booking.Booking, error) {
	if len(parentID) == 0 {
		return nil, errors.New("failed to list bookings: parentID must be not empty")
	}

	listLogic := func() ([]booking.Booking, error) {
		rows, err := r.pool.Query(ctx, sqlListBookingsByParent, parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list bookings by parentID %s: %w", parentID, err)
		}
		defer rows.Close()

		bookings := make([]booking.Booking, 0)
		for rows.Next() {
			b, err := scanBooking(rows)
			if err != nil {
				return nil, err
			}
			bookings = append(bookings, b)
		}
		return bookings, rows.Err() //nolint: wrapcheck // error from pgx
	}

	return WithRetry[[]booking.Booking](listLogic, 0) //nolint: wrapcheck // error from wrapped function
}

// DecideFunc produces the cancellation verdict for the booking loaded
// inside the transaction. Keeping the decision a callback lets the
// parent and provider flows share one execution path.
type DecideFunc func(b *booking.Booking) (policy.Verdict, error)

// CancellationRecord is what one executed cancellation wrote.
type CancellationRecord struct {
	Booking  booking.Booking
	Verdict  policy.Verdict
	RefundID string
	CreditID string
}

// Cancel loads the booking under a row lock, asks decide for a verdict
// and applies it: status flip, then at most one refund row and one
// credit row. Everything happens in one transaction; an ineligible
// verdict rolls back having written nothing.
func (r *BookingRepository) Cancel(
	ctx context.Context,
	bookingID string,
	reason refund.Reason,
	requestedBy string,
	now time.Time,
	decide DecideFunc,
) (CancellationRecord, error) {
	cancelLogic := func(ctx context.Context, tx connectionPool) (any, error) {
		row := tx.QueryRow(ctx, sqlSelectBookingForUpdate, bookingID)
		b, err := scanBooking(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return CancellationRecord{}, serviceerrs.ErrBookingNotFound
			}
			return CancellationRecord{}, fmt.Errorf("failed to load booking %s: %w", bookingID, err)
		}

		if b.Status == booking.StatusCancelled {
			return CancellationRecord{},
				&serviceerrs.IneligibleCancellationError{Reason: "booking already cancelled"}
		}

		verdict, err := decide(&b)
		if err != nil {
			return CancellationRecord{}, fmt.Errorf("cancellation decision failed: %w", err)
		}
		if !verdict.Eligible {
			return CancellationRecord{},
				&serviceerrs.IneligibleCancellationError{Reason: verdict.Reason}
		}

		note := fmt.Sprintf("cancelled at %s: %s", now.UTC().Format(time.RFC3339), verdict.Reason)
		tag, err := tx.Exec(ctx, sqlMarkCancelled, bookingID, note,
			pgtype.Timestamptz{Time: now.UTC(), Valid: true})
		if err != nil {
			return CancellationRecord{}, fmt.Errorf("failed to mark booking cancelled: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return CancellationRecord{},
				&serviceerrs.IneligibleCancellationError{Reason: "booking already cancelled"}
		}

		record := CancellationRecord{Booking: b, Verdict: verdict}

		if !verdict.Refund.IsZero() {
			record.RefundID, err = insertRefund(ctx, tx, &b, &verdict, reason, requestedBy, now)
			if err != nil {
				return CancellationRecord{}, err
			}
		}
		if !verdict.Credit.IsZero() {
			record.CreditID, err = insertCredit(ctx, tx, &b, &verdict, reason, now)
			if err != nil {
				return CancellationRecord{}, err
			}
		}

		record.Booking.Status = booking.StatusCancelled
		record.Booking.Notes = note
		return record, nil
	}

	runWithTX := func() (CancellationRecord, error) {
		return WithTX[CancellationRecord](ctx, r.pool, r.log, cancelLogic)
	}

	return WithRetry[CancellationRecord](runWithTX, 0) //nolint: wrapcheck // error from wrapped function
}

func insertRefund(ctx context.Context, tx connectionPool,
	b *booking.Booking, v *policy.Verdict,
	reason refund.Reason, requestedBy string, now time.Time,
) (string, error) {
	audit, err := json.Marshal(refund.Audit{
		RequestedBy:       requestedBy,
		RequestedAt:       now.UTC(),
		Reason:            v.Reason,
		SessionsUsed:      v.Breakdown.SessionsUsed,
		SessionsRemaining: v.Breakdown.SessionsRemaining,
		RefundablePence:   v.Breakdown.Refundable.TotalPence(),
		FeePence:          v.Fee.TotalPence(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal refund audit: %w", err)
	}

	id := uuid.NewString()
	_, err = tx.Exec(ctx, sqlInsertRefund,
		id, b.ID, v.Refund.ToPGNumeric(), "card", v.Fee.ToPGNumeric(),
		string(reason), string(refund.StatusPending), audit,
		pgtype.Timestamptz{Time: now.UTC(), Valid: true},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create refund transaction: %w", err)
	}
	return id, nil
}

func insertCredit(ctx context.Context, tx connectionPool,
	b *booking.Booking, v *policy.Verdict,
	reason refund.Reason, now time.Time,
) (string, error) {
	source := wallet.SourceCancellation
	if reason == refund.ReasonProviderCancelled {
		source = wallet.SourceProviderCancellation
	}

	id := uuid.NewString()
	_, err := tx.Exec(ctx, sqlInsertCredit,
		id, b.ParentID, nil, b.ID, v.Credit.ToPGNumeric(),
		pgtype.Timestamptz{Time: now.UTC().Add(model.CreditLifetime), Valid: true},
		string(source), string(wallet.StatusActive), v.Reason,
		pgtype.Timestamptz{Time: now.UTC(), Valid: true},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create wallet credit: %w", err)
	}
	return id, nil
}

func scanBooking(row pgx.Row) (booking.Booking, error) {
	var b booking.Booking
	var amount pgtype.Numeric
	var method, status string
	var sessionAt, createdAt, updatedAt pgtype.Timestamptz
	var courseStart, courseEnd pgtype.Timestamptz
	var courseSessions pgtype.Int4

	err := row.Scan(
		&b.ID, &b.ParentID, &b.ChildID, &b.ActivityID,
		&amount, &method, &status,
		&sessionAt, &courseStart, &courseEnd, &courseSessions,
		&b.Notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return booking.Booking{}, err //nolint: wrapcheck // callers check pgx.ErrNoRows
	}

	b.Amount, err = model.FromPGNumeric(amount)
	if err != nil {
		return booking.Booking{}, fmt.Errorf("invalid amount from DB: %w", err)
	}
	b.PaymentMethod = booking.PaymentMethod(method)
	b.Status = booking.Status(status)
	b.SessionAt = sessionAt.Time
	b.CreatedAt = createdAt.Time
	b.UpdatedAt = updatedAt.Time

	if courseSessions.Valid {
		b.Course = &booking.Course{
			Start:    courseStart.Time,
			End:      courseEnd.Time,
			Sessions: int(courseSessions.Int32),
		}
	}
	return b, nil
}
