// Package policy holds the cancellation verdict engine: given a booking
// snapshot and the cancellation instant it decides whether the
// cancellation is permitted and how the paid amount moves back to the
// parent (cash refund, wallet credit, or both). The engine is pure: it
// reads nothing but its arguments and writes nothing.
package policy

import (
	"errors"
	"time"

	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/model/booking"
)

type Method string

const (
	MethodCash   Method = "cash"
	MethodCredit Method = "credit"
	MethodMixed  Method = "mixed"
	MethodNone   Method = "none"
)

// Breakdown is the pro-rata calculation over the booking's sessions.
type Breakdown struct {
	TotalPaid         model.Amount
	PerSession        model.Amount
	Refundable        model.Amount
	CreditCandidate   model.Amount
	Fee               model.Amount
	SessionsUsed      int
	SessionsRemaining int
	TotalSessions     int
}

// Verdict is the full outcome of a cancellation decision.
type Verdict struct {
	Reason    string
	Method    Method
	Refund    model.Amount
	Credit    model.Amount
	Fee       model.Amount
	Breakdown Breakdown
	Eligible  bool
}

const (
	ReasonAlreadyOccurred   = "session already occurred"
	ReasonInsideWindowCard  = "within 24 hours of session - credit only"
	ReasonInsideWindowOther = "within 24 hours of session - credit for unused sessions"
	ReasonOutsideWindowCash = "cancelled more than 24 hours before session - cash refund"
	ReasonNoCashRail        = "tax-free childcare and voucher payments are refunded as credit"
	ReasonCreditPaid        = "credit-paid bookings are refunded to the wallet"
	ReasonMixedSplit        = "mixed payment - refund split between card and credit"
	ReasonMixedInsideWindow = "mixed payment within 24 hours - credit only"
)

// ProRata computes how much of the paid amount corresponds to unused
// sessions at the instant now. The fee is capped at the refundable
// amount, so refund + credit + fee always reconciles to Refundable.
func ProRata(b *booking.Booking, now time.Time) (Breakdown, error) {
	var used, total int
	perSession := b.Amount

	if b.Course != nil {
		total = b.Course.Sessions
		if total <= 0 {
			return Breakdown{}, errors.New("course booking with no sessions")
		}
		used = courseSessionsUsed(b.Course, now)
		perSession = model.FromPence(b.Amount.TotalPence() / int64(total))
	} else {
		total = 1
		used = 0
		// the session boundary itself counts as used
		if !now.Before(b.SessionAt) {
			used = 1
		}
	}

	remaining := total - used
	refundable := model.FromPence(int64(remaining) * perSession.TotalPence())
	fee := model.FromPence(min(model.AdminFee, refundable.TotalPence()))
	candidate := model.FromPence(refundable.TotalPence() - fee.TotalPence())

	return Breakdown{
		TotalPaid:         b.Amount,
		PerSession:        perSession,
		Refundable:        refundable,
		CreditCandidate:   candidate,
		Fee:               fee,
		SessionsUsed:      used,
		SessionsRemaining: remaining,
		TotalSessions:     total,
	}, nil
}

func courseSessionsUsed(c *booking.Course, now time.Time) int {
	if now.Before(c.Start) {
		return 0
	}
	if !now.Before(c.End) {
		return c.Sessions
	}

	elapsed := now.Sub(c.Start)
	duration := c.End.Sub(c.Start)
	if duration <= 0 {
		return c.Sessions
	}

	used := int(int64(c.Sessions) * int64(elapsed) / int64(duration))
	if used > c.Sessions {
		used = c.Sessions
	}
	return used
}

// Decide evaluates the parent-initiated cancellation rules in order;
// the first matching rule wins.
func Decide(b *booking.Booking, now time.Time) (Verdict, error) {
	breakdown, err := ProRata(b, now)
	if err != nil {
		return Verdict{}, err
	}

	if now.After(deadline(b)) {
		return Verdict{
			Eligible:  false,
			Method:    MethodNone,
			Reason:    ReasonAlreadyOccurred,
			Breakdown: breakdown,
		}, nil
	}

	insideWindow := windowStart(b).Sub(now) < model.CancellationWindow

	switch b.PaymentMethod {
	case booking.MethodCard:
		if insideWindow {
			return creditOnly(breakdown, ReasonInsideWindowCard), nil
		}
		return Verdict{
			Eligible:  true,
			Method:    MethodCash,
			Refund:    breakdown.CreditCandidate,
			Fee:       breakdown.Fee,
			Reason:    ReasonOutsideWindowCash,
			Breakdown: breakdown,
		}, nil

	case booking.MethodTFC, booking.MethodVoucher:
		if insideWindow {
			return creditOnly(breakdown, ReasonInsideWindowOther), nil
		}
		return creditOnly(breakdown, ReasonNoCashRail), nil

	case booking.MethodCredit:
		if insideWindow {
			return creditOnly(breakdown, ReasonInsideWindowOther), nil
		}
		return creditOnly(breakdown, ReasonCreditPaid), nil

	case booking.MethodMixed:
		if insideWindow {
			return creditOnly(breakdown, ReasonMixedInsideWindow), nil
		}
		return mixedSplit(breakdown), nil
	}

	return Verdict{}, errors.New("unknown payment method: " + string(b.PaymentMethod))
}

// DecideProvider skips eligibility gating and waives the admin fee: the
// provider can always cancel, and the parent is made whole in full.
// RefundChoiceParent issues both a cash refund and a wallet credit for
// the full amount, matching the behavior this engine replaces.
func DecideProvider(b *booking.Booking, choice RefundChoice) (Verdict, error) {
	v := Verdict{
		Eligible: true,
		Reason:   "cancelled by provider",
		Breakdown: Breakdown{
			TotalPaid:         b.Amount,
			PerSession:        b.Amount,
			Refundable:        b.Amount,
			CreditCandidate:   b.Amount,
			SessionsRemaining: 1,
			TotalSessions:     1,
		},
	}

	switch choice {
	case RefundChoiceCash:
		v.Method = MethodCash
		v.Refund = b.Amount
	case RefundChoiceCredit:
		v.Method = MethodCredit
		v.Credit = b.Amount
	case RefundChoiceParent:
		v.Method = MethodMixed
		v.Refund = b.Amount
		v.Credit = b.Amount
	default:
		return Verdict{}, errors.New("unknown refund choice: " + string(choice))
	}
	return v, nil
}

type RefundChoice string

const (
	RefundChoiceCash   RefundChoice = "cash"
	RefundChoiceCredit RefundChoice = "credit"
	RefundChoiceParent RefundChoice = "parent_choice"
)

func creditOnly(breakdown Breakdown, reason string) Verdict {
	return Verdict{
		Eligible:  true,
		Method:    MethodCredit,
		Credit:    breakdown.CreditCandidate,
		Fee:       breakdown.Fee,
		Reason:    reason,
		Breakdown: breakdown,
	}
}

// mixedSplit halves the refundable amount between the card and voucher
// rails and deducts the fee from each half independently. The original
// payment breakdown is not stored, so 50/50 is assumed, and the double
// fee deduction is preserved as-is.
func mixedSplit(breakdown Breakdown) Verdict {
	half := breakdown.Refundable.TotalPence() / 2

	cashFee := min(int64(model.AdminFee), half)
	creditFee := min(int64(model.AdminFee), half)

	return Verdict{
		Eligible:  true,
		Method:    MethodMixed,
		Refund:    model.FromPence(half - cashFee),
		Credit:    model.FromPence(half - creditFee),
		Fee:       model.FromPence(cashFee + creditFee),
		Reason:    ReasonMixedSplit,
		Breakdown: breakdown,
	}
}

// deadline is the instant after which the booking counts as past:
// course end for courses, session start otherwise.
func deadline(b *booking.Booking) time.Time {
	if b.Course != nil {
		return b.Course.End
	}
	return b.SessionAt
}

// windowStart anchors the 24-hour rule: course start for courses,
// session start otherwise. A course already underway is always inside
// the window.
func windowStart(b *booking.Booking) time.Time {
	if b.Course != nil {
		return b.Course.Start
	}
	return b.SessionAt
}
