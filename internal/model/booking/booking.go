package booking

import (
	"time"

	"github.com/bookon-app/bookon/internal/model"
)

type PaymentMethod string

const (
	MethodCard    PaymentMethod = "card"
	MethodTFC     PaymentMethod = "tax_free_childcare"
	MethodVoucher PaymentMethod = "voucher"
	MethodMixed   PaymentMethod = "mixed"
	MethodCredit  PaymentMethod = "credit"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodTFC, MethodVoucher, MethodMixed, MethodCredit:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Course describes the schedule window of a multi-session activity.
// A nil Course on a booking means a single session at SessionAt.
type Course struct {
	Start    time.Time
	End      time.Time
	Sessions int
}

type Booking struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SessionAt     time.Time
	Course        *Course
	ID            string
	ParentID      string
	ChildID       string
	ActivityID    string
	Notes         string
	PaymentMethod PaymentMethod
	Status        Status
	Amount        model.Amount
}

// IsCourse reports whether the booking covers a multi-session course.
func (b *Booking) IsCourse() bool {
	return b.Course != nil && b.Course.Sessions > 1
}
