package refund

import (
	"time"

	"github.com/bookon-app/bookon/internal/model"
)

type Reason string

const (
	ReasonCancellation      Reason = "cancellation"
	ReasonProviderCancelled Reason = "provider_cancelled"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
)

// Audit is the structured snapshot stored alongside every refund row.
type Audit struct {
	RequestedBy       string    `json:"requested_by"`
	RequestedAt       time.Time `json:"requested_at"`
	Reason            string    `json:"reason"`
	SessionsUsed      int       `json:"sessions_used"`
	SessionsRemaining int       `json:"sessions_remaining"`
	RefundablePence   int64     `json:"refundable_pence"`
	FeePence          int64     `json:"fee_pence"`
}

// Transaction is one append-only cash-refund record.
type Transaction struct {
	CreatedAt time.Time
	ID        string
	BookingID string
	Method    string
	Reason    Reason
	Status    Status
	Audit     Audit
	Amount    model.Amount
	Fee       model.Amount
}
