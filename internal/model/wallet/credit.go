package wallet

import (
	"time"

	"github.com/bookon-app/bookon/internal/model"
)

type Source string

const (
	SourceCancellation         Source = "cancellation"
	SourceProviderCancellation Source = "provider_cancellation"
	SourceManual               Source = "manual"
	SourceRefund               Source = "refund"
	SourcePolicy               Source = "policy"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusUsed      Status = "used"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Credit is store credit granted to a parent, redeemable until ExpiresAt.
type Credit struct {
	CreatedAt   time.Time
	ExpiresAt   time.Time
	ID          string
	ParentID    string
	ProviderID  string
	BookingID   string
	Description string
	Source      Source
	Status      Status
	Amount      model.Amount
}
