// Package notify delivers cancellation events to the external email
// gateway. Delivery is best-effort: the booking flow never waits on it.
package notify

// Event is one cancellation the parent should hear about.
type Event struct {
	ParentID  string `json:"parent_id"`
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
	Refund    string `json:"refund"`
	Credit    string `json:"credit"`
}
