// Package queue defines the activity events exchanged over the message
// broker and the background consumer that persists them.
package queue

// Event names published on the activity queue.
const (
	EventLogin         = "auth.login"
	EventRegister      = "auth.register"
	EventLogout        = "auth.logout"
	EventRotated       = "auth.refresh_rotated"
	EventTheftDetected = "auth.refresh_reuse"
	EventKeyCreated    = "apikey.created"
	EventKeyRevoked    = "apikey.revoked"
	EventKeyRotated    = "apikey.rotated"
	EventRateLimited   = "apikey.rate_limited"
	EventGuestAccepted = "guest.invite_accepted"
)

// ActivityEvent is published whenever something security-relevant happens.
// It carries enough information for the consumer to append an activity_log
// row without querying the primary database. UserID is zero when no user is
// associated with the event.
type ActivityEvent struct {
	UserID     uint64 `json:"user_id,omitempty"`
	Event      string `json:"event"`
	Detail     string `json:"detail,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
