package jobs

import "time"

// WelcomeEmailPayload greets a freshly signed-up account. Keep payloads
// minimal and ID-based; the worker owns the delivery detail.
type WelcomeEmailPayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"` // optional: correlation
}

// AccountDeletedPayload confirms an account removal to its former owner.
type AccountDeletedPayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"`
}
