package notifications

import "context"

type SendWelcomeInput struct {
	UserID string
	Email  string
	Name   string
}

type SendAccountDeletedInput struct {
	UserID string
	Email  string
	Name   string
}

type Notifier interface {
	SendWelcome(ctx context.Context, input SendWelcomeInput) error
	SendAccountDeleted(ctx context.Context, input SendAccountDeletedInput) error
}
