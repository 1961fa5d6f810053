package ports

import "context"

// Publisher delivers session notifications to connected participants.
type Publisher interface {
	// Publish sends event to each listed participant. Unknown participants are skipped.
	Publish(ctx context.Context, recipients []string, event string, payload any) error

	// Evict drops a participant's connection so it must reconnect to take a seat again.
	Evict(ctx context.Context, participantID string) error
}
