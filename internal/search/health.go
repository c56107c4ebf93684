package search

import "github.com/sabuhakaya/Carties/pkg/health"

// SubscriptionStatus reports whether events are being received.
type SubscriptionStatus interface {
	Connected() bool
}

// NewHealth reports the queue subscription.
func NewHealth(sub SubscriptionStatus) *health.Handler {
	return health.New().Check("consumer", sub.Connected)
}
