package auction

import "github.com/sabuhakaya/Carties/pkg/health"

// BrokerStatus reports whether the broker connection is up.
type BrokerStatus interface {
	IsOpen() bool
}

// OutboxStatus reports events parked while the broker was unavailable.
type OutboxStatus interface {
	Pending() int
	Dead() int
}

// NewHealth reports the broker connection and the outbox backlog.
func NewHealth(broker BrokerStatus, outbox OutboxStatus) *health.Handler {
	return health.New().
		Check("broker", broker.IsOpen).
		Count("outboxPending", outbox.Pending).
		Count("outboxDead", outbox.Dead)
}
