package connection

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/resuldeger/vpnapp/internal/domain"
)

// SimulatedDialer stands in for a real handshake: it succeeds after a fixed
// delay unless the context is cancelled first. Replacing it with real
// transport logic requires no state-machine change.
type SimulatedDialer struct {
	clock clockwork.Clock
	delay time.Duration
}

var _ domain.Dialer = (*SimulatedDialer)(nil)

func NewSimulatedDialer(clock clockwork.Clock, delay time.Duration) *SimulatedDialer {
	return &SimulatedDialer{clock: clock, delay: delay}
}

func (d *SimulatedDialer) Dial(ctx context.Context, _ domain.Server) error {
	timer := d.clock.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
