package heartbeat

import (
	"context"
	"time"

	"powerctl-go/bus"
	"powerctl-go/x/timex"
)

var (
	topicBeat     = bus.T("power", "heartbeat")
	topicInterval = bus.T("power", "heartbeat", "interval")
)

// Service publishes a retained liveness beat so bus observers can
// tell a silent controller from a dead one.
type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicInterval)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	var seq uint32
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			seq++
			conn.Publish(conn.NewMessage(topicBeat, map[string]any{
				"seq":   seq,
				"ts_ms": timex.NowMs(),
			}, true))
		case msg := <-cfgSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval_ms"].(int); ok && iv > 0 {
					tick.Reset(time.Duration(iv) * time.Millisecond)
				}
			}
		}
	}
}

// Start launches the beat loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
