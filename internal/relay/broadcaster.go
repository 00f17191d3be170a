package relay

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
)

// Broadcaster - delivers messages to every registered connection except the excluded one.
//
// Delivery is best-effort: a failed write to one connection is logged and
// ignored, it neither aborts delivery to the others nor unregisters the
// failed connection. Its own session notices the broken connection and
// cleans up.
type Broadcaster struct {
	registry *Registry
	log      *slog.Logger
}

// NewBroadcaster - builds broadcaster over given registry.
func NewBroadcaster(registry *Registry, log *slog.Logger) *Broadcaster {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Broadcaster{registry: registry, log: log}
}

// Deliver - writes message to all registered connections but exclude,
// returns the number of successful writes.
// Targets are written concurrently, Deliver returns when every write has finished.
func (b *Broadcaster) Deliver(msg Message, exclude ConnID) int {
	return b.DeliverTo(msg, b.registry.Snapshot(), exclude)
}

// DeliverTo - same as Deliver, but over the targets snapshot taken by caller.
func (b *Broadcaster) DeliverTo(msg Message, targets []*Conn, exclude ConnID) int {
	targets = lo.Filter(targets, func(c *Conn, _ int) bool {
		return c.ID() != exclude
	})
	if len(targets) == 0 {
		return 0
	}

	payload := msg.Bytes()
	delivered := atomic.Int64{}
	wg := sync.WaitGroup{}
	for _, target := range targets {
		wg.Add(1)
		go func(target *Conn) {
			defer wg.Done()
			if _, err := target.Write(payload); err != nil {
				b.log.Debug("Delivery failed", "conn", target.ID(), "from", msg.From(), "error", err)
				return
			}
			delivered.Add(1)
		}(target)
	}
	wg.Wait()
	return int(delivered.Load())
}
