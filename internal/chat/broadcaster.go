package chat

import (
	"time"

	"github.com/rs/zerolog"
)

// Broadcaster fans messages out to every registered conn.
type Broadcaster struct {
	reg *Registry
	log *zerolog.Logger
}

func NewBroadcaster(reg *Registry, logger *zerolog.Logger) *Broadcaster {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Broadcaster{reg: reg, log: logger}
}

// Broadcast sends message plus a newline to every registered conn except exclude
// and returns how many recipients got it.
//
// A failed send does not stop the fan-out. Failed conns are evicted after the
// pass and a leave notice goes to the rest. Notice delivery runs through the
// same pass, and each round shrinks the registry, so the loop ends.
func (b *Broadcaster) Broadcast(message string, exclude *Conn) int {
	start := time.Now()
	defer func() {
		BroadcastDuration.Observe(time.Since(start).Seconds())
	}()

	delivered, failed := b.deliver(message, exclude)
	for len(failed) > 0 {
		var notices []string
		for _, c := range failed {
			if name, ok := b.evict(c); ok {
				notices = append(notices, formatLeft(name, b.reg.Len()))
			}
		}
		failed = nil
		for _, notice := range notices {
			MessagesTotal.WithLabelValues("leave").Inc()
			_, f := b.deliver(notice, nil)
			failed = append(failed, f...)
		}
	}
	return delivered
}

func (b *Broadcaster) deliver(message string, exclude *Conn) (int, []*Conn) {
	line := message + "\n"
	delivered := 0
	var failed []*Conn
	for _, c := range b.reg.recipients(exclude) {
		if err := c.Send(line); err != nil {
			DeliveryFailures.Inc()
			b.log.Warn().Err(err).
				Str("conn_id", c.ID).
				Str("user", c.Username()).
				Msg("broadcast delivery failed")
			failed = append(failed, c)
			continue
		}
		delivered++
	}
	return delivered, failed
}

func (b *Broadcaster) evict(c *Conn) (string, bool) {
	name, ok := b.reg.Unregister(c)
	_ = c.Close()
	if !ok {
		return "", false
	}
	Evictions.WithLabelValues("unreachable").Inc()
	b.log.Info().
		Str("conn_id", c.ID).
		Str("user", name).
		Int("online", b.reg.Len()).
		Msg("evicted unreachable user")
	return name, true
}
