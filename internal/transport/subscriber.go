package transport

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// recvPollInterval is the soft read deadline a Subscriber re-arms on every
// poll, so context cancellation stays responsive instead of blocking on a
// conn.Read that may never return.
const recvPollInterval = 1 * time.Second

// Subscriber connects to a Publisher (or CachingProxy) and invokes onMessage
// for every frame on its topic.
type Subscriber struct {
	topic string
	addr  string
}

// NewSubscriber describes a subscription; it does not connect until Run.
func NewSubscriber(topic, addr string) *Subscriber {
	return &Subscriber{topic: topic, addr: addr}
}

// Run connects and dispatches frames to onMessage until msgCount deliveries
// have been handled (msgCount <= 0 means unbounded) or ctx is cancelled. On a
// connection error it logs and reconnects with backoff rather than
// returning, since a transient upstream outage should not kill the caller.
func (s *Subscriber) Run(ctx context.Context, msgCount int, onMessage func(payload []byte)) error {
	delivered := 0
	backoff := 500 * time.Millisecond
	const maxBackoff = 10 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := net.Dial("tcp", s.addr)
		if err != nil {
			log.Warn().Str("addr", s.addr).Err(err).Msg("subscriber connect failed, retrying")
			if !sleepOrDone(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 500 * time.Millisecond

		reachedLimit, _ := s.drain(ctx, conn, msgCount, &delivered, onMessage)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if reachedLimit {
			return nil
		}
		// drain returned on a read error, already logged; loop around to reconnect.
	}
}

func (s *Subscriber) drain(ctx context.Context, conn net.Conn, msgCount int, delivered *int, onMessage func([]byte)) (bool, error) {
	r := bufio.NewReader(conn)
	for {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}

		f, err := readFrame(conn, r, recvPollInterval)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Warn().Str("addr", s.addr).Err(err).Msg("subscriber read failed, reconnecting")
			return false, err
		}

		if f.topic != s.topic {
			continue
		}

		onMessage(f.payload)
		*delivered++
		if msgCount > 0 && *delivered >= msgCount {
			return true, nil
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}
