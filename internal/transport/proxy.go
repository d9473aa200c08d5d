package transport

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// subscribeEvent is a newly accepted downstream connection, carried into the
// proxy's single select loop so cache reads and subscriber registration never
// race each other.
type subscribeEvent struct {
	id   string
	conn net.Conn
}

// upstreamMessage is one payload received from the upstream publisher.
type upstreamMessage struct {
	payload []byte
}

// CachingProxy subscribes upstream and re-publishes downstream, replaying the
// most recent payload to every newly connected subscriber immediately rather
// than making it wait for the next upstream emission. It is one goroutine
// with an internal state machine driven by a two-source select -- the cache
// and the forwarder are never split across separate tasks, so there is no
// window where a subscribe event can race a cache update.
type CachingProxy struct {
	topic        string
	upstreamAddr string
	listener     net.Listener

	msgCount       int
	idleTimeout    time.Duration
	subscribeEvent chan subscribeEvent
}

// NewCachingProxy binds downstreamAddr and prepares to relay topic from
// upstreamAddr. idleTimeout, when non-zero, is armed only once the cache has
// received its first upstream payload, and is reset only by further upstream
// traffic -- downstream subscribe/replay activity never resets it.
func NewCachingProxy(topic, upstreamAddr, downstreamAddr string, msgCount int, idleTimeout time.Duration) (*CachingProxy, error) {
	ln, err := net.Listen("tcp", downstreamAddr)
	if err != nil {
		return nil, err
	}
	return &CachingProxy{
		topic:          topic,
		upstreamAddr:   upstreamAddr,
		listener:       ln,
		msgCount:       msgCount,
		idleTimeout:    idleTimeout,
		subscribeEvent: make(chan subscribeEvent, 16),
	}, nil
}

// Addr reports the downstream listener's bound address.
func (p *CachingProxy) Addr() net.Addr {
	return p.listener.Addr()
}

// Run drives the proxy until ctx is cancelled, the idle timeout fires, or
// msgCount downstream deliveries have been sent.
func (p *CachingProxy) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go p.acceptLoop(ctx)

	upstream := make(chan upstreamMessage, 16)
	go p.subscribeUpstream(ctx, upstream)

	conns := map[string]net.Conn{}
	var cached []byte
	var haveCached bool
	delivered := 0

	var idleTimer *time.Timer
	var idleC <-chan time.Time
	if p.idleTimeout > 0 {
		idleTimer = time.NewTimer(p.idleTimeout)
		idleTimer.Stop()
		idleC = idleTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			p.closeAll(conns)
			return ctx.Err()

		case <-idleC:
			log.Warn().Str("topic", p.topic).Msg("caching proxy idle timeout, no upstream traffic")
			p.closeAll(conns)
			return nil

		case msg := <-upstream:
			cached = msg.payload
			haveCached = true
			if idleTimer != nil {
				idleTimer.Reset(p.idleTimeout)
			}
			line, err := encodeFrame(p.topic, json.RawMessage(cached))
			if err != nil {
				log.Warn().Err(err).Msg("failed to re-frame upstream payload")
				continue
			}
			for id, conn := range conns {
				if _, err := conn.Write(line); err != nil {
					log.Warn().Str("conn_id", id).Err(err).Msg("dropping downstream subscriber")
					conn.Close()
					delete(conns, id)
					continue
				}
				delivered++
			}
			if p.msgCount > 0 && delivered >= p.msgCount {
				p.closeAll(conns)
				return nil
			}

		case ev := <-p.subscribeEvent:
			conns[ev.id] = ev.conn
			if haveCached {
				line, err := encodeFrame(p.topic, json.RawMessage(cached))
				if err == nil {
					if _, err := ev.conn.Write(line); err != nil {
						log.Warn().Str("conn_id", ev.id).Err(err).Msg("replay to new subscriber failed")
						ev.conn.Close()
						delete(conns, ev.id)
					} else {
						delivered++
					}
				}
			}
		}
	}
}

func (p *CachingProxy) closeAll(conns map[string]net.Conn) {
	for _, conn := range conns {
		conn.Close()
	}
}

func (p *CachingProxy) acceptLoop(ctx context.Context) {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			return
		}
		id := uuid.NewString()
		select {
		case p.subscribeEvent <- subscribeEvent{id: id, conn: conn}:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

func (p *CachingProxy) subscribeUpstream(ctx context.Context, out chan<- upstreamMessage) {
	sub := NewSubscriber(p.topic, p.upstreamAddr)
	err := sub.Run(ctx, 0, func(payload []byte) {
		select {
		case out <- upstreamMessage{payload: payload}:
		case <-ctx.Done():
		}
	})
	if err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Str("upstream", p.upstreamAddr).Msg("upstream subscription ended")
	}
}

// Close releases the downstream listener.
func (p *CachingProxy) Close() error {
	return p.listener.Close()
}
