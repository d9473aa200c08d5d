package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Publisher binds an address and fans a sequence of payloads out to every
// connected subscriber, framed one per line.
type Publisher struct {
	topic    string
	listener net.Listener

	mu    sync.Mutex
	conns map[string]net.Conn
}

// NewPublisher binds addr and starts accepting subscriber connections in the
// background. Callers must call Close when done.
func NewPublisher(topic, addr string) (*Publisher, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding publisher on %s: %w", addr, err)
	}
	p := &Publisher{topic: topic, listener: ln, conns: map[string]net.Conn{}}
	go p.acceptLoop()
	return p, nil
}

func (p *Publisher) acceptLoop() {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			return
		}
		id := uuid.NewString()
		log.Debug().Str("topic", p.topic).Str("conn_id", id).Str("remote", conn.RemoteAddr().String()).
			Msg("subscriber connected")
		p.mu.Lock()
		p.conns[id] = conn
		p.mu.Unlock()
	}
}

// Addr reports the listener's bound address, useful when addr was ":0".
func (p *Publisher) Addr() net.Addr {
	return p.listener.Addr()
}

// WaitForSubscriber blocks until at least one subscriber has connected, or
// timeout elapses.
func (p *Publisher) WaitForSubscriber(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		n := len(p.conns)
		p.mu.Unlock()
		if n > 0 {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// Publish emits one payload, framed under the publisher's topic, to every
// currently connected subscriber. Connections that error are dropped.
func (p *Publisher) Publish(payload any) error {
	line, err := encodeFrame(p.topic, payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for id, conn := range p.conns {
		if _, err := conn.Write(line); err != nil {
			log.Warn().Str("conn_id", id).Err(err).Msg("dropping subscriber after write failure")
			conn.Close()
			delete(p.conns, id)
		}
	}
	return nil
}

// Run emits one Publish call per period, via next, until count emissions
// have been sent (count <= 0 means unbounded) or ctx is cancelled.
func (p *Publisher) Run(ctx context.Context, period time.Duration, count int, next func() any) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	emitted := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Publish(next()); err != nil {
				log.Warn().Err(err).Msg("publish failed")
				continue
			}
			emitted++
			if count > 0 && emitted >= count {
				return
			}
		}
	}
}

// Close stops accepting new subscribers and closes every open connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	for _, conn := range p.conns {
		conn.Close()
	}
	p.conns = map[string]net.Conn{}
	p.mu.Unlock()
	return p.listener.Close()
}
