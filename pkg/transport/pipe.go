package transport

import (
	"errors"
	"sync"

	"github.com/mossy-p/call-signaling/pkg/models"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned by Send on a closed transport
var ErrClosed = errors.New("transport closed")

const pipeBuffer = 64

// Pipe connects two in-process endpoints: what one side sends, the other
// receives. Each endpoint drains its inbound queue on a single consumer
// goroutine, so handlers see signals one at a time in arrival order, the same
// serialization a networked transport provides. Used by tests and local
// simulations in place of a relay connection.
func Pipe() (*PipeEnd, *PipeEnd) {
	a := newPipeEnd()
	b := newPipeEnd()
	a.peer = b
	b.peer = a
	go a.consume()
	go b.consume()
	return a, b
}

// PipeEnd is one side of an in-memory signaling pipe
type PipeEnd struct {
	peer *PipeEnd

	inbound chan models.SignalMessage
	done    chan struct{}
	once    sync.Once

	mu      sync.RWMutex
	handler func(models.SignalMessage)
}

func newPipeEnd() *PipeEnd {
	return &PipeEnd{
		inbound: make(chan models.SignalMessage, pipeBuffer),
		done:    make(chan struct{}),
	}
}

// Send queues msg for the peer endpoint
func (p *PipeEnd) Send(msg models.SignalMessage) error {
	select {
	case <-p.done:
		return ErrClosed
	case <-p.peer.done:
		return ErrClosed
	default:
	}

	select {
	case p.peer.inbound <- msg:
		return nil
	default:
		log.Warn().Str("type", string(msg.Type)).Msg("Pipe buffer full, dropping signal")
		return nil
	}
}

// SetOnSignal registers the inbound handler for this endpoint
func (p *PipeEnd) SetOnSignal(handler func(models.SignalMessage)) {
	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()
}

// Close shuts this endpoint down. The peer's sends start failing.
func (p *PipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

func (p *PipeEnd) consume() {
	for {
		select {
		case <-p.done:
			return
		case msg := <-p.inbound:
			p.mu.RLock()
			handler := p.handler
			p.mu.RUnlock()
			if handler == nil {
				log.Debug().Str("type", string(msg.Type)).Msg("No handler registered, dropping signal")
				continue
			}
			handler(msg)
		}
	}
}
